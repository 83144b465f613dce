package benchmarks

import (
	"context"
	"testing"

	"github.com/turngraph/turngraph/pkg/turngraph"
)

// BenchmarkRun_Linear_5 runs a 5-node linear graph.
func BenchmarkRun_Linear_5(b *testing.B) {
	compiled := mustCompile(buildLinearGraph(5))
	ctx := turngraph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Run(ctx, turngraph.State{})
	}
}

// BenchmarkRun_Linear_50 runs a 50-node linear graph.
func BenchmarkRun_Linear_50(b *testing.B) {
	compiled := mustCompile(buildLinearGraph(50))
	ctx := turngraph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Run(ctx, turngraph.State{})
	}
}

// BenchmarkRun_Branching runs the conditional graph, alternating branches.
func BenchmarkRun_Branching(b *testing.B) {
	compiled := mustCompile(buildBranchingGraph())
	ctx := turngraph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Run(ctx, turngraph.State{"n": i})
	}
}

// BenchmarkRun_Loop_10 runs the self-loop for 10 iterations per run.
func BenchmarkRun_Loop_10(b *testing.B) {
	compiled := mustCompile(buildLoopGraph(10))
	ctx := turngraph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Run(ctx, turngraph.State{})
	}
}

// BenchmarkRun_MergeHeavy runs nodes returning wide patches to measure
// merge throughput.
func BenchmarkRun_MergeHeavy(b *testing.B) {
	wide := func(ctx turngraph.Context, s turngraph.State) (turngraph.State, error) {
		patch := make(turngraph.State, 32)
		for i := 0; i < 32; i++ {
			patch[nodeID(i)] = i
		}
		return patch, nil
	}

	compiled := mustCompile(turngraph.NewGraph().
		AddNode("a", wide).
		AddNode("b", wide).
		AddNode("c", wide).
		AddEdge(turngraph.START, "a").
		AddEdge("a", "b").
		AddEdge("b", "c").
		AddEdge("c", turngraph.END))

	ctx := turngraph.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compiled.Run(ctx, turngraph.State{})
	}
}

// BenchmarkRun_Parallel measures concurrent runs against one compiled
// graph.
func BenchmarkRun_Parallel(b *testing.B) {
	compiled := mustCompile(buildLinearGraph(5))
	b.RunParallel(func(pb *testing.PB) {
		ctx := turngraph.NewContext(context.Background())
		for pb.Next() {
			_, _ = compiled.Run(ctx, turngraph.State{})
		}
	})
}
