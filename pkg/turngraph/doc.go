/*
Package turngraph executes directed graphs of state transforms, one
conversational turn at a time.

# Overview

turngraph is the execution engine of a conversational assistant
backend: callers declare processing steps ("nodes") and transition
rules (static and conditional), compile them into an immutable plan,
and run that plan against a conversation state. The engine knows
nothing about what a node means - LLM calls, database writes, image
generation are all opaque transforms to it. What it does guarantee:

  - Deterministic node ordering along the routed path
  - Branch selection via caller-supplied routers, with no silent fallback
  - Exact shallow-merge semantics for partial state updates
  - Cooperative mid-flight cancellation between nodes
  - Compile-time validation reporting every graph defect at once

# Basic Usage

Build a graph, compile it once, run it once per turn:

	func classify(ctx turngraph.Context, s turngraph.State) (turngraph.State, error) {
	    return turngraph.State{"intent": detect(s.String("message"))}, nil
	}

	func main() {
	    graph := turngraph.NewGraph().
	        AddNode("classify", classify).
	        AddNode("reply", reply).
	        AddEdge(turngraph.START, "classify").
	        AddEdge("classify", "reply").
	        AddEdge("reply", turngraph.END)

	    compiled, err := graph.Compile()
	    if err != nil {
	        log.Fatal(err)
	    }

	    ctx := turngraph.NewContext(context.Background())
	    result, err := compiled.Run(ctx, turngraph.State{"message": "hello"})
	    if err != nil {
	        log.Fatal(err)
	    }
	    fmt.Println(result.String("reply"))
	}

# State and Merging

State is a map[string]any owned by one run. A transform may return a
full replacement or a partial patch; either way the executor performs a
shallow merge: fields present in the result overwrite, fields absent
are carried over, and a field set to the Unset sentinel is cleared.

	// keeps every other field, clears one, updates another
	return turngraph.State{
	    "pending_image": turngraph.Unset,
	    "reply":         text,
	}, nil

Transforms must not mutate their input state; return a new map.

# Conditional Branching

A conditional edge pairs a router (a pure, synchronous function of
state) with a label-to-node path map:

	graph.AddConditionalEdges("classify", func(s turngraph.State) string {
	    if s.Bool("needs_search") {
	        return "search"
	    }
	    return "reply"
	}, map[string]string{
	    "search": "search",
	    "reply":  "reply",
	})

A label missing from the path map fails the run with *RouterError
naming the node, the label, and the accepted labels. There is no
default route.

# Loops and Limits

Cycles are legal: a conditional edge may route back to an earlier node,
and the engine performs no cycle detection. An unbounded cycle runs
until cancellation, which is the documented caller contract. Callers
wanting a ceiling opt in with WithMaxSteps:

	result, err := compiled.Run(ctx, state, turngraph.WithMaxSteps(50))

# Cancellation

Runs are cancelled between nodes, cooperatively. Bind a one-shot signal
to the run context, or subscribe to a broker channel so external
components can cancel by key (typically one channel per user):

	broker := cancel.NewBroker()

	ctx := turngraph.NewContext(context.Background(),
	    turngraph.WithRunID(turnID),
	    turngraph.WithCancel(broker, "user-42"))

	// elsewhere, when a newer message supersedes this turn:
	broker.Cancel("user-42", errors.New("superseded"))

The engine checks the signal before resolving each transition and again
after each node returns. A node already executing is not interrupted;
its result is merged, and the walk stops before the next node.
Cancellation surfaces as *CancellationError, a distinct type, so
callers can tell "superseded" from "failed".

# Tracing and Events

A trace store journals the state snapshot after every executed node,
keyed by run ID, for inspection after the run:

	store, err := trace.NewSQLiteStore("./traces.db")
	defer store.Close()

	result, err := compiled.Run(ctx, state, turngraph.WithTrace(store))
	records, _ := store.Run(ctx.RunID())

An event bus fans out lifecycle events (run.started, node.completed,
route.resolved, run.completed/failed/cancelled) to subscribers without
ever blocking the run:

	bus := event.NewBus(event.DefaultBusConfig)
	defer bus.Close()
	bus.SubscribeAll(func(evt event.Event) { ... })

	result, err := compiled.Run(ctx, state, turngraph.WithEventBus(bus))

# Observability

Enable structured logging, metrics, and spans per run:

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	result, err := compiled.Run(ctx, state,
	    turngraph.WithObservabilityLogger(logger),
	    turngraph.WithMetrics(true),
	    turngraph.WithTracing(true))

Logs carry run_id, node_id, and duration_ms fields. OpenTelemetry
metrics: turngraph.node.executions, turngraph.node.latency_ms, etc.
OpenTelemetry tracing: turngraph.run > turngraph.node.{id} spans.

# Error Handling

Compile returns every violation at once, joined with errors.Join:

	_, err := graph.Compile()
	// err may report a duplicate node, a dangling edge target, and a
	// missing outgoing rule together

Run errors identify their origin and unwrap cleanly:

	result, err := compiled.Run(ctx, state)

	var nodeErr *turngraph.NodeError
	if errors.As(err, &nodeErr) {
	    log.Printf("node %s failed: %v", nodeErr.Node, nodeErr.Err)
	}

	var cancelErr *turngraph.CancellationError
	if errors.As(err, &cancelErr) {
	    log.Printf("run %s superseded (during node: %v)",
	        cancelErr.RunID, cancelErr.WasExecuting)
	}

Panics inside transforms are recovered and surfaced as *PanicError with
the stack trace. The engine retries nothing and swallows nothing.

# Thread Safety

  - Graph is safe to build from one goroutine; registration calls are
    serialized, but build-then-compile from a single goroutine is the
    intended use
  - CompiledGraph IS safe for concurrent Run calls (immutable)
  - Each run owns its State and Context; never share them across runs
  - cancel.Broker, event.LocalBus and trace.Store implementations are
    safe for concurrent use

# Subpackages

  - cancel: one-shot signals and the channel-keyed cancellation broker
  - trace: per-run step journals (memory, SQLite)
  - event: run lifecycle pub/sub
  - observability: logging, metrics, and tracing helpers
  - config: typed configuration maps and file loading
  - registry: generic concurrent registry
*/
package turngraph
