package turngraph

import "sync"

// Graph is a mutable builder that accumulates node and edge
// declarations. Use NewGraph, chain AddNode, AddEdge and
// AddConditionalEdges, then call Compile to validate everything at
// once and obtain an immutable CompiledGraph.
//
// Registration calls never fail and never panic; every structural
// problem (duplicate IDs, dangling targets, conflicting rules) is
// reported together by Compile so graph-definition bugs surface in a
// single pass.
//
// Graph is not meant to be shared across goroutines while building.
// Build in one goroutine, Compile, then share the CompiledGraph.
//
// Example:
//
//	graph := turngraph.NewGraph().
//	    AddNode("classify", classify).
//	    AddNode("search", search).
//	    AddNode("reply", reply).
//	    AddEdge(turngraph.START, "classify").
//	    AddConditionalEdges("classify", route, map[string]string{
//	        "search": "search",
//	        "reply":  "reply",
//	    }).
//	    AddEdge("search", "reply").
//	    AddEdge("reply", turngraph.END)
//
//	compiled, err := graph.Compile()
type Graph struct {
	mu    sync.Mutex
	nodes []nodeDecl
	edges []edgeDecl
	conds []condDecl
}

// nodeDecl records one AddNode call, in declaration order.
type nodeDecl struct {
	id string
	fn NodeFunc
}

// edgeDecl records one AddEdge call.
type edgeDecl struct {
	from string
	to   string
}

// condDecl records one AddConditionalEdges call. paths is copied at
// registration so later caller mutations cannot leak in.
type condDecl struct {
	from   string
	router RouterFunc
	paths  map[string]string
}

// NewGraph creates an empty graph builder.
func NewGraph() *Graph {
	return &Graph{}
}

// AddNode registers a transform under the given node ID.
// Returns the graph for method chaining.
//
// Registering the same ID twice is rejected at Compile time (the
// duplicate is reported, not silently overwritten). Empty, whitespace
// and reserved IDs are likewise reported by Compile.
func (g *Graph) AddNode(id string, fn NodeFunc) *Graph {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.nodes = append(g.nodes, nodeDecl{id: id, fn: fn})
	return g
}

// AddEdge registers a static transition from one node to another.
// The source may be START and the target may be END.
// Returns the graph for method chaining.
//
// Validation happens at Compile time, so edges may be added in any
// order relative to the nodes they connect.
func (g *Graph) AddEdge(from, to string) *Graph {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.edges = append(g.edges, edgeDecl{from: from, to: to})
	return g
}

// AddConditionalEdges registers a conditional transition: at run time
// router(state) produces a label, and paths maps that label to the
// next node. Targets may include END; the source may be START.
// Returns the graph for method chaining.
//
// A label the router returns that is missing from paths is a runtime
// routing error, so paths should cover every label the router can
// produce. A node may carry a static edge or a conditional edge, not
// both; Compile enforces this.
func (g *Graph) AddConditionalEdges(from string, router RouterFunc, paths map[string]string) *Graph {
	copied := make(map[string]string, len(paths))
	for label, target := range paths {
		copied[label] = target
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.conds = append(g.conds, condDecl{from: from, router: router, paths: copied})
	return g
}
