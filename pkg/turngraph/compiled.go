package turngraph

import "sort"

// CompiledGraph is an immutable, executable plan produced by Compile.
//
// It is safe for concurrent use: any number of Run calls may execute
// against the same CompiledGraph at once, because each run owns its
// own State and Context and the graph structure is read-only after
// compilation.
//
// The introspection methods (NodeIDs, Successors, RouteLabels, ...)
// expose the structure for debugging and visualization; they never
// expose the transforms or routers themselves.
type CompiledGraph struct {
	nodes   map[string]NodeFunc
	static  map[string]string           // source -> target
	routers map[string]*conditionalRule // source -> conditional rule

	// Pre-computed for introspection.
	successors   map[string][]string
	predecessors map[string][]string
}

// conditionalRule pairs a router with its label-to-target path map.
// labels keeps the path map's keys sorted for deterministic error
// messages and introspection.
type conditionalRule struct {
	router RouterFunc
	paths  map[string]string
	labels []string
}

// NodeIDs returns all registered node identifiers, sorted.
func (cg *CompiledGraph) NodeIDs() []string {
	ids := make([]string, 0, len(cg.nodes))
	for id := range cg.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// HasNode reports whether a node is registered in the graph.
func (cg *CompiledGraph) HasNode(id string) bool {
	_, exists := cg.nodes[id]
	return exists
}

// Successors returns the possible next nodes for the given source: the
// single static target, or every distinct target of a conditional
// edge's path map (sorted). END is included when it is a target.
// Returns nil for unknown sources.
func (cg *CompiledGraph) Successors(id string) []string {
	return cg.successors[id]
}

// Predecessors returns the sources with a rule that can transition to
// the given node, sorted. Returns nil for unknown nodes and for
// nodes only reachable as START.
func (cg *CompiledGraph) Predecessors(id string) []string {
	return cg.predecessors[id]
}

// IsConditional reports whether the node's outgoing rule is conditional.
func (cg *CompiledGraph) IsConditional(id string) bool {
	_, exists := cg.routers[id]
	return exists
}

// RouteLabels returns the labels a node's conditional edge accepts,
// sorted. Returns nil if the node has no conditional edge.
func (cg *CompiledGraph) RouteLabels(id string) []string {
	rule, exists := cg.routers[id]
	if !exists {
		return nil
	}
	labels := make([]string, len(rule.labels))
	copy(labels, rule.labels)
	return labels
}

// getNode returns the transform for the given ID.
// Used internally by the executor.
func (cg *CompiledGraph) getNode(id string) (NodeFunc, bool) {
	fn, exists := cg.nodes[id]
	return fn, exists
}

// getRule returns the conditional rule for the given source.
// Used internally by the executor.
func (cg *CompiledGraph) getRule(id string) (*conditionalRule, bool) {
	rule, exists := cg.routers[id]
	return rule, exists
}

// getStatic returns the static target for the given source.
// Used internally by the executor.
func (cg *CompiledGraph) getStatic(id string) (string, bool) {
	to, exists := cg.static[id]
	return to, exists
}
