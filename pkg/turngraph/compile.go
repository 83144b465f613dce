package turngraph

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// Compile validates every accumulated declaration and produces an
// immutable CompiledGraph. All violations are collected and joined
// into a single error, not just the first one found, so a broken graph
// definition is fixed in one pass.
//
// Validation checks:
//  1. Node IDs are non-empty, contain no whitespace, and are not the
//     reserved START/END sentinels; transforms are non-nil; no ID is
//     registered twice.
//  2. Every edge endpoint names a registered node. START is legal only
//     as a source, END only as a target.
//  3. Conditional edges carry a non-nil router and at least one label.
//  4. START has an outgoing rule.
//  5. Every registered node has exactly one outgoing rule: a node with
//     none is a dead end, a node with several (or with both a static
//     and a conditional rule) is ambiguous.
//
// Nodes unreachable from START are logged as warnings but do not fail
// compilation. No cycle or path-to-END analysis is performed: a cycle
// in the edge table runs until cancelled, by contract with the caller.
func (g *Graph) Compile() (*CompiledGraph, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var errs []error

	// 1. Node declarations.
	nodes := make(map[string]NodeFunc, len(g.nodes))
	for _, decl := range g.nodes {
		if ok := validNodeID(decl.id, &errs); !ok {
			continue
		}
		if decl.fn == nil {
			errs = append(errs, fmt.Errorf("%w: %s", ErrNilNodeFunc, decl.id))
			continue
		}
		if _, exists := nodes[decl.id]; exists {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicateNode, decl.id))
			continue
		}
		nodes[decl.id] = decl.fn
	}

	// 2. Static edge endpoints.
	for _, e := range g.edges {
		validateSource(e.from, nodes, fmt.Sprintf("edge %s -> %s", e.from, e.to), &errs)
		validateTarget(e.to, nodes, fmt.Sprintf("edge %s -> %s", e.from, e.to), &errs)
	}

	// 2 & 3. Conditional edge declarations.
	for _, c := range g.conds {
		validateSource(c.from, nodes, fmt.Sprintf("conditional edge from %s", c.from), &errs)
		if c.router == nil {
			errs = append(errs, fmt.Errorf("%w: conditional edge from %s", ErrNilRouter, c.from))
		}
		if len(c.paths) == 0 {
			errs = append(errs, fmt.Errorf("%w: conditional edge from %s", ErrEmptyPathMap, c.from))
		}
		for _, label := range sortedLabels(c.paths) {
			target := c.paths[label]
			validateTarget(target, nodes, fmt.Sprintf("conditional edge from %s, label %q", c.from, label), &errs)
		}
	}

	// 4 & 5. Exactly one outgoing rule per source.
	staticBySource := make(map[string][]edgeDecl)
	for _, e := range g.edges {
		staticBySource[e.from] = append(staticBySource[e.from], e)
	}
	condsBySource := make(map[string][]condDecl)
	for _, c := range g.conds {
		condsBySource[c.from] = append(condsBySource[c.from], c)
	}

	checkRules := func(id string) {
		statics := staticBySource[id]
		conds := condsBySource[id]
		switch {
		case len(statics) > 0 && len(conds) > 0:
			errs = append(errs, fmt.Errorf("%w: %s", ErrConflictingRules, id))
		case len(statics) > 1:
			errs = append(errs, fmt.Errorf("%w: %s has %d static edges", ErrMultipleRules, id, len(statics)))
		case len(conds) > 1:
			errs = append(errs, fmt.Errorf("%w: %s has %d conditional edges", ErrMultipleRules, id, len(conds)))
		case len(statics) == 0 && len(conds) == 0:
			if id == START {
				errs = append(errs, ErrNoEntryRule)
			} else {
				errs = append(errs, fmt.Errorf("%w: %s", ErrNoOutgoingRule, id))
			}
		}
	}

	checkRules(START)
	for _, decl := range g.nodes {
		if _, registered := nodes[decl.id]; registered {
			checkRules(decl.id)
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	cg := g.buildCompiledGraph(nodes, staticBySource, condsBySource)
	cg.warnUnreachableNodes()
	return cg, nil
}

// validNodeID appends violations for malformed node IDs and reports
// whether the ID is usable.
func validNodeID(id string, errs *[]error) bool {
	if strings.TrimSpace(id) == "" {
		*errs = append(*errs, ErrEmptyNodeID)
		return false
	}
	if strings.ContainsAny(id, " \t\n\r") {
		*errs = append(*errs, fmt.Errorf("%w: %q contains whitespace", ErrEmptyNodeID, id))
		return false
	}
	if reserved(id) {
		*errs = append(*errs, fmt.Errorf("%w: %s cannot be registered as a node", ErrReservedID, id))
		return false
	}
	return true
}

// reserved reports whether id collides with a sentinel, case-insensitively.
func reserved(id string) bool {
	lower := strings.ToLower(id)
	return lower == START || lower == END || lower == "start" || lower == "end"
}

func validateSource(from string, nodes map[string]NodeFunc, where string, errs *[]error) {
	if from == START {
		return
	}
	if from == END {
		*errs = append(*errs, fmt.Errorf("%w: END cannot be a source (%s)", ErrReservedID, where))
		return
	}
	if _, exists := nodes[from]; !exists {
		*errs = append(*errs, fmt.Errorf("%w: source %s not registered (%s)", ErrUnknownNode, from, where))
	}
}

func validateTarget(to string, nodes map[string]NodeFunc, where string, errs *[]error) {
	if to == END {
		return
	}
	if to == START {
		*errs = append(*errs, fmt.Errorf("%w: START cannot be a target (%s)", ErrReservedID, where))
		return
	}
	if _, exists := nodes[to]; !exists {
		*errs = append(*errs, fmt.Errorf("%w: target %s not registered (%s)", ErrUnknownNode, to, where))
	}
}

func sortedLabels(paths map[string]string) []string {
	labels := make([]string, 0, len(paths))
	for label := range paths {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// buildCompiledGraph snapshots the validated declarations. Everything
// is copied out of the builder so the CompiledGraph stays immutable no
// matter what happens to the builder afterwards.
func (g *Graph) buildCompiledGraph(nodes map[string]NodeFunc, staticBySource map[string][]edgeDecl, condsBySource map[string][]condDecl) *CompiledGraph {
	static := make(map[string]string, len(staticBySource))
	for from, decls := range staticBySource {
		static[from] = decls[0].to
	}

	routers := make(map[string]*conditionalRule, len(condsBySource))
	for from, decls := range condsBySource {
		decl := decls[0]
		paths := make(map[string]string, len(decl.paths))
		for label, target := range decl.paths {
			paths[label] = target
		}
		routers[from] = &conditionalRule{
			router: decl.router,
			paths:  paths,
			labels: sortedLabels(paths),
		}
	}

	successors := make(map[string][]string, len(static)+len(routers))
	for from, to := range static {
		successors[from] = []string{to}
	}
	for from, rule := range routers {
		targets := make([]string, 0, len(rule.paths))
		seen := make(map[string]bool, len(rule.paths))
		for _, label := range rule.labels {
			target := rule.paths[label]
			if !seen[target] {
				seen[target] = true
				targets = append(targets, target)
			}
		}
		sort.Strings(targets)
		successors[from] = targets
	}

	predecessors := make(map[string][]string)
	for from, targets := range successors {
		for _, to := range targets {
			if to != END {
				predecessors[to] = append(predecessors[to], from)
			}
		}
	}
	for _, sources := range predecessors {
		sort.Strings(sources)
	}

	return &CompiledGraph{
		nodes:        nodes,
		static:       static,
		routers:      routers,
		successors:   successors,
		predecessors: predecessors,
	}
}

// warnUnreachableNodes logs registered nodes that no chain of rules
// starting at START can reach. Unlike the executor, this traversal
// knows every conditional target from the path maps, so it is exact.
func (cg *CompiledGraph) warnUnreachableNodes() {
	reachable := make(map[string]bool)
	queue := []string{START}
	reachable[START] = true

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, target := range cg.successors[current] {
			if target != END && !reachable[target] {
				reachable[target] = true
				queue = append(queue, target)
			}
		}
	}

	ids := make([]string, 0, len(cg.nodes))
	for id := range cg.nodes {
		if !reachable[id] {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	for _, id := range ids {
		slog.Warn("node is unreachable from START", "node_id", id)
	}
}
