package turngraph

// Reserved pseudo-node identifiers. Neither is ever executed.
//
// START marks the entry of a run. It may appear only as an edge source;
// its outgoing rule decides the first real node. END marks termination.
// It may appear only as an edge target; routing to END ends the run
// successfully. There is no implicit completion: the only way a run
// finishes is an explicit transition to END.
const (
	START = "__start__"
	END   = "__end__"
)

// NodeFunc is the signature for all node transforms.
// Nodes receive the execution context and the current state, and
// return either a full replacement state or a partial patch. The
// executor shallow-merges whatever is returned: fields present in the
// result overwrite, fields absent are carried over, and fields set to
// Unset are cleared.
//
// The input state must not be mutated in place. Build a new State (or
// a small patch) and return it.
//
// Example:
//
//	func classify(ctx turngraph.Context, s turngraph.State) (turngraph.State, error) {
//	    intent := detectIntent(s.String("message"))
//	    return turngraph.State{"intent": intent}, nil
//	}
type NodeFunc func(ctx Context, state State) (State, error)

// RouterFunc selects the label of a conditional edge for the given state.
// The returned label is looked up in the edge's path map; a label not
// present there is a runtime routing error, never a silent fallback.
//
// Routers must be synchronous and free of side effects. They receive
// only the state, no context, so there is nothing to block on.
//
// Example:
//
//	func route(s turngraph.State) string {
//	    if s.Bool("needs_image") {
//	        return "image"
//	    }
//	    return "text"
//	}
type RouterFunc func(state State) string
