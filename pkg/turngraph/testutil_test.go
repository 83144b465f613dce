package turngraph

import (
	"context"
)

// Helper nodes and contexts shared across tests.

// testCtx creates a plain execution context for tests.
func testCtx() Context {
	return NewContext(context.Background(), WithRunID("test-run"))
}

// passthrough returns the state unchanged.
func passthrough(ctx Context, s State) (State, error) {
	return s, nil
}

// makePatchNode creates a node that returns the given patch.
func makePatchNode(patch State) NodeFunc {
	return func(ctx Context, s State) (State, error) {
		return patch, nil
	}
}

// makeTrackingNode creates a node that records its execution order.
func makeTrackingNode(name string, tracker *[]string) NodeFunc {
	return func(ctx Context, s State) (State, error) {
		*tracker = append(*tracker, name)
		return State{"last": name}, nil
	}
}

// makeFailingNode creates a node that returns the given error.
func makeFailingNode(err error) NodeFunc {
	return func(ctx Context, s State) (State, error) {
		return nil, err
	}
}

// makePanicNode creates a node that panics with the given value.
func makePanicNode(value any) NodeFunc {
	return func(ctx Context, s State) (State, error) {
		panic(value)
	}
}

// flagRouter routes on the boolean "flag" field.
func flagRouter(s State) string {
	if s.Bool("flag") {
		return "yes"
	}
	return "no"
}
