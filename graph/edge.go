package graph

// Edge represents a connection between two nodes in the workflow graph.
//
// Edges define the control flow consulted when a node does not return an
// explicit route. They can be:
// - Unconditional: always traverse (When = nil).
// - Conditional: only traverse if the predicate returns true (When != nil).
//
// At runtime the engine evaluates a node's outgoing edges in declaration
// order and follows the first that matches; a nil predicate acts as the
// default edge. A node's explicit NodeResult.Route always takes precedence
// over edges.
type Edge struct {
	// From is the source node ID.
	From string

	// To is the destination node ID.
	To string

	// When is an optional predicate deciding whether this edge is taken.
	// nil means unconditional.
	When Predicate
}

// Predicate is a pure function of state deciding whether an edge is taken.
//
// Predicates must be deterministic and free of side effects; the engine may
// evaluate them more than once for the same state during a resumed
// execution.
//
// Common patterns:
// - Threshold: state.Float("score") > 0.8.
// - Presence: state.String("report") != "".
// - Guard flag: state.Bool("approved").
//
// For graph variants assembled from configuration, ExprPredicate compiles a
// predicate from an expression string instead.
type Predicate func(state State) bool
