package graph

import "context"

// Node represents a processing unit in the workflow graph.
//
// A node receives the current thread state, performs its computation, and
// returns a NodeResult describing what happened: a partial state update, a
// routing decision, a request to suspend, or an error.
//
// Nodes must tolerate being invoked more than once with the same input state.
// The engine re-executes a suspended node from its start when the thread
// resumes, and re-executes the pending node after crash recovery. A node that
// performs an external side effect must guard it with one of the documented
// idempotency patterns (see NodeContext.Interrupt).
type Node interface {
	// Run executes the node's logic against a private copy of the thread
	// state. The NodeContext carries the thread identity and, on resume,
	// the externally supplied decision.
	Run(ctx context.Context, nc *NodeContext, state State) NodeResult
}

// NodeResult is the outcome of a single node execution.
//
// Exactly one of the following shapes is meaningful:
//   - Err != nil: the node failed; no checkpoint is written for this step.
//   - Suspend != nil: the node requests suspension; the engine checkpoints
//     the node as still-pending and returns control to the caller.
//   - otherwise: Delta is merged into state and Route decides what runs next.
type NodeResult struct {
	// Delta is the partial state update produced by this node.
	Delta State

	// Route specifies the next step(s) in workflow execution. When Route is
	// the zero value the engine falls back to edge-based routing.
	Route Next

	// Suspend, when non-nil, pauses the thread awaiting an external
	// decision. Build it with NodeContext.Interrupt rather than by hand so
	// resume re-entry works.
	Suspend *Suspend

	// Err is a node-level failure. It is surfaced to the caller unwrapped
	// inside a *NodeError and leaves the previous checkpoint intact.
	Err error
}

// Next specifies the next step(s) after a node completes.
//
// Three routing modes are supported:
//   - Terminal: the thread is done (Stop()).
//   - Single: continue at one named node (Goto(id)).
//   - Fan-out: run several nodes in parallel and continue at a join node
//     once all of them finish (Fan(join, ids...)).
type Next struct {
	// To is the next single node to execute.
	To string

	// Many lists nodes to execute concurrently. Their deltas are merged in
	// the order listed here, so overlapping writes resolve
	// deterministically.
	Many []string

	// Join is the node that runs after every node in Many has completed
	// and the merged state is committed. Empty Join with Many set falls
	// back to edge routing from the fan-out's parent, or terminates.
	Join string

	// Terminal stops the thread.
	Terminal bool
}

// Stop returns a Next that terminates the thread.
func Stop() Next {
	return Next{Terminal: true}
}

// Goto returns a Next that routes to the specified node.
func Goto(nodeID string) Next {
	return Next{To: nodeID}
}

// Fan returns a Next that runs the given nodes concurrently and continues at
// join once all of them have completed. The listed order is the merge order.
func Fan(join string, nodeIDs ...string) Next {
	return Next{Many: nodeIDs, Join: join}
}

// NodeFunc adapts a plain function to the Node interface.
//
// Example:
//
//	score := graph.NodeFunc(func(ctx context.Context, nc *graph.NodeContext, s graph.State) graph.NodeResult {
//	    return graph.NodeResult{
//	        Delta: graph.State{"score": 0.92},
//	        Route: graph.Goto("report"),
//	    }
//	})
type NodeFunc func(ctx context.Context, nc *NodeContext, state State) NodeResult

// Run implements the Node interface for NodeFunc.
func (f NodeFunc) Run(ctx context.Context, nc *NodeContext, state State) NodeResult {
	return f(ctx, nc, state)
}

// Suspend is a node's request to pause the thread and await an external
// decision. It is modeled as an explicit return value rather than a panic or
// error so that the re-entry path on resume is ordinary control flow.
type Suspend struct {
	// Kind classifies the pending decision (e.g. "approval", "clarify").
	Kind string

	// Payload is shown to whoever supplies the decision: the question being
	// asked, the order awaiting approval, and so on.
	Payload State
}

// Decision is the external input supplied when a suspended thread resumes.
// It becomes the return value of the Interrupt call inside the re-executed
// node.
type Decision map[string]any

// NodeContext carries per-invocation execution context into a node: the
// thread identity, the step number, and the resume decision when the node is
// being re-entered after a suspension.
type NodeContext struct {
	// ThreadID identifies the execution lineage this invocation belongs to.
	ThreadID string

	// Step is the engine step number of this invocation (1-indexed).
	Step int

	// decision is non-nil only when this invocation is the re-execution of
	// a previously suspended node with an external decision supplied.
	decision Decision
}

// Interrupt requests suspension of the thread, or collects the decision that
// resumes it.
//
// On the first execution of a node Interrupt returns (nil, *Suspend); the
// node must return that Suspend in its NodeResult and perform no further
// work. When the thread later resumes, the engine re-executes the node from
// its start and Interrupt returns (decision, nil) at the same call site.
//
// Everything the node does before calling Interrupt therefore runs at least
// twice. Side effects before the interrupt point must be made safe by one of
// three documented patterns, all equivalent in effect:
//
//  1. State-flag guard: check a boolean field before the effect and set it in
//     the same Delta that records the effect's outcome:
//
//     if !state.Bool("order_prepared") {
//         placeOrder(...)
//         // "order_prepared": true rides in the same Delta
//     }
//
//  2. Node splitting: move the effect into its own node before the
//     suspending node, so the suspend point is pure and trivially re-runnable.
//
//  3. External idempotency key: derive a stable key with IdempotencyKey and
//     let the external system deduplicate (transactional upsert, payment
//     idempotency header, etc.).
//
// The engine guarantees the node always sees state at least as new as the
// last checkpoint, so pattern 1 is always available.
func (nc *NodeContext) Interrupt(kind string, payload State) (Decision, *Suspend) {
	if nc.decision != nil {
		return nc.decision, nil
	}
	return nil, &Suspend{Kind: kind, Payload: payload}
}

// Resuming reports whether this invocation carries a resume decision.
func (nc *NodeContext) Resuming() bool {
	return nc.decision != nil
}
