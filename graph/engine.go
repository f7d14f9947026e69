package graph

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/advisorhq/stateflow/graph/emit"
	"github.com/advisorhq/stateflow/graph/store"
)

// Engine executes a compiled workflow definition against per-thread state
// with checkpointed suspend/resume support.
//
// The Engine:
//   - Selects the next node via explicit routes or conditional edges
//   - Executes nodes sequentially, or concurrently for fan-out groups
//   - Merges partial state updates deterministically
//   - Writes a checkpoint after every node completion or suspension
//   - Pauses a thread when a node requests an interrupt and re-enters the
//     node when the caller supplies a decision
//
// An Engine is immutable after Compile and safe for concurrent use by
// independent threads. Concurrent Invoke/Resume calls for the *same* thread
// must be serialized by the caller; the engine does not arbitrate a
// double-resume race.
type Engine struct {
	name      string
	nodes     map[string]Node
	timeouts  map[string]time.Duration
	edges     []Edge
	startNode string

	store   store.Store
	emitter emit.Emitter
	metrics *Metrics
	opts    engineConfig
}

// ExecutionResult is the outcome of an Invoke or Resume call. Callers must
// distinguish three cases:
//   - error != nil: the call failed; the last checkpoint is the recovery point.
//   - Terminal: the thread finished; State is the final state.
//   - !Terminal: the thread is suspended at PendingNode awaiting a Decision
//     described by Interrupt; pass the decision to Resume to continue.
type ExecutionResult struct {
	// Terminal reports whether the thread reached a terminal node.
	Terminal bool

	// State is the accumulated state: final for terminal results, the state
	// the pending node will re-execute against for suspended ones.
	State State

	// PendingNode is the node awaiting re-execution when suspended.
	PendingNode string

	// Interrupt describes the pending decision when suspended.
	Interrupt *Suspend
}

// Invoke starts or continues execution of a thread.
//
// For an unknown thread, execution begins at the start node with a deep copy
// of initial as state. For a thread with an existing checkpoint, execution
// continues from the checkpoint and initial is ignored; this is how a
// crashed process picks a thread back up. A thread suspended on an interrupt
// must be continued with Resume, not Invoke; a terminal thread returns its
// terminal result unchanged.
func (e *Engine) Invoke(ctx context.Context, threadID string, initial State) (ExecutionResult, error) {
	if threadID == "" {
		return ExecutionResult{}, &EngineError{Message: "thread ID cannot be empty", Code: "INVALID_THREAD"}
	}

	cp, err := e.store.Get(ctx, threadID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		state, cloneErr := initial.Clone()
		if cloneErr != nil {
			return ExecutionResult{}, &EngineError{Message: "initial state is not serializable: " + cloneErr.Error(), Code: "INVALID_STATE"}
		}
		e.emit(emit.Event{ThreadID: threadID, Msg: "thread_started"})
		return e.run(ctx, threadID, state, frontier{nodes: []string{e.startNode}}, 0, nil)
	case err != nil:
		return ExecutionResult{}, &StoreError{Op: "get", ThreadID: threadID, Cause: err}
	}

	if cp.Terminal() {
		return ExecutionResult{Terminal: true, State: State(cp.State)}, nil
	}
	if cp.Interrupt != nil {
		return ExecutionResult{}, ErrInterruptSupersedesDecision
	}
	return e.run(ctx, threadID, State(cp.State), frontier{nodes: cp.PendingNodes, join: cp.JoinNode}, cp.Step, nil)
}

// Resume continues a suspended thread with an external decision.
//
// The engine does not inject the decision into the middle of the suspended
// node: it re-executes the node from its start, and this time the node's
// Interrupt call returns the decision instead of a Suspend. Any code before
// the interrupt point therefore runs again; see NodeContext.Interrupt for
// the idempotency patterns node authors must apply.
//
// decision may be nil only when the pending node is not an interrupt point:
// after crash recovery a thread can be parked between nodes, and a nil-decision
// Resume simply continues it. Resume of an unknown or terminal thread, or a
// decision supplied to a thread with no pending interrupt, returns
// ErrNoPendingInterrupt.
func (e *Engine) Resume(ctx context.Context, threadID string, decision Decision) (ExecutionResult, error) {
	if threadID == "" {
		return ExecutionResult{}, &EngineError{Message: "thread ID cannot be empty", Code: "INVALID_THREAD"}
	}

	cp, err := e.store.Get(ctx, threadID)
	if errors.Is(err, store.ErrNotFound) {
		return ExecutionResult{}, ErrNoPendingInterrupt
	}
	if err != nil {
		return ExecutionResult{}, &StoreError{Op: "get", ThreadID: threadID, Cause: err}
	}

	if cp.Terminal() {
		return ExecutionResult{}, ErrNoPendingInterrupt
	}
	if cp.Interrupt == nil && decision != nil {
		return ExecutionResult{}, ErrNoPendingInterrupt
	}
	if cp.Interrupt != nil && decision == nil {
		return ExecutionResult{}, &EngineError{
			Message: "thread is suspended on " + cp.Interrupt.Kind + "; a decision is required",
			Code:    "DECISION_REQUIRED",
		}
	}

	if cp.Interrupt != nil {
		e.metrics.resumed()
		e.emit(emit.Event{
			ThreadID: threadID,
			Step:     cp.Step,
			NodeID:   cp.PendingNodes[0],
			Msg:      "resumed",
			Meta:     map[string]any{"interrupt_kind": cp.Interrupt.Kind},
		})
	}
	return e.run(ctx, threadID, State(cp.State), frontier{nodes: cp.PendingNodes, join: cp.JoinNode}, cp.Step, decision)
}

// Abandon deletes a thread's checkpoint, discarding its state and any pending
// interrupt. There is no cancel signal to a suspended thread; abandonment is
// simply never resuming, and Abandon reclaims the checkpoint.
func (e *Engine) Abandon(ctx context.Context, threadID string) error {
	if err := e.store.Delete(ctx, threadID); err != nil {
		e.metrics.checkpointFailed("delete")
		return &StoreError{Op: "delete", ThreadID: threadID, Cause: err}
	}
	return nil
}

// frontier is the set of node(s) to run next. Multiple nodes form a parallel
// group that continues at join once all of them complete.
type frontier struct {
	nodes []string
	join  string
}

func (f frontier) empty() bool { return len(f.nodes) == 0 }

// run is the execution loop shared by Invoke and Resume.
//
// Each iteration executes one engine step (a single node or a whole parallel
// group), merges the resulting delta(s), and writes a checkpoint. The loop
// exits when the frontier empties (terminal) or a node suspends or fails.
func (e *Engine) run(ctx context.Context, threadID string, state State, front frontier, step int, decision Decision) (ExecutionResult, error) {
	for !front.empty() {
		step++

		if e.opts.maxSteps > 0 && step > e.opts.maxSteps {
			return ExecutionResult{}, ErrMaxStepsExceeded
		}
		select {
		case <-ctx.Done():
			return ExecutionResult{}, ctx.Err()
		default:
		}

		if len(front.nodes) == 1 && front.join == "" {
			nodeID := front.nodes[0]
			res, err := e.stepSingle(ctx, threadID, step, nodeID, state, decision)
			decision = nil // only the pending node sees the resume decision
			if err != nil {
				return ExecutionResult{}, err
			}

			if res.Suspend != nil {
				// The suspend-step delta is checkpointed so state-flag
				// guards written before the interrupt survive the
				// suspension (see NodeContext.Interrupt).
				state = state.Merge(res.Delta)
				if err := e.saveCheckpoint(ctx, threadID, state, step, front, res.Suspend); err != nil {
					return ExecutionResult{}, err
				}
				e.metrics.interrupted(res.Suspend.Kind)
				e.emit(emit.Event{
					ThreadID: threadID, Step: step, NodeID: nodeID, Msg: "interrupted",
					Meta: map[string]any{"interrupt_kind": res.Suspend.Kind},
				})
				return ExecutionResult{State: state, PendingNode: nodeID, Interrupt: res.Suspend}, nil
			}

			state = state.Merge(res.Delta)
			front = e.nextFrontier(nodeID, res.Route, state)
		} else {
			// A group frontier (even of one node) merges deltas and
			// continues at its join; branch routes are ignored.
			deltas, err := e.stepParallel(ctx, threadID, step, front.nodes, state)
			if err != nil {
				return ExecutionResult{}, err
			}
			for _, delta := range deltas {
				state = state.Merge(delta)
			}
			if front.join != "" {
				front = frontier{nodes: []string{front.join}}
			} else {
				front = frontier{}
			}
		}

		if err := e.saveCheckpoint(ctx, threadID, state, step, front, nil); err != nil {
			return ExecutionResult{}, err
		}
	}

	e.emit(emit.Event{ThreadID: threadID, Step: step, Msg: "thread_terminal"})
	return ExecutionResult{Terminal: true, State: state}, nil
}

// stepSingle executes one node against a private copy of the state.
func (e *Engine) stepSingle(ctx context.Context, threadID string, step int, nodeID string, state State, decision Decision) (NodeResult, error) {
	node, exists := e.nodes[nodeID]
	if !exists {
		return NodeResult{}, &EngineError{Message: "node not found during execution: " + nodeID, Code: "NODE_NOT_FOUND"}
	}

	snapshot, err := state.Clone()
	if err != nil {
		return NodeResult{}, &EngineError{Message: "state is not serializable: " + err.Error(), Code: "INVALID_STATE"}
	}

	nc := &NodeContext{ThreadID: threadID, Step: step, decision: decision}
	e.emit(emit.Event{ThreadID: threadID, Step: step, NodeID: nodeID, Msg: "node_start"})
	e.metrics.nodeStarted()
	start := time.Now()

	res := e.executeWithTimeout(ctx, nodeID, node, nc, snapshot)

	elapsed := time.Since(start)
	e.metrics.nodeFinished()

	switch {
	case res.Err != nil:
		e.metrics.observeNode(nodeID, elapsed, "error")
		e.emit(emit.Event{
			ThreadID: threadID, Step: step, NodeID: nodeID, Msg: "node_error",
			Meta: map[string]any{"error": res.Err.Error(), "duration_ms": elapsed.Milliseconds()},
		})
		return NodeResult{}, wrapNodeErr(nodeID, res.Err)
	case res.Suspend != nil:
		e.metrics.observeNode(nodeID, elapsed, "suspended")
		return res, nil
	default:
		e.metrics.observeNode(nodeID, elapsed, "success")
		e.emit(emit.Event{
			ThreadID: threadID, Step: step, NodeID: nodeID, Msg: "node_completed",
			Meta: map[string]any{"duration_ms": elapsed.Milliseconds()},
		})
		return res, nil
	}
}

// stepParallel executes a fan-out group concurrently and returns the deltas
// in declaration order, which is also the merge order. Any branch error fails
// the whole group without a checkpoint; the group re-runs from its start on
// retry. A Suspend inside a branch is a node error; there is no way to park
// half a group.
func (e *Engine) stepParallel(ctx context.Context, threadID string, step int, nodeIDs []string, state State) ([]State, error) {
	for _, nodeID := range nodeIDs {
		if _, exists := e.nodes[nodeID]; !exists {
			return nil, &EngineError{Message: "node not found during execution: " + nodeID, Code: "NODE_NOT_FOUND"}
		}
	}

	results := make([]NodeResult, len(nodeIDs))

	var wg sync.WaitGroup
	for i, nodeID := range nodeIDs {
		snapshot, err := state.Clone()
		if err != nil {
			return nil, &EngineError{Message: "state is not serializable: " + err.Error(), Code: "INVALID_STATE"}
		}

		wg.Add(1)
		go func(i int, nodeID string, snapshot State) {
			defer wg.Done()

			nc := &NodeContext{ThreadID: threadID, Step: step}
			e.emit(emit.Event{ThreadID: threadID, Step: step, NodeID: nodeID, Msg: "node_start"})
			e.metrics.nodeStarted()
			start := time.Now()

			res := e.executeWithTimeout(ctx, nodeID, e.nodes[nodeID], nc, snapshot)

			elapsed := time.Since(start)
			e.metrics.nodeFinished()

			status := "success"
			if res.Err != nil {
				status = "error"
			}
			e.metrics.observeNode(nodeID, elapsed, status)
			e.emit(emit.Event{
				ThreadID: threadID, Step: step, NodeID: nodeID, Msg: "node_completed",
				Meta: map[string]any{"duration_ms": elapsed.Milliseconds(), "parallel": true},
			})
			results[i] = res
		}(i, nodeID, snapshot)
	}
	wg.Wait()

	deltas := make([]State, 0, len(nodeIDs))
	for i, res := range results {
		if res.Err != nil {
			return nil, wrapNodeErr(nodeIDs[i], res.Err)
		}
		if res.Suspend != nil {
			return nil, &NodeError{NodeID: nodeIDs[i], Code: "SUSPEND_IN_PARALLEL",
				Cause: errors.New("interrupt requested inside a parallel group")}
		}
		deltas = append(deltas, res.Delta)
	}
	return deltas, nil
}

// executeWithTimeout wraps node execution with timeout enforcement.
// Precedence: per-node override (Definition.SetNodeTimeout), then the
// engine-wide default, then no timeout.
func (e *Engine) executeWithTimeout(ctx context.Context, nodeID string, node Node, nc *NodeContext, state State) NodeResult {
	timeout := e.timeouts[nodeID]
	if timeout <= 0 {
		timeout = e.opts.defaultNodeTimeout
	}
	if timeout <= 0 {
		return node.Run(ctx, nc, state)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res := node.Run(timeoutCtx, nc, state)
	if errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) {
		return NodeResult{Err: &NodeError{NodeID: nodeID, Code: "NODE_TIMEOUT", Cause: timeoutCtx.Err()}}
	}
	return res
}

// nextFrontier resolves a node's routing decision into the next frontier,
// falling back to edge evaluation when the node returned no explicit route.
func (e *Engine) nextFrontier(nodeID string, route Next, state State) frontier {
	if route.Terminal {
		return frontier{}
	}
	if route.To != "" {
		return frontier{nodes: []string{route.To}}
	}
	if len(route.Many) > 0 {
		return frontier{nodes: route.Many, join: route.Join}
	}

	// Edge-based routing: declaration order, first match wins, nil
	// predicate is the default edge. No match terminates the thread.
	for _, edge := range e.edges {
		if edge.From != nodeID {
			continue
		}
		if edge.When == nil || edge.When(state) {
			return frontier{nodes: []string{edge.To}}
		}
	}
	return frontier{}
}

// saveCheckpoint persists the thread's snapshot. Put is the last operation of
// every successful step, so a crash never leaves the thread ahead of its last
// durable checkpoint.
func (e *Engine) saveCheckpoint(ctx context.Context, threadID string, state State, step int, front frontier, suspend *Suspend) error {
	cp := store.Checkpoint{
		ThreadID:     threadID,
		State:        state,
		Step:         step,
		PendingNodes: front.nodes,
		JoinNode:     front.join,
		UpdatedAt:    time.Now().UTC(),
	}
	if suspend != nil {
		cp.Interrupt = &store.InterruptRecord{Kind: suspend.Kind, Payload: suspend.Payload}
	}

	if err := e.store.Put(ctx, cp); err != nil {
		e.metrics.checkpointFailed("put")
		return &StoreError{Op: "put", ThreadID: threadID, Cause: err}
	}
	e.emit(emit.Event{
		ThreadID: threadID, Step: step, Msg: "checkpoint_saved",
		Meta: map[string]any{"pending_nodes": front.nodes},
	})
	return nil
}

func (e *Engine) emit(event emit.Event) {
	if e.emitter != nil {
		e.emitter.Emit(event)
	}
}

func wrapNodeErr(nodeID string, err error) error {
	var ne *NodeError
	if errors.As(err, &ne) {
		return err
	}
	return &NodeError{NodeID: nodeID, Code: "NODE_FAILED", Cause: err}
}
