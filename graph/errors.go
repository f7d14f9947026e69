package graph

import "errors"

// ErrMaxStepsExceeded indicates that a thread reached the maximum allowed
// step count without terminating. This prevents infinite loops and runaway
// executions.
var ErrMaxStepsExceeded = errors.New("execution exceeded maximum steps limit")

// ErrNoPendingInterrupt is returned by Resume when the thread has nothing to
// resume: it is unknown, already terminal, or has no pending suspension while
// a decision was supplied. It is a caller misuse error, never a silent
// re-execution.
var ErrNoPendingInterrupt = errors.New("thread has no pending interrupt to resume")

// ErrInterruptSupersedesDecision is returned by Invoke when the thread is
// suspended awaiting a decision; the caller must use Resume instead.
var ErrInterruptSupersedesDecision = errors.New("thread is suspended awaiting a decision; call Resume")

// EngineError represents a configuration or execution error from Engine
// operations.
type EngineError struct {
	Message string
	Code    string
}

func (e *EngineError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}

// NodeError wraps a failure raised by a node's business logic.
//
// Node failures are never retried automatically and never checkpointed: the
// previous checkpoint remains the recovery point, so a retried Invoke or
// Resume re-runs the failed node from its last successful predecessor's
// output.
type NodeError struct {
	// NodeID identifies which node failed.
	NodeID string

	// Code is a machine-readable error code ("NODE_FAILED", "NODE_TIMEOUT",
	// "SUSPEND_IN_PARALLEL").
	Code string

	// Cause is the underlying error returned by the node, if any.
	Cause error
}

func (e *NodeError) Error() string {
	msg := "node " + e.NodeID + " failed"
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *NodeError) Unwrap() error {
	return e.Cause
}

// StoreError wraps a checkpoint backend failure.
//
// A store failure is fatal for the current Invoke/Resume call. The engine
// never falls back to a different backend mid-thread-lifetime; doing so would
// split the thread's history across stores.
type StoreError struct {
	// Op is the store operation that failed ("get", "put", "delete").
	Op string

	// ThreadID is the thread whose checkpoint was being accessed.
	ThreadID string

	// Cause is the backend error.
	Cause error
}

func (e *StoreError) Error() string {
	return "checkpoint " + e.Op + " failed for thread " + e.ThreadID + ": " + e.Cause.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}
