// Package store provides checkpoint persistence backends for Stateflow
// threads.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no checkpoint exists for the requested thread.
var ErrNotFound = errors.New("checkpoint not found")

// Checkpoint is a durable snapshot of a thread's execution state and resume
// point.
//
// Exactly one checkpoint exists per thread at any time; every Put replaces
// the previous one. A checkpoint with empty PendingNodes marks a terminal
// thread. It is kept (rather than deleted) so that a late Resume can be
// rejected as a caller error instead of silently starting over.
type Checkpoint struct {
	// ThreadID identifies the execution lineage this checkpoint belongs to.
	ThreadID string `json:"thread_id"`

	// State is the accumulated execution state after the last completed
	// node. Must be JSON-serializable.
	State map[string]any `json:"state"`

	// Step is the engine step number at checkpoint time, monotonically
	// increasing within a thread.
	Step int `json:"step"`

	// PendingNodes lists the node(s) to run next: a single element for
	// sequential execution, several for a parallel group about to start,
	// empty for a terminal thread.
	PendingNodes []string `json:"pending_nodes"`

	// JoinNode is the continuation node after a pending parallel group.
	// Empty unless len(PendingNodes) > 1.
	JoinNode string `json:"join_node,omitempty"`

	// Interrupt records the pending decision payload when the thread is
	// suspended. nil when the thread is simply between nodes (e.g. after a
	// crash) or terminal.
	Interrupt *InterruptRecord `json:"interrupt,omitempty"`

	// UpdatedAt is when this checkpoint was written.
	UpdatedAt time.Time `json:"updated_at"`
}

// InterruptRecord is the persisted form of a node's suspension request.
type InterruptRecord struct {
	Kind    string         `json:"kind"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Terminal reports whether this checkpoint marks a finished thread.
func (c Checkpoint) Terminal() bool {
	return len(c.PendingNodes) == 0
}

// Store persists thread checkpoints.
//
// The engine writes a checkpoint after every node completion or suspension;
// Put is always the last operation of a successful step, so a crash between
// Puts never leaves a thread ahead of its last durable checkpoint.
//
// Implementations must be safe for concurrent use by independent threads.
// Calls for the same thread are serialized by the engine's caller, not by the
// store.
type Store interface {
	// Get retrieves the checkpoint for a thread.
	// Returns ErrNotFound if the thread has never been checkpointed.
	Get(ctx context.Context, threadID string) (Checkpoint, error)

	// Put writes the checkpoint for a thread, replacing any previous one.
	Put(ctx context.Context, cp Checkpoint) error

	// Delete removes a thread's checkpoint. Deleting an unknown thread is
	// not an error. This is how a caller abandons a thread.
	Delete(ctx context.Context, threadID string) error
}
