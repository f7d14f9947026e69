// Package emit provides pluggable observability emitters for workflow
// execution events.
package emit

// Event represents an observability event emitted during thread execution.
//
// The engine emits events for node starts and completions, interrupts,
// resumes, and checkpoint writes. An Emitter routes them to a backend:
// structured logs, OpenTelemetry spans, or an in-memory buffer for tests.
type Event struct {
	// ThreadID identifies the execution lineage that emitted this event.
	ThreadID string

	// Step is the engine step number (1-indexed). Zero for thread-level
	// events such as thread_started or thread_terminal.
	Step int

	// NodeID identifies which node the event concerns. Empty for
	// thread-level events.
	NodeID string

	// Msg names the event ("node_start", "node_completed", "interrupted",
	// "resumed", "checkpoint_saved", "thread_terminal").
	Msg string

	// Meta carries additional structured data. Common keys:
	//   - "duration_ms": node execution duration
	//   - "error": error details
	//   - "interrupt_kind": the kind of a pending decision
	//   - "pending_nodes": nodes queued at a checkpoint
	Meta map[string]any
}
