package emit

// Emitter receives and processes observability events from thread execution.
//
// Implementations should be:
//   - Non-blocking: never slow down workflow execution
//   - Thread-safe: events arrive concurrently from parallel branches
//   - Resilient: a failing backend must not fail the workflow
//
// Emit must not panic; backend errors are handled internally.
type Emitter interface {
	Emit(event Event)
}
