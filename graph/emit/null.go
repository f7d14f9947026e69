package emit

// NullEmitter implements Emitter by discarding all events.
//
// Use it to disable event emission without changing engine wiring.
type NullEmitter struct{}

// NewNullEmitter creates an emitter that discards everything. Safe for
// concurrent use, zero overhead.
func NewNullEmitter() *NullEmitter {
	return &NullEmitter{}
}

// Emit discards the event.
func (n *NullEmitter) Emit(event Event) {}
