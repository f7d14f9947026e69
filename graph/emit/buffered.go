package emit

import "sync"

// BufferedEmitter implements Emitter by storing events in memory, organized
// by thread for later inspection.
//
// Use cases:
//   - Tests asserting on the exact event sequence of a run
//   - Debugging suspend/resume flows after the fact
//   - Feeding a monitoring dashboard in development
//
// All events are held in memory; long-running production deployments should
// prefer LogEmitter or OTelEmitter, or call Clear periodically.
type BufferedEmitter struct {
	mu     sync.RWMutex
	events map[string][]Event // threadID -> events in arrival order
}

// HistoryFilter selects a subset of a thread's history. All fields are
// optional and combined with AND.
type HistoryFilter struct {
	// NodeID restricts to events from one node.
	NodeID string

	// Msg restricts to one event type (e.g. "interrupted").
	Msg string

	// MinStep / MaxStep bound the step range; nil means unbounded.
	MinStep *int
	MaxStep *int
}

// NewBufferedEmitter creates an empty buffered emitter.
func NewBufferedEmitter() *BufferedEmitter {
	return &BufferedEmitter{events: make(map[string][]Event)}
}

// Emit appends the event to its thread's history.
func (b *BufferedEmitter) Emit(event Event) {
	b.mu.Lock()
	b.events[event.ThreadID] = append(b.events[event.ThreadID], event)
	b.mu.Unlock()
}

// History returns a copy of all events recorded for a thread, in arrival
// order.
func (b *BufferedEmitter) History(threadID string) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	history := b.events[threadID]
	out := make([]Event, len(history))
	copy(out, history)
	return out
}

// HistoryWithFilter returns the thread's events matching the filter.
func (b *BufferedEmitter) HistoryWithFilter(threadID string, filter HistoryFilter) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []Event
	for _, ev := range b.events[threadID] {
		if filter.NodeID != "" && ev.NodeID != filter.NodeID {
			continue
		}
		if filter.Msg != "" && ev.Msg != filter.Msg {
			continue
		}
		if filter.MinStep != nil && ev.Step < *filter.MinStep {
			continue
		}
		if filter.MaxStep != nil && ev.Step > *filter.MaxStep {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// Clear drops the recorded history for one thread.
func (b *BufferedEmitter) Clear(threadID string) {
	b.mu.Lock()
	delete(b.events, threadID)
	b.mu.Unlock()
}

// ClearAll drops all recorded history.
func (b *BufferedEmitter) ClearAll() {
	b.mu.Lock()
	b.events = make(map[string][]Event)
	b.mu.Unlock()
}
