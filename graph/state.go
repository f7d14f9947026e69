// Package graph provides the resumable workflow execution engine for Stateflow.
package graph

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// State is the shared execution state of a workflow thread.
//
// State is an append/merge-only mapping of named fields to values. Nodes never
// mutate the state they receive; they return a partial update (Delta) which the
// engine folds into the accumulated state with Merge. Values must be
// JSON-serializable because state is persisted verbatim in checkpoints.
//
// Merge is deterministic and idempotent: folding the same sequence of deltas
// twice produces the same state. This is what makes crash-safe resume possible,
// since a recovered thread may re-apply the delta of a node it already ran.
type State map[string]any

// Merge folds a partial update into the state and returns the result.
//
// The receiver is not modified. Keys present in delta overwrite keys in the
// previous state; keys absent from delta are carried forward unchanged. A nil
// delta returns a copy of the previous state.
func (s State) Merge(delta State) State {
	out := make(State, len(s)+len(delta))
	for k, v := range s {
		out[k] = v
	}
	for k, v := range delta {
		out[k] = v
	}
	return out
}

// Clone creates a deep copy of the state using a JSON round-trip.
//
// Each node invocation receives its own copy so parallel branches cannot
// observe each other's writes. The JSON round-trip also normalizes values to
// the types they will have after a checkpoint reload (numbers become float64),
// so a node behaves identically on first execution and on resume.
func (s State) Clone() (State, error) {
	if s == nil {
		return State{}, nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state: %w", err)
	}
	var copied State
	if err := json.Unmarshal(data, &copied); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	if copied == nil {
		copied = State{}
	}
	return copied, nil
}

// Bool reads a boolean field, returning false when the field is absent or has
// a different type. Intended for guard flags used by the state-flag
// idempotency pattern (see NodeContext.Interrupt).
func (s State) Bool(key string) bool {
	v, ok := s[key].(bool)
	return ok && v
}

// String reads a string field, returning "" when absent or mistyped.
func (s State) String(key string) string {
	v, _ := s[key].(string)
	return v
}

// Float reads a numeric field as float64, returning 0 when absent or mistyped.
// All numbers in a reloaded state are float64 by JSON convention.
func (s State) Float(key string) float64 {
	switch v := s[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}

// Keys returns the state's field names in sorted order.
func (s State) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NewThreadID generates an opaque thread identifier for a new execution
// lineage. Callers that already have a natural identity (a conversation id, an
// order id) should use that instead so retries land on the same thread.
func NewThreadID() string {
	return "thread-" + uuid.NewString()
}
