package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemStore is an in-memory implementation of Store.
//
// Checkpoints are held in a map keyed by thread ID. Designed for:
//   - Testing and development
//   - Single-process deployments where durability isn't required
//   - Short-lived threads
//
// Data is lost when the process terminates; for threads that must survive a
// restart use SQLiteStore, MySQLStore, or RedisStore.
//
// MemStore is safe for concurrent use.
type MemStore struct {
	mu          sync.RWMutex
	checkpoints map[string]Checkpoint
}

// NewMemStore creates a new in-memory checkpoint store.
func NewMemStore() *MemStore {
	return &MemStore{
		checkpoints: make(map[string]Checkpoint),
	}
}

// Get retrieves a thread's checkpoint.
//
// The returned checkpoint is a deep copy, so callers cannot corrupt the
// stored state through the shared map values.
func (m *MemStore) Get(_ context.Context, threadID string) (Checkpoint, error) {
	m.mu.RLock()
	cp, exists := m.checkpoints[threadID]
	m.mu.RUnlock()

	if !exists {
		return Checkpoint{}, ErrNotFound
	}
	return copyCheckpoint(cp)
}

// Put writes a thread's checkpoint, replacing any previous one.
func (m *MemStore) Put(_ context.Context, cp Checkpoint) error {
	copied, err := copyCheckpoint(cp)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.checkpoints[copied.ThreadID] = copied
	m.mu.Unlock()
	return nil
}

// Delete removes a thread's checkpoint. Unknown threads are a no-op.
func (m *MemStore) Delete(_ context.Context, threadID string) error {
	m.mu.Lock()
	delete(m.checkpoints, threadID)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored checkpoints. Useful in tests.
func (m *MemStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.checkpoints)
}

// copyCheckpoint deep-copies a checkpoint via JSON round-trip, the same
// normalization the durable backends apply. This keeps MemStore behavior
// indistinguishable from a reload: numbers come back as float64 either way.
func copyCheckpoint(cp Checkpoint) (Checkpoint, error) {
	data, err := json.Marshal(cp)
	if err != nil {
		return Checkpoint{}, fmt.Errorf("failed to marshal checkpoint: %w", err)
	}
	var copied Checkpoint
	if err := json.Unmarshal(data, &copied); err != nil {
		return Checkpoint{}, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	return copied, nil
}
