package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

// runStoreSuite exercises the Store contract against any backend. Each
// backend's test file calls it with a fresh store.
func runStoreSuite(t *testing.T, st Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("get unknown thread returns ErrNotFound", func(t *testing.T) {
		_, err := st.Get(ctx, "suite-unknown")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("put then get round trips", func(t *testing.T) {
		want := Checkpoint{
			ThreadID: "suite-roundtrip",
			State: map[string]any{
				"status": "reviewing",
				"score":  0.92,
				"nested": map[string]any{"key": "value"},
			},
			Step:         3,
			PendingNodes: []string{"approve"},
			UpdatedAt:    time.Now().UTC(),
		}
		if err := st.Put(ctx, want); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		got, err := st.Get(ctx, "suite-roundtrip")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.ThreadID != want.ThreadID || got.Step != want.Step {
			t.Errorf("identity fields lost: %+v", got)
		}
		if got.State["status"] != "reviewing" || got.State["score"] != 0.92 {
			t.Errorf("state lost: %v", got.State)
		}
		nested, ok := got.State["nested"].(map[string]any)
		if !ok || nested["key"] != "value" {
			t.Errorf("nested state lost: %v", got.State["nested"])
		}
		if len(got.PendingNodes) != 1 || got.PendingNodes[0] != "approve" {
			t.Errorf("pending nodes lost: %v", got.PendingNodes)
		}
		if got.Terminal() {
			t.Error("checkpoint with pending nodes reported terminal")
		}
		if got.UpdatedAt.IsZero() {
			t.Error("UpdatedAt lost")
		}
	})

	t.Run("interrupt record round trips", func(t *testing.T) {
		want := Checkpoint{
			ThreadID:     "suite-interrupt",
			State:        map[string]any{"prepared": true},
			Step:         2,
			PendingNodes: []string{"gate"},
			Interrupt: &InterruptRecord{
				Kind:    "approval",
				Payload: map[string]any{"question": "proceed?"},
			},
			UpdatedAt: time.Now().UTC(),
		}
		if err := st.Put(ctx, want); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		got, err := st.Get(ctx, "suite-interrupt")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.Interrupt == nil {
			t.Fatal("interrupt record lost")
		}
		if got.Interrupt.Kind != "approval" || got.Interrupt.Payload["question"] != "proceed?" {
			t.Errorf("interrupt content lost: %+v", got.Interrupt)
		}
	})

	t.Run("put replaces the previous checkpoint", func(t *testing.T) {
		first := Checkpoint{
			ThreadID:     "suite-replace",
			State:        map[string]any{"v": 1.0},
			Step:         1,
			PendingNodes: []string{"next"},
			Interrupt:    &InterruptRecord{Kind: "approval"},
			UpdatedAt:    time.Now().UTC(),
		}
		if err := st.Put(ctx, first); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		second := first
		second.State = map[string]any{"v": 2.0}
		second.Step = 2
		second.PendingNodes = nil
		second.Interrupt = nil
		if err := st.Put(ctx, second); err != nil {
			t.Fatalf("second Put failed: %v", err)
		}

		got, err := st.Get(ctx, "suite-replace")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.Step != 2 || got.State["v"] != 2.0 {
			t.Errorf("replacement incomplete: %+v", got)
		}
		if !got.Terminal() {
			t.Error("empty pending nodes should be terminal")
		}
		if got.Interrupt != nil {
			t.Error("cleared interrupt persisted")
		}
	})

	t.Run("parallel group checkpoint keeps join node", func(t *testing.T) {
		want := Checkpoint{
			ThreadID:     "suite-parallel",
			State:        map[string]any{},
			Step:         1,
			PendingNodes: []string{"alpha", "beta"},
			JoinNode:     "merge",
			UpdatedAt:    time.Now().UTC(),
		}
		if err := st.Put(ctx, want); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		got, err := st.Get(ctx, "suite-parallel")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if len(got.PendingNodes) != 2 || got.JoinNode != "merge" {
			t.Errorf("parallel frontier lost: %+v", got)
		}
	})

	t.Run("delete removes the checkpoint", func(t *testing.T) {
		cp := Checkpoint{
			ThreadID:     "suite-delete",
			State:        map[string]any{},
			Step:         1,
			PendingNodes: []string{"x"},
			UpdatedAt:    time.Now().UTC(),
		}
		if err := st.Put(ctx, cp); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if err := st.Delete(ctx, "suite-delete"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, err := st.Get(ctx, "suite-delete"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
	})

	t.Run("delete unknown thread is a no-op", func(t *testing.T) {
		if err := st.Delete(ctx, "suite-never-existed"); err != nil {
			t.Errorf("Delete of unknown thread failed: %v", err)
		}
	})
}
