package emit

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"
)

func TestLogEmitter_TextMode(t *testing.T) {
	var buf bytes.Buffer
	emitter := NewLogEmitter(&buf, false)

	emitter.Emit(Event{
		ThreadID: "thread-1",
		Step:     3,
		NodeID:   "risk_check",
		Msg:      "node_start",
	})

	line := buf.String()
	for _, want := range []string{"[node_start]", "thread=thread-1", "step=3", "node=risk_check"} {
		if !strings.Contains(line, want) {
			t.Errorf("output missing %q: %s", want, line)
		}
	}
}

func TestLogEmitter_JSONMode(t *testing.T) {
	var buf bytes.Buffer
	emitter := NewLogEmitter(&buf, true)

	emitter.Emit(Event{
		ThreadID: "thread-1",
		Step:     2,
		NodeID:   "gate",
		Msg:      "interrupted",
		Meta:     map[string]any{"interrupt_kind": "approval"},
	})

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded["thread"] != "thread-1" || decoded["msg"] != "interrupted" {
		t.Errorf("unexpected fields: %v", decoded)
	}
	meta, ok := decoded["meta"].(map[string]any)
	if !ok || meta["interrupt_kind"] != "approval" {
		t.Errorf("meta lost: %v", decoded["meta"])
	}
}

func TestLogEmitter_ConcurrentWrites(t *testing.T) {
	var buf bytes.Buffer
	emitter := NewLogEmitter(&buf, false)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			emitter.Emit(Event{ThreadID: "t", Msg: "node_start"})
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 50 {
		t.Errorf("expected 50 lines, got %d", len(lines))
	}
}

func TestBufferedEmitter(t *testing.T) {
	emitter := NewBufferedEmitter()

	emitter.Emit(Event{ThreadID: "a", Step: 1, NodeID: "n1", Msg: "node_start"})
	emitter.Emit(Event{ThreadID: "a", Step: 1, NodeID: "n1", Msg: "node_completed"})
	emitter.Emit(Event{ThreadID: "a", Step: 2, NodeID: "n2", Msg: "interrupted"})
	emitter.Emit(Event{ThreadID: "b", Step: 1, NodeID: "n1", Msg: "node_start"})

	t.Run("history is per thread and ordered", func(t *testing.T) {
		history := emitter.History("a")
		if len(history) != 3 {
			t.Fatalf("expected 3 events for thread a, got %d", len(history))
		}
		if history[0].Msg != "node_start" || history[2].Msg != "interrupted" {
			t.Errorf("order lost: %+v", history)
		}
		if len(emitter.History("b")) != 1 {
			t.Error("thread b history wrong")
		}
		if len(emitter.History("missing")) != 0 {
			t.Error("unknown thread should have empty history")
		}
	})

	t.Run("history is a copy", func(t *testing.T) {
		history := emitter.History("a")
		history[0].Msg = "mutated"
		if emitter.History("a")[0].Msg != "node_start" {
			t.Error("History exposes internal storage")
		}
	})

	t.Run("filters combine with AND", func(t *testing.T) {
		byNode := emitter.HistoryWithFilter("a", HistoryFilter{NodeID: "n1"})
		if len(byNode) != 2 {
			t.Errorf("NodeID filter: expected 2, got %d", len(byNode))
		}

		byMsg := emitter.HistoryWithFilter("a", HistoryFilter{Msg: "interrupted"})
		if len(byMsg) != 1 || byMsg[0].Step != 2 {
			t.Errorf("Msg filter: %+v", byMsg)
		}

		minStep := 2
		byStep := emitter.HistoryWithFilter("a", HistoryFilter{MinStep: &minStep})
		if len(byStep) != 1 {
			t.Errorf("MinStep filter: expected 1, got %d", len(byStep))
		}

		maxStep := 1
		both := emitter.HistoryWithFilter("a", HistoryFilter{NodeID: "n1", MaxStep: &maxStep})
		if len(both) != 2 {
			t.Errorf("combined filter: expected 2, got %d", len(both))
		}
	})

	t.Run("clear", func(t *testing.T) {
		emitter.Clear("a")
		if len(emitter.History("a")) != 0 {
			t.Error("Clear left events behind")
		}
		if len(emitter.History("b")) != 1 {
			t.Error("Clear removed another thread's events")
		}

		emitter.ClearAll()
		if len(emitter.History("b")) != 0 {
			t.Error("ClearAll left events behind")
		}
	})
}

func TestNullEmitter(t *testing.T) {
	emitter := NewNullEmitter()
	// Must not panic and has nothing observable.
	emitter.Emit(Event{ThreadID: "t", Msg: "node_start"})
}
