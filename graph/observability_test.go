package graph

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/advisorhq/stateflow/graph/emit"
	"github.com/advisorhq/stateflow/graph/store"
)

func TestEngine_EventSequence(t *testing.T) {
	buffered := emit.NewBufferedEmitter()

	def := NewDefinition("events")
	if err := def.AddNode("gate", NodeFunc(func(_ context.Context, nc *NodeContext, _ State) NodeResult {
		if _, suspend := nc.Interrupt("approval", nil); suspend != nil {
			return NodeResult{Suspend: suspend}
		}
		return NodeResult{Route: Stop()}
	})); err != nil {
		t.Fatal(err)
	}
	if err := def.StartAt("gate"); err != nil {
		t.Fatal(err)
	}

	engine := mustCompile(t, def, store.NewMemStore(), WithEmitter(buffered))
	ctx := context.Background()

	if _, err := engine.Invoke(ctx, "thread-ev", nil); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if _, err := engine.Resume(ctx, "thread-ev", Decision{"ok": true}); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}

	wantOrder := []string{
		"thread_started",
		"node_start",
		"checkpoint_saved",
		"interrupted",
		"resumed",
		"node_start",
		"node_completed",
		"checkpoint_saved",
		"thread_terminal",
	}
	history := buffered.History("thread-ev")
	if len(history) != len(wantOrder) {
		for _, ev := range history {
			t.Logf("event: step=%d node=%s msg=%s", ev.Step, ev.NodeID, ev.Msg)
		}
		t.Fatalf("expected %d events, got %d", len(wantOrder), len(history))
	}
	for i, want := range wantOrder {
		if history[i].Msg != want {
			t.Errorf("event[%d] = %s, want %s", i, history[i].Msg, want)
		}
	}

	interrupted := buffered.HistoryWithFilter("thread-ev", emit.HistoryFilter{Msg: "interrupted"})
	if len(interrupted) != 1 || interrupted[0].Meta["interrupt_kind"] != "approval" {
		t.Errorf("unexpected interrupted events: %+v", interrupted)
	}
}

func TestEngine_Metrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	def := NewDefinition("metrics")
	if err := def.AddNode("gate", NodeFunc(func(_ context.Context, nc *NodeContext, _ State) NodeResult {
		if _, suspend := nc.Interrupt("approval", nil); suspend != nil {
			return NodeResult{Suspend: suspend}
		}
		return NodeResult{Route: Stop()}
	})); err != nil {
		t.Fatal(err)
	}
	if err := def.StartAt("gate"); err != nil {
		t.Fatal(err)
	}

	engine := mustCompile(t, def, store.NewMemStore(), WithMetrics(metrics))
	ctx := context.Background()

	if _, err := engine.Invoke(ctx, "thread-m", nil); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if _, err := engine.Resume(ctx, "thread-m", Decision{"ok": true}); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}

	if got := testutil.ToFloat64(metrics.interrupts.WithLabelValues("approval")); got != 1 {
		t.Errorf("interrupts_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.resumes); got != 1 {
		t.Errorf("resumes_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.inflightNodes); got != 0 {
		t.Errorf("inflight_nodes = %v, want 0 after completion", got)
	}
}

func TestEngine_NilMetricsSafe(t *testing.T) {
	// A Metrics-less engine must not panic anywhere on the hot path.
	var m *Metrics
	m.nodeStarted()
	m.nodeFinished()
	m.interrupted("approval")
	m.resumed()
	m.checkpointFailed("put")
}
