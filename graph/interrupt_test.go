package graph

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/advisorhq/stateflow/graph/store"
)

// approvalDef builds a three-node workflow with a suspending gate in the
// middle. The gate demonstrates the state-flag idempotency pattern: the
// notification side effect runs exactly once across suspend and resume.
func approvalDef(t *testing.T, notified *atomic.Int32) *Definition {
	t.Helper()
	def := NewDefinition("approval")

	prepare := func(_ context.Context, _ *NodeContext, _ State) NodeResult {
		return NodeResult{
			Delta: State{"prepared": true},
			Route: Goto("gate"),
		}
	}
	gate := func(_ context.Context, nc *NodeContext, state State) NodeResult {
		delta := State{}
		if !state.Bool("reviewer_notified") {
			notified.Add(1) // the guarded side effect
			delta["reviewer_notified"] = true
		}

		decision, suspend := nc.Interrupt("approval", State{"question": "proceed?"})
		if suspend != nil {
			return NodeResult{Delta: delta, Suspend: suspend}
		}

		approved, _ := decision["approved"].(bool)
		delta["approved"] = approved
		if !approved {
			return NodeResult{Delta: delta, Route: Stop()}
		}
		return NodeResult{Delta: delta, Route: Goto("finish")}
	}
	finish := func(_ context.Context, _ *NodeContext, _ State) NodeResult {
		return NodeResult{Delta: State{"finished": true}, Route: Stop()}
	}

	if err := def.AddNode("prepare", NodeFunc(prepare)); err != nil {
		t.Fatal(err)
	}
	if err := def.AddNode("gate", NodeFunc(gate)); err != nil {
		t.Fatal(err)
	}
	if err := def.AddNode("finish", NodeFunc(finish)); err != nil {
		t.Fatal(err)
	}
	if err := def.StartAt("prepare"); err != nil {
		t.Fatal(err)
	}
	return def
}

func TestEngine_SuspendResume(t *testing.T) {
	var notified atomic.Int32
	st := store.NewMemStore()
	engine := mustCompile(t, approvalDef(t, &notified), st)
	ctx := context.Background()

	result, err := engine.Invoke(ctx, "thread-approve", State{"order": "A-1"})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if result.Terminal {
		t.Fatal("expected suspension, thread terminated")
	}
	if result.PendingNode != "gate" {
		t.Errorf("expected pending node gate, got %s", result.PendingNode)
	}
	if result.Interrupt == nil || result.Interrupt.Kind != "approval" {
		t.Fatalf("expected approval interrupt, got %+v", result.Interrupt)
	}
	if result.Interrupt.Payload.String("question") != "proceed?" {
		t.Errorf("interrupt payload lost: %v", result.Interrupt.Payload)
	}

	// The suspension is durable: the checkpoint records the interrupt.
	cp, err := st.Get(ctx, "thread-approve")
	if err != nil {
		t.Fatalf("checkpoint missing: %v", err)
	}
	if cp.Interrupt == nil || cp.Interrupt.Kind != "approval" {
		t.Fatalf("interrupt not persisted: %+v", cp.Interrupt)
	}

	result, err = engine.Resume(ctx, "thread-approve", Decision{"approved": true})
	if err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if !result.Terminal {
		t.Fatal("expected terminal result after resume")
	}
	if !result.State.Bool("approved") || !result.State.Bool("finished") {
		t.Errorf("resume did not complete the workflow: %v", result.State)
	}
	if !result.State.Bool("prepared") {
		t.Error("pre-suspension state lost across resume")
	}
	if got := notified.Load(); got != 1 {
		t.Errorf("guarded side effect ran %d times, want 1", got)
	}
}

func TestEngine_SuspendDelta_VisibleOnResume(t *testing.T) {
	// The delta returned alongside a Suspend must be checkpointed, otherwise
	// the state-flag guard cannot work.
	var notified atomic.Int32
	st := store.NewMemStore()
	engine := mustCompile(t, approvalDef(t, &notified), st)
	ctx := context.Background()

	if _, err := engine.Invoke(ctx, "thread-delta", nil); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	cp, err := st.Get(ctx, "thread-delta")
	if err != nil {
		t.Fatalf("checkpoint missing: %v", err)
	}
	if !State(cp.State).Bool("reviewer_notified") {
		t.Error("suspend-step delta not persisted in checkpoint")
	}
}

func TestEngine_Resume_Rejection(t *testing.T) {
	var notified atomic.Int32
	engine := mustCompile(t, approvalDef(t, &notified), store.NewMemStore())
	ctx := context.Background()

	if _, err := engine.Invoke(ctx, "thread-reject", nil); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	result, err := engine.Resume(ctx, "thread-reject", Decision{"approved": false})
	if err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if !result.Terminal {
		t.Fatal("expected terminal result")
	}
	if result.State.Bool("finished") {
		t.Error("rejected thread reached the finish node")
	}
}

func TestEngine_Resume_Errors(t *testing.T) {
	var notified atomic.Int32
	engine := mustCompile(t, approvalDef(t, &notified), store.NewMemStore())
	ctx := context.Background()

	t.Run("unknown thread", func(t *testing.T) {
		_, err := engine.Resume(ctx, "thread-unknown", Decision{"approved": true})
		if !errors.Is(err, ErrNoPendingInterrupt) {
			t.Errorf("expected ErrNoPendingInterrupt, got %v", err)
		}
	})

	t.Run("double resume", func(t *testing.T) {
		if _, err := engine.Invoke(ctx, "thread-double", nil); err != nil {
			t.Fatalf("Invoke failed: %v", err)
		}
		if _, err := engine.Resume(ctx, "thread-double", Decision{"approved": true}); err != nil {
			t.Fatalf("first Resume failed: %v", err)
		}
		_, err := engine.Resume(ctx, "thread-double", Decision{"approved": true})
		if !errors.Is(err, ErrNoPendingInterrupt) {
			t.Errorf("second resume: expected ErrNoPendingInterrupt, got %v", err)
		}
	})

	t.Run("nil decision for pending interrupt", func(t *testing.T) {
		if _, err := engine.Invoke(ctx, "thread-nildec", nil); err != nil {
			t.Fatalf("Invoke failed: %v", err)
		}
		_, err := engine.Resume(ctx, "thread-nildec", nil)
		var ee *EngineError
		if !errors.As(err, &ee) || ee.Code != "DECISION_REQUIRED" {
			t.Errorf("expected DECISION_REQUIRED, got %v", err)
		}
	})

	t.Run("invoke while suspended", func(t *testing.T) {
		if _, err := engine.Invoke(ctx, "thread-superseded", nil); err != nil {
			t.Fatalf("Invoke failed: %v", err)
		}
		_, err := engine.Invoke(ctx, "thread-superseded", nil)
		if !errors.Is(err, ErrInterruptSupersedesDecision) {
			t.Errorf("expected ErrInterruptSupersedesDecision, got %v", err)
		}
	})

	t.Run("empty thread ID", func(t *testing.T) {
		_, err := engine.Resume(ctx, "", Decision{"approved": true})
		var ee *EngineError
		if !errors.As(err, &ee) || ee.Code != "INVALID_THREAD" {
			t.Errorf("expected INVALID_THREAD, got %v", err)
		}
	})
}

func TestEngine_Resume_CrashParkedThread(t *testing.T) {
	// A thread parked between nodes (crash recovery, not an interrupt) can be
	// continued with a nil-decision Resume, but rejects a decision.
	st := store.NewMemStore()
	ctx := context.Background()

	def := NewDefinition("parked")
	if err := def.AddNode("first", passthrough("first_done", Goto("second"))); err != nil {
		t.Fatal(err)
	}
	fail := true
	if err := def.AddNode("second", NodeFunc(func(_ context.Context, _ *NodeContext, _ State) NodeResult {
		if fail {
			return NodeResult{Err: errors.New("crash")}
		}
		return NodeResult{Delta: State{"second_done": true}, Route: Stop()}
	})); err != nil {
		t.Fatal(err)
	}
	if err := def.StartAt("first"); err != nil {
		t.Fatal(err)
	}

	engine := mustCompile(t, def, st)
	if _, err := engine.Invoke(ctx, "thread-parked", nil); err == nil {
		t.Fatal("expected simulated crash")
	}
	fail = false

	if _, err := engine.Resume(ctx, "thread-parked", Decision{"approved": true}); !errors.Is(err, ErrNoPendingInterrupt) {
		t.Errorf("decision without pending interrupt: expected ErrNoPendingInterrupt, got %v", err)
	}

	result, err := engine.Resume(ctx, "thread-parked", nil)
	if err != nil {
		t.Fatalf("nil-decision Resume failed: %v", err)
	}
	if !result.Terminal || !result.State.Bool("second_done") {
		t.Errorf("parked thread did not complete: %+v", result)
	}
}

func TestNodeContext_Interrupt(t *testing.T) {
	t.Run("first execution suspends", func(t *testing.T) {
		nc := &NodeContext{ThreadID: "t", Step: 1}
		decision, suspend := nc.Interrupt("clarify", State{"q": "which account?"})
		if decision != nil {
			t.Error("expected nil decision on first execution")
		}
		if suspend == nil || suspend.Kind != "clarify" {
			t.Fatalf("expected clarify suspend, got %+v", suspend)
		}
		if nc.Resuming() {
			t.Error("Resuming should be false without a decision")
		}
	})

	t.Run("re-entry returns the decision", func(t *testing.T) {
		nc := &NodeContext{ThreadID: "t", Step: 1, decision: Decision{"answer": "checking"}}
		decision, suspend := nc.Interrupt("clarify", nil)
		if suspend != nil {
			t.Error("expected no suspend on re-entry")
		}
		if decision["answer"] != "checking" {
			t.Errorf("decision not delivered: %v", decision)
		}
		if !nc.Resuming() {
			t.Error("Resuming should be true with a decision")
		}
	})
}
