package graph

import (
	"strings"
	"testing"
)

func TestIdempotencyKey(t *testing.T) {
	t.Run("stable for the same inputs", func(t *testing.T) {
		a := IdempotencyKey("thread-1", "execute")
		b := IdempotencyKey("thread-1", "execute")
		if a != b {
			t.Errorf("key not stable: %s != %s", a, b)
		}
	})

	t.Run("distinct per thread and node", func(t *testing.T) {
		base := IdempotencyKey("thread-1", "execute")
		if IdempotencyKey("thread-2", "execute") == base {
			t.Error("different threads produced the same key")
		}
		if IdempotencyKey("thread-1", "notify") == base {
			t.Error("different nodes produced the same key")
		}
	})

	t.Run("separator prevents concatenation collisions", func(t *testing.T) {
		if IdempotencyKey("ab", "c") == IdempotencyKey("a", "bc") {
			t.Error("ambiguous concatenation of thread and node IDs")
		}
	})

	t.Run("format", func(t *testing.T) {
		key := IdempotencyKey("thread-1", "execute")
		if !strings.HasPrefix(key, "sha256:") {
			t.Errorf("expected sha256: prefix, got %s", key)
		}
		if len(key) != len("sha256:")+64 {
			t.Errorf("unexpected key length: %d", len(key))
		}
	})
}
