package graph

import (
	"crypto/sha256"
	"encoding/hex"
)

// IdempotencyKey derives a stable key from thread and node identity for the
// external-idempotency-key side-effect pattern (see NodeContext.Interrupt).
//
// The same (threadID, nodeID) pair always yields the same key, so a node that
// re-executes after a resume or a crash presents the same key to the external
// system, which can then deduplicate the effect with its own transactional
// upsert:
//
//	key := graph.IdempotencyKey(nc.ThreadID, "place_order")
//	if err := broker.PlaceOrder(ctx, order, broker.WithIdempotencyKey(key)); err != nil {
//	    return graph.NodeResult{Err: err}
//	}
//
// Nodes that may legitimately perform the same effect more than once per
// thread should mix a state-derived discriminator into nodeID.
func IdempotencyKey(threadID, nodeID string) string {
	h := sha256.New()
	h.Write([]byte(threadID))
	h.Write([]byte{0})
	h.Write([]byte(nodeID))
	return "sha256:" + hex.EncodeToString(h.Sum(nil))
}
