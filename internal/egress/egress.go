// Package egress defines the out-of-scope collaborator the specification
// calls the egress buffer: a priority multi-queue indexed by egress port
// that the enclosing switch owns, not the scheduler. This package defines
// the interface the traffic manager pushes into, plus a small in-memory
// reference implementation used by the scheduler's own tests.
package egress

import "sync"

// Buffer receives payloads the traffic manager's dequeue worker has
// resolved from the packet pool. The scheduler never owns a Buffer; one is
// always passed in by the enclosing switch.
type Buffer interface {
	// PushFront delivers payload to the queue for the given egress port.
	PushFront(queueID uint32, payload []byte)
}

// MemoryBuffer is an in-memory reference Buffer. It preserves per-port
// delivery order, which is the only ordering the specification guarantees
// (invariant 4 in the testable-properties section).
type MemoryBuffer struct {
	mu     sync.Mutex
	queues map[uint32][][]byte
}

// NewMemoryBuffer returns an empty MemoryBuffer.
func NewMemoryBuffer() *MemoryBuffer {
	return &MemoryBuffer{queues: make(map[uint32][][]byte)}
}

// PushFront implements Buffer.
func (b *MemoryBuffer) PushFront(queueID uint32, payload []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queues[queueID] = append(b.queues[queueID], payload)
}

// Drain returns and clears every payload delivered to queueID so far, in
// delivery order.
func (b *MemoryBuffer) Drain(queueID uint32) [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.queues[queueID]
	delete(b.queues, queueID)
	return out
}

// Len reports how many payloads are currently queued for queueID.
func (b *MemoryBuffer) Len(queueID uint32) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queues[queueID])
}
