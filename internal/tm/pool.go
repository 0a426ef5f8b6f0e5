package tm

import (
	"sync"

	"github.com/klagrassa/prog-tm-bmv2/internal/descriptor"
	"github.com/klagrassa/prog-tm-bmv2/internal/metrics"
)

// DefaultPoolCapacity is the default per-port payload capacity of the
// packet pool.
const DefaultPoolCapacity = 1024

// DefaultNBWorkers is the default number of packet-pool worker shards.
const DefaultNBWorkers = 8

// pool is the bounded multi-queue mapping egress_port -> in-flight
// payloads, sharded by worker index (egress_port mod nbWorkers) per the
// specification's per-worker locking discipline.
//
// Payloads are looked up and removed by handle rather than by strict FIFO
// position: per the design notes, the pool owns the payload and hands back
// a copyable handle, and the dequeue worker looks the payload up by that
// handle at emission time. A pure FIFO pop would only be correct for a
// scheduler that never reorders relative to arrival, which is not true of
// PIFO-style scheduling in general.
type pool struct {
	capacity  int
	nbWorkers int
	shards    []*poolShard

	drainMu   sync.Mutex
	drainCond *sync.Cond
	total     int
}

type poolShard struct {
	mu    sync.Mutex
	ports map[uint32]*portQueue
}

type portQueue struct {
	sem   chan struct{} // capacity-bounded backpressure token bucket
	mu    sync.Mutex
	items map[descriptor.Handle][]byte
}

func newPool(capacity, nbWorkers int) *pool {
	if capacity <= 0 {
		capacity = DefaultPoolCapacity
	}
	if nbWorkers <= 0 {
		nbWorkers = DefaultNBWorkers
	}
	p := &pool{capacity: capacity, nbWorkers: nbWorkers}
	p.drainCond = sync.NewCond(&p.drainMu)
	p.shards = make([]*poolShard, nbWorkers)
	for i := range p.shards {
		p.shards[i] = &poolShard{ports: make(map[uint32]*portQueue)}
	}
	return p
}

func (p *pool) shardFor(port uint32) *poolShard {
	return p.shards[int(port)%p.nbWorkers]
}

func (p *pool) queueFor(port uint32) *portQueue {
	s := p.shardFor(port)
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.ports[port]
	if !ok {
		q = &portQueue{
			sem:   make(chan struct{}, p.capacity),
			items: make(map[descriptor.Handle][]byte),
		}
		s.ports[port] = q
	}
	return q
}

// Push stores payload under handle in the queue for port, blocking while
// the port's queue is at capacity.
func (p *pool) Push(port uint32, h descriptor.Handle, payload []byte) {
	q := p.queueFor(port)
	q.sem <- struct{}{}
	q.mu.Lock()
	q.items[h] = payload
	q.mu.Unlock()

	p.drainMu.Lock()
	p.total++
	p.drainMu.Unlock()

	metrics.PoolOccupancy.WithLabelValues(portLabel(port)).Add(1)
}

// Pop removes and returns the payload stored under handle for port, if
// present.
func (p *pool) Pop(port uint32, h descriptor.Handle) ([]byte, bool) {
	q := p.queueFor(port)
	q.mu.Lock()
	payload, ok := q.items[h]
	if ok {
		delete(q.items, h)
	}
	q.mu.Unlock()
	if !ok {
		return nil, false
	}
	select {
	case <-q.sem:
	default:
	}

	p.drainMu.Lock()
	p.total--
	empty := p.total == 0
	if empty {
		p.drainCond.Broadcast()
	}
	p.drainMu.Unlock()

	metrics.PoolOccupancy.WithLabelValues(portLabel(port)).Add(-1)
	return payload, true
}

// WaitEmpty blocks until every in-flight payload has been drained from the
// pool, across every port. The wait is unbounded by design: a stuck pool
// indicates an upstream bug, not a condition the scheduler should recover
// from by dropping packets.
func (p *pool) WaitEmpty() {
	p.drainMu.Lock()
	defer p.drainMu.Unlock()
	for p.total > 0 {
		p.drainCond.Wait()
	}
}

// Empty reports whether the pool currently holds no in-flight payloads.
func (p *pool) Empty() bool {
	p.drainMu.Lock()
	defer p.drainMu.Unlock()
	return p.total == 0
}
