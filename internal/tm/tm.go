// Package tm implements the traffic manager: the entry point that splits
// each enqueue into (payload -> packet pool) and (descriptor -> root node),
// drains Dequeue tasks produced anywhere in the hierarchy into the egress
// buffers, and supervises hot-swap reconfiguration of the hierarchy.
package tm

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/klagrassa/prog-tm-bmv2/internal/descriptor"
	"github.com/klagrassa/prog-tm-bmv2/internal/egress"
	"github.com/klagrassa/prog-tm-bmv2/internal/hierarchy"
	"github.com/klagrassa/prog-tm-bmv2/internal/log"
	"github.com/klagrassa/prog-tm-bmv2/internal/metrics"
	"github.com/klagrassa/prog-tm-bmv2/internal/packet"
	"github.com/klagrassa/prog-tm-bmv2/internal/task"
)

// TrafficManager owns the packet pool and the hierarchy pointer, and runs
// the single dequeue worker that drains Dequeue tasks into the egress
// buffer.
type TrafficManager struct {
	mu             sync.Mutex
	readyCond      *sync.Cond
	readyToEnqueue bool

	active atomic.Pointer[hierarchy.Hierarchy]

	taskQueue chan task.Task
	pool      *pool
	egressBuf egress.Buffer

	stopCh   chan struct{}
	stopOnce sync.Once
}

// Options configures a TrafficManager.
type Options struct {
	PoolCapacity int
	NBWorkers    int
	TaskQueueLen int
}

// New constructs a TrafficManager with initial as its active hierarchy.
// initial must not have been started yet; New wires its task queue, and
// Start launches its node workers.
func New(initial *hierarchy.Hierarchy, egressBuf egress.Buffer, opts Options) *TrafficManager {
	taskQueueLen := opts.TaskQueueLen
	if taskQueueLen <= 0 {
		taskQueueLen = 4096
	}
	t := &TrafficManager{
		taskQueue:      make(chan task.Task, taskQueueLen),
		pool:           newPool(opts.PoolCapacity, opts.NBWorkers),
		egressBuf:      egressBuf,
		readyToEnqueue: true,
		stopCh:         make(chan struct{}),
	}
	t.readyCond = sync.NewCond(&t.mu)
	initial.SetTMQueue(t.taskQueue)
	t.active.Store(initial)
	return t
}

// Start launches the dequeue worker and the active hierarchy's node
// workers.
func (t *TrafficManager) Start(ctx context.Context) {
	go t.dequeueWorker(ctx)
	t.active.Load().Start(ctx)
}

// Stop signals the dequeue worker and the active hierarchy to exit.
func (t *TrafficManager) Stop() {
	t.stopOnce.Do(func() { close(t.stopCh) })
	t.active.Load().Stop()
}

// ActiveHierarchy returns the hierarchy currently selected for enqueue
// routing.
func (t *TrafficManager) ActiveHierarchy() *hierarchy.Hierarchy {
	return t.active.Load()
}

// Enqueue implements TM.enqueue(port, packet): it blocks while
// reconfiguration has closed the ready_to_enqueue gate, stores the payload
// in the packet pool, builds a descriptor, and delivers an Enqueue task to
// the entry node bound to port (falling back to the hierarchy's default
// entry node if no root is bound to that port).
func (t *TrafficManager) Enqueue(ctx context.Context, port uint32, pkt *packet.Packet) {
	t.waitReady()

	h := t.active.Load()
	entry, ok := h.EntryForPort(port)
	if !ok {
		entry = h.Entry()
	}

	handle := descriptor.NewHandle()
	t.pool.Push(port, handle, pkt.Payload)

	d := descriptor.FromPacket(pkt, handle, port)
	entry.Enqueue(task.Task{Kind: task.Enqueue, Descriptor: d, NodeID: entry.ID})

	log.FromCtx(ctx).Debug("enqueued", "port", port, "packet_id", pkt.ID)
}

func (t *TrafficManager) waitReady() {
	t.mu.Lock()
	for !t.readyToEnqueue {
		t.readyCond.Wait()
	}
	t.mu.Unlock()
}

// dequeueWorker is the TM's single long-lived dequeue worker: it waits on
// the TM task queue and, for each Dequeue task, pops the corresponding
// payload from the packet pool and pushes it to the egress buffer.
func (t *TrafficManager) dequeueWorker(ctx context.Context) {
	logger := log.FromCtx(ctx).New("worker", "tm_dequeue")
	logger.Info("dequeue worker starting")
	defer logger.Info("dequeue worker stopping")
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stopCh:
			return
		case tk := <-t.taskQueue:
			if tk.Kind != task.Dequeue {
				continue
			}
			t.handleDequeue(logger, tk)
		}
	}
}

func (t *TrafficManager) handleDequeue(logger log.Logger, tk task.Task) {
	d := tk.Descriptor
	payload, ok := t.pool.Pop(d.Fields.EgressPort, d.Handle)
	if !ok {
		logger.Error("dequeue task with no matching pool payload", "packet_id", d.PacketID, "port", d.Fields.EgressPort)
		return
	}
	t.egressBuf.PushFront(d.Fields.EgressPort, payload)
	metrics.EgressDeliveredTotal.WithLabelValues(portLabel(d.Fields.EgressPort)).Inc()
}

func portLabel(port uint32) string {
	return strconv.FormatUint(uint64(port), 10)
}
