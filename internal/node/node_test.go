package node_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/klagrassa/prog-tm-bmv2/internal/action"
	"github.com/klagrassa/prog-tm-bmv2/internal/descriptor"
	"github.com/klagrassa/prog-tm-bmv2/internal/node"
	"github.com/klagrassa/prog-tm-bmv2/internal/task"
)

const testScheduler = "TEST_FIFO"

// fakeRouter records whatever a node under test forwards or dequeues,
// standing in for the hierarchy.Hierarchy the real Router implementation
// lives on.
type fakeRouter struct {
	forwarded chan node.Message
	dequeued  chan task.Task
}

func newFakeRouter() *fakeRouter {
	return &fakeRouter{
		forwarded: make(chan node.Message, 16),
		dequeued:  make(chan task.Task, 16),
	}
}

func (r *fakeRouter) Forward(nodeID int, m node.Message) { r.forwarded <- m }
func (r *fakeRouter) PushDequeue(t task.Task)             { r.dequeued <- t }

func fifoTable() *action.Table {
	t := action.NewTable()
	t.Register(testScheduler, action.HookCalculateRank, action.Func(
		func(_ context.Context, d *descriptor.Descriptor, api action.API) {
			api.SetRank(1, int64(d.PacketID))
		},
	))
	t.Register(testScheduler, action.HookEvaluatePredicate, action.Func(
		func(_ context.Context, d *descriptor.Descriptor, api action.API) {
			api.SetPredicate(d.Rank.Day, d.Rank.Time)
		},
	))
	t.Register(testScheduler, action.HookDequeued, action.Func(
		func(context.Context, *descriptor.Descriptor, action.API) {},
	))
	return t
}

func newTestNode(t *testing.T, router *fakeRouter) *node.Node {
	n := node.New(node.Config{
		ID:            0,
		SchedulerType: testScheduler,
		IsRoot:        true,
		EgressPort:    0,
		ParentID:      -1,
		Actions:       fifoTable(),
	})
	n.SetRouter(router)
	return n
}

// TestEnqueueEmptyNodeProducesOneDequeue is the "boundary behaviour":
// enqueueing on an empty node yields exactly one predicate evaluation and,
// since the predicate is non-null, exactly one Dequeue task.
func TestEnqueueEmptyNodeProducesOneDequeue(t *testing.T) {
	defer goleak.VerifyNone(t)

	router := newFakeRouter()
	n := newTestNode(t, router)
	ctx, cancel := context.WithCancel(context.Background())
	go n.Run(ctx)
	go n.RunPredicateWorker(ctx)

	d := &descriptor.Descriptor{PacketID: 10}
	n.Enqueue(task.Task{Kind: task.Enqueue, Descriptor: d, NodeID: n.ID})

	select {
	case tk := <-router.dequeued:
		assert.Equal(t, uint32(10), tk.Descriptor.PacketID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for dequeue task")
	}

	select {
	case <-router.dequeued:
		t.Fatal("expected exactly one dequeue task")
	case <-time.After(50 * time.Millisecond):
	}

	n.Shutdown()
	cancel()
}

// TestFIFOOrdering is scenario E1's single-node shape: two packets enqueued
// in order must dequeue in the same order.
func TestFIFOOrdering(t *testing.T) {
	defer goleak.VerifyNone(t)

	router := newFakeRouter()
	n := newTestNode(t, router)
	ctx, cancel := context.WithCancel(context.Background())
	go n.Run(ctx)
	go n.RunPredicateWorker(ctx)

	n.Enqueue(task.Task{Kind: task.Enqueue, Descriptor: &descriptor.Descriptor{PacketID: 10}, NodeID: n.ID})
	n.Enqueue(task.Task{Kind: task.Enqueue, Descriptor: &descriptor.Descriptor{PacketID: 11}, NodeID: n.ID})

	var seen []uint32
	for i := 0; i < 2; i++ {
		select {
		case tk := <-router.dequeued:
			seen = append(seen, tk.Descriptor.PacketID)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for dequeue task")
		}
	}
	assert.Equal(t, []uint32{10, 11}, seen)

	n.Shutdown()
	cancel()
}

func TestMissingActionPanicsNodeLoop(t *testing.T) {
	router := newFakeRouter()
	n := node.New(node.Config{
		ID:            0,
		SchedulerType: "INCOMPLETE",
		IsRoot:        true,
		ParentID:      -1,
		Actions:       action.NewTable(),
	})
	n.SetRouter(router)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan any, 1)
	go func() {
		defer func() { done <- recover() }()
		n.Run(ctx)
	}()

	n.Enqueue(task.Task{Kind: task.Enqueue, Descriptor: &descriptor.Descriptor{PacketID: 1}, NodeID: n.ID})

	select {
	case r := <-done:
		require.NotNil(t, r)
		_, ok := r.(*action.MissingActionError)
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("expected node main loop to panic on missing action")
	}
}
