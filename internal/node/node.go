// Package node implements one scheduler instance: the enqueue -> rank ->
// predicate -> dequeue cycle run in isolation from every other node in the
// hierarchy.
//
// A node runs two long-lived goroutines, matching the specification's
// concurrency model: a main loop that accepts Enqueue/Shutdown messages and
// a predicate worker that runs eval_predicate whenever one is scheduled.
// Both share the node's calendar store and register file under a single
// mutex, held across any store mutation and rank-register read.
package node

import (
	"context"
	"strconv"
	"sync"

	"github.com/klagrassa/prog-tm-bmv2/internal/action"
	"github.com/klagrassa/prog-tm-bmv2/internal/calendar"
	"github.com/klagrassa/prog-tm-bmv2/internal/descriptor"
	"github.com/klagrassa/prog-tm-bmv2/internal/log"
	"github.com/klagrassa/prog-tm-bmv2/internal/metrics"
	"github.com/klagrassa/prog-tm-bmv2/internal/rank"
	"github.com/klagrassa/prog-tm-bmv2/internal/registers"
	"github.com/klagrassa/prog-tm-bmv2/internal/task"
)

// MsgKind distinguishes the three message shapes a node's inbox carries.
// There is deliberately no Dequeue variant: a Dequeue task is never routed
// to a node's inbox from the outside. It is only ever self-issued by
// eval_predicate calling dequeue synchronously, and its output — a Dequeue
// task addressed to the traffic manager — goes straight to the TM's task
// queue, never back through a node's own inbox.
type MsgKind int

const (
	MsgEnqueue MsgKind = iota
	MsgEvalPredicate
	MsgShutdown
)

// Message is what a node's inbox carries.
type Message struct {
	Kind MsgKind
	Task task.Task
}

// Router is the non-owning handle a node uses to forward work it does not
// keep for itself: an eligible entry that has moved to its parent's
// calendar, or a Dequeue task bound for the traffic manager. A node never
// holds a pointer to its parent or to the traffic manager directly; the
// hierarchy that owns all nodes implements Router and resolves ids to
// inboxes/queues on the node's behalf.
type Router interface {
	// Forward delivers m to the inbox of the node identified by nodeID.
	Forward(nodeID int, m Message)
	// PushDequeue delivers t to the traffic manager's task queue.
	PushDequeue(t task.Task)
}

// DebugSink receives a copy of every descriptor a node sees on the way in
// and on the way out, for optional CSV dumping. A nil sink disables
// dumping.
type DebugSink interface {
	LogIn(d *descriptor.Descriptor)
	LogOut(d *descriptor.Descriptor)
}

// Node is one scheduler instance.
type Node struct {
	ID            int
	SchedulerType string
	IsRoot        bool
	EgressPort    uint32
	ParentID      int // -1 if root

	actions *action.Table
	regs    *registers.File
	store   *calendar.Store
	router  Router
	debug   DebugSink

	mu        sync.Mutex
	predRank  rank.Rank
	predSet   bool

	inbox     chan Message
	evalSig   chan struct{}
	stopOnce  sync.Once
	stopCh    chan struct{}
}

// Config holds the construction-time parameters of a node.
type Config struct {
	ID              int
	SchedulerType   string
	IsRoot          bool
	EgressPort      uint32
	ParentID        int
	Actions         *action.Table
	SchedulerParams map[int][]int64
	Debug           DebugSink
}

// New constructs a node. The node is not started until Run and
// RunPredicateWorker are launched by the hierarchy that owns it.
func New(cfg Config) *Node {
	return &Node{
		ID:            cfg.ID,
		SchedulerType: cfg.SchedulerType,
		IsRoot:        cfg.IsRoot,
		EgressPort:    cfg.EgressPort,
		ParentID:      cfg.ParentID,
		actions:       cfg.Actions,
		regs:          registers.New(cfg.SchedulerParams),
		store:         calendar.New(),
		debug:         cfg.Debug,
		predRank:      rank.Null,
		inbox:         make(chan Message, 256),
		evalSig:       make(chan struct{}, 1),
		stopCh:        make(chan struct{}),
	}
}

// SetRouter installs the node's non-owning handle to the rest of the
// hierarchy and the traffic manager. It must be called before Run.
func (n *Node) SetRouter(r Router) {
	n.router = r
}

// Send delivers m to the node's inbox. It is the only way anything outside
// the node reaches it: the hierarchy's entry point for a fresh enqueue, or
// a sibling forwarding an eligible entry to its parent.
func (n *Node) Send(m Message) {
	select {
	case n.inbox <- m:
	case <-n.stopCh:
	}
}

// Enqueue is the convenience wrapper the traffic manager calls to deliver a
// freshly created descriptor to this node (normally the hierarchy's entry
// node).
func (n *Node) Enqueue(t task.Task) {
	n.Send(Message{Kind: MsgEnqueue, Task: t})
}

// Shutdown stops both of the node's worker goroutines.
func (n *Node) Shutdown() {
	n.stopOnce.Do(func() { close(n.stopCh) })
}

// Run is the node's main loop: it accepts Enqueue and Shutdown messages.
func (n *Node) Run(ctx context.Context) {
	logger := log.FromCtx(ctx).New("node_id", n.ID, "scheduler", n.SchedulerType)
	logger.Info("node main loop starting")
	defer logger.Info("node main loop stopping")
	for {
		select {
		case <-ctx.Done():
			return
		case <-n.stopCh:
			return
		case m := <-n.inbox:
			switch m.Kind {
			case MsgShutdown:
				return
			case MsgEnqueue:
				spanCtx, span := log.StartSpan(ctx, "node.enqueue")
				n.handleEnqueue(spanCtx, m.Task)
				span.Finish()
			case MsgEvalPredicate:
				// Defensive: if an eval ever arrives on the main inbox
				// (e.g. a future caller mistakenly uses Send instead of
				// scheduleEval), run it inline rather than drop it.
				spanCtx, span := log.StartSpan(ctx, "node.eval_predicate")
				n.evalPredicate(spanCtx)
				span.Finish()
			}
		}
	}
}

// RunPredicateWorker is the node's predicate worker: it runs eval_predicate
// whenever a redundant-safe evaluation signal arrives.
func (n *Node) RunPredicateWorker(ctx context.Context) {
	logger := log.FromCtx(ctx).New("node_id", n.ID, "scheduler", n.SchedulerType)
	logger.Info("predicate worker starting")
	defer logger.Info("predicate worker stopping")
	for {
		select {
		case <-ctx.Done():
			return
		case <-n.stopCh:
			return
		case <-n.evalSig:
			spanCtx, span := log.StartSpan(ctx, "node.eval_predicate")
			n.evalPredicate(spanCtx)
			span.Finish()
		}
	}
}

// scheduleEval signals the predicate worker. Because evalSig is a
// buffered-by-one channel, redundant scheduling coalesces: if an
// evaluation is already pending, this is a no-op.
func (n *Node) scheduleEval() {
	select {
	case n.evalSig <- struct{}{}:
	default:
	}
}

func (n *Node) handleEnqueue(ctx context.Context, t task.Task) {
	d := t.Descriptor
	if n.debug != nil {
		n.debug.LogIn(d)
	}

	calc, ok := n.actions.Lookup(n.SchedulerType, action.HookCalculateRank)
	if !ok {
		n.fatalMissingAction(ctx, action.HookCalculateRank)
		return
	}

	n.mu.Lock()
	calc.Run(ctx, d, n)
	day, time := n.regs.GetRank()
	d.Rank = rank.New(day, time)
	reassignments := n.store.Insert(d)
	for _, r := range reassignments {
		if n.predSet && n.predRank.Equal(r.OldRank) {
			n.predRank = r.Descriptor.Rank
		}
	}
	depth := n.store.Len()
	n.mu.Unlock()

	metrics.NodeEnqueuedTotal.WithLabelValues(idLabel(n.ID), n.SchedulerType).Inc()
	metrics.NodeCalendarDepth.WithLabelValues(idLabel(n.ID)).Set(float64(depth))

	n.scheduleEval()
}

// evalPredicate runs the node's predicate state machine, per the
// specification's eval_predicate transition table.
func (n *Node) evalPredicate(ctx context.Context) {
	eval, ok := n.actions.Lookup(n.SchedulerType, action.HookEvaluatePredicate)
	if !ok {
		n.fatalMissingAction(ctx, action.HookEvaluatePredicate)
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	lowest, hasLowest := n.store.Begin()
	if !hasLowest {
		n.predRank = rank.Null
		n.predSet = false
		return
	}

	eval.Run(ctx, lowest, n)
	day, time := n.regs.GetPredicate()
	newPred := rank.New(day, time)
	metrics.PredicateEvaluationsTotal.WithLabelValues(idLabel(n.ID)).Inc()

	switch {
	case newPred.IsNull():
		n.predSet = false
		n.predRank = rank.Null
		return
	case n.predSet && n.predRank.Equal(newPred):
		// No-op: the same entry is still the eligible one.
		return
	default:
		if n.predSet && !n.IsRoot {
			// The previously claimed entry has flowed to the parent; see
			// forwardToParent for the resolved semantics of open
			// question #1.
			n.detachForParent(ctx, n.predRank)
		}
		n.predSet = true
		n.predRank = newPred
		if n.ready() {
			n.dequeueLocked(ctx, newPred)
		}
	}
}

// ready reports whether the node currently has both a non-empty store and a
// set predicate. Callers must hold n.mu.
func (n *Node) ready() bool {
	return n.store.Len() > 0 && n.predSet
}

// detachForParent removes the previously selected entry from this node's
// local store and forwards it to the parent as a fresh Enqueue task,
// resolving open question #1: the entry that "has flowed to the parent" is
// made to actually flow there. Callers must hold n.mu.
func (n *Node) detachForParent(ctx context.Context, r rank.Rank) {
	d, ok := n.store.Remove(r)
	if !ok {
		log.FromCtx(ctx).Warn("predicate target missing on detach", "node_id", n.ID, "rank", r)
		return
	}
	metrics.NodeCalendarDepth.WithLabelValues(idLabel(n.ID)).Set(float64(n.store.Len()))
	n.forwardToParent(d)
}

func (n *Node) forwardToParent(d *descriptor.Descriptor) {
	if n.router == nil || n.ParentID < 0 {
		return
	}
	n.router.Forward(n.ParentID, Message{
		Kind: MsgEnqueue,
		Task: task.Task{Kind: task.Enqueue, Descriptor: d, NodeID: n.ParentID},
	})
}

// dequeueLocked implements dequeue(rank). Callers must hold n.mu.
func (n *Node) dequeueLocked(ctx context.Context, r rank.Rank) {
	d, ok := n.store.Get(r)
	if !ok {
		// PredicateTargetMissing: the store is empty or the key is absent.
		// This is a programming error in the installed action logic. Log
		// and restore the predicate to unset.
		log.FromCtx(ctx).Error("predicate target missing on dequeue", "node_id", n.ID, "rank", r)
		n.predSet = false
		n.predRank = rank.Null
		return
	}

	dequeued, ok := n.actions.Lookup(n.SchedulerType, action.HookDequeued)
	if !ok {
		n.fatalMissingActionLocked(ctx, action.HookDequeued)
		return
	}

	if n.router != nil {
		n.router.PushDequeue(task.Task{Kind: task.Dequeue, Descriptor: d, NodeID: n.ID})
	}
	dequeued.Run(ctx, d, n)
	n.store.Remove(r)
	if n.debug != nil {
		n.debug.LogOut(d)
	}

	metrics.NodeDequeuedTotal.WithLabelValues(idLabel(n.ID), n.SchedulerType).Inc()
	metrics.NodeCalendarDepth.WithLabelValues(idLabel(n.ID)).Set(float64(n.store.Len()))

	if n.store.Len() == 0 {
		n.predSet = false
		n.predRank = rank.Null
		return
	}
	n.scheduleEvalLocked()
}

// scheduleEvalLocked schedules another predicate evaluation from within a
// locked section. It must not block, and must not call back into evalSig
// synchronously from the predicate worker's own goroutine in a way that
// could deadlock against a full, unconsumed channel; the buffered-by-one
// channel and non-blocking send make that safe.
func (n *Node) scheduleEvalLocked() {
	n.scheduleEval()
}

func (n *Node) fatalMissingAction(ctx context.Context, h action.Hook) {
	err := &action.MissingActionError{SchedulerType: n.SchedulerType, Hooks: []action.Hook{h}}
	log.FromCtx(ctx).Error("missing action, node main loop terminating", "node_id", n.ID, "err", err.Error())
	panic(err)
}

func (n *Node) fatalMissingActionLocked(ctx context.Context, h action.Hook) {
	n.fatalMissingAction(ctx, h)
}

func idLabel(id int) string {
	return strconv.Itoa(id)
}
