// Package hierarchy builds and runs the tree of nodes described by a
// parsed configuration document. A Hierarchy is constructed whole and is
// immutable once installed: the node set, parent/child edges, and
// port bindings never change after Build returns.
package hierarchy

import (
	"context"

	"github.com/klagrassa/prog-tm-bmv2/internal/action"
	"github.com/klagrassa/prog-tm-bmv2/internal/debug"
	"github.com/klagrassa/prog-tm-bmv2/internal/node"
	"github.com/klagrassa/prog-tm-bmv2/internal/task"
)

// Hierarchy is an ordered set of nodes with parent/child edges, rooted at
// one or more nodes bound to egress ports. It implements node.Router so
// that nodes never hold a pointer to each other directly: forwarding is
// always by node id, resolved through the hierarchy that owns every node.
type Hierarchy struct {
	nodes   []*node.Node
	byID    map[int]*node.Node
	byPort  map[uint32]*node.Node
	entry   *node.Node
	tmQueue chan task.Task
}

// BuildOptions configures hierarchy construction.
type BuildOptions struct {
	Actions *action.Table
	// ParamsByNode supplies the scheduler_params seed for each node id,
	// loaded from the local startup configuration (the wire document
	// itself carries no scheduler parameters).
	ParamsByNode map[int]map[int][]int64
	// DebugDir, when non-empty, enables per-node CSV dumping under this
	// directory.
	DebugDir string
}

// Build constructs a Hierarchy from a parsed Spec. It fails fast — before
// any node starts running — if a referenced scheduler type is missing one
// of its three required actions (action.Table.Require).
func Build(spec *Spec, opts BuildOptions) (*Hierarchy, error) {
	h := &Hierarchy{
		byID:   make(map[int]*node.Node),
		byPort: make(map[uint32]*node.Node),
	}
	for i, ns := range spec.Nodes {
		if err := opts.Actions.Require(ns.SchedulerType); err != nil {
			return nil, err
		}
		var sink node.DebugSink
		if opts.DebugDir != "" {
			s, err := debug.NewCSVSink(opts.DebugDir, ns.ID)
			if err != nil {
				return nil, err
			}
			sink = s
		}
		// A node is root iff it has no parent (spec.md §3), independent of
		// whether it happens to bind an egress port; Parse already rejects
		// a document where a port-bound node also declares a parent.
		isRoot := ns.ParentID == nil
		parentID := -1
		if ns.ParentID != nil {
			parentID = *ns.ParentID
		}
		var port uint32
		if ns.Port != nil {
			port = *ns.Port
		}
		n := node.New(node.Config{
			ID:              ns.ID,
			SchedulerType:   ns.SchedulerType,
			IsRoot:          isRoot,
			EgressPort:      port,
			ParentID:        parentID,
			Actions:         opts.Actions,
			SchedulerParams: opts.ParamsByNode[ns.ID],
			Debug:           sink,
		})
		h.nodes = append(h.nodes, n)
		h.byID[ns.ID] = n
		if ns.Port != nil {
			h.byPort[port] = n
		}
		if i == 0 {
			h.entry = n
		}
	}
	for _, n := range h.nodes {
		n.SetRouter(h)
	}
	return h, nil
}

// SetTMQueue installs the traffic manager's task queue. It must be called
// before Start.
func (h *Hierarchy) SetTMQueue(q chan task.Task) {
	h.tmQueue = q
}

// Entry returns the first node declared in the configuration document, the
// default enqueue target when a port has no dedicated root.
func (h *Hierarchy) Entry() *node.Node {
	return h.entry
}

// EntryForPort returns the root node bound to port, if any.
func (h *Hierarchy) EntryForPort(port uint32) (*node.Node, bool) {
	n, ok := h.byPort[port]
	return n, ok
}

// Nodes returns every node in the hierarchy, in declaration order.
func (h *Hierarchy) Nodes() []*node.Node {
	return h.nodes
}

// Forward implements node.Router.
func (h *Hierarchy) Forward(nodeID int, m node.Message) {
	if n, ok := h.byID[nodeID]; ok {
		n.Send(m)
	}
}

// PushDequeue implements node.Router.
func (h *Hierarchy) PushDequeue(t task.Task) {
	h.tmQueue <- t
}

// Start launches every node's main loop and predicate worker. Workers exit
// when ctx is cancelled or Stop is called.
func (h *Hierarchy) Start(ctx context.Context) {
	for _, n := range h.nodes {
		go n.Run(ctx)
		go n.RunPredicateWorker(ctx)
	}
}

// Stop signals every node's workers to exit.
func (h *Hierarchy) Stop() {
	for _, n := range h.nodes {
		n.Shutdown()
	}
}
