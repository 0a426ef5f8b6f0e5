// Package schedulers supplies the reference action sets the scheduler
// ships with out of the box: FIFO, strict priority (SP), and a
// deficit-weighted variant (DRR). These are ordinary actions registered
// into an action.Table exactly the way an external P4 action-execution
// engine would register its own; nothing about the scheduler core depends
// on this package.
package schedulers

import (
	"context"

	"github.com/klagrassa/prog-tm-bmv2/internal/action"
	"github.com/klagrassa/prog-tm-bmv2/internal/descriptor"
)

// Register installs the FIFO, SP, and DRR action sets into t.
func Register(t *action.Table) {
	registerFIFO(t)
	registerSP(t)
	registerDRR(t)
}

// evaluateLowest is the evaluate_predicate action shared by every reference
// scheduler type here: claim whichever descriptor is currently lowest-ranked
// in the node's own calendar. All three reference scheduler types only
// differ in how calculate_rank orders entries.
func evaluateLowest(_ context.Context, d *descriptor.Descriptor, api action.API) {
	day, time := d.Rank.Day, d.Rank.Time
	api.SetPredicate(day, time)
}

func noopDequeued(context.Context, *descriptor.Descriptor, action.API) {}

// registerFIFO installs "FIFO": rank = (1, packet_id), per E1/E3/E5. Ties on
// equal rank are broken by the calendar store's own packet_id tie-break, so
// a scheduler that assigns a constant rank (E5) drains in ascending
// packet_id order.
func registerFIFO(t *action.Table) {
	t.Register("FIFO", action.HookCalculateRank, action.Func(
		func(_ context.Context, d *descriptor.Descriptor, api action.API) {
			api.SetRank(1, int64(d.PacketID))
		},
	))
	t.Register("FIFO", action.HookEvaluatePredicate, action.Func(evaluateLowest))
	t.Register("FIFO", action.HookDequeued, action.Func(noopDequeued))
}

// registerSP installs "SP": rank = (0, 8-priority), per E2. Higher priority
// numbers get a smaller time component and so rank first.
func registerSP(t *action.Table) {
	t.Register("SP", action.HookCalculateRank, action.Func(
		func(_ context.Context, d *descriptor.Descriptor, api action.API) {
			api.SetRank(0, 8-int64(d.Fields.Priority))
		},
	))
	t.Register("SP", action.HookEvaluatePredicate, action.Func(evaluateLowest))
	t.Register("SP", action.HookDequeued, action.Func(noopDequeued))
}

// registerDRR installs "DRR": a deficit-weighted variant of FIFO. Each node
// running DRR keeps a running deficit counter in general-purpose register
// 0, index 0, topped up by a quantum read from scheduler_params[0][0]
// (defaulting to 1 if unset) until it covers the packet's size, which is
// then subtracted. A packet's rank time component is a virtual-time counter
// (general-purpose register 0, index 1) that advances by one for every
// packet, so ranks on a node follow arrival order; packet size changes only
// the deficit counter, not the rank.
func registerDRR(t *action.Table) {
	t.Register("DRR", action.HookCalculateRank, action.Func(
		func(_ context.Context, d *descriptor.Descriptor, api action.API) {
			quantum := api.GetSchedulerParameter(0, 0)
			if api.GetSizeOfParameter(0) == 0 {
				quantum = 1
			}
			if quantum <= 0 {
				quantum = 1
			}

			deficit := api.ReadFromReg(0, 0)
			size := int64(d.Fields.PacketSize)
			if size <= 0 {
				size = 1
			}
			for deficit < size {
				deficit += quantum
			}
			deficit -= size
			api.WriteToReg(0, 0, deficit)

			vtime := api.ReadFromReg(0, 1) + 1
			api.WriteToReg(0, 1, vtime)
			api.SetRank(1, vtime)
		},
	))
	t.Register("DRR", action.HookEvaluatePredicate, action.Func(evaluateLowest))
	t.Register("DRR", action.HookDequeued, action.Func(noopDequeued))
}
