// Package action defines the opaque action interface the scheduler invokes
// by name: "<scheduler_type>_<hook>". Actions are supplied externally by
// whatever P4 action-execution engine hosts this scheduler; this package
// only defines the calling convention and the dispatch table that resolves
// a (scheduler type, hook) pair to a concrete Action.
package action

import (
	"context"

	"github.com/klagrassa/prog-tm-bmv2/internal/descriptor"
)

// Hook names one of the three actions a scheduler type must provide.
type Hook string

const (
	HookCalculateRank     Hook = "calculate_rank"
	HookEvaluatePredicate Hook = "evaluate_predicate"
	HookDequeued          Hook = "dequeued"
)

var allHooks = []Hook{HookCalculateRank, HookEvaluatePredicate, HookDequeued}

// API is the register/calendar surface a running action is given. A Node
// implements API directly: register operations are served by its private
// register file, the calendar-query operations by its calendar store.
type API interface {
	GetSchedulerParameter(i, idx int) int64
	GetSizeOfParameter(i int) int
	ReadFromReg(i, idx int) int64
	WriteToReg(i, idx int, v int64)
	SetRank(day, time int64)
	GetRank() (int64, int64)
	SetPredicate(day, time int64)
	SetField(i int, v int64)
	GetField(i int) int64
	GetLowestPriority() (int64, int64)
	GetLowestPriorityForDay(d int64) int64
	HasPackets(d int64) bool
	FindNextNonEmptyDay(d, limit int64) int64
	FindNonEmptyDay(d, limit int64) int64
}

// Action is an opaque callable invoked with a packet descriptor and the
// register/calendar surface of the node running it. The scheduler only
// guarantees that the action runs to completion before it reads back
// whatever register the hook is supposed to have written.
type Action interface {
	Run(ctx context.Context, d *descriptor.Descriptor, api API)
}

// Func adapts a plain function to Action.
type Func func(ctx context.Context, d *descriptor.Descriptor, api API)

// Run implements Action.
func (f Func) Run(ctx context.Context, d *descriptor.Descriptor, api API) { f(ctx, d, api) }

// name builds the "<scheduler>_<hook>" dispatch key.
func name(schedulerType string, hook Hook) string {
	return schedulerType + "_" + string(hook)
}

// Table is keyed by (scheduler type, hook) and resolves to a concrete
// Action. Missing actions are detected at hierarchy-install time (Require),
// rather than surfacing as a runtime MissingAction failure on first
// enqueue.
type Table struct {
	actions map[string]Action
}

// NewTable returns an empty action table.
func NewTable() *Table {
	return &Table{actions: make(map[string]Action)}
}

// Register installs the action for (schedulerType, hook).
func (t *Table) Register(schedulerType string, hook Hook, a Action) {
	t.actions[name(schedulerType, hook)] = a
}

// Lookup resolves the action for (schedulerType, hook).
func (t *Table) Lookup(schedulerType string, hook Hook) (Action, bool) {
	a, ok := t.actions[name(schedulerType, hook)]
	return a, ok
}

// Require checks that all three hooks are registered for schedulerType. It
// is called when a hierarchy is installed, so a misconfigured pipeline is
// caught at install time rather than at first enqueue.
func (t *Table) Require(schedulerType string) error {
	var missing []Hook
	for _, h := range allHooks {
		if _, ok := t.Lookup(schedulerType, h); !ok {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 {
		return &MissingActionError{SchedulerType: schedulerType, Hooks: missing}
	}
	return nil
}

// MissingActionError reports that one or more required actions are absent
// for a scheduler type. It is fatal to the pipeline: the specification
// requires that every installed node's scheduler type expose all required
// actions.
type MissingActionError struct {
	SchedulerType string
	Hooks         []Hook
}

func (e *MissingActionError) Error() string {
	s := "missing action(s) for scheduler " + e.SchedulerType + ":"
	for i, h := range e.Hooks {
		if i > 0 {
			s += ","
		}
		s += " " + string(h)
	}
	return s
}
