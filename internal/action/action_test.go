package action_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klagrassa/prog-tm-bmv2/internal/action"
	"github.com/klagrassa/prog-tm-bmv2/internal/descriptor"
)

type stubAPI struct{}

func (stubAPI) GetSchedulerParameter(i, idx int) int64      { return 0 }
func (stubAPI) GetSizeOfParameter(i int) int                { return 0 }
func (stubAPI) ReadFromReg(i, idx int) int64                { return 0 }
func (stubAPI) WriteToReg(i, idx int, v int64)               {}
func (stubAPI) SetRank(day, time int64)                      {}
func (stubAPI) GetRank() (int64, int64)                      { return 0, 0 }
func (stubAPI) SetPredicate(day, time int64)                 {}
func (stubAPI) SetField(i int, v int64)                       {}
func (stubAPI) GetField(i int) int64                          { return 0 }
func (stubAPI) GetLowestPriority() (int64, int64)             { return 0, 0 }
func (stubAPI) GetLowestPriorityForDay(d int64) int64         { return 0 }
func (stubAPI) HasPackets(d int64) bool                       { return false }
func (stubAPI) FindNextNonEmptyDay(d, limit int64) int64      { return d }
func (stubAPI) FindNonEmptyDay(d, limit int64) int64          { return d }

func TestRequireDetectsMissingActions(t *testing.T) {
	tbl := action.NewTable()
	tbl.Register("FIFO", action.HookCalculateRank, action.Func(noop))
	tbl.Register("FIFO", action.HookEvaluatePredicate, action.Func(noop))

	err := tbl.Require("FIFO")
	require.Error(t, err)

	var missing *action.MissingActionError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "FIFO", missing.SchedulerType)
	assert.Equal(t, []action.Hook{action.HookDequeued}, missing.Hooks)
}

func TestRequireSatisfiedWhenAllThreeHooksPresent(t *testing.T) {
	tbl := action.NewTable()
	tbl.Register("FIFO", action.HookCalculateRank, action.Func(noop))
	tbl.Register("FIFO", action.HookEvaluatePredicate, action.Func(noop))
	tbl.Register("FIFO", action.HookDequeued, action.Func(noop))

	assert.NoError(t, tbl.Require("FIFO"))
}

func TestLookupDispatchesByNameMangledKey(t *testing.T) {
	tbl := action.NewTable()
	called := false
	tbl.Register("SP", action.HookCalculateRank, action.Func(
		func(ctx context.Context, d *descriptor.Descriptor, api action.API) { called = true },
	))

	a, ok := tbl.Lookup("SP", action.HookCalculateRank)
	require.True(t, ok)
	a.Run(context.Background(), &descriptor.Descriptor{}, stubAPI{})
	assert.True(t, called)

	_, ok = tbl.Lookup("SP", action.HookDequeued)
	assert.False(t, ok)
}

func noop(ctx context.Context, d *descriptor.Descriptor, api action.API) {}
