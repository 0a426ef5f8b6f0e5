package schedulers_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klagrassa/prog-tm-bmv2/internal/action"
	"github.com/klagrassa/prog-tm-bmv2/internal/descriptor"
	"github.com/klagrassa/prog-tm-bmv2/internal/registers"
	"github.com/klagrassa/prog-tm-bmv2/internal/schedulers"
)

// fileAPI adapts a bare registers.File to action.API without the rest of
// node.Node's machinery, so calculate_rank/evaluate_predicate actions can be
// exercised directly.
type fileAPI struct {
	*registers.File
}

func (f fileAPI) GetLowestPriority() (int64, int64)        { return 0, 0 }
func (f fileAPI) GetLowestPriorityForDay(d int64) int64    { return 0 }
func (f fileAPI) HasPackets(d int64) bool                  { return false }
func (f fileAPI) FindNextNonEmptyDay(d, limit int64) int64 { return d }
func (f fileAPI) FindNonEmptyDay(d, limit int64) int64     { return d }

func newAPI(params map[int][]int64) fileAPI {
	return fileAPI{File: registers.New(params)}
}

func TestAllSchedulersRegisterThreeHooks(t *testing.T) {
	tbl := action.NewTable()
	schedulers.Register(tbl)

	for _, sched := range []string{"FIFO", "SP", "DRR"} {
		require.NoError(t, tbl.Require(sched), sched)
	}
}

func TestFIFORankIsPacketID(t *testing.T) {
	tbl := action.NewTable()
	schedulers.Register(tbl)
	calc, ok := tbl.Lookup("FIFO", action.HookCalculateRank)
	require.True(t, ok)

	api := newAPI(nil)
	calc.Run(context.Background(), &descriptor.Descriptor{PacketID: 42}, api)

	day, time := api.GetRank()
	assert.Equal(t, int64(1), day)
	assert.Equal(t, int64(42), time)
}

func TestSPRankOrdersByPriorityDescending(t *testing.T) {
	tbl := action.NewTable()
	schedulers.Register(tbl)
	calc, ok := tbl.Lookup("SP", action.HookCalculateRank)
	require.True(t, ok)

	apiHigh := newAPI(nil)
	calc.Run(context.Background(), &descriptor.Descriptor{Fields: descriptor.Fields{Priority: 7}}, apiHigh)
	_, highTime := apiHigh.GetRank()

	apiLow := newAPI(nil)
	calc.Run(context.Background(), &descriptor.Descriptor{Fields: descriptor.Fields{Priority: 1}}, apiLow)
	_, lowTime := apiLow.GetRank()

	// Priority 7 (E2's first packet) must rank ahead of priority 1.
	assert.Less(t, highTime, lowTime)
}

func TestDRRAdvancesVirtualTimePerPacket(t *testing.T) {
	tbl := action.NewTable()
	schedulers.Register(tbl)
	calc, ok := tbl.Lookup("DRR", action.HookCalculateRank)
	require.True(t, ok)

	api := newAPI(map[int][]int64{0: {100}})
	calc.Run(context.Background(), &descriptor.Descriptor{Fields: descriptor.Fields{PacketSize: 10}}, api)
	_, firstTime := api.GetRank()

	calc.Run(context.Background(), &descriptor.Descriptor{Fields: descriptor.Fields{PacketSize: 10}}, api)
	_, secondTime := api.GetRank()

	assert.Less(t, firstTime, secondTime)
}

func TestEvaluatePredicateClaimsDescriptorRank(t *testing.T) {
	tbl := action.NewTable()
	schedulers.Register(tbl)
	eval, ok := tbl.Lookup("FIFO", action.HookEvaluatePredicate)
	require.True(t, ok)

	api := newAPI(nil)
	api.SetRank(3, 4)
	d := &descriptor.Descriptor{}
	d.Rank.Day, d.Rank.Time = 3, 4
	eval.Run(context.Background(), d, api)

	day, time := api.GetPredicate()
	assert.Equal(t, int64(3), day)
	assert.Equal(t, int64(4), time)
}
