package registers_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/klagrassa/prog-tm-bmv2/internal/registers"
)

func TestRankRoundTrip(t *testing.T) {
	f := registers.New(nil)
	f.SetRank(3, 4)
	day, time := f.GetRank()
	assert.Equal(t, int64(3), day)
	assert.Equal(t, int64(4), time)
}

func TestPredicateRoundTrip(t *testing.T) {
	f := registers.New(nil)
	f.SetPredicate(1, 2)
	day, time := f.GetPredicate()
	assert.Equal(t, int64(1), day)
	assert.Equal(t, int64(2), time)
}

func TestFieldRoundTrip(t *testing.T) {
	f := registers.New(nil)
	f.SetField(0, 42)
	assert.Equal(t, int64(42), f.GetField(0))
	assert.Equal(t, int64(0), f.GetField(1), "never-written index reads as zero")
}

func TestSchedulerParameters(t *testing.T) {
	f := registers.New(map[int][]int64{0: {10, 20, 30}})
	assert.Equal(t, 3, f.GetSizeOfParameter(0))
	assert.Equal(t, int64(20), f.GetSchedulerParameter(0, 1))
	assert.Equal(t, int64(0), f.GetSchedulerParameter(0, 99), "out of range fails soft, not panic")
	assert.Equal(t, 0, f.GetSizeOfParameter(1), "unset array has size zero")
}

func TestGeneralPurposeRegisters(t *testing.T) {
	f := registers.New(nil)
	f.WriteToReg(0, 0, 7)
	assert.Equal(t, int64(7), f.ReadFromReg(0, 0))

	// Out-of-range writes and reads fail soft: no panic, and the read
	// returns zero.
	f.WriteToReg(registers.MaxNbGPReg, 0, 99)
	assert.Equal(t, int64(0), f.ReadFromReg(registers.MaxNbGPReg-1, registers.MaxSizeGPRegArray))
}
