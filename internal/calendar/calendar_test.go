package calendar_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klagrassa/prog-tm-bmv2/internal/calendar"
	"github.com/klagrassa/prog-tm-bmv2/internal/descriptor"
	"github.com/klagrassa/prog-tm-bmv2/internal/rank"
)

func desc(id uint32, r rank.Rank) *descriptor.Descriptor {
	return &descriptor.Descriptor{PacketID: id, Rank: r}
}

// TestTieBreakConstantRank is scenario E5: a scheduler returning a constant
// rank for every packet, enqueued out of order by packet id, must still
// emit them in ascending packet-id order.
func TestTieBreakConstantRank(t *testing.T) {
	s := calendar.New()
	constant := rank.New(1, 1)

	s.Insert(desc(3, constant))
	s.Insert(desc(1, constant))
	s.Insert(desc(2, constant))

	require.Equal(t, 3, s.Len())

	var order []uint32
	for s.Len() > 0 {
		d, ok := s.Begin()
		require.True(t, ok)
		order = append(order, d.PacketID)
		_, ok = s.Remove(d.Rank)
		require.True(t, ok)
	}
	assert.Equal(t, []uint32{1, 2, 3}, order)
}

func TestInsertReportsReassignments(t *testing.T) {
	s := calendar.New()
	constant := rank.New(1, 1)

	s.Insert(desc(5, constant))
	reassignments := s.Insert(desc(1, constant))

	// Packet 1 sorts before packet 5, so packet 5 must have been pushed to
	// the next time slot and reported as a reassignment.
	require.Len(t, reassignments, 1)
	assert.Equal(t, uint32(5), reassignments[0].Descriptor.PacketID)
	assert.Equal(t, constant, reassignments[0].OldRank)
	assert.Equal(t, rank.New(1, 2), reassignments[0].Descriptor.Rank)
}

func TestGetRemove(t *testing.T) {
	s := calendar.New()
	d := desc(1, rank.New(1, 1))
	s.Insert(d)

	got, ok := s.Get(rank.New(1, 1))
	require.True(t, ok)
	assert.Equal(t, d, got)

	removed, ok := s.Remove(rank.New(1, 1))
	require.True(t, ok)
	assert.Equal(t, d, removed)

	_, ok = s.Get(rank.New(1, 1))
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestBeginEmpty(t *testing.T) {
	s := calendar.New()
	_, ok := s.Begin()
	assert.False(t, ok)
}

// TestDayLookups is scenario E6: find_next_non_empty_day(2, 10) over a
// store populated with ranks (2,3),(2,5),(5,1) must return 5.
func TestDayLookups(t *testing.T) {
	s := calendar.New()
	s.Insert(desc(1, rank.New(2, 3)))
	s.Insert(desc(2, rank.New(2, 5)))
	s.Insert(desc(3, rank.New(5, 1)))

	assert.Equal(t, int64(5), s.FindNextNonEmptyDay(2, 10))
	assert.Equal(t, int64(2), s.FindNonEmptyDay(2, 10))
	assert.True(t, s.HasPacketsForDay(2))
	assert.False(t, s.HasPacketsForDay(3))

	lowest, ok := s.LowestForDay(2)
	require.True(t, ok)
	assert.Equal(t, uint32(1), lowest.PacketID)
}

func TestFindNonEmptyDayNoneInRange(t *testing.T) {
	s := calendar.New()
	assert.Equal(t, int64(2), s.FindNonEmptyDay(2, 10))
	assert.Equal(t, int64(2), s.FindNextNonEmptyDay(2, 10))
}

func TestInsertNullRankPanics(t *testing.T) {
	s := calendar.New()
	assert.Panics(t, func() {
		s.Insert(desc(1, rank.Null))
	})
}
