// Package calendar implements the per-node calendar store: an ordered
// mapping from rank to packet descriptor, ordered ascending by rank, with
// the day-indexed lookups used by the register interface's scan helpers.
//
// The store itself is not safe for concurrent use; the owning node holds a
// single mutex across any store mutation and rank-register read, per the
// concurrency discipline in the specification.
package calendar

import (
	"sort"

	"github.com/klagrassa/prog-tm-bmv2/internal/descriptor"
	"github.com/klagrassa/prog-tm-bmv2/internal/rank"
)

// Reassignment records a rank change applied to an already-present
// descriptor as a side effect of resolving a tie-break collision. Callers
// that track a rank elsewhere (e.g. a node's predicate_rank) must check
// whether it matches OldRank and, if so, update it to Descriptor.Rank.
type Reassignment struct {
	Descriptor *descriptor.Descriptor
	OldRank    rank.Rank
}

// Store is the ordered rank -> descriptor map local to one node.
type Store struct {
	byRank map[rank.Rank]*descriptor.Descriptor
	order  []*descriptor.Descriptor          // sorted ascending by Rank
	byDay  map[int64][]*descriptor.Descriptor // each sorted ascending by Time
}

// New returns an empty calendar store.
func New() *Store {
	return &Store{
		byRank: make(map[rank.Rank]*descriptor.Descriptor),
		byDay:  make(map[int64][]*descriptor.Descriptor),
	}
}

// Len returns the number of descriptors currently stored.
func (s *Store) Len() int {
	return len(s.order)
}

// Insert places d into the store at d.Rank, which must already have been
// computed by the caller's calculate_rank step and must not be the null
// sentinel. If d.Rank collides with an existing entry, the collision is
// resolved deterministically: the contested block of consecutive occupied
// time slots on that day, plus d, is reordered by ascending PacketID and
// renumbered onto consecutive time slots starting at d.Rank.Time. d.Rank is
// updated in place to its final value; any other descriptor whose rank
// changed as a result is reported in the returned slice.
func (s *Store) Insert(d *descriptor.Descriptor) []Reassignment {
	if d.Rank.IsNull() {
		panic("calendar: cannot insert a descriptor with the null rank")
	}
	day := d.Rank.Day
	startTime := d.Rank.Time

	if _, collides := s.byRank[d.Rank]; !collides {
		s.byRank[d.Rank] = d
		s.insertOrder(d)
		s.insertDay(day, d)
		return nil
	}

	// Gather the contiguous run of occupied time slots starting at
	// startTime on this day; that run, plus d, is the contested block.
	var existing []*descriptor.Descriptor
	for t := startTime; ; t++ {
		e, ok := s.byRank[rank.Rank{Day: day, Time: t}]
		if !ok {
			break
		}
		existing = append(existing, e)
	}
	for _, e := range existing {
		delete(s.byRank, e.Rank)
		s.removeOrder(e)
		s.removeDay(day, e)
	}

	block := append(existing, d)
	sort.SliceStable(block, func(i, j int) bool { return block[i].PacketID < block[j].PacketID })

	var reassignments []Reassignment
	for i, e := range block {
		newRank := rank.Rank{Day: day, Time: startTime + int64(i)}
		if e != d && e.Rank != newRank {
			reassignments = append(reassignments, Reassignment{Descriptor: e, OldRank: e.Rank})
		}
		e.Rank = newRank
		s.byRank[newRank] = e
		s.insertOrder(e)
		s.insertDay(day, e)
	}
	return reassignments
}

// Get returns the descriptor at r, if any.
func (s *Store) Get(r rank.Rank) (*descriptor.Descriptor, bool) {
	d, ok := s.byRank[r]
	return d, ok
}

// Remove deletes the descriptor at r, if present.
func (s *Store) Remove(r rank.Rank) (*descriptor.Descriptor, bool) {
	d, ok := s.byRank[r]
	if !ok {
		return nil, false
	}
	delete(s.byRank, r)
	s.removeOrder(d)
	s.removeDay(d.Rank.Day, d)
	return d, true
}

// Begin returns the globally lowest-ranked descriptor, or false if the
// store is empty.
func (s *Store) Begin() (*descriptor.Descriptor, bool) {
	if len(s.order) == 0 {
		return nil, false
	}
	return s.order[0], true
}

// LowestForDay returns the lowest-ranked descriptor with Rank.Day == d, if
// any.
func (s *Store) LowestForDay(d int64) (*descriptor.Descriptor, bool) {
	ds := s.byDay[d]
	if len(ds) == 0 {
		return nil, false
	}
	return ds[0], true
}

// HasPacketsForDay reports whether any descriptor on day d is stored.
func (s *Store) HasPacketsForDay(d int64) bool {
	return len(s.byDay[d]) > 0
}

// FindNonEmptyDay scans days [d, d+limit] and returns the first day with at
// least one packet, or d if none is found in range.
func (s *Store) FindNonEmptyDay(d, limit int64) int64 {
	for o := int64(0); o <= limit; o++ {
		if s.HasPacketsForDay(d + o) {
			return d + o
		}
	}
	return d
}

// FindNextNonEmptyDay scans days [d+1, d+limit] and returns the first day
// with at least one packet, or d if none is found in range.
func (s *Store) FindNextNonEmptyDay(d, limit int64) int64 {
	for o := int64(1); o <= limit; o++ {
		if s.HasPacketsForDay(d + o) {
			return d + o
		}
	}
	return d
}

func (s *Store) insertOrder(d *descriptor.Descriptor) {
	i := sort.Search(len(s.order), func(i int) bool { return !s.order[i].Rank.Less(d.Rank) })
	s.order = append(s.order, nil)
	copy(s.order[i+1:], s.order[i:])
	s.order[i] = d
}

func (s *Store) removeOrder(d *descriptor.Descriptor) {
	i := sort.Search(len(s.order), func(i int) bool { return !s.order[i].Rank.Less(d.Rank) })
	for ; i < len(s.order); i++ {
		if s.order[i] == d {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
		if d.Rank.Less(s.order[i].Rank) {
			break
		}
	}
}

func (s *Store) insertDay(day int64, d *descriptor.Descriptor) {
	ds := s.byDay[day]
	i := sort.Search(len(ds), func(i int) bool { return ds[i].Rank.Time >= d.Rank.Time })
	ds = append(ds, nil)
	copy(ds[i+1:], ds[i:])
	ds[i] = d
	s.byDay[day] = ds
}

func (s *Store) removeDay(day int64, d *descriptor.Descriptor) {
	ds := s.byDay[day]
	for i, e := range ds {
		if e == d {
			ds = append(ds[:i], ds[i+1:]...)
			break
		}
	}
	if len(ds) == 0 {
		delete(s.byDay, day)
		return
	}
	s.byDay[day] = ds
}
