// Package registers implements the per-node register file: the scratch
// space an action reads and writes when it runs against a packet
// descriptor. A register file belongs to exactly one node; the node's
// mutex is what serialises action execution, so File itself does no
// locking of its own.
package registers

import "github.com/klagrassa/prog-tm-bmv2/internal/log"

const (
	// MaxNbGPReg is the number of general-purpose register arrays.
	MaxNbGPReg = 8
	// MaxSizeGPRegArray is the number of int64 cells per general-purpose
	// register array.
	MaxSizeGPRegArray = 16
)

// File is the register file a node exposes to its actions.
type File struct {
	rankDay, rankTime           int64
	predDay, predTime           int64
	schedulerParams             map[int][]int64
	genPurpose                  [MaxNbGPReg][MaxSizeGPRegArray]int64
	packetInformations          map[int]int64
}

// New returns an empty register file seeded with the given scheduler
// parameters (read-only from actions once set).
func New(schedulerParams map[int][]int64) *File {
	if schedulerParams == nil {
		schedulerParams = map[int][]int64{}
	}
	return &File{
		schedulerParams:    schedulerParams,
		packetInformations: make(map[int]int64),
	}
}

// SetRank stores the (day, time) the node's calculate_rank action computed.
func (f *File) SetRank(day, time int64) {
	f.rankDay, f.rankTime = day, time
}

// GetRank returns the last rank written by SetRank.
func (f *File) GetRank() (int64, int64) {
	return f.rankDay, f.rankTime
}

// SetPredicate stores the (day, time) the node's evaluate_predicate action
// selected. (0, 0) means "no eligible entry".
func (f *File) SetPredicate(day, time int64) {
	f.predDay, f.predTime = day, time
}

// GetPredicate returns the last predicate written by SetPredicate.
func (f *File) GetPredicate() (int64, int64) {
	return f.predDay, f.predTime
}

// SetField writes to the packet-field mirror register i. Out-of-range
// indices are accepted here since the field namespace is open-ended; actions
// are expected to use small, stable indices by convention.
func (f *File) SetField(i int, v int64) {
	f.packetInformations[i] = v
}

// GetField reads the packet-field mirror register i. A never-written index
// reads as zero.
func (f *File) GetField(i int) int64 {
	return f.packetInformations[i]
}

// GetSchedulerParameter returns scheduler_params[i][idx]. Out-of-range i or
// idx fails softly: it logs and returns zero, per the specification's
// register-index error semantics.
func (f *File) GetSchedulerParameter(i, idx int) int64 {
	arr, ok := f.schedulerParams[i]
	if !ok || idx < 0 || idx >= len(arr) {
		log.Root().Warn("register index out of range", "op", "get_scheduler_parameter", "i", i, "idx", idx)
		return 0
	}
	return arr[idx]
}

// GetSizeOfParameter returns len(scheduler_params[i]), or 0 if i is unset.
func (f *File) GetSizeOfParameter(i int) int {
	return len(f.schedulerParams[i])
}

// ReadFromReg returns gen_purpose_reg[i][idx]. Out-of-range indices fail
// softly: log and return zero.
func (f *File) ReadFromReg(i, idx int) int64 {
	if i < 0 || i >= MaxNbGPReg || idx < 0 || idx >= MaxSizeGPRegArray {
		log.Root().Warn("register index out of range", "op", "read_from_reg", "i", i, "idx", idx)
		return 0
	}
	return f.genPurpose[i][idx]
}

// WriteToReg writes gen_purpose_reg[i][idx] = v. Out-of-range indices fail
// softly: log and leave the register file untouched.
func (f *File) WriteToReg(i, idx int, v int64) {
	if i < 0 || i >= MaxNbGPReg || idx < 0 || idx >= MaxSizeGPRegArray {
		log.Root().Warn("register index out of range", "op", "write_to_reg", "i", i, "idx", idx)
		return
	}
	f.genPurpose[i][idx] = v
}
