package node

// This file implements action.API on *Node. Every method here is only ever
// called from within handleEnqueue/evalPredicate/dequeueLocked, all of
// which already hold n.mu for the duration of the action invocation; none
// of these methods take the lock themselves, to avoid relocking from the
// same goroutine.

// GetSchedulerParameter implements action.API.
func (n *Node) GetSchedulerParameter(i, idx int) int64 {
	return n.regs.GetSchedulerParameter(i, idx)
}

// GetSizeOfParameter implements action.API.
func (n *Node) GetSizeOfParameter(i int) int {
	return n.regs.GetSizeOfParameter(i)
}

// ReadFromReg implements action.API.
func (n *Node) ReadFromReg(i, idx int) int64 {
	return n.regs.ReadFromReg(i, idx)
}

// WriteToReg implements action.API.
func (n *Node) WriteToReg(i, idx int, v int64) {
	n.regs.WriteToReg(i, idx, v)
}

// SetRank implements action.API.
func (n *Node) SetRank(day, time int64) {
	n.regs.SetRank(day, time)
}

// GetRank implements action.API.
func (n *Node) GetRank() (int64, int64) {
	return n.regs.GetRank()
}

// SetPredicate implements action.API.
func (n *Node) SetPredicate(day, time int64) {
	n.regs.SetPredicate(day, time)
}

// SetField implements action.API.
func (n *Node) SetField(i int, v int64) {
	n.regs.SetField(i, v)
}

// GetField implements action.API.
func (n *Node) GetField(i int) int64 {
	return n.regs.GetField(i)
}

// GetLowestPriority implements action.API: it returns the rank of the
// globally lowest-ranked descriptor in this node's calendar store, or
// (0, 0) if the store is empty.
func (n *Node) GetLowestPriority() (int64, int64) {
	d, ok := n.store.Begin()
	if !ok {
		return 0, 0
	}
	return d.Rank.Day, d.Rank.Time
}

// GetLowestPriorityForDay implements action.API: it returns the time
// component of the lowest-ranked descriptor on day d, or 0 if there is
// none.
func (n *Node) GetLowestPriorityForDay(d int64) int64 {
	desc, ok := n.store.LowestForDay(d)
	if !ok {
		return 0
	}
	return desc.Rank.Time
}

// HasPackets implements action.API.
func (n *Node) HasPackets(d int64) bool {
	return n.store.HasPacketsForDay(d)
}

// FindNextNonEmptyDay implements action.API.
func (n *Node) FindNextNonEmptyDay(d, limit int64) int64 {
	return n.store.FindNextNonEmptyDay(d, limit)
}

// FindNonEmptyDay implements action.API.
func (n *Node) FindNonEmptyDay(d, limit int64) int64 {
	return n.store.FindNonEmptyDay(d, limit)
}
