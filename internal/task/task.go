// Package task defines the Enqueue/Dequeue task that flows between nodes
// and the traffic manager.
package task

import "github.com/klagrassa/prog-tm-bmv2/internal/descriptor"

// Kind distinguishes the two task shapes the scheduler moves around.
type Kind int

const (
	Enqueue Kind = iota
	Dequeue
)

func (k Kind) String() string {
	if k == Enqueue {
		return "enqueue"
	}
	return "dequeue"
}

// Task is moved, never shared, between a node and its parent or the
// traffic manager. The descriptor it carries may simultaneously still sit
// in a calendar store, since descriptors are reference types.
type Task struct {
	Kind        Kind
	Descriptor  *descriptor.Descriptor
	NodeID      int
	Transmitted bool
}
