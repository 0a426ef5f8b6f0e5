// Package descriptor implements the packet descriptor: an
// immutable-after-construction snapshot of the packet fields the scheduler
// reads, plus the rank the owning node assigns to it.
//
// The descriptor never owns the packet payload. Per the ownership-split
// strategy in the design notes, the payload lives in the traffic manager's
// packet pool; the descriptor carries only a copyable integer Handle into
// that pool. This avoids the shared-pointer-with-noop-destructor workaround
// of the source implementation without changing observable behaviour.
package descriptor

import (
	"sync/atomic"

	"github.com/klagrassa/prog-tm-bmv2/internal/packet"
	"github.com/klagrassa/prog-tm-bmv2/internal/rank"
)

// Handle is a copyable reference into the traffic manager's packet pool.
// It carries no ownership and triggers no destruction on its own.
type Handle uint64

var nextHandle atomic.Uint64

// NewHandle allocates a fresh, process-unique handle.
func NewHandle() Handle {
	return Handle(nextHandle.Add(1))
}

// Fields holds the header-vector metadata the scheduler reads. Once a
// descriptor is inserted into a calendar store, every field here is
// read-only; only Rank (on Descriptor) is ever mutated in place: it is set
// by each node before inserting the descriptor, and the calendar store may
// renumber it when resolving a tie-break collision.
type Fields struct {
	EgressPort uint32
	PacketSize uint64
	Priority   uint8
	DSCP       uint8
	Color      uint8
	VLANID     uint16
	SPort      uint8
	DPort      uint8
}

// Descriptor is the scheduler's view of one in-flight packet.
type Descriptor struct {
	PacketID uint32
	Handle   Handle
	Fields   Fields
	Rank     rank.Rank
}

// FromPacket constructs a descriptor from a packet's header vector. Missing
// header fields default to zero, matching the data model. EgressPort is
// always set to egressPort, the port the traffic manager enqueued on; the
// header vector's egress-port field is not read.
func FromPacket(p *packet.Packet, h Handle, egressPort uint32) *Descriptor {
	d := &Descriptor{
		PacketID: p.ID,
		Handle:   h,
		Rank:     rank.Null,
	}
	d.Fields.EgressPort = egressPort
	if v, ok := p.Field(packet.FieldPacketLen); ok {
		d.Fields.PacketSize = v
	}
	if v, ok := p.Field(packet.FieldPriority); ok {
		d.Fields.Priority = uint8(v)
	}
	if v, ok := p.Field(packet.FieldDSCP); ok {
		d.Fields.DSCP = uint8(v)
	}
	if v, ok := p.Field(packet.FieldColor); ok {
		d.Fields.Color = uint8(v)
	}
	if v, ok := p.Field(packet.FieldVLAN); ok {
		d.Fields.VLANID = uint16(v)
	}
	if v, ok := p.Field(packet.FieldSrcPort); ok {
		d.Fields.SPort = uint8(v)
	}
	if v, ok := p.Field(packet.FieldDstPort); ok {
		d.Fields.DPort = uint8(v)
	}
	return d
}
