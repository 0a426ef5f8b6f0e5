// Package packet stands in for the enclosing switch's packet-data
// representation (the P4 header-vector / PHV). It is intentionally minimal:
// the scheduler core never inspects raw wire bytes, only the handful of
// metadata fields named in the specification's packet descriptor.
package packet

// Packet is a non-owning view onto a packet's header vector. The scheduler
// never owns the payload; the enclosing switch's packet pool does.
type Packet struct {
	ID     uint32
	Fields map[string]uint64
	// Payload is opaque to the scheduler; it is carried only so the packet
	// pool has something to hand back to the egress buffer.
	Payload []byte
}

// Field looks up a header-vector field by its P4-style dotted name, e.g.
// "standard_metadata.egress_port". Missing fields report ok == false so the
// caller can apply the zero default required by the data model.
func (p *Packet) Field(name string) (uint64, bool) {
	if p == nil || p.Fields == nil {
		return 0, false
	}
	v, ok := p.Fields[name]
	return v, ok
}

// New constructs a packet with the given id and header-vector fields.
func New(id uint32, fields map[string]uint64, payload []byte) *Packet {
	return &Packet{ID: id, Fields: fields, Payload: payload}
}

const (
	FieldEgressPort  = "standard_metadata.egress_port"
	FieldPacketLen   = "intrinsic_metadata.packet_length"
	FieldPriority    = "intrinsic_metadata.priority"
	FieldDSCP        = "ipv4.diffserv"
	FieldColor       = "scalars.metadata.color"
	FieldVLAN        = "vlan.vid"
	FieldSrcPort     = "l4.sport"
	FieldDstPort     = "l4.dport"
)
