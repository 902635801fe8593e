package squash

// Packet is a timed subtitle cue.
// Payload is TTML body markup and is never interpreted.
type Packet struct {
	DTS      int64
	PTS      int64
	Duration int64
	Payload  []byte
	Key      bool
}

// End returns the timestamp at which the packet ends.
func (p *Packet) End() int64 {
	return p.DTS + p.Duration
}

// Clone returns a deep copy of the packet.
func (p *Packet) Clone() *Packet {
	c := *p
	if p.Payload != nil {
		c.Payload = append([]byte(nil), p.Payload...)
	}
	return &c
}
