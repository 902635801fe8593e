package squash

import (
	"github.com/gammazero/deque"
)

// Queue is a FIFO of packets that supports pushing back to the head.
// It does not track timestamp bounds.
type Queue struct {
	d deque.Deque[*Packet]
}

// Len returns the number of queued packets.
func (q *Queue) Len() int {
	return q.d.Len()
}

// Push adds a packet to the tail, or to the head when prepend is true.
func (q *Queue) Push(pkt *Packet, prepend bool) {
	if prepend {
		q.d.PushFront(pkt)
		return
	}
	q.d.PushBack(pkt)
}

// PeekFront returns the head packet without removing it, or nil.
func (q *Queue) PeekFront() *Packet {
	if q.d.Len() == 0 {
		return nil
	}
	return q.d.Front()
}

// PopFront removes and returns the head packet, or nil.
func (q *Queue) PopFront() *Packet {
	if q.d.Len() == 0 {
		return nil
	}
	return q.d.PopFront()
}
