package fmp4mux

import (
	"github.com/bluenviron/mediacommon/v2/pkg/formats/fmp4"

	"github.com/bluenviron/ttmlfrag/internal/rational"
	"github.com/bluenviron/ttmlfrag/internal/squash"
)

// SubtitleTrack is a TTML subtitle track.
type SubtitleTrack struct {
	ID        int
	TimeScale uint32
	Language  string
}

type subtitleTrack struct {
	track *squash.Track

	// packets not delivered to the squasher yet.
	pending squash.Queue
	lastDTS int64
	hasLast bool
}

func newSubtitleTrack(st SubtitleTrack, profile squash.Profile) *subtitleTrack {
	return &subtitleTrack{
		track: &squash.Track{
			ID:       st.ID,
			TimeBase: rational.FromClockRate(st.TimeScale),
			Profile:  profile,
			Language: st.Language,
		},
	}
}

// deliver moves pending packets that start at or before clock into the squasher queue.
func (t *subtitleTrack) deliver(clock int64) {
	for {
		pkt := t.pending.PeekFront()
		if pkt == nil || pkt.DTS > clock {
			return
		}
		t.track.Enqueue(t.pending.PopFront())
	}
}

func (t *subtitleTrack) deliverAll() {
	for t.pending.Len() != 0 {
		t.track.Enqueue(t.pending.PopFront())
	}
}

func (t *subtitleTrack) peekNext() *squash.Packet {
	return t.pending.PeekFront()
}

func (t *subtitleTrack) hasContent() bool {
	return t.track.Queue.Len() != 0 || t.pending.Len() != 0
}

func (t *subtitleTrack) partTrack(pkt *squash.Packet) *fmp4.PartTrack {
	return &fmp4.PartTrack{
		ID:       t.track.ID,
		BaseTime: uint64(pkt.DTS),
		Samples: []*fmp4.Sample{{
			Duration: uint32(pkt.Duration),
			Payload:  pkt.Payload,
		}},
	}
}
