package fmp4mux

import (
	"github.com/bluenviron/ttmlfrag/internal/squash"
)

// Stats are muxer statistics.
type Stats struct {
	Fragments         uint64
	SubtitlePackets   uint64
	Splits            uint64
	PushBacks         uint64
	Repairs           uint64
	Placeholders      uint64
	LookaheadInjected uint64
	Bytes             uint64
}

func (s *Stats) add(st squash.Stats) {
	s.SubtitlePackets += uint64(st.Written)
	s.Splits += uint64(st.Splits)
	s.PushBacks += uint64(st.PushBacks)
	s.Repairs += uint64(st.Repairs)
	if st.Placeholder {
		s.Placeholders++
	}
	if st.Injected {
		s.LookaheadInjected++
	}
}
