// Package fmp4mux contains a fragmented MP4 muxer that carries squashed TTML subtitle tracks.
package fmp4mux

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bluenviron/mediacommon/v2/pkg/formats/fmp4"
	"github.com/bluenviron/mediacommon/v2/pkg/formats/fmp4/seekablebuffer"

	"github.com/bluenviron/ttmlfrag/internal/logger"
	"github.com/bluenviron/ttmlfrag/internal/rational"
	"github.com/bluenviron/ttmlfrag/internal/squash"
)

// errors.
var (
	ErrNoMediaTracks    = errors.New("at least one audio or video track is required")
	ErrNonMonotonicDTS  = errors.New("DTS is not monotonic")
	ErrTrackNotFound    = errors.New("track not found")
	errNegativeDTS      = errors.New("DTS is negative")
	errDuplicateTrackID = errors.New("duplicate track ID")
)

type countingWriter struct {
	w io.Writer
	n uint64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	n, err := w.w.Write(p)
	w.n += uint64(n)
	return n, err
}

// Muxer is a fragmented MP4 muxer.
// Subtitle packets are squashed into one sample per fragment.
type Muxer struct {
	W                io.Writer
	FragmentDuration time.Duration
	Profile          squash.Profile
	Encoder          squash.DocumentEncoder
	Parent           logger.Writer

	mediaInitTracks []*fmp4.InitTrack
	subtitleConfs   []SubtitleTrack

	cw             *countingWriter
	squasher       *squash.Squasher
	mediaTracks    []*mediaTrack
	subtitleTracks []*subtitleTrack
	leadingTrack   *mediaTrack
	fragmentOpen   bool
	fragmentStart  time.Duration
	nextSequence   uint32
	stats          Stats
	outBuf         seekablebuffer.Buffer
}

// AddTrack adds an audio or video track. It must be called before Initialize.
func (m *Muxer) AddTrack(track *fmp4.InitTrack) {
	m.mediaInitTracks = append(m.mediaInitTracks, track)
}

// AddSubtitleTrack adds a subtitle track. It must be called before Initialize.
func (m *Muxer) AddSubtitleTrack(track SubtitleTrack) {
	m.subtitleConfs = append(m.subtitleConfs, track)
}

// Initialize initializes the muxer and writes the initialization segment.
func (m *Muxer) Initialize() error {
	if len(m.mediaInitTracks) == 0 {
		return ErrNoMediaTracks
	}

	ids := make(map[int]struct{})
	checkID := func(id int) error {
		if id <= 0 {
			return fmt.Errorf("invalid track ID: %d", id)
		}
		if _, ok := ids[id]; ok {
			return fmt.Errorf("%w: %d", errDuplicateTrackID, id)
		}
		ids[id] = struct{}{}
		return nil
	}

	for _, it := range m.mediaInitTracks {
		err := checkID(it.ID)
		if err != nil {
			return err
		}

		if it.TimeScale == 0 {
			return fmt.Errorf("track %d: invalid time scale", it.ID)
		}

		t := &mediaTrack{
			m:         m,
			initTrack: it,
			timeBase:  rational.FromClockRate(it.TimeScale),
		}
		m.mediaTracks = append(m.mediaTracks, t)

		if m.leadingTrack == nil && it.Codec.IsVideo() {
			m.leadingTrack = t
		}
	}

	if m.leadingTrack == nil {
		m.leadingTrack = m.mediaTracks[0]
	}

	for _, st := range m.subtitleConfs {
		err := checkID(st.ID)
		if err != nil {
			return err
		}

		if st.TimeScale == 0 {
			return fmt.Errorf("track %d: invalid time scale", st.ID)
		}

		m.subtitleTracks = append(m.subtitleTracks, newSubtitleTrack(st, m.Profile))
	}

	m.squasher = &squash.Squasher{
		Encoder: m.Encoder,
		Parent:  m,
	}

	m.cw = &countingWriter{w: m.W}
	m.nextSequence = 1

	err := m.writeInit()
	if err != nil {
		return fmt.Errorf("unable to write initialization segment: %w", err)
	}

	return nil
}

// Log implements logger.Writer.
func (m *Muxer) Log(level logger.Level, format string, args ...interface{}) {
	m.Parent.Log(level, "[muxer] "+format, args...)
}

func (m *Muxer) findMediaTrack(id int) *mediaTrack {
	for _, t := range m.mediaTracks {
		if t.initTrack.ID == id {
			return t
		}
	}
	return nil
}

func (m *Muxer) findSubtitleTrack(id int) *subtitleTrack {
	for _, t := range m.subtitleTracks {
		if t.track.ID == id {
			return t
		}
	}
	return nil
}

// interleaveClock returns the time reached by all audio and video tracks.
func (m *Muxer) interleaveClock() (time.Duration, bool) {
	var clock time.Duration
	ok := false

	for _, t := range m.mediaTracks {
		if !t.started {
			continue
		}
		dts := t.dtsGo(t.lastDTS)
		if !ok || dts < clock {
			clock = dts
			ok = true
		}
	}

	return clock, ok
}

func (m *Muxer) deliverSubtitles() {
	clock, ok := m.interleaveClock()
	if !ok {
		return
	}

	for _, st := range m.subtitleTracks {
		st.deliver(rational.FromDuration(clock, st.track.TimeBase))
	}
}

// WriteSample writes an audio or video sample.
// dts is expressed in the time scale of the track.
func (m *Muxer) WriteSample(trackID int, dts int64, sample *fmp4.Sample) error {
	t := m.findMediaTrack(trackID)
	if t == nil {
		return fmt.Errorf("%w: %d", ErrTrackNotFound, trackID)
	}

	if dts < 0 {
		return fmt.Errorf("track %d: %w: %d", trackID, errNegativeDTS, dts)
	}

	if t.started && dts < t.lastDTS {
		return fmt.Errorf("track %d: %w: %d < %d", trackID, ErrNonMonotonicDTS, dts, t.lastDTS)
	}

	dtsGo := t.dtsGo(dts)

	if t == m.leadingTrack &&
		!sample.IsNonSyncSample &&
		m.fragmentOpen &&
		(dtsGo-m.fragmentStart) >= m.FragmentDuration {
		err := m.flush(false)
		if err != nil {
			return err
		}
	}

	if !m.fragmentOpen {
		m.fragmentOpen = true
		m.fragmentStart = dtsGo
	}

	t.write(dts, sample)

	m.deliverSubtitles()

	return nil
}

// WriteSubtitle writes a subtitle packet.
// Timestamps are expressed in the time scale of the track.
func (m *Muxer) WriteSubtitle(trackID int, pkt *squash.Packet) error {
	t := m.findSubtitleTrack(trackID)
	if t == nil {
		return fmt.Errorf("%w: %d", ErrTrackNotFound, trackID)
	}

	if pkt.DTS < 0 {
		return fmt.Errorf("track %d: %w: %d", trackID, errNegativeDTS, pkt.DTS)
	}

	if pkt.Duration < 0 {
		return fmt.Errorf("track %d: duration is negative: %d", trackID, pkt.Duration)
	}

	if t.hasLast && pkt.DTS < t.lastDTS {
		return fmt.Errorf("track %d: %w: %d < %d", trackID, ErrNonMonotonicDTS, pkt.DTS, t.lastDTS)
	}

	t.lastDTS = pkt.DTS
	t.hasLast = true

	t.pending.Push(pkt, false)

	m.deliverSubtitles()

	return nil
}

// SetDiscontinuity marks the next packet of a subtitle track as a discontinuity,
// disabling the normalization of its start.
func (m *Muxer) SetDiscontinuity(trackID int) error {
	t := m.findSubtitleTrack(trackID)
	if t == nil {
		return fmt.Errorf("%w: %d", ErrTrackNotFound, trackID)
	}

	t.track.Discontinuity = true
	return nil
}

// Close flushes remaining samples and packets.
func (m *Muxer) Close() error {
	for _, st := range m.subtitleTracks {
		st.deliverAll()
	}

	return m.flush(true)
}

// Stats returns muxer statistics.
func (m *Muxer) Stats() Stats {
	s := m.stats
	if m.cw != nil {
		s.Bytes = m.cw.n
	}
	return s
}

func (m *Muxer) snapshots() []squash.TrackSnapshot {
	ret := make([]squash.TrackSnapshot, 0, len(m.mediaTracks)+len(m.subtitleTracks))
	for _, t := range m.mediaTracks {
		ret = append(ret, t.snapshot())
	}
	for _, t := range m.subtitleTracks {
		ret = append(ret, t.track.Snapshot())
	}
	return ret
}

func (m *Muxer) flush(final bool) error {
	hasSamples := false
	for _, t := range m.mediaTracks {
		if t.partTrack != nil {
			hasSamples = true
			break
		}
	}

	if !hasSamples {
		if !final {
			return nil
		}

		hasContent := false
		for _, st := range m.subtitleTracks {
			if st.hasContent() {
				hasContent = true
				break
			}
		}
		if !hasContent {
			return nil
		}
	}

	part := &fmp4.Part{
		SequenceNumber: m.nextSequence,
	}

	for _, t := range m.mediaTracks {
		if t.partTrack != nil {
			part.Tracks = append(part.Tracks, t.partTrack)
		}
	}

	snapshots := m.snapshots()

	for i, st := range m.subtitleTracks {
		siblings := make([]squash.TrackSnapshot, 0, len(snapshots)-1)
		siblings = append(siblings, snapshots[:len(m.mediaTracks)+i]...)
		siblings = append(siblings, snapshots[len(m.mediaTracks)+i+1:]...)

		pkt, stats, err := m.squasher.GenerateFragmentPacket(squash.Request{
			Track:    st.track,
			Siblings: siblings,
			PeekNext: st.peekNext,
			Final:    final,
		})
		if err != nil {
			return fmt.Errorf("track %d: unable to generate subtitle sample: %w", st.track.ID, err)
		}

		m.stats.add(stats)

		part.Tracks = append(part.Tracks, st.partTrack(pkt))
	}

	err := part.Marshal(&m.outBuf)
	if err != nil {
		return err
	}

	_, err = m.cw.Write(m.outBuf.Bytes())
	m.outBuf.Reset()
	if err != nil {
		return err
	}

	m.Log(logger.Debug, "fragment %d written", m.nextSequence)

	m.nextSequence++
	m.stats.Fragments++

	for _, t := range m.mediaTracks {
		t.partTrack = nil
	}
	m.fragmentOpen = false

	return nil
}
