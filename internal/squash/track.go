package squash

import (
	"errors"
	"fmt"

	"github.com/bluenviron/ttmlfrag/internal/rational"
)

// ErrUnknownProfile is returned when a subtitle profile name is not recognized.
var ErrUnknownProfile = errors.New("unknown subtitle profile")

// Profile is a timestamp convention of embedded documents.
type Profile int

// profiles.
const (
	// ProfileMP4 ('stpp') uses timestamps relative to the presentation.
	ProfileMP4 Profile = iota

	// ProfileISMV ('dfxp') uses timestamps relative to the start of each document.
	ProfileISMV
)

// ParseProfile parses a profile name.
func ParseProfile(s string) (Profile, error) {
	switch s {
	case "stpp":
		return ProfileMP4, nil

	case "dfxp":
		return ProfileISMV, nil
	}
	return 0, fmt.Errorf("%w: '%s'", ErrUnknownProfile, s)
}

func (p Profile) String() string {
	switch p {
	case ProfileMP4:
		return "stpp"

	case ProfileISMV:
		return "dfxp"
	}
	return "unknown"
}

// Track is a subtitle track whose packets are squashed into one packet per fragment.
type Track struct {
	ID       int
	TimeBase rational.TimeBase
	Profile  Profile
	Language string

	// emitted timeline.
	StartTS  int64
	HasStart bool
	Duration int64

	Discontinuity bool

	Queue      Queue
	QueueStart int64
	QueueEnd   int64
}

// End returns the end point of emitted packets.
func (t *Track) End() int64 {
	return t.StartTS + t.Duration
}

// Enqueue adds a packet to the queue and updates queue bounds.
func (t *Track) Enqueue(pkt *Packet) {
	if t.Queue.Len() == 0 {
		t.QueueStart = pkt.DTS
		t.QueueEnd = pkt.End()
	} else if pkt.End() > t.QueueEnd {
		t.QueueEnd = pkt.End()
	}
	t.Queue.Push(pkt, false)
}

// Snapshot returns a read-only copy of the emitted timeline.
func (t *Track) Snapshot() TrackSnapshot {
	return TrackSnapshot{
		TimeBase: t.TimeBase,
		StartTS:  t.StartTS,
		HasStart: t.HasStart,
		Duration: t.Duration,
		Squashed: true,
	}
}

func (t *Track) commit(pkt *Packet) {
	if !t.HasStart {
		t.StartTS = pkt.DTS
		t.HasStart = true
	}
	t.Duration = pkt.End() - t.StartTS
	t.Discontinuity = false
}

// TrackSnapshot is a read-only view of the emitted timeline of a track.
type TrackSnapshot struct {
	TimeBase rational.TimeBase
	StartTS  int64
	HasStart bool
	Duration int64

	// Squashed is true when the track is itself squashed.
	Squashed bool
}

// End returns the end point of emitted samples.
func (s TrackSnapshot) End() int64 {
	return s.StartTS + s.Duration
}
