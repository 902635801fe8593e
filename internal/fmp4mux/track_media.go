package fmp4mux

import (
	"time"

	"github.com/bluenviron/mediacommon/v2/pkg/formats/fmp4"

	"github.com/bluenviron/ttmlfrag/internal/logger"
	"github.com/bluenviron/ttmlfrag/internal/rational"
	"github.com/bluenviron/ttmlfrag/internal/squash"
)

type mediaTrack struct {
	m         *Muxer
	initTrack *fmp4.InitTrack
	timeBase  rational.TimeBase

	started    bool
	startDTS   int64
	lastDTS    int64
	lastSample *fmp4.Sample

	partTrack *fmp4.PartTrack
}

func (t *mediaTrack) endDTS() int64 {
	if t.lastSample == nil {
		return t.lastDTS
	}
	return t.lastDTS + int64(t.lastSample.Duration)
}

func (t *mediaTrack) snapshot() squash.TrackSnapshot {
	return squash.TrackSnapshot{
		TimeBase: t.timeBase,
		StartTS:  t.startDTS,
		HasStart: t.started,
		Duration: t.endDTS() - t.startDTS,
	}
}

func (t *mediaTrack) dtsGo(dts int64) time.Duration {
	return rational.ToDuration(dts, t.timeBase)
}

func (t *mediaTrack) write(dts int64, sample *fmp4.Sample) {
	if !t.started {
		t.started = true
		t.startDTS = dts
	} else if end := t.endDTS(); dts != end {
		// timestamps are continuous inside a fragment,
		// the gap or the overlap is absorbed by the previous sample.
		if t.partTrack != nil {
			diff := dts - t.lastDTS
			if diff < 0 {
				diff = 0
			}
			t.m.Log(logger.Debug, "track %d: sample at %d does not follow previous one (%d), adjusting duration",
				t.initTrack.ID, dts, end)
			t.lastSample.Duration = uint32(diff)
		}
	}

	if t.partTrack == nil {
		t.partTrack = &fmp4.PartTrack{
			ID:       t.initTrack.ID,
			BaseTime: uint64(dts),
		}
	}

	t.partTrack.Samples = append(t.partTrack.Samples, sample)
	t.lastDTS = dts
	t.lastSample = sample
}
