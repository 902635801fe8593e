// Package squash contains the squasher, which turns the queued packets of a
// subtitle track into exactly one packet per fragment.
package squash

import (
	"fmt"

	"github.com/bluenviron/ttmlfrag/internal/logger"
	"github.com/bluenviron/ttmlfrag/internal/rational"
)

type drainKind int

const (
	drainConsumed drainKind = iota
	drainSplit
	drainPushedBack
)

type drainResult struct {
	kind      drainKind
	remainder *Packet
}

// classify decides what to do with a packet given the fragment end.
// In case of a split, pkt is truncated and the remainder is returned.
// The last fragment keeps packets that start exactly at its end.
func classify(pkt *Packet, end int64, final bool) drainResult {
	switch {
	case pkt.DTS > end || (pkt.DTS == end && !final):
		return drainResult{kind: drainPushedBack}

	case pkt.End() > end:
		remainder := pkt.Clone()
		remainder.DTS = end
		remainder.PTS = end
		remainder.Duration = pkt.End() - end

		pkt.Duration = end - pkt.DTS

		return drainResult{kind: drainSplit, remainder: remainder}

	default:
		return drainResult{kind: drainConsumed}
	}
}

// Stats are statistics about a squashed packet.
type Stats struct {
	Written     int
	Splits      int
	PushBacks   int
	Repairs     int
	Placeholder bool
	Injected    bool
}

// Request is a request to generate the packet of a fragment.
type Request struct {
	Track *Track

	// Siblings are the timelines of the other tracks of the muxer.
	Siblings []TrackSnapshot

	// PeekNext returns the next packet of the track that has not been queued yet, or nil.
	PeekNext func() *Packet

	// Final is true when the fragment is the last one.
	Final bool
}

// Squasher generates fragment packets.
type Squasher struct {
	Encoder DocumentEncoder
	Parent  logger.Writer
}

// Log implements logger.Writer.
func (s *Squasher) Log(level logger.Level, format string, args ...interface{}) {
	s.Parent.Log(level, "[squash] "+format, args...)
}

// GenerateFragmentPacket drains the queue of a track and returns the single packet
// that covers the fragment. The packet is a placeholder when nothing was drained.
func (s *Squasher) GenerateFragmentPacket(req Request) (*Packet, Stats, error) {
	tr := req.Track
	var stats Stats

	calculatedStart, end := Bounds(tr.Snapshot(), req.Siblings)

	if req.Final && tr.Queue.Len() != 0 && tr.QueueEnd > end {
		end = tr.QueueEnd
	}

	var next *Packet
	if req.PeekNext != nil {
		next = req.PeekNext()
	}

	if next != nil && next.DTS < end {
		injected := next.Clone()
		injected.Duration = end - injected.DTS
		tr.Enqueue(injected)
		stats.Injected = true

		s.Log(logger.Debug, "track %d: packet at %d is within the fragment, injected with duration %d",
			tr.ID, injected.DTS, injected.Duration)
	}

	start := calculatedStart
	if tr.Queue.Len() != 0 && !tr.HasStart {
		start = tr.QueueStart

		if tr.Profile == ProfileMP4 && start > 0 && !tr.Discontinuity {
			start = 0
		}

		if calculatedStart < start {
			s.Log(logger.Debug, "track %d: calculated start (%d) < queue start (%d), using former",
				tr.ID, calculatedStart, start)
			start = calculatedStart
		}
	}

	docTimeBase := s.Encoder.TimeBase()

	doc, err := s.Encoder.NewDocument(StreamDescriptor{
		Language: tr.Language,
		TimeBase: tr.TimeBase,
	})
	if err != nil {
		return nil, Stats{}, fmt.Errorf("unable to create document: %w", err)
	}

	lastEnd := tr.End()
	hasLastEnd := tr.HasStart

	for tr.Queue.Len() != 0 {
		pkt := tr.Queue.PopFront()

		if hasLastEnd && pkt.DTS < lastEnd {
			diff := lastEnd - pkt.DTS

			s.Log(logger.Debug, "track %d: packet at %d overlaps previous one ending at %d, shifting by %d",
				tr.ID, pkt.DTS, lastEnd, diff)

			pkt.DTS += diff
			pkt.PTS = pkt.DTS
			pkt.Duration -= diff
			if pkt.Duration < 0 {
				pkt.Duration = 0
			}
			stats.Repairs++
		}

		res := classify(pkt, end, req.Final)

		if res.kind == drainPushedBack {
			s.Log(logger.Debug, "track %d: packet at %d is after fragment end (%d), pushed back",
				tr.ID, pkt.DTS, end)
			tr.Queue.Push(pkt, true)
			stats.PushBacks++
			break
		}

		if res.kind == drainSplit {
			s.Log(logger.Debug, "track %d: packet split at %d, remainder duration %d",
				tr.ID, end, res.remainder.Duration)
			tr.Queue.Push(res.remainder, true)
			stats.Splits++
		}

		lastEnd = pkt.End()
		hasLastEnd = true

		err = writeToDocument(doc, pkt, start, tr, docTimeBase)
		if err != nil {
			return nil, Stats{}, err
		}
		stats.Written++

		if res.kind == drainSplit {
			break
		}
	}

	duration := end - start
	if duration < 0 {
		duration = 0
	}

	// a next packet starting before end was injected above.
	if !stats.Injected && next != nil && start+duration > next.DTS {
		duration = next.DTS - start
		if duration < 0 {
			duration = 0
		}
	}

	payload, err := doc.Close()
	if err != nil {
		return nil, Stats{}, fmt.Errorf("unable to close document: %w", err)
	}
	stats.Placeholder = (stats.Written == 0)

	if front := tr.Queue.PeekFront(); front != nil {
		tr.QueueStart = front.DTS
	} else {
		tr.QueueStart = 0
		tr.QueueEnd = 0
	}

	out := &Packet{
		DTS:      start,
		PTS:      start,
		Duration: duration,
		Payload:  payload,
		Key:      true,
	}

	tr.commit(out)

	s.Log(logger.Debug, "track %d: generated packet, start %d, duration %d, written %d",
		tr.ID, out.DTS, out.Duration, stats.Written)

	return out, stats, nil
}

func writeToDocument(
	doc Document,
	pkt *Packet,
	start int64,
	tr *Track,
	docTimeBase rational.TimeBase,
) error {
	dts := pkt.DTS
	if tr.Profile == ProfileISMV {
		dts -= start
	}

	dts = rational.Rescale(dts, tr.TimeBase, docTimeBase)

	err := doc.WritePacket(&Packet{
		DTS:      dts,
		PTS:      dts,
		Duration: rational.Rescale(pkt.Duration, tr.TimeBase, docTimeBase),
		Payload:  pkt.Payload,
		Key:      true,
	})
	if err != nil {
		return fmt.Errorf("unable to write packet to document: %w", err)
	}

	return nil
}
