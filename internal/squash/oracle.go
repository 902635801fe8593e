package squash

import (
	"github.com/bluenviron/ttmlfrag/internal/rational"
)

// Bounds computes the start and end of the next fragment of a track,
// in the track time base, from its own timeline and the ones of its siblings.
// Squashed siblings and siblings that did not emit anything are ignored.
func Bounds(own TrackSnapshot, siblings []TrackSnapshot) (int64, int64) {
	var start, end int64
	hasStart := false
	hasEnd := false

	if own.HasStart {
		start = own.End()
		end = start
		hasStart = true
		hasEnd = true
	}

	for _, sib := range siblings {
		if sib.Squashed || !sib.HasStart {
			continue
		}

		if !own.HasStart {
			sibStart := rational.Rescale(sib.StartTS, sib.TimeBase, own.TimeBase)
			if !hasStart || sibStart < start {
				start = sibStart
				hasStart = true
			}
		}

		sibEnd := rational.Rescale(sib.End(), sib.TimeBase, own.TimeBase)
		if !hasEnd || sibEnd > end {
			end = sibEnd
			hasEnd = true
		}
	}

	// edit lists are not supported, therefore start is never negative.
	if start < 0 {
		start = 0
	}

	if end < start {
		end = start
	}

	return start, end
}
