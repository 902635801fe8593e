package remux

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/bluenviron/mediacommon/v2/pkg/formats/fmp4"

	"github.com/bluenviron/ttmlfrag/internal/rational"
)

type inputSample struct {
	trackID int
	dts     int64
	dtsGo   time.Duration
	sample  *fmp4.Sample
}

func boxSize(buf []byte, typ string) (uint32, error) {
	if len(buf) < 8 || !bytes.Equal(buf[4:8], []byte(typ)) {
		return 0, fmt.Errorf("%s box not found", typ)
	}

	size := uint32(buf[0])<<24 | uint32(buf[1])<<16 | uint32(buf[2])<<8 | uint32(buf[3])
	if size < 8 || int(size) > len(buf) {
		return 0, fmt.Errorf("invalid %s box size", typ)
	}

	return size, nil
}

// readInit returns the initialization segment and its size.
func readInit(buf []byte) (*fmp4.Init, int, error) {
	ftypSize, err := boxSize(buf, "ftyp")
	if err != nil {
		return nil, 0, err
	}

	moovSize, err := boxSize(buf[ftypSize:], "moov")
	if err != nil {
		return nil, 0, err
	}

	initSize := int(ftypSize + moovSize)

	var init fmp4.Init
	err = init.Unmarshal(bytes.NewReader(buf[:initSize]))
	if err != nil {
		return nil, 0, err
	}

	return &init, initSize, nil
}

func findTimeScale(init *fmp4.Init, id int) (uint32, bool) {
	for _, track := range init.Tracks {
		if track.ID == id {
			return track.TimeScale, true
		}
	}
	return 0, false
}

// readSamples returns samples of all fragments, in decoding order.
func readSamples(init *fmp4.Init, buf []byte) ([]*inputSample, error) {
	var parts fmp4.Parts
	err := parts.Unmarshal(buf)
	if err != nil {
		return nil, err
	}

	var samples []*inputSample

	for _, part := range parts {
		for _, pt := range part.Tracks {
			timeScale, ok := findTimeScale(init, pt.ID)
			if !ok {
				return nil, fmt.Errorf("fragment references unknown track %d", pt.ID)
			}

			tb := rational.FromClockRate(timeScale)
			dts := int64(pt.BaseTime)

			for _, sample := range pt.Samples {
				samples = append(samples, &inputSample{
					trackID: pt.ID,
					dts:     dts,
					dtsGo:   rational.ToDuration(dts, tb),
					sample:  sample,
				})
				dts += int64(sample.Duration)
			}
		}
	}

	sortSamples(samples)

	return samples, nil
}

// sortSamples interleaves tracks by decoding time.
// Samples of the same track keep their order.
func sortSamples(samples []*inputSample) {
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].dtsGo < samples[j].dtsGo
	})
}
