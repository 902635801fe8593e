package test

import (
	"github.com/bluenviron/mediacommon/v2/pkg/formats/fmp4"
	"github.com/bluenviron/mediacommon/v2/pkg/formats/fmp4/seekablebuffer"
)

// FMP4File returns a fragmented MP4 file with a H264 track (ID 1, 90kHz)
// and an Opus track (ID 2, 48kHz). It contains three fragments of 2 seconds,
// each made of four samples per track with a key frame at the beginning.
func FMP4File() ([]byte, error) {
	var buf seekablebuffer.Buffer

	init := fmp4.Init{
		Tracks: []*fmp4.InitTrack{
			{
				ID:        1,
				TimeScale: 90000,
				Codec:     CodecH264,
			},
			{
				ID:        2,
				TimeScale: 48000,
				Codec:     CodecOpus,
			},
		},
	}
	err := init.Marshal(&buf)
	if err != nil {
		return nil, err
	}

	out := append([]byte(nil), buf.Bytes()...)

	for i := 0; i < 3; i++ {
		video := &fmp4.PartTrack{
			ID:       1,
			BaseTime: uint64(i) * 180000,
		}
		audio := &fmp4.PartTrack{
			ID:       2,
			BaseTime: uint64(i) * 96000,
		}

		for j := 0; j < 4; j++ {
			video.Samples = append(video.Samples, &fmp4.Sample{
				Duration:        45000,
				IsNonSyncSample: j != 0,
				Payload:         []byte{1, 2, byte(i*4 + j)},
			})
			audio.Samples = append(audio.Samples, &fmp4.Sample{
				Duration: 24000,
				Payload:  []byte{3, 4, byte(i*4 + j)},
			})
		}

		part := fmp4.Part{
			SequenceNumber: uint32(i + 1),
			Tracks:         []*fmp4.PartTrack{video, audio},
		}

		buf.Reset()
		err = part.Marshal(&buf)
		if err != nil {
			return nil, err
		}

		out = append(out, buf.Bytes()...)
	}

	return out, nil
}

// CueFile is a cue list that matches FMP4File.
const CueFile = "cues:\n" +
	"  - {begin: 500ms, end: 1500ms, text: a}\n" +
	"  - {begin: 1800ms, end: 2600ms, text: b}\n" +
	"  - {begin: 4200ms, end: 5s, text: c}\n"
