package fmp4mux

import (
	"bytes"
	"fmt"

	amp4 "github.com/abema/go-mp4"
	"github.com/bluenviron/mediacommon/v2/pkg/formats/fmp4"
	"github.com/bluenviron/mediacommon/v2/pkg/formats/fmp4/seekablebuffer"

	"github.com/bluenviron/ttmlfrag/internal/squash"
)

const (
	movieTimeScale = 1000
	ttmlNamespace  = "http://www.w3.org/ns/ttml"
)

var (
	boxTypeStpp = amp4.StrToBoxType("stpp")
	boxTypeDfxp = amp4.StrToBoxType("dfxp")
	boxTypeSthd = amp4.StrToBoxType("sthd")
	boxTypeNmhd = amp4.StrToBoxType("nmhd")
)

type initWriter struct {
	w *amp4.Writer
}

func (w *initWriter) writeBoxStart(box amp4.IImmutableBox) error {
	_, err := w.w.StartBox(&amp4.BoxInfo{
		Type: box.GetType(),
	})
	if err != nil {
		return err
	}

	_, err = amp4.Marshal(w.w, box, amp4.Context{})
	return err
}

func (w *initWriter) writeBoxEnd() error {
	_, err := w.w.EndBox()
	return err
}

func (w *initWriter) writeBox(box amp4.IImmutableBox) error {
	err := w.writeBoxStart(box)
	if err != nil {
		return err
	}

	return w.writeBoxEnd()
}

// writeRawBox writes a box whose payload is not known to the box library.
func (w *initWriter) writeRawBox(typ amp4.BoxType, payload []byte) error {
	_, err := w.w.StartBox(&amp4.BoxInfo{
		Type: typ,
	})
	if err != nil {
		return err
	}

	_, err = w.w.Write(payload)
	if err != nil {
		return err
	}

	return w.writeBoxEnd()
}

// mediaTraks returns the encoded trak boxes of audio and video tracks.
func mediaTraks(tracks []*fmp4.InitTrack) ([][]byte, error) {
	init := fmp4.Init{
		Tracks: tracks,
	}

	var buf seekablebuffer.Buffer
	err := init.Marshal(&buf)
	if err != nil {
		return nil, err
	}

	byts := buf.Bytes()
	var traks [][]byte

	_, err = amp4.ReadBoxStructure(bytes.NewReader(byts), func(h *amp4.ReadHandle) (interface{}, error) {
		switch h.BoxInfo.Type {
		case amp4.BoxTypeMoov():
			return h.Expand()

		case amp4.BoxTypeTrak():
			traks = append(traks, byts[h.BoxInfo.Offset:h.BoxInfo.Offset+h.BoxInfo.Size])
		}
		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	if len(traks) != len(tracks) {
		return nil, fmt.Errorf("expected %d trak boxes, found %d", len(tracks), len(traks))
	}

	return traks, nil
}

func ftypBox(profile squash.Profile) *amp4.Ftyp {
	if profile == squash.ProfileISMV {
		return &amp4.Ftyp{
			MajorBrand:   [4]byte{'i', 's', 'm', 'l'},
			MinorVersion: 1,
			CompatibleBrands: []amp4.CompatibleBrandElem{
				{CompatibleBrand: [4]byte{'i', 's', 'm', 'l'}},
				{CompatibleBrand: [4]byte{'p', 'i', 'f', 'f'}},
				{CompatibleBrand: [4]byte{'i', 's', 'o', '2'}},
			},
		}
	}

	return &amp4.Ftyp{
		MajorBrand:   [4]byte{'i', 's', 'o', '6'},
		MinorVersion: 1,
		CompatibleBrands: []amp4.CompatibleBrandElem{
			{CompatibleBrand: [4]byte{'i', 's', 'o', '6'}},
			{CompatibleBrand: [4]byte{'i', 's', 'o', '5'}},
			{CompatibleBrand: [4]byte{'i', 's', 'o', '2'}},
			{CompatibleBrand: [4]byte{'m', 'p', '4', '1'}},
		},
	}
}

// sampleEntry returns the payload of a stpp or dfxp sample entry.
func sampleEntry(profile squash.Profile) (amp4.BoxType, []byte) {
	// reserved (6 bytes) + data_reference_index
	payload := []byte{0, 0, 0, 0, 0, 0, 0, 1}

	if profile == squash.ProfileISMV {
		return boxTypeDfxp, payload
	}

	// XMLSubtitleSampleEntry: namespace, schema_location, auxiliary_mime_types
	payload = append(payload, []byte(ttmlNamespace)...)
	payload = append(payload, 0, 0, 0)
	return boxTypeStpp, payload
}

func languageCode(lang string) [3]byte {
	if len(lang) != 3 {
		return [3]byte{'u', 'n', 'd'}
	}
	return [3]byte{lang[0], lang[1], lang[2]}
}

func (w *initWriter) writeSubtitleTrak(t *subtitleTrack, profile squash.Profile) error {
	/*
		|trak|
		|    |tkhd|
		|    |mdia|
		|    |    |mdhd|
		|    |    |hdlr|
		|    |    |minf|
		|    |    |    |sthd| (stpp)
		|    |    |    |nmhd| (dfxp)
		|    |    |    |dinf|
		|    |    |    |    |dref|
		|    |    |    |    |    |url|
		|    |    |    |stbl|
		|    |    |    |    |stsd|
		|    |    |    |    |    |stpp|
		|    |    |    |    |    |dfxp|
		|    |    |    |    |stts|
		|    |    |    |    |stsc|
		|    |    |    |    |stsz|
		|    |    |    |    |stco|
	*/

	err := w.writeBoxStart(&amp4.Trak{}) // <trak>
	if err != nil {
		return err
	}

	err = w.writeBox(&amp4.Tkhd{ // <tkhd/>
		FullBox: amp4.FullBox{
			Flags: [3]byte{0, 0, 3},
		},
		TrackID: uint32(t.track.ID),
		Matrix:  [9]int32{0x10000, 0, 0, 0, 0x10000, 0, 0, 0, 0x40000000},
	})
	if err != nil {
		return err
	}

	err = w.writeBoxStart(&amp4.Mdia{}) // <mdia>
	if err != nil {
		return err
	}

	err = w.writeBox(&amp4.Mdhd{ // <mdhd/>
		Timescale: uint32(t.track.TimeBase.Den),
		Language:  languageCode(t.track.Language),
	})
	if err != nil {
		return err
	}

	handlerType := [4]byte{'s', 'u', 'b', 't'}
	mediaHeader := boxTypeSthd
	if profile == squash.ProfileISMV {
		handlerType = [4]byte{'t', 'e', 'x', 't'}
		mediaHeader = boxTypeNmhd
	}

	err = w.writeBox(&amp4.Hdlr{ // <hdlr/>
		HandlerType: handlerType,
		Name:        "SubtitleHandler",
	})
	if err != nil {
		return err
	}

	err = w.writeBoxStart(&amp4.Minf{}) // <minf>
	if err != nil {
		return err
	}

	// version and flags
	err = w.writeRawBox(mediaHeader, []byte{0, 0, 0, 0}) // <sthd/> or <nmhd/>
	if err != nil {
		return err
	}

	err = w.writeBoxStart(&amp4.Dinf{}) // <dinf>
	if err != nil {
		return err
	}

	err = w.writeBoxStart(&amp4.Dref{ // <dref>
		EntryCount: 1,
	})
	if err != nil {
		return err
	}

	err = w.writeBox(&amp4.Url{ // <url/>
		FullBox: amp4.FullBox{
			Flags: [3]byte{0, 0, 1},
		},
	})
	if err != nil {
		return err
	}

	err = w.writeBoxEnd() // </dref>
	if err != nil {
		return err
	}

	err = w.writeBoxEnd() // </dinf>
	if err != nil {
		return err
	}

	err = w.writeBoxStart(&amp4.Stbl{}) // <stbl>
	if err != nil {
		return err
	}

	err = w.writeBoxStart(&amp4.Stsd{ // <stsd>
		EntryCount: 1,
	})
	if err != nil {
		return err
	}

	entryType, entryPayload := sampleEntry(profile)
	err = w.writeRawBox(entryType, entryPayload) // <stpp/> or <dfxp/>
	if err != nil {
		return err
	}

	err = w.writeBoxEnd() // </stsd>
	if err != nil {
		return err
	}

	for _, box := range []amp4.IImmutableBox{
		&amp4.Stts{}, // <stts/>
		&amp4.Stsc{}, // <stsc/>
		&amp4.Stsz{}, // <stsz/>
		&amp4.Stco{}, // <stco/>
	} {
		err = w.writeBox(box)
		if err != nil {
			return err
		}
	}

	err = w.writeBoxEnd() // </stbl>
	if err != nil {
		return err
	}

	err = w.writeBoxEnd() // </minf>
	if err != nil {
		return err
	}

	err = w.writeBoxEnd() // </mdia>
	if err != nil {
		return err
	}

	return w.writeBoxEnd() // </trak>
}

func (m *Muxer) marshalInit() ([]byte, error) {
	/*
		|ftyp|
		|moov|
		|    |mvhd|
		|    |trak| (audio / video)
		|    |trak| (subtitles)
		|    |mvex|
		|    |    |trex|
	*/

	traks, err := mediaTraks(m.mediaInitTracks)
	if err != nil {
		return nil, err
	}

	var outBuf seekablebuffer.Buffer
	w := &initWriter{w: amp4.NewWriter(&outBuf)}

	err = w.writeBox(ftypBox(m.Profile)) // <ftyp/>
	if err != nil {
		return nil, err
	}

	err = w.writeBoxStart(&amp4.Moov{}) // <moov>
	if err != nil {
		return nil, err
	}

	maxID := 0
	for _, t := range m.mediaTracks {
		if t.initTrack.ID > maxID {
			maxID = t.initTrack.ID
		}
	}
	for _, t := range m.subtitleTracks {
		if t.track.ID > maxID {
			maxID = t.track.ID
		}
	}

	err = w.writeBox(&amp4.Mvhd{ // <mvhd/>
		Timescale:   movieTimeScale,
		Rate:        65536,
		Volume:      256,
		Matrix:      [9]int32{0x00010000, 0, 0, 0, 0x00010000, 0, 0, 0, 0x40000000},
		NextTrackID: uint32(maxID + 1),
	})
	if err != nil {
		return nil, err
	}

	for _, trak := range traks {
		_, err = w.w.Write(trak) // <trak/>
		if err != nil {
			return nil, err
		}
	}

	for _, t := range m.subtitleTracks {
		err = w.writeSubtitleTrak(t, m.Profile)
		if err != nil {
			return nil, err
		}
	}

	err = w.writeBoxStart(&amp4.Mvex{}) // <mvex>
	if err != nil {
		return nil, err
	}

	for _, t := range m.mediaTracks {
		err = w.writeBox(&amp4.Trex{ // <trex/>
			TrackID:                       uint32(t.initTrack.ID),
			DefaultSampleDescriptionIndex: 1,
		})
		if err != nil {
			return nil, err
		}
	}

	for _, t := range m.subtitleTracks {
		err = w.writeBox(&amp4.Trex{ // <trex/>
			TrackID:                       uint32(t.track.ID),
			DefaultSampleDescriptionIndex: 1,
		})
		if err != nil {
			return nil, err
		}
	}

	err = w.writeBoxEnd() // </mvex>
	if err != nil {
		return nil, err
	}

	err = w.writeBoxEnd() // </moov>
	if err != nil {
		return nil, err
	}

	return outBuf.Bytes(), nil
}

func (m *Muxer) writeInit() error {
	byts, err := m.marshalInit()
	if err != nil {
		return err
	}

	_, err = m.cw.Write(byts)
	return err
}
