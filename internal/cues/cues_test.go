package cues

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bluenviron/ttmlfrag/internal/rational"
	"github.com/bluenviron/ttmlfrag/internal/squash"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	fpath := filepath.Join(t.TempDir(), "cues.yml")
	err := os.WriteFile(fpath, []byte("cues:\n"+
		"  - begin: 1800ms\n"+
		"    end: 2600ms\n"+
		"    text: \"b & c\\nd\"\n"+
		"  - begin: 500ms\n"+
		"    end: 1500ms\n"+
		"    markup: '<span tts:fontStyle=\"italic\">a</span>'\n"), 0o644)
	require.NoError(t, err)

	l, err := Load(fpath)
	require.NoError(t, err)
	require.Len(t, l.Cues, 2)

	pkts := l.Packets(rational.TimeBase{Num: 1, Den: 1000})
	require.Equal(t, []*squash.Packet{
		{
			DTS:      500,
			PTS:      500,
			Duration: 1000,
			Payload:  []byte(`<span tts:fontStyle="italic">a</span>`),
			Key:      true,
		},
		{
			DTS:      1800,
			PTS:      1800,
			Duration: 800,
			Payload:  []byte("b &amp; c<br/>d"),
			Key:      true,
		},
	}, pkts)
}

func TestPacketsTimeBase(t *testing.T) {
	l, err := Unmarshal([]byte("cues:\n" +
		"  - begin: 1s\n" +
		"    end: 1500ms\n" +
		"    text: a\n"))
	require.NoError(t, err)

	pkts := l.Packets(rational.FromClockRate(90000))
	require.Equal(t, int64(90000), pkts[0].DTS)
	require.Equal(t, int64(45000), pkts[0].Duration)
}

func TestUnmarshalEmpty(t *testing.T) {
	l, err := Unmarshal([]byte(""))
	require.NoError(t, err)
	require.Empty(t, l.Packets(rational.TimeBase{Num: 1, Den: 1000}))
}

func TestUnmarshalErrors(t *testing.T) {
	for _, ca := range []struct {
		name string
		byts string
		err  string
	}{
		{
			"negative begin",
			"cues: [{begin: -1s, end: 1s, text: a}]",
			"invalid cue: cue 0 begins before zero",
		},
		{
			"reversed",
			"cues: [{begin: 2s, end: 1s, text: a}]",
			"invalid cue: cue 0 ends before it begins",
		},
		{
			"empty",
			"cues: [{begin: 1s, end: 2s}]",
			"invalid cue: cue 0 is empty",
		},
		{
			"unknown field",
			"cues: [{begin: 1s, end: 2s, text: a, style: bold}]",
			`json: unknown field "style"`,
		},
	} {
		t.Run(ca.name, func(t *testing.T) {
			_, err := Unmarshal([]byte(ca.byts))
			require.EqualError(t, err, ca.err)
			if ca.name != "unknown field" {
				require.ErrorIs(t, err, ErrInvalidCue)
			}
		})
	}
}
