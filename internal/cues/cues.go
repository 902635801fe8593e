// Package cues contains the cue list reader.
package cues

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/bluenviron/ttmlfrag/internal/conf"
	"github.com/bluenviron/ttmlfrag/internal/conf/yamlwrapper"
	"github.com/bluenviron/ttmlfrag/internal/rational"
	"github.com/bluenviron/ttmlfrag/internal/squash"
	"github.com/bluenviron/ttmlfrag/internal/ttml"
)

// ErrInvalidCue is returned when a cue has invalid timing or no content.
var ErrInvalidCue = errors.New("invalid cue")

// Cue is a timed text entry.
type Cue struct {
	Begin conf.Duration `json:"begin"`
	End   conf.Duration `json:"end"`

	// plain text, escaped before being embedded.
	Text string `json:"text"`

	// TTML body markup, embedded as is. It takes precedence over Text.
	Markup string `json:"markup"`
}

// List is a cue list.
type List struct {
	Cues []Cue `json:"cues"`
}

// Load reads a cue list from a YAML file.
func Load(fpath string) (*List, error) {
	byts, err := os.ReadFile(fpath)
	if err != nil {
		return nil, err
	}

	return Unmarshal(byts)
}

// Unmarshal decodes a YAML cue list and validates it.
func Unmarshal(byts []byte) (*List, error) {
	var l List
	err := yamlwrapper.Unmarshal(byts, &l)
	if err != nil {
		return nil, err
	}

	for i, c := range l.Cues {
		switch {
		case c.Begin < 0:
			return nil, fmt.Errorf("%w: cue %d begins before zero", ErrInvalidCue, i)

		case c.End <= c.Begin:
			return nil, fmt.Errorf("%w: cue %d ends before it begins", ErrInvalidCue, i)

		case c.Text == "" && c.Markup == "":
			return nil, fmt.Errorf("%w: cue %d is empty", ErrInvalidCue, i)
		}
	}

	return &l, nil
}

// Packets converts cues into subtitle packets, sorted by begin time.
// Overlapping cues are kept and are trimmed by the squasher.
func (l *List) Packets(tb rational.TimeBase) []*squash.Packet {
	cues := make([]Cue, len(l.Cues))
	copy(cues, l.Cues)

	sort.SliceStable(cues, func(i, j int) bool {
		return cues[i].Begin < cues[j].Begin
	})

	pkts := make([]*squash.Packet, len(cues))

	for i, c := range cues {
		dts := rational.FromDuration(time.Duration(c.Begin), tb)
		end := rational.FromDuration(time.Duration(c.End), tb)

		var payload []byte
		if c.Markup != "" {
			payload = []byte(c.Markup)
		} else {
			payload = ttml.EscapeText(c.Text)
		}

		pkts[i] = &squash.Packet{
			DTS:      dts,
			PTS:      dts,
			Duration: end - dts,
			Payload:  payload,
			Key:      true,
		}
	}

	return pkts
}
