package conf

import (
	"encoding/json"

	"github.com/bluenviron/ttmlfrag/internal/squash"
)

// SubtitleProfile is the subtitleProfile parameter.
type SubtitleProfile squash.Profile

// MarshalJSON implements json.Marshaler.
func (p SubtitleProfile) MarshalJSON() ([]byte, error) {
	return json.Marshal(squash.Profile(p).String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *SubtitleProfile) UnmarshalJSON(b []byte) error {
	var in string
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}

	return p.UnmarshalEnv("", in)
}

// UnmarshalEnv implements env.Unmarshaler.
func (p *SubtitleProfile) UnmarshalEnv(_ string, v string) error {
	prof, err := squash.ParseProfile(v)
	if err != nil {
		return err
	}
	*p = SubtitleProfile(prof)
	return nil
}
