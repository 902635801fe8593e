package conf

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bluenviron/ttmlfrag/internal/logger"
)

// LogDestinations is the logDestinations parameter.
type LogDestinations []logger.Destination

func destinationName(d logger.Destination) (string, error) {
	switch d {
	case logger.DestinationStdout:
		return "stdout", nil

	case logger.DestinationFile:
		return "file", nil

	case logger.DestinationSyslog:
		return "syslog", nil
	}
	return "", fmt.Errorf("invalid log destination: %v", d)
}

// MarshalJSON implements json.Marshaler.
func (d LogDestinations) MarshalJSON() ([]byte, error) {
	out := make([]string, len(d))

	for i, v := range d {
		var err error
		out[i], err = destinationName(v)
		if err != nil {
			return nil, err
		}
	}

	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *LogDestinations) UnmarshalJSON(b []byte) error {
	var in []string
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}

	*d = nil

	for _, dest := range in {
		var v logger.Destination

		switch dest {
		case "stdout":
			v = logger.DestinationStdout

		case "file":
			v = logger.DestinationFile

		case "syslog":
			v = logger.DestinationSyslog

		default:
			return fmt.Errorf("invalid log destination: %s", dest)
		}

		for _, prev := range *d {
			if prev == v {
				return fmt.Errorf("log destination set twice: %s", dest)
			}
		}

		*d = append(*d, v)
	}

	return nil
}

// UnmarshalEnv implements env.Unmarshaler.
func (d *LogDestinations) UnmarshalEnv(_ string, v string) error {
	byts, _ := json.Marshal(strings.Split(v, ","))
	return d.UnmarshalJSON(byts)
}
