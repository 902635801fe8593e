// Package conf contains the job configuration.
package conf

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/bluenviron/ttmlfrag/internal/conf/env"
	"github.com/bluenviron/ttmlfrag/internal/conf/yamlwrapper"
	"github.com/bluenviron/ttmlfrag/internal/logger"
	"github.com/bluenviron/ttmlfrag/internal/squash"
)

// EnvPrefix is the prefix of environment variables that override the configuration.
const EnvPrefix = "TTMLFRAG"

var reLanguage = regexp.MustCompile("^[a-z]{3}$")

func firstThatExists(paths []string) string {
	for _, pa := range paths {
		_, err := os.Stat(pa)
		if err == nil {
			return pa
		}
	}
	return ""
}

func contains(list []logger.Destination, item logger.Destination) bool {
	for _, i := range list {
		if i == item {
			return true
		}
	}
	return false
}

// Conf is a configuration.
type Conf struct {
	// Log
	LogLevel        LogLevel        `json:"logLevel"`
	LogDestinations LogDestinations `json:"logDestinations"`
	LogStructured   bool            `json:"logStructured"`
	LogFile         string          `json:"logFile"`
	SysLogPrefix    string          `json:"sysLogPrefix"`

	// Fragmenting
	FragmentDuration Duration `json:"fragmentDuration"`

	// Subtitles
	SubtitleProfile   SubtitleProfile `json:"subtitleProfile"`
	SubtitleLanguage  string          `json:"subtitleLanguage"`
	SubtitleTimeScale uint32          `json:"subtitleTimeScale"`
	Discontinuity     bool            `json:"discontinuity"`
	MaxDocumentSize   StringSize      `json:"maxDocumentSize"`

	// Completion
	MetricsFile   string `json:"metricsFile"`
	RunOnComplete string `json:"runOnComplete"`
}

func (conf *Conf) setDefaults() {
	conf.LogLevel = LogLevel(logger.Info)
	conf.LogDestinations = LogDestinations{logger.DestinationStdout}
	conf.LogFile = "ttmlfrag.log"
	conf.SysLogPrefix = "ttmlfrag"
	conf.FragmentDuration = Duration(2 * time.Second)
	conf.SubtitleProfile = SubtitleProfile(squash.ProfileMP4)
	conf.SubtitleLanguage = "und"
	conf.SubtitleTimeScale = 1000
	conf.MaxDocumentSize = 1024 * 1024
}

// Load loads a Conf.
func Load(fpath string, defaultConfPaths []string) (*Conf, string, error) {
	conf := &Conf{}

	fpath, err := conf.loadFromFile(fpath, defaultConfPaths)
	if err != nil {
		return nil, "", err
	}

	err = env.Load(EnvPrefix, conf)
	if err != nil {
		return nil, "", err
	}

	err = conf.Validate()
	if err != nil {
		return nil, "", err
	}

	return conf, fpath, nil
}

func (conf *Conf) loadFromFile(fpath string, defaultConfPaths []string) (string, error) {
	if fpath == "" {
		fpath = firstThatExists(defaultConfPaths)

		// when the configuration file is not explicitly set,
		// it is optional.
		if fpath == "" {
			conf.setDefaults()
			return "", nil
		}
	}

	byts, err := os.ReadFile(fpath)
	if err != nil {
		return "", err
	}

	err = yamlwrapper.Unmarshal(byts, conf)
	if err != nil {
		return "", err
	}

	return fpath, nil
}

// Validate checks the configuration for errors.
func (conf *Conf) Validate() error {
	if len(conf.LogDestinations) == 0 {
		return fmt.Errorf("'logDestinations' must contain at least one destination")
	}
	if contains(conf.LogDestinations, logger.DestinationFile) && conf.LogFile == "" {
		return fmt.Errorf("'logFile' is required when logging to a file")
	}
	if conf.FragmentDuration <= 0 {
		return fmt.Errorf("'fragmentDuration' must be greater than zero")
	}
	if !reLanguage.MatchString(conf.SubtitleLanguage) {
		return fmt.Errorf("'subtitleLanguage' must be a three-letter lowercase ISO 639-2 code")
	}
	if conf.SubtitleTimeScale == 0 {
		return fmt.Errorf("'subtitleTimeScale' must be greater than zero")
	}
	if conf.MaxDocumentSize == 0 {
		return fmt.Errorf("'maxDocumentSize' must be greater than zero")
	}

	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (conf *Conf) UnmarshalJSON(b []byte) error {
	conf.setDefaults()

	type alias Conf
	d := json.NewDecoder(bytes.NewReader(b))
	d.DisallowUnknownFields()
	return d.Decode((*alias)(conf))
}

// Clone clones the configuration.
func (conf Conf) Clone() *Conf {
	enc, err := json.Marshal(conf)
	if err != nil {
		panic(err)
	}

	var dest Conf
	err = json.Unmarshal(enc, &dest)
	if err != nil {
		panic(err)
	}

	return &dest
}
