package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bluenviron/ttmlfrag/internal/logger"
	"github.com/bluenviron/ttmlfrag/internal/squash"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, byts []byte) string {
	tmpf, err := os.CreateTemp(t.TempDir(), "ttmlfrag-")
	require.NoError(t, err)
	defer tmpf.Close()

	_, err = tmpf.Write(byts)
	require.NoError(t, err)

	return tmpf.Name()
}

func TestConfFromFile(t *testing.T) {
	tmpf := writeTempFile(t, []byte("logLevel: debug\n"+
		"fragmentDuration: 4s\n"+
		"subtitleProfile: dfxp\n"+
		"subtitleLanguage: ita\n"+
		"discontinuity: yes\n"+
		"maxDocumentSize: 64K\n"))

	conf, confPath, err := Load(tmpf, nil)
	require.NoError(t, err)
	require.Equal(t, tmpf, confPath)

	require.Equal(t, &Conf{
		LogLevel:          LogLevel(logger.Debug),
		LogDestinations:   LogDestinations{logger.DestinationStdout},
		LogFile:           "ttmlfrag.log",
		SysLogPrefix:      "ttmlfrag",
		FragmentDuration:  Duration(4 * time.Second),
		SubtitleProfile:   SubtitleProfile(squash.ProfileISMV),
		SubtitleLanguage:  "ita",
		SubtitleTimeScale: 1000,
		Discontinuity:     true,
		MaxDocumentSize:   64 * 1024,
	}, conf)
}

func TestConfDefaults(t *testing.T) {
	conf, confPath, err := Load("", []string{filepath.Join(t.TempDir(), "missing.yml")})
	require.NoError(t, err)
	require.Equal(t, "", confPath)

	require.Equal(t, Duration(2*time.Second), conf.FragmentDuration)
	require.Equal(t, SubtitleProfile(squash.ProfileMP4), conf.SubtitleProfile)
	require.Equal(t, "und", conf.SubtitleLanguage)
	require.Equal(t, StringSize(1024*1024), conf.MaxDocumentSize)
}

func TestConfEmptyFile(t *testing.T) {
	tmpf := writeTempFile(t, []byte(""))

	conf, _, err := Load(tmpf, nil)
	require.NoError(t, err)
	require.Equal(t, uint32(1000), conf.SubtitleTimeScale)
}

func TestConfEnvironment(t *testing.T) {
	t.Setenv("TTMLFRAG_FRAGMENTDURATION", "1d2s")
	t.Setenv("TTMLFRAG_SUBTITLEPROFILE", "dfxp")
	t.Setenv("TTMLFRAG_SUBTITLETIMESCALE", "90000")
	t.Setenv("TTMLFRAG_LOGDESTINATIONS", "stdout,file")
	t.Setenv("TTMLFRAG_RUNONCOMPLETE", "echo done")

	tmpf := writeTempFile(t, []byte("fragmentDuration: 4s\n"))

	conf, _, err := Load(tmpf, nil)
	require.NoError(t, err)

	require.Equal(t, Duration(24*time.Hour+2*time.Second), conf.FragmentDuration)
	require.Equal(t, SubtitleProfile(squash.ProfileISMV), conf.SubtitleProfile)
	require.Equal(t, uint32(90000), conf.SubtitleTimeScale)
	require.Equal(t, LogDestinations{logger.DestinationStdout, logger.DestinationFile}, conf.LogDestinations)
	require.Equal(t, "echo done", conf.RunOnComplete)
}

func TestConfErrors(t *testing.T) {
	for _, ca := range []struct {
		name string
		conf string
		err  string
	}{
		{
			"unknown field",
			"subtitleCodec: ttml\n",
			`json: unknown field "subtitleCodec"`,
		},
		{
			"invalid profile",
			"subtitleProfile: webvtt\n",
			"unknown subtitle profile: 'webvtt'",
		},
		{
			"invalid log level",
			"logLevel: verbose\n",
			"invalid log level: 'verbose'",
		},
		{
			"invalid log destination",
			"logDestinations: [stdout, udp]\n",
			"invalid log destination: udp",
		},
		{
			"empty log destinations",
			"logDestinations: []\n",
			"'logDestinations' must contain at least one destination",
		},
		{
			"zero fragment duration",
			"fragmentDuration: 0s\n",
			"'fragmentDuration' must be greater than zero",
		},
		{
			"invalid language",
			"subtitleLanguage: english\n",
			"'subtitleLanguage' must be a three-letter lowercase ISO 639-2 code",
		},
		{
			"zero time scale",
			"subtitleTimeScale: 0\n",
			"'subtitleTimeScale' must be greater than zero",
		},
	} {
		t.Run(ca.name, func(t *testing.T) {
			tmpf := writeTempFile(t, []byte(ca.conf))
			_, _, err := Load(tmpf, nil)
			require.EqualError(t, err, ca.err)
		})
	}
}

func TestDuration(t *testing.T) {
	for _, ca := range []struct {
		in  string
		out Duration
		str string
	}{
		{"2s", Duration(2 * time.Second), "2s"},
		{"1d", Duration(24 * time.Hour), "1d"},
		{"1d1h", Duration(25 * time.Hour), "1d1h0m0s"},
		{"-1d", Duration(-24 * time.Hour), "-1d"},
		{"500ms", Duration(500 * time.Millisecond), "500ms"},
	} {
		t.Run(ca.in, func(t *testing.T) {
			var d Duration
			err := d.UnmarshalJSON([]byte(`"` + ca.in + `"`))
			require.NoError(t, err)
			require.Equal(t, ca.out, d)
			require.Equal(t, ca.str, d.String())
		})
	}
}

func TestClone(t *testing.T) {
	conf, _, err := Load("", nil)
	require.NoError(t, err)

	clone := conf.Clone()
	require.Equal(t, conf, clone)

	clone.SubtitleLanguage = "fra"
	require.Equal(t, "und", conf.SubtitleLanguage)
}

func TestSampleConfFile(t *testing.T) {
	sample, _, err := Load("../../ttmlfrag.yml", nil)
	require.NoError(t, err)

	defaults, _, err := Load("", nil)
	require.NoError(t, err)

	require.Equal(t, defaults, sample)
}
