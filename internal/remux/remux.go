// Package remux contains the job that adds a subtitle track to a fragmented MP4 file.
package remux

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"code.cloudfoundry.org/bytefmt"
	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"
	"github.com/bluenviron/mediacommon/v2/pkg/formats/fmp4"
	mcodecs "github.com/bluenviron/mediacommon/v2/pkg/formats/mp4/codecs"
	"github.com/google/uuid"

	"github.com/bluenviron/ttmlfrag/internal/conf"
	"github.com/bluenviron/ttmlfrag/internal/cues"
	"github.com/bluenviron/ttmlfrag/internal/externalcmd"
	"github.com/bluenviron/ttmlfrag/internal/fmp4mux"
	"github.com/bluenviron/ttmlfrag/internal/logger"
	"github.com/bluenviron/ttmlfrag/internal/metrics"
	"github.com/bluenviron/ttmlfrag/internal/rational"
	"github.com/bluenviron/ttmlfrag/internal/squash"
	"github.com/bluenviron/ttmlfrag/internal/ttml"
)

// Job reads a fragmented MP4 file and a cue list,
// and writes a fragmented MP4 file that carries the cues as a TTML track.
type Job struct {
	Conf       *conf.Conf
	InputPath  string
	CuesPath   string
	OutputPath string
	Parent     logger.Writer

	runID string
	stats fmp4mux.Stats
}

// Log implements logger.Writer.
func (j *Job) Log(level logger.Level, format string, args ...interface{}) {
	j.Parent.Log(level, "[job "+j.runID+"] "+format, args...)
}

// RunID returns the identifier of the last run.
func (j *Job) RunID() string {
	return j.runID
}

// Stats returns the muxer statistics of the last run.
func (j *Job) Stats() fmp4mux.Stats {
	return j.stats
}

// Run runs the job.
// Metrics and the completion hook are handled even when the job fails.
func (j *Job) Run(ctx context.Context) error {
	j.runID = uuid.NewString()
	j.stats = fmp4mux.Stats{}

	start := time.Now()

	j.Log(logger.Info, "remuxing %s with cues %s into %s", j.InputPath, j.CuesPath, j.OutputPath)

	err := j.run(ctx)

	elapsed := time.Since(start)

	if err == nil {
		j.Log(logger.Info, "done in %v: %d fragments, %d cues, %s",
			elapsed, j.stats.Fragments, j.stats.SubtitlePackets, bytefmt.ByteSize(j.stats.Bytes))
	}

	if j.Conf.MetricsFile != "" {
		m := &metrics.Metrics{
			RunID:  j.runID,
			Parent: j,
		}
		m.Initialize()
		m.Observe(j.stats, elapsed, time.Now(), err)

		err2 := m.WriteFile(j.Conf.MetricsFile)
		if err2 != nil {
			j.Log(logger.Warn, "unable to write metrics: %v", err2)
		}
	}

	if j.Conf.RunOnComplete != "" {
		j.runHook(ctx, err)
	}

	return err
}

func (j *Job) runHook(ctx context.Context, jobErr error) {
	status := "ok"
	if jobErr != nil {
		status = "error"
	}

	j.Log(logger.Info, "runOnComplete command started")

	var pool externalcmd.Pool

	cmd := externalcmd.NewCmd(
		&pool,
		j.Conf.RunOnComplete,
		externalcmd.Environment{
			"TTMLFRAG_RUN_ID": j.runID,
			"TTMLFRAG_INPUT":  j.InputPath,
			"TTMLFRAG_CUES":   j.CuesPath,
			"TTMLFRAG_OUTPUT": j.OutputPath,
			"TTMLFRAG_STATUS": status,
		},
		func(err error) {
			if err != nil {
				j.Log(logger.Warn, "runOnComplete command failed: %v", err)
			} else {
				j.Log(logger.Info, "runOnComplete command exited")
			}
		},
	)

	done := make(chan struct{})
	go func() {
		pool.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		cmd.Close()
		<-done
	}
}

func (j *Job) logTracks(init *fmp4.Init) {
	for _, track := range init.Tracks {
		if c, ok := track.Codec.(*mcodecs.H264); ok {
			var sps h264.SPS
			err := sps.Unmarshal(c.SPS)
			if err == nil {
				j.Log(logger.Info, "track %d: H264 %dx%d", track.ID, sps.Width(), sps.Height())
				continue
			}
		}

		j.Log(logger.Info, "track %d: %T, time scale %d", track.ID, track.Codec, track.TimeScale)
	}
}

func subtitleTrackID(init *fmp4.Init) int {
	maxID := 0
	for _, track := range init.Tracks {
		if track.ID > maxID {
			maxID = track.ID
		}
	}
	return maxID + 1
}

var createOutput = func(fpath string) (io.WriteCloser, error) {
	return os.Create(fpath)
}

func (j *Job) run(ctx context.Context) error {
	byts, err := os.ReadFile(j.InputPath)
	if err != nil {
		return err
	}

	init, initSize, err := readInit(byts)
	if err != nil {
		return fmt.Errorf("unable to read initialization segment: %w", err)
	}

	j.logTracks(init)

	samples, err := readSamples(init, byts[initSize:])
	if err != nil {
		return fmt.Errorf("unable to read fragments: %w", err)
	}

	cl, err := cues.Load(j.CuesPath)
	if err != nil {
		return fmt.Errorf("unable to read cues: %w", err)
	}

	pkts := cl.Packets(rational.FromClockRate(j.Conf.SubtitleTimeScale))

	j.Log(logger.Debug, "read %d samples and %d cues", len(samples), len(pkts))

	f, err := createOutput(j.OutputPath)
	if err != nil {
		return err
	}

	err = j.write(ctx, f, init, samples, pkts)

	err2 := f.Close()
	if err == nil && err2 != nil {
		err = fmt.Errorf("unable to close output: %w", err2)
	}

	if err != nil {
		os.Remove(j.OutputPath)
		return err
	}

	return nil
}

func (j *Job) write(
	ctx context.Context,
	w io.Writer,
	init *fmp4.Init,
	samples []*inputSample,
	pkts []*squash.Packet,
) error {
	bw := bufio.NewWriter(w)

	m := &fmp4mux.Muxer{
		W:                bw,
		FragmentDuration: time.Duration(j.Conf.FragmentDuration),
		Profile:          squash.Profile(j.Conf.SubtitleProfile),
		Encoder:          &ttml.Encoder{MaxSize: int(j.Conf.MaxDocumentSize)},
		Parent:           j,
	}

	for _, track := range init.Tracks {
		m.AddTrack(track)
	}

	subID := subtitleTrackID(init)

	m.AddSubtitleTrack(fmp4mux.SubtitleTrack{
		ID:        subID,
		TimeScale: j.Conf.SubtitleTimeScale,
		Language:  j.Conf.SubtitleLanguage,
	})

	err := m.Initialize()
	if err != nil {
		return err
	}

	if j.Conf.Discontinuity {
		err = m.SetDiscontinuity(subID)
		if err != nil {
			return err
		}
	}

	for _, pkt := range pkts {
		err = m.WriteSubtitle(subID, pkt)
		if err != nil {
			return err
		}
	}

	for i, s := range samples {
		if (i % 1024) == 0 {
			if err = ctx.Err(); err != nil {
				return err
			}
		}

		err = m.WriteSample(s.trackID, s.dts, s.sample)
		if err != nil {
			return err
		}
	}

	err = m.Close()
	j.stats = m.Stats()
	if err != nil {
		return err
	}

	return bw.Flush()
}
