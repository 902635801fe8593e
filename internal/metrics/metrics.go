// Package metrics contains the job metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bluenviron/ttmlfrag/internal/fmp4mux"
	"github.com/bluenviron/ttmlfrag/internal/logger"
)

const namespace = "ttmlfrag"

// Metrics are the metrics of a job run.
// They are exported to a file in the text format of Prometheus,
// to be collected by the textfile collector of node_exporter.
type Metrics struct {
	RunID  string
	Parent logger.Writer

	registry *prometheus.Registry
	counters map[string]prometheus.Counter

	duration  prometheus.Gauge
	timestamp prometheus.Gauge
	success   prometheus.Gauge
}

// Initialize initializes Metrics.
func (m *Metrics) Initialize() {
	m.registry = prometheus.NewRegistry()
	m.counters = make(map[string]prometheus.Counter)

	labels := prometheus.Labels{"run_id": m.RunID}

	for _, c := range []struct {
		name string
		help string
	}{
		{"fragments_total", "Number of written fragments"},
		{"subtitle_packets_total", "Number of cues written into documents"},
		{"splits_total", "Number of cues split at a fragment boundary"},
		{"pushbacks_total", "Number of cues deferred to a later fragment"},
		{"repairs_total", "Number of overlapping cues trimmed"},
		{"placeholders_total", "Number of empty documents written"},
		{"lookahead_injected_total", "Number of cues pulled forward from the subtitle pre-queue"},
		{"output_bytes_total", "Number of written bytes"},
	} {
		m.counters[c.name] = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        c.name,
			Help:        c.help,
			ConstLabels: labels,
		})
		m.registry.MustRegister(m.counters[c.name])
	}

	m.duration = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "job_duration_seconds",
		Help:        "Duration of the job",
		ConstLabels: labels,
	})
	m.timestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "job_last_run_timestamp_seconds",
		Help:        "Timestamp of the end of the job",
		ConstLabels: labels,
	})
	m.success = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "job_success",
		Help:        "Whether the job succeeded",
		ConstLabels: labels,
	})
	m.registry.MustRegister(m.duration, m.timestamp, m.success)
}

// Log implements logger.Writer.
func (m *Metrics) Log(level logger.Level, format string, args ...interface{}) {
	m.Parent.Log(level, "[metrics] "+format, args...)
}

// Observe records the outcome of a job.
func (m *Metrics) Observe(st fmp4mux.Stats, elapsed time.Duration, now time.Time, jobErr error) {
	m.counters["fragments_total"].Add(float64(st.Fragments))
	m.counters["subtitle_packets_total"].Add(float64(st.SubtitlePackets))
	m.counters["splits_total"].Add(float64(st.Splits))
	m.counters["pushbacks_total"].Add(float64(st.PushBacks))
	m.counters["repairs_total"].Add(float64(st.Repairs))
	m.counters["placeholders_total"].Add(float64(st.Placeholders))
	m.counters["lookahead_injected_total"].Add(float64(st.LookaheadInjected))
	m.counters["output_bytes_total"].Add(float64(st.Bytes))

	m.duration.Set(elapsed.Seconds())
	m.timestamp.Set(float64(now.Unix()))

	if jobErr == nil {
		m.success.Set(1)
	} else {
		m.success.Set(0)
	}
}

// WriteFile writes the metrics to a file.
func (m *Metrics) WriteFile(fpath string) error {
	err := prometheus.WriteToTextfile(fpath, m.registry)
	if err != nil {
		return err
	}

	m.Log(logger.Debug, "written to %s", fpath)
	return nil
}
