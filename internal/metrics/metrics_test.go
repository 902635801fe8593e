package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bluenviron/ttmlfrag/internal/fmp4mux"
	"github.com/bluenviron/ttmlfrag/internal/test"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	m := &Metrics{
		RunID:  "5c1a",
		Parent: test.NilLogger,
	}
	m.Initialize()

	m.Observe(fmp4mux.Stats{
		Fragments:         3,
		SubtitlePackets:   4,
		Repairs:           1,
		LookaheadInjected: 1,
		Bytes:             12345,
	}, 1500*time.Millisecond, time.Unix(1700000000, 0), nil)

	fpath := filepath.Join(t.TempDir(), "ttmlfrag.prom")
	err := m.WriteFile(fpath)
	require.NoError(t, err)

	byts, err := os.ReadFile(fpath)
	require.NoError(t, err)
	out := string(byts)

	for _, line := range []string{
		"# TYPE ttmlfrag_fragments_total counter",
		`ttmlfrag_fragments_total{run_id="5c1a"} 3`,
		`ttmlfrag_subtitle_packets_total{run_id="5c1a"} 4`,
		`ttmlfrag_repairs_total{run_id="5c1a"} 1`,
		`ttmlfrag_lookahead_injected_total{run_id="5c1a"} 1`,
		`ttmlfrag_splits_total{run_id="5c1a"} 0`,
		`ttmlfrag_output_bytes_total{run_id="5c1a"} 12345`,
		`ttmlfrag_job_duration_seconds{run_id="5c1a"} 1.5`,
		`ttmlfrag_job_last_run_timestamp_seconds{run_id="5c1a"} 1.7e+09`,
		`ttmlfrag_job_success{run_id="5c1a"} 1`,
	} {
		require.Contains(t, out, line+"\n")
	}

	require.NotContains(t, out, "end_capped")
}

func TestMetricsFailure(t *testing.T) {
	m := &Metrics{
		RunID:  "5c1b",
		Parent: test.NilLogger,
	}
	m.Initialize()

	m.Observe(fmp4mux.Stats{}, time.Second, time.Unix(0, 0), errors.New("failed"))

	fpath := filepath.Join(t.TempDir(), "ttmlfrag.prom")
	err := m.WriteFile(fpath)
	require.NoError(t, err)

	byts, err := os.ReadFile(fpath)
	require.NoError(t, err)
	require.Contains(t, string(byts), `ttmlfrag_job_success{run_id="5c1b"} 0`+"\n")
}

func TestMetricsWriteError(t *testing.T) {
	m := &Metrics{
		RunID:  "5c1c",
		Parent: test.NilLogger,
	}
	m.Initialize()

	err := m.WriteFile(filepath.Join(t.TempDir(), "missing", "ttmlfrag.prom"))
	require.Error(t, err)
}
