package metrics_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmera/scoper"
	"github.com/rmera/scoper/metrics"
)

func TestWriteTextfile(t *testing.T) {
	m := metrics.New("run-1")
	m.ObserveTool("FoXS", 2*time.Second, nil)
	m.ObserveTool("FoXS", time.Second, scoper.NewError(scoper.ErrToolTimeout, "FoXS/Run", "", "", nil, false))
	m.Scored()
	m.Scored()
	m.Excluded(scoper.NewError(scoper.ErrScoreParse, "ChiScore", "", "", nil, false))
	m.Selected(2, 0.5)
	m.Refined(errors.New("boom"))
	m.Ensemble(0.9)

	file := filepath.Join(t.TempDir(), "scoper.prom")
	require.NoError(t, m.WriteTextfile(file))
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, `scoper_run_info{run_id="run-1"} 1`)
	assert.Contains(t, text, `scoper_tool_runs_total{status="ok",tool="FoXS"} 1`)
	assert.Contains(t, text, `scoper_tool_runs_total{status="timeout",tool="FoXS"} 1`)
	assert.Contains(t, text, `scoper_tool_duration_seconds_count{tool="FoXS"} 2`)
	assert.Contains(t, text, "scoper_candidates_scored_total 2")
	assert.Contains(t, text, `scoper_candidates_excluded_total{reason="parse"} 1`)
	assert.Contains(t, text, "scoper_candidates_selected 2")
	assert.Contains(t, text, "scoper_best_score 0.5")
	assert.Contains(t, text, `scoper_refinements_total{status="failed"} 1`)
	assert.Contains(t, text, "scoper_ensemble_best_chi 0.9")
}

func TestNilMetrics(t *testing.T) {
	var m *metrics.Metrics
	m.ObserveTool("KGS", time.Second, nil)
	m.Scored()
	m.Excluded(nil)
	m.Selected(1, 1)
	m.Refined(nil)
	m.Ensemble(1)
	assert.Nil(t, m.Registry())
	assert.NoError(t, m.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")))
}

func TestSeparateRegistries(t *testing.T) {
	// Two runs in the same process must not collide.
	a := metrics.New("a")
	b := metrics.New("b")
	a.Scored()
	families, err := b.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == "scoper_candidates_scored_total" {
			assert.Zero(t, f.GetMetric()[0].GetCounter().GetValue())
		}
	}
}
