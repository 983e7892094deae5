package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rmera/scoper"
	"github.com/rmera/scoper/config"
	"github.com/rmera/scoper/internal/testutil"
	"github.com/rmera/scoper/logger"
	"github.com/rmera/scoper/pipeline"
	"github.com/rmera/scoper/report"
	"github.com/rmera/scoper/workspace"
)

const kgsBody = `while [ $# -gt 0 ]; do
  case "$1" in --workingDirectory) wd="$2"; shift ;; esac
  shift
done
for n in a b c d e; do : > "${wd}output/$n.pdb"; done`

const foxsBody = `name=$(basename "$1" .pdb)
touch "$1.dat" "${1%.pdb}_$(basename "$2" .dat).fit"
case "$name" in
  a) echo "$1 Chi^2 = 2.1" ;;
  b) echo "$1 Chi^2 = 0.5" ;;
  c) [ -n "$EMPTY_C" ] || echo "$1 Chi^2 = 3.3" ;;
  d) echo "$1 Chi^2 = 0.5" ;;
  e) echo "$1 Chi^2 = 1.0" ;;
  *) echo "$1 Chi^2 = 1.5" ;;
esac`

// The solver leaves a mark next to itself, so tests can tell if it ran.
const solverBody = `touch "$(dirname "$0")/called"
printf '1 |  0.42 | x1 0.42 (1.00, 0.10)\n' > ensembles_size_2.txt`

// The refinement fails for the candidates named in FAIL_REFINE.
const refineBody = `case "$*" in *"$FAIL_REFINE"*) [ -n "$FAIL_REFINE" ] && exit 1 ;; esac
mkdir -p features
touch features/f.npy result.pdb`

type env struct {
	cfg     *config.Config
	bin     string
	profile string
	logs    *observer.ObservedLogs
	log     logger.Logger
}

func newEnv(t *testing.T, topK int) *env {
	t.Helper()
	bin := t.TempDir()
	data := t.TempDir()
	e := &env{bin: bin}
	cfg := config.Default()
	cfg.Input = testutil.WriteFile(t, data, "rna.pdb", testutil.MiniPDB)
	e.profile = testutil.WriteFile(t, data, "sl2.dat", "0.01 1.0 0.1\n")
	cfg.Profile = "SL2"
	cfg.Profiles = map[string]string{"SL2": e.profile}
	cfg.BaseDir = filepath.Join(t.TempDir(), "run")
	cfg.TopK = topK
	cfg.Samples = 5
	cfg.Tools.Reduce.Path = testutil.WriteScript(t, bin, "reduce", `cp "$1" "$1.HB"`)
	cfg.Tools.Prepare.Path = testutil.WriteScript(t, bin, "prepare", `[ "$1" = -v ] || exit 1`)
	cfg.Tools.Prepare.Interpreter = ""
	cfg.Tools.Sampler.Path = testutil.WriteScript(t, bin, "kgs", kgsBody)
	cfg.Tools.Scorer.Path = testutil.WriteScript(t, bin, "foxs", foxsBody)
	cfg.Tools.Ensemble.Path = testutil.WriteScript(t, bin, "multifoxs", solverBody)
	e.cfg = cfg

	core, logs := observer.New(zap.InfoLevel)
	e.logs = logs
	e.log = logger.FromZap(zap.New(core))
	return e
}

func (e *env) layout() *workspace.Layout {
	return workspace.NewLayout(e.cfg.BaseDir, e.cfg.Input)
}

func (e *env) solverCalled() bool {
	_, err := os.Stat(filepath.Join(e.bin, "called"))
	return err == nil
}

func names(s []scoper.Scored) []string {
	ret := make([]string, len(s))
	for i, v := range s {
		ret[i] = v.Name
	}
	return ret
}

func TestRunTopThree(t *testing.T) {
	e := newEnv(t, 3)
	out := t.TempDir()
	e.cfg.Ensemble = true
	e.cfg.Refine.Command = testutil.WriteScript(t, e.bin, "refine", refineBody)
	e.cfg.Report.Path = filepath.Join(out, "scores.tsv.zst")
	e.cfg.Report.Plot = filepath.Join(out, "ranks.png")
	e.cfg.Metrics.Textfile = filepath.Join(out, "scoper.prom")
	e.cfg.Report.JSON = filepath.Join(out, "report.json")

	p := pipeline.New(e.cfg, e.log)
	rep, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, p.RunID(), rep.RunID)
	assert.Equal(t, e.profile, rep.Profile)
	assert.Equal(t, []string{"b.pdb", "d.pdb", "e.pdb"}, names(rep.TopK))
	assert.Equal(t, []float64{0.5, 0.5, 1.0}, []float64{rep.TopK[0].Score, rep.TopK[1].Score, rep.TopK[2].Score})
	assert.Equal(t, []string{"b.pdb", "d.pdb", "e.pdb", "a.pdb", "c.pdb"}, names(rep.Ranked))
	assert.Equal(t, 5, rep.Stats.N)
	assert.InDelta(t, 1.48, rep.Stats.Mean, 1e-9)
	require.NotNil(t, rep.Histogram)
	assert.Equal(t, 5, rep.Histogram.Total())

	//Hydrogenated structure, and no scorer byproducts left.
	assert.FileExists(t, e.cfg.Input+".HB")
	entries, err := os.ReadDir(e.layout().Output)
	require.NoError(t, err)
	assert.Len(t, entries, 5)

	require.NotNil(t, rep.Refinement)
	assert.Equal(t, []string{"b.pdb", "d.pdb", "e.pdb"}, rep.Refinement.Refined)
	assert.Empty(t, rep.Refinement.Failed)
	for _, n := range []string{"b", "d", "e"} {
		dir := filepath.Join(e.cfg.BaseDir, n)
		assert.FileExists(t, filepath.Join(dir, "result.pdb"))
		assert.NoDirExists(t, filepath.Join(dir, "features"))
	}
	assert.NoDirExists(t, filepath.Join(e.cfg.BaseDir, "a"))

	require.NotNil(t, rep.Ensemble)
	assert.True(t, e.solverCalled())
	assert.InDelta(t, 0.42, rep.Ensemble.BestScore, 1e-12)
	assert.Equal(t, 3, rep.Ensemble.Structures)
	assert.Equal(t, filepath.Join(e.cfg.BaseDir, workspace.EnsembleDir), rep.Ensemble.Dir)
	assert.Equal(t, 1, e.logs.FilterMessage("MultiFoXS lowest score").Len())

	header, rows, err := report.ReadTable(e.cfg.Report.Path)
	require.NoError(t, err)
	assert.Equal(t, p.RunID(), header["run_id"])
	require.Len(t, rows, 5)
	assert.Equal(t, "b.pdb", rows[0].Name)
	assert.True(t, rows[2].Selected)
	assert.False(t, rows[3].Selected)
	assert.FileExists(t, e.cfg.Report.Plot)
	assert.FileExists(t, filepath.Join(out, "ranks_histo.png"))

	var saved map[string]any
	require.NoError(t, report.ReadJSON(e.cfg.Report.JSON, &saved))
	assert.Equal(t, p.RunID(), saved["run_id"])
	assert.Contains(t, saved, "ensemble")

	prom, err := os.ReadFile(e.cfg.Metrics.Textfile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "scoper_candidates_scored_total 5")
	assert.Contains(t, string(prom), `scoper_refinements_total{status="ok"} 3`)
	assert.Contains(t, string(prom), "scoper_ensemble_best_chi 0.42")

	for _, msg := range []string{"Adding hydrogens", "Running KGSRNA", "Getting foxs scores", "Finished scoring"} {
		assert.Equal(t, 1, e.logs.FilterMessage(msg).Len(), msg)
	}
}

func TestEnsembleSkippedForOneCandidate(t *testing.T) {
	e := newEnv(t, 1)
	e.cfg.Ensemble = true
	rep, err := pipeline.New(e.cfg, e.log).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"b.pdb"}, names(rep.TopK))
	assert.Nil(t, rep.Ensemble)
	assert.NotEmpty(t, rep.EnsembleSkipped)
	assert.False(t, e.solverCalled())
	skipped := e.logs.FilterMessage("Not running MultiFoXS").All()
	require.Len(t, skipped, 1)
	assert.Equal(t, rep.EnsembleSkipped, skipped[0].ContextMap()["reason"])
	assert.NoDirExists(t, filepath.Join(e.cfg.BaseDir, workspace.EnsembleDir))
}

func TestEnsembleDisabled(t *testing.T) {
	e := newEnv(t, 3)
	rep, err := pipeline.New(e.cfg, e.log).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "disabled by user settings", rep.EnsembleSkipped)
	assert.False(t, e.solverCalled())
}

func TestEnsembleOfSelectedWithoutRefinement(t *testing.T) {
	e := newEnv(t, 2)
	e.cfg.Ensemble = true
	rep, err := pipeline.New(e.cfg, e.log).Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, rep.Ensemble)
	assert.Equal(t, 2, rep.Ensemble.Structures)
	assert.FileExists(t, filepath.Join(rep.Ensemble.Dir, "b.pdb"))
	assert.FileExists(t, filepath.Join(rep.Ensemble.Dir, "d.pdb"))
}

func TestEmptyScorerOutputExcluded(t *testing.T) {
	t.Setenv("EMPTY_C", "1")
	e := newEnv(t, 3)
	rep, err := pipeline.New(e.cfg, e.log).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"b.pdb", "d.pdb", "e.pdb", "a.pdb"}, names(rep.Ranked))
	assert.Equal(t, []string{"b.pdb", "d.pdb", "e.pdb"}, names(rep.TopK))
	require.Len(t, rep.Failed, 1)
	assert.Equal(t, "c.pdb", rep.Failed[0].Name)
	assert.Equal(t, 1, e.logs.FilterMessage("Candidate excluded from ranking").Len())
}

func TestRefinementFailureIsolated(t *testing.T) {
	t.Setenv("FAIL_REFINE", "d.pdb")
	e := newEnv(t, 3)
	e.cfg.Refine.Command = testutil.WriteScript(t, e.bin, "refine", refineBody)
	rep, err := pipeline.New(e.cfg, e.log).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"b.pdb", "e.pdb"}, rep.Refinement.Refined)
	require.Len(t, rep.Refinement.Failed, 1)
	assert.Equal(t, "d.pdb", rep.Refinement.Failed[0].Name)
}

func TestRefinementAbort(t *testing.T) {
	t.Setenv("FAIL_REFINE", "d.pdb")
	e := newEnv(t, 3)
	e.cfg.Refine.Command = testutil.WriteScript(t, e.bin, "refine", refineBody)
	e.cfg.Refine.AbortOnFailure = true
	e.cfg.Ensemble = true
	rep, err := pipeline.New(e.cfg, e.log).Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, scoper.ErrRefinement))

	require.NotNil(t, rep)
	assert.Equal(t, []string{"b.pdb"}, rep.Refinement.Refined)
	require.Len(t, rep.Refinement.Failed, 1)
	assert.NoDirExists(t, filepath.Join(e.cfg.BaseDir, "e"))
	assert.False(t, e.solverCalled())
}

func TestPreprocessingPolicy(t *testing.T) {
	e := newEnv(t, 1)
	e.cfg.Tools.Reduce.Path = testutil.WriteScript(t, e.bin, "reduce", `echo "reduce: no" >&2; exit 1`)
	rep, err := pipeline.New(e.cfg, e.log).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"b.pdb"}, names(rep.TopK))
	assert.Equal(t, 1, e.logs.FilterMessage("Step failed, continuing").Len())

	e.cfg.Preprocess.Strict = true
	_, err = pipeline.New(e.cfg, e.log).Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, scoper.ErrToolInvocation))
}

func TestEnsembleFailureKeepsReport(t *testing.T) {
	e := newEnv(t, 2)
	e.cfg.Ensemble = true
	e.cfg.Refine.Command = testutil.WriteScript(t, e.bin, "refine", refineBody)
	e.cfg.Tools.Ensemble.Path = testutil.WriteScript(t, e.bin, "multifoxs", `exit 1`)
	rep, err := pipeline.New(e.cfg, e.log).Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, scoper.ErrEnsembleSolver))
	require.NotNil(t, rep)
	assert.Equal(t, []string{"b.pdb", "d.pdb"}, rep.Refinement.Refined)
	assert.FileExists(t, filepath.Join(e.cfg.BaseDir, "b", "result.pdb"))
}

func TestScoreOnly(t *testing.T) {
	e := newEnv(t, 2)
	dir := t.TempDir()
	for _, n := range []string{"a", "b", "c", "d", "e"} {
		testutil.WriteFile(t, dir, n+".pdb", "")
	}
	rep, err := pipeline.New(e.cfg, e.log).Score(context.Background(), dir, e.profile)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.pdb", "d.pdb"}, names(rep.TopK))
	assert.Nil(t, rep.Refinement)
}
