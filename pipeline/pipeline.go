/*
 * pipeline.go, part of scoper.
 *
 * Copyright 2024 Raul Mera <rmera{at}chemDOThelsinkiDOTfi>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */
/***Dedicated to the long life of the Ven. Khenpo Phuntzok Tenzin Rinpoche***/

// Package pipeline puts all the scoper stages together: it adds hydrogens
// to the input RNA structure, samples conformations from it with KGSrna,
// scores them against a SAXS profile with FoXS, selects the best ones,
// refines each of them, and optionally fits an ensemble with MultiFoXS.
package pipeline

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/rmera/scoper"
	"github.com/rmera/scoper/config"
	"github.com/rmera/scoper/ensemble"
	"github.com/rmera/scoper/histo"
	"github.com/rmera/scoper/internal/pool"
	"github.com/rmera/scoper/logger"
	"github.com/rmera/scoper/metrics"
	"github.com/rmera/scoper/pdb"
	"github.com/rmera/scoper/refine"
	"github.com/rmera/scoper/saxs"
	"github.com/rmera/scoper/tools"
	"github.com/rmera/scoper/workspace"
)

// Tools are the handles for all the external programs of a run.
type Tools struct {
	Reduce  *tools.ReduceHandle
	Prepare *tools.PrepareHandle
	Sampler *tools.KGSHandle
	Scorer  *tools.FoXSHandle
	Solver  *tools.MultiFoXSHandle
}

// NewTools returns the handles configured as in cfg. Every handle
// reports to obs, which can be nil.
func NewTools(cfg *config.Config, obs tools.Observer) *Tools {
	t := cfg.Tools
	T := &Tools{
		Reduce:  tools.NewReduceHandle(),
		Prepare: tools.NewPrepareHandle(),
		Sampler: tools.NewKGSHandle(),
		Scorer:  tools.NewFoXSHandle(),
		Solver:  tools.NewMultiFoXSHandle(),
	}
	T.Reduce.SetCommand(t.Reduce.Path)
	T.Reduce.SetTimeout(t.Reduce.Timeout)
	T.Prepare.SetCommand(t.Prepare.Path)
	T.Prepare.SetInterpreter(t.Prepare.Interpreter)
	T.Prepare.SetTimeout(t.Prepare.Timeout)
	T.Sampler.SetCommand(t.Sampler.Path)
	T.Sampler.SetSamples(cfg.Samples)
	T.Sampler.SetNeighbors(t.Sampler.Neighbors)
	T.Sampler.SetStep(t.Sampler.Step)
	T.Sampler.SetTimeout(t.Sampler.Timeout)
	T.Scorer.SetCommand(t.Scorer.Path)
	T.Scorer.SetTimeout(t.Scorer.Timeout)
	T.Solver.SetCommand(t.Ensemble.Path)
	T.Solver.SetTimeout(t.Ensemble.Timeout)
	if obs != nil {
		T.Reduce.SetObserver(obs)
		T.Prepare.SetObserver(obs)
		T.Sampler.SetObserver(obs)
		T.Scorer.SetObserver(obs)
		T.Solver.SetObserver(obs)
	}
	return T
}

// RefinementSummary tells which of the selected candidates were refined,
// and which failed and why, in rank order.
type RefinementSummary struct {
	Refined []string         `json:"refined"`
	Failed  []scoper.Failure `json:"failed,omitempty"`
}

// Report is everything a run produced.
type Report struct {
	RunID           string             `json:"run_id"`
	Input           string             `json:"input,omitempty"`
	Profile         string             `json:"profile"`
	Ranked          []scoper.Scored    `json:"ranked"`
	TopK            []scoper.Scored    `json:"top_k"`
	Failed          []scoper.Failure   `json:"failed,omitempty"` //candidates that could not be scored
	Scoring         *saxs.Result       `json:"-"`
	Refinement      *RefinementSummary `json:"refinement,omitempty"`
	Ensemble        *ensemble.Result   `json:"ensemble,omitempty"`
	EnsembleSkipped string             `json:"ensemble_skipped,omitempty"` //why there is no ensemble
	Stats           histo.Summary      `json:"stats"`
	Histogram       *histo.Data        `json:"histogram,omitempty"`
}

// Pipeline runs scoper. Create it with New.
type Pipeline struct {
	cfg     *config.Config
	log     logger.Logger
	manager *workspace.Manager
	tools   *Tools
	refiner refine.Factory
	metrics *metrics.Metrics
	runID   string
}

// New returns a Pipeline for cfg, which is taken as already validated.
// If cfg sets a refinement command, each selected candidate is refined
// with it. log can be nil.
func New(cfg *config.Config, log logger.Logger) *Pipeline {
	if log == nil {
		log = logger.NewNop()
	}
	runID := uuid.NewString()
	P := &Pipeline{
		cfg:     cfg,
		log:     log.With(logger.String("run_id", runID)),
		manager: workspace.NewManager(),
		metrics: metrics.New(runID),
		runID:   runID,
	}
	P.tools = NewTools(cfg, P.metrics)
	if cfg.Refine.Command != "" {
		P.refiner = refine.NewCommandFactory(cfg.Refine.Command, refine.Options{
			InferenceType: cfg.Refine.InferenceType,
			Model:         cfg.Refine.Model,
			ModelConfig:   cfg.Refine.ModelConfig,
			Scorer:        cfg.Tools.Scorer.Path,
			Solver:        cfg.Tools.Ensemble.Path,
			Profile:       cfg.ResolveProfile(),
			Timeout:       cfg.Refine.Timeout,
			Observer:      P.metrics,
			Manager:       P.manager,
		})
	}
	return P
}

// RunID returns the identifier of the run, which is in every log entry,
// the report and the metrics.
func (P *Pipeline) RunID() string {
	return P.runID
}

// Metrics returns the metrics of the run.
func (P *Pipeline) Metrics() *metrics.Metrics {
	return P.metrics
}

// Tools returns the handles for the external programs, so they can be
// changed before running.
func (P *Pipeline) Tools() *Tools {
	return P.tools
}

// SetRefiner sets the refinement used for the selected candidates.
// nil disables refinement.
func (P *Pipeline) SetRefiner(f refine.Factory) {
	P.refiner = f
}

// Run runs the whole pipeline. The returned report contains everything
// done up to the point where an error occurred, if one did. Failures of
// single candidates, in scoring or in refinement, are not errors of the
// run. They are recorded in the report.
func (P *Pipeline) Run(ctx context.Context) (rep *Report, err error) {
	const errid = "Pipeline/Run"
	defer func() {
		P.writeJSON(rep)
		P.writeMetrics()
	}()
	profile := P.cfg.ResolveProfile()
	layout := workspace.NewLayout(P.cfg.BaseDir, P.cfg.Input)
	if err := layout.Prepare(P.manager); err != nil {
		P.log.Error("Could not prepare the workspace", logger.Error(err))
		return nil, scoper.Decorate(err, errid)
	}
	hb, err := P.preprocess(ctx, P.cfg.Input)
	if err != nil {
		return nil, scoper.Decorate(err, errid)
	}
	P.log.Info("Running KGSRNA",
		logger.Int("samples", P.cfg.Samples),
		logger.String("dir", layout.Work),
	)
	if err := P.tools.Sampler.Run(ctx, hb, layout.Work); err != nil {
		if err := P.policy("sampling", err); err != nil {
			return nil, scoper.Decorate(err, errid)
		}
	}
	rep, err = P.Score(ctx, layout.Output, profile)
	if err != nil {
		return rep, scoper.Decorate(err, errid)
	}
	rep.Input = P.cfg.Input

	rep.Refinement, err = P.refine(ctx, layout, rep.TopK)
	if err != nil {
		P.log.Error("Refinement stopped", logger.Error(err))
		return rep, scoper.Decorate(err, errid)
	}

	if ok, reason := P.cfg.EnsembleRequested(); !ok {
		rep.EnsembleSkipped = reason
		P.log.Info("Not running MultiFoXS", logger.String("reason", reason))
		return rep, nil
	}
	runDirs := []string{layout.Base}
	if P.refiner == nil {
		//Without refinement, the ensemble is made of the selected candidates.
		runDirs = runDirs[:0]
		for _, c := range rep.TopK {
			runDirs = append(runDirs, c.Path)
		}
	}
	rep.Ensemble, err = P.Ensemble(ctx, runDirs, layout.Ensemble, profile)
	if err != nil {
		P.log.Error("Ensemble fit failed", logger.Error(err))
		return rep, scoper.Decorate(err, errid)
	}
	return rep, nil
}

// Score scores the candidates in dir against profile and selects the
// best ones. It writes the score table and plots requested in the
// configuration.
func (P *Pipeline) Score(ctx context.Context, dir, profile string) (*Report, error) {
	stage := saxs.NewStage(P.tools.Scorer, P.log)
	stage.SetWorkers(P.cfg.Scoring.Workers)
	stage.SetMetrics(P.metrics)
	res, err := stage.Score(ctx, dir, profile)
	if res == nil {
		return nil, scoper.Decorate(err, "Pipeline/Score")
	}
	rep := &Report{
		RunID:   P.runID,
		Profile: profile,
		Scoring: res,
		Failed:  res.Failed,
		Ranked:  scoper.Ranked(res.Scores),
		TopK:    scoper.TopK(res.Scores, P.cfg.TopK),
	}
	if err != nil {
		return rep, err
	}
	best := 0.0
	if len(rep.TopK) > 0 {
		best = rep.TopK[0].Score
	}
	P.metrics.Selected(len(rep.TopK), best)
	P.statistics(rep)
	P.log.Info("Selected candidates",
		logger.Int("k", P.cfg.TopK),
		logger.Strings("selected", names(rep.TopK)),
		logger.Float64("best", best),
	)
	if len(rep.TopK) == 0 {
		P.log.Warn("No candidate could be scored", logger.String("dir", dir))
	}
	P.writeReport(rep)
	return rep, nil
}

// Ensemble fits an ensemble of the structures under runDirs, which can
// also be structure files, to profile, in workdir.
func (P *Pipeline) Ensemble(ctx context.Context, runDirs []string, workdir, profile string) (*ensemble.Result, error) {
	stage := ensemble.NewStage(P.tools.Scorer, P.tools.Solver, P.manager, P.log)
	stage.SetExclude(workspace.SamplerDir, workspace.ScoringDir, workspace.EnsembleDir)
	stage.SetWorkers(P.cfg.Scoring.Workers)
	stage.SetMetrics(P.metrics)
	return stage.Run(ctx, runDirs, workdir, profile)
}

// policy decides whether a failed preprocessing or sampling step stops the run.
func (P *Pipeline) policy(step string, err error) error {
	if P.cfg.Preprocess.Strict || scoper.IsCritical(err) {
		P.log.Error("Step failed", logger.String("step", step), logger.Error(err))
		return err
	}
	P.log.Warn("Step failed, continuing", logger.String("step", step), logger.Error(err))
	return nil
}

func (P *Pipeline) logOutput(step string, out *tools.Output) {
	if out == nil {
		return
	}
	P.log.Info("Program output",
		logger.String("step", step),
		logger.ByteString("stdout", out.Stdout),
		logger.ByteString("stderr", out.Stderr),
		logger.Duration("elapsed", out.Elapsed),
	)
}

// preprocess adds hydrogens to input and prepares the result for KGSrna.
// It returns the name of the hydrogenated structure.
func (P *Pipeline) preprocess(ctx context.Context, input string) (string, error) {
	P.log.Info("Adding hydrogens", logger.String("input", input))
	hb, out, err := P.tools.Reduce.Run(ctx, input)
	P.logOutput("reduce", out)
	if err != nil {
		if err := P.policy("reduce", err); err != nil {
			return "", err
		}
		hb = tools.HBName(input)
	} else {
		P.describe(hb)
		if err := P.strip(hb); err != nil {
			return "", err
		}
	}
	out, err = P.tools.Prepare.Run(ctx, hb)
	P.logOutput("prepare", out)
	if err != nil {
		if err := P.policy("prepare", err); err != nil {
			return "", err
		}
	}
	return hb, nil
}

// describe logs the size of the hydrogenated structure.
func (P *Pipeline) describe(hb string) {
	mol, err := pdb.Read(hb)
	if err != nil {
		P.log.Warn("Could not read the hydrogenated structure", logger.Error(err))
		return
	}
	rg, err := pdb.RadiusOfGyration(mol, true)
	if err != nil {
		P.log.Warn("Could not obtain the radius of gyration", logger.Error(err))
	}
	P.log.Info("Hydrogenated structure",
		logger.String("file", hb),
		logger.Int("atoms", mol.Len()),
		logger.Float64("rg", rg),
	)
}

func (P *Pipeline) strip(hb string) error {
	names := P.cfg.Preprocess.StripAtoms
	if len(names) == 0 {
		return nil
	}
	n, err := pdb.StripAtoms(hb, names)
	if err != nil {
		return P.policy("strip atoms", err)
	}
	P.log.Info("Removed atoms the sampler can't handle",
		logger.Int("removed", n),
		logger.Strings("names", names),
	)
	return nil
}

// refine refines each selected candidate. A failed candidate is recorded
// and the rest are still processed, unless the configuration asks to
// abort on the first failure.
func (P *Pipeline) refine(ctx context.Context, layout *workspace.Layout, top []scoper.Scored) (*RefinementSummary, error) {
	sum := &RefinementSummary{Refined: []string{}}
	if P.refiner == nil {
		P.log.Info("No refinement command set, skipping refinement")
		return sum, nil
	}
	rctx, cancel := context.WithCancel(ctx)
	defer cancel()
	abort := P.cfg.Refine.AbortOnFailure
	errs := make([]error, len(top))
	done := make([]bool, len(top))
	var mu sync.Mutex
	var first error
	_, _ = pool.ForEach(rctx, P.cfg.Refine.Workers, len(top), func(i int) error {
		c := top[i]
		outDir := layout.RefineDir(c.Path)
		P.log.Info("Refining candidate",
			logger.String("candidate", c.Name),
			logger.Int("rank", i+1),
			logger.Float64("score", c.Score),
			logger.String("dir", outDir),
		)
		r := P.refiner(outDir, c.Path)
		err := r.Infer(rctx)
		if cerr := r.Cleanup(); cerr != nil {
			P.log.Warn("Refinement cleanup failed", logger.String("candidate", c.Name), logger.Error(cerr))
		}
		P.metrics.Refined(err)
		mu.Lock()
		errs[i], done[i] = err, true
		if err != nil && first == nil {
			first = err
		}
		mu.Unlock()
		if err != nil && abort {
			cancel()
		}
		return err
	})
	for i, c := range top {
		switch {
		case !done[i]:
			continue
		case errs[i] != nil:
			sum.Failed = append(sum.Failed, scoper.Failure{Name: c.Name, Reason: errs[i].Error()})
			P.log.Warn("Refinement failed", logger.String("candidate", c.Name), logger.Error(errs[i]))
		default:
			sum.Refined = append(sum.Refined, c.Name)
		}
	}
	P.log.Info("Finished refinement",
		logger.Int("refined", len(sum.Refined)),
		logger.Int("failed", len(sum.Failed)),
	)
	if err := ctx.Err(); err != nil {
		return sum, err
	}
	if abort && first != nil {
		return sum, scoper.NewError(scoper.ErrRefinement, "Pipeline/refine", "", "aborted after a failed refinement", first, true)
	}
	return sum, nil
}

func (P *Pipeline) statistics(rep *Report) {
	values := make([]float64, len(rep.Ranked))
	for i, s := range rep.Ranked {
		values[i] = s.Score
	}
	rep.Stats = histo.Summarize(values)
	rep.Histogram = histo.FromScores(values, P.cfg.Report.Bins)
	if rep.Stats.N == 0 {
		return
	}
	P.log.Info("Score statistics",
		logger.Int("n", rep.Stats.N),
		logger.Float64("mean", rep.Stats.Mean),
		logger.Float64("stddev", rep.Stats.StdDev),
		logger.Float64("min", rep.Stats.Min),
		logger.Float64("median", rep.Stats.Median),
		logger.Float64("max", rep.Stats.Max),
		logger.Any("histogram", rep.Histogram),
	)
}

func names(s []scoper.Scored) []string {
	ret := make([]string, len(s))
	for i, v := range s {
		ret[i] = v.Name
	}
	return ret
}
