/*
 * saxs.go, part of scoper.
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

// Package saxs scores sampled conformations against an experimental SAXS
// profile, and cleans up the files the scorer leaves behind.
package saxs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rmera/scoper"
	"github.com/rmera/scoper/internal/pool"
	"github.com/rmera/scoper/logger"
	"github.com/rmera/scoper/metrics"
)

// CandidateExt is the extension of the files considered candidates.
const CandidateExt = ".pdb"

// ByproductSuffixes are the endings of the files the scorer leaves
// next to each candidate, and which are removed after scoring.
var ByproductSuffixes = []string{".dat", ".fit"}

// Scorer gives a fit score for a structure against a profile.
// tools.FoXSHandle implements it.
type Scorer interface {
	Score(ctx context.Context, pdbname, profile string) (float64, error)
}

// Result is the outcome of scoring a directory.
type Result struct {
	Scores  *scoper.ScoreMap
	Failed  []scoper.Failure
	Removed int //byproduct files deleted
}

// Stage scores all the candidates in a directory.
type Stage struct {
	scorer  Scorer
	workers int
	log     logger.Logger
	metrics *metrics.Metrics
}

// NewStage returns a Stage that uses scorer, with one worker.
func NewStage(scorer Scorer, log logger.Logger) *Stage {
	if log == nil {
		log = logger.NewNop()
	}
	return &Stage{scorer: scorer, workers: 1, log: log}
}

// SetWorkers sets how many candidates are scored at the same time.
func (S *Stage) SetWorkers(n int) {
	if n < 1 {
		n = 1
	}
	S.workers = n
}

// SetMetrics sets where the candidates scored and excluded are counted.
func (S *Stage) SetMetrics(m *metrics.Metrics) {
	S.metrics = m
}

// Candidates returns the paths of the candidate structures in dir,
// sorted by name.
func Candidates(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, scoper.NewError(scoper.ErrWorkspace, "saxs/Candidates", dir, "can't list candidates", err, true)
	}
	ret := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), CandidateExt) {
			ret = append(ret, filepath.Join(dir, e.Name()))
		}
	}
	return ret, nil
}

type outcome struct {
	score float64
	err   error
	done  bool
}

// Score scores every candidate in dir against profile, then deletes the
// scorer's byproducts from dir. A candidate that can't be scored is left
// out of the ScoreMap and recorded in Result.Failed; that is never an
// error for the whole stage. The ScoreMap is in listing order whatever
// the number of workers. If ctx is cancelled, no more candidates are
// scored and ctx.Err() is returned along with the partial result.
func (S *Stage) Score(ctx context.Context, dir, profile string) (*Result, error) {
	candidates, err := Candidates(dir)
	if err != nil {
		return nil, scoper.Decorate(err, "saxs/Score")
	}
	S.log.Info("Getting foxs scores",
		logger.Int("structures", len(candidates)),
		logger.Int("workers", S.workers),
	)
	results := make([]outcome, len(candidates))
	var mu sync.Mutex
	_, poolErr := pool.ForEach(ctx, S.workers, len(candidates), func(i int) error {
		score, err := S.scorer.Score(ctx, candidates[i], profile)
		mu.Lock()
		results[i] = outcome{score: score, err: err, done: true}
		mu.Unlock()
		return err
	})

	ret := &Result{Scores: scoper.NewScoreMap()}
	for i, r := range results {
		name := filepath.Base(candidates[i])
		switch {
		case !r.done:
			continue
		case r.err != nil:
			ret.Failed = append(ret.Failed, scoper.Failure{Name: name, Reason: r.err.Error()})
			S.metrics.Excluded(r.err)
			S.log.Warn("Candidate excluded from ranking",
				logger.String("candidate", name),
				logger.Error(r.err),
				logger.Bool("timeout", errors.Is(r.err, scoper.ErrToolTimeout)),
			)
		default:
			ret.Scores.Set(name, candidates[i], r.score)
			S.metrics.Scored()
		}
	}

	removed, cerr := Clean(dir, profile)
	ret.Removed = removed
	if cerr != nil {
		S.log.Warn("Could not remove all scorer byproducts", logger.String("dir", dir), logger.Error(cerr))
	}
	S.log.Info("Finished scoring",
		logger.Int("scored", ret.Scores.Len()),
		logger.Int("excluded", len(ret.Failed)),
		logger.Int("byproducts_removed", removed),
	)
	if poolErr != nil {
		return ret, poolErr
	}
	return ret, nil
}

// Clean deletes the regular files in dir whose names end in one of
// ByproductSuffixes. The file keep is never deleted, so the target
// profile survives even when it lives in dir. It returns how many files
// were removed, and the errors found, joined.
func Clean(dir, keep string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}
	keepAbs, _ := filepath.Abs(keep)
	removed := 0
	var errs []error
	for _, e := range entries {
		if !e.Type().IsRegular() || !isByproduct(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if abs, _ := filepath.Abs(path); keep != "" && abs == keepAbs {
			continue
		}
		if err := os.Remove(path); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

func isByproduct(name string) bool {
	for _, s := range ByproductSuffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}
