/*
 * ensemble.go, part of scoper.
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

// Package ensemble finds the weighted combination of structures that best
// fits a SAXS profile, using FoXS to compute the profile of each structure
// and the MultiFoXS combination solver to fit them together.
package ensemble

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rmera/scoper"
	"github.com/rmera/scoper/internal/pool"
	"github.com/rmera/scoper/logger"
	"github.com/rmera/scoper/metrics"
	"github.com/rmera/scoper/tools"
	"github.com/rmera/scoper/workspace"
)

// FilenamesFile is the name of the file listing the profiles for the solver.
const FilenamesFile = "filenames"

// ProfileSuffix is what FoXS appends to a structure's name to name its profile.
const ProfileSuffix = ".dat"

// Profiler computes the SAXS profile of a structure, fitting it to the
// experimental profile. tools.FoXSHandle implements it.
type Profiler interface {
	Run(ctx context.Context, pdbname, profile string) (*tools.Output, error)
}

// Solver runs the combination solver in a working directory.
// tools.MultiFoXSHandle implements it.
type Solver interface {
	SetWorkDir(dir string)
	Run(ctx context.Context, profile, filenames string) (*tools.Output, error)
}

// Result is the best ensemble found.
type Result struct {
	BestScore  float64  `json:"best_score"`
	Size       int      `json:"size,omitempty"`    //number of structures in the ensemble
	Members    []string `json:"members,omitempty"` //profiles in the ensemble, when known
	Dir        string   `json:"dir"`
	Structures int      `json:"structures"` //structures the solver could choose from
}

// Stage runs the ensemble fit.
type Stage struct {
	profiler Profiler
	solver   Solver
	manager  *workspace.Manager
	exclude  map[string]bool
	workers  int
	log      logger.Logger
	metrics  *metrics.Metrics
}

// NewStage returns a new Stage.
func NewStage(profiler Profiler, solver Solver, manager *workspace.Manager, log logger.Logger) *Stage {
	if log == nil {
		log = logger.NewNop()
	}
	if manager == nil {
		manager = workspace.NewManager()
	}
	return &Stage{profiler: profiler, solver: solver, manager: manager, exclude: map[string]bool{}, workers: 1, log: log}
}

// SetExclude sets names of directories whose structures are not
// collected, wherever they appear under the run directories.
func (S *Stage) SetExclude(names ...string) {
	S.exclude = make(map[string]bool, len(names))
	for _, n := range names {
		S.exclude[n] = true
	}
}

// SetWorkers sets how many profiles are computed at the same time.
func (S *Stage) SetWorkers(n int) {
	if n < 1 {
		n = 1
	}
	S.workers = n
}

// SetMetrics sets where the best chi is recorded.
func (S *Stage) SetMetrics(m *metrics.Metrics) {
	S.metrics = m
}

func solverError(errid, file, msg string, cause error) error {
	return scoper.NewError(scoper.ErrEnsembleSolver, errid, file, msg, cause, true)
}

// Run fits the structures found under runDirs to profile. workdir is
// emptied first, so nothing of a previous fit remains.
func (S *Stage) Run(ctx context.Context, runDirs []string, workdir, profile string) (*Result, error) {
	const errid = "Ensemble/Run"
	profile, err := filepath.Abs(profile)
	if err != nil {
		return nil, solverError(errid, profile, "", err)
	}
	workdir, err = filepath.Abs(workdir)
	if err != nil {
		return nil, solverError(errid, workdir, "", err)
	}
	for _, d := range runDirs {
		if within(workdir, d) {
			return nil, solverError(errid, workdir, fmt.Sprintf("working directory would remove the run directory %s", d), nil)
		}
	}
	if err := S.manager.Reset(workdir); err != nil {
		return nil, scoper.Decorate(err, errid)
	}
	structures, err := S.collect(runDirs, workdir)
	if err != nil {
		return nil, solverError(errid, "", "collecting structures", err)
	}
	if len(structures) == 0 {
		return nil, solverError(errid, "", fmt.Sprintf("no structures found in %s", strings.Join(runDirs, ", ")), nil)
	}
	copies, err := copyAll(structures, workdir)
	if err != nil {
		return nil, solverError(errid, workdir, "copying structures", err)
	}
	S.log.Info("Computing profiles for the ensemble",
		logger.Int("structures", len(copies)),
		logger.String("dir", workdir),
	)
	profiles, err := S.profiles(ctx, copies, profile)
	if err != nil {
		return nil, solverError(errid, "", "", err)
	}
	if len(profiles) == 0 {
		return nil, solverError(errid, "", "no structure profile could be computed", nil)
	}
	list := filepath.Join(workdir, FilenamesFile)
	if err := os.WriteFile(list, []byte(strings.Join(profiles, "\n")+"\n"), 0o644); err != nil {
		return nil, solverError(errid, list, "", err)
	}
	S.solver.SetWorkDir(workdir)
	out, err := S.solver.Run(ctx, profile, FilenamesFile)
	if err != nil {
		return nil, solverError(errid, "", "", err)
	}
	ret := &Result{Dir: workdir, Structures: len(profiles)}
	best, berr := tools.BestEnsemble(workdir)
	if berr == nil {
		ret.BestScore = best.Chi
		ret.Size = best.Size
		ret.Members = best.Members
	} else {
		S.log.Debug("No ensemble files, reading the solver output", logger.Error(berr))
		score, err := tools.BestScoreFromOutput(out.Stdout)
		if err != nil {
			return nil, solverError(errid, workdir, "unparseable solver result", err)
		}
		ret.BestScore = score
	}
	S.metrics.Ensemble(ret.BestScore)
	S.log.Info("MultiFoXS lowest score",
		logger.Float64("chi", ret.BestScore),
		logger.Int("size", ret.Size),
		logger.Strings("members", ret.Members),
	)
	return ret, nil
}

// collect returns the structures under dirs, sorted by path, leaving out
// the excluded directories and the working directory.
func (S *Stage) collect(dirs []string, workdir string) ([]string, error) {
	var ret []string
	seen := make(map[string]bool)
	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				abs, _ := filepath.Abs(path)
				if path != dir && (S.exclude[d.Name()] || abs == workdir) {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() || !strings.HasSuffix(d.Name(), ".pdb") {
				return nil
			}
			abs, _ := filepath.Abs(path)
			if !seen[abs] {
				seen[abs] = true
				ret = append(ret, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(ret)
	return ret, nil
}

// copyAll copies the structures into dir. Structures with the same name
// get the name of their directory as a prefix. It returns the new paths.
func copyAll(structures []string, dir string) ([]string, error) {
	used := make(map[string]bool, len(structures))
	ret := make([]string, 0, len(structures))
	for _, s := range structures {
		name := filepath.Base(s)
		if used[name] {
			name = filepath.Base(filepath.Dir(s)) + "_" + name
		}
		for i := 2; used[name]; i++ {
			name = fmt.Sprintf("%d_%s", i, filepath.Base(s))
		}
		used[name] = true
		dest := filepath.Join(dir, name)
		if err := copyFile(s, dest); err != nil {
			return nil, err
		}
		ret = append(ret, dest)
	}
	return ret, nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// profiles runs the profiler on every copy and returns the names of the
// profiles produced, relative to the working directory, in the order of
// the copies. Structures whose profile could not be computed are skipped.
func (S *Stage) profiles(ctx context.Context, copies []string, profile string) ([]string, error) {
	ok := make([]bool, len(copies))
	_, err := pool.ForEach(ctx, S.workers, len(copies), func(i int) error {
		_, err := S.profiler.Run(ctx, copies[i], profile)
		if err == nil {
			if _, serr := os.Stat(copies[i] + ProfileSuffix); serr != nil {
				err = serr
			}
		}
		if err != nil {
			S.log.Warn("No profile for structure, left out of the ensemble",
				logger.String("structure", filepath.Base(copies[i])),
				logger.Error(err),
			)
			return err
		}
		ok[i] = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	ret := make([]string, 0, len(copies))
	for i, c := range copies {
		if ok[i] {
			ret = append(ret, filepath.Base(c)+ProfileSuffix)
		}
	}
	return ret, nil
}

// within reports whether path is dir or lies under it.
func within(dir, path string) bool {
	path, err := filepath.Abs(path)
	if err != nil {
		return true
	}
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
