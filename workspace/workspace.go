/*
 * workspace.go, part of scoper.
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

// Package workspace creates and manages the directory tree of a scoper run.
//
// The tree is rooted at a base directory and has fixed names:
//
//	base/KGSRNA/<structure>/output/   sampled conformations
//	base/saxs_work_dir/               scoring area
//	base/MultiFoXS/                   ensemble fitting area
package workspace

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rmera/scoper"
)

// Fixed directory names.
const (
	SamplerDir  = "KGSRNA"
	OutputDir   = "output"
	ScoringDir  = "saxs_work_dir"
	EnsembleDir = "MultiFoXS"
)

const dirPerm = 0o755

// Manager creates directories. Calls are serialized, so concurrent users
// of the same Manager never race on create-if-absent.
type Manager struct {
	mu sync.Mutex
}

// NewManager returns a new Manager.
func NewManager() *Manager {
	return new(Manager)
}

// Ensure makes sure path exists and is a directory. Only the last element
// of path is created; its parent must exist. Ensure never removes or
// truncates anything, so it can be called any number of times.
func (M *Manager) Ensure(path string) error {
	M.mu.Lock()
	defer M.mu.Unlock()
	return ensure(path)
}

// EnsureAll calls Ensure on each path, in order, and stops at the first error.
func (M *Manager) EnsureAll(paths ...string) error {
	M.mu.Lock()
	defer M.mu.Unlock()
	for _, p := range paths {
		if err := ensure(p); err != nil {
			return err
		}
	}
	return nil
}

// Reset removes path with all its contents, and creates it again, empty.
func (M *Manager) Reset(path string) error {
	M.mu.Lock()
	defer M.mu.Unlock()
	if err := os.RemoveAll(path); err != nil {
		return scoper.NewError(scoper.ErrWorkspace, "Workspace/Reset", path, "can't remove directory", err, true)
	}
	return ensure(path)
}

func ensure(path string) error {
	const errid = "Workspace/Ensure"
	st, err := os.Stat(path)
	if err == nil {
		if !st.IsDir() {
			return scoper.NewError(scoper.ErrWorkspace, errid, path, "exists and is not a directory", nil, true)
		}
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return scoper.NewError(scoper.ErrWorkspace, errid, path, "", err, true)
	}
	err = os.Mkdir(path, dirPerm)
	if err == nil {
		return nil
	}
	// Somebody else (another process) could have created it meanwhile.
	if errors.Is(err, fs.ErrExist) {
		if st, serr := os.Stat(path); serr == nil && st.IsDir() {
			return nil
		}
	}
	return scoper.NewError(scoper.ErrWorkspace, errid, path, "can't create directory", err, true)
}

// Layout contains all the paths used in a run for one input structure.
type Layout struct {
	Base      string
	Structure string //base name of the input structure
	Sampler   string //base/KGSRNA
	Work      string //base/KGSRNA/<structure>, given to the sampler
	Output    string //base/KGSRNA/<structure>/output
	Scoring   string
	Ensemble  string
}

// NewLayout returns the Layout for the structure in inputPath, under base.
func NewLayout(base, inputPath string) *Layout {
	name := filepath.Base(inputPath)
	sampler := filepath.Join(base, SamplerDir)
	work := filepath.Join(sampler, name)
	return &Layout{
		Base:      base,
		Structure: name,
		Sampler:   sampler,
		Work:      work,
		Output:    filepath.Join(work, OutputDir),
		Scoring:   filepath.Join(base, ScoringDir),
		Ensemble:  filepath.Join(base, EnsembleDir),
	}
}

// Prepare creates every directory needed before sampling, the base
// directory included. The ensemble directory is not created here.
func (L *Layout) Prepare(M *Manager) error {
	err := M.EnsureAll(L.Base, L.Sampler, L.Work, L.Output, L.Scoring)
	return scoper.Decorate(err, "Layout/Prepare")
}

// RefineDir returns the directory where the refinement of the candidate
// in candidatePath leaves its results: base/<candidate name without extension>.
func (L *Layout) RefineDir(candidatePath string) string {
	name := filepath.Base(candidatePath)
	return filepath.Join(L.Base, name[:len(name)-len(filepath.Ext(name))])
}
