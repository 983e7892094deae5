/*
 * refine.go, part of scoper.
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

// Package refine drives the per-candidate refinement that follows
// selection. scoper does not know what the refinement does. It only
// asks a Refiner to run its inference on a candidate, and then to clean
// up after itself.
package refine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/rmera/scoper"
	"github.com/rmera/scoper/tools"
	"github.com/rmera/scoper/workspace"
)

// FeaturesDir is the directory of intermediate features that Cleanup removes.
const FeaturesDir = "features"

// Refiner refines one candidate.
type Refiner interface {
	Infer(ctx context.Context) error
	Cleanup() error
}

// Factory returns the Refiner for the candidate in candidatePath, which
// leaves its results in outDir.
type Factory func(outDir, candidatePath string) Refiner

// Options are passed on to every refinement.
type Options struct {
	InferenceType string
	Model         string
	ModelConfig   string
	Scorer        string //FoXS executable
	Solver        string //MultiFoXS executable
	Profile       string
	Timeout       time.Duration
	Observer      tools.Observer
	Manager       *workspace.Manager //creates the output directories, can be nil
}

// CommandRefiner runs an external refinement program on a candidate.
type CommandRefiner struct {
	handle    *tools.CommandHandle
	outDir    string
	candidate string
	opts      Options
	manager   *workspace.Manager
}

// NewCommandRefiner returns a CommandRefiner that runs command on the
// candidate in candidatePath, with its output going to outDir.
func NewCommandRefiner(command, outDir, candidatePath string, opts Options) *CommandRefiner {
	R := &CommandRefiner{
		handle:    tools.NewCommandHandle("Refinement", command),
		outDir:    outDir,
		candidate: candidatePath,
		opts:      opts,
		manager:   opts.Manager,
	}
	if R.manager == nil {
		R.manager = workspace.NewManager()
	}
	if opts.Timeout > 0 {
		R.handle.SetTimeout(opts.Timeout)
	}
	R.handle.SetObserver(opts.Observer)
	return R
}

// NewCommandFactory returns a Factory of CommandRefiners for command.
func NewCommandFactory(command string, opts Options) Factory {
	return func(outDir, candidatePath string) Refiner {
		return NewCommandRefiner(command, outDir, candidatePath, opts)
	}
}

// OutDir returns the directory where the results are left.
func (R *CommandRefiner) OutDir() string {
	return R.outDir
}

// Args returns the arguments given to the refinement program.
// Options with an empty value are not passed.
func (R *CommandRefiner) Args() []string {
	args := []string{"--output", R.outDir, "--pdb", R.candidate}
	optional := [][2]string{
		{"--type", R.opts.InferenceType},
		{"--model", R.opts.Model},
		{"--model-config", R.opts.ModelConfig},
		{"--foxs", R.opts.Scorer},
		{"--multifoxs", R.opts.Solver},
		{"--profile", R.opts.Profile},
	}
	for _, o := range optional {
		if o[1] != "" {
			args = append(args, o[0], o[1])
		}
	}
	return args
}

// Infer creates the output directory and runs the refinement program
// in it.
func (R *CommandRefiner) Infer(ctx context.Context) error {
	const errid = "CommandRefiner/Infer"
	name := filepath.Base(R.candidate)
	if err := R.manager.Ensure(R.outDir); err != nil {
		return scoper.NewError(scoper.ErrRefinement, errid, name, "", err, false)
	}
	R.handle.SetWorkDir(R.outDir)
	if _, err := R.handle.Run(ctx, R.Args()...); err != nil {
		return scoper.NewError(scoper.ErrRefinement, errid, name, "", err, errors.Is(err, context.Canceled))
	}
	return nil
}

// Cleanup removes the intermediate features the refinement left in the
// output directory. It is not an error if there are none.
func (R *CommandRefiner) Cleanup() error {
	features := filepath.Join(R.outDir, FeaturesDir)
	if err := os.RemoveAll(features); err != nil {
		return scoper.NewError(scoper.ErrRefinement, "CommandRefiner/Cleanup", features, "", err, false)
	}
	return nil
}
