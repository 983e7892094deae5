/*
 * tools.go, part of scoper.
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

// Package tools contains handles for the external programs scoper drives:
// the hydrogen-addition tool (reduce), the KGS preparation script, the
// KGSrna sampler, the FoXS scorer and the MultiFoXS ensemble solver.
//
// Every handle follows the same pattern: create it with New*Handle(),
// which sets the defaults, change whatever is needed with the Set*
// methods, and call Run. All handles run their program under a deadline
// and return a *scoper.Error of kind ErrToolInvocation or ErrToolTimeout
// when something goes wrong.
package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rmera/scoper"
)

// waitDelay is how long we wait for the I/O of a killed program to finish.
const waitDelay = 2 * time.Second

// stderrTail is how many bytes of the standard error are kept in errors.
const stderrTail = 512

// Observer is told about every external program that finishes,
// successfully or not.
type Observer interface {
	ObserveTool(tool string, elapsed time.Duration, err error)
}

// Output contains what a finished program printed, and how long it took.
type Output struct {
	Stdout  []byte
	Stderr  []byte
	Elapsed time.Duration
}

// base holds what all handles have in common.
type base struct {
	name     string
	command  string
	timeout  time.Duration
	observer Observer
}

// Command returns the program the handle runs.
func (O *base) Command() string {
	return O.command
}

// SetCommand sets the program the handle runs.
func (O *base) SetCommand(command string) {
	O.command = command
}

// SetTimeout sets the maximum time the program is allowed to run.
// Zero means no limit other than that of the context given to Run.
func (O *base) SetTimeout(timeout time.Duration) {
	O.timeout = timeout
}

// Timeout returns the current time limit for the program.
func (O *base) Timeout() time.Duration {
	return O.timeout
}

// SetObserver sets an observer that will be notified each time the program finishes.
func (O *base) SetObserver(obs Observer) {
	O.observer = obs
}

// run executes the handle's command with args in dir (the current
// directory if dir is empty).
func (O *base) run(ctx context.Context, dir string, args ...string) (*Output, error) {
	return runTool(ctx, O.name, O.timeout, O.observer, dir, O.command, args...)
}

func runTool(ctx context.Context, name string, timeout time.Duration, obs Observer, dir, command string, args ...string) (*Output, error) {
	errid := name + "/Run"
	if command == "" {
		return nil, scoper.NewError(scoper.ErrToolInvocation, errid, "", "no command set", nil, true)
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay
	start := time.Now()
	err := cmd.Run()
	out := &Output{Stdout: stdout.Bytes(), Stderr: stderr.Bytes(), Elapsed: time.Since(start)}
	if err != nil {
		err = toolError(ctx, errid, command, args, out, err)
	}
	if obs != nil {
		obs.ObserveTool(name, out.Elapsed, err)
	}
	return out, err
}

func toolError(ctx context.Context, errid, command string, args []string, out *Output, err error) error {
	full := strings.TrimSpace(command + " " + strings.Join(args, " "))
	if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) {
		return scoper.NewError(scoper.ErrToolTimeout, errid, "", fmt.Sprintf("%q after %s", full, out.Elapsed.Round(time.Millisecond)), ctxErr, false)
	} else if ctxErr != nil {
		return scoper.NewError(scoper.ErrToolInvocation, errid, "", fmt.Sprintf("%q cancelled", full), ctxErr, true)
	}
	msg := fmt.Sprintf("%q", full)
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		msg = fmt.Sprintf("%q exited with status %d", full, exitErr.ExitCode())
	}
	if tail := lastBytes(out.Stderr, stderrTail); tail != "" {
		msg += ": " + tail
	}
	return scoper.NewError(scoper.ErrToolInvocation, errid, "", msg, err, false)
}

func lastBytes(b []byte, n int) string {
	b = bytes.TrimSpace(b)
	if len(b) > n {
		b = b[len(b)-n:]
	}
	return string(b)
}

// CommandHandle runs an arbitrary program. It is used for collaborators
// that have no handle of their own, such as the refinement pipeline.
type CommandHandle struct {
	base
	dir string
}

// NewCommandHandle returns a handle for command. name is used in errors
// and metrics.
func NewCommandHandle(name, command string) *CommandHandle {
	O := new(CommandHandle)
	O.name = name
	O.command = command
	return O
}

// SetWorkDir sets the directory where the program is run.
func (O *CommandHandle) SetWorkDir(dir string) {
	O.dir = dir
}

// Run runs the command with the given arguments and waits for it to finish.
func (O *CommandHandle) Run(ctx context.Context, args ...string) (*Output, error) {
	return O.run(ctx, O.dir, args...)
}
