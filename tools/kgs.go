/*
 * kgs.go, part of scoper.
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

package tools

import (
	"context"
	"strconv"
	"strings"

	"github.com/rmera/scoper"
)

// KGSHandle runs the KGSrna sampler (kgs_explore).
type KGSHandle struct {
	base
	samples   int
	neighbors int
	step      float64
}

// NewKGSHandle returns a KGSHandle with the default settings.
func NewKGSHandle() *KGSHandle {
	O := new(KGSHandle)
	O.SetDefaults()
	return O
}

// SetDefaults sets the usual KGSrna parameters for RNA: 20 neighbors
// and a 0.4 step size. The number of samples defaults to 100.
func (O *KGSHandle) SetDefaults() {
	O.name = "KGS"
	O.command = "/usr/local/bin/kgs_explore"
	O.samples = 100
	O.neighbors = 20
	O.step = 0.4
}

// SetSamples sets how many conformations will be requested.
func (O *KGSHandle) SetSamples(n int) {
	O.samples = n
}

// SetNeighbors sets the -r parameter of kgs_explore.
func (O *KGSHandle) SetNeighbors(n int) {
	O.neighbors = n
}

// SetStep sets the -c parameter of kgs_explore.
func (O *KGSHandle) SetStep(step float64) {
	O.step = step
}

// Args returns the arguments kgs_explore will be called with. The working
// directory always gets a trailing slash, as kgs_explore just appends
// file names to it.
func (O *KGSHandle) Args(hbname, workdir string) []string {
	if !strings.HasSuffix(workdir, "/") {
		workdir += "/"
	}
	return []string{
		"--initial", hbname,
		"-s", strconv.Itoa(O.samples),
		"-r", strconv.Itoa(O.neighbors),
		"-c", strconv.FormatFloat(O.step, 'f', -1, 64),
		"--workingDirectory", workdir,
	}
}

// Run samples conformations starting from hbname. The sampler writes them
// into workdir/output/. The output of the program is not kept.
func (O *KGSHandle) Run(ctx context.Context, hbname, workdir string) error {
	_, err := O.run(ctx, "", O.Args(hbname, workdir)...)
	return scoper.Decorate(err, "KGS/Run")
}
