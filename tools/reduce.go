/*
 * reduce.go, part of scoper.
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
	"os"

	"github.com/rmera/scoper"
)

// HBSuffix is appended to a structure's name to obtain the name of
// the hydrogenated structure written by the reduce wrapper.
const HBSuffix = ".HB"

// ReduceHandle runs the hydrogen-addition program on a PDB file.
// The program must write <pdb>.HB next to its input.
type ReduceHandle struct {
	base
}

// NewReduceHandle returns a ReduceHandle with the default settings.
func NewReduceHandle() *ReduceHandle {
	O := new(ReduceHandle)
	O.SetDefaults()
	return O
}

// SetDefaults sets the handle to run "reduce" from the PATH.
func (O *ReduceHandle) SetDefaults() {
	O.name = "Reduce"
	O.command = "reduce"
	O.timeout = 0
}

// HBName returns the name of the hydrogenated structure for pdbname.
func HBName(pdbname string) string {
	return pdbname + HBSuffix
}

// Run adds hydrogens to pdbname. It returns the name of the new file,
// together with the program's output. An error is also returned if the
// program ends normally but the new file is missing or empty.
func (O *ReduceHandle) Run(ctx context.Context, pdbname string) (string, *Output, error) {
	out, err := O.run(ctx, "", pdbname)
	if err != nil {
		return "", out, scoper.Decorate(err, "Reduce/Run")
	}
	hb := HBName(pdbname)
	st, err := os.Stat(hb)
	if err != nil {
		return "", out, scoper.NewError(scoper.ErrToolInvocation, "Reduce/Run", hb, "hydrogenated structure not produced", err, false)
	}
	if st.Size() == 0 {
		return "", out, scoper.NewError(scoper.ErrToolInvocation, "Reduce/Run", hb, "hydrogenated structure is empty", nil, false)
	}
	return hb, out, nil
}
