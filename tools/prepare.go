/*
 * prepare.go, part of scoper.
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

	"github.com/rmera/scoper"
)

// PrepareHandle runs the KGS preparation script on a hydrogenated
// structure, as <interpreter> <script> -v <pdb>.HB.
type PrepareHandle struct {
	base
	interpreter string
}

// NewPrepareHandle returns a PrepareHandle with the default settings.
func NewPrepareHandle() *PrepareHandle {
	O := new(PrepareHandle)
	O.SetDefaults()
	return O
}

// SetDefaults sets the handle to run kgs_prepare.py with python.
func (O *PrepareHandle) SetDefaults() {
	O.name = "Prepare"
	O.command = "kgs_prepare.py"
	O.interpreter = "python"
}

// SetInterpreter sets the program used to run the script. If it is
// the empty string, the script is executed directly.
func (O *PrepareHandle) SetInterpreter(interpreter string) {
	O.interpreter = interpreter
}

// Interpreter returns the program used to run the script.
func (O *PrepareHandle) Interpreter() string {
	return O.interpreter
}

// Args returns the complete command line, without running it.
func (O *PrepareHandle) Args(hbname string) []string {
	if O.interpreter == "" {
		return []string{O.command, "-v", hbname}
	}
	return []string{O.interpreter, O.command, "-v", hbname}
}

// Run prepares hbname in place.
func (O *PrepareHandle) Run(ctx context.Context, hbname string) (*Output, error) {
	args := O.Args(hbname)
	out, err := runTool(ctx, O.name, O.timeout, O.observer, "", args[0], args[1:]...)
	return out, scoper.Decorate(err, "Prepare/Run")
}
