/*
 * foxs.go, part of scoper.
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
	"bufio"
	"bytes"
	"context"
	"errors"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rmera/scoper"
)

// FoXSHandle runs the FoXS SAXS profile calculation and fitting program.
type FoXSHandle struct {
	base
	dir string
}

// NewFoXSHandle returns a FoXSHandle with the default settings.
func NewFoXSHandle() *FoXSHandle {
	O := new(FoXSHandle)
	O.SetDefaults()
	return O
}

// SetDefaults sets the handle to run "foxs" from the PATH.
func (O *FoXSHandle) SetDefaults() {
	O.name = "FoXS"
	O.command = "foxs"
}

// SetWorkDir sets the directory where foxs is run. FoXS writes its
// profiles next to the structure, not in the working directory, but
// some versions leave log files in the latter.
func (O *FoXSHandle) SetWorkDir(dir string) {
	O.dir = dir
}

// Run fits the profile calculated for pdbname to the experimental profile
// and returns the output of the program.
func (O *FoXSHandle) Run(ctx context.Context, pdbname, profile string) (*Output, error) {
	out, err := O.run(ctx, O.dir, pdbname, profile)
	return out, scoper.Decorate(err, "FoXS/Run")
}

// Score runs FoXS and extracts the chi value from its output.
func (O *FoXSHandle) Score(ctx context.Context, pdbname, profile string) (float64, error) {
	out, err := O.Run(ctx, pdbname, profile)
	if err != nil {
		return 0, err
	}
	chi, err := ChiScore(out.Stdout)
	if err != nil {
		var e *scoper.Error
		if errors.As(err, &e) {
			e.File = filepath.Base(pdbname)
		}
		return 0, scoper.Decorate(err, "FoXS/Score")
	}
	return chi, nil
}

// ChiScore extracts the goodness-of-fit value from the output of FoXS.
// It looks for the first line containing "Chi^2" (in any case) followed
// by "=", and reads the number after the "=". If there is no such line,
// the last number in the first line that mentions "chi" is used instead.
func ChiScore(output []byte) (float64, error) {
	const errid = "ChiScore"
	var fallback string
	scanner := bufio.NewScanner(bytes.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		lower := strings.ToLower(line)
		if i := strings.Index(lower, "chi^2"); i >= 0 {
			rest := line[i+len("chi^2"):]
			if j := strings.Index(rest, "="); j >= 0 {
				fields := strings.Fields(rest[j+1:])
				if len(fields) == 0 {
					return 0, scoper.NewError(scoper.ErrScoreParse, errid, "", "no value after Chi^2 marker", nil, false)
				}
				return parseScore(errid, fields[0])
			}
		}
		if fallback == "" && strings.Contains(lower, "chi") {
			fallback = line
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, scoper.NewError(scoper.ErrScoreParse, errid, "", "reading output", err, false)
	}
	if fallback != "" {
		if v, err := lastNumber(fallback); err == nil {
			return v, nil
		}
	}
	return 0, scoper.NewError(scoper.ErrScoreParse, errid, "", "no Chi^2 value in output", nil, false)
}

// parseScore parses s, ignoring trailing punctuation. NaN and infinite
// values are rejected.
func parseScore(errid, s string) (float64, error) {
	s = strings.TrimRight(s, ",;)")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, scoper.NewError(scoper.ErrScoreParse, errid, "", "malformed value "+strconv.Quote(s), err, false)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, scoper.NewError(scoper.ErrScoreParse, errid, "", "non-finite value "+s, nil, false)
	}
	return v, nil
}
