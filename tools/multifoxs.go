/*
 * multifoxs.go, part of scoper.
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
	"context"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rmera/scoper"
)

// MultiFoXSHandle runs the MultiFoXS combination solver
// (multi_foxs_combination) on a set of precalculated profiles.
type MultiFoXSHandle struct {
	base
	dir string
}

// NewMultiFoXSHandle returns a MultiFoXSHandle with the default settings.
func NewMultiFoXSHandle() *MultiFoXSHandle {
	O := new(MultiFoXSHandle)
	O.SetDefaults()
	return O
}

// SetDefaults sets the handle to run "multi_foxs_combination" from the PATH.
func (O *MultiFoXSHandle) SetDefaults() {
	O.name = "MultiFoXS"
	O.command = "multi_foxs_combination"
}

// SetWorkDir sets the directory where the solver is run, and where
// it leaves its results.
func (O *MultiFoXSHandle) SetWorkDir(dir string) {
	O.dir = dir
}

// WorkDir returns the directory where the solver is run.
func (O *MultiFoXSHandle) WorkDir() string {
	return O.dir
}

// Run runs the solver for the experimental profile, over the profiles
// listed in the filenames file.
func (O *MultiFoXSHandle) Run(ctx context.Context, profile, filenames string) (*Output, error) {
	out, err := O.run(ctx, O.dir, profile, filenames)
	return out, scoper.Decorate(err, "MultiFoXS/Run")
}

// Ensemble is one of the weighted combinations of profiles
// reported by MultiFoXS.
type Ensemble struct {
	Size    int
	Rank    int
	Chi     float64
	Members []string
	File    string
}

var ensembleFile = regexp.MustCompile(`^ensembles_size_(\d+)\.txt$`)

// BestEnsemble reads all the ensembles_size_*.txt files MultiFoXS left
// in dir and returns the ensemble with the lowest chi. Ties go to the
// smallest ensemble.
func BestEnsemble(dir string) (*Ensemble, error) {
	const errid = "BestEnsemble"
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, scoper.NewError(scoper.ErrScoreParse, errid, dir, "", err, false)
	}
	type sized struct {
		name string
		size int
	}
	files := make([]sized, 0, len(entries))
	for _, e := range entries {
		m := ensembleFile.FindStringSubmatch(e.Name())
		if m == nil || e.IsDir() {
			continue
		}
		size, _ := strconv.Atoi(m[1])
		files = append(files, sized{e.Name(), size})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].size < files[j].size })
	var best *Ensemble
	for _, f := range files {
		ens, err := readEnsembles(filepath.Join(dir, f.name), f.size)
		if err != nil {
			return nil, scoper.Decorate(err, errid)
		}
		for _, e := range ens {
			if best == nil || e.Chi < best.Chi {
				best = e
			}
		}
	}
	if best == nil {
		return nil, scoper.NewError(scoper.ErrScoreParse, errid, dir, "no ensembles found", nil, false)
	}
	return best, nil
}

// readEnsembles parses one ensembles_size_N.txt file. Header lines look
// like "1 |  2.34 | x1 2.34 (1.00, 0.50)", and are followed by indented
// member lines whose last field begins with the profile name.
func readEnsembles(name string, size int) ([]*Ensemble, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, scoper.NewError(scoper.ErrScoreParse, "readEnsembles", name, "", err, false)
	}
	defer f.Close()
	var ret []*Ensemble
	var current *Ensemble
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" || !strings.Contains(line, "|") {
			continue
		}
		fields := strings.Split(line, "|")
		if line[0] == ' ' || line[0] == '\t' {
			if current != nil {
				member := strings.Fields(fields[len(fields)-1])
				if len(member) > 0 {
					current.Members = append(current.Members, member[0])
				}
			}
			continue
		}
		rank, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil {
			continue
		}
		chiField := strings.Fields(fields[1])
		if len(chiField) == 0 {
			continue
		}
		chi, err := strconv.ParseFloat(chiField[0], 64)
		if err != nil || math.IsNaN(chi) || math.IsInf(chi, 0) {
			continue
		}
		current = &Ensemble{Size: size, Rank: rank, Chi: chi, File: name}
		ret = append(ret, current)
	}
	if err := scanner.Err(); err != nil {
		return nil, scoper.NewError(scoper.ErrScoreParse, "readEnsembles", name, "", err, false)
	}
	return ret, nil
}

// BestScoreFromOutput is used when no ensembles_size_*.txt file can be
// read. It returns the lowest chi printed in lines of the solver's
// output that mention "best" or "chi".
func BestScoreFromOutput(output []byte) (float64, error) {
	best := math.Inf(1)
	for _, line := range strings.Split(string(output), "\n") {
		lower := strings.ToLower(line)
		if !strings.Contains(lower, "best") && !strings.Contains(lower, "chi") {
			continue
		}
		v, err := ChiScore([]byte(line))
		if err != nil {
			v, err = lastNumber(line)
		}
		if err == nil && v < best {
			best = v
		}
	}
	if math.IsInf(best, 1) {
		return 0, scoper.NewError(scoper.ErrScoreParse, "BestScoreFromOutput", "", "no score in solver output", nil, false)
	}
	return best, nil
}

func lastNumber(line string) (float64, error) {
	fields := strings.Fields(line)
	for i := len(fields) - 1; i >= 0; i-- {
		if v, err := parseScore("lastNumber", fields[i]); err == nil {
			return v, nil
		}
	}
	return 0, scoper.NewError(scoper.ErrScoreParse, "lastNumber", "", "no number in line", nil, false)
}
