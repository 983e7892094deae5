/*
 * tools_test.go, part of scoper.
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
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmera/scoper"
	"github.com/rmera/scoper/internal/testutil"
)

type recorder struct {
	mu    sync.Mutex
	tools []string
	errs  []error
}

func (R *recorder) ObserveTool(tool string, elapsed time.Duration, err error) {
	R.mu.Lock()
	defer R.mu.Unlock()
	R.tools = append(R.tools, tool)
	R.errs = append(R.errs, err)
}

func TestChiScore(Te *testing.T) {
	cases := []struct {
		name   string
		output string
		want   float64
	}{
		{"foxs", "a.pdb a.pdb.dat Chi^2 = 1.234 c1 = 1.01 c2 = 0.5\n", 1.234},
		{"lower", "chi^2 =0.5\n", 0.5},
		{"first wins", "Chi^2 = 3.0\nChi^2 = 1.0\n", 3.0},
		{"fallback", "fit done, chi 2.75\n", 2.75},
		{"exponent", "Chi^2 = 1e-2\n", 0.01},
	}
	for _, c := range cases {
		Te.Run(c.name, func(Te *testing.T) {
			v, err := ChiScore([]byte(c.output))
			require.NoError(Te, err)
			assert.InDelta(Te, c.want, v, 1e-12)
		})
	}
}

func TestChiScoreErrors(Te *testing.T) {
	for _, out := range []string{"", "no score here\n", "Chi^2 = abc\n", "Chi^2 = NaN\n", "Chi^2 =\n"} {
		_, err := ChiScore([]byte(out))
		require.Error(Te, err, out)
		assert.True(Te, errors.Is(err, scoper.ErrScoreParse), out)
	}
}

func TestKGSArgs(Te *testing.T) {
	k := NewKGSHandle()
	k.SetSamples(30)
	args := k.Args("in.pdb.HB", "work/KGSRNA/in.pdb")
	assert.Equal(Te, []string{
		"--initial", "in.pdb.HB", "-s", "30", "-r", "20", "-c", "0.4",
		"--workingDirectory", "work/KGSRNA/in.pdb/",
	}, args)
}

func TestPrepareArgs(Te *testing.T) {
	p := NewPrepareHandle()
	assert.Equal(Te, []string{"python", "kgs_prepare.py", "-v", "x.HB"}, p.Args("x.HB"))
	p.SetInterpreter("")
	p.SetCommand("/opt/prep")
	assert.Equal(Te, []string{"/opt/prep", "-v", "x.HB"}, p.Args("x.HB"))
}

func TestReduceRun(Te *testing.T) {
	dir := Te.TempDir()
	pdbname := testutil.WriteFile(Te, dir, "in.pdb", testutil.MiniPDB)
	r := NewReduceHandle()
	r.SetCommand(testutil.WriteScript(Te, dir, "reduce", `echo "adding"; cp "$1" "$1.HB"`))
	hb, out, err := r.Run(context.Background(), pdbname)
	require.NoError(Te, err)
	assert.Equal(Te, pdbname+".HB", hb)
	assert.Equal(Te, "adding\n", string(out.Stdout))
	assert.FileExists(Te, hb)
}

func TestReduceNoOutput(Te *testing.T) {
	dir := Te.TempDir()
	pdbname := testutil.WriteFile(Te, dir, "in.pdb", testutil.MiniPDB)
	r := NewReduceHandle()
	r.SetCommand(testutil.WriteScript(Te, dir, "reduce", `exit 0`))
	_, _, err := r.Run(context.Background(), pdbname)
	require.Error(Te, err)
	assert.True(Te, errors.Is(err, scoper.ErrToolInvocation))
}

func TestRunFailure(Te *testing.T) {
	dir := Te.TempDir()
	rec := new(recorder)
	f := NewFoXSHandle()
	f.SetObserver(rec)
	f.SetCommand(testutil.WriteScript(Te, dir, "foxs", `echo "cannot read $1" >&2; exit 3`))
	_, err := f.Score(context.Background(), "a.pdb", "p.dat")
	require.Error(Te, err)
	assert.True(Te, errors.Is(err, scoper.ErrToolInvocation))
	assert.False(Te, errors.Is(err, scoper.ErrToolTimeout))
	assert.Contains(Te, err.Error(), "status 3")
	assert.Contains(Te, err.Error(), "cannot read a.pdb")
	require.Len(Te, rec.tools, 1)
	assert.Equal(Te, "FoXS", rec.tools[0])
	assert.Error(Te, rec.errs[0])
}

func TestRunTimeout(Te *testing.T) {
	dir := Te.TempDir()
	k := NewKGSHandle()
	k.SetCommand(testutil.WriteScript(Te, dir, "kgs", `exec sleep 5`))
	k.SetTimeout(100 * time.Millisecond)
	start := time.Now()
	err := k.Run(context.Background(), "x.HB", dir)
	require.Error(Te, err)
	assert.True(Te, errors.Is(err, scoper.ErrToolTimeout))
	assert.Less(Te, time.Since(start), 4*time.Second)
}

func TestRunNoCommand(Te *testing.T) {
	c := NewCommandHandle("Refine", "")
	_, err := c.Run(context.Background())
	require.Error(Te, err)
	assert.True(Te, errors.Is(err, scoper.ErrToolInvocation))
}

func TestFoXSScore(Te *testing.T) {
	dir := Te.TempDir()
	f := NewFoXSHandle()
	f.SetCommand(testutil.WriteScript(Te, dir, "foxs", `echo "$1 $2 Chi^2 = 0.75 c1 = 1.0 c2 = 0.0"`))
	chi, err := f.Score(context.Background(), "a.pdb", "p.dat")
	require.NoError(Te, err)
	assert.InDelta(Te, 0.75, chi, 1e-12)
}

func TestFoXSScoreParseFailure(Te *testing.T) {
	dir := Te.TempDir()
	f := NewFoXSHandle()
	f.SetCommand(testutil.WriteScript(Te, dir, "foxs", `echo "nothing useful"`))
	_, err := f.Score(context.Background(), filepath.Join(dir, "c.pdb"), "p.dat")
	require.Error(Te, err)
	var e *scoper.Error
	require.True(Te, errors.As(err, &e))
	assert.Equal(Te, "c.pdb", e.FileName())
	assert.Contains(Te, e.Decorate(""), "FoXS/Score")
}

const ensembles2 = `1 |  1.50 | x1 1.50 (0.99, 0.20)
    0   | 0.600 (0.600, 0.100) | a.pdb.dat (0.000)
    1   | 0.400 (0.400, 0.100) | b.pdb.dat (0.000)
2 |  1.70 | x1 1.70 (0.99, 0.20)
    0   | 0.500 (0.500, 0.100) | a.pdb.dat (0.000)
    1   | 0.500 (0.500, 0.100) | c.pdb.dat (0.000)
`

const ensembles3 = `1 |  0.90 | x1 0.90 (1.00, 0.10)
    0   | 0.300 (0.300, 0.100) | a.pdb.dat (0.000)
    1   | 0.300 (0.300, 0.100) | b.pdb.dat (0.000)
    2   | 0.400 (0.400, 0.100) | c.pdb.dat (0.000)
`

func TestBestEnsemble(Te *testing.T) {
	dir := Te.TempDir()
	testutil.WriteFile(Te, dir, "ensembles_size_2.txt", ensembles2)
	testutil.WriteFile(Te, dir, "ensembles_size_3.txt", ensembles3)
	testutil.WriteFile(Te, dir, "ensembles_size_1.txt", "1 |  4.00 | x1 4.00 (1.00, 0.10)\n    0   | 1.000 (1.000, 0.100) | a.pdb.dat (0.000)\n")
	best, err := BestEnsemble(dir)
	require.NoError(Te, err)
	assert.Equal(Te, 3, best.Size)
	assert.Equal(Te, 1, best.Rank)
	assert.InDelta(Te, 0.90, best.Chi, 1e-12)
	assert.Equal(Te, []string{"a.pdb.dat", "b.pdb.dat", "c.pdb.dat"}, best.Members)
}

func TestBestEnsembleEmpty(Te *testing.T) {
	_, err := BestEnsemble(Te.TempDir())
	require.Error(Te, err)
	assert.True(Te, errors.Is(err, scoper.ErrScoreParse))
}

func TestBestScoreFromOutput(Te *testing.T) {
	v, err := BestScoreFromOutput([]byte("reading profiles\nbest score 2.5\nbest chi^2 = 1.25\n"))
	require.NoError(Te, err)
	assert.InDelta(Te, 1.25, v, 1e-12)
	_, err = BestScoreFromOutput([]byte("done\n"))
	assert.Error(Te, err)
}

func TestMultiFoXSRunInWorkDir(Te *testing.T) {
	dir := Te.TempDir()
	m := NewMultiFoXSHandle()
	m.SetWorkDir(dir)
	m.SetCommand(testutil.WriteScript(Te, Te.TempDir(), "multifoxs", `printf '1 |  0.5 | x\n' > ensembles_size_1.txt; cat "$2"`))
	testutil.WriteFile(Te, dir, "filenames", "a.pdb.dat\n")
	out, err := m.Run(context.Background(), "p.dat", "filenames")
	require.NoError(Te, err)
	assert.Equal(Te, "a.pdb.dat", strings.TrimSpace(string(out.Stdout)))
	_, err = os.Stat(filepath.Join(dir, "ensembles_size_1.txt"))
	assert.NoError(Te, err)
}
