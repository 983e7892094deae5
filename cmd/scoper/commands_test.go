package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmera/scoper/internal/testutil"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir()) //no stray .env files
	var out bytes.Buffer
	root := newRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "scoper version")
}

func TestScoreCommand(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"a", "b", "c"} {
		testutil.WriteFile(t, dir, n+".pdb", "")
	}
	profile := testutil.WriteFile(t, t.TempDir(), "sl2.dat", "x")
	foxs := testutil.WriteScript(t, t.TempDir(), "foxs", `case "$(basename "$1")" in
  a.pdb) echo "Chi^2 = 2.0" ;;
  b.pdb) echo "Chi^2 = 0.7" ;;
  *) echo "nothing" ;;
esac`)
	t.Setenv("SCOPER_FOXS", foxs)
	t.Setenv("SCOPER_LOG_LEVEL", "error")
	report := filepath.Join(t.TempDir(), "scores.tsv")

	out, err := execute(t, "score", "--dir", dir, "--profile", profile, "--top-k", "1", "--report", report)
	require.NoError(t, err)
	assert.Contains(t, out, "b.pdb")
	assert.Contains(t, out, "0.7000")
	assert.Contains(t, out, "excluded")
	assert.FileExists(t, report)
}

func TestRunNeedsInput(t *testing.T) {
	_, err := execute(t, "run", "--profile", "missing.dat")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input")
}

func TestScoreCommandZeroTopK(t *testing.T) {
	dir := t.TempDir()
	profile := testutil.WriteFile(t, t.TempDir(), "sl2.dat", "x")
	_, err := execute(t, "score", "--dir", dir, "--profile", profile, "--top-k", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "top_k")
}
