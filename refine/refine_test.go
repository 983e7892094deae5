package refine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmera/scoper"
	"github.com/rmera/scoper/internal/testutil"
)

func TestArgs(Te *testing.T) {
	R := NewCommandRefiner("refine", "/run/b", "/run/KGSRNA/x.pdb/output/b.pdb", Options{
		InferenceType: "3d",
		Model:         "m.pt",
		Scorer:        "foxs",
		Profile:       "sl2.dat",
	})
	want := []string{"--output", "/run/b", "--pdb", "/run/KGSRNA/x.pdb/output/b.pdb",
		"--type", "3d", "--model", "m.pt", "--foxs", "foxs", "--profile", "sl2.dat"}
	assert.Equal(Te, want, R.Args())
}

func TestInferAndCleanup(Te *testing.T) {
	base := Te.TempDir()
	//The fake refinement records its arguments and leaves features behind.
	command := testutil.WriteScript(Te, Te.TempDir(), "refine", `echo "$@" > args.txt
mkdir -p features
touch features/f.npy result.pdb`)
	factory := NewCommandFactory(command, Options{Model: "m.pt"})
	outDir := filepath.Join(base, "b")
	R := factory(outDir, "/cands/b.pdb")

	require.NoError(Te, R.Infer(context.Background()))
	args, err := os.ReadFile(filepath.Join(outDir, "args.txt"))
	require.NoError(Te, err)
	assert.Equal(Te, "--output "+outDir+" --pdb /cands/b.pdb --model m.pt", strings.TrimSpace(string(args)))
	assert.DirExists(Te, filepath.Join(outDir, FeaturesDir))

	require.NoError(Te, R.Cleanup())
	assert.NoDirExists(Te, filepath.Join(outDir, FeaturesDir))
	assert.FileExists(Te, filepath.Join(outDir, "result.pdb"))
	//Twice is fine.
	assert.NoError(Te, R.Cleanup())
}

func TestInferFailure(Te *testing.T) {
	command := testutil.WriteScript(Te, Te.TempDir(), "refine", `echo "no model" >&2; exit 1`)
	R := NewCommandRefiner(command, filepath.Join(Te.TempDir(), "b"), "b.pdb", Options{})
	err := R.Infer(context.Background())
	require.Error(Te, err)
	assert.True(Te, errors.Is(err, scoper.ErrRefinement))
	assert.True(Te, errors.Is(err, scoper.ErrToolInvocation))
	assert.False(Te, scoper.IsCritical(err))
	assert.Contains(Te, err.Error(), "no model")
}

func TestInferCancelledIsCritical(Te *testing.T) {
	command := testutil.WriteScript(Te, Te.TempDir(), "refine", `exec sleep 5`)
	R := NewCommandRefiner(command, filepath.Join(Te.TempDir(), "b"), "b.pdb", Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := R.Infer(ctx)
	require.Error(Te, err)
	assert.True(Te, errors.Is(err, context.Canceled))
	assert.True(Te, scoper.IsCritical(err))
}
