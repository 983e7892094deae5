// Package testutil has helpers shared by the tests of several packages.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// WriteScript writes an executable POSIX shell script called name in dir,
// with body after the shebang line, and returns its path. The scripts
// stand in for the external programs in tests.
func WriteScript(t testing.TB, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

// WriteFile writes content to dir/name and returns the path.
func WriteFile(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// MiniPDB is a small RNA fragment (three atoms of a guanine) used as
// input structure in tests.
const MiniPDB = `ATOM      1  P     G A   1      10.000  10.000  10.000  1.00  0.00           P
ATOM      2  OP1   G A   1      11.000  10.000  10.000  1.00  0.00           O
ATOM      3  H21   G A   1      10.000  12.000  10.000  1.00  0.00           H
END
`
