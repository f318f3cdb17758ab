package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// AssertGolden compares output with testdata/<goldenName> at the repository
// root byte for byte. Setting UPDATE_GOLDEN rewrites the file first.
func AssertGolden(t *testing.T, goldenName, output string) {
	t.Helper()
	require.Equal(t, string(readGolden(t, goldenName, output)), output, "output mismatch for %s", goldenName)
}

// AssertGoldenJSON compares output with a golden JSON document, ignoring
// formatting and key order.
func AssertGoldenJSON(t *testing.T, goldenName, output string) {
	t.Helper()
	require.JSONEq(t, string(readGolden(t, goldenName, output)), output, "json mismatch for %s", goldenName)
}

func readGolden(t *testing.T, goldenName, output string) []byte {
	t.Helper()
	path := filepath.Join(RepoRoot(t), "testdata", goldenName)
	if os.Getenv("UPDATE_GOLDEN") != "" {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(output), 0o644))
	}
	data, err := os.ReadFile(path)
	require.NoError(t, err, "read golden %s", goldenName)
	return data
}

// RepoRoot walks up from the working directory to the nearest go.mod.
func RepoRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	require.NoError(t, err)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
