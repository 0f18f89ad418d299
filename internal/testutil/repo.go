// Package testutil holds helpers shared by tests that need a real Git
// work tree.
package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// RequireGit skips the test when the git binary is not installed.
func RequireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

// GitRepo creates an isolated Git repository with one commit and returns
// its root. Symlinks such as /tmp -> /private/tmp are resolved so the path
// compares equal to what git reports.
func GitRepo(t *testing.T) string {
	t.Helper()
	RequireGit(t)

	tmpDir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	git := func(args ...string) {
		cmd := exec.Command("git", append([]string{"-C", tmpDir}, args...)...)
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, "git %v: %s", args, out)
	}

	git("init")
	git("config", "user.email", "test@omnibor.local")
	git("config", "user.name", "OmniBOR Test")

	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "README.md"), []byte("# Test Project\n"), 0644))
	git("add", ".")
	git("commit", "-m", "Initial commit")

	return tmpDir
}
