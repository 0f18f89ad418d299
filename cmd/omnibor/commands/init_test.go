package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/dyluth/omnibor/internal/config"
	"github.com/dyluth/omnibor/pkg/gitoid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runInit(t *testing.T, args ...string) error {
	t.Helper()
	root := newRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(append([]string{"init"}, args...))
	return root.Execute()
}

// chdir changes the working directory for the duration of the test,
// equivalent to testing.T.Chdir (Go 1.24+) on older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	require.NoError(t, runInit(t, "--hash", "sha1"))

	cfg, err := config.Load(filepath.Join(dir, config.FileName))
	require.NoError(t, err)
	assert.Equal(t, gitoid.SHA1, cfg.Hash)

	info, err := os.Stat(filepath.Join(dir, ".omnibor"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	t.Run("second run needs force", func(t *testing.T) {
		err := runInit(t)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--force")
	})

	t.Run("force overwrites", func(t *testing.T) {
		require.NoError(t, runInit(t, "--force"))
		cfg, err := config.Load(filepath.Join(dir, config.FileName))
		require.NoError(t, err)
		assert.Equal(t, gitoid.SHA256, cfg.Hash)
	})
}

func TestInitCommand_ExplicitDir(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	require.NoError(t, runInit(t, "--dir", "manifests"))

	info, err := os.Stat(filepath.Join(dir, "manifests"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	cfg, err := config.Load(filepath.Join(dir, config.FileName))
	require.NoError(t, err)
	assert.Equal(t, "manifests", cfg.Dir)
}
