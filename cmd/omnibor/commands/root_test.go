package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cli runs the command tree against a throwaway workspace: no config file
// and filesystem storage under a temp directory.
type cli struct {
	t        *testing.T
	dir      string
	storeDir string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	dir := t.TempDir()
	return &cli{t: t, dir: dir, storeDir: filepath.Join(dir, "store")}
}

func (c *cli) baseArgs() []string {
	return []string{"--config", filepath.Join(c.dir, "absent.yml"), "--dir", c.storeDir}
}

func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	root := newRootCmd()
	out := new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs(append(c.baseArgs(), args...))
	err := root.Execute()
	return out.String(), err
}

func (c *cli) file(name, content string) string {
	c.t.Helper()
	path := filepath.Join(c.dir, name)
	require.NoError(c.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(c.t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// TestRootCommand_ShowsHelpWhenNoSubcommand tests that the root command
// shows help instead of silently succeeding when invoked without a subcommand
func TestRootCommand_ShowsHelpWhenNoSubcommand(t *testing.T) {
	root := newRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{})

	err := root.Execute()

	assert.NoError(t, err)
	output := buf.String()
	assert.Contains(t, output, "Usage:", "Help should be displayed")
	assert.Contains(t, output, "artifact")
	assert.Contains(t, output, "manifest")
}

// TestRootCommand_RejectsUnknownFlags tests that unknown flags
// passed to the root command cause an error instead of being silently ignored
func TestRootCommand_RejectsUnknownFlags(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"--unknown-flag", "value"})
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)

	err := root.Execute()
	assert.Error(t, err, "Unknown flag should cause an error")
	assert.Contains(t, err.Error(), "unknown flag", "Error should mention unknown flag")
}

// TestRootCommand_RejectsSubcommandFlags tests that flags meant for
// subcommands are rejected when passed to the root command
func TestRootCommand_RejectsSubcommandFlags(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"--input", "main.c"})
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)

	err := root.Execute()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown flag")
}

func TestRootCommand_Version(t *testing.T) {
	SetVersionInfo("1.2.3", "abc123", "2026-01-01")
	defer SetVersionInfo("dev", "none", "unknown")

	root := newRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"--version"})

	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "1.2.3 (commit: abc123, built: 2026-01-01)")
}

func TestLoadConfig_FlagOverrides(t *testing.T) {
	c := newCLI(t)

	t.Run("invalid hash flag", func(t *testing.T) {
		_, err := c.run("--hash", "md5", "artifact", "id", c.file("a", "a"))
		require.Error(t, err)
		assert.Equal(t, "invalid hash algorithm", err.Error())
	})

	t.Run("invalid format flag", func(t *testing.T) {
		_, err := c.run("--format", "xml", "artifact", "id", c.file("a", "a"))
		require.Error(t, err)
		assert.Equal(t, "invalid options", err.Error())
	})

	t.Run("redis backend needs a url", func(t *testing.T) {
		_, err := c.run("--storage", "redis", "manifest", "list")
		require.Error(t, err)
		assert.Equal(t, "invalid options", err.Error())
	})

	t.Run("config file is read", func(t *testing.T) {
		configPath := c.file(".omnibor.yml", "version: \"1.0\"\nhash: sha1\nformat: short\n")
		root := newRootCmd()
		out := new(bytes.Buffer)
		root.SetOut(out)
		root.SetArgs([]string{"--config", configPath, "artifact", "id", c.file("hello", "hello world")})
		require.NoError(t, root.Execute())
		assert.Equal(t, "gitoid:blob:sha1:95d09f2b10159347eece71399a7e2e907ea3df4f\n", out.String())
	})
}
