package commands

import (
	"encoding/json"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/dyluth/omnibor/pkg/omnibor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArtifactID(t *testing.T) {
	c := newCLI(t)
	hello := c.file("hello.txt", "hello world")

	t.Run("plain", func(t *testing.T) {
		out, err := c.run("artifact", "id", hello)
		require.NoError(t, err)
		assert.Equal(t, hello+" => gitoid:blob:sha256:fee53a18d32820613c0527aa79be5cb30173c823a9b448fa4817767cc84c6f03\n", out)
	})

	t.Run("short with sha1cd", func(t *testing.T) {
		out, err := c.run("--hash", "sha1cd", "--format", "short", "artifact", "id", hello)
		require.NoError(t, err)
		assert.Equal(t, omnibor.IDString[omnibor.SHA1CD]("hello world").URL()+"\n", out)
	})

	t.Run("directory as json", func(t *testing.T) {
		tree := filepath.Join(c.dir, "tree")
		a := c.file("tree/a", "a")
		b := c.file("tree/sub/b", "b")

		out, err := c.run("--format", "json", "artifact", "id", tree)
		require.NoError(t, err)

		var got []map[string]string
		for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
			var record map[string]string
			require.NoError(t, json.Unmarshal([]byte(line), &record))
			got = append(got, record)
		}
		sort.Slice(got, func(i, j int) bool { return got[i]["path"] < got[j]["path"] })

		require.Len(t, got, 2)
		assert.Equal(t, a, got[0]["path"])
		assert.Equal(t, omnibor.IDString[omnibor.SHA256]("a").URL(), got[0]["id"])
		assert.Equal(t, b, got[1]["path"])
		assert.Equal(t, omnibor.IDString[omnibor.SHA256]("b").URL(), got[1]["id"])
	})

	t.Run("missing path is reported but does not stop the walk", func(t *testing.T) {
		missing := filepath.Join(c.dir, "absent")
		out, err := c.run("artifact", "id", missing, hello)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "1 path(s) could not be identified")
		assert.Contains(t, out, "error: "+missing)
		assert.Contains(t, out, hello+" => ")
	})

	t.Run("requires a path", func(t *testing.T) {
		_, err := c.run("artifact", "id")
		assert.Error(t, err)
	})
}

func TestArtifactFind(t *testing.T) {
	c := newCLI(t)
	first := c.file("src/one.txt", "same")
	second := c.file("src/nested/two.txt", "same")
	c.file("src/other.txt", "different")
	url := omnibor.IDString[omnibor.SHA1]("same").URL()

	t.Run("finds every copy", func(t *testing.T) {
		out, err := c.run("--format", "short", "artifact", "find", url, filepath.Join(c.dir, "src"))
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(out), "\n")
		sort.Strings(lines)
		assert.Equal(t, []string{second, first}, lines)
	})

	t.Run("plain output leads with the id", func(t *testing.T) {
		out, err := c.run("artifact", "find", url, first)
		require.NoError(t, err)
		assert.Equal(t, url+" => "+first+"\n", out)
	})

	t.Run("no match prints nothing", func(t *testing.T) {
		out, err := c.run("artifact", "find", omnibor.IDString[omnibor.SHA1]("nowhere").URL(), filepath.Join(c.dir, "src"))
		require.NoError(t, err)
		assert.Empty(t, out)
	})

	t.Run("invalid url", func(t *testing.T) {
		_, err := c.run("artifact", "find", "gitoid:blob:md5:00", first)
		require.Error(t, err)
		assert.Equal(t, "invalid artifact id", err.Error())
	})
}
