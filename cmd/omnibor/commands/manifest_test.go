package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/omnibor/internal/inspect"
	"github.com/dyluth/omnibor/pkg/gitoid"
	"github.com/dyluth/omnibor/pkg/omnibor"
	"github.com/dyluth/omnibor/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifestCreateAndGet(t *testing.T) {
	c := newCLI(t)
	input := c.file("main.c", "int main(void) { return 0; }\n")
	compiler := c.file("cc", "compiler")
	target := c.file("app", "binary")

	out, err := c.run("manifest", "create", "--input", input, "--built-by", compiler, target)
	require.NoError(t, err)

	targetID := omnibor.IDString[omnibor.SHA256]("binary")
	want := omnibor.NewInputManifest([]omnibor.Relation[omnibor.SHA256]{
		omnibor.NewRelation(omnibor.Input, omnibor.IDString[omnibor.SHA256]("int main(void) { return 0; }\n")),
		omnibor.NewRelation(omnibor.BuiltBy, omnibor.IDString[omnibor.SHA256]("compiler")),
	})
	assert.Equal(t, targetID.URL()+" => "+want.ID().URL()+" ("+target+")\n", out)

	t.Run("get by path prints the manifest text", func(t *testing.T) {
		out, err := c.run("manifest", "get", target)
		require.NoError(t, err)
		assert.Equal(t, string(want.Bytes()), out)
	})

	t.Run("get by prefix as json", func(t *testing.T) {
		out, err := c.run("manifest", "get", "--json", targetID.Hex()[:8])
		require.NoError(t, err)

		var doc inspect.ManifestDocument
		require.NoError(t, json.Unmarshal([]byte(out), &doc))
		assert.Equal(t, targetID.URL(), doc.Target)
		assert.Equal(t, want.ID().URL(), doc.ManifestID)
		require.Len(t, doc.Relations, 2)
		assert.Equal(t, "input", doc.Relations[0].Kind)
		assert.Equal(t, "built-by", doc.Relations[1].Kind)
	})

	t.Run("get by url", func(t *testing.T) {
		out, err := c.run("manifest", "get", targetID.URL())
		require.NoError(t, err)
		assert.Equal(t, string(want.Bytes()), out)
	})

	t.Run("unknown prefix", func(t *testing.T) {
		_, err := c.run("manifest", "get", "000000")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no manifest matches")
	})

	t.Run("stored on disk", func(t *testing.T) {
		fs, err := storage.NewFileSystem(c.storeDir)
		require.NoError(t, err)
		_, err = os.Stat(fs.Path(targetID.GitOid()))
		assert.NoError(t, err)
	})
}

func TestManifestGet_AmbiguousPrefixListsMatches(t *testing.T) {
	c := newCLI(t)
	fs, err := storage.NewFileSystem(c.storeDir)
	require.NoError(t, err)

	var urls []string
	for _, tail := range []string{"0", "1"} {
		oid, err := gitoid.FromHex(gitoid.SHA256, "abcdef"+strings.Repeat(tail, 58))
		require.NoError(t, err)
		require.NoError(t, fs.Put(context.Background(), oid, []byte("gitoid:blob:sha256\n")))
		urls = append(urls, oid.URL())
	}

	out, err := c.run("manifest", "get", "abcdef")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ambiguous short ID")
	assert.Contains(t, out, "matches 2 manifests")
	for _, url := range urls {
		assert.Contains(t, out, url)
	}
}

func TestManifestCreate_LinksInputManifests(t *testing.T) {
	c := newCLI(t)
	source := c.file("lib.c", "int f(void);\n")
	object := c.file("lib.o", "object code")
	app := c.file("app", "linked")

	_, err := c.run("manifest", "create", "--input", source, object)
	require.NoError(t, err)
	_, err = c.run("manifest", "create", "--input", object, app)
	require.NoError(t, err)

	objectManifest := omnibor.NewInputManifest([]omnibor.Relation[omnibor.SHA256]{
		omnibor.NewRelation(omnibor.Input, omnibor.IDString[omnibor.SHA256]("int f(void);\n")),
	})

	out, err := c.run("manifest", "get", app)
	require.NoError(t, err)
	assert.Equal(t,
		"gitoid:blob:sha256\ninput "+omnibor.IDString[omnibor.SHA256]("object code").Hex()+" bom "+objectManifest.ID().Hex()+"\n",
		out)
}

func TestManifestCreate_Embed(t *testing.T) {
	c := newCLI(t)
	input := c.file("gen.py", "print('hi')\n")
	target := c.file("out.go", "package out\n")

	out, err := c.run("--format", "short", "manifest", "create", "--input", input, "--embed", target)
	require.NoError(t, err)
	manifestURL := strings.TrimSpace(out)

	content, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "package out\n// omnibor:"+manifestURL+"\n", string(content))

	t.Run("embedded id links the next manifest", func(t *testing.T) {
		other := newCLI(t)
		bin := other.file("bin", "built from out.go")
		_, err := other.run("manifest", "create", "--input", target, bin)
		require.NoError(t, err)

		out, err := other.run("manifest", "get", bin)
		require.NoError(t, err)
		embedded, err := gitoid.ParseURL(manifestURL)
		require.NoError(t, err)
		assert.Contains(t, out, " bom "+embedded.Hex()+"\n")
	})

	t.Run("unknown extension is rejected", func(t *testing.T) {
		mystery := c.file("data.unknownext", "???")
		_, err := c.run("manifest", "create", "--input", input, "--embed", mystery)
		require.Error(t, err)
		assert.Equal(t, "cannot embed into target", err.Error())

		content, err := os.ReadFile(mystery)
		require.NoError(t, err)
		assert.Equal(t, "???", string(content))
	})

	t.Run("binary is rejected", func(t *testing.T) {
		object := c.file("lib.so", "\x7fELF")
		_, err := c.run("manifest", "create", "--input", input, "--embed", object)
		require.Error(t, err)
		assert.Equal(t, "cannot embed into target", err.Error())
	})
}

func TestManifestCreate_Errors(t *testing.T) {
	c := newCLI(t)
	target := c.file("app", "x")

	_, err := c.run("manifest", "create", target)
	require.Error(t, err)
	assert.Equal(t, "no relations given", err.Error())

	_, err = c.run("manifest", "create", "--input", c.dir+"/absent", target)
	require.Error(t, err)
	assert.Equal(t, "failed to add input", err.Error())
}

func TestManifestList(t *testing.T) {
	c := newCLI(t)
	input := c.file("in", "in")
	first := c.file("first", "first")
	second := c.file("second", "second")

	for _, target := range []string{first, second} {
		_, err := c.run("manifest", "create", "--input", input, target)
		require.NoError(t, err)
	}

	t.Run("jsonl", func(t *testing.T) {
		out, err := c.run("manifest", "list", "-o", "jsonl")
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 2)
		targets := map[string]bool{}
		for _, line := range lines {
			var record map[string]any
			require.NoError(t, json.Unmarshal([]byte(line), &record))
			targets[record["target"].(string)] = true
		}
		assert.True(t, targets[omnibor.IDString[omnibor.SHA256]("first").URL()])
		assert.True(t, targets[omnibor.IDString[omnibor.SHA256]("second").URL()])
	})

	t.Run("prefix filter", func(t *testing.T) {
		hex := omnibor.IDString[omnibor.SHA256]("first").Hex()
		out, err := c.run("manifest", "list", "-o", "jsonl", "--prefix", hex[:10])
		require.NoError(t, err)
		assert.Equal(t, 1, strings.Count(out, "\n"))
	})

	t.Run("until in the past hides everything", func(t *testing.T) {
		out, err := c.run("manifest", "list", "-o", "jsonl", "--until", "2000-01-01T00:00:00Z")
		require.NoError(t, err)
		assert.Empty(t, out)
	})

	t.Run("table", func(t *testing.T) {
		out, err := c.run("manifest", "list")
		require.NoError(t, err)
		assert.Contains(t, out, c.storeDir)
	})

	t.Run("bad format", func(t *testing.T) {
		_, err := c.run("manifest", "list", "-o", "xml")
		require.Error(t, err)
		assert.Equal(t, "invalid output format", err.Error())
	})

	t.Run("bad time", func(t *testing.T) {
		_, err := c.run("manifest", "list", "--since", "yesterday")
		require.Error(t, err)
		assert.Equal(t, "invalid time filter", err.Error())
	})
}

// lockedBuffer lets the test read output while watch is still writing.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestManifestWatch(t *testing.T) {
	t.Run("requires redis", func(t *testing.T) {
		c := newCLI(t)
		_, err := c.run("manifest", "watch")
		require.Error(t, err)
		assert.Equal(t, "watch requires the redis backend", err.Error())
	})

	t.Run("streams stored manifests", func(t *testing.T) {
		mr := miniredis.RunT(t)
		c := newCLI(t)
		redisArgs := []string{"--storage", "redis", "--redis-url", "redis://" + mr.Addr() + "/0"}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		out := &lockedBuffer{}
		done := make(chan error, 1)
		go func() {
			root := newRootCmd()
			root.SetOut(out)
			root.SetErr(out)
			root.SetArgs(append(append(c.baseArgs(), redisArgs...), "manifest", "watch", "-o", "json"))
			done <- root.ExecuteContext(ctx)
		}()

		// Wait for the watcher to subscribe before storing.
		require.Eventually(t, func() bool {
			return mr.PubSubNumSub(storage.ManifestEventsChannel("default"))[storage.ManifestEventsChannel("default")] > 0
		}, 2*time.Second, 10*time.Millisecond)

		target := c.file("app", "watched")
		args := append(redisArgs, "manifest", "create", "--input", c.file("in", "in"), target)
		_, err := c.run(args...)
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			return strings.Contains(out.String(), omnibor.IDString[omnibor.SHA256]("watched").URL())
		}, 2*time.Second, 20*time.Millisecond)

		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("watch did not stop after cancel")
		}
	})
}
