package watch

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/omnibor/pkg/gitoid"
	"github.com/dyluth/omnibor/pkg/storage"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer is a bytes.Buffer safe for one writer goroutine and a polling reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func setupRedis(t *testing.T) (*storage.Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := storage.NewRedis(&redis.Options{Addr: mr.Addr()}, "watch-test")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, mr
}

func TestParseOutputFormat(t *testing.T) {
	format, err := ParseOutputFormat("json")
	require.NoError(t, err)
	assert.Equal(t, OutputFormatJSON, format)

	_, err = ParseOutputFormat("yaml")
	assert.Error(t, err)
}

func TestFormatters(t *testing.T) {
	event := &storage.Event{
		ID:         "5b0f6a52-1c7e-4d8e-9a55-0b3f2d9d6a10",
		Target:     gitoid.FromString(gitoid.SHA256, "target").URL(),
		StoredAtMs: time.Date(2026, 1, 2, 3, 4, 5, 0, time.Local).UnixMilli(),
	}

	t.Run("default", func(t *testing.T) {
		buf := &bytes.Buffer{}
		formatter := &defaultFormatter{writer: buf}
		require.NoError(t, formatter.FormatManifest(event))
		assert.Equal(t, "[03:04:05] 📦 Manifest stored: target="+event.Target+" event="+event.ID+"\n", buf.String())
	})

	t.Run("json", func(t *testing.T) {
		buf := &bytes.Buffer{}
		formatter := &jsonFormatter{writer: buf}
		require.NoError(t, formatter.FormatManifest(event))
		require.NoError(t, formatter.FormatError(assert.AnError))

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 2)

		var first jsonEvent
		require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
		assert.Equal(t, "manifest_stored", first.Event)
		assert.Equal(t, event.Target, first.Target)
		assert.Equal(t, event.StoredAtMs, first.StoredAtMs)

		var second jsonEvent
		require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
		assert.Equal(t, "error", second.Event)
		assert.Equal(t, assert.AnError.Error(), second.Error)
	})
}

func TestStreamActivity(t *testing.T) {
	store, mr := setupRedis(t)
	target := gitoid.FromString(gitoid.SHA1, "artifact")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Subscribed outside ctx so cancelling ctx ends the stream, not the subscription.
	sub, err := store.Subscribe(context.Background())
	require.NoError(t, err)
	defer sub.Close()

	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() { done <- StreamManifests(ctx, sub, OutputFormatJSON, out) }()

	require.NoError(t, store.Put(ctx, target, []byte("gitoid:blob:sha1\n")))
	mr.Publish(storage.ManifestEventsChannel("watch-test"), "not json")

	require.Eventually(t, func() bool {
		s := out.String()
		return strings.Contains(s, target.URL()) && strings.Contains(s, `"event":"error"`)
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not stop after cancel")
	}
}

func TestStreamManifests_EndsWithSubscription(t *testing.T) {
	store, _ := setupRedis(t)
	ctx := context.Background()

	sub, err := store.Subscribe(ctx)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- StreamManifests(ctx, sub, OutputFormatDefault, &syncBuffer{}) }()

	require.NoError(t, sub.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end after the subscription closed")
	}
}

func TestPollForManifest(t *testing.T) {
	store := storage.NewMemory()
	ctx := context.Background()
	target := gitoid.FromString(gitoid.SHA256, "later")

	t.Run("returns manifest when found immediately", func(t *testing.T) {
		present := gitoid.FromString(gitoid.SHA256, "now")
		require.NoError(t, store.Put(ctx, present, []byte("manifest")))

		got, err := PollForManifest(ctx, store, present, time.Second)
		require.NoError(t, err)
		assert.Equal(t, "manifest", string(got))
	})

	t.Run("returns manifest when found after delay", func(t *testing.T) {
		go func() {
			time.Sleep(300 * time.Millisecond)
			store.Put(ctx, target, []byte("late manifest"))
		}()

		got, err := PollForManifest(ctx, store, target, 2*time.Second)
		require.NoError(t, err)
		assert.Equal(t, "late manifest", string(got))
	})

	t.Run("times out", func(t *testing.T) {
		_, err := PollForManifest(ctx, store, gitoid.FromString(gitoid.SHA256, "never"), 300*time.Millisecond)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "timeout")
	})

	t.Run("respects cancellation", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := PollForManifest(cancelled, store, gitoid.FromString(gitoid.SHA256, "never"), time.Second)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
