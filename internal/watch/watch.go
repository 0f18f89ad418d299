package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dyluth/omnibor/pkg/gitoid"
	"github.com/dyluth/omnibor/pkg/omnibor"
	"github.com/dyluth/omnibor/pkg/storage"
)

// OutputFormat selects how streamed events are written.
type OutputFormat string

const (
	OutputFormatDefault OutputFormat = "default"
	OutputFormatJSON    OutputFormat = "json"
)

// ParseOutputFormat validates a user-supplied format name.
func ParseOutputFormat(name string) (OutputFormat, error) {
	switch OutputFormat(name) {
	case OutputFormatDefault, OutputFormatJSON:
		return OutputFormat(name), nil
	default:
		return "", fmt.Errorf("unknown watch format '%s' (valid: default, json)", name)
	}
}

type eventFormatter interface {
	FormatManifest(event *storage.Event) error
	FormatError(err error) error
}

func newFormatter(format OutputFormat, w io.Writer) eventFormatter {
	if format == OutputFormatJSON {
		return &jsonFormatter{writer: w}
	}
	return &defaultFormatter{writer: w}
}

// defaultFormatter writes one human-readable line per event.
type defaultFormatter struct {
	writer io.Writer
}

func (f *defaultFormatter) FormatManifest(event *storage.Event) error {
	_, err := fmt.Fprintf(f.writer, "[%s] 📦 Manifest stored: target=%s event=%s\n",
		event.StoredAt().Format("15:04:05"), event.Target, event.ID)
	return err
}

func (f *defaultFormatter) FormatError(err error) error {
	_, werr := fmt.Fprintf(f.writer, "[%s] ⚠️  %v\n", time.Now().Format("15:04:05"), err)
	return werr
}

// jsonFormatter writes line-delimited JSON.
type jsonFormatter struct {
	writer io.Writer
}

type jsonEvent struct {
	Event      string `json:"event"`
	ID         string `json:"id,omitempty"`
	Target     string `json:"target,omitempty"`
	StoredAtMs int64  `json:"stored_at_ms,omitempty"`
	Error      string `json:"error,omitempty"`
}

func (f *jsonFormatter) write(v jsonEvent) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	_, err = fmt.Fprintf(f.writer, "%s\n", data)
	return err
}

func (f *jsonFormatter) FormatManifest(event *storage.Event) error {
	return f.write(jsonEvent{Event: "manifest_stored", ID: event.ID, Target: event.Target, StoredAtMs: event.StoredAtMs})
}

func (f *jsonFormatter) FormatError(err error) error {
	return f.write(jsonEvent{Event: "error", Error: err.Error()})
}

// StreamActivity subscribes to the store's manifest events and writes them
// to w until ctx is done.
func StreamActivity(ctx context.Context, store *storage.Redis, format OutputFormat, w io.Writer) error {
	sub, err := store.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to manifest events: %w", err)
	}
	defer sub.Close()

	return StreamManifests(ctx, sub, format, w)
}

// StreamManifests writes events from an open subscription. Undecodable
// messages are reported inline and do not end the stream. It returns nil
// when the subscription closes and ctx.Err() when ctx is done.
func StreamManifests(ctx context.Context, sub *storage.Subscription, format OutputFormat, w io.Writer) error {
	formatter := newFormatter(format, w)
	events := sub.Events()
	errs := sub.Errors()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-events:
			if !ok {
				return nil
			}
			if err := formatter.FormatManifest(event); err != nil {
				return err
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err := formatter.FormatError(err); err != nil {
				return err
			}
		}
	}
}

// PollForManifest polls store until a manifest for target appears.
// Polls every 200ms for the specified timeout duration.
func PollForManifest(ctx context.Context, store omnibor.Storage, target gitoid.GitOid, timeout time.Duration) ([]byte, error) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	timeoutCh := time.After(timeout)

	for {
		manifest, found, err := store.Get(ctx, target)
		if err != nil {
			return nil, fmt.Errorf("failed to query for manifest: %w", err)
		}
		if found {
			return manifest, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timeoutCh:
			return nil, fmt.Errorf("timeout waiting for manifest of %s after %v", target, timeout)
		case <-ticker.C:
		}
	}
}
