package inspect

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dyluth/omnibor/pkg/storage"
)

// FormatTable writes entries as a table with columns ALG, TARGET and AGE.
// Returns the number of entries formatted.
func FormatTable(w io.Writer, entries []storage.Entry, location string, now time.Time) int {
	if len(entries) == 0 {
		fmt.Fprintf(w, "No manifests found in %s\n", location)
		return 0
	}

	fmt.Fprintf(w, "Manifests in %s:\n\n", location)
	fmt.Fprintf(w, "%-7s %-64s %s\n", "ALG", "TARGET", "AGE")
	fmt.Fprintf(w, "%-7s %-64s %s\n", "-------", "----------------------------------------------------------------", "--------")

	for _, entry := range entries {
		fmt.Fprintf(w, "%-7s %-64s %s\n",
			entry.Target.HashAlgorithm().Name(),
			entry.Target.Hex(),
			formatAge(entry.StoredAt, now),
		)
	}

	noun := "manifest"
	if len(entries) != 1 {
		noun = "manifests"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(entries), noun)

	return len(entries)
}

// entryJSON is the JSONL form of a listing entry.
type entryJSON struct {
	Target     string `json:"target"`
	StoredAtMs int64  `json:"stored_at_ms,omitempty"`
}

// FormatJSONL writes one JSON object per entry.
func FormatJSONL(w io.Writer, entries []storage.Entry) error {
	for _, entry := range entries {
		record := entryJSON{Target: entry.Target.URL()}
		if !entry.StoredAt.IsZero() {
			record.StoredAtMs = entry.StoredAt.UnixMilli()
		}

		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to marshal entry to JSON: %w", err)
		}
		if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}
	return nil
}

// FormatSingleJSON writes v as indented JSON followed by a newline.
func FormatSingleJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}
	fmt.Fprintln(w)
	return nil
}

// formatAge renders the time since t as "2m ago", "1h ago" and so on.
func formatAge(t time.Time, now time.Time) string {
	if t.IsZero() {
		return "-"
	}

	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return fmt.Sprintf("%ds ago", int(diff.Seconds()))
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	}
}
