package inspect

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/dyluth/omnibor/pkg/storage"
)

// OutputFormat specifies how to format the manifest list output.
type OutputFormat string

const (
	// OutputFormatTable is a human-readable table
	OutputFormatTable OutputFormat = "table"

	// OutputFormatJSONL is one JSON object per line
	OutputFormatJSONL OutputFormat = "jsonl"
)

// List writes the stored manifests that match filters, oldest first.
// location names the storage in the table header.
func List(ctx context.Context, lister storage.Lister, location string, format OutputFormat, filters *Criteria, w io.Writer) error {
	entries, err := lister.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list manifests: %w", err)
	}

	if filters != nil && filters.HasFilters() {
		kept := entries[:0]
		for _, entry := range entries {
			if filters.Matches(entry) {
				kept = append(kept, entry)
			}
		}
		entries = kept
	}

	// Stable chronological output; ties keep id order from the backend.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].StoredAt.Before(entries[j].StoredAt)
	})

	switch format {
	case OutputFormatTable:
		FormatTable(w, entries, location, time.Now())
	case OutputFormatJSONL:
		if err := FormatJSONL(w, entries); err != nil {
			return fmt.Errorf("failed to format JSONL output: %w", err)
		}
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}

	return nil
}
