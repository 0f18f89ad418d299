package storage

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dyluth/omnibor/pkg/gitoid"
)

// Redis hash field names.
const (
	fieldTarget     = "target"
	fieldManifest   = "manifest"
	fieldStoredAtMs = "stored_at_ms"
)

// Event announces that a manifest was stored. It is published as JSON.
type Event struct {
	ID         string `json:"id"`
	Target     string `json:"target"`
	StoredAtMs int64  `json:"stored_at_ms"`
}

// TargetID parses the event's target URL.
func (e *Event) TargetID() (gitoid.GitOid, error) {
	return gitoid.ParseURL(e.Target)
}

// StoredAt returns the write time.
func (e *Event) StoredAt() time.Time {
	return time.UnixMilli(e.StoredAtMs)
}

// manifestToHash converts a manifest write to Redis hash fields.
func manifestToHash(target gitoid.GitOid, manifest []byte, storedAt time.Time) map[string]interface{} {
	return map[string]interface{}{
		fieldTarget:     target.URL(),
		fieldManifest:   string(manifest),
		fieldStoredAtMs: storedAt.UnixMilli(),
	}
}

// hashToEntry decodes the listing fields of a manifest hash.
func hashToEntry(target, storedAtMs string) (Entry, error) {
	oid, err := gitoid.ParseURL(target)
	if err != nil {
		return Entry{}, fmt.Errorf("invalid target field: %w", err)
	}

	// A missing timestamp lists as the zero time rather than failing.
	var storedAt time.Time
	if storedAtMs != "" {
		ms, err := strconv.ParseInt(storedAtMs, 10, 64)
		if err != nil {
			return Entry{}, fmt.Errorf("invalid stored_at_ms field: %w", err)
		}
		storedAt = time.UnixMilli(ms)
	}
	return Entry{Target: oid, StoredAt: storedAt}, nil
}
