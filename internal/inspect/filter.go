package inspect

import (
	"fmt"
	"strings"
	"time"

	"github.com/dyluth/omnibor/pkg/gitoid"
	"github.com/dyluth/omnibor/pkg/storage"
)

// Criteria defines filtering options for manifest listings.
// All filters are ANDed together; zero values match everything.
type Criteria struct {
	SinceTimestampMs int64                // Unix timestamp in milliseconds, 0 = no filter
	UntilTimestampMs int64                // Unix timestamp in milliseconds, 0 = no filter
	Algorithm        gitoid.HashAlgorithm // 0 = any algorithm
	HexPrefix        string               // Prefix of the target's hex digest, empty = no filter
}

// Matches returns true if the entry matches all filter criteria.
func (c *Criteria) Matches(entry storage.Entry) bool {
	storedAt := entry.StoredAt.UnixMilli()
	if c.SinceTimestampMs > 0 && storedAt < c.SinceTimestampMs {
		return false
	}
	if c.UntilTimestampMs > 0 && storedAt > c.UntilTimestampMs {
		return false
	}

	if c.Algorithm != 0 && entry.Target.HashAlgorithm() != c.Algorithm {
		return false
	}
	if c.HexPrefix != "" && !strings.HasPrefix(entry.Target.Hex(), c.HexPrefix) {
		return false
	}

	return true
}

// HasFilters returns true if any filters are active.
func (c *Criteria) HasFilters() bool {
	return c.SinceTimestampMs > 0 ||
		c.UntilTimestampMs > 0 ||
		c.Algorithm != 0 ||
		c.HexPrefix != ""
}

// ParseTime parses a time specification into a Unix timestamp (milliseconds).
// Supports two formats:
//   - Go duration format: "1h", "30m", "1h30m", relative to now ("1h" means an hour ago)
//   - RFC3339 timestamps: "2025-10-29T13:00:00Z"
func ParseTime(spec string, now time.Time) (int64, error) {
	if spec == "" {
		return 0, fmt.Errorf("empty time specification")
	}

	if t, err := time.Parse(time.RFC3339, spec); err == nil {
		return t.UnixMilli(), nil
	}

	if d, err := time.ParseDuration(spec); err == nil {
		return now.Add(-d).UnixMilli(), nil
	}

	return 0, fmt.Errorf("invalid time specification: %s (use duration like '1h30m' or RFC3339 like '2025-10-29T13:00:00Z')", spec)
}

// ParseRange parses --since and --until into a time range. Zero means no
// bound at that end. since must be before until when both are set.
func ParseRange(since, until string, now time.Time) (int64, int64, error) {
	var sinceMS, untilMS int64
	var err error

	if since != "" {
		sinceMS, err = ParseTime(since, now)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid --since: %w", err)
		}
	}

	if until != "" {
		untilMS, err = ParseTime(until, now)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid --until: %w", err)
		}
	}

	if sinceMS > 0 && untilMS > 0 && sinceMS >= untilMS {
		return 0, 0, fmt.Errorf("--since must be before --until")
	}

	return sinceMS, untilMS, nil
}
