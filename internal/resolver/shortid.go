package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dyluth/omnibor/pkg/gitoid"
	"github.com/dyluth/omnibor/pkg/storage"
)

// MinShortIDLength is the minimum required length for hex prefixes.
const MinShortIDLength = 6

// Resolve turns user input into the id of a stored target. Input may be a
// full gitoid URL, a full hex digest for alg, or a hex prefix of at least
// MinShortIDLength characters. Prefixes are matched against the stored
// targets of alg and must match exactly one.
func Resolve(ctx context.Context, lister storage.Lister, alg gitoid.HashAlgorithm, input string) (gitoid.GitOid, error) {
	if strings.HasPrefix(input, gitoid.Scheme+":") {
		return gitoid.ParseURL(input)
	}

	if len(input) == alg.HexSize() {
		return gitoid.FromHex(alg, input)
	}

	if len(input) < MinShortIDLength {
		return gitoid.GitOid{}, fmt.Errorf("short ID must be at least %d characters (got %d)", MinShortIDLength, len(input))
	}
	if strings.Trim(input, "0123456789abcdef") != "" {
		return gitoid.GitOid{}, fmt.Errorf("short ID '%s' must be lowercase hex", input)
	}

	entries, err := lister.List(ctx)
	if err != nil {
		return gitoid.GitOid{}, fmt.Errorf("failed to search for manifest: %w", err)
	}

	var matches []gitoid.GitOid
	for _, entry := range entries {
		if entry.Target.HashAlgorithm() == alg && strings.HasPrefix(entry.Target.Hex(), input) {
			matches = append(matches, entry.Target)
		}
	}

	switch len(matches) {
	case 0:
		return gitoid.GitOid{}, &NotFoundError{ShortID: input}
	case 1:
		return matches[0], nil
	default:
		urls := make([]string, len(matches))
		for i, match := range matches {
			urls[i] = match.URL()
		}
		return gitoid.GitOid{}, &AmbiguousError{ShortID: input, Matches: urls}
	}
}

// NotFoundError indicates no stored target matched the prefix.
type NotFoundError struct {
	ShortID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no manifests found matching '%s'", e.ShortID)
}

// AmbiguousError indicates several stored targets matched the prefix.
type AmbiguousError struct {
	ShortID string
	Matches []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous short ID '%s' matches %d manifests", e.ShortID, len(e.Matches))
}

// FormatAmbiguousError lists the matching ids, up to 10, then "...and N more".
func FormatAmbiguousError(err *AmbiguousError) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ambiguous short ID '%s' matches %d manifests:\n", err.ShortID, len(err.Matches))

	displayCount := min(len(err.Matches), 10)
	for _, match := range err.Matches[:displayCount] {
		fmt.Fprintf(&b, "  %s\n", match)
	}
	if len(err.Matches) > 10 {
		fmt.Fprintf(&b, "  ...and %d more\n", len(err.Matches)-10)
	}

	b.WriteString("\nUse a longer prefix to uniquely identify the target.")
	return b.String()
}

// IsNotFoundError checks if an error is a NotFoundError.
func IsNotFoundError(err error) bool {
	var notFound *NotFoundError
	return errors.As(err, &notFound)
}

// IsAmbiguousError checks if an error is an AmbiguousError.
func IsAmbiguousError(err error) bool {
	var ambiguous *AmbiguousError
	return errors.As(err, &ambiguous)
}
