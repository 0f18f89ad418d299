package storage

import (
	"context"
	"slices"
	"time"

	"github.com/dyluth/omnibor/pkg/gitoid"
	"github.com/dyluth/omnibor/pkg/omnibor"
)

var (
	_ omnibor.Storage = (*FileSystem)(nil)
	_ omnibor.Storage = (*Memory)(nil)
	_ omnibor.Storage = (*Redis)(nil)

	_ Lister = (*FileSystem)(nil)
	_ Lister = (*Memory)(nil)
	_ Lister = (*Redis)(nil)
)

// Entry describes one stored manifest.
type Entry struct {
	Target   gitoid.GitOid
	StoredAt time.Time
}

// Lister enumerates stored manifests.
type Lister interface {
	List(ctx context.Context) ([]Entry, error)
}

// sortEntries orders entries by target so listings are stable.
func sortEntries(entries []Entry) {
	slices.SortFunc(entries, func(a, b Entry) int {
		return a.Target.Compare(b.Target)
	})
}
