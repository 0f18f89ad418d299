package omnibor

import (
	"bytes"
	"context"
	"fmt"

	"github.com/dyluth/omnibor/pkg/gitoid"
)

// Storage persists encoded manifests keyed by the id of the artifact they
// describe. Implementations must make a Put visible to every later Get of
// the same key, and Puts to distinct keys must not affect each other.
//
// Backends live in package storage; any type with these two methods works.
type Storage interface {
	// Put stores manifest under target, replacing any previous value.
	Put(ctx context.Context, target gitoid.GitOid, manifest []byte) error

	// Get returns the manifest stored under target. found is false, with a
	// nil error, when nothing is stored there.
	Get(ctx context.Context, target gitoid.GitOid) (manifest []byte, found bool, err error)
}

// LoadManifest fetches and parses the manifest stored for target. The
// returned manifest is bound to target, since the lookup key is the target.
// Returns an error satisfying IsNotFound when nothing is stored.
func LoadManifest[H SupportedHash](ctx context.Context, s Storage, target ArtifactID[H]) (*InputManifest[H], error) {
	raw, found, err := s.Get(ctx, target.GitOid())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	if !found {
		return nil, fmt.Errorf("%w for %s", ErrManifestNotFound, target)
	}

	manifest, err := ParseInputManifest[H](bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("stored manifest for %s is invalid: %w", target, err)
	}
	manifest.setTarget(target)
	return manifest, nil
}
