package omnibor

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dyluth/omnibor/pkg/gitoid"
)

// ArtifactID identifies a blob artifact by its GitOid under the algorithm H.
// The zero value is not a valid identifier; use one of the constructors.
type ArtifactID[H SupportedHash] struct {
	oid gitoid.GitOid
}

// IDBytes identifies in-memory content.
func IDBytes[H SupportedHash](content []byte) ArtifactID[H] {
	return ArtifactID[H]{oid: gitoid.FromBytes(algorithmOf[H](), content)}
}

// IDString identifies the UTF-8 bytes of s.
func IDString[H SupportedHash](s string) ArtifactID[H] {
	return ArtifactID[H]{oid: gitoid.FromString(algorithmOf[H](), s)}
}

// IDReader identifies a stream that must yield exactly length bytes.
func IDReader[H SupportedHash](r io.Reader, length int64) (ArtifactID[H], error) {
	oid, err := gitoid.FromReader(algorithmOf[H](), r, length)
	if err != nil {
		return ArtifactID[H]{}, err
	}
	return ArtifactID[H]{oid: oid}, nil
}

// IDReaderContext is IDReader with cancellation between chunks.
func IDReaderContext[H SupportedHash](ctx context.Context, r io.Reader, length int64) (ArtifactID[H], error) {
	oid, err := gitoid.FromReaderContext(ctx, algorithmOf[H](), r, length)
	if err != nil {
		return ArtifactID[H]{}, err
	}
	return ArtifactID[H]{oid: oid}, nil
}

// IDFile identifies the file at path, using its size as the declared length.
func IDFile[H SupportedHash](path string) (ArtifactID[H], error) {
	return IDFileContext[H](context.Background(), path)
}

// IDFileContext is IDFile with cancellation between chunks.
func IDFileContext[H SupportedHash](ctx context.Context, path string) (ArtifactID[H], error) {
	f, err := os.Open(path)
	if err != nil {
		return ArtifactID[H]{}, fmt.Errorf("failed to open '%s': %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return ArtifactID[H]{}, fmt.Errorf("failed to stat '%s': %w", path, err)
	}
	if info.IsDir() {
		return ArtifactID[H]{}, fmt.Errorf("cannot identify '%s': is a directory", path)
	}

	id, err := IDReaderContext[H](ctx, f, info.Size())
	if err != nil {
		return ArtifactID[H]{}, fmt.Errorf("failed to identify '%s': %w", path, err)
	}
	return id, nil
}

// ArtifactIDFromGitOid wraps an existing GitOid, rejecting one computed with
// a different algorithm than H.
func ArtifactIDFromGitOid[H SupportedHash](oid gitoid.GitOid) (ArtifactID[H], error) {
	want := algorithmOf[H]()
	if oid.HashAlgorithm() != want {
		return ArtifactID[H]{}, &WrongHashAlgorithmError{Expected: want.Name(), Got: oid.HashAlgorithm().String()}
	}
	return ArtifactID[H]{oid: oid}, nil
}

// ArtifactIDFromHex builds an identifier from a bare lowercase hex digest.
func ArtifactIDFromHex[H SupportedHash](hexDigest string) (ArtifactID[H], error) {
	oid, err := gitoid.FromHex(algorithmOf[H](), hexDigest)
	if err != nil {
		return ArtifactID[H]{}, err
	}
	return ArtifactID[H]{oid: oid}, nil
}

// ParseArtifactID parses gitoid:blob:<algorithm>:<hex>. The algorithm
// component must name H; anything else is an error naming both.
func ParseArtifactID[H SupportedHash](url string) (ArtifactID[H], error) {
	oid, err := gitoid.ParseURL(url)
	if err != nil {
		return ArtifactID[H]{}, err
	}
	return ArtifactIDFromGitOid[H](oid)
}

// GitOid returns the wrapped digest.
func (a ArtifactID[H]) GitOid() gitoid.GitOid {
	return a.oid
}

// HashAlgorithm returns the algorithm tagged by H.
func (a ArtifactID[H]) HashAlgorithm() gitoid.HashAlgorithm {
	return algorithmOf[H]()
}

// URL renders gitoid:blob:<algorithm>:<hex>.
func (a ArtifactID[H]) URL() string {
	return a.oid.URL()
}

// Hex returns the bare hex digest.
func (a ArtifactID[H]) Hex() string {
	return a.oid.Hex()
}

func (a ArtifactID[H]) String() string {
	return a.oid.URL()
}

// IsZero reports whether a was never computed.
func (a ArtifactID[H]) IsZero() bool {
	return a.oid.IsZero()
}

// Compare orders identifiers by digest.
func (a ArtifactID[H]) Compare(other ArtifactID[H]) int {
	return a.oid.Compare(other.oid)
}

// MarshalText encodes the identifier in URL form.
func (a ArtifactID[H]) MarshalText() ([]byte, error) {
	if a.IsZero() {
		return nil, fmt.Errorf("cannot marshal zero artifact ID")
	}
	return []byte(a.URL()), nil
}

// UnmarshalText decodes the URL form.
func (a *ArtifactID[H]) UnmarshalText(text []byte) error {
	id, err := ParseArtifactID[H](string(text))
	if err != nil {
		return err
	}
	*a = id
	return nil
}
