package gitoid

import (
	"crypto/sha1"
	"crypto/sha256"
	"fmt"
	"hash"

	"github.com/pjbgf/sha1cd"
)

// MaxSize is the capacity of the digest buffer inside a GitOid.
// Every supported algorithm produces at most this many bytes.
const MaxSize = 32

// HashAlgorithm identifies one of the digest constructions Git itself can
// verify. The set is closed: values outside the declared constants are
// rejected by Valid and by every parser in this package.
type HashAlgorithm uint8

const (
	// SHA1 is plain SHA-1, the historical Git object hash.
	SHA1 HashAlgorithm = iota + 1

	// SHA1CD is SHA-1 with collision detection, as used by Git since 2.13.
	// It yields the same digest as SHA1 for any input that is not a
	// known collision attack.
	SHA1CD

	// SHA256 is the hash used by Git repositories in SHA-256 object format.
	SHA256
)

type algorithmInfo struct {
	name string
	size int
	new  func() hash.Hash
}

var algorithms = map[HashAlgorithm]algorithmInfo{
	SHA1:   {name: "sha1", size: sha1.Size, new: sha1.New},
	SHA1CD: {name: "sha1cd", size: sha1cd.Size, new: sha1cd.New},
	SHA256: {name: "sha256", size: sha256.Size, new: sha256.New},
}

// HashAlgorithms returns every supported algorithm in declaration order.
func HashAlgorithms() []HashAlgorithm {
	return []HashAlgorithm{SHA1, SHA1CD, SHA256}
}

// ParseHashAlgorithm returns the algorithm with the given lowercase name.
func ParseHashAlgorithm(name string) (HashAlgorithm, error) {
	for _, alg := range HashAlgorithms() {
		if algorithms[alg].name == name {
			return alg, nil
		}
	}
	return 0, fmt.Errorf("unknown hash algorithm %q (valid: sha1, sha1cd, sha256)", name)
}

// Valid reports whether h is one of the declared algorithms.
func (h HashAlgorithm) Valid() bool {
	_, ok := algorithms[h]
	return ok
}

// Name returns the lowercase ASCII name used in URLs and manifest headers.
func (h HashAlgorithm) Name() string {
	return h.info().name
}

// Size returns the digest width in bytes.
func (h HashAlgorithm) Size() int {
	return h.info().size
}

// HexSize returns the number of hex characters in an encoded digest.
func (h HashAlgorithm) HexSize() int {
	return 2 * h.Size()
}

// New returns a fresh incremental digester for the algorithm.
func (h HashAlgorithm) New() hash.Hash {
	return h.info().new()
}

func (h HashAlgorithm) String() string {
	if !h.Valid() {
		return fmt.Sprintf("HashAlgorithm(%d)", uint8(h))
	}
	return h.Name()
}

// MarshalText encodes the algorithm by name.
func (h HashAlgorithm) MarshalText() ([]byte, error) {
	if !h.Valid() {
		return nil, fmt.Errorf("invalid hash algorithm: %d", uint8(h))
	}
	return []byte(h.Name()), nil
}

// UnmarshalText decodes an algorithm name.
func (h *HashAlgorithm) UnmarshalText(text []byte) error {
	alg, err := ParseHashAlgorithm(string(text))
	if err != nil {
		return err
	}
	*h = alg
	return nil
}

func (h HashAlgorithm) info() algorithmInfo {
	info, ok := algorithms[h]
	if !ok {
		panic(fmt.Sprintf("gitoid: unsupported hash algorithm %d", uint8(h)))
	}
	return info
}
