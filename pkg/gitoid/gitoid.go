package gitoid

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	// blockingChunkSize matches the common page size.
	blockingChunkSize = 4096

	// contextChunkSize is larger since every chunk boundary is also a
	// cancellation point.
	contextChunkSize = 8192
)

// GitOid is a digest of content framed the way Git frames a blob object:
// "blob " + decimal length + NUL + content.
//
// GitOid is a comparable value type. Only the first HashAlgorithm().Size()
// bytes of the internal buffer are meaningful.
type GitOid struct {
	alg   HashAlgorithm
	len   uint8
	value [MaxSize]byte
}

// FromBytes computes the GitOid of an in-memory byte slice.
func FromBytes(alg HashAlgorithm, content []byte) GitOid {
	oid, err := FromReader(alg, bytes.NewReader(content), int64(len(content)))
	if err != nil {
		// A bytes.Reader never fails and always yields exactly len(content) bytes.
		panic(fmt.Sprintf("gitoid: hashing in-memory content: %v", err))
	}
	return oid
}

// FromString computes the GitOid of the UTF-8 bytes of s.
func FromString(alg HashAlgorithm, s string) GitOid {
	return FromBytes(alg, []byte(s))
}

// FromReader computes the GitOid of everything r yields until EOF.
//
// expectedLength is written into the blob header before any content is read,
// so the stream must yield exactly that many bytes. Any other count returns a
// *LengthMismatchError and no identifier. Read errors are returned wrapped.
func FromReader(alg HashAlgorithm, r io.Reader, expectedLength int64) (GitOid, error) {
	return hashStream(alg, r, expectedLength, blockingChunkSize, nil)
}

// FromReaderContext is FromReader for callers that must be able to abandon
// the computation. ctx is checked between chunk reads only; a cancelled
// context returns ctx.Err() and no identifier. For the same content it
// always produces the same GitOid as FromReader.
func FromReaderContext(ctx context.Context, alg HashAlgorithm, r io.Reader, expectedLength int64) (GitOid, error) {
	return hashStream(alg, r, expectedLength, contextChunkSize, ctx.Err)
}

// hashStream is the single implementation behind every constructor.
func hashStream(alg HashAlgorithm, r io.Reader, expectedLength int64, chunkSize int, checkpoint func() error) (GitOid, error) {
	if !alg.Valid() {
		return GitOid{}, fmt.Errorf("invalid hash algorithm: %d", uint8(alg))
	}
	if expectedLength < 0 {
		return GitOid{}, &LengthMismatchError{Expected: expectedLength, Actual: 0}
	}

	digester := alg.New()
	digester.Write(blobHeader(expectedLength))

	buf := make([]byte, chunkSize)
	var amountRead int64
	for {
		if checkpoint != nil {
			if err := checkpoint(); err != nil {
				return GitOid{}, err
			}
		}

		n, err := r.Read(buf)
		if n > 0 {
			digester.Write(buf[:n])
			amountRead += int64(n)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return GitOid{}, fmt.Errorf("failed to read content: %w", err)
		}
	}

	if amountRead != expectedLength {
		return GitOid{}, &LengthMismatchError{Expected: expectedLength, Actual: amountRead}
	}

	oid := GitOid{alg: alg}
	sum := digester.Sum(nil)
	oid.len = uint8(copy(oid.value[:], sum))
	return oid, nil
}

func blobHeader(length int64) []byte {
	header := make([]byte, 0, 32)
	header = append(header, string(Blob)...)
	header = append(header, ' ')
	header = strconv.AppendInt(header, length, 10)
	return append(header, 0)
}

// FromHex builds a GitOid from an already computed lowercase hex digest.
func FromHex(alg HashAlgorithm, hexDigest string) (GitOid, error) {
	if !alg.Valid() {
		return GitOid{}, &URLError{Component: ComponentHashAlgorithm, Got: alg.String()}
	}
	if len(hexDigest) != alg.HexSize() {
		return GitOid{}, &URLError{
			Component: ComponentHash,
			Got:       hexDigest,
			Reason:    fmt.Sprintf("expected %d hex characters for %s, got %d", alg.HexSize(), alg.Name(), len(hexDigest)),
		}
	}
	if strings.ToLower(hexDigest) != hexDigest {
		return GitOid{}, &URLError{Component: ComponentHash, Got: hexDigest, Reason: "hex must be lowercase"}
	}
	raw, err := hex.DecodeString(hexDigest)
	if err != nil {
		return GitOid{}, &URLError{Component: ComponentHash, Got: hexDigest, Reason: err.Error()}
	}

	oid := GitOid{alg: alg}
	oid.len = uint8(copy(oid.value[:], raw))
	return oid, nil
}

// ParseURL parses the canonical gitoid:blob:<algorithm>:<hex> form for any
// supported algorithm.
func ParseURL(url string) (GitOid, error) {
	parts := strings.Split(url, ":")
	if len(parts) != 4 {
		return GitOid{}, &URLError{
			Component: ComponentURL,
			Got:       url,
			Reason:    "expected gitoid:<object-type>:<algorithm>:<hex>",
		}
	}
	if parts[0] != Scheme {
		return GitOid{}, &URLError{Component: ComponentScheme, Got: parts[0], Want: Scheme}
	}
	if parts[1] != string(Blob) {
		return GitOid{}, &URLError{Component: ComponentObjectType, Got: parts[1], Want: string(Blob)}
	}
	alg, err := ParseHashAlgorithm(parts[2])
	if err != nil {
		return GitOid{}, &URLError{Component: ComponentHashAlgorithm, Got: parts[2], Reason: err.Error()}
	}
	return FromHex(alg, parts[3])
}

// HashAlgorithm returns the algorithm the digest was computed with.
func (g GitOid) HashAlgorithm() HashAlgorithm {
	return g.alg
}

// ObjectType returns the Git object kind; always Blob.
func (g GitOid) ObjectType() ObjectType {
	return Blob
}

// Bytes returns a copy of the digest.
func (g GitOid) Bytes() []byte {
	out := make([]byte, g.len)
	copy(out, g.value[:g.len])
	return out
}

// Hex returns the lowercase hex digest without any prefix.
func (g GitOid) Hex() string {
	return hex.EncodeToString(g.value[:g.len])
}

// URL renders gitoid:blob:<algorithm>:<hex>.
func (g GitOid) URL() string {
	if !g.alg.Valid() {
		return ""
	}
	return fmt.Sprintf("%s:%s:%s:%s", Scheme, Blob, g.alg.Name(), g.Hex())
}

// String renders <algorithm>:<hex>.
func (g GitOid) String() string {
	if g.IsZero() {
		return "<zero gitoid>"
	}
	return g.alg.Name() + ":" + g.Hex()
}

// IsZero reports whether g is the zero value rather than a computed digest.
func (g GitOid) IsZero() bool {
	return g.alg == 0 && g.len == 0
}

// Compare orders by algorithm first, then by digest bytes.
func (g GitOid) Compare(other GitOid) int {
	switch {
	case g.alg < other.alg:
		return -1
	case g.alg > other.alg:
		return 1
	}
	return bytes.Compare(g.value[:g.len], other.value[:other.len])
}
