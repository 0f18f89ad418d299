package omnibor

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dyluth/omnibor/pkg/gitoid"
)

// maxLineLength bounds a single manifest line. A relation line with a
// manifest reference under SHA-256 is well under 200 bytes.
const maxLineLength = 64 * 1024

// InputManifest records the build inputs of one target artifact: an ordered
// list of relations, all identified with the algorithm H.
//
// A manifest without a target is "detached". Parsed manifests are always
// detached; the builder binds the target once the target's final bytes, and
// therefore its id, are known.
type InputManifest[H SupportedHash] struct {
	target    *ArtifactID[H]
	relations []Relation[H]
}

// NewInputManifest returns a detached manifest holding a copy of relations
// in the given order.
func NewInputManifest[H SupportedHash](relations []Relation[H]) *InputManifest[H] {
	return &InputManifest[H]{relations: append([]Relation[H](nil), relations...)}
}

// Target returns the id of the artifact the manifest describes.
func (m *InputManifest[H]) Target() (ArtifactID[H], bool) {
	if m.target == nil {
		return ArtifactID[H]{}, false
	}
	return *m.target, true
}

// IsDetached reports whether the manifest has no target.
func (m *InputManifest[H]) IsDetached() bool {
	return m.target == nil
}

func (m *InputManifest[H]) setTarget(target ArtifactID[H]) {
	m.target = &target
}

// Relations returns a copy of the relations in manifest order.
func (m *InputManifest[H]) Relations() []Relation[H] {
	return append([]Relation[H](nil), m.relations...)
}

// Len returns the number of relations.
func (m *InputManifest[H]) Len() int {
	return len(m.relations)
}

// Equal compares relations in order and targets.
func (m *InputManifest[H]) Equal(other *InputManifest[H]) bool {
	if len(m.relations) != len(other.relations) {
		return false
	}
	for i := range m.relations {
		if !m.relations[i].Equal(other.relations[i]) {
			return false
		}
	}
	mt, mok := m.Target()
	ot, ook := other.Target()
	return mok == ook && mt == ot
}

// Header returns the first line of the encoding, without the newline.
func (m *InputManifest[H]) Header() string {
	return header[H]()
}

func header[H SupportedHash]() string {
	return fmt.Sprintf("%s:%s:%s", gitoid.Scheme, gitoid.Blob, algorithmOf[H]().Name())
}

// WriteTo writes the text encoding: the header, then one line per relation
// in manifest order. The target is never written; it is implied by the key
// the manifest is stored under.
func (m *InputManifest[H]) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var written int64

	n, err := fmt.Fprintf(bw, "%s\n", m.Header())
	written += int64(n)
	if err != nil {
		return written, fmt.Errorf("failed to write manifest header: %w", err)
	}

	for _, relation := range m.relations {
		n, err := fmt.Fprintf(bw, "%s\n", relation)
		written += int64(n)
		if err != nil {
			return written, fmt.Errorf("failed to write manifest relation: %w", err)
		}
	}

	if err := bw.Flush(); err != nil {
		return written, fmt.Errorf("failed to write manifest: %w", err)
	}
	return written, nil
}

// Bytes returns the text encoding.
func (m *InputManifest[H]) Bytes() []byte {
	var buf bytes.Buffer
	// Writes to a bytes.Buffer cannot fail.
	_, _ = m.WriteTo(&buf)
	return buf.Bytes()
}

// ID returns the artifact id of the manifest's own encoding.
func (m *InputManifest[H]) ID() ArtifactID[H] {
	return IDBytes[H](m.Bytes())
}

// ParseInputManifest decodes the text encoding. The header must name H's
// algorithm. Any malformed line fails the whole parse; the result is always
// detached.
func ParseInputManifest[H SupportedHash](r io.Reader) (*InputManifest[H], error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineLength)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read manifest: %w", err)
		}
		return nil, ErrMissingHeader
	}
	if err := parseHeader[H](scanner.Text()); err != nil {
		return nil, &LineError{Line: 1, Err: err}
	}

	manifest := &InputManifest[H]{}
	line := 1
	for scanner.Scan() {
		line++
		relation, err := parseRelation[H](scanner.Text())
		if err != nil {
			return nil, &LineError{Line: line, Err: err}
		}
		manifest.relations = append(manifest.relations, relation)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	return manifest, nil
}

// ReadInputManifestFile parses the manifest stored at path.
func ReadInputManifestFile[H SupportedHash](path string) (*InputManifest[H], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest '%s': %w", path, err)
	}
	defer f.Close()

	manifest, err := ParseInputManifest[H](f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest '%s': %w", path, err)
	}
	return manifest, nil
}

func parseHeader[H SupportedHash](line string) error {
	parts := strings.Split(line, ":")
	if len(parts) != 3 {
		return ErrMalformedHeader
	}

	if parts[0] != gitoid.Scheme {
		return &HeaderFieldError{Field: "scheme", Expected: gitoid.Scheme, Got: parts[0]}
	}
	if parts[1] != string(gitoid.Blob) {
		return &HeaderFieldError{Field: "object type", Expected: string(gitoid.Blob), Got: parts[1]}
	}
	if want := algorithmOf[H]().Name(); parts[2] != want {
		return &WrongHashAlgorithmError{Expected: want, Got: parts[2]}
	}
	return nil
}

func parseRelation[H SupportedHash](line string) (Relation[H], error) {
	fields := strings.Split(line, " ")
	if len(fields) < 2 {
		return Relation[H]{}, ErrMissingRelationParts
	}
	if len(fields) > 4 {
		return Relation[H]{}, ErrTrailingRelationParts
	}

	kind, err := ParseRelationKind(fields[0])
	if err != nil {
		return Relation[H]{}, err
	}

	artifact, err := ArtifactIDFromHex[H](fields[1])
	if err != nil {
		return Relation[H]{}, fmt.Errorf("invalid artifact id: %w", err)
	}

	switch len(fields) {
	case 2:
		return NewRelation(kind, artifact), nil
	case 3:
		if fields[2] == "bom" {
			return Relation[H]{}, ErrMissingBomValue
		}
		return Relation[H]{}, ErrMissingBomIndicator
	}

	if fields[2] != "bom" {
		return Relation[H]{}, ErrMissingBomIndicator
	}
	manifest, err := ArtifactIDFromHex[H](fields[3])
	if err != nil {
		return Relation[H]{}, fmt.Errorf("invalid manifest id: %w", err)
	}
	return NewRelationWithManifest(kind, artifact, manifest), nil
}
