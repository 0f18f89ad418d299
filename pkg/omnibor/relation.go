package omnibor

import "fmt"

// RelationKind describes how a related artifact contributed to a target.
// Input orders before BuiltBy.
type RelationKind uint8

const (
	// Input is a build input of the target artifact.
	Input RelationKind = iota

	// BuiltBy is a tool used to build the target artifact.
	BuiltBy
)

// ParseRelationKind parses the manifest token for a kind.
func ParseRelationKind(token string) (RelationKind, error) {
	switch token {
	case "input":
		return Input, nil
	case "built-by":
		return BuiltBy, nil
	default:
		return 0, &InvalidRelationKindError{Kind: token}
	}
}

// Valid reports whether k is a declared kind.
func (k RelationKind) Valid() bool {
	return k == Input || k == BuiltBy
}

func (k RelationKind) String() string {
	switch k {
	case Input:
		return "input"
	case BuiltBy:
		return "built-by"
	default:
		return fmt.Sprintf("RelationKind(%d)", uint8(k))
	}
}

// MarshalText encodes the manifest token.
func (k RelationKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, &InvalidRelationKindError{Kind: k.String()}
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes the manifest token.
func (k *RelationKind) UnmarshalText(text []byte) error {
	kind, err := ParseRelationKind(string(text))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// Relation is one dependency edge of an InputManifest: the kind, the related
// artifact and, optionally, the id of the related artifact's own manifest.
type Relation[H SupportedHash] struct {
	kind     RelationKind
	artifact ArtifactID[H]
	manifest *ArtifactID[H]
}

// NewRelation builds a relation without a manifest reference.
func NewRelation[H SupportedHash](kind RelationKind, artifact ArtifactID[H]) Relation[H] {
	return Relation[H]{kind: kind, artifact: artifact}
}

// NewRelationWithManifest builds a relation that also points at the related
// artifact's manifest.
func NewRelationWithManifest[H SupportedHash](kind RelationKind, artifact, manifest ArtifactID[H]) Relation[H] {
	return Relation[H]{kind: kind, artifact: artifact, manifest: &manifest}
}

// Kind returns the relation kind.
func (r Relation[H]) Kind() RelationKind {
	return r.kind
}

// Artifact returns the related artifact's id.
func (r Relation[H]) Artifact() ArtifactID[H] {
	return r.artifact
}

// Manifest returns the related artifact's manifest id, if recorded.
func (r Relation[H]) Manifest() (ArtifactID[H], bool) {
	if r.manifest == nil {
		return ArtifactID[H]{}, false
	}
	return *r.manifest, true
}

// Equal compares all three fields.
func (r Relation[H]) Equal(other Relation[H]) bool {
	return r.Compare(other) == 0
}

// Compare orders by kind, then artifact, then manifest (absent first).
func (r Relation[H]) Compare(other Relation[H]) int {
	switch {
	case r.kind < other.kind:
		return -1
	case r.kind > other.kind:
		return 1
	}
	if c := r.artifact.Compare(other.artifact); c != 0 {
		return c
	}
	switch {
	case r.manifest == nil && other.manifest == nil:
		return 0
	case r.manifest == nil:
		return -1
	case other.manifest == nil:
		return 1
	}
	return r.manifest.Compare(*other.manifest)
}

func (r Relation[H]) String() string {
	if r.manifest != nil {
		return fmt.Sprintf("%s %s bom %s", r.kind, r.artifact.Hex(), r.manifest.Hex())
	}
	return fmt.Sprintf("%s %s", r.kind, r.artifact.Hex())
}
