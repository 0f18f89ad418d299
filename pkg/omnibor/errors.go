package omnibor

import (
	"errors"
	"fmt"
)

// Manifest parsing errors.
var (
	ErrMissingHeader         = errors.New("manifest is missing its header line")
	ErrMalformedHeader       = errors.New("manifest header must have the form gitoid:blob:<algorithm>")
	ErrMissingRelationParts  = errors.New("relation line needs at least a kind and an artifact id")
	ErrMissingBomValue       = errors.New("relation line has 'bom' without a manifest id")
	ErrMissingBomIndicator   = errors.New("relation line has a third field that is not 'bom'")
	ErrTrailingRelationParts = errors.New("relation line has fields after the manifest id")
)

// Builder, embedding and storage errors.
var (
	ErrBuilderFinished  = errors.New("builder already finished")
	ErrUnknownEmbedding = errors.New("unknown embedding strategy")
	ErrNoClassifier     = errors.New("embedding requires a target classifier")
	ErrUncertainTarget  = errors.New("cannot determine how to embed into target")
	ErrStorage          = errors.New("manifest storage failed")
	ErrManifestNotFound = errors.New("manifest not found")
	ErrZeroArtifactID   = errors.New("relation needs a non-zero artifact id")
)

// InvalidRelationKindError reports an unrecognized relation kind token.
type InvalidRelationKindError struct {
	Kind string
}

func (e *InvalidRelationKindError) Error() string {
	return fmt.Sprintf("invalid relation kind %q (valid: input, built-by)", e.Kind)
}

// WrongHashAlgorithmError reports an identifier or header whose algorithm
// does not match the statically expected one.
type WrongHashAlgorithmError struct {
	Expected string
	Got      string
}

func (e *WrongHashAlgorithmError) Error() string {
	return fmt.Sprintf("wrong hash algorithm: expected %s, got %s", e.Expected, e.Got)
}

// HeaderFieldError reports a manifest header with the wrong scheme or
// object type.
type HeaderFieldError struct {
	Field    string
	Expected string
	Got      string
}

func (e *HeaderFieldError) Error() string {
	return fmt.Sprintf("manifest header has wrong %s: expected %q, got %q", e.Field, e.Expected, e.Got)
}

// LineError attaches the 1-based line number to a manifest parse failure.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("manifest line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// UnsupportedTargetError is returned when embedding is requested for a
// binary format with no embedding slot.
type UnsupportedTargetError struct {
	Path string
	Name string
}

func (e *UnsupportedTargetError) Error() string {
	return fmt.Sprintf("cannot embed into '%s': unsupported binary format %s", e.Path, e.Name)
}

// IsNotFound reports whether err means a manifest was absent from storage.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrManifestNotFound)
}
