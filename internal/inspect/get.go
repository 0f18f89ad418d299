package inspect

import (
	"context"
	"fmt"
	"io"

	"github.com/dyluth/omnibor/pkg/omnibor"
)

// ManifestDocument is the JSON rendering of a stored manifest.
type ManifestDocument struct {
	Target     string             `json:"target"`
	ManifestID string             `json:"manifest_id"`
	Header     string             `json:"header"`
	Relations  []RelationDocument `json:"relations"`
}

// RelationDocument is the JSON rendering of one relation.
type RelationDocument struct {
	Kind     string `json:"kind"`
	Artifact string `json:"artifact"`
	Manifest string `json:"manifest,omitempty"`
}

// NewManifestDocument converts a bound manifest for JSON output.
func NewManifestDocument[H omnibor.SupportedHash](manifest *omnibor.InputManifest[H]) ManifestDocument {
	doc := ManifestDocument{
		ManifestID: manifest.ID().URL(),
		Header:     manifest.Header(),
		Relations:  make([]RelationDocument, 0, manifest.Len()),
	}
	if target, ok := manifest.Target(); ok {
		doc.Target = target.URL()
	}

	for _, relation := range manifest.Relations() {
		rel := RelationDocument{
			Kind:     relation.Kind().String(),
			Artifact: relation.Artifact().URL(),
		}
		if bom, ok := relation.Manifest(); ok {
			rel.Manifest = bom.URL()
		}
		doc.Relations = append(doc.Relations, rel)
	}
	return doc
}

// Get loads the manifest stored for target and writes it to w, either as
// its raw text encoding or, with asJSON, as a ManifestDocument.
func Get[H omnibor.SupportedHash](ctx context.Context, store omnibor.Storage, target omnibor.ArtifactID[H], asJSON bool, w io.Writer) error {
	manifest, err := omnibor.LoadManifest(ctx, store, target)
	if err != nil {
		if omnibor.IsNotFound(err) {
			return &ManifestNotFoundError{Target: target.URL()}
		}
		return fmt.Errorf("failed to fetch manifest: %w", err)
	}

	if asJSON {
		return FormatSingleJSON(w, NewManifestDocument(manifest))
	}

	if _, err := manifest.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// ManifestNotFoundError reports that no manifest is stored for a target.
type ManifestNotFoundError struct {
	Target string
}

func (e *ManifestNotFoundError) Error() string {
	return fmt.Sprintf("no manifest stored for '%s'", e.Target)
}

// IsNotFound returns true if the error is a ManifestNotFoundError.
func IsNotFound(err error) bool {
	_, ok := err.(*ManifestNotFoundError)
	return ok
}
