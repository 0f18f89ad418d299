package omnibor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// BuilderOption configures a Builder.
type BuilderOption func(*builderOptions)

type builderOptions struct {
	embedding  EmbeddingStrategy
	classifier Classifier
}

// WithEmbedding sets the embedding strategy. The default is NoEmbed.
func WithEmbedding(strategy EmbeddingStrategy) BuilderOption {
	return func(o *builderOptions) {
		o.embedding = strategy
	}
}

// WithClassifier sets the classifier consulted when embedding.
func WithClassifier(classifier Classifier) BuilderOption {
	return func(o *builderOptions) {
		o.classifier = classifier
	}
}

// Builder accumulates relations for one target and, on Finish, produces and
// stores the target's InputManifest.
//
// A Builder is single use. Once Finish has been called, whether it succeeded
// or not, every further call returns ErrBuilderFinished.
type Builder[H SupportedHash] struct {
	storage Storage
	opts    builderOptions

	mu        sync.Mutex
	relations []Relation[H]
	finished  bool
}

// NewBuilder returns a builder that stores finished manifests in storage.
func NewBuilder[H SupportedHash](storage Storage, opts ...BuilderOption) *Builder[H] {
	b := &Builder[H]{storage: storage}
	for _, opt := range opts {
		opt(&b.opts)
	}
	return b
}

// AddRelation appends a relation. Duplicates are kept; a zero artifact id
// is rejected with ErrZeroArtifactID.
func (b *Builder[H]) AddRelation(kind RelationKind, artifact ArtifactID[H]) error {
	if !kind.Valid() {
		return &InvalidRelationKindError{Kind: kind.String()}
	}
	if artifact.IsZero() {
		return ErrZeroArtifactID
	}
	return b.add(NewRelation(kind, artifact))
}

// AddRelationWithManifest appends a relation that also records the related
// artifact's manifest id.
func (b *Builder[H]) AddRelationWithManifest(kind RelationKind, artifact, manifest ArtifactID[H]) error {
	if !kind.Valid() {
		return &InvalidRelationKindError{Kind: kind.String()}
	}
	if artifact.IsZero() || manifest.IsZero() {
		return ErrZeroArtifactID
	}
	return b.add(NewRelationWithManifest(kind, artifact, manifest))
}

// AddRelationFile identifies the file at path and appends it as a relation.
func (b *Builder[H]) AddRelationFile(ctx context.Context, kind RelationKind, path string) error {
	if !kind.Valid() {
		return &InvalidRelationKindError{Kind: kind.String()}
	}
	if err := b.checkOpen(); err != nil {
		return err
	}

	artifact, err := IDFileContext[H](ctx, path)
	if err != nil {
		return err
	}
	return b.add(NewRelation(kind, artifact))
}

func (b *Builder[H]) add(relation Relation[H]) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.finished {
		return ErrBuilderFinished
	}
	b.relations = append(b.relations, relation)
	return nil
}

func (b *Builder[H]) checkOpen() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.finished {
		return ErrBuilderFinished
	}
	return nil
}

// Finish assembles the manifest, optionally embeds its id into the file at
// targetPath, identifies the target and stores the manifest under the
// target's id. The returned manifest is bound to that target.
//
// Nothing is stored if any step fails. If storing fails after the target
// was rewritten, the target's original bytes are put back.
func (b *Builder[H]) Finish(ctx context.Context, targetPath string) (*InputManifest[H], error) {
	b.mu.Lock()
	if b.finished {
		b.mu.Unlock()
		return nil, ErrBuilderFinished
	}
	b.finished = true
	relations := b.relations
	b.relations = nil
	b.mu.Unlock()

	switch b.opts.embedding {
	case NoEmbed, Embed:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEmbedding, b.opts.embedding)
	}

	manifest := NewInputManifest(relations)
	encoded := manifest.Bytes()
	manifestID := IDBytes[H](encoded)

	var restore func() error
	if b.opts.embedding == Embed {
		undo, err := b.embed(targetPath, manifestID)
		if err != nil {
			return nil, err
		}
		restore = undo
	}

	target, err := IDFileContext[H](ctx, targetPath)
	if err != nil {
		return nil, rollback(restore, err)
	}
	manifest.setTarget(target)

	if err := b.storage.Put(ctx, target.GitOid(), encoded); err != nil {
		return nil, rollback(restore, fmt.Errorf("%w: %w", ErrStorage, err))
	}
	return manifest, nil
}

// embed writes the manifest marker into the target and returns a function
// that restores the original content.
func (b *Builder[H]) embed(path string, manifestID ArtifactID[H]) (func() error, error) {
	if b.opts.classifier == nil {
		return nil, ErrNoClassifier
	}

	targetType, err := b.opts.classifier.Classify(path)
	if err != nil {
		return nil, fmt.Errorf("failed to classify '%s': %w", path, err)
	}

	switch targetType.Kind {
	case TargetText:
	case TargetUnsupportedBinary:
		return nil, &UnsupportedTargetError{Path: path, Name: targetType.Name}
	default:
		return nil, fmt.Errorf("%w '%s'", ErrUncertainTarget, path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat '%s': %w", path, err)
	}
	original, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read '%s': %w", path, err)
	}

	rewritten := embedManifestID(original, targetType, manifestID.URL())
	if err := writeFileAtomic(path, rewritten, info.Mode().Perm()); err != nil {
		return nil, err
	}

	return func() error {
		return writeFileAtomic(path, original, info.Mode().Perm())
	}, nil
}

func rollback(restore func() error, cause error) error {
	if restore == nil {
		return cause
	}
	if err := restore(); err != nil {
		return errors.Join(cause, fmt.Errorf("failed to restore target: %w", err))
	}
	return cause
}

// writeFileAtomic replaces path with data via a temp file in the same
// directory and a rename.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+base+".omnibor-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for '%s': %w", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write '%s': %w", tmpName, err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set mode on '%s': %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync '%s': %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close '%s': %w", tmpName, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace '%s': %w", path, err)
	}
	return nil
}
