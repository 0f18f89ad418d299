package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dyluth/omnibor/pkg/gitoid"
)

const (
	manifestsDir    = "manifests"
	algorithmPrefix = "gitoid_blob_"
)

// FileSystem stores manifests as files under a root directory.
type FileSystem struct {
	root string
}

// NewFileSystem returns a backend rooted at root. The directory is created
// on the first Put.
func NewFileSystem(root string) (*FileSystem, error) {
	if root == "" {
		return nil, ErrNoRoot
	}
	return &FileSystem{root: filepath.Clean(root)}, nil
}

// Root returns the root directory.
func (f *FileSystem) Root() string {
	return f.root
}

// Path returns the file a manifest for target is stored in, or "" for a
// zero target.
func (f *FileSystem) Path(target gitoid.GitOid) string {
	if target.IsZero() {
		return ""
	}
	hex := target.Hex()
	return filepath.Join(f.root, manifestsDir, algorithmPrefix+target.HashAlgorithm().Name(), hex[:2], hex[2:])
}

// Put writes manifest atomically, replacing any previous file.
func (f *FileSystem) Put(ctx context.Context, target gitoid.GitOid, manifest []byte) error {
	if err := f.put(ctx, target, manifest); err != nil {
		return &Error{Backend: "filesystem", Op: "put", Target: target, Err: err}
	}
	return nil
}

func (f *FileSystem) put(ctx context.Context, target gitoid.GitOid, manifest []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if target.IsZero() {
		return fmt.Errorf("zero target id")
	}

	path := f.Path(target)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory '%s': %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(manifest); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close manifest: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to set manifest mode: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move manifest into place: %w", err)
	}
	return nil
}

// Get reads the manifest for target.
func (f *FileSystem) Get(ctx context.Context, target gitoid.GitOid) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, &Error{Backend: "filesystem", Op: "get", Target: target, Err: err}
	}
	if target.IsZero() {
		return nil, false, nil
	}

	manifest, err := os.ReadFile(f.Path(target))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &Error{Backend: "filesystem", Op: "get", Target: target, Err: err}
	}
	return manifest, true, nil
}

// List walks the manifest tree. Files that do not decode to a target id,
// such as leftover temp files, are skipped.
func (f *FileSystem) List(ctx context.Context) ([]Entry, error) {
	base := filepath.Join(f.root, manifestsDir)
	var entries []Entry

	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == base {
				return filepath.SkipDir
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}

		target, ok := f.targetFromPath(base, path)
		if !ok {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		entries = append(entries, Entry{Target: target, StoredAt: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, &Error{Backend: "filesystem", Op: "list", Err: err}
	}

	sortEntries(entries)
	return entries, nil
}

func (f *FileSystem) targetFromPath(base, path string) (gitoid.GitOid, bool) {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return gitoid.GitOid{}, false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 3 || !strings.HasPrefix(parts[0], algorithmPrefix) {
		return gitoid.GitOid{}, false
	}

	alg, err := gitoid.ParseHashAlgorithm(strings.TrimPrefix(parts[0], algorithmPrefix))
	if err != nil {
		return gitoid.GitOid{}, false
	}
	target, err := gitoid.FromHex(alg, parts[1]+parts[2])
	if err != nil {
		return gitoid.GitOid{}, false
	}
	return target, true
}
