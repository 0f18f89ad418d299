package git

import (
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// StorageDirName is the storage directory created at the repository root.
const StorageDirName = ".omnibor"

// ErrGitNotFound is returned when the git binary is not in PATH.
var ErrGitNotFound = errors.New("git not found in PATH")

// ErrNotRepository is returned when a directory is outside any Git work tree.
var ErrNotRepository = errors.New("not a Git repository")

// Checker answers questions about the Git repository enclosing a directory
type Checker struct{}

// NewChecker creates a new Git checker
func NewChecker() *Checker {
	return &Checker{}
}

// IsGitRepository reports whether dir is inside a Git work tree
func (c *Checker) IsGitRepository(dir string) (bool, error) {
	_, err := c.RepoRoot(dir)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotRepository):
		return false, nil
	default:
		return false, err
	}
}

// RepoRoot returns the absolute path of the work tree containing dir
func (c *Checker) RepoRoot(dir string) (string, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return "", ErrGitNotFound
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("%w: %s", ErrNotRepository, dir)
		}
		return "", fmt.Errorf("failed to get Git root: %w", err)
	}

	return filepath.Clean(strings.TrimSpace(string(output))), nil
}

// DefaultStorageDir returns <repo root>/.omnibor for a directory inside a
// repository, and <dir>/.omnibor otherwise.
func (c *Checker) DefaultStorageDir(dir string) (string, error) {
	root, err := c.RepoRoot(dir)
	if err == nil {
		return filepath.Join(root, StorageDirName), nil
	}
	if !errors.Is(err, ErrNotRepository) && !errors.Is(err, ErrGitNotFound) {
		return "", err
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve '%s': %w", dir, err)
	}
	return filepath.Join(abs, StorageDirName), nil
}
