package storage

import (
	"errors"
	"fmt"

	"github.com/dyluth/omnibor/pkg/gitoid"
)

// ErrNoRoot is returned by NewFileSystem when no root directory is given.
var ErrNoRoot = errors.New("filesystem storage requires a root directory")

// Error wraps a backend failure with the operation and key involved.
type Error struct {
	Backend string
	Op      string
	Target  gitoid.GitOid
	Err     error
}

func (e *Error) Error() string {
	if e.Target.IsZero() {
		return fmt.Sprintf("%s storage %s: %v", e.Backend, e.Op, e.Err)
	}
	return fmt.Sprintf("%s storage %s %s: %v", e.Backend, e.Op, e.Target, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsBackendError reports whether err came from a storage backend.
func IsBackendError(err error) bool {
	var storageErr *Error
	return errors.As(err, &storageErr)
}
