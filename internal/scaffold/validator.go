package scaffold

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dyluth/omnibor/internal/config"
)

// CheckExisting returns an error when dir already holds a config file.
// An existing storage directory is not a conflict: init never touches
// manifests that are already stored.
func CheckExisting(dir string) error {
	path := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("project already initialized\n\nFound existing: %s\n\nUse 'omnibor init --force' to reinitialize (this will overwrite existing configuration)", config.FileName)
	}
	return nil
}
