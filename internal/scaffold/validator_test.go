package scaffold

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dyluth/omnibor/internal/config"
)

func TestCheckExisting(t *testing.T) {
	tests := []struct {
		name      string
		setupFunc func(dir string)
		wantErr   bool
	}{
		{
			name:      "no existing files",
			setupFunc: func(string) {},
		},
		{
			name: "existing config",
			setupFunc: func(dir string) {
				os.WriteFile(filepath.Join(dir, config.FileName), []byte("version: '1.0'"), 0644)
			},
			wantErr: true,
		},
		{
			name: "existing storage only",
			setupFunc: func(dir string) {
				os.MkdirAll(filepath.Join(dir, ".omnibor", "manifests"), 0755)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			tt.setupFunc(dir)

			err := CheckExisting(dir)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckExisting() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !strings.Contains(err.Error(), config.FileName) {
					t.Errorf("error should name %s, got: %v", config.FileName, err)
				}
				if !strings.Contains(err.Error(), "--force") {
					t.Errorf("error should suggest --force, got: %v", err)
				}
			}
		})
	}
}
