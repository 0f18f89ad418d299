package scaffold

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"text/template"

	"github.com/dyluth/omnibor/internal/config"
	"github.com/dyluth/omnibor/internal/git"
	"github.com/dyluth/omnibor/pkg/gitoid"
	"gopkg.in/yaml.v3"
)

//go:embed templates/*
var templatesFS embed.FS

// Options control what Initialize writes.
type Options struct {
	// Force overwrites an existing config file.
	Force bool
	// Hash defaults to sha256.
	Hash gitoid.HashAlgorithm
	// Dir is an explicit storage root. When empty the storage root is
	// .omnibor at the Git repository root, or in the target directory
	// outside a repository, and the config leaves dir unset.
	Dir string
	// Workers defaults to the number of CPUs.
	Workers int
}

// Result reports what Initialize created.
type Result struct {
	ConfigPath     string
	StorageDir     string
	StorageCreated bool
}

type templateData struct {
	Hash    string
	Dir     string
	Workers int
}

// Initialize writes .omnibor.yml into dir and creates the storage root.
func Initialize(dir string, opts Options) (*Result, error) {
	if !opts.Force {
		if err := CheckExisting(dir); err != nil {
			return nil, err
		}
	}

	data := templateData{Hash: gitoid.SHA256.String(), Dir: opts.Dir, Workers: opts.Workers}
	if opts.Hash != 0 {
		if !opts.Hash.Valid() {
			return nil, fmt.Errorf("invalid hash algorithm: %s", opts.Hash)
		}
		data.Hash = opts.Hash.String()
	}
	if data.Workers <= 0 {
		data.Workers = runtime.NumCPU()
	}

	content, err := renderConfig(data)
	if err != nil {
		return nil, err
	}

	storageDir, err := resolveStorageDir(dir, opts.Dir)
	if err != nil {
		return nil, err
	}

	result := &Result{
		ConfigPath: filepath.Join(dir, config.FileName),
		StorageDir: storageDir,
	}

	if _, err := os.Stat(storageDir); os.IsNotExist(err) {
		result.StorageCreated = true
	}
	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", storageDir, err)
	}

	if err := os.WriteFile(result.ConfigPath, content, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", config.FileName, err)
	}

	return result, nil
}

// renderConfig executes the embedded template and checks the output is a
// configuration Load would accept.
func renderConfig(data templateData) ([]byte, error) {
	raw, err := templatesFS.ReadFile("templates/omnibor.yml.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to read config template: %w", err)
	}

	tmpl, err := template.New(config.FileName).Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse config template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render config template: %w", err)
	}

	var cfg config.Config
	if err := yaml.Unmarshal(buf.Bytes(), &cfg); err != nil {
		return nil, fmt.Errorf("generated config is not valid YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("generated config is invalid: %w", err)
	}

	return buf.Bytes(), nil
}

func resolveStorageDir(dir, explicit string) (string, error) {
	if explicit == "" {
		return git.NewChecker().DefaultStorageDir(dir)
	}
	if filepath.IsAbs(explicit) {
		return explicit, nil
	}
	return filepath.Abs(filepath.Join(dir, explicit))
}

// PrintSuccess prints the success message with created files
func PrintSuccess(result *Result) {
	fmt.Println("\n✅ Successfully initialized OmniBOR!")
	fmt.Println("\nCreated:")
	fmt.Printf("  ✓ %s\n", result.ConfigPath)
	if result.StorageCreated {
		fmt.Printf("  ✓ %s/\n", result.StorageDir)
	} else {
		fmt.Printf("  • %s/ (already present)\n", result.StorageDir)
	}
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Decide whether the storage directory belongs in .gitignore")
	fmt.Println("  2. Run 'omnibor manifest create --input <file> <target>' to record a build")
	fmt.Println("  3. Run 'omnibor manifest list' to see stored manifests")
}
