package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strings"

	"github.com/dyluth/omnibor/pkg/gitoid"
	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the working directory.
const FileName = ".omnibor.yml"

// Storage backends.
const (
	BackendFileSystem = "filesystem"
	BackendMemory     = "memory"
	BackendRedis      = "redis"
)

// Output formats.
const (
	FormatPlain = "plain"
	FormatShort = "short"
	FormatJSON  = "json"
)

// DefaultNamespace is used for Redis keys when none is configured.
const DefaultNamespace = "default"

// Config represents the top-level .omnibor.yml configuration
type Config struct {
	Version  string               `yaml:"version"`
	Dir      string               `yaml:"dir,omitempty"`  // Storage root; defaults to .omnibor in the repository root
	Hash     gitoid.HashAlgorithm `yaml:"hash,omitempty"` // sha1, sha1cd or sha256
	Format   string               `yaml:"format,omitempty"`
	Storage  StorageConfig        `yaml:"storage,omitempty"`
	Embed    EmbedConfig          `yaml:"embed,omitempty"`
	Identify IdentifyConfig       `yaml:"identify,omitempty"`
}

// StorageConfig selects where manifests are kept
type StorageConfig struct {
	Backend string       `yaml:"backend,omitempty"`
	Redis   *RedisConfig `yaml:"redis,omitempty"`
}

// RedisConfig configures the redis backend
type RedisConfig struct {
	URL       string `yaml:"url"`
	Namespace string `yaml:"namespace,omitempty"`
}

// EmbedConfig maps file extensions to how a manifest id is embedded in them
type EmbedConfig struct {
	Text   []TextFormat   `yaml:"text,omitempty"`
	Binary []BinaryFormat `yaml:"binary,omitempty"`
}

// TextFormat is a comment-bearing text format
type TextFormat struct {
	Name       string   `yaml:"name,omitempty"`
	Extensions []string `yaml:"extensions"`
	Prefix     string   `yaml:"prefix"`
	Suffix     string   `yaml:"suffix,omitempty"`
}

// BinaryFormat is a recognized binary format with no embedding slot
type BinaryFormat struct {
	Name       string   `yaml:"name"`
	Extensions []string `yaml:"extensions"`
}

// IdentifyConfig tunes directory identification
type IdentifyConfig struct {
	Workers int `yaml:"workers,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{Version: "1.0"}
	applyDefaults(cfg)
	return cfg
}

// DefaultEmbed is the built-in extension table.
func DefaultEmbed() EmbedConfig {
	return EmbedConfig{
		Text: []TextFormat{
			{Name: "c-family", Extensions: []string{".c", ".h", ".cc", ".cpp", ".hpp", ".go", ".rs", ".java", ".js", ".ts", ".swift", ".kt"}, Prefix: "//"},
			{Name: "hash-comment", Extensions: []string{".py", ".sh", ".rb", ".pl", ".yml", ".yaml", ".toml", ".mk"}, Prefix: "#"},
			{Name: "css", Extensions: []string{".css"}, Prefix: "/*", Suffix: "*/"},
			{Name: "markup", Extensions: []string{".html", ".htm", ".xml", ".svg", ".md"}, Prefix: "<!--", Suffix: "-->"},
			{Name: "sql", Extensions: []string{".sql", ".lua"}, Prefix: "--"},
		},
		Binary: []BinaryFormat{
			{Name: "elf", Extensions: []string{".o", ".so"}},
			{Name: "archive", Extensions: []string{".a", ".tar", ".gz", ".zip", ".jar"}},
			{Name: "pe", Extensions: []string{".exe", ".dll"}},
			{Name: "mach-o", Extensions: []string{".dylib"}},
			{Name: "wasm", Extensions: []string{".wasm"}},
		},
	}
}

func applyDefaults(c *Config) {
	if c.Hash == 0 {
		c.Hash = gitoid.SHA256
	}
	if c.Format == "" {
		c.Format = FormatPlain
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendFileSystem
	}
	if c.Storage.Redis != nil && c.Storage.Redis.Namespace == "" {
		c.Storage.Redis.Namespace = DefaultNamespace
	}
	if len(c.Embed.Text) == 0 && len(c.Embed.Binary) == 0 {
		c.Embed = DefaultEmbed()
	}
	if c.Identify.Workers == 0 {
		c.Identify.Workers = runtime.NumCPU()
	}
}

// Validate applies defaults and then checks the configuration strictly
func (c *Config) Validate() error {
	// Required: version
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	applyDefaults(c)

	if !c.Hash.Valid() {
		return fmt.Errorf("invalid hash: %s (must be 'sha1', 'sha1cd' or 'sha256')", c.Hash)
	}

	switch c.Format {
	case FormatPlain, FormatShort, FormatJSON:
	default:
		return fmt.Errorf("invalid format: %s (must be 'plain', 'short' or 'json')", c.Format)
	}

	switch c.Storage.Backend {
	case BackendFileSystem, BackendMemory:
	case BackendRedis:
		if c.Storage.Redis == nil || c.Storage.Redis.URL == "" {
			return fmt.Errorf("storage.redis.url is required when storage.backend is 'redis'")
		}
	default:
		return fmt.Errorf("invalid storage backend: %s (must be 'filesystem', 'memory' or 'redis')", c.Storage.Backend)
	}

	if c.Identify.Workers < 1 {
		return fmt.Errorf("identify.workers must be >= 1, got %d", c.Identify.Workers)
	}

	return c.Embed.Validate()
}

// Validate checks that every extension is well formed and claimed once
func (e *EmbedConfig) Validate() error {
	seen := make(map[string]string) // extension → format name

	claim := func(format string, extensions []string) error {
		if len(extensions) == 0 {
			return fmt.Errorf("embed format '%s': at least one extension is required", format)
		}
		for _, ext := range extensions {
			if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
				return fmt.Errorf("embed format '%s': invalid extension '%s' (must start with '.')", format, ext)
			}
			ext = strings.ToLower(ext)
			if other, exists := seen[ext]; exists {
				return fmt.Errorf("extension '%s' is claimed by both '%s' and '%s'", ext, other, format)
			}
			seen[ext] = format
		}
		return nil
	}

	for i, text := range e.Text {
		name := text.Name
		if name == "" {
			name = fmt.Sprintf("text[%d]", i)
		}
		if text.Prefix == "" {
			return fmt.Errorf("embed format '%s': prefix is required", name)
		}
		if err := claim(name, text.Extensions); err != nil {
			return err
		}
	}

	for i, binary := range e.Binary {
		if binary.Name == "" {
			return fmt.Errorf("embed binary[%d]: name is required", i)
		}
		if err := claim(binary.Name, binary.Extensions); err != nil {
			return err
		}
	}

	return nil
}

// Load reads .omnibor.yml from the specified path, applies environment
// overrides and validates the result
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := applyEnvOverrides(&config); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// LoadOrDefault is Load, except that a missing file yields the defaults
// with environment overrides applied.
func LoadOrDefault(path string) (*Config, error) {
	config, err := Load(path)
	if err == nil || !errors.Is(err, fs.ErrNotExist) {
		return config, err
	}

	config = Default()
	if err := applyEnvOverrides(config); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}
