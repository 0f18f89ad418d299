package commands

import (
	"fmt"
	"io"
	"log"

	"github.com/dyluth/omnibor/internal/config"
	"github.com/dyluth/omnibor/internal/printer"
	"github.com/dyluth/omnibor/pkg/gitoid"
	"github.com/spf13/cobra"
)

var versionString = "dev"

// globalOptions holds the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	dir        string
	hash       string
	format     string
	backend    string
	redisURL   string
	verbose    bool
}

// newRootCmd builds the full command tree.
func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "omnibor",
		Short: "OmniBOR - artifact identifiers and input manifests",
		Long: `omnibor computes reproducible artifact identifiers (gitoids) for files
and records which inputs went into building an artifact as input manifests.

Manifests are stored on the local filesystem by default, or in Redis when
storage is shared between machines.`,
		Version: versionString,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.verbose {
				log.SetOutput(cmd.ErrOrStderr())
			} else {
				log.SetOutput(io.Discard)
			}
		},
		// Prevent silent success when unknown flags are passed to root command
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		FParseErrWhitelist: cobra.FParseErrWhitelist{},
		SilenceErrors:      true,
		SilenceUsage:       true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", config.FileName, "Path to the config file")
	flags.StringVar(&opts.dir, "dir", "", "Storage root for the filesystem backend (default: .omnibor at the repository root)")
	flags.StringVar(&opts.hash, "hash", "", "Hash algorithm: sha1, sha1cd or sha256")
	flags.StringVar(&opts.format, "format", "", "Output format: plain, short or json")
	flags.StringVar(&opts.backend, "storage", "", "Storage backend: filesystem, memory or redis")
	flags.StringVar(&opts.redisURL, "redis-url", "", "Redis URL for the redis backend")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log progress to stderr")

	rootCmd.AddCommand(newArtifactCmd(opts))
	rootCmd.AddCommand(newManifestCmd(opts))
	rootCmd.AddCommand(newInitCmd(opts))

	return rootCmd
}

// Execute runs the CLI. Errors not already reported by the printer package
// are printed here.
func Execute() error {
	err := newRootCmd().Execute()
	if err != nil && !printer.IsReported(err) {
		printer.Error("Error", err.Error(), nil)
	}
	return err
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	versionString = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

// loadConfig reads the config file, or the defaults when it is absent, and
// applies flag overrides on top of the file and the environment.
func (o *globalOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(o.configPath)
	if err != nil {
		return nil, printer.ErrorWithContext(
			"invalid configuration",
			err.Error(),
			map[string]string{"Config": o.configPath},
			[]string{"Fix the config file, or regenerate it:\n  omnibor init --force"},
		)
	}

	if o.dir != "" {
		cfg.Dir = o.dir
	}
	if o.hash != "" {
		alg, err := gitoid.ParseHashAlgorithm(o.hash)
		if err != nil {
			return nil, printer.Error(
				"invalid hash algorithm",
				err.Error(),
				[]string{"Valid algorithms: sha1, sha1cd, sha256"},
			)
		}
		cfg.Hash = alg
	}
	if o.format != "" {
		cfg.Format = o.format
	}
	if o.backend != "" {
		cfg.Storage.Backend = o.backend
	}
	if o.redisURL != "" {
		if cfg.Storage.Redis == nil {
			cfg.Storage.Redis = &config.RedisConfig{}
		}
		cfg.Storage.Redis.URL = o.redisURL
	}

	if err := cfg.Validate(); err != nil {
		return nil, printer.Error("invalid options", err.Error(), nil)
	}
	return cfg, nil
}
