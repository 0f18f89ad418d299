package commands

import (
	"fmt"

	"github.com/dyluth/omnibor/internal/scaffold"
	"github.com/dyluth/omnibor/pkg/gitoid"
	"github.com/spf13/cobra"
)

func newInitCmd(opts *globalOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize OmniBOR in the current directory",
		Long: `Initialize OmniBOR with a default configuration.

Creates:
  • .omnibor.yml - Configuration file
  • .omnibor/    - Manifest storage, at the Git repository root when run
                   inside a repository

Existing manifests are never removed. Use --force to overwrite an existing
.omnibor.yml.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			initOpts := scaffold.Options{Force: force, Dir: opts.dir}
			if opts.hash != "" {
				alg, err := gitoid.ParseHashAlgorithm(opts.hash)
				if err != nil {
					return err
				}
				initOpts.Hash = alg
			}

			result, err := scaffold.Initialize(".", initOpts)
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}

			scaffold.PrintSuccess(result)
			return nil
		},
	}

	// Note: no -f shorthand, to keep single letters free for global flags
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing .omnibor.yml")
	return cmd
}
