package commands

import (
	"context"
	"fmt"

	"github.com/dyluth/omnibor/internal/config"
	"github.com/dyluth/omnibor/internal/identify"
	"github.com/dyluth/omnibor/internal/printer"
	"github.com/dyluth/omnibor/pkg/gitoid"
	"github.com/dyluth/omnibor/pkg/omnibor"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newArtifactCmd(opts *globalOptions) *cobra.Command {
	artifactCmd := &cobra.Command{
		Use:   "artifact",
		Short: "Compute and search artifact identifiers",
	}

	idCmd := &cobra.Command{
		Use:   "id <path>...",
		Short: "Print the artifact id of files",
		Long: `Print the artifact id of each file. Directories are walked recursively
and files are hashed concurrently, so results arrive in completion order.

A file that cannot be read is reported on stderr and does not stop the walk;
the command exits non-zero if any file failed.

Examples:
  # Identify one file
  omnibor artifact id ./build/app

  # Identify a tree with SHA-1, printing only the ids
  omnibor --hash sha1 --format short artifact id ./src`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			switch cfg.Hash {
			case gitoid.SHA1:
				return runArtifactID[omnibor.SHA1](cmd, cfg, args)
			case gitoid.SHA1CD:
				return runArtifactID[omnibor.SHA1CD](cmd, cfg, args)
			default:
				return runArtifactID[omnibor.SHA256](cmd, cfg, args)
			}
		},
	}

	findCmd := &cobra.Command{
		Use:   "find <url> <path>...",
		Short: "Find files with a given artifact id",
		Long: `Walk the given paths and print every file whose artifact id equals url.
The hash algorithm is taken from url.

Examples:
  omnibor artifact find gitoid:blob:sha256:fee53a18d32820613c0527aa79be5cb30173c823a9b448fa4817767cc84c6f03 .`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			oid, err := gitoid.ParseURL(args[0])
			if err != nil {
				return printer.Error(
					"invalid artifact id",
					err.Error(),
					[]string{"Artifact ids look like:\n  gitoid:blob:sha256:<64 hex characters>"},
				)
			}
			switch oid.HashAlgorithm() {
			case gitoid.SHA1:
				return runArtifactFind[omnibor.SHA1](cmd, cfg, oid, args[1:])
			case gitoid.SHA1CD:
				return runArtifactFind[omnibor.SHA1CD](cmd, cfg, oid, args[1:])
			default:
				return runArtifactFind[omnibor.SHA256](cmd, cfg, oid, args[1:])
			}
		},
	}

	artifactCmd.AddCommand(idCmd, findCmd)
	return artifactCmd
}

func runArtifactID[H omnibor.SupportedHash](cmd *cobra.Command, cfg *config.Config, paths []string) error {
	return streamResults(cmd, cfg, func(ctx context.Context, results chan<- identify.Result[H]) error {
		return identify.Walk(ctx, paths, cfg.Identify.Workers, results)
	}, func(r identify.Result[H]) printer.Message {
		return printer.IDMessage{Path: r.Path, ID: r.ID.URL()}
	})
}

func runArtifactFind[H omnibor.SupportedHash](cmd *cobra.Command, cfg *config.Config, oid gitoid.GitOid, paths []string) error {
	target, err := omnibor.ArtifactIDFromGitOid[H](oid)
	if err != nil {
		return err
	}
	return streamResults(cmd, cfg, func(ctx context.Context, results chan<- identify.Result[H]) error {
		return identify.Find(ctx, target, paths, cfg.Identify.Workers, results)
	}, func(r identify.Result[H]) printer.Message {
		return printer.FindMessage{Path: r.Path, ID: r.ID.URL()}
	})
}

// streamResults runs produce and prints its results as they complete.
// produce must close results when it returns.
func streamResults[H omnibor.SupportedHash](
	cmd *cobra.Command,
	cfg *config.Config,
	produce func(context.Context, chan<- identify.Result[H]) error,
	toMessage func(identify.Result[H]) printer.Message,
) error {
	p, err := printer.New(cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg.Format)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(cmd.Context())
	results := make(chan identify.Result[H], cfg.Identify.Workers)
	msgs := make(chan printer.Message)

	g.Go(func() error {
		return produce(ctx, results)
	})
	g.Go(func() error {
		defer close(msgs)
		for r := range results {
			var msg printer.Message
			if r.Err != nil {
				msg = printer.ErrorMessage{Path: r.Path, Err: r.Err}
			} else {
				msg = toMessage(r)
			}
			select {
			case msgs <- msg:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	g.Go(func() error {
		return p.Run(ctx, msgs)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	if n := p.Errors(); n > 0 {
		return fmt.Errorf("%d path(s) could not be identified", n)
	}
	return nil
}
