package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/dyluth/omnibor/internal/config"
	"github.com/dyluth/omnibor/internal/filetype"
	"github.com/dyluth/omnibor/internal/inspect"
	"github.com/dyluth/omnibor/internal/printer"
	"github.com/dyluth/omnibor/internal/resolver"
	"github.com/dyluth/omnibor/internal/watch"
	"github.com/dyluth/omnibor/pkg/gitoid"
	"github.com/dyluth/omnibor/pkg/omnibor"
	"github.com/spf13/cobra"
)

func newManifestCmd(opts *globalOptions) *cobra.Command {
	manifestCmd := &cobra.Command{
		Use:   "manifest",
		Short: "Create and inspect input manifests",
	}
	manifestCmd.AddCommand(
		newManifestCreateCmd(opts),
		newManifestGetCmd(opts),
		newManifestListCmd(opts),
		newManifestWatchCmd(opts),
	)
	return manifestCmd
}

// withStore loads the config, opens storage and runs fn.
func withStore(cmd *cobra.Command, opts *globalOptions, fn func(*config.Config, *openedStore) error) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	store, err := openStorage(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(cfg, store)
}

// createOptions are the flags of manifest create.
type createOptions struct {
	inputs  []string
	builtBy string
	embed   bool
}

func newManifestCreateCmd(opts *globalOptions) *cobra.Command {
	co := &createOptions{}

	cmd := &cobra.Command{
		Use:   "create --input <path>... [--built-by <path>] [--embed] <target>",
		Short: "Record the inputs a target was built from",
		Long: `Create an input manifest for target and store it.

Each --input becomes an input relation. When storage already holds a manifest
for an input, or the input carries an embedded manifest id, the relation
points at that manifest too.

With --embed the manifest id is appended to target as a comment, using the
embed table from .omnibor.yml to pick the comment syntax. Targets whose type
cannot be determined are rejected rather than guessed at.

Examples:
  omnibor manifest create --input main.c --input util.h ./app
  omnibor manifest create --input gen.py --built-by ./tools/gen --embed out.go`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(co.inputs) == 0 && co.builtBy == "" {
				return printer.Error(
					"no relations given",
					"A manifest needs at least one --input or a --built-by.",
					[]string{"Name the files the target was built from:\n  omnibor manifest create --input <path> <target>"},
				)
			}
			return withStore(cmd, opts, func(cfg *config.Config, store *openedStore) error {
				switch cfg.Hash {
				case gitoid.SHA1:
					return runManifestCreate[omnibor.SHA1](cmd, cfg, store, co, args[0])
				case gitoid.SHA1CD:
					return runManifestCreate[omnibor.SHA1CD](cmd, cfg, store, co, args[0])
				default:
					return runManifestCreate[omnibor.SHA256](cmd, cfg, store, co, args[0])
				}
			})
		},
	}

	cmd.Flags().StringArrayVarP(&co.inputs, "input", "i", nil, "Input file (repeatable)")
	cmd.Flags().StringVar(&co.builtBy, "built-by", "", "Tool that built the target")
	cmd.Flags().BoolVar(&co.embed, "embed", false, "Embed the manifest id into the target")
	return cmd
}

func runManifestCreate[H omnibor.SupportedHash](cmd *cobra.Command, cfg *config.Config, store *openedStore, co *createOptions, target string) error {
	ctx := cmd.Context()

	p, err := printer.New(cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg.Format)
	if err != nil {
		return err
	}

	var builderOpts []omnibor.BuilderOption
	if co.embed {
		builderOpts = append(builderOpts,
			omnibor.WithEmbedding(omnibor.Embed),
			omnibor.WithClassifier(filetype.New(cfg.Embed)),
		)
	}
	builder := omnibor.NewBuilder[H](store.store, builderOpts...)

	for _, input := range co.inputs {
		if err := addInput(ctx, builder, store.store, omnibor.Input, input); err != nil {
			return printer.ErrorWithContext("failed to add input", err.Error(), map[string]string{"Input": input}, nil)
		}
	}
	if co.builtBy != "" {
		if err := addInput(ctx, builder, store.store, omnibor.BuiltBy, co.builtBy); err != nil {
			return printer.ErrorWithContext("failed to add built-by", err.Error(), map[string]string{"Tool": co.builtBy}, nil)
		}
	}

	manifest, err := builder.Finish(ctx, target)
	if err != nil {
		return reportFinishError(err, target, store.location)
	}

	targetID, _ := manifest.Target()
	return p.Print(printer.ManifestMessage{
		Target:     targetID.URL(),
		ManifestID: manifest.ID().URL(),
		Path:       target,
	})
}

// addInput adds a relation for the file at path. The relation refers to the
// input's own manifest when storage has one or the file embeds one.
func addInput[H omnibor.SupportedHash](ctx context.Context, builder *omnibor.Builder[H], store omnibor.Storage, kind omnibor.RelationKind, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	id := omnibor.IDBytes[H](content)

	stored, found, err := store.Get(ctx, id.GitOid())
	if err != nil {
		return fmt.Errorf("failed to look up manifest for %s: %w", path, err)
	}
	if found {
		log.Printf("[DEBUG] %s has a stored manifest", path)
		return builder.AddRelationWithManifest(kind, id, omnibor.IDBytes[H](stored))
	}

	embedded, found, err := omnibor.ExtractEmbeddedManifestID[H](content)
	if err != nil {
		log.Printf("[WARN] Ignoring embedded manifest id in %s: %v", path, err)
	} else if found {
		log.Printf("[DEBUG] %s embeds manifest %s", path, embedded)
		return builder.AddRelationWithManifest(kind, id, embedded)
	}

	return builder.AddRelation(kind, id)
}

func reportFinishError(err error, target, location string) error {
	var unsupported *omnibor.UnsupportedTargetError
	switch {
	case errors.Is(err, omnibor.ErrUncertainTarget):
		return printer.ErrorWithContext(
			"cannot embed into target",
			"The target's file type is not in the embed table, so no comment syntax is known for it.",
			map[string]string{"Target": target},
			[]string{
				"Add its extension under embed.text in .omnibor.yml",
				"Create the manifest without --embed",
			},
		)
	case errors.As(err, &unsupported):
		return printer.ErrorWithContext(
			"cannot embed into target",
			err.Error(),
			map[string]string{"Target": target},
			[]string{"Create the manifest without --embed"},
		)
	case errors.Is(err, omnibor.ErrStorage):
		return printer.ErrorWithContext(
			"failed to store manifest",
			err.Error(),
			map[string]string{"Target": target, "Storage": location},
			nil,
		)
	default:
		return fmt.Errorf("failed to create manifest for %s: %w", target, err)
	}
}

func newManifestGetCmd(opts *globalOptions) *cobra.Command {
	var (
		asJSON bool
		wait   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "get <target-id|prefix|path>",
		Short: "Print the stored manifest for a target",
		Long: `Print the manifest stored for a target, identified by its gitoid URL,
its full hex digest, a unique hex prefix of at least 6 characters, or the
path of the target file itself.

Examples:
  omnibor manifest get ./app
  omnibor manifest get fee53a
  omnibor manifest get --json gitoid:blob:sha256:fee53a18d32820613c0527aa79be5cb30173c823a9b448fa4817767cc84c6f03`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, opts, func(cfg *config.Config, store *openedStore) error {
				oid, err := resolveTarget(cmd.Context(), cmd.ErrOrStderr(), cfg, store, args[0])
				if err != nil {
					return err
				}
				switch oid.HashAlgorithm() {
				case gitoid.SHA1:
					return runManifestGet[omnibor.SHA1](cmd, store, oid, asJSON, wait)
				case gitoid.SHA1CD:
					return runManifestGet[omnibor.SHA1CD](cmd, store, oid, asJSON, wait)
				default:
					return runManifestGet[omnibor.SHA256](cmd, store, oid, asJSON, wait)
				}
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the manifest as a JSON document")
	cmd.Flags().DurationVar(&wait, "wait", 0, "Wait up to this long for the manifest to be stored")
	return cmd
}

// resolveTarget turns a get argument into a target id. An existing file is
// identified with the configured hash; anything else goes to the resolver.
// The matches of an ambiguous prefix are listed on errOut.
func resolveTarget(ctx context.Context, errOut io.Writer, cfg *config.Config, store *openedStore, ref string) (gitoid.GitOid, error) {
	if info, err := os.Stat(ref); err == nil && info.Mode().IsRegular() {
		f, err := os.Open(ref)
		if err != nil {
			return gitoid.GitOid{}, err
		}
		defer f.Close()
		return gitoid.FromReaderContext(ctx, cfg.Hash, f, info.Size())
	}

	oid, err := resolver.Resolve(ctx, store.store, cfg.Hash, ref)
	if err == nil {
		return oid, nil
	}

	var ambiguous *resolver.AmbiguousError
	switch {
	case errors.As(err, &ambiguous):
		fmt.Fprintln(errOut, resolver.FormatAmbiguousError(ambiguous))
		return gitoid.GitOid{}, printer.Error(
			"ambiguous short ID",
			fmt.Sprintf("'%s' matches more than one stored target.", ref),
			nil,
		)
	case resolver.IsNotFoundError(err):
		return gitoid.GitOid{}, printer.ErrorWithContext(
			fmt.Sprintf("no manifest matches '%s'", ref),
			"No stored target has that id prefix.",
			map[string]string{"Storage": store.location},
			[]string{"List stored manifests:\n  omnibor manifest list"},
		)
	default:
		return gitoid.GitOid{}, printer.Error("invalid target", err.Error(), nil)
	}
}

func runManifestGet[H omnibor.SupportedHash](cmd *cobra.Command, store *openedStore, oid gitoid.GitOid, asJSON bool, wait time.Duration) error {
	ctx := cmd.Context()

	target, err := omnibor.ArtifactIDFromGitOid[H](oid)
	if err != nil {
		return err
	}

	if wait > 0 {
		if _, err := watch.PollForManifest(ctx, store.store, oid, wait); err != nil {
			return printer.ErrorWithContext(
				"manifest did not appear",
				err.Error(),
				map[string]string{"Target": oid.URL(), "Storage": store.location},
				nil,
			)
		}
	}

	err = inspect.Get(ctx, store.store, target, asJSON, cmd.OutOrStdout())
	if inspect.IsNotFound(err) {
		return printer.ErrorWithContext(
			"manifest not found",
			"No manifest is stored for this target.",
			map[string]string{"Target": oid.URL(), "Storage": store.location},
			[]string{"Create one:\n  omnibor manifest create --input <path> <target>"},
		)
	}
	return err
}

func newManifestListCmd(opts *globalOptions) *cobra.Command {
	var (
		output string
		since  string
		until  string
		prefix string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored manifests",
		Long: `List stored manifests, oldest first.

Output Formats:
  table - Human-readable table with target, hash and age
  jsonl - Line-delimited JSON, one manifest per line

Time Filters:
  --since  - Show manifests stored after this time
  --until  - Show manifests stored before this time

Examples:
  omnibor manifest list --since=2h
  omnibor manifest list -o jsonl | jq -r .target`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var format inspect.OutputFormat
			switch output {
			case "table":
				format = inspect.OutputFormatTable
			case "jsonl":
				format = inspect.OutputFormatJSONL
			default:
				return printer.Error(
					"invalid output format",
					fmt.Sprintf("Unknown format: %s", output),
					[]string{"Valid formats: table, jsonl"},
				)
			}

			sinceMS, untilMS, err := inspect.ParseRange(since, until, time.Now())
			if err != nil {
				return printer.Error(
					"invalid time filter",
					err.Error(),
					[]string{"Use duration format like '1h30m' or RFC3339 like '2025-10-29T13:00:00Z'"},
				)
			}

			return withStore(cmd, opts, func(cfg *config.Config, store *openedStore) error {
				criteria := &inspect.Criteria{
					SinceTimestampMs: sinceMS,
					UntilTimestampMs: untilMS,
					HexPrefix:        prefix,
				}
				if prefix != "" {
					criteria.Algorithm = cfg.Hash
				}
				return inspect.List(cmd.Context(), store.store, store.location, format, criteria, cmd.OutOrStdout())
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table or jsonl")
	cmd.Flags().StringVar(&since, "since", "", "Show manifests after time (duration or RFC3339)")
	cmd.Flags().StringVar(&until, "until", "", "Show manifests before time (duration or RFC3339)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Only targets whose hex id starts with this prefix")
	return cmd
}

func newManifestWatchCmd(opts *globalOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream manifests as they are stored",
		Long: `Stream stored-manifest events from the Redis backend until interrupted.

Output Formats:
  default - Human-readable output with timestamps
  json    - Line-delimited JSON for programmatic processing

Examples:
  omnibor --storage redis --redis-url redis://localhost:6379/0 manifest watch
  omnibor manifest watch --output=json > events.jsonl`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := watch.ParseOutputFormat(output)
			if err != nil {
				return printer.Error(
					"invalid output format",
					err.Error(),
					[]string{"Valid formats: default, json"},
				)
			}

			return withStore(cmd, opts, func(cfg *config.Config, store *openedStore) error {
				if store.redis == nil {
					return printer.ErrorWithContext(
						"watch requires the redis backend",
						"Only Redis publishes manifest events.",
						map[string]string{"Backend": cfg.Storage.Backend},
						[]string{"Select Redis storage:\n  omnibor --storage redis --redis-url <url> manifest watch"},
					)
				}

				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
				defer stop()

				err := watch.StreamActivity(ctx, store.redis, format, cmd.OutOrStdout())
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "default", "Output format (default or json)")
	return cmd
}
