// Package identify computes artifact ids for files and directory trees
// with a bounded pool of workers.
package identify

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/dyluth/omnibor/pkg/omnibor"
	"golang.org/x/sync/errgroup"
)

// Result is the outcome for one file. Exactly one of ID and Err is set.
type Result[H omnibor.SupportedHash] struct {
	Path string
	ID   omnibor.ArtifactID[H]
	Err  error
}

// Walk identifies every regular file named by paths, descending into
// directories, and sends one Result per file to results in completion
// order. Per-file failures, including unreadable directories, become
// Results with Err set and do not stop the walk. Walk closes results when
// it returns; it only returns an error when ctx ends.
func Walk[H omnibor.SupportedHash](ctx context.Context, paths []string, workers int, results chan<- Result[H]) error {
	defer close(results)
	if workers < 1 {
		workers = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	files := make(chan string, workers)

	g.Go(func() error {
		defer close(files)
		for _, root := range paths {
			if err := walkRoot(ctx, root, files, results); err != nil {
				return err
			}
		}
		return nil
	})

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for path := range files {
				id, err := omnibor.IDFileContext[H](ctx, path)
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				if err := send(ctx, results, Result[H]{Path: path, ID: id, Err: err}); err != nil {
					return err
				}
			}
			return nil
		})
	}

	return g.Wait()
}

func walkRoot[H omnibor.SupportedHash](ctx context.Context, root string, files chan<- string, results chan<- Result[H]) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			log.Printf("[WARN] Skipping %s: %v", path, err)
			if sendErr := send(ctx, results, Result[H]{Path: path, Err: err}); sendErr != nil {
				return sendErr
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() && !isFileSymlink(path, d) {
			log.Printf("[DEBUG] Skipping non-regular file %s", path)
			return nil
		}

		select {
		case files <- path:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

// isFileSymlink reports whether d is a symlink that resolves to a regular
// file. Symlinks to directories are not followed.
func isFileSymlink(path string, d fs.DirEntry) bool {
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func send[H omnibor.SupportedHash](ctx context.Context, results chan<- Result[H], result Result[H]) error {
	select {
	case results <- result:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Find walks paths like Walk and sends only the files whose id equals
// target, plus any per-file failures. Find closes results when it returns.
func Find[H omnibor.SupportedHash](ctx context.Context, target omnibor.ArtifactID[H], paths []string, workers int, results chan<- Result[H]) error {
	defer close(results)

	all := make(chan Result[H], workers)
	walkErr := make(chan error, 1)
	go func() {
		walkErr <- Walk(ctx, paths, workers, all)
	}()

	for result := range all {
		if result.Err == nil && result.ID != target {
			continue
		}
		select {
		case results <- result:
		case <-ctx.Done():
			// Drain so Walk can finish.
			for range all {
			}
			return fmt.Errorf("find interrupted: %w", ctx.Err())
		}
	}
	return <-walkErr
}
