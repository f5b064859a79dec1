package fingerprint

import (
	"context"
	"runtime"
	"sort"
	"sync"

	"github.com/corona10/goimagehash"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Skip records a file that could not be fingerprinted.
type Skip struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Index is the fingerprint map of one working set.
type Index struct {
	Fingerprints map[string]*goimagehash.ExtImageHash
	Skipped      []Skip
	Scanned      int
}

// HashOptions configures HashFiles.
type HashOptions struct {
	HashSize   int
	Preprocess bool
	Workers    int                          // 0 means GOMAXPROCS
	OnStart    func(total int)              // called once before hashing starts
	OnProgress func(path string, err error) // called once per file, serialized
}

// Len returns the number of fingerprinted files.
func (ix *Index) Len() int {
	return len(ix.Fingerprints)
}

// IDs returns the fingerprinted identifiers in sorted order.
func (ix *Index) IDs() []string {
	ids := make([]string, 0, len(ix.Fingerprints))
	for id := range ix.Fingerprints {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// HashFiles fingerprints paths in parallel. Unreadable files are added to the
// skip list and never abort the scan; only context cancellation does. The
// resulting index does not depend on completion order.
func HashFiles(ctx context.Context, paths []string, opts HashOptions) (*Index, error) {
	if err := checkHashSize(opts.HashSize); err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	ix := &Index{
		Fingerprints: make(map[string]*goimagehash.ExtImageHash, len(paths)),
		Scanned:      len(paths),
	}

	if opts.OnStart != nil {
		opts.OnStart(len(paths))
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, path := range paths {
		path := path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			hash, err := Compute(path, opts.HashSize, opts.Preprocess)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Warn().Str("path", path).Err(err).Msg("Skipping unreadable image")
				ix.Skipped = append(ix.Skipped, Skip{Path: path, Reason: err.Error()})
			} else {
				ix.Fingerprints[path] = hash
			}
			if opts.OnProgress != nil {
				opts.OnProgress(path, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(ix.Skipped, func(i, j int) bool { return ix.Skipped[i].Path < ix.Skipped[j].Path })

	log.Debug().
		Int("scanned", ix.Scanned).
		Int("hashed", ix.Len()).
		Int("skipped", len(ix.Skipped)).
		Msg("Fingerprinting finished")

	return ix, nil
}
