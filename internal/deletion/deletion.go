// Package deletion removes duplicate files from disk and keeps the metadata
// sidecar consistent with what is actually left.
package deletion

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/kozaktomas/photo-dedup/internal/sidecar"
	"github.com/rs/zerolog/log"
)

// Failure is a file that exists but could not be removed.
type Failure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// Summary reports the outcome of one Apply call.
type Summary struct {
	RemovedFromSidecar int       `json:"removed_from_sidecar"`
	FilesDeleted       int       `json:"files_deleted"`
	FilesMissing       int       `json:"files_missing"`
	Failed             int       `json:"failed"`
	Failures           []Failure `json:"failures,omitempty"`
	SidecarWritten     bool      `json:"sidecar_written"`
}

// Coordinator applies a decision set. It works in sidecar-aware mode when a
// sidecar store was supplied at construction and in direct mode otherwise.
type Coordinator struct {
	baseDir    string
	store      *sidecar.Store
	onProgress func(path string)
	remove     func(path string) error
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithSidecar enables sidecar-aware mode.
func WithSidecar(store *sidecar.Store) Option {
	return func(c *Coordinator) {
		c.store = store
	}
}

// WithProgress registers a callback invoked after every file removal attempt.
func WithProgress(fn func(path string)) Option {
	return func(c *Coordinator) {
		c.onProgress = fn
	}
}

// New creates a coordinator. Relative sidecar paths are resolved against baseDir.
func New(baseDir string, opts ...Option) *Coordinator {
	c := &Coordinator{
		baseDir: baseDir,
		remove:  os.Remove,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SidecarAware reports whether a sidecar store is configured.
func (c *Coordinator) SidecarAware() bool {
	return c.store != nil
}

// Apply removes targets from disk. Missing files are not errors, and a failure
// on one file never stops the batch. keep lists files that must survive the
// batch (the keepers of the plan); they are never unlinked, even when a record
// lists one as its thumbnail.
//
// In sidecar-aware mode a record whose primary image is a target is dropped
// once its image and thumbnail are gone, and the sidecar is rewritten once,
// after the batch, if anything was dropped. Records that only reference a
// target through their thumbnail stay, and so does their image.
//
// The returned error is non-nil only for cancellation or a failed sidecar
// write; the summary is always returned.
func (c *Coordinator) Apply(ctx context.Context, targets, keep []string) (*Summary, error) {
	summary := &Summary{}

	protected := make(map[string]bool, len(keep))
	for _, k := range keep {
		protected[sidecar.PathKey(k)] = true
	}

	pending := make(map[string]string, len(targets)) // key -> path
	order := make([]string, 0, len(targets))
	for _, t := range targets {
		k := sidecar.PathKey(t)
		if _, dup := pending[k]; !dup {
			pending[k] = t
			order = append(order, k)
		}
	}

	var applyErr error
	if c.store != nil {
		applyErr = c.applyRecords(ctx, pending, protected, summary)
	}

	// Targets no record owns are unlinked directly.
	if applyErr == nil {
		for _, k := range order {
			path, ok := pending[k]
			if !ok {
				continue
			}
			if err := ctx.Err(); err != nil {
				applyErr = err
				break
			}
			c.removeFile(path, protected, summary)
		}
	}

	if c.store != nil && summary.RemovedFromSidecar > 0 {
		if err := c.store.Save(); err != nil {
			log.Error().Err(err).Str("sidecar", c.store.Path()).Msg("Failed to write sidecar")
			return summary, errors.Join(applyErr, err)
		}
		summary.SidecarWritten = true
	}

	log.Info().
		Bool("sidecar", c.store != nil).
		Int("removed_from_sidecar", summary.RemovedFromSidecar).
		Int("deleted", summary.FilesDeleted).
		Int("missing", summary.FilesMissing).
		Int("failed", summary.Failed).
		Msg("Deletion batch finished")

	return summary, applyErr
}

// applyRecords handles every sidecar record whose primary image is pending.
// Handled files are removed from pending.
func (c *Coordinator) applyRecords(ctx context.Context, pending map[string]string, protected map[string]bool, summary *Summary) error {
	targetKeys := make(map[string]bool, len(pending))
	for k := range pending {
		targetKeys[k] = true
	}

	records := c.store.Records()
	kept := make([]sidecar.Record, 0, len(records))
	var ctxErr error

	for _, rec := range records {
		if ctxErr == nil {
			ctxErr = ctx.Err()
		}
		if ctxErr != nil || !rec.Owns(c.baseDir, targetKeys) {
			kept = append(kept, rec)
			continue
		}

		gone := true
		for _, f := range rec.Files(c.baseDir) {
			key := sidecar.PathKey(f)
			if protected[key] && !targetKeys[key] {
				// a keeper used as this record's thumbnail
				continue
			}
			if !c.removeFile(f, protected, summary) {
				gone = false
			}
			delete(pending, key)
		}
		if gone {
			summary.RemovedFromSidecar++
		} else {
			// the file is still on disk, so its record stays
			kept = append(kept, rec)
		}
	}

	if summary.RemovedFromSidecar > 0 {
		c.store.SetRecords(kept)
	}
	return ctxErr
}

// removeFile deletes one file and records the outcome. It returns false only
// when the file is still present afterwards.
func (c *Coordinator) removeFile(path string, protected map[string]bool, summary *Summary) bool {
	defer func() {
		if c.onProgress != nil {
			c.onProgress(path)
		}
	}()

	var err error
	if protected[sidecar.PathKey(path)] {
		err = fmt.Errorf("%s is kept by the plan", path)
	}

	var info fs.FileInfo
	if err == nil {
		info, err = os.Lstat(path)
		if errors.Is(err, fs.ErrNotExist) {
			summary.FilesMissing++
			return true
		}
	}
	if err == nil && info.IsDir() {
		err = fmt.Errorf("%s is a directory", path)
	}
	if err == nil {
		err = c.remove(path)
		if errors.Is(err, fs.ErrNotExist) {
			summary.FilesMissing++
			return true
		}
	}
	if err != nil {
		log.Warn().Str("path", path).Err(err).Msg("Failed to delete file")
		summary.Failed++
		summary.Failures = append(summary.Failures, Failure{Path: path, Error: err.Error()})
		return false
	}

	log.Debug().Str("path", path).Msg("Deleted file")
	summary.FilesDeleted++
	return true
}
