// Package cleanup removes macOS metadata files (AppleDouble "._*" files and
// .DS_Store) and optionally video files from an exported working set.
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kozaktomas/photo-dedup/internal/constants"
	"github.com/kozaktomas/photo-dedup/internal/deletion"
	"github.com/rs/zerolog/log"
)

// ErrNotDirectory is returned when the root does not exist or is not a directory.
var ErrNotDirectory = errors.New("not a directory")

// Options selects what Run removes.
type Options struct {
	RemoveVideos    bool
	VideoExtensions []string // defaults to constants.VideoExtensions
	DryRun          bool
}

// Report describes one cleanup pass. In dry-run mode BytesFreed is what
// would have been freed.
type Report struct {
	Files      []string           `json:"files"`
	Removed    int                `json:"removed"`
	BytesFreed int64              `json:"bytes_freed"`
	Failures   []deletion.Failure `json:"failures,omitempty"`
	DryRun     bool               `json:"dry_run"`
}

// Matches reports whether a file name is cleanup material.
func Matches(name string, opts Options) bool {
	if strings.HasPrefix(name, constants.AppleDoublePrefix) || name == constants.DSStoreName {
		return true
	}
	if !opts.RemoveVideos {
		return false
	}
	exts := opts.VideoExtensions
	if len(exts) == 0 {
		exts = constants.VideoExtensions
	}
	ext := filepath.Ext(name)
	for _, v := range exts {
		if strings.EqualFold(ext, v) {
			return true
		}
	}
	return false
}

// Find walks root recursively and returns the matching files, sorted.
func Find(root string, opts Options) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, root)
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && Matches(d.Name(), opts) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

// Run removes every file Find returns. A failure on one file is recorded and
// the pass continues.
func Run(ctx context.Context, root string, opts Options) (*Report, error) {
	files, err := Find(root, opts)
	if err != nil {
		return nil, err
	}

	report := &Report{Files: files, DryRun: opts.DryRun}
	if report.Files == nil {
		report.Files = []string{}
	}

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		info, err := os.Lstat(path)
		if err == nil && !opts.DryRun {
			err = os.Remove(path)
		}
		if err != nil {
			log.Warn().Str("path", path).Err(err).Msg("Failed to remove file")
			report.Failures = append(report.Failures, deletion.Failure{Path: path, Error: err.Error()})
			continue
		}
		report.BytesFreed += info.Size()
		if !opts.DryRun {
			report.Removed++
		}
	}

	log.Info().
		Str("root", root).
		Int("found", len(files)).
		Int("removed", report.Removed).
		Int64("bytes", report.BytesFreed).
		Bool("dry_run", opts.DryRun).
		Msg("Cleanup finished")

	return report, nil
}
