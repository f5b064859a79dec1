package fingerprint

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kozaktomas/photo-dedup/internal/constants"
)

// ErrScan is returned when the working directory cannot be listed.
var ErrScan = errors.New("cannot scan directory")

// ScanOptions selects which files Scan lists.
type ScanOptions struct {
	Extensions []string // lowercase, dot-prefixed; defaults to constants.DefaultExtensions
	Recursive  bool
}

// IsImageFile checks if a file name has an allowed image extension.
// AppleDouble files (._name.jpg) are never images.
func IsImageFile(name string, extensions []string) bool {
	if strings.HasPrefix(name, constants.AppleDoublePrefix) {
		return false
	}
	if len(extensions) == 0 {
		extensions = constants.DefaultExtensions
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range extensions {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

// Scan lists image files in dir as absolute, sorted paths. It performs no writes.
func Scan(dir string, opts ScanOptions) ([]string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrScan, dir, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScan, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrScan, abs)
	}

	var paths []string
	if opts.Recursive {
		err := filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && IsImageFile(d.Name(), opts.Extensions) {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrScan, err)
		}
	} else {
		entries, err := os.ReadDir(abs)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrScan, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if IsImageFile(entry.Name(), opts.Extensions) {
				paths = append(paths, filepath.Join(abs, entry.Name()))
			}
		}
	}

	sort.Strings(paths)
	return paths, nil
}
