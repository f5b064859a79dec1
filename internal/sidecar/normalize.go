package sidecar

import (
	"path/filepath"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// PathKey normalizes a file path for comparison: absolute, cleaned and in
// Unicode NFC. macOS stores file names decomposed (NFD) while sidecars written
// by other tools usually carry composed names, e.g. "Jiří.jpg".
func PathKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	result, _, err := transform.String(norm.NFC, filepath.Clean(path))
	if err != nil {
		return filepath.Clean(path)
	}
	return result
}

// resolve joins a record path with baseDir unless it is already absolute.
func resolve(baseDir, value string) string {
	if filepath.IsAbs(value) {
		return value
	}
	return filepath.Join(baseDir, value)
}
