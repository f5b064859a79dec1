// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Hashing constants
const (
	// DefaultHashSize is the dHash grid edge; the fingerprint has DefaultHashSize² bits
	DefaultHashSize = 8

	// HashSizeMultiple is the granularity of supported hash sizes (hashSize² must fill whole uint64 words)
	HashSizeMultiple = 8

	// ContrastFactor is the fixed contrast enhancement applied before hashing
	ContrastFactor = 1.15

	// BrightnessFactor is the fixed brightness enhancement applied after contrast
	BrightnessFactor = 1.05
)

// Threshold constants
const (
	// DefaultThreshold is the Hamming distance applied when none is chosen explicitly
	DefaultThreshold = 8

	// DefaultMinThreshold is the first threshold of a calibration sweep
	DefaultMinThreshold = 2

	// DefaultMaxThreshold is the last threshold of a calibration sweep (inclusive)
	DefaultMaxThreshold = 62

	// DefaultThresholdStep is the distance between consecutive sweep thresholds
	DefaultThresholdStep = 4
)

// Working set constants
const (
	// SidecarFileName is the metadata sidecar looked up in the working directory
	SidecarFileName = "image_data.json"

	// AppleDoublePrefix marks macOS resource-fork files that are never images
	AppleDoublePrefix = "._"

	// DSStoreName is the Finder metadata file
	DSStoreName = ".DS_Store"
)

// DefaultExtensions is the case-insensitive image extension allow-list. It only
// names formats with a registered decoder; HEIC has none, so HEIC files must be
// converted (or .heic added explicitly, in which case they land in the skip list).
var DefaultExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".gif", ".bmp", ".tif", ".tiff"}

// VideoExtensions are removed by cleanup when video purge is requested.
var VideoExtensions = []string{".mov", ".mp4"}

// Web server constants
const (
	// DefaultWebHost is the default bind address for the JSON API
	DefaultWebHost = "127.0.0.1"

	// DefaultWebPort is the default port for the JSON API
	DefaultWebPort = 8080
)
