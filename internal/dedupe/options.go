package dedupe

import (
	"github.com/kozaktomas/photo-dedup/internal/config"
	"github.com/kozaktomas/photo-dedup/internal/fingerprint"
	"github.com/kozaktomas/photo-dedup/internal/similarity"
)

// OptionsFromConfig maps validated dedupe settings onto run options for dir.
// The sweep covers MinThreshold..MaxThreshold; DryRun is the inverse of Delete.
func OptionsFromConfig(d config.DedupeConfig, dir string) (Options, error) {
	linkage, err := similarity.ParseLinkage(d.Linkage)
	if err != nil {
		return Options{}, err
	}
	thresholds, err := Thresholds(d.MinThreshold, d.MaxThreshold, d.Step)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Dir: dir,
		Scan: fingerprint.ScanOptions{
			Extensions: d.Extensions,
			Recursive:  d.Recursive,
		},
		Hash: fingerprint.HashOptions{
			HashSize:   d.HashSize,
			Preprocess: d.Preprocess,
			Workers:    d.Workers,
		},
		Thresholds: thresholds,
		Linkage:    linkage,
		DryRun:     !d.Delete,
	}, nil
}
