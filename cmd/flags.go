package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kozaktomas/photo-dedup/internal/config"
	"github.com/kozaktomas/photo-dedup/internal/constants"
	"github.com/spf13/cobra"
)

// mustGetBool gets a bool flag value or panics if the flag doesn't exist.
// This is appropriate for flags defined in init() - errors indicate programming bugs.
func mustGetBool(cmd *cobra.Command, name string) bool {
	val, err := cmd.Flags().GetBool(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

// mustGetInt gets an int flag value or panics if the flag doesn't exist.
func mustGetInt(cmd *cobra.Command, name string) int {
	val, err := cmd.Flags().GetInt(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

// mustGetString gets a string flag value or panics if the flag doesn't exist.
func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

// mustGetStringSlice gets a string slice flag value or panics if the flag doesn't exist.
func mustGetStringSlice(cmd *cobra.Command, name string) []string {
	val, err := cmd.Flags().GetStringSlice(name)
	if err != nil {
		panic(fmt.Sprintf("flag error for --%s: %v", name, err))
	}
	return val
}

// addHashFlags registers the flags shared by every command that fingerprints a directory.
// Defaults shown in help are the built-in ones; config file and env values apply
// unless the flag is given explicitly.
func addHashFlags(cmd *cobra.Command) {
	cmd.Flags().Int("hash-size", constants.DefaultHashSize, "dHash grid size (fingerprint has hash-size² bits, multiple of 8)")
	cmd.Flags().Bool("no-preprocess", false, "Skip the contrast/brightness adjustment before hashing")
	cmd.Flags().String("linkage", "chain", "Clustering policy: chain (transitive) or clique (all pairs within threshold)")
	cmd.Flags().Int("workers", 0, "Parallel hashing workers (0 = number of CPUs)")
	cmd.Flags().BoolP("recursive", "r", false, "Include images in subdirectories")
	cmd.Flags().StringSlice("extensions", nil, "Image extension allow-list (default from config)")
	cmd.Flags().Int("min-threshold", constants.DefaultMinThreshold, "First threshold of the sweep")
	cmd.Flags().Int("max-threshold", constants.DefaultMaxThreshold, "Last threshold of the sweep (inclusive)")
	cmd.Flags().Int("step", constants.DefaultThresholdStep, "Distance between sweep thresholds")
	cmd.Flags().Bool("json", false, "Print the result as JSON")
}

// applyHashFlags overrides config values with explicitly set flags and validates the result.
func applyHashFlags(cmd *cobra.Command, cfg *config.Config) error {
	d := &cfg.Dedupe
	changed := cmd.Flags().Changed

	if changed("hash-size") {
		d.HashSize = mustGetInt(cmd, "hash-size")
	}
	if changed("no-preprocess") {
		d.Preprocess = !mustGetBool(cmd, "no-preprocess")
	}
	if changed("linkage") {
		d.Linkage = mustGetString(cmd, "linkage")
	}
	if changed("workers") {
		d.Workers = mustGetInt(cmd, "workers")
	}
	if changed("recursive") {
		d.Recursive = mustGetBool(cmd, "recursive")
	}
	if changed("extensions") {
		d.Extensions = config.NormalizeExtensions(mustGetStringSlice(cmd, "extensions"))
	}
	if changed("min-threshold") {
		d.MinThreshold = mustGetInt(cmd, "min-threshold")
	}
	if changed("max-threshold") {
		d.MaxThreshold = mustGetInt(cmd, "max-threshold")
	}
	if changed("step") {
		d.Step = mustGetInt(cmd, "step")
	}
	return cfg.Validate()
}

// workingDir resolves the directory argument to an absolute path.
func workingDir(arg string) (string, error) {
	dir, err := filepath.Abs(arg)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", arg, err)
	}
	return dir, nil
}

// fileExists reports whether path is an existing regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
