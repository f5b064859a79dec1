package cmd

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/schollz/progressbar/v3"
)

// newProgressBar creates a progress bar on stderr, or nil if JSON output is requested.
// A negative total renders a spinner.
func newProgressBar(total int, description, unit string, jsonOutput bool) *progressbar.ProgressBar {
	if jsonOutput {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString(unit),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(os.Stderr) }),
	)
}

// outputJSON writes data to stdout as indented JSON.
func outputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}

// hashProgress wires a progress bar into the hashing callbacks. It returns
// a finish func that closes the bar; calling it again is a no-op.
func hashProgress(jsonOutput bool) (onStart func(int), onProgress func(string, error), finish func()) {
	var bar *progressbar.ProgressBar
	onStart = func(total int) {
		bar = newProgressBar(total, "Computing hashes", "photos", jsonOutput)
	}
	onProgress = func(string, error) {
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	finish = func() {
		if bar != nil {
			_ = bar.Finish()
			bar = nil
		}
	}
	return onStart, onProgress, finish
}
