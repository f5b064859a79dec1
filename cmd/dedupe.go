package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/kozaktomas/photo-dedup/internal/config"
	"github.com/kozaktomas/photo-dedup/internal/constants"
	"github.com/kozaktomas/photo-dedup/internal/dedupe"
	"github.com/kozaktomas/photo-dedup/internal/deletion"
	"github.com/kozaktomas/photo-dedup/internal/sidecar"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var dedupeCmd = &cobra.Command{
	Use:   "dedupe <dir>",
	Short: "Group near-duplicate photos and keep one of each group",
	Long: `Fingerprint every image in <dir>, group images whose difference hashes are
within the threshold and keep the image with the shortest file name of each group.

Without --force this is a dry run that only prints the plan. With --force the
plan is confirmed on the terminal (or with --yes) and the other images are
deleted. When a metadata sidecar is present (image_data.json in <dir>, or
--sidecar), records of deleted images are dropped from it as well.

With --interactive a threshold sweep is shown first and the threshold to apply
is read from the terminal.

Examples:
  photo-dedup dedupe ~/export
  photo-dedup dedupe ~/export --threshold 12 --force
  photo-dedup dedupe ~/export --interactive --force
  photo-dedup dedupe ~/export --force --yes --no-sidecar --json`,
	Args: cobra.ExactArgs(1),
	RunE: runDedupe,
}

func init() {
	rootCmd.AddCommand(dedupeCmd)
	addDedupeFlags(dedupeCmd)
}

func addDedupeFlags(cmd *cobra.Command) {
	addHashFlags(cmd)
	cmd.Flags().Int("threshold", constants.DefaultThreshold, "Maximum Hamming distance between near-duplicates")
	cmd.Flags().BoolP("interactive", "i", false, "Show a threshold sweep and choose the threshold interactively")
	cmd.Flags().Bool("force", false, "Actually delete files (default is a dry run)")
	cmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation before deleting")
	cmd.Flags().String("sidecar", "", "Metadata sidecar to keep in sync (default <dir>/image_data.json if present)")
	cmd.Flags().Bool("no-sidecar", false, "Ignore the metadata sidecar even if present")
}

// sidecarPath returns the sidecar to use, or "" for direct mode. An explicit
// path is returned even if it does not exist so that loading fails loudly.
func sidecarPath(cmd *cobra.Command, cfg *config.Config, dir string) string {
	if mustGetBool(cmd, "no-sidecar") {
		return ""
	}
	if p := mustGetString(cmd, "sidecar"); p != "" {
		return p
	}
	if cfg.Dedupe.Sidecar != "" {
		return cfg.Dedupe.Sidecar
	}
	if p := filepath.Join(dir, constants.SidecarFileName); fileExists(p) {
		return p
	}
	return ""
}

// loadSidecar loads the sidecar at path, or returns nil for direct mode. It
// runs for dry runs too, so a broken sidecar fails before anything is hashed.
func loadSidecar(path string) (*sidecar.Store, error) {
	if path == "" {
		return nil, nil
	}
	store, err := sidecar.Load(path)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("sidecar", path).Str("shape", store.Shape().String()).Int("records", store.Len()).Msg("Loaded sidecar")
	return store, nil
}

// newDeleter builds the deletion coordinator; store may be nil.
func newDeleter(store *sidecar.Store, dir string, onProgress func(string)) *deletion.Coordinator {
	opts := []deletion.Option{deletion.WithProgress(onProgress)}
	if store != nil {
		opts = append(opts, deletion.WithSidecar(store))
	}
	return deletion.New(dir, opts...)
}

func runDedupe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jsonOutput := mustGetBool(cmd, "json")
	interactive := mustGetBool(cmd, "interactive")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("threshold") {
		cfg.Dedupe.Threshold = mustGetInt(cmd, "threshold")
	}
	if mustGetBool(cmd, "force") {
		cfg.Dedupe.Delete = true
	}
	if err := applyHashFlags(cmd, cfg); err != nil {
		return err
	}
	dir, err := workingDir(args[0])
	if err != nil {
		return err
	}

	opts, err := dedupe.OptionsFromConfig(cfg.Dedupe, dir)
	if err != nil {
		return err
	}
	if !interactive {
		opts.Thresholds = nil
	}
	var finishHash func()
	opts.Hash.OnStart, opts.Hash.OnProgress, finishHash = hashProgress(jsonOutput)

	var deleteBar *progressbar.ProgressBar
	opts.OnStage = func(s dedupe.Stage) {
		switch s {
		case dedupe.StageSweep, dedupe.StageSelectThreshold:
			finishHash()
		case dedupe.StageDelete:
			deleteBar = newProgressBar(-1, "Deleting", "files", jsonOutput)
		}
	}

	store, err := loadSidecar(sidecarPath(cmd, cfg, dir))
	if err != nil {
		return err
	}
	var deleter dedupe.Deleter
	if !opts.DryRun {
		deleter = newDeleter(store, dir, func(string) {
			if deleteBar != nil {
				_ = deleteBar.Add(1)
			}
		})
	}

	// Keep stdout clean for the JSON result.
	var out io.Writer = os.Stdout
	if jsonOutput {
		out = os.Stderr
	}
	decider := newConsoleDecider(out, cfg.Dedupe.Threshold, interactive, mustGetBool(cmd, "yes"))
	defer decider.Close()

	res, runErr := dedupe.NewEngine(dedupe.ShortestName{}, decider, deleter).Run(ctx, opts)
	finishHash()
	if deleteBar != nil {
		_ = deleteBar.Finish()
	}
	if res == nil {
		return runErr
	}

	if jsonOutput {
		if err := outputJSON(res); err != nil {
			return err
		}
	} else {
		printResult(res)
	}

	if runErr != nil {
		return runErr
	}
	if res.State == dedupe.StatePartial {
		return fmt.Errorf("%d of %d deletions failed", res.FailedDeleteCount, len(res.ToDelete))
	}
	return nil
}

// printResult prints the outcome of a run. The plan itself was already shown
// by the confirmation prompt for destructive runs.
func printResult(res *dedupe.Result) {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	if len(res.Skipped) > 0 {
		fmt.Printf("%s %d files could not be decoded:\n", yellow("Skipped"), len(res.Skipped))
		for _, s := range res.Skipped {
			fmt.Printf("  - %s: %s\n", s.Path, s.Reason)
		}
		fmt.Println()
	}

	switch {
	case res.State == dedupe.StateCancelled:
		fmt.Println(yellow("Cancelled: no files deleted."))
		return
	case len(res.ToDelete) == 0:
		fmt.Printf("%s no near-duplicates among %d images at threshold %d.\n", green("Done:"), res.Files, res.Threshold)
		return
	case res.DryRun:
		printPlan(os.Stdout, &dedupe.Plan{
			Threshold: res.Threshold,
			Linkage:   res.Linkage,
			Clusters:  res.Clusters,
			ToDelete:  res.ToDelete,
			ToKeep:    res.ToKeep,
		})
		fmt.Println(yellow("Dry run: no files deleted. Re-run with --force to delete."))
		return
	}

	fmt.Printf("%s %d deleted, %d already missing", green("Deleted:"), res.DeletedCount, res.FilesMissing)
	if res.SidecarWritten {
		fmt.Printf(", %d sidecar records removed", res.RemovedFromSidecar)
	}
	fmt.Println()
	if res.FailedDeleteCount > 0 {
		fmt.Printf("%s %d files:\n", red("Failed to delete"), res.FailedDeleteCount)
		for _, f := range res.Failures {
			fmt.Printf("  - %s: %s\n", f.Path, f.Error)
		}
	}
}
