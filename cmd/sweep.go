package cmd

import (
	"context"
	"os"

	"github.com/kozaktomas/photo-dedup/internal/dedupe"
	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep <dir>",
	Short: "Show how many files each threshold would remove",
	Long: `Fingerprint every image in <dir> and report, for each threshold of the
sweep range, the clusters found and the number of files that would be removed.
Nothing is modified.

Examples:
  photo-dedup sweep ~/export
  photo-dedup sweep ~/export --min-threshold 0 --max-threshold 40 --step 2
  photo-dedup sweep ~/export --linkage clique --json`,
	Args: cobra.ExactArgs(1),
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
	addHashFlags(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	jsonOutput := mustGetBool(cmd, "json")

	cfg, err := loadConfig()
	if err != nil {
		return err
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
	var finish func()
	opts.Hash.OnStart, opts.Hash.OnProgress, finish = hashProgress(jsonOutput)

	report, err := dedupe.SweepDir(ctx, opts)
	finish()
	if err != nil {
		return err
	}

	if jsonOutput {
		return outputJSON(report)
	}
	printSweep(os.Stdout, report)
	return nil
}
