package cmd

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/kozaktomas/photo-dedup/internal/cleanup"
	"github.com/kozaktomas/photo-dedup/internal/constants"
	"github.com/spf13/cobra"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup <dir>",
	Short: "Remove macOS metadata files (and optionally videos) from a working set",
	Long: `Recursively remove AppleDouble files (._*) and .DS_Store files left behind
by macOS, optionally together with video files, before deduplicating.

Examples:
  photo-dedup cleanup ~/export --dry-run
  photo-dedup cleanup ~/export --remove-videos`,
	Args: cobra.ExactArgs(1),
	RunE: runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
	cleanupCmd.Flags().Bool("remove-videos", false, "Also remove video files")
	cleanupCmd.Flags().Bool("dry-run", false, "List what would be removed without removing it")
	cleanupCmd.Flags().Bool("json", false, "Print the report as JSON")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")
	dir, err := workingDir(args[0])
	if err != nil {
		return err
	}

	report, err := cleanup.Run(context.Background(), dir, cleanup.Options{
		RemoveVideos:    mustGetBool(cmd, "remove-videos"),
		VideoExtensions: constants.VideoExtensions,
		DryRun:          mustGetBool(cmd, "dry-run"),
	})
	if err != nil {
		return err
	}
	if jsonOutput {
		return outputJSON(report)
	}

	mb := float64(report.BytesFreed) / (1024 * 1024)
	if report.DryRun {
		for _, f := range report.Files {
			fmt.Println(f)
		}
		fmt.Printf("\nWould remove %d files (%.2f MB)\n", len(report.Files), mb)
		return nil
	}

	green := color.New(color.FgGreen).SprintFunc()
	fmt.Printf("%s %d files (%.2f MB freed)\n", green("Removed"), report.Removed, mb)
	if len(report.Failures) > 0 {
		red := color.New(color.FgRed).SprintFunc()
		fmt.Printf("%s %d files:\n", red("Failed to remove"), len(report.Failures))
		for _, f := range report.Failures {
			fmt.Printf("  - %s: %s\n", f.Path, f.Error)
		}
		return fmt.Errorf("%d files could not be removed", len(report.Failures))
	}
	return nil
}
