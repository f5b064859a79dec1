package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Build metadata variables, set by -ldflags at compile time.
var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildDate = "unknown"
)

type buildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := buildInfo{
			Version:   Version,
			Commit:    CommitSHA,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
			Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		}
		switch {
		case mustGetBool(cmd, "json"):
			return outputJSON(info)
		case mustGetBool(cmd, "short"):
			fmt.Println(info.Version)
		default:
			fmt.Printf("photo-dedup %s (%s)\n", info.Version, info.Platform)
			fmt.Printf("  Commit: %s\n", info.Commit)
			fmt.Printf("  Built:  %s\n", info.BuildDate)
			fmt.Printf("  Go:     %s\n", info.GoVersion)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().Bool("short", false, "Print only the version number")
	versionCmd.Flags().Bool("json", false, "Print the version information as JSON")
}
