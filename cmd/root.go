package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kozaktomas/photo-dedup/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "photo-dedup",
	Short: "Find and remove near-duplicate photos in an exported working set",
	Long: `Photo Dedup fingerprints every image in a directory with a difference hash,
groups near-duplicates by Hamming distance and keeps one representative per group.

Nothing is deleted unless --force is given. A threshold sweep shows how many
files each threshold would remove before anything is touched, and the metadata
sidecar (image_data.json) is kept in sync with the files that remain.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (default $PHOTO_DEDUP_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
	setupLogging(os.Getenv("LOG_LEVEL"))
}

// setupLogging sends human-readable logs to stderr so stdout stays clean for --json.
func setupLogging(levelName string) {
	level := zerolog.InfoLevel
	if levelName != "" {
		if l, err := zerolog.ParseLevel(levelName); err == nil {
			level = l
		}
	}
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
}

// loadConfig loads and validates the configuration for commands that need it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	setupLogging(cfg.LogLevel)
	return cfg, nil
}
