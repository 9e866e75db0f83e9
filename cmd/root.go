package cmd

import (
	"os"

	"go.uber.org/zap"

	"github.com/spf13/cobra"

	"github.com/osmtools/survey2osm/internal/config"
	"github.com/osmtools/survey2osm/internal/logger"
)

var cfg = config.DefaultConfig()

var rootCmd = &cobra.Command{
	Use:   "survey2osm",
	Short: "Convert survey data to OSM changeset files",
	Long: `survey2osm converts geospatial survey data (point addresses, building
footprints) into ready-to-import OSM changeset files, reconciled against the
data OpenStreetMap already contains.

Features:
  - Squarification of noisy building outlines
  - Deduplication against existing OSM buildings and addresses via Overpass
  - Address-to-building matching with per-change review warnings
  - Per-tile output at zoom 15, with warned tiles routed to a review stream`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(cfg.Verbose, cfg.LogFile)
	},
}

func Execute() error {
	defer logger.Sync()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().IntVarP(&cfg.Workers, "workers", "j", cfg.Workers, "Number of parallel workers")
	rootCmd.PersistentFlags().StringVar(&cfg.LogFile, "log-file", "", "Path to log file for persistent logging (JSON format)")
	rootCmd.PersistentFlags().DurationVar(&cfg.MetricsInterval, "metrics-interval", cfg.MetricsInterval, "Interval for system metrics logging (0 disables)")
}

func exitWithError(msg string, err error) {
	log := logger.Get()
	if err != nil {
		log.Error(msg, zap.Error(err))
	} else {
		log.Error(msg)
	}
	os.Exit(1)
}
