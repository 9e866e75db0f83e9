package cmd

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spf13/cobra"

	"github.com/osmtools/survey2osm/internal/logger"
	"github.com/osmtools/survey2osm/internal/pipeline"
)

var generateCmd = &cobra.Command{
	Use:   "generate <output-dir>",
	Short: "Generate changeset files from survey data",
	Long: `Generate reads the survey source files, reconciles them against the data
OpenStreetMap already contains, and writes one changeset file per zoom-15
tile:

  <output-dir>/changesets/change-<x>_<y>.osm   clean changes
  <output-dir>/warnings/change-<x>_<y>.osm     changes carrying warnings
  <output-dir>/warnings/warn-<x>_<y>.log       one warning per line

Tag mappings can come from a YAML mapping file, from repeated flags, or
both; flags win where they set the same tag.`,
	Args: cobra.ExactArgs(1),
	Run:  runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVarP(&cfg.Addresses, "addresses", "a", "", "Path to the addresses source file (.shp or .geojson)")
	generateCmd.Flags().StringVarP(&cfg.Buildings, "buildings", "b", "", "Path to the buildings source file (.shp or .geojson)")
	generateCmd.Flags().StringVarP(&cfg.MappingFile, "mapping", "m", "", "YAML tag-mapping file")
	generateCmd.Flags().StringVar(&cfg.Generator, "generator", cfg.Generator, "Generator name recorded in the XML output")
	generateCmd.Flags().StringArrayVar(&cfg.ChangesetTags, "changeset-tags", nil, "Changeset metadata tag (key=value, repeatable)")
	generateCmd.Flags().StringArrayVar(&cfg.AddressTagMaps, "map-address-tag", nil, "Address attribute mapping (tag=PROPERTY, repeatable)")
	generateCmd.Flags().StringArrayVar(&cfg.AddressTags, "add-address-tag", nil, "Static address tag (key=value, repeatable)")
	generateCmd.Flags().StringArrayVar(&cfg.BuildingTagMaps, "map-building-tag", nil, "Building attribute mapping (tag=PROPERTY, repeatable)")
	generateCmd.Flags().StringArrayVar(&cfg.BuildingTags, "add-building-tag", nil, "Static building tag (key=value, repeatable)")
	generateCmd.Flags().StringArrayVar(&cfg.TagFilters, "tag-filters", nil, "Cleanup filter for an output tag (tag,file, repeatable)")
	generateCmd.Flags().StringVar(&cfg.OverpassURL, "overpass-url", "", "Overpass API endpoint (defaults to the public instance)")
	generateCmd.Flags().StringVar(&cfg.CacheDir, "cache-dir", cfg.CacheDir, "Directory for cached Overpass responses")
	generateCmd.Flags().DurationVar(&cfg.OverpassTimeout, "overpass-timeout", cfg.OverpassTimeout, "Server-side Overpass query timeout")
	generateCmd.Flags().BoolVar(&cfg.SkipInvalid, "skip-invalid", false, "Skip records with invalid geometry instead of aborting")
}

func runGenerate(cmd *cobra.Command, args []string) {
	cfg.OutputDir = args[0]
	log := logger.Get()

	if err := cfg.Validate(); err != nil {
		exitWithError("invalid configuration", err)
	}

	coordinator, err := pipeline.NewCoordinator(cfg)
	if err != nil {
		exitWithError("invalid tag configuration", err)
	}

	start := time.Now()
	log.Info("Starting generate",
		zap.String("addresses", cfg.Addresses),
		zap.String("buildings", cfg.Buildings),
		zap.String("output", cfg.OutputDir),
		zap.Int("workers", cfg.Workers))

	stats, err := coordinator.Run(context.Background())
	if err != nil {
		exitWithError("generate failed", err)
	}

	log.Info("Generate finished",
		zap.Int("changes", stats.Changes),
		zap.Int("tiles", stats.CleanTiles+stats.WarnedTiles),
		zap.Duration("duration", time.Since(start).Round(time.Millisecond)))
}
