// Package pipeline orchestrates a generate run: parallel record parsing,
// the Overpass fetch, the single-threaded reconciliation core, and
// parallel tile writing. Parsing and writing fan out across workers;
// everything between runs strictly after parsing and the fetch complete,
// because matching mutates shared state and the spatial indices are built
// once from finalized lists.
package pipeline

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/osmtools/survey2osm/internal/changes"
	"github.com/osmtools/survey2osm/internal/changeset"
	"github.com/osmtools/survey2osm/internal/config"
	"github.com/osmtools/survey2osm/internal/logger"
	"github.com/osmtools/survey2osm/internal/match"
	"github.com/osmtools/survey2osm/internal/metrics"
	"github.com/osmtools/survey2osm/internal/overpass"
	"github.com/osmtools/survey2osm/internal/survey"
	"github.com/osmtools/survey2osm/internal/tile"
)

// Stats summarizes a completed run.
type Stats struct {
	Addresses        int // addresses parsed from the input
	Buildings        int // buildings parsed from the input
	SkippedRecords   int // records skipped for invalid geometry
	ExistingRemoved  int // input addresses dropped as already in OSM
	BuildingsDropped int // input buildings dropped as already in OSM
	LoneAddresses    int // addresses matched to no building
	Changes          int // changes generated
	CleanTiles       int
	WarnedTiles      int
}

// Coordinator runs the generate pipeline.
type Coordinator struct {
	cfg   *config.Config
	specs *config.Specs
	log   *zap.Logger
}

// NewCoordinator resolves the tag configuration and prepares a run.
func NewCoordinator(cfg *config.Config) (*Coordinator, error) {
	specs, err := cfg.Specs()
	if err != nil {
		return nil, err
	}
	return &Coordinator{
		cfg:   cfg,
		specs: specs,
		log:   logger.Named("pipeline"),
	}, nil
}

// Run executes the pipeline and returns its stats.
func (c *Coordinator) Run(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	if c.cfg.MetricsInterval > 0 {
		metricsCtx, cancelMetrics := context.WithCancel(ctx)
		defer cancelMetrics()

		collector := metrics.NewCollector(c.cfg.MetricsInterval, c.log)
		go collector.Start(metricsCtx)
		c.log.Info("System metrics collection started",
			zap.Duration("interval", c.cfg.MetricsInterval))
	}

	var addresses []*survey.Address
	var buildings []*survey.Building

	if c.cfg.Addresses != "" {
		err := c.phase("Reading addresses", func() error {
			var err error
			var skipped int
			addresses, skipped, err = c.parseAddresses(c.cfg.Addresses)
			stats.SkippedRecords += skipped
			return err
		}, zap.String("path", c.cfg.Addresses))
		if err != nil {
			return nil, err
		}
		stats.Addresses = len(addresses)
	}

	if c.cfg.Buildings != "" {
		err := c.phase("Reading buildings", func() error {
			var err error
			var skipped int
			buildings, skipped, err = c.parseBuildings(c.cfg.Buildings)
			stats.SkippedRecords += skipped
			return err
		}, zap.String("path", c.cfg.Buildings))
		if err != nil {
			return nil, err
		}
		stats.Buildings = len(buildings)
	}

	locations := make([]orb.Point, 0, len(addresses)+len(buildings))
	for _, a := range addresses {
		locations = append(locations, a.Location)
	}
	for _, b := range buildings {
		locations = append(locations, b.Location())
	}

	var dataset *overpass.Dataset
	err := c.phase("Downloading existing data", func() error {
		client := overpass.NewClient(c.cfg.OverpassURL, c.cfg.CacheDir, c.cfg.OverpassTimeout)
		var err error
		dataset, err = client.FetchDataset(ctx, locations)
		return err
	})
	if err != nil {
		return nil, err
	}

	// Reconciliation core. Single-threaded from here until writing.
	before := len(addresses)
	addresses = removeExisting(addresses, dataset.AddressKeys)
	stats.ExistingRemoved = before - len(addresses)
	c.log.Info("Removed addresses that already exist in OSM",
		zap.Int("removed", stats.ExistingRemoved))

	flagged := flagUnknownStreets(addresses, dataset.StreetNames)
	c.log.Info("Checked addresses against existing street names",
		zap.Int("flagged", flagged))

	var result match.Result
	err = c.phase("Matching addresses and buildings", func() error {
		result = match.Reconcile(addresses, buildings, dataset.Buildings, match.FirstMatch)
		return nil
	})
	if err != nil {
		return nil, err
	}
	stats.BuildingsDropped = len(result.Dropped)
	stats.LoneAddresses = len(result.Lone)
	c.log.Info("Removed buildings that already exist in OSM",
		zap.Int("removed", stats.BuildingsDropped))

	var generated []changes.Change
	err = c.phase("Generating changes", func() error {
		generated = changes.Generate(addresses, buildings, dataset.Buildings, result)
		return nil
	})
	if err != nil {
		return nil, err
	}
	stats.Changes = len(generated)

	groups := tile.Group(generated)
	stats.CleanTiles = len(groups.Clean)
	stats.WarnedTiles = len(groups.Warned)
	c.log.Info("Sorted changes by tile",
		zap.Int("tiles", stats.CleanTiles),
		zap.Int("warned_tiles", stats.WarnedTiles))

	err = c.phase("Writing changeset files", func() error {
		writer := &changeset.Writer{
			OutputDir:     c.cfg.OutputDir,
			Generator:     c.cfg.Generator,
			ChangesetTags: c.specs.ChangesetTags,
			Workers:       c.cfg.Workers,
		}
		return writer.WriteGroups(groups)
	}, zap.String("output", c.cfg.OutputDir))
	if err != nil {
		return nil, err
	}

	c.log.Info("Run complete",
		zap.String("addresses", humanize.Comma(int64(stats.Addresses))),
		zap.String("buildings", humanize.Comma(int64(stats.Buildings))),
		zap.String("changes", humanize.Comma(int64(stats.Changes))),
		zap.Int("tiles", stats.CleanTiles),
		zap.Int("warned_tiles", stats.WarnedTiles))
	return stats, nil
}

// phase runs fn between a start and a completion log line.
func (c *Coordinator) phase(name string, fn func() error, fields ...zap.Field) error {
	start := time.Now()
	c.log.Info(name, fields...)
	if err := fn(); err != nil {
		return err
	}
	c.log.Info(name+" complete",
		zap.Duration("duration", time.Since(start).Round(time.Millisecond)))
	return nil
}

// removeExisting drops input addresses whose key is already present in
// OSM.
func removeExisting(addresses []*survey.Address, existing map[survey.Key]struct{}) []*survey.Address {
	out := addresses[:0]
	for _, a := range addresses {
		if _, ok := existing[a.Key()]; ok {
			continue
		}
		out = append(out, a)
	}
	return out
}

// flagUnknownStreets attaches the no-nearby-street warning to every
// address whose street name is absent from the existing street set, and
// returns how many were flagged.
func flagUnknownStreets(addresses []*survey.Address, streets map[string]struct{}) int {
	flagged := 0
	for _, a := range addresses {
		if _, ok := streets[a.Tags.Find("addr:street")]; !ok {
			a.FlagNoNearbyStreet()
			flagged++
		}
	}
	return flagged
}
