// Package config holds the run configuration assembled from CLI flags and
// the optional YAML mapping file.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Config holds the global configuration for a generate run.
type Config struct {
	// Input settings
	Addresses   string // path to the addresses source file
	Buildings   string // path to the buildings source file
	MappingFile string // optional YAML tag-mapping file

	// Output settings
	OutputDir string
	Generator string

	// Tag settings, each entry "key=value" except TagFilters ("tag,file").
	// These merge over the mapping file.
	ChangesetTags   []string
	AddressTagMaps  []string
	AddressTags     []string
	BuildingTagMaps []string
	BuildingTags    []string
	TagFilters      []string

	// Overpass settings
	OverpassURL     string
	CacheDir        string
	OverpassTimeout time.Duration

	// Processing settings
	Workers     int
	SkipInvalid bool // skip records with the wrong geometry kind instead of aborting

	// Logging and metrics
	Verbose         bool
	LogFile         string
	MetricsInterval time.Duration
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Generator:       "survey2osm",
		CacheDir:        "importer_cache",
		OverpassTimeout: 120 * time.Second,
		Workers:         runtime.NumCPU(),
		MetricsInterval: 0, // metrics logging off unless asked for
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.OutputDir == "" {
		return fmt.Errorf("output directory is required")
	}
	if c.Addresses == "" && c.Buildings == "" {
		return fmt.Errorf("at least one of --addresses and --buildings is required")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	if c.OverpassTimeout < time.Second {
		return fmt.Errorf("overpass timeout must be at least 1s")
	}
	for _, kvs := range [][]string{c.ChangesetTags, c.AddressTagMaps, c.AddressTags, c.BuildingTagMaps, c.BuildingTags} {
		for _, s := range kvs {
			if _, _, err := splitKV(s); err != nil {
				return err
			}
		}
	}
	for _, s := range c.TagFilters {
		if !strings.Contains(s, ",") {
			return fmt.Errorf("tag filter %q must have the form tag,file", s)
		}
	}
	return nil
}

// splitKV splits a "key=value" flag. The value may contain further equals
// signs.
func splitKV(s string) (string, string, error) {
	k, v, ok := strings.Cut(s, "=")
	if !ok || k == "" {
		return "", "", fmt.Errorf("tag %q must have the form key=value", s)
	}
	return k, v, nil
}
