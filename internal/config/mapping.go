package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/paulmach/osm"
	"gopkg.in/yaml.v3"

	"github.com/osmtools/survey2osm/internal/filter"
	"github.com/osmtools/survey2osm/internal/survey"
)

// Mapping is the YAML mapping file: per-layer tag rules plus changeset
// metadata tags. Entries are lists rather than maps so their order, and
// with it the tag order in the output, stays stable.
type Mapping struct {
	Addresses     LayerMapping `yaml:"addresses"`
	Buildings     LayerMapping `yaml:"buildings"`
	ChangesetTags []TagValue   `yaml:"changeset_tags"`
}

// LayerMapping describes how one input layer's attributes become OSM tags.
type LayerMapping struct {
	// Add lists static tags applied to every record.
	Add []TagValue `yaml:"add"`
	// Map copies source attributes into tags, in order.
	Map []TagProperty `yaml:"map"`
	// Filters attach a cleanup filter file to an output tag.
	Filters []TagFile `yaml:"filters"`
}

// TagValue is a static tag.
type TagValue struct {
	Tag   string `yaml:"tag"`
	Value string `yaml:"value"`
}

// TagProperty maps a source attribute onto a tag.
type TagProperty struct {
	Tag      string `yaml:"tag"`
	Property string `yaml:"property"`
}

// TagFile names a filter file for a tag.
type TagFile struct {
	Tag  string `yaml:"tag"`
	File string `yaml:"file"`
}

// LoadMapping loads a mapping YAML file.
func LoadMapping(path string) (*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading mapping file: %w", err)
	}
	var m Mapping
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing mapping file: %w", err)
	}
	return &m, nil
}

// Specs is the resolved tag configuration: one spec per input layer plus
// the changeset metadata tags.
type Specs struct {
	Address       survey.TagSpec
	Building      survey.TagSpec
	ChangesetTags osm.Tags
}

// Specs resolves the mapping file and the repeated CLI flags into tag
// specs. CLI entries come after the file's, so they win where both set the
// same tag. CLI --tag-filters apply to both layers, matching their
// original all-layers behavior.
func (c *Config) Specs() (*Specs, error) {
	mapping := &Mapping{}
	if c.MappingFile != "" {
		m, err := LoadMapping(c.MappingFile)
		if err != nil {
			return nil, err
		}
		mapping = m
	}

	address, err := layerSpec(mapping.Addresses, c.AddressTags, c.AddressTagMaps)
	if err != nil {
		return nil, err
	}
	building, err := layerSpec(mapping.Buildings, c.BuildingTags, c.BuildingTagMaps)
	if err != nil {
		return nil, err
	}

	for _, s := range c.TagFilters {
		tag, path, _ := strings.Cut(s, ",")
		f, err := filter.Load(path)
		if err != nil {
			return nil, err
		}
		if address.Filters[tag] != nil || building.Filters[tag] != nil {
			return nil, fmt.Errorf("filter already specified for %s", tag)
		}
		address.Filters[tag] = f
		building.Filters[tag] = f
	}

	tags := make(osm.Tags, 0, len(mapping.ChangesetTags)+len(c.ChangesetTags))
	for _, t := range mapping.ChangesetTags {
		tags = setTag(tags, t.Tag, t.Value)
	}
	for _, s := range c.ChangesetTags {
		k, v, err := splitKV(s)
		if err != nil {
			return nil, err
		}
		tags = setTag(tags, k, v)
	}

	return &Specs{Address: address, Building: building, ChangesetTags: tags}, nil
}

func layerSpec(layer LayerMapping, adds, maps []string) (survey.TagSpec, error) {
	spec := survey.TagSpec{Filters: make(map[string]*filter.Filter)}

	for _, t := range layer.Add {
		spec.Add = setTag(spec.Add, t.Tag, t.Value)
	}
	for _, s := range adds {
		k, v, err := splitKV(s)
		if err != nil {
			return spec, err
		}
		spec.Add = setTag(spec.Add, k, v)
	}

	for _, m := range layer.Map {
		spec.Maps = append(spec.Maps, survey.TagMapping{Tag: m.Tag, Property: m.Property})
	}
	for _, s := range maps {
		k, v, err := splitKV(s)
		if err != nil {
			return spec, err
		}
		spec.Maps = append(spec.Maps, survey.TagMapping{Tag: k, Property: v})
	}

	for _, tf := range layer.Filters {
		f, err := filter.Load(tf.File)
		if err != nil {
			return spec, err
		}
		spec.Filters[tf.Tag] = f
	}
	return spec, nil
}

func setTag(tags osm.Tags, key, value string) osm.Tags {
	for i := range tags {
		if tags[i].Key == key {
			tags[i].Value = value
			return tags
		}
	}
	return append(tags, osm.Tag{Key: key, Value: value})
}
