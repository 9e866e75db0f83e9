// Package survey holds the in-memory model of the imported survey data:
// raw records as read from disk, and the Address and Building entities the
// pipeline matches against OpenStreetMap.
package survey

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"

	"github.com/osmtools/survey2osm/internal/filter"
)

// Record is one feature from a source file: a geometry plus its attribute
// table, stringified.
type Record struct {
	Geometry orb.Geometry
	Props    map[string]string
}

// TagMapping copies a source attribute into an OSM tag.
type TagMapping struct {
	Tag      string
	Property string
}

// TagSpec describes how a record's attributes become OSM tags: static tags
// applied first, then attribute mappings in order, with optional per-tag
// cleanup filters applied to mapped values.
type TagSpec struct {
	Add     osm.Tags
	Maps    []TagMapping
	Filters map[string]*filter.Filter
}

func (s TagSpec) tags(props map[string]string) osm.Tags {
	tags := make(osm.Tags, 0, len(s.Add)+len(s.Maps))
	for _, t := range s.Add {
		tags = setTag(tags, t.Key, t.Value)
	}
	for _, m := range s.Maps {
		prop := props[m.Property]
		if prop == "" {
			continue
		}
		if f := s.Filters[m.Tag]; f != nil {
			prop = f.Apply(prop)
		}
		tags = setTag(tags, m.Tag, prop)
	}
	return tags
}

// setTag sets key to value, replacing an earlier occurrence rather than
// appending a duplicate.
func setTag(tags osm.Tags, key, value string) osm.Tags {
	for i := range tags {
		if tags[i].Key == key {
			tags[i].Value = value
			return tags
		}
	}
	return append(tags, osm.Tag{Key: key, Value: value})
}

// InvalidGeometryError reports a record whose geometry kind does not fit
// the entity being built.
type InvalidGeometryError struct {
	Want string
	Got  orb.Geometry
}

func (e *InvalidGeometryError) Error() string {
	if e.Got == nil {
		return fmt.Sprintf("expected %s geometry (got none)", e.Want)
	}
	return fmt.Sprintf("expected %s geometry (got %s)", e.Want, e.Got.GeoJSONType())
}
