package overpass

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/osmtools/survey2osm/internal/logger"
	"github.com/osmtools/survey2osm/internal/survey"
)

// Response is the JSON shape of an Overpass reply.
type Response struct {
	Elements []Element `json:"elements"`
}

// LatLon is a bare coordinate in an Overpass geometry.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Member is a relation member, with geometry when requested.
type Member struct {
	Type     string   `json:"type"`
	Ref      int64    `json:"ref"`
	Role     string   `json:"role"`
	Geometry []LatLon `json:"geometry"`
}

// Element is one OSM element in an Overpass reply.
type Element struct {
	Type     string            `json:"type"`
	ID       int64             `json:"id"`
	Version  int               `json:"version"`
	Lat      float64           `json:"lat"`
	Lon      float64           `json:"lon"`
	Center   *LatLon           `json:"center"`
	Tags     map[string]string `json:"tags"`
	Geometry []LatLon          `json:"geometry"`
	Members  []Member          `json:"members"`
}

// ElementRef identifies an existing OSM element precisely enough to emit
// an update against it.
type ElementRef struct {
	Type    osm.Type
	ID      int64
	Version int
	Tags    osm.Tags
}

// Building is a building already present in OSM.
type Building struct {
	Shape   orb.Polygon
	Element ElementRef
}

// Dataset holds everything the reconciliation needs to know about the
// survey area's existing OSM data.
type Dataset struct {
	Buildings   []*Building
	AddressKeys map[survey.Key]struct{}
	StreetNames map[string]struct{}
}

// FetchDataset runs the three reconciliation queries over the convex hull
// of the given locations, concurrently, and assembles the results.
func (c *Client) FetchDataset(ctx context.Context, locations []orb.Point) (*Dataset, error) {
	poly, err := PolyFilter(locations)
	if err != nil {
		return nil, err
	}

	log := logger.Named("overpass")
	ds := &Dataset{}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		resp, err := c.Query(ctx, c.addressQuery(poly))
		if err != nil {
			return fmt.Errorf("fetching existing addresses: %w", err)
		}
		ds.AddressKeys = resp.AddressKeys()
		log.Info("Fetched existing addresses",
			zap.Int("elements", len(resp.Elements)),
			zap.Duration("duration", time.Since(start).Round(time.Millisecond)))
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		resp, err := c.Query(ctx, c.buildingQuery(poly))
		if err != nil {
			return fmt.Errorf("fetching existing buildings: %w", err)
		}
		ds.Buildings = resp.Buildings(log)
		log.Info("Fetched existing buildings",
			zap.Int("buildings", len(ds.Buildings)),
			zap.Duration("duration", time.Since(start).Round(time.Millisecond)))
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		resp, err := c.Query(ctx, c.streetQuery(poly))
		if err != nil {
			return fmt.Errorf("fetching streets: %w", err)
		}
		ds.StreetNames = resp.StreetNames()
		log.Info("Fetched streets",
			zap.Int("names", len(ds.StreetNames)),
			zap.Duration("duration", time.Since(start).Round(time.Millisecond)))
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ds, nil
}

// AddressKeys collects the (housenumber, street) pairs already present.
// Missing tags contribute empty strings, so an element carrying only other
// addr:* tags still contributes a key.
func (r *Response) AddressKeys() map[survey.Key]struct{} {
	keys := make(map[survey.Key]struct{}, len(r.Elements))
	for _, el := range r.Elements {
		keys[survey.Key{
			HouseNumber: el.Tags["addr:housenumber"],
			Street:      el.Tags["addr:street"],
		}] = struct{}{}
	}
	return keys
}

// StreetNames collects the names of highways in the area. Unnamed ways
// contribute the empty name.
func (r *Response) StreetNames() map[string]struct{} {
	names := make(map[string]struct{}, len(r.Elements))
	for _, el := range r.Elements {
		names[el.Tags["name"]] = struct{}{}
	}
	return names
}

// Buildings converts building elements into polygons with their element
// references. Relations contribute the concatenated coordinates of their
// outer way members. Elements without enough outline to form a ring are
// dropped.
func (r *Response) Buildings(log *zap.Logger) []*Building {
	out := make([]*Building, 0, len(r.Elements))
	for _, el := range r.Elements {
		ring := el.ring()
		if len(ring) < 3 {
			log.Debug("Skipping building without outline",
				zap.String("type", el.Type), zap.Int64("id", el.ID))
			continue
		}
		if ring[0] != ring[len(ring)-1] {
			ring = append(ring, ring[0])
		}
		out = append(out, &Building{
			Shape: orb.Polygon{ring},
			Element: ElementRef{
				Type:    osm.Type(el.Type),
				ID:      el.ID,
				Version: el.Version,
				Tags:    mapTags(el.Tags),
			},
		})
	}
	return out
}

func (el *Element) ring() orb.Ring {
	switch el.Type {
	case "way":
		return coordsToRing(el.Geometry)
	case "relation":
		var ring orb.Ring
		for _, m := range el.Members {
			if m.Role != "outer" || m.Type != "way" {
				continue
			}
			ring = append(ring, coordsToRing(m.Geometry)...)
		}
		return ring
	default:
		return nil
	}
}

func coordsToRing(coords []LatLon) orb.Ring {
	ring := make(orb.Ring, 0, len(coords))
	for _, c := range coords {
		ring = append(ring, orb.Point{c.Lon, c.Lat})
	}
	return ring
}

// mapTags converts an Overpass tag map into osm.Tags with a deterministic
// key order.
func mapTags(m map[string]string) osm.Tags {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tags := make(osm.Tags, 0, len(keys))
	for _, k := range keys {
		tags = append(tags, osm.Tag{Key: k, Value: m[k]})
	}
	return tags
}
