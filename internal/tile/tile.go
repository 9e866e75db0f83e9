// Package tile partitions finished changes into fixed-zoom slippy-map
// tiles so the output comes out in manageable geographic chunks, with
// clean and warned changes kept in separate groupings.
package tile

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/osmtools/survey2osm/internal/changes"
)

// Zoom is the fixed zoom level of the output tiling. At z15 a tile spans
// roughly 1.2 km at the equator.
const Zoom = 15

// Web Mercator latitude limits.
const (
	maxMercatorLat = 85.0511287798
	minMercatorLat = -85.0511287798
)

// Key returns the tile key for a location: "x_y" at the fixed zoom.
// Longitude maps linearly to x; latitude goes through the web-Mercator
// inverse to y. The same point always yields the same key.
func Key(p orb.Point) string {
	lat := p.Lat()
	if lat > maxMercatorLat {
		lat = maxMercatorLat
	}
	if lat < minMercatorLat {
		lat = minMercatorLat
	}

	n := float64(int(1) << Zoom)
	latRad := lat / 180 * math.Pi
	x := int(math.Floor(n * (p.Lon() + 180) / 360))
	y := int(math.Floor(n * (1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2))
	return fmt.Sprintf("%d_%d", x, y)
}

// Groups holds the tiled changes. A change with at least one warning goes
// only into Warned; everything else goes into Clean. The two groupings use
// the same key scheme but are written to separate output streams.
type Groups struct {
	Clean  map[string][]changes.Change
	Warned map[string][]changes.Change
}

// Group partitions changes by tile key, routing warned changes into their
// own grouping.
func Group(cs []changes.Change) Groups {
	g := Groups{
		Clean:  make(map[string][]changes.Change),
		Warned: make(map[string][]changes.Change),
	}
	for _, c := range cs {
		key := Key(c.Location())
		if len(c.Warnings()) > 0 {
			g.Warned[key] = append(g.Warned[key], c)
		} else {
			g.Clean[key] = append(g.Clean[key], c)
		}
	}
	return g
}
