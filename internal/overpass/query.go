package overpass

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
)

// hullPadding is the bounding-box padding, in degrees, used when the input
// is too small or collinear for a proper convex hull.
const hullPadding = 0.001

// PolyFilter renders the convex hull of the given locations as an Overpass
// "poly" filter value: space-separated "lat lon" pairs, closed. Degenerate
// inputs fall back to a padded bounding box.
func PolyFilter(points []orb.Point) (string, error) {
	if len(points) == 0 {
		return "", fmt.Errorf("no locations to build a query area from")
	}

	ring := convexHull(points)
	if len(ring) < 3 {
		bound := orb.MultiPoint(points).Bound().Pad(hullPadding)
		ring = bound.ToRing()
	}
	if ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}

	parts := make([]string, 0, len(ring))
	for _, p := range ring {
		parts = append(parts,
			strconv.FormatFloat(p.Lat(), 'f', -1, 64)+" "+strconv.FormatFloat(p.Lon(), 'f', -1, 64))
	}
	return strings.Join(parts, " "), nil
}

func convexHull(points []orb.Point) orb.Ring {
	query := s2.NewConvexHullQuery()
	for _, p := range points {
		query.AddPoint(s2.PointFromLatLng(s2.LatLngFromDegrees(p.Lat(), p.Lon())))
	}

	loop := query.ConvexHull()
	if loop.IsEmpty() || loop.IsFull() {
		return nil
	}

	ring := make(orb.Ring, 0, loop.NumVertices())
	for i := 0; i < loop.NumVertices(); i++ {
		ll := s2.LatLngFromPoint(loop.Vertex(i))
		ring = append(ring, orb.Point{ll.Lng.Degrees(), ll.Lat.Degrees()})
	}
	return ring
}

// The three reconciliation queries. Addresses come back as tags plus a
// center point, buildings with full geometry and metadata for in-place
// updates, streets with their tags only.

func (c *Client) addressQuery(poly string) string {
	return fmt.Sprintf(
		`[out:json][timeout:%d]; ( node[~"^addr:.*$"~".*"](poly:"%s"); way[~"^addr:.*$"~".*"](poly:"%s"); relation[~"^addr:.*$"~".*"](poly:"%s"); ); out tags center;`,
		c.timeoutSeconds(), poly, poly, poly)
}

func (c *Client) buildingQuery(poly string) string {
	return fmt.Sprintf(
		`[out:json][timeout:%d]; ( way["building"="yes"](poly:"%s"); relation["building"="yes"](poly:"%s"); ); out meta geom;`,
		c.timeoutSeconds(), poly, poly)
}

func (c *Client) streetQuery(poly string) string {
	return fmt.Sprintf(
		`[out:json][timeout:%d]; way["highway"](poly:"%s"); out tags geom;`,
		c.timeoutSeconds(), poly)
}

func (c *Client) timeoutSeconds() int {
	secs := int(c.queryTimeout.Seconds())
	if secs < 1 {
		secs = 1
	}
	return secs
}
