package geo

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// RepresentativePoint returns a point guaranteed to lie within the area
// geometry, for use as a stable anchor for tiling and matching. It scans a
// horizontal line near the vertical center of the shape and picks the
// midpoint of the widest inside interval, nudging the scanline off any
// vertex it would otherwise graze. Multipolygons anchor on the
// largest-area part.
func RepresentativePoint(g orb.Geometry) orb.Point {
	switch s := g.(type) {
	case orb.Point:
		return s
	case orb.Polygon:
		return polygonInteriorPoint(s)
	case orb.MultiPolygon:
		if len(s) == 0 {
			return orb.Point{}
		}
		best := s[0]
		bestArea := planar.Area(s[0])
		for _, p := range s[1:] {
			if a := planar.Area(p); a > bestArea {
				best, bestArea = p, a
			}
		}
		return polygonInteriorPoint(best)
	default:
		c, _ := planar.CentroidArea(g)
		return c
	}
}

func polygonInteriorPoint(p orb.Polygon) orb.Point {
	if len(p) == 0 || len(p[0]) == 0 {
		return orb.Point{}
	}

	bound := p.Bound()
	for _, y := range scanlines(p, bound) {
		if pt, ok := widestIntervalMid(p, y); ok && planar.PolygonContains(p, pt) {
			return pt
		}
	}

	// Thin or degenerate shapes: fall back to the centroid, then to a
	// vertex, which at least lies on the boundary.
	if c, _ := planar.CentroidArea(p); planar.PolygonContains(p, c) {
		return c
	}
	return p[0][0]
}

// scanlines proposes candidate y values: the bound's vertical bisector,
// then the bisector nudged between the nearest vertex rows when it lands
// exactly on a vertex.
func scanlines(p orb.Polygon, bound orb.Bound) []float64 {
	mid := (bound.Min[1] + bound.Max[1]) / 2
	if !vertexOnLine(p, mid) {
		return []float64{mid}
	}

	lo, hi := bound.Min[1], bound.Max[1]
	for _, ring := range p {
		for _, pt := range ring {
			if pt[1] < mid && pt[1] > lo {
				lo = pt[1]
			}
			if pt[1] > mid && pt[1] < hi {
				hi = pt[1]
			}
		}
	}
	return []float64{(lo + mid) / 2, (mid + hi) / 2, mid}
}

func vertexOnLine(p orb.Polygon, y float64) bool {
	for _, ring := range p {
		for _, pt := range ring {
			if pt[1] == y {
				return true
			}
		}
	}
	return false
}

// widestIntervalMid intersects the horizontal line at y with every ring and
// returns the midpoint of the widest inside interval.
func widestIntervalMid(p orb.Polygon, y float64) (orb.Point, bool) {
	var xs []float64
	for _, ring := range p {
		for i := 0; i+1 < len(ring); i++ {
			a, b := ring[i], ring[i+1]
			if (a[1] > y) == (b[1] > y) {
				continue
			}
			xs = append(xs, a[0]+(y-a[1])*(b[0]-a[0])/(b[1]-a[1]))
		}
	}
	if len(xs) < 2 {
		return orb.Point{}, false
	}
	sort.Float64s(xs)

	bestWidth := -1.0
	var bestMid float64
	for i := 0; i+1 < len(xs); i += 2 {
		if w := xs[i+1] - xs[i]; w > bestWidth {
			bestWidth = w
			bestMid = (xs[i] + xs[i+1]) / 2
		}
	}
	if bestWidth < 0 {
		return orb.Point{}, false
	}
	return orb.Point{bestMid, y}, true
}
