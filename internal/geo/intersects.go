package geo

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// orientation returns the turn direction of the triplet (a, b, c):
// 0 collinear, 1 clockwise, 2 counter-clockwise.
func orientation(a, b, c orb.Point) int {
	v := (b[1]-a[1])*(c[0]-b[0]) - (b[0]-a[0])*(c[1]-b[1])
	switch {
	case v > 0:
		return 1
	case v < 0:
		return 2
	default:
		return 0
	}
}

// onSegment reports whether p lies on the segment (a, b). Callers must have
// already established that the three points are collinear.
func onSegment(a, b, p orb.Point) bool {
	return p[0] <= max(a[0], b[0]) && p[0] >= min(a[0], b[0]) &&
		p[1] <= max(a[1], b[1]) && p[1] >= min(a[1], b[1])
}

// segmentsIntersect reports whether segments (a1, a2) and (b1, b2) share at
// least one point. Endpoint contact and collinear overlap count.
func segmentsIntersect(a1, a2, b1, b2 orb.Point) bool {
	o1 := orientation(a1, a2, b1)
	o2 := orientation(a1, a2, b2)
	o3 := orientation(b1, b2, a1)
	o4 := orientation(b1, b2, a2)

	if o1 != o2 && o3 != o4 {
		return true
	}
	if o1 == 0 && onSegment(a1, a2, b1) {
		return true
	}
	if o2 == 0 && onSegment(a1, a2, b2) {
		return true
	}
	if o3 == 0 && onSegment(b1, b2, a1) {
		return true
	}
	if o4 == 0 && onSegment(b1, b2, a2) {
		return true
	}
	return false
}

// Polygons flattens an area geometry into its polygon parts. Non-area
// geometries yield nil.
func Polygons(g orb.Geometry) []orb.Polygon {
	switch s := g.(type) {
	case orb.Polygon:
		return []orb.Polygon{s}
	case orb.MultiPolygon:
		return s
	default:
		return nil
	}
}

// Intersects reports whether two area geometries share at least one point.
// Boundary contact counts, matching the dedup rule that any touch means the
// building is already present.
func Intersects(a, b orb.Geometry) bool {
	if !a.Bound().Intersects(b.Bound()) {
		return false
	}
	for _, pa := range Polygons(a) {
		for _, pb := range Polygons(b) {
			if polygonsIntersect(pa, pb) {
				return true
			}
		}
	}
	return false
}

func polygonsIntersect(a, b orb.Polygon) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	if !a.Bound().Intersects(b.Bound()) {
		return false
	}
	for _, ra := range a {
		for _, rb := range b {
			for i := 0; i+1 < len(ra); i++ {
				for j := 0; j+1 < len(rb); j++ {
					if segmentsIntersect(ra[i], ra[i+1], rb[j], rb[j+1]) {
						return true
					}
				}
			}
		}
	}
	// No edge contact: one polygon may still sit entirely inside the other.
	return planar.PolygonContains(b, a[0][0]) || planar.PolygonContains(a, b[0][0])
}

// ContainsPoint reports whether the point is inside the area geometry,
// boundary included.
func ContainsPoint(g orb.Geometry, p orb.Point) bool {
	switch s := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(s, p)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(s, p)
	default:
		return false
	}
}
