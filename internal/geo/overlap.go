package geo

import (
	"github.com/engelsjk/polygol"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// IoU computes intersection-over-union of two area geometries. Degenerate
// inputs and clipping failures return 0, which callers treat as "no
// meaningful overlap".
func IoU(a, b orb.Geometry) float64 {
	ga := polygolGeom(a)
	gb := polygolGeom(b)
	if len(ga) == 0 || len(gb) == 0 {
		return 0
	}

	inter, err := polygol.Intersection(ga, gb)
	if err != nil {
		return 0
	}
	union, err := polygol.Union(ga, gb)
	if err != nil {
		return 0
	}

	unionArea := planar.Area(geomMultiPolygon(union))
	if unionArea == 0 {
		return 0
	}
	return planar.Area(geomMultiPolygon(inter)) / unionArea
}

// polygolGeom converts an area geometry to polygol's nested-slice form.
func polygolGeom(g orb.Geometry) [][][][]float64 {
	polys := Polygons(g)
	out := make([][][][]float64, 0, len(polys))
	for _, poly := range polys {
		if len(poly) == 0 || len(poly[0]) < 4 {
			continue
		}
		rings := make([][][]float64, 0, len(poly))
		for _, ring := range poly {
			coords := make([][]float64, 0, len(ring))
			for _, p := range ring {
				coords = append(coords, []float64{p[0], p[1]})
			}
			rings = append(rings, coords)
		}
		out = append(out, rings)
	}
	return out
}

func geomMultiPolygon(g [][][][]float64) orb.MultiPolygon {
	mp := make(orb.MultiPolygon, 0, len(g))
	for _, poly := range g {
		p := make(orb.Polygon, 0, len(poly))
		for _, ring := range poly {
			r := make(orb.Ring, 0, len(ring))
			for _, c := range ring {
				if len(c) < 2 {
					continue
				}
				r = append(r, orb.Point{c[0], c[1]})
			}
			p = append(p, r)
		}
		mp = append(mp, p)
	}
	return mp
}
