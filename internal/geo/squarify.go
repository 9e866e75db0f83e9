package geo

import (
	"math"

	"github.com/paulmach/orb"
)

const (
	modAngle      = 45 * math.Pi / 180
	snapThreshold = 10 * math.Pi / 180
	minOverlap    = 0.95
)

// Squarify snaps a building outline's corners toward right and 45-degree
// angles. It projects the exterior ring into the unit-square tile space,
// finds the length-weighted average edge angle modulo 45 degrees, snaps
// every edge within 10 degrees of a grid angle, then rebuilds the corners
// by intersecting adjacent edge lines through their midpoints. Interior
// rings pass through unchanged.
//
// The result replaces the input only when it is a valid ring whose
// intersection-over-union with the input exceeds 0.95; any degenerate
// arithmetic or insufficient overlap returns the input unchanged. Squarify
// never fails.
func Squarify(polygon orb.Polygon) orb.Polygon {
	if len(polygon) == 0 {
		return polygon
	}

	exterior, ok := squareRing(polygon[0])
	if !ok {
		return polygon
	}

	squared := make(orb.Polygon, len(polygon))
	squared[0] = exterior
	copy(squared[1:], polygon[1:])

	if IoU(squared, polygon) <= minOverlap {
		return polygon
	}
	return squared
}

type edge struct {
	cx, cy float64
	angle  float64
}

func squareRing(ring orb.Ring) (orb.Ring, bool) {
	if len(ring) < 4 {
		return nil, false
	}

	// Midpoint, length and angle of every edge, in tile space. The average
	// angle is taken modulo 45 degrees edge by edge: edges pointing in
	// visually opposite directions must still reinforce each other.
	edges := make([]edge, 0, len(ring)-1)
	lenSum := 0.0
	angleSum := 0.0
	for i := 0; i+1 < len(ring); i++ {
		a := ToUnitSquare(ring[i])
		b := ToUnitSquare(ring[i+1])

		angle := math.Atan2(b[1]-a[1], b[0]-a[0])
		segLen := math.Hypot(a[0]-b[0], a[1]-b[1])
		lenSum += segLen
		angleSum += floorMod(angle, modAngle) * segLen
		edges = append(edges, edge{(a[0] + b[0]) / 2, (a[1] + b[1]) / 2, angle})
	}
	if lenSum == 0 {
		return nil, false
	}
	avg := floorMod(angleSum/lenSum, modAngle)

	// Snap edges whose deviation is within the threshold on either side of
	// the 45-degree wrap-around.
	for i := range edges {
		diff := floorMod(edges[i].angle, modAngle) - avg
		if math.Abs(diff) < snapThreshold || math.Abs(diff) > modAngle-snapThreshold {
			edges[i].angle -= diff
		}
	}

	// Each corner is the intersection of two adjacent edge lines.
	out := make(orb.Ring, 0, len(edges)+1)
	for i := range edges {
		a := edges[i]
		b := edges[(i+1)%len(edges)]

		ta := math.Tan(a.angle)
		tb := math.Tan(b.angle)
		if ta == tb {
			return nil, false
		}
		x := (-a.cy + b.cy - tb*b.cx + ta*a.cx) / (ta - tb)
		y := ta*(x-a.cx) + a.cy
		if math.IsNaN(x) || math.IsInf(x, 0) || math.IsNaN(y) || math.IsInf(y, 0) {
			return nil, false
		}
		out = append(out, FromUnitSquare(orb.Point{x, y}))
	}
	out = append(out, out[0])

	if !validRing(out) {
		return nil, false
	}
	return out, true
}
