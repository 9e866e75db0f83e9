package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// ToUnitSquare projects a lon/lat coordinate onto the unit square used by
// slippy-map tiles: x grows east from the antimeridian, y grows south from
// the north pole. The projection is conformal, so edge angles measured in
// this space are meaningful.
func ToUnitSquare(p orb.Point) orb.Point {
	latRad := p[1] / 180 * math.Pi
	return orb.Point{
		(p[0] + 180) / 360,
		(1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2,
	}
}

// FromUnitSquare is the inverse of ToUnitSquare.
func FromUnitSquare(p orb.Point) orb.Point {
	return orb.Point{
		p[0]*360 - 180,
		math.Atan(math.Sinh(math.Pi*(1-2*p[1]))) * 180 / math.Pi,
	}
}

// floorMod is a floored modulo: the result is always in [0, m) for m > 0,
// unlike math.Mod which keeps the sign of the dividend.
func floorMod(x, m float64) float64 {
	r := math.Mod(x, m)
	if r != 0 && (r < 0) != (m < 0) {
		r += m
	}
	return r
}
