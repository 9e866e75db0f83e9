package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// compactRing drops consecutive duplicate vertices. The closing vertex of a
// closed input survives.
func compactRing(r orb.Ring) orb.Ring {
	if len(r) == 0 {
		return r
	}
	out := orb.Ring{r[0]}
	for _, p := range r[1:] {
		if p != out[len(out)-1] {
			out = append(out, p)
		}
	}
	return out
}

// validRing reports whether r is a usable polygon exterior: closed, at
// least a triangle, finite coordinates, nonzero area, no self-intersection.
func validRing(r orb.Ring) bool {
	r = compactRing(r)
	if len(r) < 4 || r[0] != r[len(r)-1] {
		return false
	}
	for _, p := range r {
		if math.IsNaN(p[0]) || math.IsInf(p[0], 0) || math.IsNaN(p[1]) || math.IsInf(p[1], 0) {
			return false
		}
	}
	if planar.Area(r) == 0 {
		return false
	}
	return ringSimple(r)
}

// ringSimple checks that no two edges of the closed ring touch except
// adjacent edges at their shared vertex.
func ringSimple(r orb.Ring) bool {
	n := len(r) - 1 // edge count
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if j == i+1 || (i == 0 && j == n-1) {
				// Adjacent edges fold back on themselves when their free
				// endpoints leave the shared vertex in the same direction.
				s, u, v := r[j], r[i], r[j+1]
				if i == 0 && j == n-1 {
					s, u, v = r[0], r[1], r[n-1]
				}
				if orientation(u, s, v) == 0 && (u[0]-s[0])*(v[0]-s[0])+(u[1]-s[1])*(v[1]-s[1]) > 0 {
					return false
				}
				continue
			}
			if segmentsIntersect(r[i], r[i+1], r[j], r[j+1]) {
				return false
			}
		}
	}
	return true
}
