// Package match reconciles survey data against existing OSM data: new
// buildings that overlap existing ones are dropped as already present, and
// every address point is assigned to at most one building.
package match

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/osmtools/survey2osm/internal/geo"
	"github.com/osmtools/survey2osm/internal/overpass"
	"github.com/osmtools/survey2osm/internal/spatial"
	"github.com/osmtools/survey2osm/internal/survey"
)

// Candidate is a building whose geometry truly contains the address point
// under consideration. Index refers into the building list the candidate
// came from.
type Candidate struct {
	Index int
	Shape orb.Geometry
}

// Policy picks the winning candidate for an address, returning a position
// in the candidate slice, or -1 for no match. Candidates arrive in index
// traversal order and all truly contain the point.
type Policy func(location orb.Point, candidates []Candidate) int

// FirstMatch keeps the first intersecting candidate. This is the default:
// ties are not broken by distance or overlap, deliberately.
func FirstMatch(_ orb.Point, candidates []Candidate) int {
	if len(candidates) == 0 {
		return -1
	}
	return 0
}

// NearestCentroid picks the candidate whose centroid lies closest to the
// address point.
func NearestCentroid(location orb.Point, candidates []Candidate) int {
	best := -1
	bestDist := 0.0
	for i, c := range candidates {
		centroid, _ := planar.CentroidArea(c.Shape)
		d := planar.DistanceSquared(centroid, location)
		if best == -1 || d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

// Result records the matching outcome as indices into the input slices.
type Result struct {
	// Kept lists the new-building indices that survived dedup, in input
	// order. Dropped lists the rest.
	Kept    []int
	Dropped []int

	// KeptAddresses is parallel to Kept: the address indices assigned to
	// each surviving building. ExistingAddresses is parallel to the
	// existing-building list.
	KeptAddresses     [][]int
	ExistingAddresses [][]int

	// Lone lists addresses contained in no building at all.
	Lone []int
}

// Reconcile runs both matching stages. Building dedup goes first: a new
// building touching any existing building in any way is dropped. Address
// assignment then tries existing buildings before new ones; an address
// landing in an existing building is never also offered to a new one.
func Reconcile(addresses []*survey.Address, buildings []*survey.Building, existing []*overpass.Building, policy Policy) Result {
	if policy == nil {
		policy = FirstMatch
	}

	existingShapes := make([]orb.Geometry, len(existing))
	for i, b := range existing {
		existingShapes[i] = b.Shape
	}
	existingIndex := spatial.NewIndex(existingShapes)

	res := Result{
		ExistingAddresses: make([][]int, len(existing)),
	}

	for i, b := range buildings {
		if overlapsAny(existingIndex, existingShapes, b.Shape) {
			res.Dropped = append(res.Dropped, i)
			continue
		}
		res.Kept = append(res.Kept, i)
	}

	keptShapes := make([]orb.Geometry, len(res.Kept))
	for i, bi := range res.Kept {
		keptShapes[i] = buildings[bi].Shape
	}
	keptIndex := spatial.NewIndex(keptShapes)
	res.KeptAddresses = make([][]int, len(res.Kept))

	for ai, addr := range addresses {
		if i := pick(existingIndex, existingShapes, addr.Location, policy); i >= 0 {
			res.ExistingAddresses[i] = append(res.ExistingAddresses[i], ai)
			continue
		}
		if i := pick(keptIndex, keptShapes, addr.Location, policy); i >= 0 {
			res.KeptAddresses[i] = append(res.KeptAddresses[i], ai)
			continue
		}
		res.Lone = append(res.Lone, ai)
	}

	return res
}

func overlapsAny(ix *spatial.Index, shapes []orb.Geometry, shape orb.Geometry) bool {
	for _, j := range ix.Search(shape.Bound()) {
		if geo.Intersects(shapes[j], shape) {
			return true
		}
	}
	return false
}

func pick(ix *spatial.Index, shapes []orb.Geometry, location orb.Point, policy Policy) int {
	var candidates []Candidate
	for _, j := range ix.SearchPoint(location) {
		if geo.ContainsPoint(shapes[j], location) {
			candidates = append(candidates, Candidate{Index: j, Shape: shapes[j]})
		}
	}
	if len(candidates) == 0 {
		return -1
	}
	k := policy(location, candidates)
	if k < 0 || k >= len(candidates) {
		return -1
	}
	return candidates[k].Index
}
