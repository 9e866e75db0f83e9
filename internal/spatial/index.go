// Package spatial provides a bounding-box index over a fixed list of
// shapes. Queries return candidate indices only; callers verify true
// geometric intersection.
package spatial

import (
	"github.com/paulmach/orb"
	"github.com/tidwall/rtree"

	"github.com/osmtools/survey2osm/internal/geo"
)

// Index is an immutable R-tree of shape bounding boxes. The stored values
// are indices into the list the index was built from.
type Index struct {
	tr rtree.RTree
	n  int
}

// NewIndex builds an index over the bounding boxes of the given shapes.
// Nil or empty geometries are skipped and never come back as candidates.
func NewIndex(shapes []orb.Geometry) *Index {
	ix := &Index{}
	for i, shape := range shapes {
		if shape == nil || emptyShape(shape) {
			continue
		}
		b := shape.Bound()
		ix.tr.Insert([2]float64{b.Min[0], b.Min[1]}, [2]float64{b.Max[0], b.Max[1]}, i)
		ix.n++
	}
	return ix
}

func emptyShape(g orb.Geometry) bool {
	switch {
	case g.Dimensions() == 0:
		return false
	default:
		for _, p := range geo.Polygons(g) {
			if len(p) > 0 && len(p[0]) > 0 {
				return false
			}
		}
		return true
	}
}

// Search returns the indices of all shapes whose bounding box overlaps b.
// The order is the tree's traversal order: deterministic for a given build
// sequence, but otherwise unspecified.
func (ix *Index) Search(b orb.Bound) []int {
	var out []int
	ix.tr.Search(
		[2]float64{b.Min[0], b.Min[1]},
		[2]float64{b.Max[0], b.Max[1]},
		func(_, _ [2]float64, data interface{}) bool {
			out = append(out, data.(int))
			return true
		},
	)
	return out
}

// SearchPoint returns the indices of all shapes whose bounding box contains
// the point.
func (ix *Index) SearchPoint(p orb.Point) []int {
	return ix.Search(orb.Bound{Min: p, Max: p})
}

// Len returns the number of indexed shapes.
func (ix *Index) Len() int {
	return ix.n
}
