package survey

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"
	"github.com/paulmach/osm"

	"github.com/osmtools/survey2osm/internal/geo"
)

// simplifyTolerance is the Douglas-Peucker tolerance, in degrees, applied
// to oversized outlines.
const simplifyTolerance = 0.000004

// maxExteriorVertices is the exterior ring size beyond which an outline is
// simplified to bound downstream cost.
const maxExteriorVertices = 100

// Building is a survey building footprint, squarified at construction.
type Building struct {
	Shape orb.Geometry
	Tags  osm.Tags

	location orb.Point
}

// NewBuilding builds a Building from an area record. The outline is
// squarified, and simplified when its exterior carries 100 or more
// vertices. Non-area geometries are rejected.
func NewBuilding(rec Record, spec TagSpec) (*Building, error) {
	var shape orb.Geometry
	switch s := rec.Geometry.(type) {
	case orb.Polygon:
		squared := geo.Squarify(s)
		if len(squared) > 0 && len(squared[0]) >= maxExteriorVertices {
			squared = simplify.DouglasPeucker(simplifyTolerance).Simplify(squared.Clone()).(orb.Polygon)
		}
		shape = squared
	case orb.MultiPolygon:
		shape = s
	default:
		return nil, &InvalidGeometryError{Want: "Polygon or MultiPolygon", Got: rec.Geometry}
	}

	return &Building{
		Shape:    shape,
		Tags:     spec.tags(rec.Props),
		location: geo.RepresentativePoint(shape),
	}, nil
}

// Location returns a point guaranteed to lie within the footprint, used
// for tiling and as the convex hull input.
func (b *Building) Location() orb.Point {
	return b.location
}
