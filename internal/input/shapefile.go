package input

import (
	"fmt"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"

	"github.com/osmtools/survey2osm/internal/survey"
)

func readShapefile(path string) ([]survey.Record, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer reader.Close()

	fields := reader.Fields()
	var records []survey.Record
	for reader.Next() {
		row, shape := reader.Shape()

		props := make(map[string]string, len(fields))
		for i, f := range fields {
			if v := reader.ReadAttribute(row, i); v != "" {
				props[f.String()] = v
			}
		}

		records = append(records, survey.Record{
			Geometry: shapeGeometry(shape),
			Props:    props,
		})
	}
	if err := reader.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return records, nil
}

// shapeGeometry converts a shapefile shape to orb. Unsupported shape types
// yield a nil geometry, which entity construction rejects per record.
func shapeGeometry(shape shp.Shape) orb.Geometry {
	switch s := shape.(type) {
	case *shp.Point:
		return orb.Point{s.X, s.Y}
	case *shp.PointZ:
		return orb.Point{s.X, s.Y}
	case *shp.PointM:
		return orb.Point{s.X, s.Y}
	case *shp.Polygon:
		return partsGeometry(s.Parts, s.Points)
	case *shp.PolygonZ:
		return partsGeometry(s.Parts, s.Points)
	case *shp.PolygonM:
		return partsGeometry(s.Parts, s.Points)
	default:
		return nil
	}
}

// partsGeometry groups a shapefile's ring list into polygons. ESRI rings
// run clockwise for exteriors and counter-clockwise for holes; each hole
// belongs to the exterior that precedes it in the part list.
func partsGeometry(parts []int32, points []shp.Point) orb.Geometry {
	var polygons orb.MultiPolygon
	for i := range parts {
		start := int(parts[i])
		end := len(points)
		if i+1 < len(parts) {
			end = int(parts[i+1])
		}
		if end-start < 3 {
			continue
		}

		ring := make(orb.Ring, 0, end-start+1)
		for _, p := range points[start:end] {
			ring = append(ring, orb.Point{p.X, p.Y})
		}
		if ring[0] != ring[len(ring)-1] {
			ring = append(ring, ring[0])
		}

		if clockwise(ring) || len(polygons) == 0 {
			polygons = append(polygons, orb.Polygon{ring})
		} else {
			last := len(polygons) - 1
			polygons[last] = append(polygons[last], ring)
		}
	}

	switch len(polygons) {
	case 0:
		return nil
	case 1:
		return polygons[0]
	default:
		return polygons
	}
}

// clockwise reports whether the ring winds clockwise in lon/lat space,
// signed shoelace area negative.
func clockwise(ring orb.Ring) bool {
	sum := 0.0
	for i := 0; i+1 < len(ring); i++ {
		sum += (ring[i+1][0] - ring[i][0]) * (ring[i+1][1] + ring[i][1])
	}
	return sum > 0
}
