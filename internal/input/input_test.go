package input

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadGeoJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "addresses.geojson")
	data := `{
		"type": "FeatureCollection",
		"features": [
			{
				"type": "Feature",
				"geometry": {"type": "Point", "coordinates": [9.1, 48.7]},
				"properties": {"NUMBER": 12, "STREET": "Main Street", "NOTE": null, "ACTIVE": true}
			},
			{
				"type": "Feature",
				"geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,1],[0,0]]]},
				"properties": {}
			}
		]
	}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	records, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, orb.Point{9.1, 48.7}, records[0].Geometry)
	assert.Equal(t, map[string]string{
		"NUMBER": "12",
		"STREET": "Main Street",
		"ACTIVE": "true",
	}, records[0].Props, "numbers stringified without decimals, nulls dropped")

	poly, ok := records[1].Geometry.(orb.Polygon)
	require.True(t, ok)
	assert.Len(t, poly[0], 5)
}

func TestReadFileUnsupported(t *testing.T) {
	_, err := ReadFile("data.csv")
	assert.Error(t, err)
}

func TestPartsGeometrySingleRing(t *testing.T) {
	// Clockwise ring, unclosed in the file: one simple polygon, closed.
	parts := []int32{0}
	points := []shp.Point{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 0}}

	g := partsGeometry(parts, points)
	poly, ok := g.(orb.Polygon)
	require.True(t, ok)
	require.Len(t, poly, 1)
	assert.Len(t, poly[0], 5)
	assert.Equal(t, poly[0][0], poly[0][4])
}

func TestPartsGeometryHoleGrouping(t *testing.T) {
	// A clockwise exterior followed by a counter-clockwise hole, then a
	// second clockwise exterior: polygon-with-hole plus plain polygon.
	parts := []int32{0, 5, 10}
	points := []shp.Point{
		// outer, clockwise
		{X: 0, Y: 0}, {X: 0, Y: 4}, {X: 4, Y: 4}, {X: 4, Y: 0}, {X: 0, Y: 0},
		// hole, counter-clockwise
		{X: 1, Y: 1}, {X: 2, Y: 1}, {X: 2, Y: 2}, {X: 1, Y: 2}, {X: 1, Y: 1},
		// second outer, clockwise
		{X: 10, Y: 10}, {X: 10, Y: 11}, {X: 11, Y: 11}, {X: 11, Y: 10}, {X: 10, Y: 10},
	}

	g := partsGeometry(parts, points)
	mp, ok := g.(orb.MultiPolygon)
	require.True(t, ok)
	require.Len(t, mp, 2)
	assert.Len(t, mp[0], 2, "hole attaches to the preceding exterior")
	assert.Len(t, mp[1], 1)
}

func TestPartsGeometryDegenerate(t *testing.T) {
	assert.Nil(t, partsGeometry([]int32{0}, []shp.Point{{X: 0, Y: 0}, {X: 1, Y: 1}}))
}

func TestClockwise(t *testing.T) {
	cw := orb.Ring{{0, 0}, {0, 1}, {1, 1}, {1, 0}, {0, 0}}
	ccw := orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}
	assert.True(t, clockwise(cw))
	assert.False(t, clockwise(ccw))
}
