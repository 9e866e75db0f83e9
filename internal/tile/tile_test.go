package tile

import (
	"fmt"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osmtools/survey2osm/internal/changes"
	"github.com/osmtools/survey2osm/internal/survey"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name     string
		lon, lat float64
		want     string
	}{
		{name: "origin", lon: 0, lat: 0, want: "16384_16384"},
		{name: "london", lon: -0.1278, lat: 51.5074, want: "16372_10896"},
		{name: "sydney", lon: 151.2093, lat: -33.8688, want: "30147_19663"},
		{name: "stuttgart", lon: 9.1, lat: 48.7, want: "17212_11294"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Key(orb.Point{tt.lon, tt.lat}))
		})
	}
}

func TestKeyMatchesMaptile(t *testing.T) {
	points := []orb.Point{
		{0, 0},
		{-77.0365, 38.8977},
		{139.6917, 35.6895},
		{-58.3816, -34.6037},
		{13.405, 52.52},
	}
	for _, p := range points {
		mt := maptile.At(p, maptile.Zoom(Zoom))
		assert.Equal(t, fmt.Sprintf("%d_%d", mt.X, mt.Y), Key(p), "point %v", p)
	}
}

func TestKeyDeterministicWithinTile(t *testing.T) {
	// Two points ~130 m apart near the equator sit in the same z15 tile
	// (~1.2 km across) and must produce identical keys.
	a := orb.Point{10.0001, 0.0001}
	b := orb.Point{10.0009, 0.0009}
	assert.Equal(t, Key(a), Key(b))
	assert.Equal(t, "17294_16383", Key(a))
}

func addressChange(lon, lat float64, tags osm.Tags) changes.Change {
	return changes.NewAddressOnly(&survey.Address{
		Location: orb.Point{lon, lat},
		Tags:     tags,
	})
}

func TestGroupSeparatesWarnedChanges(t *testing.T) {
	full := osm.Tags{
		{Key: "addr:housenumber", Value: "1"},
		{Key: "addr:street", Value: "Main Street"},
	}

	clean := addressChange(9.1, 48.7, full)
	warned := addressChange(9.1, 48.7, osm.Tags{{Key: "addr:street", Value: "Main Street"}})
	elsewhere := addressChange(0, 0, full)

	g := Group([]changes.Change{clean, warned, elsewhere})

	require.Len(t, g.Clean, 2)
	require.Len(t, g.Warned, 1)

	// The clean and warned changes at the same location share a key but
	// never a grouping.
	assert.Equal(t, []changes.Change{clean}, g.Clean["17212_11294"])
	assert.Equal(t, []changes.Change{warned}, g.Warned["17212_11294"])
	assert.Len(t, g.Clean["16384_16384"], 1)
}

func TestGroupRoutesCombinedChangeWithWarning(t *testing.T) {
	// A building whose single matched address lacks a house number becomes
	// one combined change carrying the warning, and that change lands only
	// in the warned grouping at the address's tile.
	building := &survey.Building{
		Shape: orb.Polygon{{{9.1, 48.7}, {9.1001, 48.7}, {9.1001, 48.7001}, {9.1, 48.7001}, {9.1, 48.7}}},
		Tags:  osm.Tags{{Key: "building", Value: "yes"}},
	}
	address := &survey.Address{
		Location: orb.Point{9.10005, 48.70005},
		Tags:     osm.Tags{{Key: "addr:street", Value: "Main Street"}},
	}
	combined := changes.NewBuildingWithAddress(building, address)
	require.Len(t, combined.Warnings(), 1)
	assert.Contains(t, combined.Warnings()[0], "no house number")

	g := Group([]changes.Change{combined})

	assert.Empty(t, g.Clean)
	require.Len(t, g.Warned, 1)
	assert.Equal(t, []changes.Change{combined}, g.Warned["17212_11294"])
}

func TestGroupEmpty(t *testing.T) {
	g := Group(nil)
	assert.Empty(t, g.Clean)
	assert.Empty(t, g.Warned)
}
