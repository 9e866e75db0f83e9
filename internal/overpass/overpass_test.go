package overpass

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/osmtools/survey2osm/internal/survey"
)

func TestPolyFilterHull(t *testing.T) {
	points := []orb.Point{
		{-77.10, 38.90},
		{-77.00, 38.90},
		{-77.00, 38.95},
		{-77.10, 38.95},
		{-77.05, 38.92}, // interior, not a hull vertex
	}

	poly, err := PolyFilter(points)
	require.NoError(t, err)

	fields := strings.Fields(poly)
	require.True(t, len(fields)%2 == 0, "lat lon pairs")
	require.GreaterOrEqual(t, len(fields), 10, "four corners plus closure")

	var pairs []orb.Point
	for i := 0; i+1 < len(fields); i += 2 {
		lat, err := strconv.ParseFloat(fields[i], 64)
		require.NoError(t, err, "field %q", fields[i])
		lon, err := strconv.ParseFloat(fields[i+1], 64)
		require.NoError(t, err, "field %q", fields[i+1])
		pairs = append(pairs, orb.Point{lon, lat})
	}

	// Closed: first pair equals last pair.
	assert.Equal(t, fields[0], fields[len(fields)-2])
	assert.Equal(t, fields[1], fields[len(fields)-1])

	near := func(a, b orb.Point) bool {
		return math.Abs(a[0]-b[0]) < 1e-9 && math.Abs(a[1]-b[1]) < 1e-9
	}
	for _, corner := range points[:4] {
		found := false
		for _, p := range pairs {
			if near(p, corner) {
				found = true
				break
			}
		}
		assert.True(t, found, "hull must keep corner %v", corner)
	}
	for _, p := range pairs {
		assert.False(t, near(p, points[4]), "interior point must not be a hull vertex")
	}
}

func TestPolyFilterDegenerateInputs(t *testing.T) {
	for _, points := range [][]orb.Point{
		{{-77.03, 38.90}},
		{{-77.03, 38.90}, {-77.03, 38.90}},
		{{-77.03, 38.90}, {-77.02, 38.90}},
	} {
		poly, err := PolyFilter(points)
		require.NoError(t, err)
		fields := strings.Fields(poly)
		assert.True(t, len(fields) >= 8 && len(fields)%2 == 0, "padded box for %v: %q", points, poly)
	}

	_, err := PolyFilter(nil)
	assert.Error(t, err)
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, filepath.Join(t.TempDir(), "cache"), 120*time.Second)
	c.retryDelay = time.Millisecond
	return c, srv
}

func TestQueryCaches(t *testing.T) {
	var hits atomic.Int64
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "test query", string(body))
		w.Write([]byte(`{"elements":[{"type":"node","id":7,"lat":1,"lon":2}]}`))
	}))

	ctx := context.Background()
	first, err := c.Query(ctx, "test query")
	require.NoError(t, err)
	require.Len(t, first.Elements, 1)

	second, err := c.Query(ctx, "test query")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), hits.Load(), "second query must come from cache")

	entries, err := os.ReadDir(c.cacheDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".json.gz"))

	_, err = c.Query(ctx, "another query")
	require.NoError(t, err)
	assert.Equal(t, int64(2), hits.Load())
}

func TestQueryIgnoresCorruptCache(t *testing.T) {
	var hits atomic.Int64
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(`{"elements":[]}`))
	}))

	ctx := context.Background()
	_, err := c.Query(ctx, "q")
	require.NoError(t, err)

	entries, err := os.ReadDir(c.cacheDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NoError(t, os.WriteFile(filepath.Join(c.cacheDir, entries[0].Name()), []byte("not gzip"), 0o644))

	_, err = c.Query(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, int64(2), hits.Load())
}

func TestQueryRetriesServerErrors(t *testing.T) {
	var hits atomic.Int64
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			http.Error(w, "overloaded", http.StatusGatewayTimeout)
			return
		}
		w.Write([]byte(`{"elements":[]}`))
	}))

	_, err := c.Query(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, int64(3), hits.Load())
}

func TestQueryGivesUpAfterRetries(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))

	_, err := c.Query(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries")
}

func TestBuildings(t *testing.T) {
	var resp Response
	require.NoError(t, json.Unmarshal([]byte(`{"elements": [
		{
			"type": "way", "id": 100, "version": 3,
			"tags": {"building": "yes", "addr:street": "Main St"},
			"geometry": [
				{"lat": 0, "lon": 0}, {"lat": 0, "lon": 1},
				{"lat": 1, "lon": 1}, {"lat": 1, "lon": 0}
			]
		},
		{
			"type": "relation", "id": 200, "version": 1,
			"tags": {"building": "yes", "type": "multipolygon"},
			"members": [
				{"type": "way", "ref": 1, "role": "outer", "geometry": [
					{"lat": 5, "lon": 5}, {"lat": 5, "lon": 6}
				]},
				{"type": "way", "ref": 2, "role": "outer", "geometry": [
					{"lat": 6, "lon": 6}, {"lat": 6, "lon": 5}
				]},
				{"type": "way", "ref": 3, "role": "inner", "geometry": [
					{"lat": 9, "lon": 9}
				]}
			]
		},
		{"type": "way", "id": 300, "version": 1, "geometry": [{"lat": 0, "lon": 0}, {"lat": 1, "lon": 1}]},
		{"type": "node", "id": 400, "version": 1, "lat": 2, "lon": 2}
	]}`), &resp))

	buildings := resp.Buildings(zap.NewNop())
	require.Len(t, buildings, 2, "short outlines and nodes are dropped")

	way := buildings[0]
	assert.Equal(t, int64(100), way.Element.ID)
	assert.Equal(t, 3, way.Element.Version)
	assert.Equal(t, "way", string(way.Element.Type))
	assert.Equal(t, "Main St", way.Element.Tags.Find("addr:street"))
	require.Len(t, way.Shape, 1)
	assert.Equal(t, way.Shape[0][0], way.Shape[0][len(way.Shape[0])-1], "ring is closed")
	assert.Len(t, way.Shape[0], 5)

	rel := buildings[1]
	assert.Equal(t, "relation", string(rel.Element.Type))
	require.Len(t, rel.Shape, 1)
	// Outer member coordinates concatenated in order, then closed.
	assert.Equal(t, orb.Ring{{5, 5}, {6, 5}, {6, 6}, {5, 6}, {5, 5}}, rel.Shape[0])
}

func TestAddressKeysAndStreetNames(t *testing.T) {
	var resp Response
	require.NoError(t, json.Unmarshal([]byte(`{"elements": [
		{"type": "node", "id": 1, "tags": {"addr:housenumber": "12", "addr:street": "Main St"}},
		{"type": "way", "id": 2, "tags": {"addr:housenumber": "12", "addr:street": "Main St"}},
		{"type": "node", "id": 3, "tags": {"addr:city": "Springfield"}}
	]}`), &resp))

	keys := resp.AddressKeys()
	assert.Len(t, keys, 2)
	assert.Contains(t, keys, survey.Key{HouseNumber: "12", Street: "Main St"})
	assert.Contains(t, keys, survey.Key{}, "elements with other addr tags contribute an empty key")

	var streets Response
	require.NoError(t, json.Unmarshal([]byte(`{"elements": [
		{"type": "way", "id": 1, "tags": {"highway": "residential", "name": "Main St"}},
		{"type": "way", "id": 2, "tags": {"highway": "service"}}
	]}`), &streets))

	names := streets.StreetNames()
	assert.Len(t, names, 2)
	assert.Contains(t, names, "Main St")
	assert.Contains(t, names, "", "unnamed streets contribute the empty name")
}

func TestFetchDataset(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		q := string(body)
		assert.Contains(t, q, `poly:"`)
		switch {
		case strings.Contains(q, "addr:"):
			w.Write([]byte(`{"elements":[{"type":"node","id":1,"tags":{"addr:housenumber":"1","addr:street":"A St"}}]}`))
		case strings.Contains(q, "building"):
			w.Write([]byte(`{"elements":[{"type":"way","id":2,"version":4,"tags":{"building":"yes"},"geometry":[
				{"lat":0,"lon":0},{"lat":0,"lon":1},{"lat":1,"lon":1}]}]}`))
		case strings.Contains(q, "highway"):
			w.Write([]byte(`{"elements":[{"type":"way","id":3,"tags":{"highway":"residential","name":"A St"}}]}`))
		default:
			http.Error(w, "unexpected query "+q, http.StatusBadRequest)
		}
	}))

	ds, err := c.FetchDataset(context.Background(), []orb.Point{
		{-77.10, 38.90}, {-77.00, 38.90}, {-77.05, 38.95},
	})
	require.NoError(t, err)

	assert.Contains(t, ds.AddressKeys, survey.Key{HouseNumber: "1", Street: "A St"})
	assert.Contains(t, ds.StreetNames, "A St")
	require.Len(t, ds.Buildings, 1)
	assert.Equal(t, int64(2), ds.Buildings[0].Element.ID)
	assert.Equal(t, 4, ds.Buildings[0].Element.Version)
}
