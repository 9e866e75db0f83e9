package changeset

import (
	"bytes"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osmtools/survey2osm/internal/changes"
	"github.com/osmtools/survey2osm/internal/overpass"
	"github.com/osmtools/survey2osm/internal/survey"
)

func buildingChange(shape orb.Geometry) changes.Change {
	return changes.NewBuildingOnly(&survey.Building{
		Shape: shape,
		Tags:  osm.Tags{{Key: "building", Value: "yes"}},
	})
}

func emit(t *testing.T, cs ...changes.Change) (*Emitter, *Document) {
	t.Helper()
	e := NewEmitter()
	for _, c := range cs {
		e.Add(c)
	}
	return e, e.Document(Metadata{Generator: "test", SourceFile: "1_2"})
}

func TestEmitterSyntheticIDs(t *testing.T) {
	square := orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}}
	_, doc := emit(t, buildingChange(square))

	require.Len(t, doc.Nodes, 4, "the closing vertex reuses the first node")
	require.Len(t, doc.Ways, 1)

	seen := make(map[int64]bool)
	for _, n := range doc.Nodes {
		assert.Negative(t, n.ID)
		assert.False(t, seen[n.ID], "identifiers are never reused")
		seen[n.ID] = true
	}
	assert.Negative(t, doc.Ways[0].ID)
	assert.False(t, seen[doc.Ways[0].ID], "ways draw from the same counter as nodes")

	refs := doc.Ways[0].Nodes
	require.Len(t, refs, 5)
	assert.Equal(t, refs[0].Ref, refs[4].Ref, "way is closed over the same node")
}

func TestEmitterNodeDedupAcrossPolygons(t *testing.T) {
	// Two rectangles sharing the edge lon=1: the two shared corners must
	// come out as single nodes.
	left := orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}}
	right := orb.Polygon{{{1, 0}, {2, 0}, {2, 1}, {1, 1}, {1, 0}}}

	_, doc := emit(t, buildingChange(left), buildingChange(right))

	assert.Len(t, doc.Nodes, 6, "4 + 4 corners minus 2 shared")
	require.Len(t, doc.Ways, 2)
}

func TestEmitterQuantizedDedup(t *testing.T) {
	e := NewEmitter()
	e.Add(changes.NewAddressOnly(&survey.Address{Location: orb.Point{1.00000001, 2}}))
	e.Add(changes.NewAddressOnly(&survey.Address{Location: orb.Point{1.00000004, 2}}))
	doc := e.Document(Metadata{})

	assert.Len(t, doc.Nodes, 1, "coordinates equal after 1e-7 quantization share a node")
}

func TestEmitterMultipolygonRelation(t *testing.T) {
	withHole := orb.Polygon{
		{{0, 0}, {4, 0}, {4, 4}, {0, 4}, {0, 0}},
		{{1, 1}, {1, 2}, {2, 2}, {2, 1}, {1, 1}},
	}
	_, doc := emit(t, buildingChange(withHole))

	require.Len(t, doc.Ways, 2)
	require.Len(t, doc.Relations, 1)

	rel := doc.Relations[0]
	require.Len(t, rel.Members, 2)
	assert.Equal(t, Member{Type: "way", Role: "outer", Ref: doc.Ways[0].ID}, rel.Members[0])
	assert.Equal(t, Member{Type: "way", Role: "inner", Ref: doc.Ways[1].ID}, rel.Members[1])

	require.NotEmpty(t, rel.Tags)
	assert.Equal(t, Tag{K: "type", V: "multipolygon"}, rel.Tags[0])
	assert.Contains(t, rel.Tags, Tag{K: "building", V: "yes"}, "tags go on the relation, not the ways")
	for _, w := range doc.Ways {
		assert.Empty(t, w.Tags)
	}
}

func TestEmitterMultiPartPolygon(t *testing.T) {
	parts := orb.MultiPolygon{
		{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}},
		{{{5, 5}, {6, 5}, {6, 6}, {5, 6}, {5, 5}}},
	}
	_, doc := emit(t, buildingChange(parts))

	require.Len(t, doc.Relations, 1)
	require.Len(t, doc.Relations[0].Members, 2)
	for _, m := range doc.Relations[0].Members {
		assert.Equal(t, "outer", m.Role)
	}
}

func TestEmitterUpdateElement(t *testing.T) {
	ref := overpass.ElementRef{
		Type:    osm.TypeWay,
		ID:      98765,
		Version: 7,
		Tags:    osm.Tags{{Key: "building", Value: "yes"}},
	}
	addr := &survey.Address{
		Location: orb.Point{9.1, 48.7},
		Tags: osm.Tags{
			{Key: "addr:housenumber", Value: "12"},
			{Key: "addr:street", Value: "Main Street"},
		},
	}
	_, doc := emit(t, changes.NewAddressUpdate(ref, addr))

	assert.Empty(t, doc.Nodes)
	require.Len(t, doc.Updates, 1)

	up := doc.Updates[0]
	assert.Equal(t, "way", up.XMLName.Local)
	assert.Equal(t, int64(98765), up.ID)
	assert.Equal(t, 7, up.Version)
	assert.Equal(t, []Tag{
		{K: "addr:housenumber", V: "12"},
		{K: "addr:street", V: "Main Street"},
	}, up.Tags, "only the address tags are re-emitted")
}

func TestDocumentSerialization(t *testing.T) {
	e := NewEmitter()
	e.Add(changes.NewAddressOnly(&survey.Address{
		Location: orb.Point{9.1, 48.7},
		Tags:     osm.Tags{{Key: "addr:housenumber", Value: "12"}},
	}))
	doc := e.Document(Metadata{
		Generator:  "survey2osm test",
		Tags:       osm.Tags{{Key: "import", Value: "survey"}},
		SourceFile: "17212_11294",
	})

	var buf bytes.Buffer
	require.NoError(t, doc.Write(&buf))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "<?xml"))
	assert.Contains(t, out, `<osm version="0.6" generator="survey2osm test">`)
	assert.Contains(t, out, `<changeset_tag k="import" v="survey">`)
	assert.Contains(t, out, `<changeset_tag k="source_file" v="17212_11294">`)
	assert.Contains(t, out, `lat="48.7"`)
	assert.Contains(t, out, `lon="9.1"`)
	assert.Contains(t, out, `<tag k="addr:housenumber" v="12">`)
}

func TestEmitterWarnings(t *testing.T) {
	e := NewEmitter()
	e.Add(changes.NewAddressOnly(&survey.Address{Location: orb.Point{1, 1}}))
	assert.Len(t, e.Warnings(), 2, "missing house number and missing street")
}
