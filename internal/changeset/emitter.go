package changeset

import (
	"encoding/xml"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"

	"github.com/osmtools/survey2osm/internal/changes"
	"github.com/osmtools/survey2osm/internal/geo"
	"github.com/osmtools/survey2osm/internal/overpass"
)

// Metadata is the document-level information attached to every emitted
// tile.
type Metadata struct {
	Generator string
	// Tags become changeset_tag elements, in order. A source_file tag
	// with the tile name is appended after them.
	Tags osm.Tags
	// SourceFile is the tile name recorded for traceability.
	SourceFile string
}

// nodeKey is a coordinate quantized to 1e-7 degrees, about 1.1 cm.
// Adjacent buildings and polygon rings share vertices constantly, so nodes
// are deduplicated at this resolution.
type nodeKey struct {
	lon, lat int64
}

func quantize(p orb.Point) nodeKey {
	return nodeKey{int64(p.Lon() * 1e7), int64(p.Lat() * 1e7)}
}

// Emitter accumulates the changes of one tile and renders them into a
// Document. Synthetic identifiers are negative, drawn from a single
// monotonically decreasing counter shared by all element kinds, and never
// reused. An Emitter is not safe for concurrent use; every tile gets its
// own.
type Emitter struct {
	changes []changes.Change

	nextID    int64
	nodes     []*Node
	ways      []*Way
	relations []*Relation
	updates   []*Update
	nodeIDs   map[nodeKey]int64
}

// NewEmitter creates an empty emitter.
func NewEmitter() *Emitter {
	return &Emitter{}
}

// Add appends a change to the tile.
func (e *Emitter) Add(c changes.Change) {
	e.changes = append(e.changes, c)
}

// Len returns the number of accumulated changes.
func (e *Emitter) Len() int {
	return len(e.changes)
}

// Warnings collects the warnings of every accumulated change, in change
// order.
func (e *Emitter) Warnings() []string {
	var out []string
	for _, c := range e.changes {
		out = append(out, c.Warnings()...)
	}
	return out
}

// Document renders the accumulated changes into a complete changeset
// document. Each call starts from a fresh identifier counter and node
// table.
func (e *Emitter) Document(meta Metadata) *Document {
	e.nextID = 0
	e.nodes = nil
	e.ways = nil
	e.relations = nil
	e.updates = nil
	e.nodeIDs = make(map[nodeKey]int64)

	for _, c := range e.changes {
		c.EmitTo(e)
	}

	doc := &Document{
		Version:   "0.6",
		Generator: meta.Generator,
		Nodes:     e.nodes,
		Ways:      e.ways,
		Relations: e.relations,
		Updates:   e.updates,
	}
	for _, t := range meta.Tags {
		doc.ChangesetTags = append(doc.ChangesetTags, ChangesetTag{K: t.Key, V: t.Value})
	}
	if meta.SourceFile != "" {
		doc.ChangesetTags = append(doc.ChangesetTags, ChangesetTag{K: "source_file", V: meta.SourceFile})
	}
	return doc
}

func (e *Emitter) newID() int64 {
	e.nextID--
	return e.nextID
}

// Node emits a tagged node, reusing an existing node's identifier when one
// already sits at the same quantized coordinate.
func (e *Emitter) Node(location orb.Point, tags osm.Tags) {
	e.addNode(location, tags)
}

func (e *Emitter) addNode(location orb.Point, tags osm.Tags) int64 {
	key := quantize(location)
	if id, ok := e.nodeIDs[key]; ok {
		return id
	}

	id := e.newID()
	e.nodes = append(e.nodes, &Node{
		Visible: "true",
		ID:      id,
		Lat:     strconv.FormatFloat(location.Lat(), 'f', -1, 64),
		Lon:     strconv.FormatFloat(location.Lon(), 'f', -1, 64),
		Tags:    xmlTags(tags),
	})
	e.nodeIDs[key] = id
	return id
}

func (e *Emitter) addWay(ring orb.Ring) *Way {
	way := &Way{Visible: "true", ID: e.newID()}
	for _, p := range ring {
		way.Nodes = append(way.Nodes, NodeRef{Ref: e.addNode(p, nil)})
	}
	e.ways = append(e.ways, way)
	return way
}

// Area emits a polygon or multipolygon. A single simple polygon becomes a
// tagged closed way; holes or multiple parts produce a multipolygon
// relation over the part ways, with the tags on the relation.
func (e *Emitter) Area(shape orb.Geometry, tags osm.Tags) {
	var outers, inners []*Way
	for _, polygon := range geo.Polygons(shape) {
		if len(polygon) == 0 {
			continue
		}
		outers = append(outers, e.addWay(polygon[0]))
		for _, interior := range polygon[1:] {
			inners = append(inners, e.addWay(interior))
		}
	}
	if len(outers) == 0 {
		return
	}

	if len(inners) == 0 && len(outers) == 1 {
		outers[0].Tags = append(outers[0].Tags, xmlTags(tags)...)
		return
	}

	rel := &Relation{Visible: "true", ID: e.newID()}
	for _, w := range outers {
		rel.Members = append(rel.Members, Member{Type: "way", Role: "outer", Ref: w.ID})
	}
	for _, w := range inners {
		rel.Members = append(rel.Members, Member{Type: "way", Role: "inner", Ref: w.ID})
	}
	rel.Tags = append([]Tag{{K: "type", V: "multipolygon"}}, xmlTags(tags)...)
	e.relations = append(e.relations, rel)
}

// Element re-emits an existing OSM element by id and version, carrying
// only the given tags.
func (e *Emitter) Element(ref overpass.ElementRef, tags osm.Tags) {
	e.updates = append(e.updates, &Update{
		XMLName: xml.Name{Local: string(ref.Type)},
		ID:      ref.ID,
		Version: ref.Version,
		Tags:    xmlTags(tags),
	})
}

func xmlTags(tags osm.Tags) []Tag {
	if len(tags) == 0 {
		return nil
	}
	out := make([]Tag, 0, len(tags))
	for _, t := range tags {
		out = append(out, Tag{K: t.Key, V: t.Value})
	}
	return out
}
