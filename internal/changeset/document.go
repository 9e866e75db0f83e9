// Package changeset accumulates changes for one tile and serializes them
// as an OSM changeset XML document with synthetic negative identifiers and
// coordinate-deduplicated nodes.
package changeset

import (
	"encoding/xml"
	"fmt"
	"io"
)

// Tag is a k/v tag on a node, way or relation.
type Tag struct {
	K string `xml:"k,attr"`
	V string `xml:"v,attr"`
}

// ChangesetTag is a changeset-level metadata tag on the document root.
type ChangesetTag struct {
	XMLName xml.Name `xml:"changeset_tag"`
	K       string   `xml:"k,attr"`
	V       string   `xml:"v,attr"`
}

// Node is an emitted node. Coordinates are kept as their full-precision
// decimal rendering.
type Node struct {
	Visible string `xml:"visible,attr"`
	ID      int64  `xml:"id,attr"`
	Lat     string `xml:"lat,attr"`
	Lon     string `xml:"lon,attr"`
	Tags    []Tag  `xml:"tag"`
}

// NodeRef is a way's reference to a node.
type NodeRef struct {
	Ref int64 `xml:"ref,attr"`
}

// Way is an emitted way: an ordered list of node references.
type Way struct {
	Visible string    `xml:"visible,attr"`
	ID      int64     `xml:"id,attr"`
	Nodes   []NodeRef `xml:"nd"`
	Tags    []Tag     `xml:"tag"`
}

// Member is a relation member.
type Member struct {
	Type string `xml:"type,attr"`
	Role string `xml:"role,attr"`
	Ref  int64  `xml:"ref,attr"`
}

// Relation is an emitted relation; here always a multipolygon over ways.
type Relation struct {
	Visible string   `xml:"visible,attr"`
	ID      int64    `xml:"id,attr"`
	Members []Member `xml:"member"`
	Tags    []Tag    `xml:"tag"`
}

// Update re-emits an existing OSM element by id and version, carrying only
// the tags the import attaches. The element name follows the original
// element's type.
type Update struct {
	XMLName xml.Name
	ID      int64 `xml:"id,attr"`
	Version int   `xml:"version,attr"`
	Tags    []Tag `xml:"tag"`
}

// Document is one tile's complete changeset, ready to serialize. Element
// order is deterministic: metadata tags, then nodes in creation order,
// then ways, relations and updates.
type Document struct {
	XMLName       xml.Name `xml:"osm"`
	Version       string   `xml:"version,attr"`
	Generator     string   `xml:"generator,attr"`
	ChangesetTags []ChangesetTag
	Nodes         []*Node     `xml:"node"`
	Ways          []*Way      `xml:"way"`
	Relations     []*Relation `xml:"relation"`
	Updates       []*Update
}

// Write serializes the document as indented XML with a declaration.
func (d *Document) Write(w io.Writer) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("writing xml header: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encoding changeset: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("flushing changeset: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}
