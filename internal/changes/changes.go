// Package changes models the reconciliation outcome as a closed set of
// change variants. Each change knows where it sits on the map, which
// data-quality warnings it carries, and how to emit itself into a
// changeset document. Changes are immutable once constructed.
package changes

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"

	"github.com/osmtools/survey2osm/internal/overpass"
	"github.com/osmtools/survey2osm/internal/survey"
)

// Emitter receives the elements a change produces. Implemented by the
// changeset package; defined here so changes stay independent of the wire
// format.
type Emitter interface {
	// Node emits a standalone tagged node.
	Node(location orb.Point, tags osm.Tags)
	// Area emits a polygon or multipolygon as a closed way or a
	// multipolygon relation carrying the given tags.
	Area(shape orb.Geometry, tags osm.Tags)
	// Element re-emits an existing OSM element by its identifier and
	// version, carrying only the given tags.
	Element(ref overpass.ElementRef, tags osm.Tags)
}

// Change is one unit of the generated import.
type Change interface {
	// Location is the representative point used to assign the change to
	// a tile.
	Location() orb.Point
	// Warnings lists the change's data-quality problems, fixed at
	// construction.
	Warnings() []string
	// EmitTo writes the change's elements into an emitter.
	EmitTo(Emitter)
}

// BuildingOnly adds a new building footprint without an address.
type BuildingOnly struct {
	building *survey.Building
}

// NewBuildingOnly builds a change for a building that matched no single
// address.
func NewBuildingOnly(b *survey.Building) *BuildingOnly {
	return &BuildingOnly{building: b}
}

func (c *BuildingOnly) Location() orb.Point { return c.building.Location() }
func (c *BuildingOnly) Warnings() []string  { return nil }

func (c *BuildingOnly) EmitTo(e Emitter) {
	e.Area(c.building.Shape, c.building.Tags)
}

// AddressOnly adds a new address node.
type AddressOnly struct {
	address  *survey.Address
	warnings []string
}

// NewAddressOnly builds a change for an address emitted on its own.
func NewAddressOnly(a *survey.Address) *AddressOnly {
	return &AddressOnly{address: a, warnings: a.Warnings()}
}

func (c *AddressOnly) Location() orb.Point { return c.address.Location }
func (c *AddressOnly) Warnings() []string  { return c.warnings }

func (c *AddressOnly) EmitTo(e Emitter) {
	e.Node(c.address.Location, c.address.Tags)
}

// BuildingWithAddress adds a new building carrying its single matched
// address: both tag sets land on one emitted element.
type BuildingWithAddress struct {
	building *survey.Building
	address  *survey.Address
	warnings []string
}

// NewBuildingWithAddress builds the combined change for a building with
// exactly one matched address.
func NewBuildingWithAddress(b *survey.Building, a *survey.Address) *BuildingWithAddress {
	return &BuildingWithAddress{building: b, address: a, warnings: a.Warnings()}
}

func (c *BuildingWithAddress) Location() orb.Point { return c.address.Location }
func (c *BuildingWithAddress) Warnings() []string  { return c.warnings }

func (c *BuildingWithAddress) EmitTo(e Emitter) {
	tags := make(osm.Tags, 0, len(c.building.Tags)+len(c.address.Tags))
	tags = append(tags, c.building.Tags...)
	tags = append(tags, c.address.Tags...)
	e.Area(c.building.Shape, tags)
}

// AddressUpdate attaches an address to a building already in OSM by
// re-emitting the existing element with the address tags.
type AddressUpdate struct {
	element  overpass.ElementRef
	address  *survey.Address
	warnings []string
}

// NewAddressUpdate builds an update change for an existing building with
// exactly one matched address. When the element already carries an address
// that differs from the new one, a mismatch warning is attached. The check
// looks for "addr:street" or the misspelled "addr:housenumer" key; the
// misspelling matches data that earlier imports wrote that way.
func NewAddressUpdate(ref overpass.ElementRef, a *survey.Address) *AddressUpdate {
	c := &AddressUpdate{element: ref, address: a, warnings: a.Warnings()}

	if ref.Tags.FindTag("addr:street") != nil || ref.Tags.FindTag("addr:housenumer") != nil {
		street := ref.Tags.Find("addr:street")
		housenumber := ref.Tags.Find("addr:housenumber")
		key := a.Key()
		if street != key.Street || housenumber != key.HouseNumber {
			c.warnings = append(c.warnings, fmt.Sprintf(
				"new building address (%s) does not match the old one ((%q, %q))",
				a, housenumber, street))
		}
	}
	return c
}

func (c *AddressUpdate) Location() orb.Point { return c.address.Location }
func (c *AddressUpdate) Warnings() []string  { return c.warnings }

func (c *AddressUpdate) EmitTo(e Emitter) {
	e.Element(c.element, c.address.Tags)
}
