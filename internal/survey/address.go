package survey

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
)

// Key identifies an address for dedup against data already in OSM. Missing
// tags contribute empty strings.
type Key struct {
	HouseNumber string
	Street      string
}

// Address is a single survey address point. It is immutable after
// construction except for the one-shot no-nearby-street flag.
type Address struct {
	Location orb.Point
	Tags     osm.Tags

	noStreetWarning string
}

// NewAddress builds an Address from a point record, applying the tag spec.
// Non-point geometries are rejected.
func NewAddress(rec Record, spec TagSpec) (*Address, error) {
	point, ok := rec.Geometry.(orb.Point)
	if !ok {
		return nil, &InvalidGeometryError{Want: "Point", Got: rec.Geometry}
	}
	return &Address{
		Location: point,
		Tags:     spec.tags(rec.Props),
	}, nil
}

// Key returns the (housenumber, street) pair used for dedup.
func (a *Address) Key() Key {
	return Key{
		HouseNumber: a.Tags.Find("addr:housenumber"),
		Street:      a.Tags.Find("addr:street"),
	}
}

// FlagNoNearbyStreet records that no existing street matches this
// address's street name. The first call wins; later calls are no-ops.
func (a *Address) FlagNoNearbyStreet() {
	if a.noStreetWarning == "" {
		a.noStreetWarning = fmt.Sprintf("address does not match a street: %s", a)
	}
}

// Warnings lists the data-quality problems with this address, in a fixed
// order.
func (a *Address) Warnings() []string {
	var warnings []string
	if a.Tags.Find("addr:housenumber") == "" {
		warnings = append(warnings, fmt.Sprintf("address has no house number: %s", a))
	}
	if a.Tags.Find("addr:street") == "" {
		warnings = append(warnings, fmt.Sprintf("address has no street: %s", a))
	}
	if a.noStreetWarning != "" {
		warnings = append(warnings, a.noStreetWarning)
	}
	return warnings
}

// String renders the address key plus an osm.org link for review.
func (a *Address) String() string {
	k := a.Key()
	return fmt.Sprintf("(%q, %q) https://osm.org/?mlat=%v&mlon=%v&zoom=16",
		k.HouseNumber, k.Street, a.Location.Lat(), a.Location.Lon())
}
