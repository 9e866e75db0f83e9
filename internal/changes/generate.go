package changes

import (
	"github.com/osmtools/survey2osm/internal/match"
	"github.com/osmtools/survey2osm/internal/overpass"
	"github.com/osmtools/survey2osm/internal/survey"
)

// Generate turns a matching result into the list of changes to emit.
// Change order: surviving new buildings first (each with its unattached
// addresses right after it), then lone addresses, then existing-building
// updates.
//
// A building with exactly one address becomes a single combined change;
// with zero or several, the building and every address go out separately.
// An existing building with exactly one address is updated in place; with
// several, only the addresses are emitted, since picking among conflicting
// candidates is not this tool's call to make.
func Generate(addresses []*survey.Address, buildings []*survey.Building, existing []*overpass.Building, res match.Result) []Change {
	var out []Change

	for i, bi := range res.Kept {
		matched := res.KeptAddresses[i]
		if len(matched) == 1 {
			out = append(out, NewBuildingWithAddress(buildings[bi], addresses[matched[0]]))
			continue
		}
		out = append(out, NewBuildingOnly(buildings[bi]))
		for _, ai := range matched {
			out = append(out, NewAddressOnly(addresses[ai]))
		}
	}

	for _, ai := range res.Lone {
		out = append(out, NewAddressOnly(addresses[ai]))
	}

	for i, b := range existing {
		matched := res.ExistingAddresses[i]
		if len(matched) == 1 {
			out = append(out, NewAddressUpdate(b.Element, addresses[matched[0]]))
			continue
		}
		for _, ai := range matched {
			out = append(out, NewAddressOnly(addresses[ai]))
		}
	}

	return out
}
