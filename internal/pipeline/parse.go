package pipeline

import (
	"errors"

	"github.com/destel/rill"
	"go.uber.org/zap"

	"github.com/osmtools/survey2osm/internal/input"
	"github.com/osmtools/survey2osm/internal/survey"
)

// parseAddresses reads a source file and converts its records into
// addresses across the configured workers. Record order is preserved so
// repeated runs produce identical output. Returns the addresses and the
// number of records skipped for invalid geometry; without --skip-invalid
// the first invalid record aborts the parse.
func (c *Coordinator) parseAddresses(path string) ([]*survey.Address, int, error) {
	records, err := input.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}

	parsed := rill.OrderedMap(rill.FromSlice(records, nil), c.cfg.Workers,
		func(rec survey.Record) (*survey.Address, error) {
			a, err := survey.NewAddress(rec, c.specs.Address)
			return handleRecordError(c, a, err)
		})

	out, err := rill.ToSlice(parsed)
	if err != nil {
		return nil, 0, err
	}
	addresses, skipped := compact(out)
	return addresses, skipped, nil
}

// parseBuildings is the building-side counterpart of parseAddresses;
// squarification and simplification happen inside the constructor, so the
// heavy per-record geometry work is spread across the workers too.
func (c *Coordinator) parseBuildings(path string) ([]*survey.Building, int, error) {
	records, err := input.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}

	parsed := rill.OrderedMap(rill.FromSlice(records, nil), c.cfg.Workers,
		func(rec survey.Record) (*survey.Building, error) {
			b, err := survey.NewBuilding(rec, c.specs.Building)
			return handleRecordError(c, b, err)
		})

	out, err := rill.ToSlice(parsed)
	if err != nil {
		return nil, 0, err
	}
	buildings, skipped := compact(out)
	return buildings, skipped, nil
}

// handleRecordError maps a construction failure to nil when invalid
// records are being skipped.
func handleRecordError[E any](c *Coordinator, entity *E, err error) (*E, error) {
	if err == nil {
		return entity, nil
	}
	var invalid *survey.InvalidGeometryError
	if c.cfg.SkipInvalid && errors.As(err, &invalid) {
		c.log.Warn("Skipping record", zap.Error(err))
		return nil, nil
	}
	return nil, err
}

// compact strips the nil entries left by skipped records.
func compact[E any](entities []*E) ([]*E, int) {
	out := entities[:0]
	skipped := 0
	for _, e := range entities {
		if e == nil {
			skipped++
			continue
		}
		out = append(out, e)
	}
	return out, skipped
}
