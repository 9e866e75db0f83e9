package input

import (
	"fmt"
	"os"
	"strconv"

	"github.com/paulmach/orb/geojson"

	"github.com/osmtools/survey2osm/internal/survey"
)

func readGeoJSON(path string) ([]survey.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	records := make([]survey.Record, 0, len(fc.Features))
	for _, f := range fc.Features {
		records = append(records, survey.Record{
			Geometry: f.Geometry,
			Props:    stringProps(f.Properties),
		})
	}
	return records, nil
}

// stringProps renders GeoJSON property values as strings the way a
// shapefile attribute table would: numbers without a trailing ".0", null
// as absent.
func stringProps(props geojson.Properties) map[string]string {
	out := make(map[string]string, len(props))
	for k, v := range props {
		switch v := v.(type) {
		case nil:
			continue
		case string:
			out[k] = v
		case float64:
			out[k] = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(v)
		default:
			out[k] = fmt.Sprint(v)
		}
	}
	return out
}
