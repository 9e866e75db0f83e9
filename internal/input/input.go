// Package input reads survey source files into raw records: a geometry
// plus a stringified attribute table. Supported formats are GeoJSON
// feature collections and ESRI shapefiles.
package input

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/osmtools/survey2osm/internal/survey"
)

// ReadFile reads every feature of a source file, dispatching on the file
// extension.
func ReadFile(path string) ([]survey.Record, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".geojson", ".json":
		return readGeoJSON(path)
	case ".shp":
		return readShapefile(path)
	default:
		return nil, fmt.Errorf("unsupported input format: %s", path)
	}
}
