package export

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
)

// lineStringWKT renders an edge's geometry as WKT, matching the reference
// importer's PrepareWKTLinestring (converter_wkt.go), replumbed onto orb's
// own WKT encoder since edges already carry orb.LineString geometry.
func lineStringWKT(line orb.LineString) string {
	return wkt.MarshalString(line)
}
