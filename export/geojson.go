package export

import (
	"os"
	"sort"

	"github.com/odrgraph/opendrive"
	geojson "github.com/paulmach/go.geojson"
	"github.com/pkg/errors"
)

// ToGeoJSON writes a single FeatureCollection containing one LineString
// feature per edge, carrying the edge's lane attributes as feature
// properties. Generalizes the reference importer's per-geometry
// PrepareGeoJSONLinestring (converter_geojson.go) into a whole-graph export.
func ToGeoJSON(graph *opendrive.RoadGraph, fname string) error {
	fc := geojson.NewFeatureCollection()

	ids := make([]string, 0, len(graph.Edges()))
	for id := range graph.Edges() {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		e := graph.Edges()[id]
		coords := make([][]float64, len(e.Geometry))
		for i, p := range e.Geometry {
			coords[i] = []float64{p[0], p[1]}
		}
		feat := geojson.NewLineStringFeature(coords)
		feat.SetProperty("id", e.ID)
		feat.SetProperty("road_id", e.RoadID)
		feat.SetProperty("section", e.Section)
		feat.SetProperty("source_node", e.FromNode)
		feat.SetProperty("target_node", e.ToNode)
		feat.SetProperty("lanes", len(e.Lanes))
		fc.AddFeature(feat)
	}

	b, err := fc.MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "can't marshal feature collection")
	}
	if err := os.WriteFile(fname, b, 0644); err != nil {
		return errors.Wrap(err, "can't write file")
	}
	return nil
}
