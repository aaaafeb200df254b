// Package export writes a built road graph to CSV, WKT and GeoJSON, adapting
// the reference importer's network.go/converter_wkt.go/converter_geojson.go
// techniques to the road-graph domain.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/odrgraph/opendrive"
	"github.com/pkg/errors"
)

// ToCSV writes three sibling files next to baseName: "<base>_nodes.csv",
// "<base>_edges.csv" and "<base>_connections.csv", matching the reference
// importer's ExportToCSV naming convention (network.go).
func ToCSV(graph *opendrive.RoadGraph, baseName string) error {
	trimmed := strings.TrimSuffix(baseName, ".csv")

	if err := exportNodesCSV(graph, trimmed+"_nodes.csv"); err != nil {
		return errors.Wrap(err, "can't export nodes")
	}
	if err := exportEdgesCSV(graph, trimmed+"_edges.csv"); err != nil {
		return errors.Wrap(err, "can't export edges")
	}
	if err := exportConnectionsCSV(graph, trimmed+"_connections.csv"); err != nil {
		return errors.Wrap(err, "can't export connections")
	}
	return nil
}

func exportNodesCSV(graph *opendrive.RoadGraph, fname string) error {
	file, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "can't create file")
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()
	writer.Comma = ';'

	if err := writer.Write([]string{"id", "x", "y"}); err != nil {
		return errors.Wrap(err, "can't write header")
	}

	ids := make([]string, 0, len(graph.Nodes()))
	for id := range graph.Nodes() {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		n := graph.Nodes()[id]
		if err := writer.Write([]string{n.ID, fmt.Sprintf("%f", n.X), fmt.Sprintf("%f", n.Y)}); err != nil {
			return errors.Wrap(err, "can't write node")
		}
	}
	return nil
}

func exportEdgesCSV(graph *opendrive.RoadGraph, fname string) error {
	file, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "can't create file")
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()
	writer.Comma = ';'

	header := []string{"id", "source_node", "target_node", "road_id", "section", "lanes", "permissions", "geom"}
	if err := writer.Write(header); err != nil {
		return errors.Wrap(err, "can't write header")
	}

	ids := make([]string, 0, len(graph.Edges()))
	for id := range graph.Edges() {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		e := graph.Edges()[id]
		perms := make([]string, len(e.Lanes))
		for i, l := range e.Lanes {
			perms[i] = l.Permissions.String()
		}
		if err := writer.Write([]string{
			e.ID,
			e.FromNode,
			e.ToNode,
			e.RoadID,
			fmt.Sprintf("%d", e.Section),
			fmt.Sprintf("%d", len(e.Lanes)),
			strings.Join(perms, ","),
			lineStringWKT(e.Geometry),
		}); err != nil {
			return errors.Wrap(err, "can't write edge")
		}
	}
	return nil
}

func exportConnectionsCSV(graph *opendrive.RoadGraph, fname string) error {
	file, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "can't create file")
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()
	writer.Comma = ';'

	header := []string{"from_edge", "from_lane", "to_edge", "to_lane", "all", "orig_road_id", "orig_lane"}
	if err := writer.Write(header); err != nil {
		return errors.Wrap(err, "can't write header")
	}

	for _, c := range graph.Connections() {
		if err := writer.Write([]string{
			c.FromEdge,
			fmt.Sprintf("%d", c.FromLane),
			c.ToEdge,
			fmt.Sprintf("%d", c.ToLane),
			fmt.Sprintf("%t", c.All),
			c.OrigID,
			fmt.Sprintf("%d", c.OrigLane),
		}); err != nil {
			return errors.Wrap(err, "can't write connection")
		}
	}
	return nil
}
