package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/odrgraph/opendrive"
	"github.com/paulmach/orb"
)

func buildSampleGraph(t *testing.T) *opendrive.RoadGraph {
	t.Helper()
	g := opendrive.NewRoadGraph()
	if err := g.InsertNode(&opendrive.Node{ID: "n1", X: 0, Y: 0}); err != nil {
		t.Fatalf("unexpected error inserting node: %v", err)
	}
	if err := g.InsertNode(&opendrive.Node{ID: "n2", X: 100, Y: 0}); err != nil {
		t.Fatalf("unexpected error inserting node: %v", err)
	}
	edge := &opendrive.Edge{
		ID:       "-1",
		FromNode: "n1",
		ToNode:   "n2",
		RoadID:   "1",
		Section:  0,
		Geometry: orb.LineString{{0, 0}, {100, 0}},
		Lanes: []opendrive.EdgeLane{
			{Index: 1, Speed: 13.89, Width: 3.5, Permissions: opendrive.PermissionPassenger, Type: "driving"},
		},
	}
	if err := g.InsertEdge(edge); err != nil {
		t.Fatalf("unexpected error inserting edge: %v", err)
	}
	g.InsertConnection(opendrive.Connection{FromEdge: "-1", FromLane: -1, ToEdge: "-2", ToLane: -1})
	return g
}

func TestToCSVWritesThreeFiles(t *testing.T) {
	dir := t.TempDir()
	g := buildSampleGraph(t)
	base := filepath.Join(dir, "out.csv")

	if err := ToCSV(g, base); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, suffix := range []string{"_nodes.csv", "_edges.csv", "_connections.csv"} {
		fname := filepath.Join(dir, "out"+suffix)
		b, err := os.ReadFile(fname)
		if err != nil {
			t.Fatalf("expected %s to exist: %v", fname, err)
		}
		if len(b) == 0 {
			t.Errorf("expected %s to be non-empty", fname)
		}
	}

	edgesContent, err := os.ReadFile(filepath.Join(dir, "out_edges.csv"))
	if err != nil {
		t.Fatalf("unexpected error reading edges file: %v", err)
	}
	if !strings.Contains(string(edgesContent), "-1") {
		t.Errorf("expected edges CSV to reference edge '-1', got:\n%s", edgesContent)
	}
	if !strings.Contains(string(edgesContent), "LINESTRING") {
		t.Errorf("expected edges CSV to carry WKT geometry, got:\n%s", edgesContent)
	}
}

func TestToGeoJSONWritesValidFile(t *testing.T) {
	dir := t.TempDir()
	g := buildSampleGraph(t)
	fname := filepath.Join(dir, "out.geojson")

	if err := ToGeoJSON(g, fname); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	b, err := os.ReadFile(fname)
	if err != nil {
		t.Fatalf("expected output file to exist: %v", err)
	}
	content := string(b)
	if !strings.Contains(content, "FeatureCollection") {
		t.Errorf("expected a FeatureCollection, got:\n%s", content)
	}
	if !strings.Contains(content, `"road_id":"1"`) {
		t.Errorf("expected edge's road_id property to be present, got:\n%s", content)
	}
}

func TestLineStringWKT(t *testing.T) {
	line := orb.LineString{{0, 0}, {1, 1}}
	got := lineStringWKT(line)
	if !strings.HasPrefix(got, "LINESTRING") {
		t.Errorf("expected a LINESTRING WKT string, got %q", got)
	}
}
