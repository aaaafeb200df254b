// Command odr2graph imports an OpenDRIVE file and writes the resulting road
// graph to disk, optionally preparing contraction hierarchies over it.
package main

import (
	"flag"
	"fmt"
	"math"
	"strings"

	"github.com/LdDl/ch"
	"github.com/odrgraph/opendrive"
	"github.com/odrgraph/opendrive/export"
	"github.com/pkg/errors"
)

var (
	inFile          = flag.String("file", "map.xodr", "Filename of *.xodr (OpenDRIVE) file")
	out             = flag.String("out", "my_graph.csv", "Base output filename")
	geomFormat      = flag.String("geomf", "wkt", "Format of output geometry. Expected values: wkt / geojson")
	importAllLanes  = flag.Bool("import-all-lanes", false, "Import lanes whose type is normally discarded (border, parking, ...)")
	ignoreWidths    = flag.Bool("ignore-widths", false, "Ignore per-lane width records, always use catalogue defaults")
	minWidth        = flag.Float64("min-width", 1.8, "Minimum width (meters) a passenger lane may narrow to before a split is introduced")
	internalShapes  = flag.Bool("internal-shapes", false, "Compute interpolated internal shapes for flattened junction connections")
	curveResolution = flag.Float64("curve-resolution", 2.0, "Sampling step (meters) used to discretize curved geometry")
	doContraction   = flag.Bool("contract", false, "Prepare contraction hierarchies over the emitted edges?")
)

func main() {
	flag.Parse()

	warner := opendrive.NewStderrWarner()

	table, rawConnections, err := opendrive.LoadFile(*inFile, warner)
	if err != nil {
		fmt.Println(errors.Wrap(err, "loading OpenDRIVE file"))
		return
	}

	parser := opendrive.NewParser(*inFile,
		opendrive.WithImportAllLanes(*importAllLanes),
		opendrive.WithIgnoreWidths(*ignoreWidths),
		opendrive.WithMinWidth(*minWidth),
		opendrive.WithInternalShapes(*internalShapes),
		opendrive.WithCurveResolution(*curveResolution),
		opendrive.WithWarner(warner),
	)

	graph, err := parser.Import(table, rawConnections)
	if err != nil {
		fmt.Println(errors.Wrap(err, "importing road graph"))
		return
	}

	switch strings.ToLower(*geomFormat) {
	case "geojson":
		if err := export.ToGeoJSON(graph, strings.TrimSuffix(*out, ".csv")+".geojson"); err != nil {
			fmt.Println(errors.Wrap(err, "exporting geojson"))
			return
		}
	default:
		if err := export.ToCSV(graph, *out); err != nil {
			fmt.Println(errors.Wrap(err, "exporting csv"))
			return
		}
	}

	if *doContraction {
		if err := contract(graph, strings.TrimSuffix(*out, ".csv")+"_shortcuts.csv"); err != nil {
			fmt.Println(errors.Wrap(err, "preparing contraction hierarchies"))
			return
		}
	}
}

// contract builds a ch.Graph over the emitted edges (weighted by planar
// length), runs contraction and writes the shortcut table, mirroring the
// reference importer's -contract flow in cmd/osm2ch/main.go.
func contract(graph *opendrive.RoadGraph, shortcutsFile string) error {
	label := map[string]int64{}
	var nextLabel int64
	labelOf := func(nodeID string) int64 {
		if l, ok := label[nodeID]; ok {
			return l
		}
		l := nextLabel
		label[nodeID] = l
		nextLabel++
		return l
	}

	chGraph := ch.Graph{}
	for _, e := range graph.Edges() {
		source := labelOf(e.FromNode)
		target := labelOf(e.ToNode)
		if err := chGraph.CreateVertex(source); err != nil {
			return errors.Wrap(err, "can not create source vertex")
		}
		if err := chGraph.CreateVertex(target); err != nil {
			return errors.Wrap(err, "can not create target vertex")
		}
		weight := edgeLength(e)
		if err := chGraph.AddEdge(source, target, weight); err != nil {
			return errors.Wrap(err, "can not add edge")
		}
	}

	fmt.Println("Starting contraction process....")
	chGraph.PrepareContractionHierarchies()

	return chGraph.ExportShortcutsToFile(shortcutsFile)
}

func edgeLength(e *opendrive.Edge) float64 {
	total := 0.0
	for i := 1; i < len(e.Geometry); i++ {
		dx := e.Geometry[i][0] - e.Geometry[i-1][0]
		dy := e.Geometry[i][1] - e.Geometry[i-1][1]
		total += math.Sqrt(dx*dx + dy*dy)
	}
	return total
}
