package opendrive

import "fmt"

// Parser threads the configuration options of spec §6 through the core,
// following the reference importer's functional-options style
// (NewParser(filename, options...), With*() setters).
type Parser struct {
	filename string

	importAllLanes  bool
	ignoreWidths    bool
	minWidth        float64
	internalShapes  bool
	curveResolution float64

	catalogue  LaneTypeCatalogue
	projection ProjectionFunc
	warner     Warner
}

func (parser *Parser) String() string {
	return fmt.Sprintf(`
OpenDRIVE parser parameters:
	filename: '%s'
	opendrive.import-all-lanes: %t
	opendrive.ignore-widths: %t
	opendrive.min-width: %f
	opendrive.internal-shapes: %t
	opendrive.curve-resolution: %f
	`,
		parser.filename,
		parser.importAllLanes,
		parser.ignoreWidths,
		parser.minWidth,
		parser.internalShapes,
		parser.curveResolution,
	)
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// NewParser returns a Parser with the spec's documented defaults (§6), ready
// to be overridden by options.
func NewParser(fileName string, options ...ParserOption) *Parser {
	parser := &Parser{
		filename:        fileName,
		minWidth:        1.8,
		curveResolution: 2.0,
		catalogue:       DefaultLaneTypeCatalogue(),
		projection:      IdentityProjection,
		warner:          NewStderrWarner(),
	}
	for _, option := range options {
		option(parser)
	}
	return parser
}

// WithImportAllLanes implements opendrive.import-all-lanes.
func WithImportAllLanes(v bool) ParserOption {
	return func(p *Parser) { p.importAllLanes = v }
}

// WithIgnoreWidths implements opendrive.ignore-widths.
func WithIgnoreWidths(v bool) ParserOption {
	return func(p *Parser) { p.ignoreWidths = v }
}

// WithMinWidth implements opendrive.min-width.
func WithMinWidth(v float64) ParserOption {
	return func(p *Parser) { p.minWidth = v }
}

// WithInternalShapes implements opendrive.internal-shapes.
func WithInternalShapes(v bool) ParserOption {
	return func(p *Parser) { p.internalShapes = v }
}

// WithCurveResolution implements opendrive.curve-resolution.
func WithCurveResolution(v float64) ParserOption {
	return func(p *Parser) { p.curveResolution = v }
}

// WithCatalogue overrides the default type catalogue.
func WithCatalogue(cat LaneTypeCatalogue) ParserOption {
	return func(p *Parser) { p.catalogue = cat }
}

// WithProjection overrides the default identity projection.
func WithProjection(proj ProjectionFunc) ParserOption {
	return func(p *Parser) { p.projection = proj }
}

// WithWarner overrides the default stderr warner.
func WithWarner(w Warner) ParserOption {
	return func(p *Parser) { p.warner = w }
}

// Import runs the full pipeline — Geometry Engine, Lane-Section Reshaper,
// Topology Builder, Edge Emitter, Connection Flattener — over table, returning
// the resulting RoadGraph (spec §2's data flow).
func (parser *Parser) Import(table RoadTable, rawConnections map[string][]innerConnection) (*RoadGraph, error) {
	done := progress("Building road geometry")
	for _, r := range table {
		BuildRoadGeometry(r, parser.curveResolution, parser.projection, parser.warner)
	}
	done(" (%d roads)", len(table))

	done = progress("Reshaping lane sections")
	for _, r := range table {
		if r.Polyline == nil {
			continue
		}
		ReshapeLaneSections(r, parser.catalogue, parser.minWidth, parser.importAllLanes, parser.warner)
	}
	done("")

	graph := NewRoadGraph()

	done = progress("Building topology")
	if err := BuildTopology(table, graph, parser.warner); err != nil {
		return nil, err
	}
	done("")

	cfg := EmitterConfig{
		Catalogue:      parser.catalogue,
		ImportAllLanes: parser.importAllLanes,
		IgnoreWidths:   parser.ignoreWidths,
		MinWidth:       parser.minWidth,
	}
	done = progress("Emitting edges")
	for _, r := range table {
		if r.IsInner() {
			continue
		}
		if err := EmitEdges(r, cfg, graph, parser.warner); err != nil {
			return nil, err
		}
	}
	done("")

	done = progress("Flattening junction connections")
	FlattenConnections(table, rawConnections, parser.internalShapes, parser.warner, graph)
	done(" (%d connections)", len(graph.Connections()))

	return graph, nil
}
