package opendrive

import "github.com/pkg/errors"

// RoadGraph is the external node/edge/connection container referenced by
// spec §3/§5 and §6 ("A node container and an edge container with insert,
// retrieve, wasIgnored operations"). Generalized from the reference importer's
// NetworkMacroscopic (network.go), which plays the analogous role for OSM
// links/nodes/movements.
type RoadGraph struct {
	nodes       map[string]*Node
	edges       map[string]*Edge
	connections []Connection
	ignored     map[string]struct{}
}

// NewRoadGraph returns an empty RoadGraph.
func NewRoadGraph() *RoadGraph {
	return &RoadGraph{
		nodes:   map[string]*Node{},
		edges:   map[string]*Edge{},
		ignored: map[string]struct{}{},
	}
}

// InsertNode inserts n. A second insertion with the same id and a different
// position is silently ignored, first position wins (spec §4.3).
func (g *RoadGraph) InsertNode(n *Node) error {
	if existing, ok := g.nodes[n.ID]; ok {
		_ = existing
		return nil
	}
	g.nodes[n.ID] = n
	return nil
}

// InsertEdge inserts e. Re-inserting an id already present is a hard error
// (spec §5: "failure to insert a unique node/edge is a hard error").
func (g *RoadGraph) InsertEdge(e *Edge) error {
	if _, ok := g.edges[e.ID]; ok {
		return errors.Wrapf(newProcessError("InsertEdge", nil), "duplicate edge id %s", e.ID)
	}
	g.edges[e.ID] = e
	return nil
}

// InsertConnection appends c, applying the set-semantics deduplication of
// spec §3 (identical (fromEdge,toEdge,fromLane,toLane) tuples collapse).
func (g *RoadGraph) InsertConnection(c Connection) {
	for _, existing := range g.connections {
		if existing.key() == c.key() {
			return
		}
	}
	g.connections = append(g.connections, c)
}

// MarkIgnored records that edgeID was intentionally not emitted (e.g. a
// discarded-type-only lane section), so WasIgnored can distinguish "missing
// because ignored" from "missing because of a bug".
func (g *RoadGraph) MarkIgnored(edgeID string) {
	g.ignored[edgeID] = struct{}{}
}

// WasIgnored reports whether edgeID was intentionally skipped.
func (g *RoadGraph) WasIgnored(edgeID string) bool {
	_, ok := g.ignored[edgeID]
	return ok
}

// RetrieveNode returns the node with the given id, if present.
func (g *RoadGraph) RetrieveNode(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// RetrieveEdge returns the edge with the given id, if present.
func (g *RoadGraph) RetrieveEdge(id string) (*Edge, bool) {
	e, ok := g.edges[id]
	return e, ok
}

// Nodes returns all nodes in the graph.
func (g *RoadGraph) Nodes() map[string]*Node { return g.nodes }

// Edges returns all edges in the graph.
func (g *RoadGraph) Edges() map[string]*Edge { return g.edges }

// Connections returns every emitted connection.
func (g *RoadGraph) Connections() []Connection { return g.connections }
