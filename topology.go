package opendrive

import (
	"fmt"

	"github.com/paulmach/orb"
)

// RoadTable is the arena of parsed roads keyed by identifier (spec §5/§9: roads
// are arena entries keyed by a stable string id; cross-references are stored as
// identifiers, resolved to borrowed handles during Topology Builder).
type RoadTable map[string]*Road

// BuildTopology runs the four phases of the Topology Builder over every road in
// table, creating nodes in graph as needed and resolving each outer road's
// FromNode/ToNode (spec §4.3).
func BuildTopology(table RoadTable, graph *RoadGraph, warn Warner) error {
	junctionBoxes := map[string]orb.Bound{}
	for _, r := range table {
		if !r.IsInner() || len(r.Polyline) == 0 {
			continue
		}
		b := r.Polyline.Bound()
		if existing, ok := junctionBoxes[r.JunctionID]; ok {
			junctionBoxes[r.JunctionID] = existing.Union(b)
		} else {
			junctionBoxes[r.JunctionID] = b
		}
	}
	junctionNodeID := map[string]string{}
	for jid, box := range junctionBoxes {
		center := box.Center()
		nodeID := "junction." + jid
		if err := graph.InsertNode(&Node{ID: nodeID, X: center[0], Y: center[1]}); err != nil {
			return err
		}
		junctionNodeID[jid] = nodeID
	}

	// Phase 2: explicit endpoint links.
	for _, r := range table {
		if r.IsInner() {
			continue
		}
		for _, l := range r.Links {
			targetInner := false
			if l.TargetType == LinkTargetRoad {
				if target, ok := table[l.TargetID]; ok && target.IsInner() {
					targetInner = true
				}
			}
			switch {
			case l.TargetType == LinkTargetJunction || targetInner:
				jid := l.TargetID
				if targetInner {
					jid = table[l.TargetID].JunctionID
				}
				nodeID, ok := junctionNodeID[jid]
				if !ok {
					continue
				}
				if err := attachEndpoint(r, l.Direction, nodeID, graph); err != nil {
					return err
				}
			case l.TargetType == LinkTargetRoad:
				if _, ok := table[l.TargetID]; !ok {
					continue
				}
				nodeID := synthesizeOuterOuterNodeID(r.ID, l.TargetID)
				pos := endpointPosition(r, l.Direction)
				if err := graph.InsertNode(&Node{ID: nodeID, X: pos[0], Y: pos[1]}); err != nil {
					return err
				}
				if err := attachEndpoint(r, l.Direction, nodeID, graph); err != nil {
					return err
				}
			}
		}
	}

	// Phase 3: inner-to-outer propagation.
	for _, r := range table {
		if r.IsInner() {
			continue
		}
		if r.FromNode != "" && r.ToNode != "" {
			continue
		}
		for _, inner := range table {
			if !inner.IsInner() {
				continue
			}
			for _, l := range inner.Links {
				if l.TargetType != LinkTargetRoad || l.TargetID != r.ID {
					continue
				}
				nodeID, ok := junctionNodeID[inner.JunctionID]
				if !ok {
					continue
				}
				// inner contact Start -> outer predecessor side; End -> outer successor side.
				dir := LinkPredecessor
				if l.ContactPoint == ContactEnd {
					dir = LinkSuccessor
				}
				if err := attachEndpoint(r, dir, nodeID, graph); err != nil {
					return err
				}
			}
		}
	}

	// Phase 4: unterminated endpoints.
	for _, r := range table {
		if r.IsInner() || len(r.Polyline) < 1 {
			continue
		}
		if r.FromNode == "" {
			nodeID := r.ID + ".begin"
			pos := r.Polyline[0]
			if err := graph.InsertNode(&Node{ID: nodeID, X: pos[0], Y: pos[1]}); err != nil {
				return err
			}
			r.FromNode = nodeID
		}
		if r.ToNode == "" {
			nodeID := r.ID + ".end"
			pos := r.Polyline[len(r.Polyline)-1]
			if err := graph.InsertNode(&Node{ID: nodeID, X: pos[0], Y: pos[1]}); err != nil {
				return err
			}
			r.ToNode = nodeID
		}
	}

	return nil
}

func attachEndpoint(r *Road, dir LinkDirection, nodeID string, graph *RoadGraph) error {
	if dir == LinkPredecessor {
		if r.FromNode != "" && r.FromNode != nodeID {
			return newProcessError("attachEndpoint", fmt.Errorf("road %s: from-node already bound to %s, cannot rebind to %s", r.ID, r.FromNode, nodeID))
		}
		r.FromNode = nodeID
		return nil
	}
	if r.ToNode != "" && r.ToNode != nodeID {
		return newProcessError("attachEndpoint", fmt.Errorf("road %s: to-node already bound to %s, cannot rebind to %s", r.ID, r.ToNode, nodeID))
	}
	r.ToNode = nodeID
	return nil
}

func endpointPosition(r *Road, dir LinkDirection) orb.Point {
	if len(r.Polyline) == 0 {
		return orb.Point{}
	}
	if dir == LinkPredecessor {
		return r.Polyline[0]
	}
	return r.Polyline[len(r.Polyline)-1]
}

// synthesizeOuterOuterNodeID builds the "<id1>.<id2>" synthetic node id for two
// outer roads linked directly, with ids in lexicographic order (spec §4.3).
func synthesizeOuterOuterNodeID(a, b string) string {
	if a < b {
		return a + "." + b
	}
	return b + "." + a
}
