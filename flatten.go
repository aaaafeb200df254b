package opendrive

import (
	"fmt"

	"github.com/paulmach/orb"
)

// innerConnection is a raw OpenDRIVE <connection>/<laneLink> entry, before
// flattening (spec §4.5).
type innerConnection struct {
	FromEdge         string // id of the road this raw connection leaves from (the connection's incoming road)
	FromLane         int
	FromContactPoint ContactPoint
	ToEdge           string
	ToLane           int
	ToContactPoint   ContactPoint
	All              bool
}

// FlattenConnections walks every connection whose FromEdge is an outer road and
// produces direct outer->outer connections into graph, following chains of
// inner roads (spec §4.5). rawConnections maps a road id to its own outgoing
// raw connections (as parsed from <junction><connection>).
func FlattenConnections(table RoadTable, rawConnections map[string][]innerConnection, internalShapes bool, warn Warner, graph *RoadGraph) {
	for roadID, conns := range rawConnections {
		road, ok := table[roadID]
		if !ok {
			warn.Warn("connection from unknown road %s, skipping", roadID)
			continue
		}
		if road.IsInner() {
			continue // only start walks from outer roads
		}
		for _, c := range conns {
			target, ok := table[c.ToEdge]
			if !ok {
				warn.Warn("connection from %s references unknown edge %s, skipping", c.FromEdge, c.ToEdge)
				continue
			}
			if !target.IsInner() {
				resolved, ok := resolveConnection(road, target, Connection{
					FromContactPoint: c.FromContactPoint, ToContactPoint: c.ToContactPoint, All: c.All,
					FromLane: c.FromLane, ToLane: c.ToLane,
				}, warn)
				if ok {
					graph.InsertConnection(resolved)
				}
				continue
			}
			visited := map[string]struct{}{}
			results := flattenWalk(c, table, rawConnections, visited, internalShapes, warn)
			for _, res := range results {
				toRoad, ok := table[res.ToEdge]
				if !ok {
					warn.Warn("connection from %s references unknown edge %s, skipping", res.FromEdge, res.ToEdge)
					continue
				}
				resolved, ok := resolveConnection(road, toRoad, res, warn)
				if ok {
					graph.InsertConnection(resolved)
				}
			}
		}
	}
}

// flattenWalk implements the depth-first flattening walk (spec §4.5).
func flattenWalk(c innerConnection, table RoadTable, rawConnections map[string][]innerConnection, visited map[string]struct{}, internalShapes bool, warn Warner) []Connection {
	innerRoad, ok := table[c.ToEdge]
	if !ok {
		return nil
	}
	walkKey := c.FromEdge + ">" + c.ToEdge
	if _, seen := visited[walkKey]; seen {
		warn.Warn("circular connections in junction including roads %s and %s", c.FromEdge, c.ToEdge)
		return nil
	}
	visited[walkKey] = struct{}{}

	var out []Connection
	for _, next := range rawConnections[innerRoad.ID] {
		nextTarget, ok := table[next.ToEdge]
		if !ok {
			warn.Warn("connection from %s references unknown edge %s, skipping", next.FromEdge, next.ToEdge)
			continue
		}
		if nextTarget.IsInner() {
			nested := flattenWalk(next, table, rawConnections, visited, internalShapes, warn)
			for i := range nested {
				// prepend current outer-side metadata.
				nested[i].FromEdge = c.FromEdge
				nested[i].FromLane = c.FromLane
				nested[i].FromContactPoint = c.FromContactPoint
				nested[i].All = nested[i].All || c.All
			}
			out = append(out, nested...)
			continue
		}

		if !laneSectionsConnected(innerRoad, c.FromLane, next.FromLane) {
			continue
		}

		conn := Connection{
			FromEdge: c.FromEdge, FromLane: c.FromLane, FromContactPoint: c.FromContactPoint,
			ToEdge: next.ToEdge, ToLane: next.ToLane, ToContactPoint: next.ToContactPoint,
			All:      c.All || next.All,
			OrigID:   innerRoad.ID,
			OrigLane: c.FromLane,
		}
		if internalShapes {
			if shape, ok := internalShape(innerRoad, c.FromLane, c.ToContactPoint); ok {
				conn.Shape = shape
			} else {
				warn.Warn("internal shape for junction road %s could not be computed, clearing", innerRoad.ID)
			}
		}
		out = append(out, conn)
	}
	return out
}

// laneSectionsConnected reports whether an inbound lane index actually connects
// through an inner road's sequence of lane sections to the given outbound lane
// index (spec §4.5). A single-section inner road connects in == out directly;
// otherwise the index is rewritten section by section via each section's
// successor lane, scanning both sides because type "none" spacer lanes shift
// indices.
func laneSectionsConnected(innerRoad *Road, in, out int) bool {
	if len(innerRoad.LaneSections) == 0 {
		return in == out
	}
	if len(innerRoad.LaneSections) == 1 {
		return in == out
	}
	cur := in
	for i := 0; i < len(innerRoad.LaneSections)-1; i++ {
		sec := innerRoad.LaneSections[i]
		next := innerRoad.LaneSections[i+1]
		found := false
		for laneID, idx := range sec.LaneMap {
			if idx != cur {
				continue
			}
			succ := findLaneByID(sec, laneID).Successor
			if succ == "" {
				continue
			}
			succID := parseLaneID(succ)
			if nextIdx, ok := next.LaneMap[succID]; ok {
				cur = nextIdx
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return cur == out
}

// resolveOuterEdge maps a raw, unsplit OpenDRIVE lane reference on an outer
// road to the id of the edge that was actually emitted for it and to that
// edge's compact lane index (spec §4.5, "Lane-index resolution at the outer
// edges"). The chosen section is the road's last lane section when the
// contact is at the road's end and the lane id is on the negative
// (right-hand, forward-travel) side; otherwise it is the first section.
func resolveOuterEdge(road *Road, lane int, cp ContactPoint) (edgeID string, compact int, ok bool) {
	if road == nil || len(road.LaneSections) == 0 {
		return "", 0, false
	}
	idx := 0
	if cp == ContactEnd && lane < 0 {
		idx = len(road.LaneSections) - 1
	}
	sec := road.LaneSections[idx]
	suffix := ""
	if len(road.LaneSections) > 1 {
		suffix = fmt.Sprintf(".%g", sec.S)
	}
	edgeID = road.ID + suffix
	if lane < 0 {
		edgeID = "-" + edgeID
	}
	compact, ok = sec.LaneMap[lane]
	return edgeID, compact, ok
}

// resolveConnection rewrites a flattened connection's raw road ids and signed
// OpenDRIVE lane ids into the emitted edge ids and compact lane indices the
// outer edges actually carry (spec §4.5). fromRoad/toRoad are the outer roads
// on either side; c's FromLane/ToLane/contact points are the raw values
// collected while walking the junction.
func resolveConnection(fromRoad, toRoad *Road, c Connection, warn Warner) (Connection, bool) {
	fromEdge, fromLane, ok := resolveOuterEdge(fromRoad, c.FromLane, c.FromContactPoint)
	if !ok {
		warn.Warn("connection from road %s lane %d does not resolve to an emitted edge, skipping", fromRoad.ID, c.FromLane)
		return Connection{}, false
	}
	toEdge, toLane, ok := resolveOuterEdge(toRoad, c.ToLane, c.ToContactPoint)
	if !ok {
		warn.Warn("connection to road %s lane %d does not resolve to an emitted edge, skipping", toRoad.ID, c.ToLane)
		return Connection{}, false
	}
	c.FromEdge, c.FromLane = fromEdge, fromLane
	c.ToEdge, c.ToLane = toEdge, toLane
	return c, true
}

func findLaneByID(sec LaneSection, id int) Lane {
	for _, l := range sec.Left {
		if l.ID == id {
			return l
		}
	}
	for _, l := range sec.Right {
		if l.ID == id {
			return l
		}
	}
	return Lane{}
}

// internalShape copies the inner road's polyline and offsets it laterally by
// the cumulative half-width between the centre and the reference lane for this
// connection (spec §4.5). Positive offset on left-hand connections, negative
// on right-hand. The reference lane is the inner lane whose predecessor (or
// successor, for end-contact) matches the outer fromLane, not the inner lane
// sharing fromLane's own id.
func internalShape(innerRoad *Road, fromLane int, cp ContactPoint) (orb.LineString, bool) {
	if len(innerRoad.Polyline) < 2 || len(innerRoad.LaneSections) == 0 {
		return nil, false
	}
	idx := 0
	if cp == ContactEnd {
		idx = len(innerRoad.LaneSections) - 1
	}
	sec := innerRoad.LaneSections[idx]

	refLane, side, ok := findReferenceLane(sec, fromLane, cp)
	if !ok {
		return nil, false
	}

	cumulative := 0.0
	sign := -1.0
	if side == SideLeft {
		sign = 1.0
	}
	lanes := sec.Right
	if side == SideLeft {
		lanes = sec.Left
	}
	for _, l := range lanes {
		if l.ID == refLane.ID {
			cumulative += l.EffectiveWidth / 2
			break
		}
		cumulative += l.EffectiveWidth
	}
	if cumulative == 0 {
		return innerRoad.Polyline, true
	}
	shifted := offsetCurve(innerRoad.Polyline, sign*cumulative)
	if len(shifted) < 2 {
		return nil, false
	}
	return shifted, true
}

// findReferenceLane locates the inner-road lane whose link back toward the
// junction's incoming side (predecessor for start-contact, successor for
// end-contact) matches fromLane, scanning both sides since spacing lanes can
// shift which side carries a given index.
func findReferenceLane(sec LaneSection, fromLane int, cp ContactPoint) (Lane, LaneSide, bool) {
	linkFor := func(l Lane) string {
		if cp == ContactEnd {
			return l.Successor
		}
		return l.Predecessor
	}
	for _, l := range sec.Right {
		if link := linkFor(l); link != "" && parseLaneID(link) == fromLane {
			return l, SideRight, true
		}
	}
	for _, l := range sec.Left {
		if link := linkFor(l); link != "" && parseLaneID(link) == fromLane {
			return l, SideLeft, true
		}
	}
	return Lane{}, SideRight, false
}
