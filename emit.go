package opendrive

import (
	"fmt"

	"github.com/paulmach/orb"
)

// EmitterConfig bundles the Edge Emitter's configuration knobs (spec §4.4/§6).
type EmitterConfig struct {
	Catalogue        LaneTypeCatalogue
	ImportAllLanes   bool
	IgnoreWidths     bool
	MinWidth         float64
	WidthResolution  float64 // 0 disables quantisation globally
	MaxWidthOverride float64 // 0 means "use catalogue"
}

// EmitEdges runs the Edge Emitter for a single outer road with >= 2 polyline
// vertices, inserting forward/backward edges (and wiring intra-road lane
// continuations) into graph (spec §4.4).
func EmitEdges(r *Road, cfg EmitterConfig, graph *RoadGraph, warn Warner) error {
	if len(r.Polyline) < 2 {
		return nil
	}
	handleSelfLoop(r)

	l2d := getLength(r.Polyline)
	cF := 1.0
	if l2d != 0 {
		cF = r.Length / l2d
	}

	rightPriority, leftPriority := signalPriority(r)

	var prevForward, prevBackward *Edge
	var prevSection *LaneSection
	base := r.ID
	multiSection := len(r.LaneSections) > 1

	for j := range r.LaneSections {
		sec := &r.LaneSections[j]
		sB := sec.S * cF
		sE := r.Length * cF
		if j+1 < len(r.LaneSections) {
			sE = r.LaneSections[j+1].S * cF
		}
		sub := getSubpart2D(r, sB, sE)
		if len(sub) < 2 {
			warn.Warn("road %s section %d degenerates to < 2 vertices, skipping", r.ID, j)
			continue
		}

		sectionSuffix := ""
		if multiSection {
			sectionSuffix = fmt.Sprintf(".%g", sec.S)
		}

		sFrom := r.FromNode
		if j > 0 {
			sFrom = interiorNodeID(r, j)
			if err := graph.InsertNode(&Node{ID: sFrom, X: sub[0][0], Y: sub[0][1]}); err != nil {
				return err
			}
		}
		sTo := r.ToNode
		if j+1 < len(r.LaneSections) {
			sTo = interiorNodeID(r, j+1)
			if err := graph.InsertNode(&Node{ID: sTo, X: sub[len(sub)-1][0], Y: sub[len(sub)-1][1]}); err != nil {
				return err
			}
		}

		if sec.RightLaneNumber > 0 {
			edge := &Edge{
				ID:       "-" + base + sectionSuffix,
				FromNode: sFrom,
				ToNode:   sTo,
				Geometry: sub,
				RoadID:   r.ID,
				Section:  j,
				Priority: rightPriority,
				Lanes:    buildEdgeLanes(sec.Right, sec.LaneMap, cfg),
			}
			if err := graph.InsertEdge(edge); err != nil {
				return err
			}
			if prevForward != nil && prevSection != nil {
				rightPairs, _ := InnerConnections(prevSection, sec)
				for _, pair := range rightPairs {
					graph.InsertConnection(Connection{
						FromEdge: prevForward.ID, FromLane: pair[0], FromContactPoint: ContactEnd,
						ToEdge: edge.ID, ToLane: pair[1], ToContactPoint: ContactStart,
					})
				}
			}
			prevForward = edge
		} else {
			graph.MarkIgnored("-" + base + sectionSuffix)
		}

		if sec.LeftLaneNumber > 0 {
			reversed := reverseLineString(sub)
			edge := &Edge{
				ID:       base + sectionSuffix,
				FromNode: sTo,
				ToNode:   sFrom,
				Geometry: reversed,
				RoadID:   r.ID,
				Section:  j,
				Priority: leftPriority,
				Lanes:    buildEdgeLanes(sec.Left, sec.LaneMap, cfg),
			}
			if err := graph.InsertEdge(edge); err != nil {
				return err
			}
			if prevBackward != nil && prevSection != nil {
				_, leftPairs := InnerConnections(prevSection, sec)
				for _, pair := range leftPairs {
					graph.InsertConnection(Connection{
						FromEdge: edge.ID, FromLane: pair[0], FromContactPoint: ContactEnd,
						ToEdge: prevBackward.ID, ToLane: pair[1], ToContactPoint: ContactStart,
					})
				}
			}
			prevBackward = edge
		} else {
			graph.MarkIgnored(base + sectionSuffix)
		}
		prevSection = sec
	}
	return nil
}

// handleSelfLoop splits a road's single lane section into two halves when its
// from-node and to-node coincide, so the emitted edges do not form a
// degenerate self-loop with no intermediate node (spec §4.4).
func handleSelfLoop(r *Road) {
	if r.FromNode == "" || r.FromNode != r.ToNode || len(r.LaneSections) != 1 {
		return
	}
	sec := r.LaneSections[0]
	half := cloneLaneSection(sec)
	half.S = r.Length / 2
	resetPredecessorsToSelf(&half)
	recomputeEffectiveWidths(&half, half.S, r.Length)
	buildLaneMapping(&half, nil, true)
	r.LaneSections = []LaneSection{sec, half}
}

func interiorNodeID(r *Road, sectionIdx int) string {
	return fmt.Sprintf("%s.%d", r.ID, sectionIdx)
}

// signalPriority scans a road's signals for the priority-assigning types
// (spec §4.4): "301"/"306" -> 2, "205" -> 0, otherwise 1. Right-side priority
// uses signals with orientation > 0; left-side uses orientation < 0.
func signalPriority(r *Road) (right, left int) {
	right, left = 1, 1
	for _, sig := range r.Signals {
		p := 1
		switch sig.Type {
		case "301", "306":
			p = 2
		case "205":
			p = 0
		}
		if sig.Orientation > 0 {
			right = p
		} else if sig.Orientation < 0 {
			left = p
		}
	}
	return
}

// getSubpart2D extracts the portion of road's polyline between parametric
// arclengths sB and sE, interpolating at the boundaries.
func getSubpart2D(r *Road, sB, sE float64) orb.LineString {
	if len(r.Polyline) == 0 {
		return nil
	}
	var out orb.LineString
	for i := 0; i < len(r.PolylineS); i++ {
		s := r.PolylineS[i]
		if s < sB {
			continue
		}
		if len(out) == 0 && s > sB && i > 0 {
			out = append(out, interpAtArclength(r, i-1, i, sB))
		}
		if s > sE {
			out = append(out, interpAtArclength(r, i-1, i, sE))
			break
		}
		out = append(out, r.Polyline[i])
		if s == sE {
			break
		}
	}
	if len(out) == 0 {
		return r.Polyline
	}
	return out
}

func interpAtArclength(r *Road, i, j int, s float64) orb.Point {
	sA, sB := r.PolylineS[i], r.PolylineS[j]
	if sB == sA {
		return r.Polyline[i]
	}
	frac := (s - sA) / (sB - sA)
	return pointOnSegmentByFraction(r.Polyline[i], r.Polyline[j], frac)
}

func reverseLineString(line orb.LineString) orb.LineString {
	out := make(orb.LineString, len(line))
	for i, p := range line {
		out[len(line)-1-i] = p
	}
	return out
}

// buildEdgeLanes translates a section side's lanes into EdgeLanes, applying
// effective speed/width resolution, quantisation and the narrow-lane downgrade
// (spec §4.4). Right-of-way priority is carried on the Edge itself, see
// signalPriority and its callers in EmitEdges.
func buildEdgeLanes(lanes []Lane, laneMap map[int]int, cfg EmitterConfig) []EdgeLane {
	out := make([]EdgeLane, 0, len(lanes))
	for _, lane := range lanes {
		idx, ok := laneMap[lane.ID]
		if !ok {
			continue
		}
		info := cfg.Catalogue.lookup(lane.Type)

		speed := lane.EffectiveSpeed
		if speed == 0 {
			speed = info.DefaultSpeed
		}

		width := info.DefaultWidth
		if !cfg.IgnoreWidths && lane.EffectiveWidth > 0 {
			width = lane.EffectiveWidth
		}

		resolution := cfg.WidthResolution
		if resolution == 0 {
			resolution = info.WidthResolution
		}
		if resolution > 0 {
			width = quantise(width, resolution)
		}
		maxWidth := cfg.MaxWidthOverride
		if maxWidth == 0 {
			maxWidth = info.MaxWidth
		}
		if maxWidth > 0 && width > maxWidth {
			width = maxWidth
		}

		permissions := info.Permissions
		if info.Permissions.has(PermissionPassenger) && width < cfg.MinWidth && cfg.MinWidth > 0 {
			retry := width - resolution
			if resolution > 0 && retry >= cfg.MinWidth {
				width = retry
			} else {
				permissions = PermissionEmergency | PermissionAuthority
			}
		}

		out = append(out, EdgeLane{
			Index:       idx,
			Speed:       speed,
			Width:       width,
			Permissions: permissions,
			Type:        lane.Type,
		})
	}
	return out
}

func quantise(width, resolution float64) float64 {
	if resolution <= 0 {
		return width
	}
	steps := width / resolution
	rounded := float64(int(steps + 0.5))
	// Dividing by the reciprocal keeps e.g. 17 steps of 0.2 at 3.4 rather
	// than 3.4000000000000004.
	return rounded / (1 / resolution)
}

