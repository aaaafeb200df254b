package opendrive

import (
	"math"
	"sort"
	"strconv"
)

// ReshapeLaneSections runs both passes of the Lane-Section Reshaper on a single
// road: split by speed-limit change (Pass A), then split by minimum lane width
// (Pass B), then builds the per-section lane map (spec §4.2). Lane
// continuations between adjacent sections are computed later, by
// InnerConnections during edge emission.
func ReshapeLaneSections(r *Road, cat LaneTypeCatalogue, minWidth float64, importAllLanes bool, warn Warner) {
	splitBySpeedChange(r)
	splitByMinWidth(r, cat, minWidth, warn)
	normalizeSectionOrder(r, warn)

	for i := range r.LaneSections {
		buildLaneMapping(&r.LaneSections[i], cat, importAllLanes)
	}
}

// splitBySpeedChange is Pass A (spec §4.2). Returns true if any section was split.
func splitBySpeedChange(r *Road) bool {
	var out []LaneSection
	anySplit := false

	for secIdx := range r.LaneSections {
		sec := r.LaneSections[secIdx]

		offsets := map[float64]struct{}{}
		for _, lane := range append(append([]Lane{}, sec.Left...), sec.Right...) {
			for _, sc := range lane.Speeds {
				offsets[sc.SOffset] = struct{}{}
			}
		}
		if len(offsets) == 0 {
			out = append(out, sec)
			continue
		}
		offsets[0] = struct{}{}

		sorted := make([]float64, 0, len(offsets))
		for o := range offsets {
			sorted = append(sorted, o)
		}
		sort.Float64s(sorted)

		anySplit = anySplit || len(sorted) > 1
		var prevClone *LaneSection
		for _, off := range sorted {
			clone := cloneLaneSection(sec)
			clone.S = sec.S + off
			clone.SOrig = sec.SOrig
			propagateSpeed(&clone, off, prevClone)
			out = append(out, clone)
			prevClone = &out[len(out)-1]
		}
	}
	r.LaneSections = out
	return anySplit
}

func propagateSpeed(clone *LaneSection, offset float64, prev *LaneSection) {
	propagateSide(clone.Left, offset, prev, func(ls *LaneSection) []Lane { return ls.Left })
	propagateSide(clone.Right, offset, prev, func(ls *LaneSection) []Lane { return ls.Right })
}

func propagateSide(lanes []Lane, offset float64, prev *LaneSection, sideOf func(*LaneSection) []Lane) {
	for i := range lanes {
		lane := &lanes[i]
		if sp, ok := matchingSpeed(lane.Speeds, offset); ok {
			lane.EffectiveSpeed = sp
			continue
		}
		if prev != nil {
			for _, pl := range sideOf(prev) {
				if pl.ID == lane.ID {
					lane.EffectiveSpeed = pl.EffectiveSpeed
					break
				}
			}
		}
		// else: leave EffectiveSpeed as previously set (type default applied later).
	}
}

func matchingSpeed(entries []speedChangeEntry, offset float64) (float64, bool) {
	for _, e := range entries {
		if math.Abs(e.SOffset-offset) < positionEPS {
			return e.Speed, true
		}
	}
	return 0, false
}

func cloneLaneSection(s LaneSection) LaneSection {
	c := s
	c.Left = append([]Lane{}, s.Left...)
	c.Center = append([]Lane{}, s.Center...)
	c.Right = append([]Lane{}, s.Right...)
	for i := range c.Left {
		c.Left[i].Widths = append([]Cubic{}, s.Left[i].Widths...)
		c.Left[i].Speeds = append([]speedChangeEntry{}, s.Left[i].Speeds...)
	}
	for i := range c.Right {
		c.Right[i].Widths = append([]Cubic{}, s.Right[i].Widths...)
		c.Right[i].Speeds = append([]speedChangeEntry{}, s.Right[i].Speeds...)
	}
	c.LaneMap = nil
	c.OutputID = ""
	return c
}

// splitByMinWidth is Pass B (spec §4.2).
func splitByMinWidth(r *Road, cat LaneTypeCatalogue, minWidth float64, warn Warner) {
	if minWidth <= 0 {
		return
	}
	var out []LaneSection
	for secIdx := range r.LaneSections {
		sec := r.LaneSections[secIdx]
		sectionEnd := r.Length
		if secIdx+1 < len(r.LaneSections) {
			sectionEnd = r.LaneSections[secIdx+1].S
		}

		var candidates []float64
		for _, lane := range sec.Right {
			if !cat.lookup(lane.Type).Permissions.has(PermissionPassenger) {
				continue
			}
			candidates = append(candidates, findWidthSplits(lane, minWidth)...)
		}
		for _, lane := range sec.Left {
			if !cat.lookup(lane.Type).Permissions.has(PermissionPassenger) {
				continue
			}
			candidates = append(candidates, findWidthSplits(lane, minWidth)...)
		}

		splits := dedupeSplits(candidates, sec.S, sectionEnd)
		out = append(out, expandSectionBySplits(sec, splits, sectionEnd)...)
	}
	r.LaneSections = out
}

// findWidthSplits scans a lane's consecutive width cubics for crossings of
// minWidth, linearly estimating the crossing point and refining by stepping
// +/-positionEPS until the cubic is on the thin side (spec §4.2).
func findWidthSplits(lane Lane, minWidth float64) []float64 {
	var splits []float64
	if len(lane.Widths) < 2 {
		return splits
	}
	sorted := append([]Cubic{}, lane.Widths...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].S < sorted[j].S })

	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		sPrev, sEnd := prev.S, cur.S
		if sEnd <= sPrev {
			continue
		}
		wStart := prev.Eval(sPrev)
		wEnd := prev.Eval(sEnd) // the interval [sPrev,sEnd) is governed by prev's cubic
		if sign(wStart-minWidth) == sign(wEnd-minWidth) {
			continue
		}
		splitPos := sPrev + (sEnd-sPrev)*math.Abs(minWidth-wStart)/math.Abs(wEnd-wStart)

		// refine by stepping +/-eps until on the thin side of minWidth
		thinSide := wEnd < minWidth
		for step := 0; step < 8 && splitPos > sPrev && splitPos < sEnd; step++ {
			v := prev.Eval(splitPos)
			onThinSide := v < minWidth
			if onThinSide == thinSide {
				break
			}
			if thinSide {
				splitPos += positionEPS
			} else {
				splitPos -= positionEPS
			}
		}
		splits = append(splits, splitPos)
	}
	return splits
}

func sign(x float64) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

// dedupeSplits sorts, deduplicates and drops candidates within positionEPS of
// the section start/end or of another candidate.
func dedupeSplits(candidates []float64, secStart, secEnd float64) []float64 {
	if len(candidates) == 0 {
		return nil
	}
	sort.Float64s(candidates)
	var out []float64
	for _, c := range candidates {
		if c-secStart < positionEPS || secEnd-c < positionEPS {
			continue
		}
		if len(out) > 0 && c-out[len(out)-1] < positionEPS {
			continue
		}
		out = append(out, c)
	}
	return out
}

// expandSectionBySplits clones sec at each surviving split position, resetting
// lane predecessors to a straight pass-through and recomputing effective width
// as the max of the width cubic evaluated at the interval corners (spec §4.2).
func expandSectionBySplits(sec LaneSection, splits []float64, sectionEnd float64) []LaneSection {
	if len(splits) == 0 {
		return []LaneSection{sec}
	}
	bounds := append([]float64{sec.S}, splits...)
	out := make([]LaneSection, 0, len(bounds))
	for i, s := range bounds {
		clone := cloneLaneSection(sec)
		clone.S = s
		if i > 0 {
			resetPredecessorsToSelf(&clone)
		}
		end := sectionEnd
		if i+1 < len(bounds) {
			end = bounds[i+1]
		}
		recomputeEffectiveWidths(&clone, s, end)
		out = append(out, clone)
	}
	return out
}

// recomputeEffectiveWidths sets each lane's EffectiveWidth to the maximum of its
// width cubic evaluated at the interval's start, end, and any enclosed anchor
// (spec §4.2).
func recomputeEffectiveWidths(sec *LaneSection, start, end float64) {
	recomputeSide(sec.Left, start, end)
	recomputeSide(sec.Right, start, end)
}

func recomputeSide(lanes []Lane, start, end float64) {
	for i := range lanes {
		lane := &lanes[i]
		corners := []float64{start, end}
		for _, w := range lane.Widths {
			if w.S > start && w.S < end {
				corners = append(corners, w.S)
			}
		}
		maxW := 0.0
		for _, c := range corners {
			if rec, ok := activeCubic(lane.Widths, c); ok {
				if v := rec.Eval(c); v > maxW {
					maxW = v
				}
			}
		}
		lane.EffectiveWidth = maxW
	}
}

func resetPredecessorsToSelf(sec *LaneSection) {
	for i := range sec.Left {
		sec.Left[i].Predecessor = strconv.Itoa(sec.Left[i].ID)
	}
	for i := range sec.Right {
		sec.Right[i].Predecessor = strconv.Itoa(sec.Right[i].ID)
	}
}

// normalizeSectionOrder sorts sections by S if necessary (warning once), and for
// outer roads drops a trailing near-duplicate. Inner roads keep near-duplicates
// since the Connection Flattener's connectivity analysis needs them (spec §4.2).
func normalizeSectionOrder(r *Road, warn Warner) {
	strictlyIncreasing := true
	for i := 1; i < len(r.LaneSections); i++ {
		if r.LaneSections[i].S <= r.LaneSections[i-1].S {
			strictlyIncreasing = false
			break
		}
	}
	if !strictlyIncreasing {
		warn.Warn("lane sections of road %s are not strictly increasing in s; sorting", r.ID)
		sort.SliceStable(r.LaneSections, func(i, j int) bool { return r.LaneSections[i].S < r.LaneSections[j].S })
	}
	if r.IsInner() || len(r.LaneSections) < 2 {
		return
	}
	last := len(r.LaneSections) - 1
	if r.LaneSections[last].S-r.LaneSections[last-1].S < positionEPS {
		r.LaneSections = r.LaneSections[:last]
	}
}

// buildLaneMapping assigns compact 0-based indices to each side's lanes,
// walking centre outward, skipping discarded types unless importAllLanes is
// set (spec §4.2/§6).
func buildLaneMapping(sec *LaneSection, cat LaneTypeCatalogue, importAllLanes bool) {
	sec.LaneMap = map[int]int{}

	right := append([]Lane{}, sec.Right...)
	sort.Slice(right, func(i, j int) bool { return math.Abs(float64(right[i].ID)) < math.Abs(float64(right[j].ID)) })
	sec.RightLaneNumber, sec.RightType = assignCompactIndices(right, sec.LaneMap, cat, importAllLanes)

	left := append([]Lane{}, sec.Left...)
	sort.Slice(left, func(i, j int) bool { return math.Abs(float64(left[i].ID)) < math.Abs(float64(left[j].ID)) })
	sec.LeftLaneNumber, sec.LeftType = assignCompactIndices(left, sec.LaneMap, cat, importAllLanes)
}

func assignCompactIndices(lanes []Lane, laneMap map[int]int, cat LaneTypeCatalogue, importAllLanes bool) (int, string) {
	idx := 0
	types := map[string]struct{}{}
	var order []string
	for _, lane := range lanes {
		info := cat.lookup(lane.Type)
		if info.Discard && !importAllLanes {
			continue
		}
		laneMap[lane.ID] = idx
		idx++
		if _, seen := types[lane.Type]; !seen {
			types[lane.Type] = struct{}{}
			order = append(order, lane.Type)
		}
	}
	joined := ""
	if len(order) == 1 {
		joined = order[0]
	} else {
		for i, t := range order {
			if i > 0 {
				joined += "|"
			}
			joined += t
		}
	}
	return idx, joined
}

// InnerConnections computes, for adjacent sections A (predecessor) and B
// (successor) on the same road, the ordered index pairs of lanes whose
// predecessor link in B resolves into A's lane map (spec §4.2's "inner
// connections between adjacent sections"). Left-side pairs are reported
// reversed (B -> A) because the left direction of travel runs opposite to s.
func InnerConnections(a, b *LaneSection) (rightPairs, leftPairs [][2]int) {
	for _, lane := range b.Right {
		if lane.Predecessor == "" || lane.Predecessor == "self" {
			continue
		}
		predID := parseLaneID(lane.Predecessor)
		if aIdx, ok := a.LaneMap[predID]; ok {
			if bIdx, ok2 := b.LaneMap[lane.ID]; ok2 {
				rightPairs = append(rightPairs, [2]int{aIdx, bIdx})
			}
		}
	}
	for _, lane := range b.Left {
		if lane.Predecessor == "" || lane.Predecessor == "self" {
			continue
		}
		predID := parseLaneID(lane.Predecessor)
		if aIdx, ok := a.LaneMap[predID]; ok {
			if bIdx, ok2 := b.LaneMap[lane.ID]; ok2 {
				leftPairs = append(leftPairs, [2]int{bIdx, aIdx})
			}
		}
	}
	return
}

func parseLaneID(s string) int {
	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	if neg {
		n = -n
	}
	return n
}

func (p Permission) has(bit Permission) bool { return p&bit != 0 }
