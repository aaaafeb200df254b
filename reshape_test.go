package opendrive

import (
	"testing"
)

func TestSplitBySpeedChange(t *testing.T) {
	r := &Road{
		LaneSections: []LaneSection{
			{
				S: 0,
				Right: []Lane{
					{
						ID:   -1,
						Type: "driving",
						Speeds: []speedChangeEntry{
							{SOffset: 0, Speed: 10},
							{SOffset: 50, Speed: 20},
						},
					},
				},
			},
		},
	}
	anySplit := splitBySpeedChange(r)
	if !anySplit {
		t.Fatalf("expected a split to have occurred")
	}
	if len(r.LaneSections) != 2 {
		t.Fatalf("expected 2 sections after speed-change split, got %d", len(r.LaneSections))
	}
	if r.LaneSections[0].S != 0 || r.LaneSections[1].S != 50 {
		t.Errorf("expected section anchors [0,50], got [%f,%f]", r.LaneSections[0].S, r.LaneSections[1].S)
	}
	if r.LaneSections[0].Right[0].EffectiveSpeed != 10 {
		t.Errorf("expected first section speed 10, got %f", r.LaneSections[0].Right[0].EffectiveSpeed)
	}
	if r.LaneSections[1].Right[0].EffectiveSpeed != 20 {
		t.Errorf("expected second section speed 20, got %f", r.LaneSections[1].Right[0].EffectiveSpeed)
	}
}

func TestSplitBySpeedChangeNoop(t *testing.T) {
	r := &Road{
		LaneSections: []LaneSection{
			{S: 0, Right: []Lane{{ID: -1, Type: "driving"}}},
		},
	}
	anySplit := splitBySpeedChange(r)
	if anySplit {
		t.Errorf("no speed records should mean no split")
	}
	if len(r.LaneSections) != 1 {
		t.Errorf("expected 1 section unchanged, got %d", len(r.LaneSections))
	}
}

func TestFindWidthSplits(t *testing.T) {
	// prev's cubic governs the whole [0,10) interval: width drops from 3.5 to 1.5,
	// crossing the 1.8 minimum partway through.
	lane := Lane{
		Widths: []Cubic{
			{S: 0, A: 3.5, B: -0.2},
			{S: 10, A: 1.5},
		},
	}
	splits := findWidthSplits(lane, 1.8)
	if len(splits) != 1 {
		t.Fatalf("expected exactly 1 split where width crosses 1.8, got %d (%v)", len(splits), splits)
	}
	if splits[0] <= 0 || splits[0] >= 10 {
		t.Errorf("split position should fall strictly within [0,10], got %f", splits[0])
	}
}

func TestFindWidthSplitsNoCrossing(t *testing.T) {
	lane := Lane{
		Widths: []Cubic{
			{S: 0, A: 3.5},
			{S: 10, A: 3.0},
		},
	}
	splits := findWidthSplits(lane, 1.8)
	if len(splits) != 0 {
		t.Errorf("width staying above minWidth should produce no splits, got %v", splits)
	}
}

func TestDedupeSplits(t *testing.T) {
	out := dedupeSplits([]float64{5, 5.05, 20}, 0, 30)
	if len(out) != 2 {
		t.Fatalf("expected near-duplicate candidates to collapse, got %v", out)
	}
}

func TestDedupeSplitsDropsNearBoundary(t *testing.T) {
	out := dedupeSplits([]float64{0.01, 15, 29.99}, 0, 30)
	if len(out) != 1 || out[0] != 15 {
		t.Errorf("candidates within positionEPS of section bounds should be dropped, got %v", out)
	}
}

func TestBuildLaneMapping(t *testing.T) {
	sec := &LaneSection{
		Right: []Lane{
			{ID: -1, Type: "driving"},
			{ID: -2, Type: "border"}, // discarded by default
			{ID: -3, Type: "driving"},
		},
	}
	cat := DefaultLaneTypeCatalogue()
	buildLaneMapping(sec, cat, false)
	if sec.RightLaneNumber != 2 {
		t.Errorf("expected 2 output lanes (border discarded), got %d", sec.RightLaneNumber)
	}
	if sec.LaneMap[-1] != 0 {
		t.Errorf("innermost lane -1 should map to output index 0, got %d", sec.LaneMap[-1])
	}
	if sec.LaneMap[-3] != 1 {
		t.Errorf("outermost surviving lane -3 should map to output index 1, got %d", sec.LaneMap[-3])
	}
	if _, ok := sec.LaneMap[-2]; ok {
		t.Errorf("discarded lane -2 should not appear in the lane map")
	}
}

func TestBuildLaneMappingImportAllLanes(t *testing.T) {
	sec := &LaneSection{
		Right: []Lane{
			{ID: -1, Type: "driving"},
			{ID: -2, Type: "border"},
		},
	}
	cat := DefaultLaneTypeCatalogue()
	buildLaneMapping(sec, cat, true)
	if sec.RightLaneNumber != 2 {
		t.Errorf("import-all-lanes should keep the discarded type too, got %d lanes", sec.RightLaneNumber)
	}
}

func TestInnerConnections(t *testing.T) {
	a := &LaneSection{
		LaneMap: map[int]int{-1: 0, -2: 1},
	}
	b := &LaneSection{
		Right: []Lane{
			{ID: -1, Predecessor: "-1"},
			{ID: -2, Predecessor: "-2"},
		},
		LaneMap: map[int]int{-1: 0, -2: 1},
	}
	rightPairs, leftPairs := InnerConnections(a, b)
	if len(rightPairs) != 2 {
		t.Fatalf("expected 2 right-side continuations, got %d", len(rightPairs))
	}
	if len(leftPairs) != 0 {
		t.Errorf("expected no left-side continuations, got %d", len(leftPairs))
	}
	if rightPairs[0] != [2]int{0, 0} {
		t.Errorf("expected (0,0) pairing for lane -1, got %v", rightPairs[0])
	}
}

func TestInnerConnectionsSkipsSelf(t *testing.T) {
	a := &LaneSection{LaneMap: map[int]int{-1: 0}}
	b := &LaneSection{
		Right:   []Lane{{ID: -1, Predecessor: "self"}},
		LaneMap: map[int]int{-1: 0},
	}
	rightPairs, _ := InnerConnections(a, b)
	if len(rightPairs) != 0 {
		t.Errorf("a 'self' predecessor should not produce a continuation, got %v", rightPairs)
	}
}

func TestParseLaneID(t *testing.T) {
	if parseLaneID("-3") != -3 {
		t.Errorf("expected -3")
	}
	if parseLaneID("2") != 2 {
		t.Errorf("expected 2")
	}
}

func TestPermissionHas(t *testing.T) {
	p := PermissionPassenger | PermissionBus
	if !p.has(PermissionPassenger) {
		t.Errorf("expected passenger bit set")
	}
	if p.has(PermissionRail) {
		t.Errorf("did not expect rail bit set")
	}
}
