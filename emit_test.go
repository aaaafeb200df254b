package opendrive

import (
	"testing"

	"github.com/paulmach/orb"
)

func TestQuantise(t *testing.T) {
	got := quantise(3.46, 0.2)
	want := 3.4
	if got != want {
		t.Errorf("expected %f, got %f", want, got)
	}
}

func TestQuantiseNoResolution(t *testing.T) {
	if quantise(3.46, 0) != 3.46 {
		t.Errorf("resolution <= 0 should leave width untouched")
	}
}

func TestBuildEdgeLanesNarrowLaneDowngrade(t *testing.T) {
	lanes := []Lane{
		{ID: -1, Type: "driving", EffectiveWidth: 1.0, EffectiveSpeed: 13.89},
	}
	laneMap := map[int]int{-1: 0}
	cfg := EmitterConfig{Catalogue: DefaultLaneTypeCatalogue(), MinWidth: 1.8}
	out := buildEdgeLanes(lanes, laneMap, cfg)
	if len(out) != 1 {
		t.Fatalf("expected 1 edge lane, got %d", len(out))
	}
	if out[0].Permissions.has(PermissionPassenger) {
		t.Errorf("a lane narrower than min-width with no retry headroom should be downgraded away from passenger traffic")
	}
	if !out[0].Permissions.has(PermissionEmergency) {
		t.Errorf("downgraded lane should still carry emergency/authority permissions")
	}
}

func TestBuildEdgeLanesWideEnough(t *testing.T) {
	// 3.6 is an exact multiple of the driving type's 0.2 width resolution, so
	// quantisation is a no-op and the assertion below is exact.
	lanes := []Lane{
		{ID: -1, Type: "driving", EffectiveWidth: 3.6, EffectiveSpeed: 13.89},
	}
	laneMap := map[int]int{-1: 0}
	cfg := EmitterConfig{Catalogue: DefaultLaneTypeCatalogue(), MinWidth: 1.8}
	out := buildEdgeLanes(lanes, laneMap, cfg)
	if !out[0].Permissions.has(PermissionPassenger) {
		t.Errorf("a wide-enough driving lane should keep passenger permission")
	}
	if out[0].Width != 3.6 {
		t.Errorf("expected width 3.6, got %f", out[0].Width)
	}
}

func TestBuildEdgeLanesSkipsUnmapped(t *testing.T) {
	lanes := []Lane{{ID: -1, Type: "driving"}}
	laneMap := map[int]int{} // -1 discarded, not in map
	cfg := EmitterConfig{Catalogue: DefaultLaneTypeCatalogue()}
	out := buildEdgeLanes(lanes, laneMap, cfg)
	if len(out) != 0 {
		t.Errorf("a lane absent from the lane map should produce no EdgeLane, got %d", len(out))
	}
}

func TestReverseLineString(t *testing.T) {
	line := orb.LineString{{0, 0}, {1, 1}, {2, 2}}
	rev := reverseLineString(line)
	if rev[0] != line[2] || rev[2] != line[0] {
		t.Errorf("expected reversed order, got %v", rev)
	}
}

func TestInteriorNodeID(t *testing.T) {
	r := &Road{ID: "42"}
	if interiorNodeID(r, 2) != "42.2" {
		t.Errorf("expected '42.2', got %q", interiorNodeID(r, 2))
	}
}

func TestSignalPriority(t *testing.T) {
	r := &Road{
		Signals: []Signal{
			{Type: "301", Orientation: 1},
			{Type: "205", Orientation: -1},
		},
	}
	right, left := signalPriority(r)
	if right != 2 {
		t.Errorf("expected right priority 2 for a 301 signal, got %d", right)
	}
	if left != 0 {
		t.Errorf("expected left priority 0 for a 205 signal, got %d", left)
	}
}

func TestSignalPriorityDefault(t *testing.T) {
	r := &Road{}
	right, left := signalPriority(r)
	if right != 1 || left != 1 {
		t.Errorf("expected default priority 1 on both sides with no signals, got (%d,%d)", right, left)
	}
}

func TestGetSubpart2D(t *testing.T) {
	r := &Road{
		Polyline:  orb.LineString{{0, 0}, {10, 0}, {20, 0}},
		PolylineS: []float64{0, 10, 20},
	}
	sub := getSubpart2D(r, 5, 15)
	if len(sub) != 3 {
		t.Fatalf("expected 3 points (interpolated start, middle vertex, interpolated end), got %d", len(sub))
	}
	if sub[0][0] != 5 || sub[2][0] != 15 {
		t.Errorf("expected sub-polyline endpoints at x=5 and x=15, got %v and %v", sub[0], sub[2])
	}
}

func TestHandleSelfLoop(t *testing.T) {
	r := &Road{
		FromNode: "n1",
		ToNode:   "n1",
		Length:   100,
		LaneSections: []LaneSection{
			{S: 0, Right: []Lane{{ID: -1, Type: "driving"}}},
		},
	}
	handleSelfLoop(r)
	if len(r.LaneSections) != 2 {
		t.Fatalf("expected self-loop to be split into 2 sections, got %d", len(r.LaneSections))
	}
	if r.LaneSections[1].S != 50 {
		t.Errorf("expected second section anchored at the midpoint (50), got %f", r.LaneSections[1].S)
	}
}

func TestEmitEdgesSetsPriority(t *testing.T) {
	r := &Road{
		ID:        "1",
		Length:    10,
		FromNode:  "n1",
		ToNode:    "n2",
		Polyline:  orb.LineString{{0, 0}, {10, 0}},
		PolylineS: []float64{0, 10},
		Signals: []Signal{
			{Type: "301", Orientation: 1},
			{Type: "205", Orientation: -1},
		},
		LaneSections: []LaneSection{
			{
				S:               0,
				RightLaneNumber: 1,
				LeftLaneNumber:  1,
				LaneMap:         map[int]int{-1: 0, 1: 0},
				Right:           []Lane{{ID: -1, Type: "driving", EffectiveWidth: 3.5}},
				Left:            []Lane{{ID: 1, Type: "driving", EffectiveWidth: 3.5}},
			},
		},
	}
	graph := NewRoadGraph()
	cfg := EmitterConfig{Catalogue: DefaultLaneTypeCatalogue()}
	if err := EmitEdges(r, cfg, graph, NewRecordingWarner()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fwd, ok := graph.RetrieveEdge("-1")
	if !ok {
		t.Fatalf("expected forward edge '-1' to be emitted")
	}
	if fwd.Priority != 2 {
		t.Errorf("expected right-side priority 2 (301 signal), got %d", fwd.Priority)
	}
	bwd, ok := graph.RetrieveEdge("1")
	if !ok {
		t.Fatalf("expected backward edge '1' to be emitted")
	}
	if bwd.Priority != 0 {
		t.Errorf("expected left-side priority 0 (205 signal), got %d", bwd.Priority)
	}
}

func TestHandleSelfLoopNoop(t *testing.T) {
	r := &Road{
		FromNode: "n1",
		ToNode:   "n2",
		Length:   100,
		LaneSections: []LaneSection{
			{S: 0, Right: []Lane{{ID: -1, Type: "driving"}}},
		},
	}
	handleSelfLoop(r)
	if len(r.LaneSections) != 1 {
		t.Errorf("non-self-loop roads should be left untouched, got %d sections", len(r.LaneSections))
	}
}
