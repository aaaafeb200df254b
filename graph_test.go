package opendrive

import "testing"

func TestInsertNodeFirstWins(t *testing.T) {
	g := NewRoadGraph()
	if err := g.InsertNode(&Node{ID: "n1", X: 1, Y: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := g.InsertNode(&Node{ID: "n1", X: 99, Y: 99}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n, _ := g.RetrieveNode("n1")
	if n.X != 1 || n.Y != 1 {
		t.Errorf("expected the first-inserted position to win, got (%f,%f)", n.X, n.Y)
	}
}

func TestInsertEdgeDuplicateErrors(t *testing.T) {
	g := NewRoadGraph()
	if err := g.InsertEdge(&Edge{ID: "e1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := g.InsertEdge(&Edge{ID: "e1"}); err == nil {
		t.Errorf("expected a hard error inserting a duplicate edge id")
	}
}

func TestInsertConnectionDedup(t *testing.T) {
	g := NewRoadGraph()
	c := Connection{FromEdge: "e1", ToEdge: "e2", FromLane: -1, ToLane: -1}
	g.InsertConnection(c)
	g.InsertConnection(c)
	if len(g.Connections()) != 1 {
		t.Errorf("expected identical connections to collapse to 1, got %d", len(g.Connections()))
	}
}

func TestMarkAndWasIgnored(t *testing.T) {
	g := NewRoadGraph()
	if g.WasIgnored("e1") {
		t.Errorf("an edge should not be reported as ignored before being marked")
	}
	g.MarkIgnored("e1")
	if !g.WasIgnored("e1") {
		t.Errorf("expected e1 to be reported as ignored after MarkIgnored")
	}
}

func TestRetrieveEdgeMissing(t *testing.T) {
	g := NewRoadGraph()
	if _, ok := g.RetrieveEdge("missing"); ok {
		t.Errorf("expected ok=false for a missing edge")
	}
}
