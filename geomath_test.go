package opendrive

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
)

func TestAlmostSame(t *testing.T) {
	p := orb.Point{10, 10}
	q := orb.Point{10.05, 10}
	if !almostSame(p, q) {
		t.Errorf("points within positionEPS should be considered the same")
	}
	far := orb.Point{10.5, 10}
	if almostSame(p, far) {
		t.Errorf("points farther than positionEPS should not be considered the same")
	}
}

func TestGetLength(t *testing.T) {
	line := orb.LineString{{0, 0}, {3, 0}, {3, 4}}
	got := getLength(line)
	want := 7.0
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("length should be %f, got %f", want, got)
	}
}

func TestPointOnSegmentByFraction(t *testing.T) {
	p := pointOnSegmentByFraction(orb.Point{0, 0}, orb.Point{10, 0}, 0.5)
	if p[0] != 5 || p[1] != 0 {
		t.Errorf("expected midpoint (5,0), got %v", p)
	}
}

func TestIntersectParallel(t *testing.T) {
	_, err := intersect(orb.Point{0, 0}, orb.Point{1, 0}, orb.Point{0, 1}, orb.Point{1, 1})
	if err == nil {
		t.Errorf("parallel segments should not intersect")
	}
}

func TestOffsetCurveStraightLine(t *testing.T) {
	line := orb.LineString{{0, 0}, {10, 0}}
	shifted := offsetCurve(line, 1.0)
	if len(shifted) != 2 {
		t.Fatalf("expected 2 points, got %d", len(shifted))
	}
	if math.Abs(shifted[0][1]-1.0) > 1e-9 || math.Abs(shifted[1][1]-1.0) > 1e-9 {
		t.Errorf("shifting a line along +x by 1.0 left should raise y by 1.0, got %v", shifted)
	}
}

func TestOffsetCurveDegenerate(t *testing.T) {
	line := orb.LineString{{5, 5}}
	shifted := offsetCurve(line, 1.0)
	if len(shifted) != 1 || shifted[0] != line[0] {
		t.Errorf("single-point line should pass through unchanged, got %v", shifted)
	}
}

func TestTangentAt(t *testing.T) {
	line := orb.LineString{{0, 0}, {10, 0}, {20, 0}}
	tx, ty, ok := tangentAt(line, 1)
	if !ok {
		t.Fatalf("tangent should be defined")
	}
	if math.Abs(tx-1) > 1e-9 || math.Abs(ty) > 1e-9 {
		t.Errorf("tangent along +x should be (1,0), got (%f,%f)", tx, ty)
	}
}
