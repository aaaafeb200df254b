package opendrive

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// positionEPS is the tolerance used throughout geometry de-duplication, width-split
// refinement and minimum-distance vertex pruning, matching the reference importer's
// POSITION_EPS constant.
const positionEPS = 0.1

// almostSame reports whether two points are within positionEPS of each other.
func almostSame(p, q orb.Point) bool {
	return findDistance(p, q) <= positionEPS
}

// findDistance returns the Euclidean distance between two planar points.
func findDistance(p, q orb.Point) float64 {
	xdistance := p[0] - q[0]
	ydistance := p[1] - q[1]
	return math.Sqrt(xdistance*xdistance + ydistance*ydistance)
}

// getLength returns the polyline length in the road-local planar frame.
func getLength(line orb.LineString) float64 {
	totalLength := 0.0
	if len(line) < 2 {
		return totalLength
	}
	for i := 1; i < len(line); i++ {
		totalLength += findDistance(line[i-1], line[i])
	}
	return totalLength
}

// pointOnSegmentByFraction returns a point on segment p->q at the given fraction.
func pointOnSegmentByFraction(p, q orb.Point, fraction float64) orb.Point {
	return orb.Point{
		(1-fraction)*p[0] + fraction*q[0],
		(1-fraction)*p[1] + fraction*q[1],
	}
}

// intersect checks if two segments' supporting lines intersect and returns the intersection point.
// p1, p2 - first segment
// p3, p4 - second segment
// Note: planar space
func intersect(p1, p2, p3, p4 orb.Point) (orb.Point, error) {
	// Calculate the coefficients of the linear equations
	a1 := p2[1] - p1[1]
	b1 := p1[0] - p2[0]
	c1 := a1*p1[0] + b1*p1[1]
	a2 := p4[1] - p3[1]
	b2 := p3[0] - p4[0]
	c2 := a2*p3[0] + b2*p3[1]

	// Calculate the determinant
	det := a1*b2 - a2*b1
	if det == 0 {
		return orb.Point{}, fmt.Errorf("the lines are parallel")
	}

	// Calculate the intersection point
	x := (b2*c1 - b1*c2) / det
	y := (a1*c2 - a2*c1) / det
	return orb.Point{x, y}, nil
}

// offsetCurve returns a copy of line shifted by distance along its per-segment normal,
// stitching consecutive offset segments together at their intersection. Positive
// distance shifts left of the direction of travel.
//
// Used by the Connection Flattener's optional internal shape. The Geometry
// Engine's lane-offset pass does not use it; it shifts vertex by vertex using
// tangentAt.
func offsetCurve(line orb.LineString, distance float64) orb.LineString {
	if len(line) < 2 {
		out := make(orb.LineString, len(line))
		copy(out, line)
		return out
	}

	var result orb.LineString
	var segments [][2]orb.Point

	for i := 1; i < len(line); i++ {
		p1 := line[i-1]
		p2 := line[i]

		vec := [2]float64{p2[0] - p1[0], p2[1] - p1[1]}

		vecLen := math.Sqrt(vec[0]*vec[0] + vec[1]*vec[1])
		if vecLen == 0 {
			continue
		}
		vec = [2]float64{vec[0] / vecLen, vec[1] / vecLen}

		// Rotate the vector by 90 degrees (left normal)
		rotated := [2]float64{-vec[1], vec[0]}

		offset := [2]float64{rotated[0] * distance, rotated[1] * distance}

		op1 := [2]float64{p1[0] + offset[0], p1[1] + offset[1]}
		op2 := [2]float64{p2[0] + offset[0], p2[1] + offset[1]}

		segments = append(segments, [2]orb.Point{op1, op2})
	}
	if len(segments) == 0 {
		out := make(orb.LineString, len(line))
		copy(out, line)
		return out
	}

	result = append(result, segments[0][0])
	for i := 1; i < len(segments); i++ {
		seg1 := segments[i-1]
		seg2 := segments[i]
		intersection, err := intersect(seg1[0], seg1[1], seg2[0], seg2[1])
		if err != nil {
			result = append(result, seg1[1])
			continue
		}
		result = append(result, intersection)
	}
	result = append(result, segments[len(segments)-1][1])
	return result
}

// tangentAt returns the unit tangent of line at vertex i using a centred finite
// difference where possible. ok is false when neighbouring vertices coincide.
func tangentAt(line orb.LineString, i int) (tx, ty float64, ok bool) {
	switch {
	case len(line) < 2:
		return 0, 0, false
	case i == 0:
		tx, ty = line[1][0]-line[0][0], line[1][1]-line[0][1]
	case i == len(line)-1:
		tx, ty = line[i][0]-line[i-1][0], line[i][1]-line[i-1][1]
	default:
		tx, ty = line[i+1][0]-line[i-1][0], line[i+1][1]-line[i-1][1]
	}
	tlen := math.Sqrt(tx*tx + ty*ty)
	if tlen == 0 {
		return 0, 0, false
	}
	return tx / tlen, ty / tlen, true
}
