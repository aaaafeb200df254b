package opendrive

import (
	"math"

	"github.com/paulmach/orb"
)

// BuildRoadGeometry runs the Geometry Engine for a single road: discretizes every
// parametric segment, concatenates them into one polyline, lifts it to 3D via the
// elevation polynomials, shifts it laterally via the lane-offset polynomials, and
// finally applies the injected projection. On projection failure for any vertex
// the road's geometry is discarded (set to nil) and a warning is emitted; this is
// not a hard error (spec §4.1/§7).
func BuildRoadGeometry(r *Road, curveResolution float64, project ProjectionFunc, warn Warner) {
	r.Vertices = discretizeRoad(r, curveResolution, warn)
	applyElevation(r)
	applyLaneOffset(r, warn)
	applyProjection(r, project, warn)
}

// discretizeRoad concatenates the per-segment discretisations of a road's
// geometry, handling the Line/non-Line junction rule from spec §4.1.
func discretizeRoad(r *Road, resolution float64, warn Warner) []PolyVertex {
	var out []PolyVertex
	prevWasLine := false
	for _, seg := range r.Geometry {
		pts := discretizeSegment(seg, resolution, warn)
		if len(out) > 0 && len(pts) > 0 {
			prevEnd := out[len(out)-1]
			nextStart := pts[0]
			if prevWasLine && almostSame(prevEnd.point(), nextStart.point()) {
				out = out[:len(out)-1]
			} else if !almostSame(prevEnd.point(), nextStart.point()) {
				warn.Warn("mismatched geometry on road %s at s=%.3f", r.ID, seg.S)
			}
		}
		out = append(out, pts...)
		prevWasLine = seg.Kind == GeomLine
	}
	return out
}

func discretizeSegment(seg GeomSegment, resolution float64, warn Warner) []PolyVertex {
	switch seg.Kind {
	case GeomLine:
		return discretizeLine(seg, resolution)
	case GeomSpiral:
		return discretizeSpiral(seg, resolution, warn)
	case GeomArc:
		return discretizeArc(seg, resolution)
	case GeomPoly3:
		return discretizePoly3(seg, resolution)
	case GeomParamPoly3:
		return discretizeParamPoly3(seg, resolution)
	default:
		return []PolyVertex{{X: seg.X, Y: seg.Y, S: seg.S}}
	}
}

// discretizeLine returns the segment's start and end points only. No
// intermediate points are added, even when the road's elevation is non-linear
// over the segment; applyElevation later sets z at these two vertices alone.
func discretizeLine(seg GeomSegment, resolution float64) []PolyVertex {
	end := orb.Point{seg.X + seg.Length*math.Cos(seg.Hdg), seg.Y + seg.Length*math.Sin(seg.Hdg)}
	return []PolyVertex{
		{X: seg.X, Y: seg.Y, S: seg.S},
		{X: end[0], Y: end[1], S: seg.S + seg.Length},
	}
}

// discretizeSpiral samples a clothoid from CurvStart to CurvEnd over Length using
// the odrSpiral Fresnel kernel (SPEC_FULL.md §4). Degenerate spirals (zero rate
// or zero length) warn and record only the start point.
func discretizeSpiral(seg GeomSegment, resolution float64, warn Warner) []PolyVertex {
	if seg.Length == 0 {
		warn.Warn("degenerate spiral geometry at s=%.3f: zero length, recording start point only", seg.S)
		return []PolyVertex{{X: seg.X, Y: seg.Y, S: seg.S}}
	}
	cDot := (seg.CurvEnd - seg.CurvStart) / seg.Length
	if cDot == 0 {
		warn.Warn("degenerate spiral geometry at s=%.3f: constant curvature, recording start point only", seg.S)
		return []PolyVertex{{X: seg.X, Y: seg.Y, S: seg.S}}
	}

	s0 := seg.CurvStart / cDot
	x0, y0, t0 := odrSpiralPoint(s0, cDot)

	n := int(math.Ceil(seg.Length/resolution)) + 1
	if n < 2 {
		n = 2
	}
	pts := make([]PolyVertex, n)
	rot := seg.Hdg - t0
	cosR, sinR := math.Cos(rot), math.Sin(rot)
	for i := 0; i < n; i++ {
		ds := seg.Length * float64(i) / float64(n-1)
		x, y, _ := odrSpiralPoint(s0+ds, cDot)
		lx, ly := x-x0, y-y0
		rx := lx*cosR - ly*sinR
		ry := lx*sinR + ly*cosR
		pts[i] = PolyVertex{X: seg.X + rx, Y: seg.Y + ry, S: seg.S + ds}
	}
	return pts
}

// odrSpiralPoint evaluates the canonical clothoid (curvature 0 at s=0, rate
// cDot) at arclength s, returning the local (x,y) and tangent heading t.
func odrSpiralPoint(s, cDot float64) (x, y, t float64) {
	a := math.Sqrt(math.Pi / math.Abs(cDot))
	fs, fc := fresnel(s / a)
	x = a * fc
	y = a * fs
	if cDot < 0 {
		y = -y
	}
	t = s * s * cDot / 2
	return
}

// fresnel returns the Fresnel integrals S(x), C(x) via truncated power series
// (Abramowitz & Stegun 7.3). Sufficient precision for arclengths of the size
// OpenDRIVE spirals actually use.
func fresnel(x float64) (s, c float64) {
	sign := 1.0
	if x < 0 {
		sign = -1.0
		x = -x
	}
	const terms = 12
	piOver2 := math.Pi / 2

	sSum, cSum := 0.0, 0.0
	for n := 0; n < terms; n++ {
		sign2 := 1.0
		if n%2 == 1 {
			sign2 = -1.0
		}
		fact2n1 := factorial(2*n + 1)
		sSum += sign2 * math.Pow(piOver2, float64(2*n+1)) * math.Pow(x, float64(4*n+3)) / (fact2n1 * float64(4*n+3))

		fact2n := factorial(2 * n)
		cSum += sign2 * math.Pow(piOver2, float64(2*n)) * math.Pow(x, float64(4*n+1)) / (fact2n * float64(4*n+1))
	}
	return sign * sSum, sign * cSum
}

func factorial(n int) float64 {
	f := 1.0
	for i := 2; i <= n; i++ {
		f *= float64(i)
	}
	return f
}

// discretizeArc samples a constant-curvature segment by stepping arclength in
// increments of resolution until Length is reached, per spec §4.1.
func discretizeArc(seg GeomSegment, resolution float64) []PolyVertex {
	k := seg.Curvature
	if k == 0 {
		return discretizeLine(seg, resolution)
	}
	r := 1.0 / k
	absR := math.Abs(r)

	tx, ty := math.Cos(seg.Hdg), math.Sin(seg.Hdg)
	var nx, ny float64
	if k >= 0 {
		nx, ny = -ty, tx
	} else {
		nx, ny = ty, -tx
	}
	cx := seg.X + absR*nx
	cy := seg.Y + absR*ny

	startAngle := math.Atan2(seg.Y-cy, seg.X-cx)
	dir := 1.0
	if k < 0 {
		dir = -1.0
	}

	var pts []PolyVertex
	ds := 0.0
	for {
		theta := startAngle + dir*ds/absR
		pts = append(pts, PolyVertex{
			X: cx + absR*math.Cos(theta),
			Y: cy + absR*math.Sin(theta),
			S: seg.S + ds,
		})
		if ds >= seg.Length {
			break
		}
		ds = math.Min(seg.Length, ds+resolution)
	}
	return pts
}

// discretizePoly3 evaluates v = f(u) in the road-local frame then rotates by Hdg
// and translates to (X,Y). Arclength is approximated by u, a documented
// limitation (spec §9's Z-axis note applies analogously in the plane here).
func discretizePoly3(seg GeomSegment, resolution float64) []PolyVertex {
	n := int(math.Ceil(seg.Length/resolution)) + 1
	if n < 2 {
		n = 2
	}
	pts := make([]PolyVertex, n)
	cosH, sinH := math.Cos(seg.Hdg), math.Sin(seg.Hdg)
	for i := 0; i < n; i++ {
		u := seg.Length * float64(i) / float64(n-1)
		v := seg.A + u*(seg.B+u*(seg.C+u*seg.D))
		x := seg.X + u*cosH - v*sinH
		y := seg.Y + u*sinH + v*cosH
		pts[i] = PolyVertex{X: x, Y: y, S: seg.S + u}
	}
	return pts
}

// discretizeParamPoly3 evaluates u(p), v(p) over p in [0,1] (normalized, the
// default when unspecified) or [0,Length] (arcLength), per spec §4.1.
func discretizeParamPoly3(seg GeomSegment, resolution float64) []PolyVertex {
	pEnd := 1.0
	if seg.PRangeArcLength {
		pEnd = seg.Length
	}
	n := int(math.Ceil(seg.Length/resolution)) + 1
	if n < 2 {
		n = 2
	}
	pts := make([]PolyVertex, n)
	cosH, sinH := math.Cos(seg.Hdg), math.Sin(seg.Hdg)
	for i := 0; i < n; i++ {
		frac := float64(i) / float64(n-1)
		p := pEnd * frac
		u := seg.AU + p*(seg.BU+p*(seg.CU+p*seg.DU))
		v := seg.AV + p*(seg.BV+p*(seg.CV+p*seg.DV))
		x := seg.X + u*cosH - v*sinH
		y := seg.Y + u*sinH + v*cosH
		pts[i] = PolyVertex{X: x, Y: y, S: seg.S + seg.Length*frac}
	}
	return pts
}

// applyElevation lifts a road's 2D vertices to 3D using its elevation
// polynomials, anchored at increasing s (spec §4.1). Vertices before the first
// elevation record get z = 0.
func applyElevation(r *Road) {
	if len(r.Elevation) == 0 {
		return
	}
	for i := range r.Vertices {
		v := &r.Vertices[i]
		if rec, ok := activeCubic(r.Elevation, v.S); ok {
			v.Z = rec.Eval(v.S)
		}
	}
}

// applyLaneOffset shifts the reference line laterally using the lane-offset
// polynomials (spec §4.1). Positive offset shifts toward the left of travel,
// along the left normal of the local tangent.
// The shift happens in the XY plane only; Z is left untouched (spec §9's
// documented limitation, reproduced here for the lateral pass as well).
func applyLaneOffset(r *Road, warn Warner) {
	if len(r.LaneOffsets) == 0 {
		return
	}
	insertOffsetAnchors(r)

	for i := range r.Vertices {
		v := &r.Vertices[i]
		rec, ok := activeCubic(r.LaneOffsets, v.S)
		if !ok {
			continue
		}
		offset := rec.Eval(v.S)
		if offset == 0 {
			continue
		}
		line := verticesToLineString(r.Vertices)
		nx, ny, ok := tangentAt(line, i)
		if !ok {
			warn.Warn("lane offset shift failed on road %s at s=%.3f: degenerate tangent", r.ID, v.S)
			continue
		}
		// left normal = (-ty, tx); a positive offset moves the vertex left.
		lnx, lny := -ny, nx
		v.X += lnx * offset
		v.Y += lny * offset
	}
}

// insertOffsetAnchors ensures an intermediate polyline vertex exists at every
// lane-offset anchor position, inserting the closest-projection point when the
// nearest existing vertex is farther than positionEPS (spec §4.1).
func insertOffsetAnchors(r *Road) {
	for _, rec := range r.LaneOffsets {
		if nearestVertexDistance(r.Vertices, rec.S) > positionEPS {
			insertVertexAtArclength(r, rec.S)
		}
	}
}

func nearestVertexDistance(vs []PolyVertex, s float64) float64 {
	best := math.Inf(1)
	for _, v := range vs {
		d := math.Abs(v.S - s)
		if d < best {
			best = d
		}
	}
	return best
}

func insertVertexAtArclength(r *Road, s float64) {
	for i := 1; i < len(r.Vertices); i++ {
		a, b := r.Vertices[i-1], r.Vertices[i]
		if s < a.S || s > b.S {
			continue
		}
		span := b.S - a.S
		if span <= 0 {
			return
		}
		frac := (s - a.S) / span
		nv := PolyVertex{
			X: a.X + frac*(b.X-a.X),
			Y: a.Y + frac*(b.Y-a.Y),
			Z: a.Z + frac*(b.Z-a.Z),
			S: s,
		}
		r.Vertices = append(r.Vertices, PolyVertex{})
		copy(r.Vertices[i+1:], r.Vertices[i:])
		r.Vertices[i] = nv
		return
	}
}

func verticesToLineString(vs []PolyVertex) orb.LineString {
	line := make(orb.LineString, len(vs))
	for i, v := range vs {
		line[i] = orb.Point{v.X, v.Y}
	}
	return line
}

// applyProjection converts every vertex via the injected projection helper. If
// projection fails for any vertex the road's geometry is discarded entirely
// (spec §4.1/§7).
func applyProjection(r *Road, project ProjectionFunc, warn Warner) {
	if project == nil {
		project = IdentityProjection
	}
	line := make(orb.LineString, len(r.Vertices))
	ss := make([]float64, len(r.Vertices))
	for i, v := range r.Vertices {
		lon, lat, err := project(v.X, v.Y)
		if err != nil {
			warn.Warn("projection failed for road %s at s=%.3f: %v; discarding geometry", r.ID, v.S, err)
			r.Polyline = nil
			r.PolylineS = nil
			r.Vertices = nil
			return
		}
		line[i] = orb.Point{lon, lat}
		ss[i] = v.S
	}
	r.Polyline = line
	r.PolylineS = ss
}
