package opendrive

import (
	"encoding/xml"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// LoadFile opens fileName and streams it through Load (spec §6's event source).
func LoadFile(fileName string, warn Warner) (RoadTable, map[string][]innerConnection, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "opening %s", fileName)
	}
	defer f.Close()
	return Load(f, warn)
}

// Load streams an OpenDRIVE document from r using encoding/xml's token
// decoder, dispatching on the top-level <road> and <junction> elements
// (spec §6's tag set) rather than unmarshalling the whole document into
// memory at once, since OpenDRIVE files for real networks run into the
// hundreds of megabytes.
func Load(r io.Reader, warn Warner) (RoadTable, map[string][]innerConnection, error) {
	if warn == nil {
		warn = NewStderrWarner()
	}
	table := RoadTable{}
	rawConnections := map[string][]innerConnection{}

	decoder := xml.NewDecoder(r)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, errors.Wrap(err, "reading OpenDRIVE token stream")
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "road":
			var xr xmlRoad
			if err := decoder.DecodeElement(&xr, &se); err != nil {
				return nil, nil, errors.Wrapf(err, "decoding road element")
			}
			road := convertRoad(xr, warn)
			table[road.ID] = road
		case "junction":
			var xj xmlJunction
			if err := decoder.DecodeElement(&xj, &se); err != nil {
				return nil, nil, errors.Wrapf(err, "decoding junction element")
			}
			convertJunction(xj, rawConnections, warn)
		case "geoReference":
			var text string
			if err := decoder.DecodeElement(&text, &se); err != nil {
				return nil, nil, errors.Wrapf(err, "decoding geoReference element")
			}
			if text != "" {
				warn.Warn("geoReference %q present; no projection configured falls back to identity", text)
			}
		}
	}
	return table, rawConnections, nil
}

// --- wire schema (spec §6's tag set) ---

type xmlRoad struct {
	ID         string `xml:"id,attr"`
	Name       string `xml:"name,attr"`
	Length     string `xml:"length,attr"`
	JunctionID string `xml:"junction,attr"`

	Link struct {
		Predecessor *xmlLink `xml:"predecessor"`
		Successor   *xmlLink `xml:"successor"`
	} `xml:"link"`

	PlanView struct {
		Geometry []xmlGeometry `xml:"geometry"`
	} `xml:"planView"`

	ElevationProfile struct {
		Elevation []xmlPoly `xml:"elevation"`
	} `xml:"elevationProfile"`

	Lanes struct {
		LaneOffset  []xmlPoly        `xml:"laneOffset"`
		LaneSection []xmlLaneSection `xml:"laneSection"`
	} `xml:"lanes"`

	Signals struct {
		Signal []xmlSignal `xml:"signal"`
	} `xml:"signals"`

	Objects struct {
		Object []xmlObject `xml:"object"`
	} `xml:"objects"`
}

type xmlLink struct {
	ElementType  string `xml:"elementType,attr"`
	ElementID    string `xml:"elementId,attr"`
	ContactPoint string `xml:"contactPoint,attr"`
}

type xmlGeometry struct {
	S      string `xml:"s,attr"`
	X      string `xml:"x,attr"`
	Y      string `xml:"y,attr"`
	Hdg    string `xml:"hdg,attr"`
	Length string `xml:"length,attr"`

	Line *struct{} `xml:"line"`

	Spiral *struct {
		CurvStart string `xml:"curvStart,attr"`
		CurvEnd   string `xml:"curvEnd,attr"`
	} `xml:"spiral"`

	Arc *struct {
		Curvature string `xml:"curvature,attr"`
	} `xml:"arc"`

	Poly3 *struct {
		A string `xml:"a,attr"`
		B string `xml:"b,attr"`
		C string `xml:"c,attr"`
		D string `xml:"d,attr"`
	} `xml:"poly3"`

	ParamPoly3 *struct {
		AU     string `xml:"aU,attr"`
		BU     string `xml:"bU,attr"`
		CU     string `xml:"cU,attr"`
		DU     string `xml:"dU,attr"`
		AV     string `xml:"aV,attr"`
		BV     string `xml:"bV,attr"`
		CV     string `xml:"cV,attr"`
		DV     string `xml:"dV,attr"`
		PRange string `xml:"pRange,attr"`
	} `xml:"paramPoly3"`
}

// xmlPoly covers <elevation>/<laneOffset>/<width>, which all share the
// s/sOffset + a/b/c/d cubic shape.
type xmlPoly struct {
	S       string `xml:"s,attr"`
	SOffset string `xml:"sOffset,attr"`
	A       string `xml:"a,attr"`
	B       string `xml:"b,attr"`
	C       string `xml:"c,attr"`
	D       string `xml:"d,attr"`
}

type xmlLaneSection struct {
	S     string `xml:"s,attr"`
	Left  *xmlLaneSide `xml:"left"`
	Center *xmlLaneSide `xml:"center"`
	Right *xmlLaneSide `xml:"right"`
}

type xmlLaneSide struct {
	Lane []xmlLane `xml:"lane"`
}

type xmlLane struct {
	ID    string `xml:"id,attr"`
	Type  string `xml:"type,attr"`
	Link  struct {
		Predecessor *struct {
			ID string `xml:"id,attr"`
		} `xml:"predecessor"`
		Successor *struct {
			ID string `xml:"id,attr"`
		} `xml:"successor"`
	} `xml:"link"`
	Width []xmlPoly `xml:"width"`
	Speed []xmlSpeed `xml:"speed"`
}

type xmlSpeed struct {
	SOffset string `xml:"sOffset,attr"`
	Max     string `xml:"max,attr"`
	Unit    string `xml:"unit,attr"`
}

type xmlSignal struct {
	ID          string `xml:"id,attr"`
	S           string `xml:"s,attr"`
	Orientation string `xml:"orientation,attr"`
	Type        string `xml:"type,attr"`
}

type xmlObject struct {
	ID     string `xml:"id,attr"`
	S      string `xml:"s,attr"`
	Type   string `xml:"type,attr"`
	Repeat *struct {
		Distance string `xml:"distance,attr"`
		Length   string `xml:"length,attr"`
	} `xml:"repeat"`
}

type xmlJunction struct {
	ID         string            `xml:"id,attr"`
	Connection []xmlConnectionEl `xml:"connection"`
}

type xmlConnectionEl struct {
	ID             string `xml:"id,attr"`
	IncomingRoad   string `xml:"incomingRoad,attr"`
	ConnectingRoad string `xml:"connectingRoad,attr"`
	ContactPoint   string `xml:"contactPoint,attr"`
	LaneLink       []struct {
		From string `xml:"from,attr"`
		To   string `xml:"to,attr"`
	} `xml:"laneLink"`
}

// --- conversion to the domain model ---

func parseFloatLenient(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// speedToMPS converts a <speed max unit> attribute pair to metres/second
// (spec §6: km/h divides by 3.6, mph multiplies by 1.609344/3.6). An empty
// or "ms"/"m/s" unit is assumed to already be metres/second.
func speedToMPS(maxStr, unit string) float64 {
	v := parseFloatLenient(maxStr)
	switch unit {
	case "km/h":
		return v / 3.6
	case "mph":
		return v * 1.609344 / 3.6
	default:
		return v
	}
}

func convertRoad(xr xmlRoad, warn Warner) *Road {
	r := &Road{
		ID:         xr.ID,
		Name:       xr.Name,
		JunctionID: xr.JunctionID,
		Length:     parseFloatLenient(xr.Length),
	}

	if xr.Link.Predecessor != nil {
		r.Links = append(r.Links, convertLink(*xr.Link.Predecessor, LinkPredecessor))
		r.predecessorRoadID = xr.Link.Predecessor.ElementID
	}
	if xr.Link.Successor != nil {
		r.Links = append(r.Links, convertLink(*xr.Link.Successor, LinkSuccessor))
		r.successorRoadID = xr.Link.Successor.ElementID
	}

	for _, g := range xr.PlanView.Geometry {
		seg, ok := convertGeometry(g, warn, xr.ID)
		if ok {
			r.Geometry = append(r.Geometry, seg)
		}
	}

	for _, e := range xr.ElevationProfile.Elevation {
		r.Elevation = append(r.Elevation, convertPoly(e, true))
	}

	for _, lo := range xr.Lanes.LaneOffset {
		r.LaneOffsets = append(r.LaneOffsets, convertPoly(lo, true))
	}

	for _, ls := range xr.Lanes.LaneSection {
		r.LaneSections = append(r.LaneSections, convertLaneSection(ls))
	}

	for _, sig := range xr.Signals.Signal {
		r.Signals = append(r.Signals, Signal{
			ID:          sig.ID,
			S:           parseFloatLenient(sig.S),
			Orientation: parseFloatLenient(sig.Orientation),
			Type:        sig.Type,
		})
	}

	for _, obj := range xr.Objects.Object {
		ro := RoadObject{ID: obj.ID, S: parseFloatLenient(obj.S), Type: obj.Type}
		if obj.Repeat != nil {
			ro.Repeat = &RoadObjectRepeat{
				Distance: parseFloatLenient(obj.Repeat.Distance),
				Length:   parseFloatLenient(obj.Repeat.Length),
			}
		}
		r.Objects = append(r.Objects, ro)
	}

	return r
}

func convertLink(l xmlLink, dir LinkDirection) Link {
	target := LinkTargetRoad
	if l.ElementType == "junction" {
		target = LinkTargetJunction
	}
	cp := ContactStart
	if l.ContactPoint == "end" {
		cp = ContactEnd
	}
	return Link{
		Direction:    dir,
		TargetType:   target,
		TargetID:     l.ElementID,
		ContactPoint: cp,
	}
}

func convertGeometry(g xmlGeometry, warn Warner, roadID string) (GeomSegment, bool) {
	seg := GeomSegment{
		S:      parseFloatLenient(g.S),
		X:      parseFloatLenient(g.X),
		Y:      parseFloatLenient(g.Y),
		Hdg:    parseFloatLenient(g.Hdg),
		Length: parseFloatLenient(g.Length),
	}
	switch {
	case g.Line != nil:
		seg.Kind = GeomLine
	case g.Spiral != nil:
		seg.Kind = GeomSpiral
		seg.CurvStart = parseFloatLenient(g.Spiral.CurvStart)
		seg.CurvEnd = parseFloatLenient(g.Spiral.CurvEnd)
	case g.Arc != nil:
		seg.Kind = GeomArc
		seg.Curvature = parseFloatLenient(g.Arc.Curvature)
	case g.Poly3 != nil:
		seg.Kind = GeomPoly3
		seg.A = parseFloatLenient(g.Poly3.A)
		seg.B = parseFloatLenient(g.Poly3.B)
		seg.C = parseFloatLenient(g.Poly3.C)
		seg.D = parseFloatLenient(g.Poly3.D)
	case g.ParamPoly3 != nil:
		seg.Kind = GeomParamPoly3
		seg.AU = parseFloatLenient(g.ParamPoly3.AU)
		seg.BU = parseFloatLenient(g.ParamPoly3.BU)
		seg.CU = parseFloatLenient(g.ParamPoly3.CU)
		seg.DU = parseFloatLenient(g.ParamPoly3.DU)
		seg.AV = parseFloatLenient(g.ParamPoly3.AV)
		seg.BV = parseFloatLenient(g.ParamPoly3.BV)
		seg.CV = parseFloatLenient(g.ParamPoly3.CV)
		seg.DV = parseFloatLenient(g.ParamPoly3.DV)
		seg.PRangeArcLength = g.ParamPoly3.PRange == "arcLength"
	default:
		warn.Warn("road %s geometry at s=%.3f has no recognized kind, skipping", roadID, seg.S)
		return GeomSegment{}, false
	}
	return seg, true
}

func convertPoly(p xmlPoly, useS bool) Cubic {
	anchor := p.S
	if !useS {
		anchor = p.SOffset
	}
	return Cubic{
		S: parseFloatLenient(anchor),
		A: parseFloatLenient(p.A),
		B: parseFloatLenient(p.B),
		C: parseFloatLenient(p.C),
		D: parseFloatLenient(p.D),
	}
}

func convertLaneSection(ls xmlLaneSection) LaneSection {
	sec := LaneSection{S: parseFloatLenient(ls.S)}
	sec.SOrig = sec.S
	if ls.Left != nil {
		for _, l := range ls.Left.Lane {
			sec.Left = append(sec.Left, convertLane(l))
		}
	}
	if ls.Center != nil {
		for _, l := range ls.Center.Lane {
			sec.Center = append(sec.Center, convertLane(l))
		}
	}
	if ls.Right != nil {
		for _, l := range ls.Right.Lane {
			sec.Right = append(sec.Right, convertLane(l))
		}
	}
	return sec
}

func convertLane(l xmlLane) Lane {
	lane := Lane{
		ID:   int(parseFloatLenient(l.ID)),
		Type: l.Type,
	}
	if l.Link.Predecessor != nil {
		lane.Predecessor = l.Link.Predecessor.ID
	}
	if l.Link.Successor != nil {
		lane.Successor = l.Link.Successor.ID
	}
	for _, w := range l.Width {
		lane.Widths = append(lane.Widths, convertPoly(w, false))
	}
	for _, sp := range l.Speed {
		lane.Speeds = append(lane.Speeds, speedChangeEntry{
			SOffset: parseFloatLenient(sp.SOffset),
			Speed:   speedToMPS(sp.Max, sp.Unit),
		})
	}
	return lane
}

// convertJunction turns a <junction>'s <connection>/<laneLink> children into
// innerConnection records, keyed by the incoming (outer) road id, matching
// the shape the Connection Flattener walks (spec §4.5/§6).
func convertJunction(xj xmlJunction, rawConnections map[string][]innerConnection, warn Warner) {
	for _, c := range xj.Connection {
		cp := ContactStart
		if c.ContactPoint == "end" {
			cp = ContactEnd
		}
		if len(c.LaneLink) == 0 {
			rawConnections[c.IncomingRoad] = append(rawConnections[c.IncomingRoad], innerConnection{
				FromEdge: c.IncomingRoad, ToEdge: c.ConnectingRoad, ToContactPoint: cp, All: true,
			})
			continue
		}
		for _, ll := range c.LaneLink {
			from := int(parseFloatLenient(ll.From))
			to := int(parseFloatLenient(ll.To))
			rawConnections[c.IncomingRoad] = append(rawConnections[c.IncomingRoad], innerConnection{
				FromEdge: c.IncomingRoad, FromLane: from,
				ToEdge: c.ConnectingRoad, ToLane: to, ToContactPoint: cp,
			})
		}
	}
}
