package engine

import (
	"encoding/hex"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"github.com/twpayne/go-geom/encoding/wkb"
	"github.com/twpayne/go-geom/encoding/wkbcommon"
)

var emptyPointAsNaN = wkbcommon.WKBOptionEmptyPointHandling(wkbcommon.EmptyPointHandlingNaN)

// FromWKB decodes EWKB or ISO WKB. Null is returned for input that cannot be
// decoded or fails check; the reason goes to the notice handler.
func (e *Engine) FromWKB(data []byte, check ParserCheck) Ptr {
	if len(data) == 0 {
		e.noticef("WKB structure does not match expected size")
		return Null
	}
	g, err := ewkb.Unmarshal(data)
	if err != nil {
		// ISO type codes (1001, 2001, ...) are not understood by the EWKB
		// decoder.
		iso, isoErr := wkb.Unmarshal(data, emptyPointAsNaN)
		if isoErr != nil {
			e.noticef("%v", err)
			return Null
		}
		g = iso
	}
	if code := validate(g, check); code != 0 {
		e.noticef("%s", parserErrorMessages[code])
		return Null
	}
	return e.newNode(g, int32(g.SRID()))
}

// FromHexWKB decodes hex-encoded EWKB. Both letter cases are accepted.
func (e *Engine) FromHexWKB(s string, check ParserCheck) Ptr {
	data, err := hex.DecodeString(s)
	if err != nil {
		e.noticef("invalid hex WKB: %v", err)
		return Null
	}
	return e.FromWKB(data, check)
}

// validate applies check to a decoded geometry and returns the parser error
// code of the first violation, zero if there is none.
func validate(g geom.T, check ParserCheck) int {
	switch g := g.(type) {
	case *geom.LineString:
		if check&CheckMinPoints != 0 && !g.Empty() && g.NumCoords() < 2 {
			return ErrMorePoints
		}
	case *geom.Polygon:
		for i := 0; i < g.NumLinearRings(); i++ {
			if code := validateRing(g.LinearRing(i), check); code != 0 {
				return code
			}
		}
	case *geom.MultiLineString:
		for i := 0; i < g.NumLineStrings(); i++ {
			if code := validate(g.LineString(i), check); code != 0 {
				return code
			}
		}
	case *geom.MultiPolygon:
		for i := 0; i < g.NumPolygons(); i++ {
			if code := validate(g.Polygon(i), check); code != 0 {
				return code
			}
		}
	case *geom.GeometryCollection:
		for i := 0; i < g.NumGeoms(); i++ {
			if code := validate(g.Geom(i), check); code != 0 {
				return code
			}
		}
	}
	return 0
}

func validateRing(r *geom.LinearRing, check ParserCheck) int {
	n := r.NumCoords()
	if check&CheckMinPoints != 0 && n < 4 {
		return ErrMorePoints
	}
	if n == 0 {
		return 0
	}
	first, last := r.Coord(0), r.Coord(n-1)
	if check&CheckClosure != 0 && (first.X() != last.X() || first.Y() != last.Y()) {
		return ErrUnclosed
	}
	if zi := r.Layout().ZIndex(); zi >= 0 && check&CheckZClosure != 0 && first[zi] != last[zi] {
		return ErrUnclosed
	}
	return 0
}
