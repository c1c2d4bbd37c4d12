package engine

import (
	"encoding/binary"
	"math"

	"github.com/twpayne/go-geom"
)

// WKB type constants (ISO SQL/MM)
const (
	wkbPoint              = 1
	wkbLineString         = 2
	wkbPolygon            = 3
	wkbMultiPoint         = 4
	wkbMultiLineString    = 5
	wkbMultiPolygon       = 6
	wkbGeometryCollection = 7

	// EWKB (PostGIS extended WKB) flags
	wkbZFlag    = 0x80000000
	wkbMFlag    = 0x40000000
	wkbSRIDFlag = 0x20000000
)

const (
	byteOrderXDR = 0x00
	byteOrderNDR = 0x01
)

// nanBits is the quiet NaN written for the ordinates of an empty point.
const nanBits = 0x7FF8000000000000

// wkbEncoder appends one geometry in WKB or EWKB form to buf.
type wkbEncoder struct {
	buf      []byte
	order    binary.AppendByteOrder
	orderTag byte
	extended bool
}

func newWKBEncoder(variant Variant, sizeHint int) *wkbEncoder {
	enc := &wkbEncoder{
		buf:      make([]byte, 0, sizeHint),
		order:    binary.LittleEndian,
		orderTag: byteOrderNDR,
		extended: variant&WKBExtended != 0,
	}
	if variant&WKBXDR != 0 {
		enc.order = binary.BigEndian
		enc.orderTag = byteOrderXDR
	}
	return enc
}

// ToWKBVarlena serializes p as WKB wrapped in a varlena. The varlena must be
// released with FreeVarlena.
func (e *Engine) ToWKBVarlena(p Ptr, variant Variant) *Varlena {
	n := e.resolve(p)
	if variant&(WKBISO|WKBSFSQL|WKBExtended) == 0 {
		e.noticef("ToWKBVarlena: unknown variant %#x", variant)
		return nil
	}
	enc := newWKBEncoder(variant, wkbSizeHint(n.g))
	enc.encode(n.g, n.srid.Load(), true)
	return e.newVarlena(enc.buf)
}

func wkbSizeHint(g geom.T) int {
	if _, ok := g.(*geom.GeometryCollection); ok {
		return 64
	}
	return 32 + 8*len(g.FlatCoords())
}

// typeWord builds the type word for g. SRIDs are only written on the outer
// geometry.
func (enc *wkbEncoder) typeWord(base uint32, layout geom.Layout, srid int32, outer bool) (uint32, bool) {
	withSRID := enc.extended && outer && srid != SRIDUnknown
	if !enc.extended {
		switch layout {
		case geom.XYZ:
			return base + 1000, false
		case geom.XYM:
			return base + 2000, false
		case geom.XYZM:
			return base + 3000, false
		}
		return base, false
	}
	t := base
	if layout.ZIndex() >= 0 {
		t |= wkbZFlag
	}
	if layout.MIndex() >= 0 {
		t |= wkbMFlag
	}
	if withSRID {
		t |= wkbSRIDFlag
	}
	return t, withSRID
}

func (enc *wkbEncoder) header(base uint32, layout geom.Layout, srid int32, outer bool) {
	enc.buf = append(enc.buf, enc.orderTag)
	t, withSRID := enc.typeWord(base, layout, srid, outer)
	enc.appendUint32(t)
	if withSRID {
		enc.appendUint32(uint32(srid))
	}
}

func (enc *wkbEncoder) encode(g geom.T, srid int32, outer bool) {
	layout := g.Layout()
	if layout == geom.NoLayout {
		layout = geom.XY
	}
	stride := layout.Stride()

	switch g := g.(type) {
	case *geom.Point:
		enc.header(wkbPoint, layout, srid, outer)
		if g.Empty() {
			// Empty points have no count field; they are written as NaN ordinates.
			for i := 0; i < stride; i++ {
				enc.appendUint64(nanBits)
			}
			return
		}
		enc.appendCoords(g.FlatCoords())
	case *geom.LineString:
		enc.header(wkbLineString, layout, srid, outer)
		enc.appendPointArray(g.FlatCoords(), stride)
	case *geom.Polygon:
		enc.header(wkbPolygon, layout, srid, outer)
		enc.appendRings(g.FlatCoords(), 0, g.Ends(), stride)
	case *geom.MultiPoint:
		enc.header(wkbMultiPoint, layout, srid, outer)
		enc.appendUint32(uint32(g.NumPoints()))
		for i := 0; i < g.NumPoints(); i++ {
			enc.encode(g.Point(i), srid, false)
		}
	case *geom.MultiLineString:
		enc.header(wkbMultiLineString, layout, srid, outer)
		enc.appendUint32(uint32(g.NumLineStrings()))
		for i := 0; i < g.NumLineStrings(); i++ {
			enc.encode(g.LineString(i), srid, false)
		}
	case *geom.MultiPolygon:
		enc.header(wkbMultiPolygon, layout, srid, outer)
		enc.appendUint32(uint32(g.NumPolygons()))
		for i := 0; i < g.NumPolygons(); i++ {
			enc.encode(g.Polygon(i), srid, false)
		}
	case *geom.GeometryCollection:
		enc.header(wkbGeometryCollection, layout, srid, outer)
		enc.appendUint32(uint32(g.NumGeoms()))
		for i := 0; i < g.NumGeoms(); i++ {
			enc.encode(g.Geom(i), srid, false)
		}
	}
}

func (enc *wkbEncoder) appendRings(flat []float64, offset int, ends []int, stride int) {
	enc.appendUint32(uint32(len(ends)))
	for _, end := range ends {
		enc.appendPointArray(flat[offset:end], stride)
		offset = end
	}
}

func (enc *wkbEncoder) appendPointArray(flat []float64, stride int) {
	enc.appendUint32(uint32(len(flat) / stride))
	enc.appendCoords(flat)
}

func (enc *wkbEncoder) appendCoords(flat []float64) {
	for _, v := range flat {
		enc.appendFloat64(v)
	}
}

func (enc *wkbEncoder) appendUint32(v uint32) {
	enc.buf = enc.order.AppendUint32(enc.buf, v)
}

func (enc *wkbEncoder) appendUint64(v uint64) {
	enc.buf = enc.order.AppendUint64(enc.buf, v)
}

func (enc *wkbEncoder) appendFloat64(v float64) {
	enc.appendUint64(math.Float64bits(v))
}
