package engine

import (
	"math"
	"strconv"
	"strings"

	"github.com/twpayne/go-geom"
)

// Variant selects an output dialect. Values are flag bits and can be combined.
type Variant uint8

// WKT dialects.
const (
	WKTISO      Variant = 0x01
	WKTSFSQL    Variant = 0x02
	WKTExtended Variant = 0x04
)

// WKB dialects and byte orders.
const (
	WKBISO      Variant = 0x01
	WKBSFSQL    Variant = 0x02
	WKBExtended Variant = 0x04
	WKBNDR      Variant = 0x08
	WKBXDR      Variant = 0x10
)

// MaxPrecision caps the number of decimal digits written for an ordinate.
const MaxPrecision = 20

// ToWKT serializes p as WKT text in a NUL-terminated buffer. The returned size
// includes the terminator. The buffer must be released with FreeBuffer.
func (e *Engine) ToWKT(p Ptr, variant Variant, precision int) (*Buffer, int) {
	n := e.resolve(p)
	if variant&(WKTISO|WKTSFSQL|WKTExtended) == 0 {
		e.noticef("ToWKT: unknown variant %#x", variant)
		return nil, 0
	}
	w := wktWriter{variant: variant, precision: clampPrecision(precision)}
	if variant&WKTExtended != 0 {
		if srid := n.srid.Load(); srid != SRIDUnknown {
			w.sb.WriteString("SRID=")
			w.sb.WriteString(strconv.FormatInt(int64(srid), 10))
			w.sb.WriteByte(';')
		}
	}
	w.geometry(n.g, true)
	return e.newTextBuffer(w.sb.String())
}

func clampPrecision(p int) int {
	if p < 0 {
		return 0
	}
	if p > MaxPrecision {
		return MaxPrecision
	}
	return p
}

type wktWriter struct {
	sb        strings.Builder
	variant   Variant
	precision int
}

func (w *wktWriter) extended() bool { return w.variant&WKTExtended != 0 }

// header writes the type keyword and its dimension qualifier.
func (w *wktWriter) header(name string, layout geom.Layout) {
	w.sb.WriteString(name)
	switch {
	case w.extended():
		if layout == geom.XYM {
			w.sb.WriteByte('M')
		}
	case w.variant&WKTISO != 0:
		switch layout {
		case geom.XYZ:
			w.sb.WriteString(" Z ")
		case geom.XYM:
			w.sb.WriteString(" M ")
		case geom.XYZM:
			w.sb.WriteString(" ZM ")
		}
	}
}

func (w *wktWriter) empty() {
	s := w.sb.String()
	if last := s[len(s)-1]; last != ' ' && last != '(' && last != ',' {
		w.sb.WriteByte(' ')
	}
	w.sb.WriteString("EMPTY")
}

func (w *wktWriter) geometry(g geom.T, typed bool) {
	layout := g.Layout()
	if gc, ok := g.(*geom.GeometryCollection); ok {
		w.collection(gc)
		return
	}
	if typed {
		w.header(typeName(g), layout)
	}
	if len(g.FlatCoords()) == 0 {
		w.empty()
		return
	}
	stride := layout.Stride()

	switch g := g.(type) {
	case *geom.Point:
		w.coordList(g.FlatCoords(), stride)
	case *geom.LineString:
		w.coordList(g.FlatCoords(), stride)
	case *geom.Polygon:
		w.rings(g.FlatCoords(), 0, g.Ends(), stride)
	case *geom.MultiPoint:
		w.sb.WriteByte('(')
		flat := g.FlatCoords()
		for i := 0; i < len(flat); i += stride {
			if i > 0 {
				w.sb.WriteByte(',')
			}
			if w.extended() {
				w.coord(flat[i : i+stride])
			} else {
				w.coordList(flat[i:i+stride], stride)
			}
		}
		w.sb.WriteByte(')')
	case *geom.MultiLineString:
		w.rings(g.FlatCoords(), 0, g.Ends(), stride)
	case *geom.MultiPolygon:
		w.sb.WriteByte('(')
		flat, offset := g.FlatCoords(), 0
		for i, ends := range g.Endss() {
			if i > 0 {
				w.sb.WriteByte(',')
			}
			w.rings(flat, offset, ends, stride)
			if len(ends) > 0 {
				offset = ends[len(ends)-1]
			}
		}
		w.sb.WriteByte(')')
	}
}

func (w *wktWriter) collection(gc *geom.GeometryCollection) {
	w.header("GEOMETRYCOLLECTION", gc.Layout())
	if gc.NumGeoms() == 0 {
		w.empty()
		return
	}
	w.sb.WriteByte('(')
	for i := 0; i < gc.NumGeoms(); i++ {
		if i > 0 {
			w.sb.WriteByte(',')
		}
		w.geometry(gc.Geom(i), true)
	}
	w.sb.WriteByte(')')
}

// rings writes "((...),(...))" for the runs of flat delimited by ends.
func (w *wktWriter) rings(flat []float64, offset int, ends []int, stride int) {
	w.sb.WriteByte('(')
	for i, end := range ends {
		if i > 0 {
			w.sb.WriteByte(',')
		}
		w.coordList(flat[offset:end], stride)
		offset = end
	}
	w.sb.WriteByte(')')
}

func (w *wktWriter) coordList(flat []float64, stride int) {
	w.sb.WriteByte('(')
	for i := 0; i < len(flat); i += stride {
		if i > 0 {
			w.sb.WriteByte(',')
		}
		w.coord(flat[i : i+stride])
	}
	w.sb.WriteByte(')')
}

func (w *wktWriter) coord(c []float64) {
	for i, v := range c {
		if i > 0 {
			w.sb.WriteByte(' ')
		}
		w.sb.WriteString(FormatOrdinate(v, w.precision))
	}
}

// FormatOrdinate formats v with at most precision decimal digits, dropping
// trailing zeros. Negative zero is written as 0.
func FormatOrdinate(v float64, precision int) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	if math.Abs(v) >= 1e15 {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if dot := strings.IndexByte(s, '.'); dot >= 0 && len(s)-dot-1 > precision {
		s = strconv.FormatFloat(v, 'f', precision, 64)
		if strings.IndexByte(s, '.') >= 0 {
			s = strings.TrimRight(s, "0")
			s = strings.TrimSuffix(s, ".")
		}
	}
	if s == "-0" {
		return "0"
	}
	return s
}
