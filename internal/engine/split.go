package engine

import (
	"math"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/twpayne/go-geom"
)

// ErrLinearIntersection is returned when a splitting line overlaps the input
// along a segment rather than crossing it.
var ErrLinearIntersection = errors.New("Splitter line has linear intersection with input")

// Split cuts the lines of in wherever blade touches them and returns the
// pieces as a new GEOMETRYCOLLECTION carrying the SRID of in. Lines and
// multilines can be split by points, multipoints, lines and multilines.
func (e *Engine) Split(in, blade Ptr) (Ptr, error) {
	e.mu.RLock()
	n, b := e.resolveLocked(in), e.resolveLocked(blade)
	e.mu.RUnlock()

	srid, bladeSRID := n.srid.Load(), b.srid.Load()
	if srid != bladeSRID {
		return Null, errors.Newf("Operation on mixed SRID geometries (%s, %d) != (%s, %d)",
			typeName(n.g), srid, typeName(b.g), bladeSRID)
	}

	var lines []*geom.LineString
	switch g := n.g.(type) {
	case *geom.LineString:
		lines = []*geom.LineString{g}
	case *geom.MultiLineString:
		for i := 0; i < g.NumLineStrings(); i++ {
			lines = append(lines, g.LineString(i))
		}
	default:
		return Null, errors.Newf("Splitting a %s by a %s is unsupported", typeName(n.g), typeName(b.g))
	}

	var locate func(ls *geom.LineString) ([]cut, error)
	switch bg := b.g.(type) {
	case *geom.Point:
		locate = func(ls *geom.LineString) ([]cut, error) {
			return pointCuts(ls, [][]float64{bg.FlatCoords()}), nil
		}
	case *geom.MultiPoint:
		locate = func(ls *geom.LineString) ([]cut, error) {
			pts := make([][]float64, 0, bg.NumPoints())
			for i := 0; i < bg.NumPoints(); i++ {
				pts = append(pts, bg.Point(i).FlatCoords())
			}
			return pointCuts(ls, pts), nil
		}
	case *geom.LineString:
		locate = func(ls *geom.LineString) ([]cut, error) {
			return lineCuts(ls, []*geom.LineString{bg})
		}
	case *geom.MultiLineString:
		locate = func(ls *geom.LineString) ([]cut, error) {
			blades := make([]*geom.LineString, 0, bg.NumLineStrings())
			for i := 0; i < bg.NumLineStrings(); i++ {
				blades = append(blades, bg.LineString(i))
			}
			return lineCuts(ls, blades)
		}
	default:
		return Null, errors.Newf("Splitting a %s by a %s is unsupported", typeName(n.g), typeName(b.g))
	}

	out := geom.NewGeometryCollection()
	for _, ls := range lines {
		if ls.Empty() {
			continue
		}
		cuts, err := locate(ls)
		if err != nil {
			return Null, err
		}
		for _, piece := range cutLine(ls, cuts) {
			if err := out.Push(piece); err != nil {
				return Null, errors.Wrap(err, "split")
			}
		}
	}
	return e.newNode(out, srid), nil
}

// cut is a position along a line: segment index and parameter within it.
type cut struct {
	seg int
	t   float64
}

const splitTolerance = 1e-12

func pointCuts(ls *geom.LineString, pts [][]float64) []cut {
	flat, stride := ls.FlatCoords(), ls.Stride()
	var cuts []cut
	for _, p := range pts {
		if len(p) < 2 || math.IsNaN(p[0]) {
			continue
		}
		for i := 0; i+2*stride <= len(flat); i += stride {
			ax, ay := flat[i], flat[i+1]
			bx, by := flat[i+stride], flat[i+stride+1]
			dx, dy := bx-ax, by-ay
			lenSq := dx*dx + dy*dy
			if lenSq == 0 {
				continue
			}
			px, py := p[0]-ax, p[1]-ay
			cross := dx*py - dy*px
			if math.Abs(cross) > splitTolerance*(math.Abs(dx)+math.Abs(dy))*(math.Abs(px)+math.Abs(py)+1) {
				continue
			}
			t := (px*dx + py*dy) / lenSq
			if t < 0 || t > 1 {
				continue
			}
			cuts = append(cuts, cut{seg: i / stride, t: t})
			break
		}
	}
	return cuts
}

func lineCuts(ls *geom.LineString, blades []*geom.LineString) ([]cut, error) {
	flat, stride := ls.FlatCoords(), ls.Stride()
	var cuts []cut
	for _, blade := range blades {
		bf, bs := blade.FlatCoords(), blade.Stride()
		for i := 0; i+2*stride <= len(flat); i += stride {
			ax, ay := flat[i], flat[i+1]
			rx, ry := flat[i+stride]-ax, flat[i+stride+1]-ay
			rr := rx*rx + ry*ry
			if rr == 0 {
				continue
			}
			for j := 0; j+2*bs <= len(bf); j += bs {
				cx, cy := bf[j], bf[j+1]
				sx, sy := bf[j+bs]-cx, bf[j+bs+1]-cy
				qx, qy := cx-ax, cy-ay
				denom := rx*sy - ry*sx
				if denom == 0 {
					if qx*ry-qy*rx != 0 {
						continue
					}
					// Collinear: project the blade segment onto this segment.
					t0 := (qx*rx + qy*ry) / rr
					t1 := t0 + (sx*rx+sy*ry)/rr
					lo, hi := math.Max(0, math.Min(t0, t1)), math.Min(1, math.Max(t0, t1))
					switch {
					case hi > lo:
						return nil, ErrLinearIntersection
					case hi == lo:
						cuts = append(cuts, cut{seg: i / stride, t: lo})
					}
					continue
				}
				t := (qx*sy - qy*sx) / denom
				u := (qx*ry - qy*rx) / denom
				if t >= 0 && t <= 1 && u >= 0 && u <= 1 {
					cuts = append(cuts, cut{seg: i / stride, t: t})
				}
			}
		}
	}
	return cuts, nil
}

// cutLine splits ls at cuts. Cuts at either end of the line are ignored;
// with no effective cut the line is returned whole.
func cutLine(ls *geom.LineString, cuts []cut) []*geom.LineString {
	flat, stride, layout := ls.FlatCoords(), ls.Stride(), ls.Layout()
	nseg := len(flat)/stride - 1

	norm := cuts[:0:0]
	for _, c := range cuts {
		if c.t >= 1 {
			c.seg, c.t = c.seg+1, 0
		}
		if (c.seg == 0 && c.t <= 0) || c.seg >= nseg {
			continue
		}
		norm = append(norm, c)
	}
	sort.Slice(norm, func(i, j int) bool {
		if norm[i].seg != norm[j].seg {
			return norm[i].seg < norm[j].seg
		}
		return norm[i].t < norm[j].t
	})

	var pieces []*geom.LineString
	current := append([]float64(nil), flat[:stride]...)
	emit := func(start []float64) {
		pieces = append(pieces, geom.NewLineStringFlat(layout, current))
		current = append([]float64(nil), start...)
	}

	k := 0
	for seg := 0; seg < nseg; seg++ {
		a, b := flat[seg*stride:(seg+1)*stride], flat[(seg+1)*stride:(seg+2)*stride]
		lastT := -1.0
		for ; k < len(norm) && norm[k].seg == seg; k++ {
			t := norm[k].t
			if t == lastT {
				continue
			}
			lastT = t
			if t == 0 {
				emit(a)
				continue
			}
			p := make([]float64, stride)
			for d := range p {
				p[d] = a[d] + (b[d]-a[d])*t
			}
			current = append(current, p...)
			emit(p)
		}
		current = append(current, b...)
	}
	return append(pieces, geom.NewLineStringFlat(layout, current))
}
