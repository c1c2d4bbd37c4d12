package engine

import (
	"math"

	"github.com/twpayne/go-geom"
)

// GBox is a 2D bounding box. Z extents are tracked when the geometry has a
// Z ordinate.
type GBox struct {
	XMin, XMax float64
	YMin, YMax float64

	HasZ       bool
	ZMin, ZMax float64
}

// computeBBox returns the box spanning every non-NaN vertex of g, nil when g
// has none.
func computeBBox(g geom.T) *GBox {
	var b *GBox
	walkCoords(g, func(layout geom.Layout, c []float64) {
		x, y := c[0], c[1]
		if math.IsNaN(x) || math.IsNaN(y) {
			return
		}
		zi := layout.ZIndex()
		if b == nil {
			b = &GBox{XMin: x, XMax: x, YMin: y, YMax: y}
			if zi >= 0 {
				b.HasZ = true
				b.ZMin, b.ZMax = c[zi], c[zi]
			}
			return
		}
		b.XMin, b.XMax = math.Min(b.XMin, x), math.Max(b.XMax, x)
		b.YMin, b.YMax = math.Min(b.YMin, y), math.Max(b.YMax, y)
		if zi >= 0 && b.HasZ {
			b.ZMin, b.ZMax = math.Min(b.ZMin, c[zi]), math.Max(b.ZMax, c[zi])
		}
	})
	return b
}

// walkCoords calls fn once per vertex of g, descending into collections.
func walkCoords(g geom.T, fn func(layout geom.Layout, c []float64)) {
	if gc, ok := g.(*geom.GeometryCollection); ok {
		for i := 0; i < gc.NumGeoms(); i++ {
			walkCoords(gc.Geom(i), fn)
		}
		return
	}
	layout := g.Layout()
	stride := layout.Stride()
	flat := g.FlatCoords()
	for i := 0; i+stride <= len(flat); i += stride {
		fn(layout, flat[i:i+stride])
	}
}
