package engine

import "github.com/twpayne/go-geom"

// NewEnvelope builds the rectangle (x1 y1, x2 y2) as a closed polygon with a
// single five-vertex ring.
func (e *Engine) NewEnvelope(srid int32, x1, y1, x2, y2 float64) Ptr {
	ring := []float64{
		x1, y1,
		x1, y2,
		x2, y2,
		x2, y1,
		x1, y1,
	}
	return e.newNode(geom.NewPolygonFlat(geom.XY, ring, []int{len(ring)}), srid)
}
