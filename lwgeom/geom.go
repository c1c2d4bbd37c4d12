package lwgeom

import (
	"sync/atomic"

	"github.com/wegman-software/lwgeom-go/internal/engine"
)

// Geom owns one engine geometry. The geometry is released exactly once, by
// the first call to Close.
//
// A Geom may be passed between goroutines and read from several at once.
// SetSRID must not race with other calls on the same Geom.
type Geom struct {
	ctx *Context
	ptr atomic.Uint64
}

func newGeom(ctx *Context, p engine.Ptr) *Geom {
	g := &Geom{ctx: ctx}
	g.ptr.Store(uint64(p))
	return g
}

// live returns the engine reference, panicking if g was closed.
func (g *Geom) live() engine.Ptr {
	p := engine.Ptr(g.ptr.Load())
	if p == engine.Null {
		closedPanic("Geom")
	}
	return p
}

// Close releases the geometry. Further calls, and calls on a nil Geom, are
// no-ops; any other method panics once Close has been called.
func (g *Geom) Close() error {
	if g == nil {
		return nil
	}
	if p := engine.Ptr(g.ptr.Swap(0)); p != engine.Null {
		g.ctx.eng.FreeGeom(p)
	}
	return nil
}

// Closed reports whether Close has been called.
func (g *Geom) Closed() bool {
	return g.ptr.Load() == 0
}

// HasSRID reports whether the geometry carries a spatial reference.
func (g *Geom) HasSRID() bool {
	return g.ctx.eng.HasSRID(g.live())
}

// SRID returns the spatial reference, ok is false when none is set.
func (g *Geom) SRID() (srid int32, ok bool) {
	return sridOf(g.ctx, g.live())
}

// SetSRID assigns srid without validating it. Zero clears the SRID. Parts
// already borrowed through Ref, RingN or GeomN see the new value.
func (g *Geom) SetSRID(srid int32) {
	g.ctx.eng.SetSRID(g.live(), srid)
}

// BBox borrows the cached bounding box.
func (g *Geom) BBox() (*BoxRef, error) {
	return bboxOf(g.ctx, g.live())
}

// GeometryType returns the WKT type name, e.g. "POLYGON".
func (g *Geom) GeometryType() string {
	return g.ctx.eng.TypeName(g.live())
}

// Ref returns a borrowed view of the whole geometry.
func (g *Geom) Ref() *Ref {
	return &Ref{ctx: g.ctx, ptr: g.live()}
}

// NumRings returns the ring count of a polygon, zero for other types.
func (g *Geom) NumRings() int {
	return g.Ref().NumRings()
}

// RingN borrows ring i of a polygon as a linestring; ring 0 is the exterior.
// It returns nil when g is not a polygon or i is out of range.
func (g *Geom) RingN(i int) *Ref {
	return g.Ref().RingN(i)
}

// NumGeoms returns the member count of a multi-geometry or collection, one
// for any other non-empty geometry.
func (g *Geom) NumGeoms() int {
	return g.Ref().NumGeoms()
}

// GeomN borrows member i of a multi-geometry or collection. It returns nil
// when g is not a collection or i is out of range.
func (g *Geom) GeomN(i int) *Ref {
	return g.Ref().GeomN(i)
}

// Clone returns an independent copy owned by the caller, including the SRID.
func (g *Geom) Clone() (*Geom, error) {
	data, err := g.AsEWKB()
	if err != nil {
		return nil, err
	}
	return g.ctx.FromEWKB(data)
}

func (g *Geom) String() string {
	if g.Closed() {
		return "<closed>"
	}
	s, err := g.AsEWKT()
	if err != nil {
		return "<invalid>"
	}
	return s
}

func sridOf(ctx *Context, p engine.Ptr) (int32, bool) {
	srid := ctx.eng.GetSRID(p)
	if srid == engine.SRIDUnknown {
		return 0, false
	}
	return srid, true
}
