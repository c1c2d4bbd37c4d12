package lwgeom

import (
	"github.com/wegman-software/lwgeom-go/internal/engine"
)

// Ref is a borrowed view of a geometry owned by a Geom, possibly one of its
// parts. It never releases memory. Using a Ref after its owner is closed
// panics.
type Ref struct {
	ctx *Context
	ptr engine.Ptr
}

// HasSRID reports whether the referenced geometry carries a spatial reference.
func (r *Ref) HasSRID() bool {
	return r.ctx.eng.HasSRID(r.ptr)
}

// SRID returns the spatial reference, ok is false when none is set.
func (r *Ref) SRID() (srid int32, ok bool) {
	return sridOf(r.ctx, r.ptr)
}

// SetSRID assigns srid to the referenced geometry and its parts, never to
// the geometry it was borrowed from.
func (r *Ref) SetSRID(srid int32) {
	r.ctx.eng.SetSRID(r.ptr, srid)
}

// BBox borrows the cached bounding box.
func (r *Ref) BBox() (*BoxRef, error) {
	return bboxOf(r.ctx, r.ptr)
}

// GeometryType returns the WKT type name.
func (r *Ref) GeometryType() string {
	return r.ctx.eng.TypeName(r.ptr)
}

// AsText serializes the referenced geometry as ISO WKT.
func (r *Ref) AsText(opts ...EncodeOption) (string, error) {
	return r.ctx.toWKT(r.ptr, engine.WKTISO, opts)
}

// AsEWKT serializes the referenced geometry as extended WKT.
func (r *Ref) AsEWKT(opts ...EncodeOption) (string, error) {
	return r.ctx.toWKT(r.ptr, engine.WKTExtended, opts)
}

// NumRings returns the ring count of a polygon, zero for other types.
func (r *Ref) NumRings() int {
	if r.GeometryType() != "POLYGON" {
		return 0
	}
	return r.ctx.eng.NumParts(r.ptr)
}

// RingN borrows ring i of a polygon.
func (r *Ref) RingN(i int) *Ref {
	if r.GeometryType() != "POLYGON" {
		return nil
	}
	return r.part(i)
}

// NumGeoms returns the member count of a multi-geometry or collection.
func (r *Ref) NumGeoms() int {
	if !isCollection(r.GeometryType()) {
		if _, err := r.BBox(); err != nil {
			return 0
		}
		return 1
	}
	return r.ctx.eng.NumParts(r.ptr)
}

// GeomN borrows member i of a multi-geometry or collection.
func (r *Ref) GeomN(i int) *Ref {
	if !isCollection(r.GeometryType()) {
		return nil
	}
	return r.part(i)
}

func (r *Ref) part(i int) *Ref {
	p := r.ctx.eng.SubGeom(r.ptr, i)
	if p == engine.Null {
		return nil
	}
	return &Ref{ctx: r.ctx, ptr: p}
}

func isCollection(typeName string) bool {
	switch typeName {
	case "MULTIPOINT", "MULTILINESTRING", "MULTIPOLYGON", "GEOMETRYCOLLECTION":
		return true
	default:
		return false
	}
}
