package lwgeom

import (
	"github.com/cockroachdb/errors"
)

// Split cuts g wherever blade touches it and returns the pieces as a new
// GEOMETRYCOLLECTION with the SRID of g. g must be a line or multiline; blade
// may be a point, multipoint, line or multiline. Both must share a Context.
func (g *Geom) Split(blade *Geom) (*Geom, error) {
	if blade.ctx != g.ctx {
		return nil, errors.AssertionFailedf("lwgeom: Split across contexts")
	}
	p, err := g.ctx.eng.Split(g.live(), blade.live())
	if err != nil {
		return nil, errors.Wrap(err, "lwgeom_split")
	}
	return newGeom(g.ctx, p), nil
}
