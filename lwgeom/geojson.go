package lwgeom

import (
	"github.com/cockroachdb/errors"
)

// AsGeoJSON serializes g as a GeoJSON geometry object. The SRID is not
// written. Precision defaults to DefaultGeoJSONPrecision.
func (g *Geom) AsGeoJSON(opts ...EncodeOption) (string, error) {
	o := newEncodeOptions(DefaultGeoJSONPrecision, opts)
	buf, size := g.ctx.eng.ToGeoJSON(g.live(), o.precision)
	if buf == nil {
		return "", errors.Wrap(ErrNullPtr, "lwgeom_to_geojson")
	}
	defer g.ctx.eng.FreeBuffer(buf)
	return string(buf.Bytes()[:size-1]), nil
}
