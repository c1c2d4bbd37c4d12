package engine

import (
	"github.com/twpayne/go-geom/encoding/geojson"
)

// ToGeoJSON serializes p as a GeoJSON geometry object with at most precision
// decimal digits. Like ToWKT the buffer is NUL-terminated and its size
// includes the terminator.
func (e *Engine) ToGeoJSON(p Ptr, precision int) (*Buffer, int) {
	n := e.resolve(p)
	data, err := geojson.Marshal(n.g, geojson.EncodeGeometryWithMaxDecimalDigits(clampPrecision(precision)))
	if err != nil {
		e.noticef("ToGeoJSON: %v", err)
		return nil, 0
	}
	return e.newTextBuffer(string(data))
}
