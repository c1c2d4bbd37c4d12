package lwgeom

import (
	"github.com/cockroachdb/errors"
	"github.com/pierrre/geohash"
)

// GeoHashAutoPrecision makes GeoHash pick the precision that still contains
// the whole bounding box.
const GeoHashAutoPrecision = 0

// GeoHashMaxPrecision is the maximum GeoHash length.
const GeoHashMaxPrecision = 20

// GeoHash returns the GeoHash of the centre of g's bounding box. Coordinates
// must be longitude/latitude. Empty geometries hash to "".
func (g *Geom) GeoHash(precision int) (string, error) {
	box, err := g.BBox()
	if errors.Is(err, ErrNoBBox) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if box.XMin() < -180 || box.XMax() > 180 || box.YMin() < -90 || box.YMax() > 90 {
		return "", errors.Newf(
			"object has bounds greater than the bounds of lat/lng, got (%f %f, %f %f)",
			box.XMin(), box.YMin(), box.XMax(), box.YMax(),
		)
	}

	if precision <= GeoHashAutoPrecision {
		precision = geoHashPrecisionForBox(box)
	}
	if precision > GeoHashMaxPrecision {
		precision = GeoHashMaxPrecision
	}

	centerLon := box.XMin() + box.Width()/2
	centerLat := box.YMin() + box.Height()/2
	return geohash.Encode(centerLat, centerLon, precision), nil
}

// geoHashPrecisionForBox halves the world box until it no longer fits inside
// one half, counting the bits gained along the way.
func geoHashPrecisionForBox(box *BoxRef) int {
	if box.Width() == 0 && box.Height() == 0 {
		return GeoHashMaxPrecision
	}

	lonMin, lonMax := -180.0, 180.0
	latMin, latMax := -90.0, 90.0
	bits := 0
	for {
		lonWidth, latWidth := lonMax-lonMin, latMax-latMin

		var lonMinDelta, lonMaxDelta, latMinDelta, latMaxDelta float64
		if box.XMin() > lonMin+lonWidth/2 {
			lonMinDelta = lonWidth / 2
		} else if box.XMax() < lonMax-lonWidth/2 {
			lonMaxDelta = lonWidth / -2
		}
		if box.YMin() > latMin+latWidth/2 {
			latMinDelta = latWidth / 2
		} else if box.YMax() < latMax-latWidth/2 {
			latMaxDelta = latWidth / -2
		}

		// A step only counts once both axes have been narrowed.
		if lonMinDelta == 0 && lonMaxDelta == 0 {
			break
		}
		lonMin += lonMinDelta
		lonMax += lonMaxDelta
		if latMinDelta == 0 && latMaxDelta == 0 {
			break
		}
		latMin += latMinDelta
		latMax += latMaxDelta
		bits += 2
	}
	// Each character holds five bits.
	return bits / 5
}
