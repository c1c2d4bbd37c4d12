package lwgeom

const tileEnvelopeOp = "ST_TileEnvelope"

// Web Mercator extent used when no bounds are given.
const (
	WebMercatorSRID = 3857
	WebMercatorMax  = 20037508.342789
)

type tileOptions struct {
	bounds *Geom
	margin float64
}

// TileOption configures TileEnvelope.
type TileOption func(*tileOptions)

// WithBounds sets the extent being tiled to the bounding box of bounds, and
// the output SRID to its SRID when it has one. bounds is only borrowed.
func WithBounds(bounds *Geom) TileOption {
	return func(o *tileOptions) { o.bounds = bounds }
}

// WithMargin grows (or for negative values shrinks) the tile by the given
// fraction of its size on each side.
func WithMargin(margin float64) TileOption {
	return func(o *tileOptions) { o.margin = margin }
}

// TileEnvelope computes a tile polygon with the default context.
func TileEnvelope(zoom, x, y int, opts ...TileOption) (*Geom, error) {
	return Default().TileEnvelope(zoom, x, y, opts...)
}

// TileEnvelope returns the rectangle covered by tile zoom/x/y, row 0 at the
// top. Parameters are checked in the order margin, bounds, zoom, x, y and the
// first violation is returned as an *InvalidParameterError.
func (c *Context) TileEnvelope(zoom, x, y int, opts ...TileOption) (*Geom, error) {
	var o tileOptions
	for _, opt := range opts {
		opt(&o)
	}

	if o.margin < -0.5 {
		return nil, &InvalidParameterError{Op: tileEnvelopeOp, Param: "margin"}
	}

	xmin, ymin, xmax, ymax := -WebMercatorMax, -WebMercatorMax, WebMercatorMax, WebMercatorMax
	srid := int32(WebMercatorSRID)
	if o.bounds != nil {
		box, err := o.bounds.BBox()
		if err != nil {
			return nil, &InvalidParameterError{Op: tileEnvelopeOp, Param: "bounds"}
		}
		xmin, ymin, xmax, ymax = box.XMin(), box.YMin(), box.XMax(), box.YMax()
		if s, ok := o.bounds.SRID(); ok {
			srid = s
		}
	}
	width, height := xmax-xmin, ymax-ymin
	if !(width > 0) || !(height > 0) {
		return nil, &InvalidParameterError{Op: tileEnvelopeOp, Param: "bounds"}
	}

	if zoom < 0 || zoom >= 32 {
		return nil, &InvalidParameterError{Op: tileEnvelopeOp, Param: "zoom"}
	}
	worldTileSize := int64(1) << min(zoom, 31)
	if x < 0 || int64(x) >= worldTileSize {
		return nil, &InvalidParameterError{Op: tileEnvelopeOp, Param: "x"}
	}
	if y < 0 || int64(y) >= worldTileSize {
		return nil, &InvalidParameterError{Op: tileEnvelopeOp, Param: "y"}
	}

	tiles := float64(worldTileSize)
	tileSizeX, tileSizeY := width/tiles, height/tiles
	fx, fy := float64(x), float64(y)

	var x1, x2 float64
	if 1+2*o.margin > tiles {
		x1, x2 = xmin, xmax
	} else {
		x1 = xmin + tileSizeX*(fx-o.margin)
		x2 = xmin + tileSizeX*(fx+1+o.margin)
	}

	y1 := ymax - tileSizeY*(fy+1+o.margin)
	y2 := ymax - tileSizeY*(fy-o.margin)
	y1 = clamp(y1, ymin, ymax)
	y2 = clamp(y2, ymin, ymax)

	return newGeom(c, c.eng.NewEnvelope(srid, x1, y1, x2, y2)), nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
