package lwgeom

import (
	"encoding/hex"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/wegman-software/lwgeom-go/internal/engine"
)

// FromText parses plain WKT with the default context.
func FromText(wkt string, srid int32) (*Geom, error) {
	return Default().FromText(wkt, srid)
}

// FromEWKT parses extended WKT with the default context.
func FromEWKT(wkt string) (*Geom, error) {
	return Default().FromEWKT(wkt)
}

// FromEWKB decodes extended WKB with the default context.
func FromEWKB(data []byte) (*Geom, error) {
	return Default().FromEWKB(data)
}

// FromHexEWKB decodes hex-encoded extended WKB with the default context.
func FromHexEWKB(s string) (*Geom, error) {
	return Default().FromHexEWKB(s)
}

// FromText parses plain WKT. A non-zero srid is assigned to the result.
// Text that carries its own SRID is rejected with a *MixedFormatError.
func (c *Context) FromText(wkt string, srid int32) (*Geom, error) {
	g, err := c.parseText("lwgeom_parse_wkt", wkt)
	if err != nil {
		return nil, err
	}
	if embedded, ok := g.SRID(); ok {
		_ = g.Close()
		return nil, &MixedFormatError{SRID: embedded}
	}
	if srid != engine.SRIDUnknown {
		g.SetSRID(srid)
	}
	return g, nil
}

// FromEWKT parses extended WKT, keeping any SRID it declares.
func (c *Context) FromEWKT(wkt string) (*Geom, error) {
	return c.parseText("lwgeom_parse_ewkt", wkt)
}

func (c *Context) parseText(op, text string) (*Geom, error) {
	if i := strings.IndexByte(text, 0); i >= 0 {
		return nil, &EncodingError{Op: op, Offset: i}
	}

	pr := c.ParseWKT(text)
	defer pr.Close()

	if !pr.OK() {
		if msg, ok := pr.Message(); ok {
			return nil, &WKTParseError{Message: msg, Location: pr.Location()}
		}
		return nil, &FailedWithoutMessageError{Op: op}
	}
	return pr.TakeGeom(), nil
}

// FromEWKB decodes extended WKB. ISO WKB is accepted as well.
func (c *Context) FromEWKB(data []byte) (*Geom, error) {
	p := c.eng.FromWKB(data, engine.CheckAll)
	if p == engine.Null {
		return nil, errors.Wrap(ErrNullPtr, "lwgeom_from_wkb")
	}
	return newGeom(c, p), nil
}

// FromHexEWKB decodes hex-encoded extended WKB as produced by PostGIS.
func (c *Context) FromHexEWKB(s string) (*Geom, error) {
	p := c.eng.FromHexWKB(s, engine.CheckAll)
	if p == engine.Null {
		return nil, errors.Wrap(ErrNullPtr, "lwgeom_from_hexwkb")
	}
	return newGeom(c, p), nil
}

// AsText serializes g as ISO WKT without SRID.
func (g *Geom) AsText(opts ...EncodeOption) (string, error) {
	return g.ctx.toWKT(g.live(), engine.WKTISO, opts)
}

// AsEWKT serializes g as extended WKT, prefixed with SRID=<n>; when set.
func (g *Geom) AsEWKT(opts ...EncodeOption) (string, error) {
	return g.ctx.toWKT(g.live(), engine.WKTExtended, opts)
}

func (c *Context) toWKT(p engine.Ptr, variant engine.Variant, opts []EncodeOption) (string, error) {
	o := newEncodeOptions(DefaultPrecision, opts)
	buf, size := c.eng.ToWKT(p, variant, o.precision)
	if buf == nil {
		return "", errors.Wrap(ErrNullPtr, "lwgeom_to_wkt")
	}
	defer c.eng.FreeBuffer(buf)

	// size counts the terminating NUL.
	return string(buf.Bytes()[:size-1]), nil
}

// AsEWKB serializes g as little-endian extended WKB.
func (g *Geom) AsEWKB() ([]byte, error) {
	return g.ctx.toWKB(g.live(), engine.WKBExtended|engine.WKBNDR)
}

// AsWKB serializes g as ISO WKB in the given byte order. The SRID is dropped.
func (g *Geom) AsWKB(order ByteOrder) ([]byte, error) {
	variant := engine.WKBISO | engine.WKBNDR
	if order == XDR {
		variant = engine.WKBISO | engine.WKBXDR
	}
	return g.ctx.toWKB(g.live(), variant)
}

// AsHexEWKB serializes g as upper-case hex extended WKB.
func (g *Geom) AsHexEWKB() (string, error) {
	data, err := g.AsEWKB()
	if err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(data)), nil
}

func (c *Context) toWKB(p engine.Ptr, variant engine.Variant) ([]byte, error) {
	v := c.eng.ToWKBVarlena(p, variant)
	if v == nil {
		return nil, errors.Wrap(ErrNullPtr, "lwgeom_to_wkb_varlena")
	}
	defer c.eng.FreeVarlena(v)

	// WKB may contain zero bytes; the declared size is authoritative.
	out := make([]byte, v.Size())
	copy(out, v.Data()[:v.Size()])
	return out, nil
}
