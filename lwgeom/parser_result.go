package lwgeom

import (
	"github.com/cockroachdb/errors"

	"github.com/wegman-software/lwgeom-go/internal/engine"
)

// ParserResult wraps the outcome of one engine parse call. It must be closed,
// normally with a defer right after ParseWKT returns; closing releases the
// parsed geometry unless TakeGeom moved it out first.
type ParserResult struct {
	ctx *Context
	raw engine.ParserResult
	ok  bool
}

// ParseWKT runs the engine parser over text with every structural check
// enabled. Both WKT and EWKT are accepted.
func (c *Context) ParseWKT(text string) *ParserResult {
	r := &ParserResult{ctx: c}
	r.ok = c.eng.ParseWKT(&r.raw, text, engine.CheckAll) == engine.Success
	return r
}

// OK reports whether parsing succeeded.
func (r *ParserResult) OK() bool {
	return r.ok
}

// Message returns the parser's error message, if it gave one.
func (r *ParserResult) Message() (string, bool) {
	if r.raw.Message == "" {
		return "", false
	}
	return r.raw.Message, true
}

// Location returns the byte offset of the parse error.
func (r *ParserResult) Location() int {
	return r.raw.ErrLocation
}

// TakeGeom moves the parsed geometry into a new handle. The result no longer
// owns it afterwards. Calling TakeGeom after a failed parse, or twice, panics.
func (r *ParserResult) TakeGeom() *Geom {
	p := r.raw.Geom
	if p == engine.Null {
		panic(errors.AssertionFailedf("lwgeom: TakeGeom on a parser result without a geometry"))
	}
	r.raw.Geom = engine.Null
	return newGeom(r.ctx, p)
}

// Close releases whatever the result still owns.
func (r *ParserResult) Close() {
	r.ctx.eng.FreeParserResult(&r.raw)
}
