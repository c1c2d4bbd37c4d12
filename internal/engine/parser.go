package engine

import (
	"strconv"
	"strings"

	"github.com/twpayne/go-geom"
)

// Status is the outcome of a parse call.
type Status int

// Parse outcomes.
const (
	Failure Status = iota
	Success
)

// ParserCheck selects the structural checks applied to parsed geometries.
type ParserCheck int

// Parser checks.
const (
	CheckMinPoints ParserCheck = 1 << iota
	CheckOdd
	CheckClosure
	CheckZClosure

	CheckNone ParserCheck = 0
	CheckAll              = CheckMinPoints | CheckOdd | CheckClosure | CheckZClosure
)

// Parser error codes.
const (
	ErrMorePoints = iota + 1
	ErrOddPoints
	ErrUnclosed
	ErrMixDims
	ErrInvalidGeom
	ErrInvalidWKBType
	ErrIncontinuous
	ErrTrianglePoints
	ErrLessPoints
	ErrOther
)

var parserErrorMessages = map[int]string{
	ErrMorePoints:     "geometry requires more points",
	ErrOddPoints:      "geometry must have an odd number of points",
	ErrUnclosed:       "geometry contains non-closed rings",
	ErrMixDims:        "can not mix dimensionality in a geometry",
	ErrInvalidGeom:    "parse error - invalid geometry",
	ErrInvalidWKBType: "invalid WKB type",
	ErrIncontinuous:   "incontinuous compound curve",
	ErrTrianglePoints: "triangle must have exactly 4 points",
	ErrLessPoints:     "geometry has too many points",
	ErrOther:          "unknown parse error",
}

// ParserResult receives the outcome of ParseWKT. When parsing succeeds Geom
// owns the new geometry until the caller moves it out; FreeParserResult
// releases whatever is still stored there.
type ParserResult struct {
	Input       string
	Geom        Ptr
	Message     string
	ErrCode     int
	ErrLocation int
}

// FreeParserResult releases the geometry still owned by pr, if any.
func (e *Engine) FreeParserResult(pr *ParserResult) {
	if pr == nil {
		return
	}
	if pr.Geom != Null {
		e.FreeGeom(pr.Geom)
		pr.Geom = Null
	}
}

// ParseWKT parses WKT or EWKT text into pr. Empty input fails without a
// message: the grammar never starts, so there is nothing to report.
func (e *Engine) ParseWKT(pr *ParserResult, text string, check ParserCheck) Status {
	*pr = ParserResult{Input: text}

	if strings.TrimSpace(text) == "" {
		pr.ErrCode = ErrOther
		return Failure
	}

	p := &wktParser{lex: wktLex{line: text}, check: check}
	g, srid, ok := p.parse()
	if !ok {
		pr.ErrCode = p.errCode
		pr.ErrLocation = p.errPos
		pr.Message = parserErrorMessages[p.errCode]
		return Failure
	}

	pr.Geom = e.newNode(g, srid)
	return Success
}

type tokKind int

const (
	tokEOF tokKind = iota
	tokWord
	tokNum
	tokLParen
	tokRParen
	tokComma
	tokSemicolon
	tokEquals
	tokInvalid
)

type token struct {
	kind tokKind
	text string
	num  float64
	pos  int
}

// wktLex splits WKT text into tokens. Words are upper-cased; numbers are
// parsed eagerly.
type wktLex struct {
	line string
	pos  int
	peek *token
}

func (l *wktLex) next() token {
	if l.peek != nil {
		t := *l.peek
		l.peek = nil
		return t
	}
	return l.scan()
}

func (l *wktLex) lookahead() token {
	if l.peek == nil {
		t := l.scan()
		l.peek = &t
	}
	return *l.peek
}

func (l *wktLex) scan() token {
	for l.pos < len(l.line) && isSpace(l.line[l.pos]) {
		l.pos++
	}
	start := l.pos
	if l.pos == len(l.line) {
		return token{kind: tokEOF, pos: start}
	}

	c := l.line[l.pos]
	switch {
	case c == '(':
		l.pos++
		return token{kind: tokLParen, pos: start}
	case c == ')':
		l.pos++
		return token{kind: tokRParen, pos: start}
	case c == ',':
		l.pos++
		return token{kind: tokComma, pos: start}
	case c == ';':
		l.pos++
		return token{kind: tokSemicolon, pos: start}
	case c == '=':
		l.pos++
		return token{kind: tokEquals, pos: start}
	case isLetter(c):
		for l.pos < len(l.line) && isLetter(l.line[l.pos]) {
			l.pos++
		}
		return token{kind: tokWord, text: strings.ToUpper(l.line[start:l.pos]), pos: start}
	case isNumStart(c):
		l.pos++
		for l.pos < len(l.line) && isNumByte(l.line[l.pos], l.line[l.pos-1]) {
			l.pos++
		}
		f, err := strconv.ParseFloat(l.line[start:l.pos], 64)
		if err != nil {
			return token{kind: tokInvalid, pos: start}
		}
		return token{kind: tokNum, num: f, pos: start}
	default:
		l.pos++
		return token{kind: tokInvalid, pos: start}
	}
}

// isSpace matches ASCII whitespace only; stray non-ASCII bytes are tokens.
func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNumStart(c byte) bool {
	return c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9')
}

func isNumByte(c, prev byte) bool {
	switch {
	case c >= '0' && c <= '9', c == '.':
		return true
	case c == 'e' || c == 'E':
		return true
	case c == '-' || c == '+':
		return prev == 'e' || prev == 'E'
	default:
		return false
	}
}

// wktParser is a recursive-descent parser over wktLex. The first error wins.
type wktParser struct {
	lex     wktLex
	check   ParserCheck
	errCode int
	errPos  int
	failed  bool
}

func (p *wktParser) fail(code, pos int) {
	if !p.failed {
		p.failed = true
		p.errCode = code
		p.errPos = pos
	}
}

func (p *wktParser) expect(kind tokKind) (token, bool) {
	t := p.lex.next()
	if t.kind != kind {
		p.fail(ErrInvalidGeom, t.pos)
		return t, false
	}
	return t, true
}

func (p *wktParser) parse() (geom.T, int32, bool) {
	var srid int32
	if t := p.lex.lookahead(); t.kind == tokWord && t.text == "SRID" {
		p.lex.next()
		if _, ok := p.expect(tokEquals); !ok {
			return nil, 0, false
		}
		n, ok := p.expect(tokNum)
		if !ok {
			return nil, 0, false
		}
		if n.num != float64(int32(n.num)) {
			p.fail(ErrInvalidGeom, n.pos)
			return nil, 0, false
		}
		if _, ok := p.expect(tokSemicolon); !ok {
			return nil, 0, false
		}
		srid = int32(n.num)
	}

	g, ok := p.geometry(geom.NoLayout)
	if !ok {
		return nil, 0, false
	}
	if t := p.lex.next(); t.kind != tokEOF {
		p.fail(ErrInvalidGeom, t.pos)
		return nil, 0, false
	}
	return g, srid, true
}

// typeLayout splits a keyword such as POINTZM into its base type and the
// layout named by the attached qualifier.
func typeLayout(word string) (string, geom.Layout, bool) {
	for _, base := range []string{
		"GEOMETRYCOLLECTION", "MULTILINESTRING", "MULTIPOLYGON",
		"MULTIPOINT", "LINESTRING", "POLYGON", "POINT",
	} {
		if !strings.HasPrefix(word, base) {
			continue
		}
		layout, ok := qualifierLayout(word[len(base):])
		return base, layout, ok
	}
	return "", geom.NoLayout, false
}

func qualifierLayout(q string) (geom.Layout, bool) {
	switch q {
	case "":
		return geom.NoLayout, true
	case "Z":
		return geom.XYZ, true
	case "M":
		return geom.XYM, true
	case "ZM":
		return geom.XYZM, true
	default:
		return geom.NoLayout, false
	}
}

// geometry parses one tagged geometry. outer is the layout already fixed by
// an enclosing collection, NoLayout if none.
func (p *wktParser) geometry(outer geom.Layout) (geom.T, bool) {
	t := p.lex.next()
	if t.kind != tokWord {
		p.fail(ErrInvalidGeom, t.pos)
		return nil, false
	}
	base, layout, ok := typeLayout(t.text)
	if !ok {
		p.fail(ErrInvalidGeom, t.pos)
		return nil, false
	}
	if layout == geom.NoLayout {
		if q := p.lex.lookahead(); q.kind == tokWord && q.text != "EMPTY" {
			l, ok := qualifierLayout(q.text)
			if !ok {
				p.fail(ErrInvalidGeom, q.pos)
				return nil, false
			}
			p.lex.next()
			layout = l
		}
	}
	if layout == geom.NoLayout {
		layout = outer
	} else if outer != geom.NoLayout && layout != outer {
		p.fail(ErrMixDims, t.pos)
		return nil, false
	}

	if q := p.lex.lookahead(); q.kind == tokWord && q.text == "EMPTY" {
		p.lex.next()
		return emptyOf(base, layout), true
	}

	switch base {
	case "POINT":
		return p.point(layout)
	case "LINESTRING":
		return p.lineString(layout)
	case "POLYGON":
		return p.polygon(layout)
	case "MULTIPOINT":
		return p.multiPoint(layout)
	case "MULTILINESTRING":
		return p.multiLineString(layout)
	case "MULTIPOLYGON":
		return p.multiPolygon(layout)
	default:
		return p.collection(layout)
	}
}

func emptyOf(base string, layout geom.Layout) geom.T {
	if layout == geom.NoLayout {
		layout = geom.XY
	}
	switch base {
	case "POINT":
		return geom.NewPointEmpty(layout)
	case "LINESTRING":
		return geom.NewLineString(layout)
	case "POLYGON":
		return geom.NewPolygon(layout)
	case "MULTIPOINT":
		return geom.NewMultiPoint(layout)
	case "MULTILINESTRING":
		return geom.NewMultiLineString(layout)
	case "MULTIPOLYGON":
		return geom.NewMultiPolygon(layout)
	default:
		return geom.NewGeometryCollection()
	}
}

// coords parses the ordinates of one vertex and appends them to flat. The
// first vertex fixes the layout when none was declared.
func (p *wktParser) coords(layout *geom.Layout, flat []float64) ([]float64, bool) {
	start := p.lex.lookahead().pos
	n := 0
	for p.lex.lookahead().kind == tokNum {
		t := p.lex.next()
		flat = append(flat, t.num)
		n++
	}
	if n < 2 || n > 4 {
		p.fail(ErrInvalidGeom, start)
		return nil, false
	}
	if *layout == geom.NoLayout {
		switch n {
		case 2:
			*layout = geom.XY
		case 3:
			*layout = geom.XYZ
		default:
			*layout = geom.XYZM
		}
	}
	if layout.Stride() != n {
		p.fail(ErrMixDims, start)
		return nil, false
	}
	return flat, true
}

// pointList parses "(x y, x y, ...)".
func (p *wktParser) pointList(layout *geom.Layout, flat []float64) ([]float64, int, bool) {
	if _, ok := p.expect(tokLParen); !ok {
		return nil, 0, false
	}
	count := 0
	for {
		var ok bool
		if flat, ok = p.coords(layout, flat); !ok {
			return nil, 0, false
		}
		count++
		t := p.lex.next()
		if t.kind == tokRParen {
			return flat, count, true
		}
		if t.kind != tokComma {
			p.fail(ErrInvalidGeom, t.pos)
			return nil, 0, false
		}
	}
}

func (p *wktParser) point(layout geom.Layout) (geom.T, bool) {
	flat, _, ok := p.pointList(&layout, nil)
	if !ok {
		return nil, false
	}
	if len(flat) != layout.Stride() {
		p.fail(ErrInvalidGeom, p.lex.pos)
		return nil, false
	}
	return geom.NewPointFlat(layout, flat), true
}

func (p *wktParser) lineString(layout geom.Layout) (geom.T, bool) {
	start := p.lex.lookahead().pos
	flat, count, ok := p.pointList(&layout, nil)
	if !ok {
		return nil, false
	}
	if p.check&CheckMinPoints != 0 && count < 2 {
		p.fail(ErrMorePoints, start)
		return nil, false
	}
	return geom.NewLineStringFlat(layout, flat), true
}

// rings parses "((...),(...))" and returns flat coordinates with ring ends.
func (p *wktParser) rings(layout *geom.Layout, flat []float64, ends []int) ([]float64, []int, bool) {
	if _, ok := p.expect(tokLParen); !ok {
		return nil, nil, false
	}
	for {
		start := p.lex.lookahead().pos
		ringStart := len(flat)
		var count int
		var ok bool
		if flat, count, ok = p.pointList(layout, flat); !ok {
			return nil, nil, false
		}
		if !p.checkRing(*layout, flat[ringStart:], count, start) {
			return nil, nil, false
		}
		ends = append(ends, len(flat))
		t := p.lex.next()
		if t.kind == tokRParen {
			return flat, ends, true
		}
		if t.kind != tokComma {
			p.fail(ErrInvalidGeom, t.pos)
			return nil, nil, false
		}
	}
}

func (p *wktParser) checkRing(layout geom.Layout, ring []float64, count, pos int) bool {
	if p.check&CheckMinPoints != 0 && count < 4 {
		p.fail(ErrMorePoints, pos)
		return false
	}
	if count == 0 {
		return true
	}
	stride := layout.Stride()
	first, last := ring[:stride], ring[len(ring)-stride:]
	if p.check&CheckClosure != 0 && (first[0] != last[0] || first[1] != last[1]) {
		p.fail(ErrUnclosed, pos)
		return false
	}
	if zi := layout.ZIndex(); zi >= 0 && p.check&CheckZClosure != 0 && first[zi] != last[zi] {
		p.fail(ErrUnclosed, pos)
		return false
	}
	return true
}

func (p *wktParser) polygon(layout geom.Layout) (geom.T, bool) {
	flat, ends, ok := p.rings(&layout, nil, nil)
	if !ok {
		return nil, false
	}
	return geom.NewPolygonFlat(layout, flat, ends), true
}

// multiPoint accepts both "MULTIPOINT(0 0,1 1)" and "MULTIPOINT((0 0),(1 1))".
func (p *wktParser) multiPoint(layout geom.Layout) (geom.T, bool) {
	if _, ok := p.expect(tokLParen); !ok {
		return nil, false
	}
	var flat []float64
	for {
		var ok bool
		if p.lex.lookahead().kind == tokLParen {
			p.lex.next()
			if flat, ok = p.coords(&layout, flat); !ok {
				return nil, false
			}
			if _, ok = p.expect(tokRParen); !ok {
				return nil, false
			}
		} else if t := p.lex.lookahead(); t.kind == tokWord && t.text == "EMPTY" {
			// Empty members cannot be stored in a flat multipoint.
			p.fail(ErrInvalidGeom, t.pos)
			return nil, false
		} else if flat, ok = p.coords(&layout, flat); !ok {
			return nil, false
		}
		t := p.lex.next()
		if t.kind == tokRParen {
			return geom.NewMultiPointFlat(layout, flat), true
		}
		if t.kind != tokComma {
			p.fail(ErrInvalidGeom, t.pos)
			return nil, false
		}
	}
}

func (p *wktParser) multiLineString(layout geom.Layout) (geom.T, bool) {
	if _, ok := p.expect(tokLParen); !ok {
		return nil, false
	}
	var flat []float64
	var ends []int
	for {
		start := p.lex.lookahead().pos
		var count int
		var ok bool
		if flat, count, ok = p.pointList(&layout, flat); !ok {
			return nil, false
		}
		if p.check&CheckMinPoints != 0 && count < 2 {
			p.fail(ErrMorePoints, start)
			return nil, false
		}
		ends = append(ends, len(flat))
		t := p.lex.next()
		if t.kind == tokRParen {
			return geom.NewMultiLineStringFlat(layout, flat, ends), true
		}
		if t.kind != tokComma {
			p.fail(ErrInvalidGeom, t.pos)
			return nil, false
		}
	}
}

func (p *wktParser) multiPolygon(layout geom.Layout) (geom.T, bool) {
	if _, ok := p.expect(tokLParen); !ok {
		return nil, false
	}
	var flat []float64
	var endss [][]int
	for {
		var ends []int
		var ok bool
		if flat, ends, ok = p.rings(&layout, flat, nil); !ok {
			return nil, false
		}
		endss = append(endss, ends)
		t := p.lex.next()
		if t.kind == tokRParen {
			return geom.NewMultiPolygonFlat(layout, flat, endss), true
		}
		if t.kind != tokComma {
			p.fail(ErrInvalidGeom, t.pos)
			return nil, false
		}
	}
}

func (p *wktParser) collection(layout geom.Layout) (geom.T, bool) {
	if _, ok := p.expect(tokLParen); !ok {
		return nil, false
	}
	gc := geom.NewGeometryCollection()
	for {
		start := p.lex.lookahead().pos
		g, ok := p.geometry(layout)
		if !ok {
			return nil, false
		}
		if layout == geom.NoLayout && !isEmpty(g) {
			layout = g.Layout()
		}
		if err := gc.Push(g); err != nil {
			p.fail(ErrMixDims, start)
			return nil, false
		}
		t := p.lex.next()
		if t.kind == tokRParen {
			return gc, true
		}
		if t.kind != tokComma {
			p.fail(ErrInvalidGeom, t.pos)
			return nil, false
		}
	}
}

func isEmpty(g geom.T) bool {
	if gc, ok := g.(*geom.GeometryCollection); ok {
		for i := 0; i < gc.NumGeoms(); i++ {
			if !isEmpty(gc.Geom(i)) {
				return false
			}
		}
		return true
	}
	return len(g.FlatCoords()) == 0
}
