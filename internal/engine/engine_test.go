package engine

import (
	"testing"

	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) (*Engine, *memory.CheckedAllocator) {
	t.Helper()
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	e := New(mem)
	t.Cleanup(func() {
		mem.AssertSize(t, 0)
		s := e.Stats()
		assert.Zero(t, s.LiveGeoms, "live geometries at end of test")
		assert.Zero(t, s.LiveBuffers, "live buffers at end of test")
	})
	return e, mem
}

func mustParse(t *testing.T, e *Engine, text string) Ptr {
	t.Helper()
	var pr ParserResult
	require.Equal(t, Success, e.ParseWKT(&pr, text, CheckAll), "parse %q: %s", text, pr.Message)
	p := pr.Geom
	pr.Geom = Null
	e.FreeParserResult(&pr)
	return p
}

func wktOf(t *testing.T, e *Engine, p Ptr, variant Variant) string {
	t.Helper()
	buf, size := e.ToWKT(p, variant, 15)
	require.NotNil(t, buf)
	defer e.FreeBuffer(buf)
	data := buf.Bytes()
	require.Len(t, data, size)
	require.Equal(t, byte(0), data[size-1])
	return string(data[:size-1])
}

func TestPtrReuseBumpsGeneration(t *testing.T) {
	e, _ := newTestEngine(t)

	a := mustParse(t, e, "POINT(1 2)")
	e.FreeGeom(a)
	b := mustParse(t, e, "POINT(3 4)")
	defer e.FreeGeom(b)

	ai, ag := a.slot()
	bi, bg := b.slot()
	assert.Equal(t, ai, bi, "slot should be reused")
	assert.NotEqual(t, ag, bg)
	assert.False(t, e.Valid(a))
	assert.True(t, e.Valid(b))
}

func TestUseAfterFreePanics(t *testing.T) {
	e, _ := newTestEngine(t)

	p := mustParse(t, e, "POINT(1 2)")
	e.FreeGeom(p)

	assert.Panics(t, func() { e.GetSRID(p) })
	assert.Panics(t, func() { e.FreeGeom(p) })
	assert.Panics(t, func() { e.GetBBox(Null) })
	assert.NotPanics(t, func() { e.FreeGeom(Null) })
}

func TestBufferDoubleFreePanics(t *testing.T) {
	e, _ := newTestEngine(t)

	p := mustParse(t, e, "POINT(1 2)")
	defer e.FreeGeom(p)

	buf, _ := e.ToWKT(p, WKTISO, 15)
	e.FreeBuffer(buf)
	assert.Panics(t, func() { e.FreeBuffer(buf) })
	assert.Panics(t, func() { buf.Bytes() })
	assert.NotPanics(t, func() { e.FreeBuffer(nil) })
}

func TestSRIDMetadata(t *testing.T) {
	e, _ := newTestEngine(t)

	p := mustParse(t, e, "POINT(1 2)")
	defer e.FreeGeom(p)

	assert.False(t, e.HasSRID(p))
	assert.Equal(t, int32(SRIDUnknown), e.GetSRID(p))

	e.SetSRID(p, 4326)
	assert.True(t, e.HasSRID(p))
	assert.Equal(t, int32(4326), e.GetSRID(p))

	e.SetSRID(p, 0)
	assert.False(t, e.HasSRID(p))
}

func TestBBox(t *testing.T) {
	e, _ := newTestEngine(t)

	tests := []struct {
		wkt  string
		want *GBox
	}{
		{"POINT(1 2)", &GBox{XMin: 1, XMax: 1, YMin: 2, YMax: 2}},
		{"LINESTRING(0 0,4 -2)", &GBox{XMin: 0, XMax: 4, YMin: -2, YMax: 0}},
		{"LINESTRING Z (0 0 5,4 -2 1)", &GBox{XMin: 0, XMax: 4, YMin: -2, YMax: 0, HasZ: true, ZMin: 1, ZMax: 5}},
		{"GEOMETRYCOLLECTION(POINT(-1 3),LINESTRING(0 0,2 2))", &GBox{XMin: -1, XMax: 2, YMin: 0, YMax: 3}},
		{"POINT EMPTY", nil},
		{"GEOMETRYCOLLECTION EMPTY", nil},
	}

	for _, tt := range tests {
		t.Run(tt.wkt, func(t *testing.T) {
			p := mustParse(t, e, tt.wkt)
			defer e.FreeGeom(p)
			assert.Equal(t, tt.want, e.GetBBox(p))
		})
	}
}

func TestSubGeomOwnedByParent(t *testing.T) {
	e, _ := newTestEngine(t)

	p := mustParse(t, e, "SRID=3857;POLYGON((0 0,4 0,4 4,0 4,0 0),(1 1,2 1,2 2,1 1))")
	require.Equal(t, 2, e.NumParts(p))

	hole := e.SubGeom(p, 1)
	require.NotEqual(t, Null, hole)
	assert.Equal(t, hole, e.SubGeom(p, 1), "sub-geometry should be handed out once")
	assert.Equal(t, "LINESTRING", e.TypeName(hole))
	assert.Equal(t, "SRID=3857;LINESTRING(1 1,2 1,2 2,1 1)", wktOf(t, e, hole, WKTExtended))
	assert.Equal(t, &GBox{XMin: 1, XMax: 2, YMin: 1, YMax: 2}, e.GetBBox(hole))

	var notices []string
	e.SetNoticeHandler(func(msg string) { notices = append(notices, msg) })
	assert.Equal(t, Null, e.SubGeom(p, 2))
	assert.Len(t, notices, 1)

	assert.Panics(t, func() { e.FreeGeom(hole) }, "children are released with their parent")

	e.FreeGeom(p)
	assert.False(t, e.Valid(hole))
	assert.Panics(t, func() { e.GetBBox(hole) })
}

func TestSetSRIDReachesSubGeoms(t *testing.T) {
	e, _ := newTestEngine(t)

	p := mustParse(t, e, "GEOMETRYCOLLECTION(POLYGON((0 0,1 0,1 1,0 0)),POINT(1 2))")
	defer e.FreeGeom(p)

	poly := e.SubGeom(p, 0)
	ring := e.SubGeom(poly, 0)
	e.SetSRID(p, 4326)
	assert.Equal(t, int32(4326), e.GetSRID(poly))
	assert.Equal(t, int32(4326), e.GetSRID(ring))
	assert.Equal(t, int32(4326), e.GetSRID(e.SubGeom(p, 1)))

	// Setting a part leaves its parent alone.
	e.SetSRID(poly, 3857)
	assert.Equal(t, int32(3857), e.GetSRID(ring))
	assert.Equal(t, int32(4326), e.GetSRID(p))
}

func TestEnvelope(t *testing.T) {
	e, _ := newTestEngine(t)

	p := e.NewEnvelope(3857, -1, -2, 3, 4)
	defer e.FreeGeom(p)

	assert.Equal(t, "SRID=3857;POLYGON((-1 -2,-1 4,3 4,3 -2,-1 -2))", wktOf(t, e, p, WKTExtended))
	assert.Equal(t, &GBox{XMin: -1, XMax: 3, YMin: -2, YMax: 4}, e.GetBBox(p))
}

func TestStatsCountLifetimeAllocations(t *testing.T) {
	e, _ := newTestEngine(t)

	for i := 0; i < 10; i++ {
		p := mustParse(t, e, "LINESTRING(0 0,1 1)")
		v := e.ToWKBVarlena(p, WKBExtended)
		e.FreeVarlena(v)
		e.FreeGeom(p)
	}

	s := e.Stats()
	assert.Equal(t, int64(10), s.GeomAllocs)
	assert.Equal(t, int64(10), s.GeomFrees)
	assert.Equal(t, int64(10), s.BufferAllocs)
	assert.Equal(t, int64(10), s.BufferFrees)
	assert.Zero(t, s.BufferBytes)
}
