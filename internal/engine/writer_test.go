package engine

import (
	"encoding/binary"
	"encoding/hex"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkbhex"
)

func TestToWKT(t *testing.T) {
	e, _ := newTestEngine(t)

	tests := []struct {
		input    string
		iso      string
		extended string
	}{
		{"POINT(1 2)", "POINT(1 2)", "POINT(1 2)"},
		{"SRID=4326;POINT(1 2)", "POINT(1 2)", "SRID=4326;POINT(1 2)"},
		{"POINT(1 2 3)", "POINT Z (1 2 3)", "POINT(1 2 3)"},
		{"POINTM(1 2 3)", "POINT M (1 2 3)", "POINTM(1 2 3)"},
		{"POINT ZM (1 2 3 4)", "POINT ZM (1 2 3 4)", "POINT(1 2 3 4)"},
		{"POINT EMPTY", "POINT EMPTY", "POINT EMPTY"},
		{"POINT Z EMPTY", "POINT Z EMPTY", "POINT EMPTY"},
		{"LINESTRING(0 0,1.5 -1)", "LINESTRING(0 0,1.5 -1)", "LINESTRING(0 0,1.5 -1)"},
		{"POLYGON((0 0,1 0,1 1,0 0))", "POLYGON((0 0,1 0,1 1,0 0))", "POLYGON((0 0,1 0,1 1,0 0))"},
		{"MULTIPOINT(0 0,1 1)", "MULTIPOINT((0 0),(1 1))", "MULTIPOINT(0 0,1 1)"},
		{"MULTILINESTRING((0 0,1 1),(2 2,3 3))", "MULTILINESTRING((0 0,1 1),(2 2,3 3))", "MULTILINESTRING((0 0,1 1),(2 2,3 3))"},
		{
			"MULTIPOLYGON(((0 0,1 0,1 1,0 0)),((5 5,6 5,6 6,5 5)))",
			"MULTIPOLYGON(((0 0,1 0,1 1,0 0)),((5 5,6 5,6 6,5 5)))",
			"MULTIPOLYGON(((0 0,1 0,1 1,0 0)),((5 5,6 5,6 6,5 5)))",
		},
		{
			"SRID=3857;GEOMETRYCOLLECTION(POINT(1 2),LINESTRING(0 0,1 1))",
			"GEOMETRYCOLLECTION(POINT(1 2),LINESTRING(0 0,1 1))",
			"SRID=3857;GEOMETRYCOLLECTION(POINT(1 2),LINESTRING(0 0,1 1))",
		},
		{"GEOMETRYCOLLECTION EMPTY", "GEOMETRYCOLLECTION EMPTY", "GEOMETRYCOLLECTION EMPTY"},
		{"POINT(-0 0)", "POINT(0 0)", "POINT(0 0)"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			p := mustParse(t, e, tt.input)
			defer e.FreeGeom(p)

			assert.Equal(t, tt.iso, wktOf(t, e, p, WKTISO))
			assert.Equal(t, tt.extended, wktOf(t, e, p, WKTExtended))
		})
	}
}

func TestToWKTPrecision(t *testing.T) {
	e, _ := newTestEngine(t)

	p := mustParse(t, e, "POINT(1.123456789 -2.987654321)")
	defer e.FreeGeom(p)

	for precision, want := range map[int]string{
		0:  "POINT(1 -3)",
		3:  "POINT(1.123 -2.988)",
		15: "POINT(1.123456789 -2.987654321)",
		-1: "POINT(1 -3)",
	} {
		buf, size := e.ToWKT(p, WKTISO, precision)
		assert.Equal(t, want, string(buf.Bytes()[:size-1]), "precision %d", precision)
		e.FreeBuffer(buf)
	}
}

func TestToWKTUnknownVariant(t *testing.T) {
	e, _ := newTestEngine(t)

	p := mustParse(t, e, "POINT(1 2)")
	defer e.FreeGeom(p)

	buf, size := e.ToWKT(p, WKBNDR, 15)
	assert.Nil(t, buf)
	assert.Zero(t, size)
}

func TestFormatOrdinate(t *testing.T) {
	tests := []struct {
		v         float64
		precision int
		want      string
	}{
		{100, 15, "100"},
		{3.14159, 2, "3.14"},
		{1.0 / 3, 15, "0.333333333333333"},
		{0.1 + 0.2, 15, "0.3"},
		{-0.0001, 2, "0"},
		{math.Copysign(0, -1), 15, "0"},
		{123456789012345.678, 15, "123456789012345.67"},
		{123456789012345.678, 1, "123456789012345.7"},
		{1e20, 15, "1e+20"},
		{-20037508.342789, 15, "-20037508.342789"},
		{math.NaN(), 15, "NaN"},
	}

	for _, tt := range tests {
		if got := FormatOrdinate(tt.v, tt.precision); got != tt.want {
			t.Errorf("FormatOrdinate(%v, %d) = %q, want %q", tt.v, tt.precision, got, tt.want)
		}
	}
}

func varlenaHex(t *testing.T, e *Engine, p Ptr, variant Variant) string {
	t.Helper()
	v := e.ToWKBVarlena(p, variant)
	require.NotNil(t, v)
	defer e.FreeVarlena(v)
	require.Len(t, v.Data(), v.Size())
	return strings.ToUpper(hex.EncodeToString(v.Data()))
}

func TestToWKBVarlena(t *testing.T) {
	e, _ := newTestEngine(t)

	tests := []struct {
		input   string
		variant Variant
		want    string
	}{
		{
			"SRID=4326;POINT(1 2)", WKBExtended,
			"0101000020E6100000000000000000F03F0000000000000040",
		},
		{
			"POINT(1 2)", WKBExtended,
			"0101000000000000000000F03F0000000000000040",
		},
		{
			"SRID=4326;POINT(1 2)", WKBExtended | WKBXDR,
			"0020000001000010E63FF00000000000004000000000000000",
		},
		{
			"POINT Z (1 2 3)", WKBISO,
			"01E9030000000000000000F03F00000000000000400000000000000840",
		},
		{
			"SRID=4326;POINT Z (1 2 3)", WKBISO,
			"01E9030000000000000000F03F00000000000000400000000000000840",
		},
		{
			"POINT EMPTY", WKBExtended,
			"0101000000000000000000F87F000000000000F87F",
		},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			p := mustParse(t, e, tt.input)
			defer e.FreeGeom(p)
			assert.Equal(t, tt.want, varlenaHex(t, e, p, tt.variant))
		})
	}
}

// The encoder must agree with go-geom's EWKB writer for every geometry type.
func TestToWKBVarlenaMatchesEWKBHex(t *testing.T) {
	e, _ := newTestEngine(t)

	inputs := []string{
		"SRID=4326;LINESTRING(0 0,1 1,2 0)",
		"POLYGON((0 0,4 0,4 4,0 4,0 0),(1 1,2 1,2 2,1 1))",
		"SRID=3857;MULTIPOINT(0 0,1 1)",
		"MULTILINESTRING Z ((0 0 1,1 1 2),(2 2 3,3 3 4))",
		"MULTIPOLYGON(((0 0,1 0,1 1,0 0)),((5 5,6 5,6 6,5 5)))",
		"SRID=4326;GEOMETRYCOLLECTION(POINT(1 2),LINESTRING(0 0,1 1))",
		"POINTM(1 2 3)",
		"POINT ZM (1 2 3 4)",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			p := mustParse(t, e, input)
			defer e.FreeGeom(p)

			g := e.Geometry(p)
			if srid := e.GetSRID(p); srid != SRIDUnknown {
				g = withSRID(t, g, int(srid))
			}
			want, err := ewkbhex.Encode(g, binary.LittleEndian)
			require.NoError(t, err)
			assert.Equal(t, strings.ToUpper(want), varlenaHex(t, e, p, WKBExtended))
		})
	}
}

func withSRID(t *testing.T, g geom.T, srid int) geom.T {
	t.Helper()
	switch g := g.(type) {
	case *geom.LineString:
		return geom.NewLineStringFlat(g.Layout(), g.FlatCoords()).SetSRID(srid)
	case *geom.MultiPoint:
		return geom.NewMultiPointFlat(g.Layout(), g.FlatCoords()).SetSRID(srid)
	case *geom.GeometryCollection:
		gc := geom.NewGeometryCollection()
		require.NoError(t, gc.Push(g.Geoms()...))
		return gc.SetSRID(srid)
	default:
		t.Fatalf("unexpected %T", g)
		return nil
	}
}

func TestFromWKBRoundTrip(t *testing.T) {
	e, _ := newTestEngine(t)

	inputs := []string{
		"SRID=4326;POINT(1 2)",
		"POINT EMPTY",
		"LINESTRING Z (0 0 1,1 1 2)",
		"SRID=3857;POLYGON((0 0,4 0,4 4,0 4,0 0),(1 1,2 1,2 2,1 1))",
		"MULTIPOINT(0 0,1 1)",
		"SRID=4326;GEOMETRYCOLLECTION(POINT(1 2),LINESTRING(0 0,1 1))",
	}

	for _, input := range inputs {
		for _, variant := range []Variant{WKBExtended, WKBExtended | WKBXDR} {
			p := mustParse(t, e, input)
			v := e.ToWKBVarlena(p, variant)
			q := e.FromWKB(v.Data(), CheckAll)
			e.FreeVarlena(v)
			require.NotEqual(t, Null, q, input)

			assert.Equal(t, e.GetSRID(p), e.GetSRID(q), input)
			assert.Equal(t, wktOf(t, e, p, WKTExtended), wktOf(t, e, q, WKTExtended), input)
			e.FreeGeom(q)
			e.FreeGeom(p)
		}
	}
}

func TestFromWKBISO(t *testing.T) {
	e, _ := newTestEngine(t)

	p := e.FromHexWKB("01E9030000000000000000F03F00000000000000400000000000000840", CheckAll)
	require.NotEqual(t, Null, p)
	defer e.FreeGeom(p)
	assert.Equal(t, "POINT Z (1 2 3)", wktOf(t, e, p, WKTISO))
}

func TestFromWKBFailures(t *testing.T) {
	e, _ := newTestEngine(t)

	var notices []string
	e.SetNoticeHandler(func(msg string) { notices = append(notices, msg) })

	// LINESTRING(0 0) with a single vertex.
	short := "010200000001000000" + "00000000000000000000000000000000"
	// POLYGON((0 0,1 0,1 1,0 1)) with an open ring.
	open := "01030000000100000004000000" +
		"00000000000000000000000000000000" +
		"000000000000F03F0000000000000000" +
		"000000000000F03F000000000000F03F" +
		"0000000000000000000000000000F03F"

	tests := []struct {
		name string
		hex  string
	}{
		{"empty", ""},
		{"truncated", "0101000000"},
		{"bad type", "01FF000000"},
		{"not hex", "zz"},
		{"short line", short},
		{"open ring", open},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notices = notices[:0]
			assert.Equal(t, Null, e.FromHexWKB(tt.hex, CheckAll))
			assert.NotEmpty(t, notices)
		})
	}

	p := e.FromHexWKB(short, CheckNone)
	assert.NotEqual(t, Null, p, "checks are optional")
	e.FreeGeom(p)
}

func TestToGeoJSON(t *testing.T) {
	e, _ := newTestEngine(t)

	p := mustParse(t, e, "SRID=4326;LINESTRING(0 0,1.123456 2)")
	defer e.FreeGeom(p)

	buf, size := e.ToGeoJSON(p, 2)
	require.NotNil(t, buf)
	defer e.FreeBuffer(buf)
	assert.JSONEq(t, `{"type":"LineString","coordinates":[[0,0],[1.12,2]]}`, string(buf.Bytes()[:size-1]))
}
