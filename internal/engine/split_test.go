package engine

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	e, _ := newTestEngine(t)

	tests := []struct {
		name  string
		input string
		blade string
		want  string
	}{
		{
			"line by point",
			"LINESTRING(0 0,10 0)", "POINT(5 0)",
			"GEOMETRYCOLLECTION(LINESTRING(0 0,5 0),LINESTRING(5 0,10 0))",
		},
		{
			"line by vertex",
			"LINESTRING(0 0,5 0,5 5)", "POINT(5 0)",
			"GEOMETRYCOLLECTION(LINESTRING(0 0,5 0),LINESTRING(5 0,5 5))",
		},
		{
			"point off the line",
			"LINESTRING(0 0,10 0)", "POINT(5 1)",
			"GEOMETRYCOLLECTION(LINESTRING(0 0,10 0))",
		},
		{
			"point at endpoint",
			"LINESTRING(0 0,10 0)", "POINT(0 0)",
			"GEOMETRYCOLLECTION(LINESTRING(0 0,10 0))",
		},
		{
			"line by multipoint",
			"LINESTRING(0 0,10 0)", "MULTIPOINT(8 0,2 0)",
			"GEOMETRYCOLLECTION(LINESTRING(0 0,2 0),LINESTRING(2 0,8 0),LINESTRING(8 0,10 0))",
		},
		{
			"line by crossing line",
			"LINESTRING(0 0,10 0)", "LINESTRING(5 -1,5 1)",
			"GEOMETRYCOLLECTION(LINESTRING(0 0,5 0),LINESTRING(5 0,10 0))",
		},
		{
			"line by multiline",
			"LINESTRING(0 0,10 0)", "MULTILINESTRING((2 -1,2 1),(6 -1,6 1))",
			"GEOMETRYCOLLECTION(LINESTRING(0 0,2 0),LINESTRING(2 0,6 0),LINESTRING(6 0,10 0))",
		},
		{
			"multiline by line",
			"MULTILINESTRING((0 0,10 0),(0 5,10 5))", "LINESTRING(5 -1,5 6)",
			"GEOMETRYCOLLECTION(LINESTRING(0 0,5 0),LINESTRING(5 0,10 0),LINESTRING(0 5,5 5),LINESTRING(5 5,10 5))",
		},
		{
			"z interpolated",
			"LINESTRING Z (0 0 0,10 0 10)", "POINT(5 0)",
			"GEOMETRYCOLLECTION Z (LINESTRING Z (0 0 0,5 0 5),LINESTRING Z (5 0 5,10 0 10))",
		},
		{
			"keeps srid",
			"SRID=4326;LINESTRING(0 0,10 0)", "SRID=4326;POINT(5 0)",
			"GEOMETRYCOLLECTION(LINESTRING(0 0,5 0),LINESTRING(5 0,10 0))",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := mustParse(t, e, tt.input)
			defer e.FreeGeom(in)
			blade := mustParse(t, e, tt.blade)
			defer e.FreeGeom(blade)

			out, err := e.Split(in, blade)
			require.NoError(t, err)
			defer e.FreeGeom(out)

			assert.Equal(t, tt.want, wktOf(t, e, out, WKTISO))
			assert.Equal(t, e.GetSRID(in), e.GetSRID(out))
		})
	}
}

func TestSplitErrors(t *testing.T) {
	e, _ := newTestEngine(t)

	tests := []struct {
		name  string
		input string
		blade string
		msg   string
	}{
		{"polygon", "POLYGON((0 0,1 0,1 1,0 0))", "LINESTRING(0 0,1 1)", "Splitting a POLYGON by a LINESTRING is unsupported"},
		{"polygon blade", "LINESTRING(0 0,1 1)", "POLYGON((0 0,1 0,1 1,0 0))", "Splitting a LINESTRING by a POLYGON is unsupported"},
		{"overlap", "LINESTRING(0 0,10 0)", "LINESTRING(2 0,4 0)", "Splitter line has linear intersection with input"},
		{"mixed srid", "SRID=4326;LINESTRING(0 0,10 0)", "SRID=3857;POINT(5 0)", "Operation on mixed SRID geometries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := mustParse(t, e, tt.input)
			defer e.FreeGeom(in)
			blade := mustParse(t, e, tt.blade)
			defer e.FreeGeom(blade)

			out, err := e.Split(in, blade)
			require.Error(t, err)
			assert.Equal(t, Null, out)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestSplitOverlapIsSentinel(t *testing.T) {
	e, _ := newTestEngine(t)

	in := mustParse(t, e, "LINESTRING(0 0,10 0)")
	defer e.FreeGeom(in)
	blade := mustParse(t, e, "LINESTRING(-5 0,15 0)")
	defer e.FreeGeom(blade)

	_, err := e.Split(in, blade)
	assert.True(t, errors.Is(err, ErrLinearIntersection))
}
