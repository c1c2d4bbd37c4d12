package lwgeom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeoHash(t *testing.T) {
	c := newTestContext(t)

	tests := []struct {
		wkt       string
		precision int
		want      string
	}{
		{"POINT(-126 48)", 5, "c0w3h"},
		{"POINT(-126 48)", GeoHashAutoPrecision, "c0w3hf1s70w3hf1s70w3"},
		{"POINT(-126 48)", 25, "c0w3hf1s70w3hf1s70w3"},
		{"LINESTRING(-126 48,-125 49)", GeoHashAutoPrecision, "c0"},
	}

	for _, tt := range tests {
		t.Run(tt.wkt, func(t *testing.T) {
			g := mustEWKT(t, c, tt.wkt)
			defer g.Close()

			got, err := g.GeoHash(tt.precision)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGeoHashEdgeCases(t *testing.T) {
	c := newTestContext(t)

	empty := mustEWKT(t, c, "POINT EMPTY")
	defer empty.Close()
	h, err := empty.GeoHash(5)
	require.NoError(t, err)
	assert.Empty(t, h)

	mercator := mustEWKT(t, c, "POINT(1000000 1000000)")
	defer mercator.Close()
	_, err = mercator.GeoHash(5)
	assert.ErrorContains(t, err, "bounds greater than the bounds of lat/lng")
}

func TestAsGeoJSON(t *testing.T) {
	c := newTestContext(t)

	g := mustEWKT(t, c, "SRID=4326;POLYGON((0 0,1 0,1 1,0 0))")
	defer g.Close()

	s, err := g.AsGeoJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}`, s)

	p := mustEWKT(t, c, "POINT(1.23456 2)")
	defer p.Close()
	s, err = p.AsGeoJSON(WithPrecision(2))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"Point","coordinates":[1.23,2]}`, s)
}
