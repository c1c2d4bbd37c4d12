package cmd

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wegman-software/lwgeom-go/internal/config"
	"github.com/wegman-software/lwgeom-go/internal/tile"
	"github.com/wegman-software/lwgeom-go/lwgeom"
)

func TestConverter(t *testing.T) {
	tests := []struct {
		name string
		conv converter
		in   string
		want string
	}{
		{"ewkt to wkt", converter{from: "auto", to: "wkt"}, "SRID=4326;POINT(1 2)", "POINT(1 2)"},
		{"wkt with srid", converter{from: "wkt", to: "ewkt", srid: 3857}, "POINT(1 2)", "SRID=3857;POINT(1 2)"},
		{"ewkt to hex", converter{from: "ewkt", to: "hex"}, "SRID=4326;POINT(1 2)", "0101000020E6100000000000000000F03F0000000000000040"},
		{"hex to ewkt", converter{from: "auto", to: "ewkt"}, "0101000020E6100000000000000000F03F0000000000000040", "SRID=4326;POINT(1 2)"},
		{"srid override", converter{from: "ewkt", to: "ewkt", srid: 2056}, "SRID=4326;POINT(1 2)", "SRID=2056;POINT(1 2)"},
		{"precision", converter{from: "ewkt", to: "wkt", precision: 1}, "POINT(1.26 2)", "POINT(1.3 2)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.conv
			c.ctx = lwgeom.NewContext()
			if c.precision == 0 {
				c.precision = lwgeom.DefaultPrecision
			}
			got, err := c.convert(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.False(t, c.ctx.Stats().Leaked())
		})
	}
}

func TestConverterRun(t *testing.T) {
	c := &converter{ctx: lwgeom.NewContext(), from: "auto", to: "wkt", precision: lwgeom.DefaultPrecision}

	var out strings.Builder
	n, err := c.run(strings.NewReader("POINT(1 2)\n\n  LINESTRING(0 0,1 1)  \n"), &out)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "POINT(1 2)\nLINESTRING(0 0,1 1)\n", out.String())

	out.Reset()
	n, err = c.run(strings.NewReader("POINT(1 2)\nPOINT(1\n"), &out)
	assert.Equal(t, 1, n)
	assert.ErrorContains(t, err, "line 2")

	c.to = "geojson"
	s, err := c.convert("SRID=4326;POINT(1 2)")
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"Point","coordinates":[1,2]}`, s)

	c.to = "svg"
	_, err = c.convert("POINT(1 2)")
	assert.ErrorContains(t, err, `unknown output format "svg"`)
	c.from = "gml"
	_, err = c.convert("POINT(1 2)")
	assert.ErrorContains(t, err, `unknown input format "gml"`)
	assert.False(t, c.ctx.Stats().Leaked())
}

func TestTileFromArgs(t *testing.T) {
	got, err := tileFromArgs([]string{"3", "1", "2"}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, tile.Tile{Z: 3, X: 1, Y: 2}, got)

	got, err = tileFromArgs([]string{"1"}, 10, 10)
	require.NoError(t, err)
	assert.Equal(t, tile.Tile{Z: 1, X: 1, Y: 0}, got)

	_, err = tileFromArgs([]string{"z"}, 0, 0)
	assert.Error(t, err)
	_, err = tileFromArgs([]string{"1", "2"}, 0, 0)
	assert.Error(t, err)
	_, err = tileFromArgs([]string{"31"}, 0, 0)
	assert.Error(t, err)
}

func TestPrintTile(t *testing.T) {
	lc := lwgeom.NewContext()
	c := config.DefaultConfig()

	var out strings.Builder
	require.NoError(t, printTile(&out, lc, tile.Tile{Z: 1, X: 1, Y: 1}, c, "ewkt"))
	assert.Equal(t, "SRID=3857;POLYGON((0 -20037508.342789,0 0,20037508.342789 0,20037508.342789 -20037508.342789,0 -20037508.342789))\n", out.String())

	out.Reset()
	c.Bounds = &config.Bounds{XMin: 0, YMin: 0, XMax: 100, YMax: 100, IsSet: true}
	c.BoundsSRID = 2056
	c.Margin = 0.5
	require.NoError(t, printTile(&out, lc, tile.Tile{Z: 1, X: 0, Y: 0}, c, "ewkt"))
	assert.Equal(t, "SRID=2056;POLYGON((-25 25,-25 100,75 100,75 25,-25 25))\n", out.String())

	err := printTile(&out, lc, tile.Tile{Z: 1, X: 2, Y: 0}, c, "ewkt")
	var ipe *lwgeom.InvalidParameterError
	require.ErrorAs(t, err, &ipe)
	assert.Equal(t, "x", ipe.Param)

	assert.ErrorContains(t, printTile(&out, lc, tile.Tile{}, c, "svg"), "unknown output format")
	assert.False(t, lc.Stats().Leaked())
}

func TestCoverTiles(t *testing.T) {
	lc := lwgeom.NewContext()

	set, err := coverTiles(lc, "POINT(7.4246 43.7384)", 10, 12)
	require.NoError(t, err)
	assert.Equal(t, 3, set.Len())

	_, err = coverTiles(lc, "POINT(1000000 1000000)", 0, 3)
	assert.ErrorContains(t, err, "not in lon/lat degrees")

	_, err = coverTiles(lc, "POINT EMPTY", 0, 3)
	assert.ErrorIs(t, err, lwgeom.ErrNoBBox)

	_, err = coverTiles(lc, "POINT(0 0)", 5, 3)
	assert.ErrorContains(t, err, "invalid zoom range")
	assert.False(t, lc.Stats().Leaked())
}

func TestBenchmark(t *testing.T) {
	res, err := benchmark(context.Background(), 200, 4, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 200, res.Iterations)
	assert.False(t, res.Stats.Leaked())
	assert.Equal(t, res.Stats.GeomAllocs, res.Stats.GeomFrees)
	assert.Positive(t, res.Stats.BufferAllocs)
}
