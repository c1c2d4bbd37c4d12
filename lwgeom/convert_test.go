package lwgeom

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

func TestTextRoundTrip(t *testing.T) {
	c := newTestContext(t)

	inputs := []string{
		"POINT(1 2)",
		"POINT Z (1 2 3)",
		"LINESTRING(0 0,1.25 -3.5,10 10)",
		"POLYGON((0 0,4 0,4 4,0 4,0 0),(1 1,2 1,2 2,1 1))",
		"MULTIPOINT((0 0),(1 1))",
		"MULTILINESTRING((0 0,1 1),(2 2,3 3))",
		"MULTIPOLYGON(((0 0,1 0,1 1,0 0)),((5 5,6 5,6 6,5 5)))",
		"GEOMETRYCOLLECTION(POINT(1 2),LINESTRING(0 0,1 1))",
		"POINT EMPTY",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			g, err := c.FromText(input, 0)
			require.NoError(t, err)
			defer g.Close()

			text, err := g.AsText()
			require.NoError(t, err)
			assert.Equal(t, input, text)

			again, err := c.FromText(text, 0)
			require.NoError(t, err)
			defer again.Close()
			text2, err := again.AsText()
			require.NoError(t, err)
			assert.Equal(t, text, text2)
		})
	}
}

func TestTextRoundTripWithinPrecision(t *testing.T) {
	c := newTestContext(t)

	g, err := c.FromText("POINT(1.23456789 9.87654321)", 0)
	require.NoError(t, err)
	defer g.Close()

	text, err := g.AsText(WithPrecision(4))
	require.NoError(t, err)
	assert.Equal(t, "POINT(1.2346 9.8765)", text)

	again, err := c.FromText(text, 0)
	require.NoError(t, err)
	defer again.Close()

	box, err := again.BBox()
	require.NoError(t, err)
	assert.InDelta(t, 1.23456789, box.XMin(), 1e-4)
	assert.InDelta(t, 9.87654321, box.YMin(), 1e-4)
}

func TestAsEWKT(t *testing.T) {
	c := newTestContext(t)

	g, err := c.FromText("POINT(1 2)", 4326)
	require.NoError(t, err)
	defer g.Close()

	ewkt, err := g.AsEWKT()
	require.NoError(t, err)
	assert.Equal(t, "SRID=4326;POINT(1 2)", ewkt)

	text, err := g.AsText()
	require.NoError(t, err)
	assert.Equal(t, "POINT(1 2)", text)
}

func TestFromTextErrors(t *testing.T) {
	c := newTestContext(t)

	t.Run("garbage", func(t *testing.T) {
		_, err := c.FromText("not wkt", 0)
		var perr *WKTParseError
		require.True(t, errors.As(err, &perr), "got %v", err)
		assert.Equal(t, "parse error - invalid geometry", perr.Message)
	})

	t.Run("checks", func(t *testing.T) {
		_, err := c.FromText("POLYGON((0 0,1 0,1 1,0 1))", 0)
		var perr *WKTParseError
		require.True(t, errors.As(err, &perr), "got %v", err)
		assert.Equal(t, "geometry contains non-closed rings", perr.Message)
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := c.FromText("", 0)
		var ferr *FailedWithoutMessageError
		require.True(t, errors.As(err, &ferr), "got %v", err)
		assert.Equal(t, "lwgeom_parse_wkt", ferr.Op)

		_, err = c.FromEWKT("  ")
		require.True(t, errors.As(err, &ferr), "got %v", err)
		assert.Equal(t, "lwgeom_parse_ewkt", ferr.Op)
	})

	t.Run("nul byte", func(t *testing.T) {
		_, err := c.FromText("POINT(1\x002)", 0)
		var eerr *EncodingError
		require.True(t, errors.As(err, &eerr), "got %v", err)
		assert.Equal(t, 7, eerr.Offset)
	})

	t.Run("ewkt passed as wkt", func(t *testing.T) {
		_, err := c.FromText("SRID=4326;POINT(1 2)", 3857)
		var merr *MixedFormatError
		require.True(t, errors.As(err, &merr), "got %v", err)
		assert.Equal(t, int32(4326), merr.SRID)
	})
}

func TestEWKBRoundTrip(t *testing.T) {
	c := newTestContext(t)

	inputs := []string{
		"SRID=4326;POINT(1 2)",
		"POINT(1 2)",
		"SRID=3857;LINESTRING Z (0 0 1,1 1 2)",
		"POLYGON((0 0,4 0,4 4,0 4,0 0))",
		"SRID=4326;MULTIPOLYGON(((0 0,1 0,1 1,0 0)),((5 5,6 5,6 6,5 5)))",
		"SRID=4326;GEOMETRYCOLLECTION(POINT(1 2),LINESTRING(0 0,1 1))",
		"POINT EMPTY",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			g := mustEWKT(t, c, input)
			defer g.Close()

			data, err := g.AsEWKB()
			require.NoError(t, err)

			back, err := c.FromEWKB(data)
			require.NoError(t, err)
			defer back.Close()

			wantSRID, wantOK := g.SRID()
			gotSRID, gotOK := back.SRID()
			assert.Equal(t, wantOK, gotOK)
			assert.Equal(t, wantSRID, gotSRID)

			want, err := g.AsEWKT()
			require.NoError(t, err)
			got, err := back.AsEWKT()
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestAsEWKBKeepsZeroBytes(t *testing.T) {
	c := newTestContext(t)

	g := mustEWKT(t, c, "POINT(0 0)")
	defer g.Close()

	data, err := g.AsEWKB()
	require.NoError(t, err)
	require.Len(t, data, 21)
	assert.Equal(t, bytes.Repeat([]byte{0}, 16), data[5:])

	decoded, err := ewkb.Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, decoded.FlatCoords())
}

func TestAsEWKBDecodesWithGoGeom(t *testing.T) {
	c := newTestContext(t)

	g := mustEWKT(t, c, "SRID=4326;LINESTRING(0 0,1 1)")
	defer g.Close()

	data, err := g.AsEWKB()
	require.NoError(t, err)

	decoded, err := ewkb.Unmarshal(data)
	require.NoError(t, err)
	ls, ok := decoded.(*geom.LineString)
	require.True(t, ok)
	assert.Equal(t, 4326, ls.SRID())
	assert.Equal(t, []float64{0, 0, 1, 1}, ls.FlatCoords())
}

func TestAsWKB(t *testing.T) {
	c := newTestContext(t)

	g := mustEWKT(t, c, "SRID=4326;POINT Z (1 2 3)")
	defer g.Close()

	ndr, err := g.AsWKB(NDR)
	require.NoError(t, err)
	assert.Equal(t, byte(1), ndr[0])
	assert.Equal(t, uint32(1001), binary.LittleEndian.Uint32(ndr[1:5]))
	assert.Len(t, ndr, 1+4+3*8)

	xdr, err := g.AsWKB(XDR)
	require.NoError(t, err)
	assert.Equal(t, byte(0), xdr[0])
	assert.Equal(t, uint32(1001), binary.BigEndian.Uint32(xdr[1:5]))

	back, err := c.FromEWKB(xdr)
	require.NoError(t, err)
	defer back.Close()
	assert.False(t, back.HasSRID(), "ISO WKB has no SRID")
	text, err := back.AsText()
	require.NoError(t, err)
	assert.Equal(t, "POINT Z (1 2 3)", text)
}

func TestHexEWKB(t *testing.T) {
	c := newTestContext(t)

	const hexPoint = "0101000020E6100000000000000000F03F0000000000000040"

	g, err := c.FromHexEWKB(hexPoint)
	require.NoError(t, err)
	defer g.Close()

	ewkt, err := g.AsEWKT()
	require.NoError(t, err)
	assert.Equal(t, "SRID=4326;POINT(1 2)", ewkt)

	out, err := g.AsHexEWKB()
	require.NoError(t, err)
	assert.Equal(t, hexPoint, out)
}

func TestFromEWKBNull(t *testing.T) {
	c := newTestContext(t)

	for _, data := range [][]byte{nil, {0x01}, {0x01, 0x02, 0x00, 0x00}, []byte("POINT(1 2)")} {
		g, err := c.FromEWKB(data)
		assert.Nil(t, g)
		assert.True(t, errors.Is(err, ErrNullPtr), "got %v", err)
	}

	_, err := c.FromHexEWKB("not hex")
	assert.True(t, errors.Is(err, ErrNullPtr), "got %v", err)
}

func TestParserResultTakeGeom(t *testing.T) {
	c := newTestContext(t)

	pr := c.ParseWKT("SRID=4326;POINT(1 2)")
	require.True(t, pr.OK())
	_, hasMsg := pr.Message()
	assert.False(t, hasMsg)

	g := pr.TakeGeom()
	assert.Panics(t, func() { pr.TakeGeom() }, "ownership moves once")
	pr.Close()

	// Closing the result must not have freed the geometry that moved out.
	srid, ok := g.SRID()
	assert.True(t, ok)
	assert.Equal(t, int32(4326), srid)
	require.NoError(t, g.Close())
}

func TestParserResultFailure(t *testing.T) {
	c := newTestContext(t)

	pr := c.ParseWKT("POINT(1 2")
	defer pr.Close()

	assert.False(t, pr.OK())
	msg, ok := pr.Message()
	assert.True(t, ok)
	assert.Equal(t, "parse error - invalid geometry", msg)
	assert.Equal(t, 9, pr.Location())
	assert.Panics(t, func() { pr.TakeGeom() })
}

func TestParserResultCloseWithoutTake(t *testing.T) {
	c := newTestContext(t)

	pr := c.ParseWKT("LINESTRING(0 0,1 1)")
	require.True(t, pr.OK())
	pr.Close()
	assert.Zero(t, c.Stats().LiveGeoms)
}
