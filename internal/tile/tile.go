// Package tile addresses z/x/y map tiles in the Web Mercator scheme, row 0 at
// the top.
package tile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// MaxZoom is the deepest zoom level the tile helpers accept.
const MaxZoom = 30

// Latitude limits of the square Web Mercator world.
const (
	MaxMercatorLat = 85.0511287798
	MinMercatorLat = -85.0511287798
)

// Tile is one map tile.
type Tile struct {
	Z int
	X int
	Y int
}

// String returns the tile in z/x/y format
func (t Tile) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y)
}

// Parse reads a tile written as z/x/y.
func Parse(s string) (Tile, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 {
		return Tile{}, errors.Newf("invalid tile %q: expected z/x/y", s)
	}
	var v [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Tile{}, errors.Wrapf(err, "invalid tile %q", s)
		}
		v[i] = n
	}
	t := Tile{Z: v[0], X: v[1], Y: v[2]}
	if err := t.Validate(); err != nil {
		return Tile{}, err
	}
	return t, nil
}

// Validate checks that the tile exists at its zoom level.
func (t Tile) Validate() error {
	if t.Z < 0 || t.Z > MaxZoom {
		return errors.Newf("zoom %d out of range [0, %d]", t.Z, MaxZoom)
	}
	n := 1 << t.Z
	if t.X < 0 || t.X >= n || t.Y < 0 || t.Y >= n {
		return errors.Newf("tile %s out of range at zoom %d", t, t.Z)
	}
	return nil
}

// Box is a lon/lat bounding box in degrees.
type Box struct {
	MinLon, MinLat, MaxLon, MaxLat float64
}

// IsValid checks if the bounding box is valid
func (b Box) IsValid() bool {
	return b.MinLon <= b.MaxLon && b.MinLat <= b.MaxLat &&
		b.MinLon >= -180 && b.MaxLon <= 180 &&
		b.MinLat >= -90 && b.MaxLat <= 90
}

// FromLonLat returns the tile containing lon/lat at zoom. Coordinates outside
// the Web Mercator world are clamped onto its edge.
func FromLonLat(lon, lat float64, zoom int) Tile {
	lat = clamp(lat, MinMercatorLat, MaxMercatorLat)
	lon = clamp(lon, -180, 180)

	mt := maptile.At(orb.Point{lon, lat}, maptile.Zoom(zoom))
	n := 1 << zoom
	return Tile{
		Z: zoom,
		X: min(int(mt.X), n-1),
		Y: min(int(mt.Y), n-1),
	}
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

// Range is a rectangle of tiles at one zoom level, bounds inclusive.
type Range struct {
	Z          int
	MinX, MaxX int
	MinY, MaxY int
}

// World returns every tile at zoom.
func World(zoom int) Range {
	n := 1 << zoom
	return Range{Z: zoom, MaxX: n - 1, MaxY: n - 1}
}

// BoxRange returns the tiles intersecting box at zoom.
func BoxRange(box Box, zoom int) Range {
	// Y grows southwards, so the north-west corner holds the smallest row.
	topLeft := FromLonLat(box.MinLon, box.MaxLat, zoom)
	bottomRight := FromLonLat(box.MaxLon, box.MinLat, zoom)

	return Range{
		Z:    zoom,
		MinX: topLeft.X,
		MaxX: bottomRight.X,
		MinY: topLeft.Y,
		MaxY: bottomRight.Y,
	}
}

// Count returns the number of tiles in the range
func (r Range) Count() int {
	return (r.MaxX - r.MinX + 1) * (r.MaxY - r.MinY + 1)
}

// Tiles returns all tiles in the range, column by column.
func (r Range) Tiles() []Tile {
	tiles := make([]Tile, 0, r.Count())
	r.Each(func(t Tile) bool {
		tiles = append(tiles, t)
		return true
	})
	return tiles
}

// Each calls fn for every tile in the range until fn returns false.
func (r Range) Each(fn func(Tile) bool) {
	for x := r.MinX; x <= r.MaxX; x++ {
		for y := r.MinY; y <= r.MaxY; y++ {
			if !fn(Tile{Z: r.Z, X: x, Y: y}) {
				return
			}
		}
	}
}

// Cover returns the tiles intersecting box at every zoom in [minZoom, maxZoom].
func Cover(box Box, minZoom, maxZoom int) []Tile {
	if !box.IsValid() {
		return nil
	}

	var tiles []Tile
	for z := minZoom; z <= maxZoom; z++ {
		tiles = append(tiles, BoxRange(box, z).Tiles()...)
	}
	return tiles
}
