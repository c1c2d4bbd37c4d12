package tile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/wegman-software/lwgeom-go/internal/logger"
)

// Set is a deduplicated, concurrency-safe collection of tiles.
type Set struct {
	mu    sync.Mutex
	tiles map[Tile]struct{}
}

// NewSet creates an empty set.
func NewSet() *Set {
	return &Set{tiles: make(map[Tile]struct{})}
}

// Add inserts tiles, ignoring ones already present.
func (s *Set) Add(tiles ...Tile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range tiles {
		s.tiles[t] = struct{}{}
	}
}

// AddBox inserts the tiles covering box at every zoom in [minZoom, maxZoom].
func (s *Set) AddBox(box Box, minZoom, maxZoom int) {
	s.Add(Cover(box, minZoom, maxZoom)...)
}

// Len returns the number of unique tiles
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tiles)
}

// CountByZoom returns the count of tiles at each zoom level
func (s *Set) CountByZoom() map[int]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[int]int)
	for t := range s.tiles {
		counts[t.Z]++
	}
	return counts
}

// Sorted returns the tiles ordered by zoom, column, then row.
func (s *Set) Sorted() []Tile {
	s.mu.Lock()
	tiles := make([]Tile, 0, len(s.tiles))
	for t := range s.tiles {
		tiles = append(tiles, t)
	}
	s.mu.Unlock()

	sort.Slice(tiles, func(i, j int) bool {
		if tiles[i].Z != tiles[j].Z {
			return tiles[i].Z < tiles[j].Z
		}
		if tiles[i].X != tiles[j].X {
			return tiles[i].X < tiles[j].X
		}
		return tiles[i].Y < tiles[j].Y
	})
	return tiles
}

// WriteTo writes one z/x/y line per tile in sorted order.
func (s *Set) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64
	for _, t := range s.Sorted() {
		c, err := fmt.Fprintln(bw, t.String())
		n += int64(c)
		if err != nil {
			return n, err
		}
	}
	return n, bw.Flush()
}

// WriteFile writes the set to filename and logs a per-zoom summary.
func (s *Set) WriteFile(filename string) error {
	log := logger.Get()

	f, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "failed to create tile list")
	}
	defer f.Close()

	if _, err := s.WriteTo(f); err != nil {
		return errors.Wrap(err, "failed to write tile list")
	}

	counts := s.CountByZoom()
	zooms := make([]int, 0, len(counts))
	for z := range counts {
		zooms = append(zooms, z)
	}
	sort.Ints(zooms)

	fields := make([]zap.Field, 0, len(counts)+2)
	fields = append(fields, zap.String("file", filename))
	for _, z := range zooms {
		fields = append(fields, zap.Int(fmt.Sprintf("z%d", z), counts[z]))
	}
	fields = append(fields, zap.Int("total", s.Len()))
	log.Info("Wrote tile list", fields...)

	return f.Close()
}
