package export

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/paulmach/orb/maptile"
	"github.com/pierrre/geohash"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wegman-software/lwgeom-go/internal/logger"
	"github.com/wegman-software/lwgeom-go/internal/tile"
	"github.com/wegman-software/lwgeom-go/lwgeom"
)

// GridOptions configures WriteGrid.
type GridOptions struct {
	Workers   int
	BatchSize int
	Margin    float64
	// Bounds replaces the Web Mercator extent. It is borrowed, not closed.
	Bounds *lwgeom.Geom
}

// GridStats summarizes a WriteGrid run.
type GridStats struct {
	Tiles    int64
	Duration time.Duration
}

// WriteGrid computes the envelope of every tile in r and writes them to a
// Parquet file at path. Envelopes are built by opts.Workers goroutines and
// written by one.
func WriteGrid(ctx context.Context, lc *lwgeom.Context, r tile.Range, path string, opts GridOptions) (*GridStats, error) {
	log := logger.Get()
	start := time.Now()

	workers := max(opts.Workers, 1)
	tileOpts := []lwgeom.TileOption{lwgeom.WithMargin(opts.Margin)}
	if opts.Bounds != nil {
		tileOpts = append(tileOpts, lwgeom.WithBounds(opts.Bounds))
	}

	w, err := NewTileWriter(path, opts.BatchSize, nil)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	tiles := make(chan tile.Tile, workers*64)
	rows := make(chan Row, workers*64)

	g.Go(func() error {
		defer close(tiles)
		var err error
		r.Each(func(t tile.Tile) bool {
			select {
			case tiles <- t:
				return true
			case <-gctx.Done():
				err = gctx.Err()
				return false
			}
		})
		return err
	})

	hashPrecision := geoHashPrecision(r.Z)
	workerGroup, wctx := errgroup.WithContext(gctx)
	for i := 0; i < workers; i++ {
		workerGroup.Go(func() error {
			for t := range tiles {
				row, err := envelopeRow(lc, t, hashPrecision, tileOpts)
				if err != nil {
					return err
				}
				select {
				case rows <- row:
				case <-wctx.Done():
					return wctx.Err()
				}
			}
			return nil
		})
	}
	g.Go(func() error {
		defer close(rows)
		return workerGroup.Wait()
	})

	g.Go(func() error {
		for row := range rows {
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	})

	runErr := g.Wait()
	closeErr := w.Close()
	if runErr != nil {
		return nil, runErr
	}
	if closeErr != nil {
		return nil, closeErr
	}

	stats := &GridStats{Tiles: w.Rows(), Duration: time.Since(start)}
	log.Info("Tile grid written",
		zap.String("file", path),
		zap.Int("zoom", r.Z),
		zap.Int64("tiles", stats.Tiles),
		zap.Int("workers", workers),
		zap.Duration("duration", stats.Duration))
	return stats, nil
}

func envelopeRow(lc *lwgeom.Context, t tile.Tile, hashPrecision int, opts []lwgeom.TileOption) (Row, error) {
	env, err := lc.TileEnvelope(t.Z, t.X, t.Y, opts...)
	if err != nil {
		return Row{}, errors.Wrapf(err, "tile %s", t)
	}
	defer env.Close()

	ewkb, err := env.AsEWKB()
	if err != nil {
		return Row{}, errors.Wrapf(err, "tile %s", t)
	}
	srid, _ := env.SRID()

	// The hash locates the tile on the Web Mercator grid whatever the bounds.
	center := maptile.New(uint32(t.X), uint32(t.Y), maptile.Zoom(t.Z)).Bound().Center()

	return Row{
		Z:       int32(t.Z),
		X:       int32(t.X),
		Y:       int32(t.Y),
		SRID:    srid,
		EWKB:    ewkb,
		GeoHash: geohash.Encode(center.Lat(), center.Lon(), hashPrecision),
	}, nil
}

// geoHashPrecision picks a hash length that roughly matches the tile size.
func geoHashPrecision(zoom int) int {
	return min(zoom/2+1, 12)
}
