package cmd

import (
	"context"
	"time"

	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wegman-software/lwgeom-go/internal/logger"
	"github.com/wegman-software/lwgeom-go/internal/metrics"
	"github.com/wegman-software/lwgeom-go/lwgeom"
)

var benchCount int

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Create and release geometries concurrently and check for leaks",
	Long: `Run --count iterations spread over --workers goroutines. Each iteration
parses a geometry, round-trips it through EWKB, computes a tile envelope,
splits a line and releases everything. The command fails if any engine
allocation is still live at the end.`,
	Run: runBench,
}

func init() {
	rootCmd.AddCommand(benchCmd)

	benchCmd.Flags().IntVar(&benchCount, "count", 100000, "Number of iterations")
}

type benchResult struct {
	Iterations int
	Stats      lwgeom.Stats
	Duration   time.Duration
}

func runBench(cmd *cobra.Command, args []string) {
	log := logger.Get()

	res, err := benchmark(cmd.Context(), benchCount, cfg.Workers, log)
	if err != nil {
		exitWithError("benchmark failed", err)
	}
	log.Info("Benchmark complete",
		zap.Int("iterations", res.Iterations),
		zap.Int64("geom_allocs", res.Stats.GeomAllocs),
		zap.Int64("buffer_allocs", res.Stats.BufferAllocs),
		zap.Duration("duration", res.Duration),
		zap.Float64("iter_per_sec", float64(res.Iterations)/res.Duration.Seconds()))
}

func benchmark(ctx context.Context, count, workers int, log *zap.Logger) (*benchResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	workers = max(workers, 1)

	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	lc := lwgeom.NewContext(lwgeom.WithAllocator(mem), lwgeom.WithLogger(log))
	collector := metrics.NewCollector(cfg.MetricsInterval, log, lc)

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			for i := w; i < count; i += workers {
				if i%1024 == 0 && gctx.Err() != nil {
					return gctx.Err()
				}
				if err := benchIteration(lc, i); err != nil {
					return errors.Wrapf(err, "iteration %d", i)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &benchResult{Iterations: count, Stats: lc.Stats(), Duration: time.Since(start)}
	snap := collector.Sample()
	log.Debug("Engine state after benchmark",
		zap.Int64("live_geoms", snap.Engine.LiveGeoms),
		zap.Int64("live_buffers", snap.Engine.LiveBuffers),
		zap.Float64("rss_mb", snap.ProcessRSSMB))

	if res.Stats.Leaked() || mem.CurrentAlloc() != 0 {
		return res, errors.Newf("leaked %d geometries, %d buffers (%d bytes)",
			res.Stats.LiveGeoms, res.Stats.LiveBuffers, mem.CurrentAlloc())
	}
	return res, nil
}

func benchIteration(lc *lwgeom.Context, i int) error {
	g, err := lc.FromEWKT("SRID=4326;LINESTRING(0 0,10 0,10 10)")
	if err != nil {
		return err
	}
	defer g.Close()

	data, err := g.AsEWKB()
	if err != nil {
		return err
	}
	back, err := lc.FromEWKB(data)
	if err != nil {
		return err
	}
	defer back.Close()

	z := i % 20
	env, err := lc.TileEnvelope(z, i%(1<<z), (i/7)%(1<<z))
	if err != nil {
		return err
	}
	defer env.Close()
	if _, err := env.AsText(); err != nil {
		return err
	}

	blade, err := lc.FromText("POINT(5 0)", 4326)
	if err != nil {
		return err
	}
	defer blade.Close()
	parts, err := back.Split(blade)
	if err != nil {
		return err
	}
	return parts.Close()
}
