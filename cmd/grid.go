package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wegman-software/lwgeom-go/internal/config"
	"github.com/wegman-software/lwgeom-go/internal/export"
	"github.com/wegman-software/lwgeom-go/internal/logger"
	"github.com/wegman-software/lwgeom-go/internal/metrics"
	"github.com/wegman-software/lwgeom-go/internal/tile"
)

// Zoom levels above this produce files too large to be useful as a grid.
const maxGridZoom = 14

var gridOutput string

var gridCmd = &cobra.Command{
	Use:   "grid <z>",
	Short: "Write every tile envelope at a zoom level to Parquet",
	Long: `Compute the envelope of every tile at zoom z and write them to a
Zstd-compressed Parquet file with columns z, x, y, srid, geom_ewkb and geohash.

Envelopes are computed by --workers goroutines. --bounds, --bounds-srid and
--margin apply as for the tile command.`,
	Args: cobra.ExactArgs(1),
	Run:  runGrid,
}

func init() {
	rootCmd.AddCommand(gridCmd)

	gridCmd.Flags().StringVar(&gridOutput, "out", "", "Output file (default <output-dir>/tiles_z<z>.parquet)")
	gridCmd.Flags().IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "Rows per Parquet record batch")
	gridCmd.Flags().Float64Var(&cfg.Margin, "margin", cfg.Margin, "Fraction of the tile size added on each side")
	gridCmd.Flags().StringVar(&tileBounds, "bounds", "", "Tiled extent: xmin,ymin,xmax,ymax")
	gridCmd.Flags().Int32Var(&cfg.BoundsSRID, "bounds-srid", cfg.BoundsSRID, "SRID of --bounds")
}

func runGrid(cmd *cobra.Command, args []string) {
	log := logger.Get()

	z, err := strconv.Atoi(args[0])
	if err != nil || z < 0 || z > maxGridZoom {
		exitWithError(fmt.Sprintf("zoom must be an integer in [0, %d]", maxGridZoom), err)
	}
	if tileBounds != "" {
		if cfg.Bounds, err = config.ParseBounds(tileBounds); err != nil {
			exitWithError("invalid bounds", err)
		}
	}

	out := gridOutput
	if out == "" {
		out = filepath.Join(cfg.OutputDir, fmt.Sprintf("tiles_z%d.parquet", z))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	lc := newContext()
	if cfg.MetricsInterval > 0 {
		metricsCtx, cancelMetrics := context.WithCancel(ctx)
		defer cancelMetrics()

		collector := metrics.NewCollector(cfg.MetricsInterval, log, lc)
		go collector.Start(metricsCtx)
		log.Info("System metrics collection started",
			zap.Duration("interval", cfg.MetricsInterval))
	}

	bounds, err := boundsGeom(lc, cfg.Bounds, cfg.BoundsSRID)
	if err != nil {
		exitWithError("invalid bounds", err)
	}
	if bounds != nil {
		defer bounds.Close()
	}

	log.Info("Writing tile grid",
		zap.Int("zoom", z),
		zap.String("file", out),
		zap.Int("workers", cfg.Workers))

	_, err = export.WriteGrid(ctx, lc, tile.World(z), out, export.GridOptions{
		Workers:   cfg.Workers,
		BatchSize: cfg.BatchSize,
		Margin:    cfg.Margin,
		Bounds:    bounds,
	})
	if err != nil {
		exitWithError("grid export failed", err)
	}
}
