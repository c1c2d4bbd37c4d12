package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wegman-software/lwgeom-go/internal/logger"
	"github.com/wegman-software/lwgeom-go/lwgeom"
	"github.com/wegman-software/lwgeom-go/lwgeom/pgxgeom"
)

var dbCmd = &cobra.Command{
	Use:   "db-echo <geometry>",
	Short: "Round-trip a geometry through PostGIS",
	Long: `Send a geometry (EWKT or hex EWKB) to PostGIS as a geometry parameter,
read it back through the binary codec and print it together with the
server's own ST_AsEWKT rendering. Uses the --db-* connection flags.`,
	Args: cobra.ExactArgs(1),
	Run:  runDBEcho,
}

func init() {
	rootCmd.AddCommand(dbCmd)
}

func runDBEcho(cmd *cobra.Command, args []string) {
	log := logger.Get()
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	lc := newContext()
	conv := &converter{ctx: lc, from: "auto", srid: cfg.DefaultSRID}
	g, err := conv.parse(args[0])
	if err != nil {
		exitWithError("invalid geometry", err)
	}
	defer g.Close()

	pool, err := pgxgeom.NewPool(ctx, cfg.ConnectionString(), lc)
	if err != nil {
		exitWithError("failed to connect", err)
	}
	defer pool.Close()

	var (
		back   *lwgeom.Geom
		server string
	)
	err = pool.QueryRow(ctx, "select $1::geometry, ST_AsEWKT($1::geometry)", g).Scan(&back, &server)
	if err != nil {
		exitWithError("query failed", errors.Wrap(err, "echo geometry"))
	}
	defer back.Close()

	local, err := back.AsEWKT(lwgeom.WithPrecision(cfg.Precision))
	if err != nil {
		exitWithError("failed to format result", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "codec:   %s\npostgis: %s\n", local, server)

	log.Debug("PostGIS round trip",
		zap.String("host", cfg.DBHost),
		zap.String("database", cfg.DBName),
		elapsed(start))
}
