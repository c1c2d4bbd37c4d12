package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/wegman-software/lwgeom-go/internal/config"
	"github.com/wegman-software/lwgeom-go/internal/tile"
	"github.com/wegman-software/lwgeom-go/lwgeom"
)

var (
	tileLon, tileLat float64
	tileBounds       string
	tileFormat       string
)

var tileCmd = &cobra.Command{
	Use:   "tile <z> [<x> <y>]",
	Short: "Print the envelope of a map tile",
	Long: `Print the polygon covered by tile z/x/y, row 0 at the top.

Without x and y the tile is the one containing --lon/--lat. By default the
tiled extent is the Web Mercator world (SRID 3857); --bounds and
--bounds-srid tile any other rectangle.`,
	Args: cobra.RangeArgs(1, 3),
	Run:  runTile,
}

func init() {
	rootCmd.AddCommand(tileCmd)

	tileCmd.Flags().Float64Var(&tileLon, "lon", 0, "Longitude locating the tile when x/y are omitted")
	tileCmd.Flags().Float64Var(&tileLat, "lat", 0, "Latitude locating the tile when x/y are omitted")
	tileCmd.Flags().Float64Var(&cfg.Margin, "margin", cfg.Margin, "Fraction of the tile size added on each side")
	tileCmd.Flags().StringVar(&tileBounds, "bounds", "", "Tiled extent: xmin,ymin,xmax,ymax")
	tileCmd.Flags().Int32Var(&cfg.BoundsSRID, "bounds-srid", cfg.BoundsSRID, "SRID of --bounds")
	tileCmd.Flags().StringVar(&tileFormat, "format", "ewkt", "Output format: wkt, ewkt, hex, geojson")
}

func runTile(cmd *cobra.Command, args []string) {
	t, err := tileFromArgs(args, tileLon, tileLat)
	if err != nil {
		exitWithError("invalid tile", err)
	}
	if tileBounds != "" {
		b, err := config.ParseBounds(tileBounds)
		if err != nil {
			exitWithError("invalid bounds", err)
		}
		cfg.Bounds = b
	}

	lc := newContext()
	if err := printTile(cmd.OutOrStdout(), lc, t, cfg, tileFormat); err != nil {
		exitWithError("tile envelope failed", err)
	}
}

// tileFromArgs reads z and optionally x y. Lon/lat locate the tile when x/y
// are missing.
func tileFromArgs(args []string, lon, lat float64) (tile.Tile, error) {
	z, err := strconv.Atoi(args[0])
	if err != nil {
		return tile.Tile{}, errors.Wrap(err, "zoom")
	}
	switch len(args) {
	case 1:
		if z < 0 || z > tile.MaxZoom {
			return tile.Tile{}, errors.Newf("zoom %d out of range [0, %d]", z, tile.MaxZoom)
		}
		return tile.FromLonLat(lon, lat, z), nil
	case 3:
		x, err := strconv.Atoi(args[1])
		if err != nil {
			return tile.Tile{}, errors.Wrap(err, "x")
		}
		y, err := strconv.Atoi(args[2])
		if err != nil {
			return tile.Tile{}, errors.Wrap(err, "y")
		}
		// Range checks are left to the envelope calculation.
		return tile.Tile{Z: z, X: x, Y: y}, nil
	}
	return tile.Tile{}, errors.New("expected <z> or <z> <x> <y>")
}

func printTile(w io.Writer, lc *lwgeom.Context, t tile.Tile, c *config.Config, format string) error {
	opts, release, err := tileOptions(lc, c)
	if err != nil {
		return err
	}
	defer release()

	env, err := lc.TileEnvelope(t.Z, t.X, t.Y, opts...)
	if err != nil {
		return err
	}
	defer env.Close()

	var s string
	switch format {
	case "wkt":
		s, err = env.AsText(lwgeom.WithPrecision(c.Precision))
	case "ewkt":
		s, err = env.AsEWKT(lwgeom.WithPrecision(c.Precision))
	case "hex":
		s, err = env.AsHexEWKB()
	case "geojson":
		s, err = env.AsGeoJSON()
	default:
		err = errors.Newf("unknown output format %q", format)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, s)
	return err
}

// tileOptions builds the envelope options from c. release frees the bounds
// geometry once the caller is done with the options.
func tileOptions(lc *lwgeom.Context, c *config.Config) ([]lwgeom.TileOption, func(), error) {
	opts := []lwgeom.TileOption{lwgeom.WithMargin(c.Margin)}
	bounds, err := boundsGeom(lc, c.Bounds, c.BoundsSRID)
	if err != nil {
		return nil, nil, err
	}
	if bounds == nil {
		return opts, func() {}, nil
	}
	return append(opts, lwgeom.WithBounds(bounds)), func() { bounds.Close() }, nil
}

// boundsGeom returns the diagonal of b as a line, whose bounding box is b,
// or nil when b is unset.
func boundsGeom(lc *lwgeom.Context, b *config.Bounds, srid int32) (*lwgeom.Geom, error) {
	if b == nil || !b.IsSet {
		return nil, nil
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	wkt := fmt.Sprintf("LINESTRING(%s %s,%s %s)", f(b.XMin), f(b.YMin), f(b.XMax), f(b.YMax))
	return lc.FromText(wkt, srid)
}
