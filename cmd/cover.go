package cmd

import (
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/wegman-software/lwgeom-go/internal/tile"
	"github.com/wegman-software/lwgeom-go/lwgeom"
)

var (
	coverMinZoom int
	coverMaxZoom int
	coverOutput  string
)

var coverCmd = &cobra.Command{
	Use:   "cover <geometry>",
	Short: "List the tiles covering a lon/lat geometry",
	Long: `List every z/x/y tile intersecting the bounding box of a geometry given in
lon/lat degrees (EWKT or hex EWKB), for each zoom in --min-zoom..--max-zoom.`,
	Args: cobra.ExactArgs(1),
	Run:  runCover,
}

func init() {
	rootCmd.AddCommand(coverCmd)

	coverCmd.Flags().IntVar(&coverMinZoom, "min-zoom", 0, "Minimum zoom level")
	coverCmd.Flags().IntVar(&coverMaxZoom, "max-zoom", 14, "Maximum zoom level")
	coverCmd.Flags().StringVar(&coverOutput, "out", "", "Write the tile list to this file instead of stdout")
}

func runCover(cmd *cobra.Command, args []string) {
	set, err := coverTiles(newContext(), args[0], coverMinZoom, coverMaxZoom)
	if err != nil {
		exitWithError("cover failed", err)
	}

	if coverOutput != "" {
		err = set.WriteFile(coverOutput)
	} else {
		_, err = set.WriteTo(cmd.OutOrStdout())
	}
	if err != nil {
		exitWithError("failed to write tiles", err)
	}
}

func coverTiles(lc *lwgeom.Context, input string, minZoom, maxZoom int) (*tile.Set, error) {
	if minZoom < 0 || maxZoom > tile.MaxZoom || minZoom > maxZoom {
		return nil, errors.Newf("invalid zoom range %d..%d", minZoom, maxZoom)
	}

	conv := &converter{ctx: lc, from: "auto"}
	g, err := conv.parse(input)
	if err != nil {
		return nil, err
	}
	defer g.Close()

	box, err := g.BBox()
	if err != nil {
		return nil, err
	}
	b := tile.Box{MinLon: box.XMin(), MinLat: box.YMin(), MaxLon: box.XMax(), MaxLat: box.YMax()}
	if !b.IsValid() {
		return nil, errors.Newf("bounding box %s is not in lon/lat degrees", box)
	}

	set := tile.NewSet()
	set.AddBox(b, minZoom, maxZoom)
	return set, nil
}
