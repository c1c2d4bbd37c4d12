package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wegman-software/lwgeom-go/internal/logger"
	"github.com/wegman-software/lwgeom-go/internal/script"
)

var scriptCmd = &cobra.Command{
	Use:   "script <file.lua>",
	Short: "Run a Lua script with the lwgeom API",
	Long: `Run a Lua script. The global table "lwgeom" provides from_text, from_ewkt,
from_hex, tile_envelope and stats; geometries have methods such as as_text,
as_ewkt, as_hex, as_geojson, bbox, srid, set_srid, split, geohash and close.
Geometries the script does not close are released when it ends.`,
	Args: cobra.ExactArgs(1),
	Run:  runScript,
}

func init() {
	rootCmd.AddCommand(scriptCmd)
}

func runScript(cmd *cobra.Command, args []string) {
	lc := newContext()
	rt := script.NewRuntime(script.WithContext(lc), script.WithOutput(cmd.OutOrStdout()))

	err := rt.LoadFile(args[0])
	left := rt.Live()
	rt.Close()
	if err != nil {
		exitWithError("script failed", err)
	}
	logger.Get().Debug("Script finished",
		zap.String("file", args[0]),
		zap.Int("unclosed_geoms", left))
}
