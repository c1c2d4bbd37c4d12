package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wegman-software/lwgeom-go/internal/logger"
	"github.com/wegman-software/lwgeom-go/lwgeom"
)

var (
	convertFrom string
	convertTo   string
	convertSRID int32
)

var convertCmd = &cobra.Command{
	Use:   "convert [geometry...]",
	Short: "Convert geometries between text and binary formats",
	Long: `Convert geometries between formats. Each argument is one geometry; with no
arguments geometries are read from stdin, one per line.

Input formats:  auto, wkt, ewkt, hex (hex-encoded EWKB)
Output formats: wkt, ewkt, hex, geojson`,
	Run: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringVar(&convertFrom, "from", "auto", "Input format")
	convertCmd.Flags().StringVar(&convertTo, "to", "ewkt", "Output format")
	convertCmd.Flags().Int32Var(&convertSRID, "srid", 0, "SRID to assign (wkt input) or override (other inputs)")
}

type converter struct {
	ctx       *lwgeom.Context
	from, to  string
	srid      int32
	precision int
}

func runConvert(cmd *cobra.Command, args []string) {
	conv := &converter{
		ctx:       newContext(),
		from:      convertFrom,
		to:        convertTo,
		srid:      convertSRID,
		precision: cfg.Precision,
	}
	if convertSRID == 0 {
		conv.srid = cfg.DefaultSRID
	}

	var in io.Reader = os.Stdin
	if len(args) > 0 {
		in = strings.NewReader(strings.Join(args, "\n"))
	}
	n, err := conv.run(in, cmd.OutOrStdout())
	if err != nil {
		exitWithError("conversion failed", err)
	}
	logger.Get().Debug("Converted geometries", zap.Int("count", n))
}

// run converts every non-blank line of in and stops at the first failure.
func (c *converter) run(in io.Reader, out io.Writer) (int, error) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)

	n := 0
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		s, err := c.convert(text)
		if err != nil {
			return n, errors.Wrapf(err, "line %d", line)
		}
		if _, err := fmt.Fprintln(out, s); err != nil {
			return n, err
		}
		n++
	}
	return n, scanner.Err()
}

func (c *converter) convert(text string) (string, error) {
	g, err := c.parse(text)
	if err != nil {
		return "", err
	}
	defer g.Close()

	opts := []lwgeom.EncodeOption{lwgeom.WithPrecision(c.precision)}
	switch c.to {
	case "wkt":
		return g.AsText(opts...)
	case "ewkt":
		return g.AsEWKT(opts...)
	case "hex":
		return g.AsHexEWKB()
	case "geojson":
		if c.precision == lwgeom.DefaultPrecision {
			return g.AsGeoJSON()
		}
		return g.AsGeoJSON(opts...)
	}
	return "", errors.Newf("unknown output format %q", c.to)
}

func (c *converter) parse(text string) (*lwgeom.Geom, error) {
	from := c.from
	if from == "auto" {
		from = "ewkt"
		if isHexString(text) {
			from = "hex"
		}
	}

	var (
		g   *lwgeom.Geom
		err error
	)
	switch from {
	case "wkt":
		return c.ctx.FromText(text, c.srid)
	case "ewkt":
		g, err = c.ctx.FromEWKT(text)
	case "hex":
		g, err = c.ctx.FromHexEWKB(text)
	default:
		return nil, errors.Newf("unknown input format %q", c.from)
	}
	if err != nil {
		return nil, err
	}
	if c.srid != 0 {
		g.SetSRID(c.srid)
	}
	return g, nil
}

func isHexString(s string) bool {
	if len(s)%2 != 0 {
		return false
	}
	for _, r := range s {
		if !('0' <= r && r <= '9' || 'a' <= r && r <= 'f' || 'A' <= r && r <= 'F') {
			return false
		}
	}
	return true
}
