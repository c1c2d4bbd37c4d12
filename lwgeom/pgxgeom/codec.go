// Package pgxgeom registers a pgx codec that maps the PostGIS geometry type
// to *lwgeom.Geom values.
//
// Binary values are EWKB, text values are hex EWKB (both as sent by
// PostGIS). Scanned geometries are owned by the caller and must be closed.
// Scanning into a target that already holds a geometry closes it first, so
// a single variable can be reused across rows.
package pgxgeom

import (
	"context"
	"database/sql/driver"
	"encoding/hex"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wegman-software/lwgeom-go/lwgeom"
)

// Codec is a pgtype.Codec for geometry columns.
type Codec struct {
	// Ctx receives decoded geometries. Nil means lwgeom.Default().
	Ctx *lwgeom.Context
}

func (c *Codec) context() *lwgeom.Context {
	if c.Ctx == nil {
		return lwgeom.Default()
	}
	return c.Ctx
}

func (*Codec) FormatSupported(format int16) bool {
	return format == pgtype.BinaryFormatCode || format == pgtype.TextFormatCode
}

func (*Codec) PreferredFormat() int16 {
	return pgtype.BinaryFormatCode
}

func (c *Codec) PlanEncode(m *pgtype.Map, oid uint32, format int16, value any) pgtype.EncodePlan {
	if _, ok := value.(*lwgeom.Geom); !ok {
		return nil
	}
	switch format {
	case pgtype.BinaryFormatCode:
		return encodePlanBinary{}
	case pgtype.TextFormatCode:
		return encodePlanText{}
	}
	return nil
}

type encodePlanBinary struct{}

func (encodePlanBinary) Encode(value any, buf []byte) ([]byte, error) {
	g := value.(*lwgeom.Geom)
	if g == nil {
		return nil, nil
	}
	data, err := g.AsEWKB()
	if err != nil {
		return nil, err
	}
	return append(buf, data...), nil
}

type encodePlanText struct{}

func (encodePlanText) Encode(value any, buf []byte) ([]byte, error) {
	g := value.(*lwgeom.Geom)
	if g == nil {
		return nil, nil
	}
	s, err := g.AsHexEWKB()
	if err != nil {
		return nil, err
	}
	return append(buf, s...), nil
}

func (c *Codec) PlanScan(m *pgtype.Map, oid uint32, format int16, target any) pgtype.ScanPlan {
	if _, ok := target.(**lwgeom.Geom); !ok {
		return nil
	}
	switch format {
	case pgtype.BinaryFormatCode:
		return scanPlanBinary{ctx: c.context()}
	case pgtype.TextFormatCode:
		return scanPlanText{ctx: c.context()}
	}
	return nil
}

type scanPlanBinary struct {
	ctx *lwgeom.Context
}

func (p scanPlanBinary) Scan(src []byte, target any) error {
	dst := release(target)
	if src == nil {
		return nil
	}
	g, err := p.ctx.FromEWKB(src)
	if err != nil {
		return errors.Wrap(err, "scan geometry")
	}
	*dst = g
	return nil
}

type scanPlanText struct {
	ctx *lwgeom.Context
}

func (p scanPlanText) Scan(src []byte, target any) error {
	dst := release(target)
	if src == nil {
		return nil
	}
	g, err := decodeText(p.ctx, string(src))
	if err != nil {
		return errors.Wrap(err, "scan geometry")
	}
	*dst = g
	return nil
}

// release closes the geometry held by target and clears it.
func release(target any) **lwgeom.Geom {
	dst := target.(**lwgeom.Geom)
	if *dst != nil {
		_ = (*dst).Close()
		*dst = nil
	}
	return dst
}

// decodeText accepts hex EWKB as well as EWKT, the two forms the geometry
// input function understands.
func decodeText(ctx *lwgeom.Context, s string) (*lwgeom.Geom, error) {
	if isHex(s) {
		return ctx.FromHexEWKB(s)
	}
	return ctx.FromEWKT(s)
}

func isHex(s string) bool {
	if len(s) == 0 || len(s)%2 != 0 {
		return false
	}
	return strings.IndexFunc(s, func(r rune) bool {
		return !('0' <= r && r <= '9' || 'a' <= r && r <= 'f' || 'A' <= r && r <= 'F')
	}) < 0
}

func (c *Codec) DecodeDatabaseSQLValue(m *pgtype.Map, oid uint32, format int16, src []byte) (driver.Value, error) {
	if src == nil {
		return nil, nil
	}
	if format == pgtype.BinaryFormatCode {
		return strings.ToUpper(hex.EncodeToString(src)), nil
	}
	return string(src), nil
}

// DecodeValue returns a *lwgeom.Geom the caller must close.
func (c *Codec) DecodeValue(m *pgtype.Map, oid uint32, format int16, src []byte) (any, error) {
	if src == nil {
		return nil, nil
	}
	var g *lwgeom.Geom
	if err := c.PlanScan(m, oid, format, &g).Scan(src, &g); err != nil {
		return nil, err
	}
	return g, nil
}

// Register looks up the geometry type OID on conn and registers the codec in
// its type map. PostGIS must be installed in the connected database.
func Register(ctx context.Context, conn *pgx.Conn, lc *lwgeom.Context) error {
	var oid uint32
	if err := conn.QueryRow(ctx, "select 'geometry'::text::regtype::oid").Scan(&oid); err != nil {
		return errors.Wrap(err, "lookup geometry type oid")
	}
	conn.TypeMap().RegisterType(&pgtype.Type{
		Name:  "geometry",
		OID:   oid,
		Codec: &Codec{Ctx: lc},
	})
	return nil
}

// NewPool creates a pgx pool whose connections have the codec registered.
func NewPool(ctx context.Context, connString string, lc *lwgeom.Context) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, errors.Wrap(err, "parse connection string")
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return Register(ctx, conn, lc)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "create pool")
	}
	return pool, nil
}
