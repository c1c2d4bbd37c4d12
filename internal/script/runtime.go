// Package script runs Lua scripts against the geometry library.
//
// Scripts see a global "lwgeom" table. Geometries created by a script are
// owned by the Runtime and released when the script calls g:close() or when
// the Runtime is closed, whichever comes first.
package script

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/wegman-software/lwgeom-go/internal/logger"
	"github.com/wegman-software/lwgeom-go/lwgeom"
)

const geomTypeName = "lwgeom.geom"

// Version is exposed to scripts as lwgeom.version.
const Version = "1.0.0"

// Runtime manages the Lua interpreter and the geometries it created.
type Runtime struct {
	L       *lua.LState
	ctx     *lwgeom.Context
	out     io.Writer
	log     *zap.Logger
	handles map[*lwgeom.Geom]struct{}
}

// Option configures NewRuntime.
type Option func(*Runtime)

// WithOutput redirects the script's print function. The default is stdout.
func WithOutput(w io.Writer) Option {
	return func(r *Runtime) { r.out = w }
}

// WithContext sets the geometry context scripts allocate from.
func WithContext(c *lwgeom.Context) Option {
	return func(r *Runtime) { r.ctx = c }
}

// NewRuntime creates a Lua state with the lwgeom API registered.
func NewRuntime(opts ...Option) *Runtime {
	r := &Runtime{
		L:       lua.NewState(),
		out:     os.Stdout,
		log:     logger.Get().Named("script"),
		handles: make(map[*lwgeom.Geom]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.ctx == nil {
		r.ctx = lwgeom.Default()
	}

	r.registerAPI()
	return r
}

// Close releases every geometry still held by the script, then the Lua state.
func (r *Runtime) Close() {
	if n := len(r.handles); n > 0 {
		r.log.Debug("releasing script geometries", zap.Int("count", n))
	}
	for g := range r.handles {
		g.Close()
	}
	clear(r.handles)
	r.L.Close()
}

// Live returns the number of geometries the script has not closed yet.
func (r *Runtime) Live() int {
	return len(r.handles)
}

func (r *Runtime) registerAPI() {
	L := r.L

	mt := L.NewTypeMetatable(geomTypeName)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), r.geomMethods()))
	L.SetField(mt, "__tostring", L.NewFunction(r.geomToString))

	mod := L.NewTable()
	mod.RawSetString("version", lua.LString(Version))
	mod.RawSetString("web_mercator_srid", lua.LNumber(lwgeom.WebMercatorSRID))
	L.SetFuncs(mod, map[string]lua.LGFunction{
		"from_text":     r.fromText,
		"from_ewkt":     r.fromEWKT,
		"from_hex":      r.fromHex,
		"tile_envelope": r.tileEnvelope,
		"stats":         r.stats,
	})
	L.SetGlobal("lwgeom", mod)

	L.SetGlobal("print", L.NewFunction(r.luaPrint))
}

// LoadFile loads and executes a Lua script
func (r *Runtime) LoadFile(path string) error {
	if err := r.L.DoFile(path); err != nil {
		return errors.Wrap(err, "failed to run Lua file")
	}
	return nil
}

// LoadString loads and executes Lua code from a string
func (r *Runtime) LoadString(code string) error {
	if err := r.L.DoString(code); err != nil {
		return errors.Wrap(err, "failed to run Lua code")
	}
	return nil
}

func (r *Runtime) luaPrint(L *lua.LState) int {
	n := L.GetTop()
	parts := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	fmt.Fprintln(r.out, strings.Join(parts, "\t"))
	return 0
}

// pushResult pushes g as userdata, or nil and the error message.
func (r *Runtime) pushResult(L *lua.LState, g *lwgeom.Geom, err error) int {
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	r.handles[g] = struct{}{}
	ud := L.NewUserData()
	ud.Value = g
	L.SetMetatable(ud, L.GetTypeMetatable(geomTypeName))
	L.Push(ud)
	return 1
}

func (r *Runtime) fromText(L *lua.LState) int {
	text := L.CheckString(1)
	srid := L.OptInt(2, 0)
	g, err := r.ctx.FromText(text, int32(srid))
	return r.pushResult(L, g, err)
}

func (r *Runtime) fromEWKT(L *lua.LState) int {
	g, err := r.ctx.FromEWKT(L.CheckString(1))
	return r.pushResult(L, g, err)
}

func (r *Runtime) fromHex(L *lua.LState) int {
	g, err := r.ctx.FromHexEWKB(L.CheckString(1))
	return r.pushResult(L, g, err)
}

// tileEnvelope implements lwgeom.tile_envelope(z, x, y [, margin [, bounds]])
func (r *Runtime) tileEnvelope(L *lua.LState) int {
	z, x, y := L.CheckInt(1), L.CheckInt(2), L.CheckInt(3)
	opts := []lwgeom.TileOption{lwgeom.WithMargin(float64(L.OptNumber(4, 0)))}
	if L.GetTop() >= 5 {
		opts = append(opts, lwgeom.WithBounds(r.checkGeom(L, 5)))
	}
	g, err := r.ctx.TileEnvelope(z, x, y, opts...)
	return r.pushResult(L, g, err)
}

func (r *Runtime) stats(L *lua.LState) int {
	s := r.ctx.Stats()
	tbl := L.NewTable()
	tbl.RawSetString("live_geoms", lua.LNumber(s.LiveGeoms))
	tbl.RawSetString("live_buffers", lua.LNumber(s.LiveBuffers))
	tbl.RawSetString("script_geoms", lua.LNumber(len(r.handles)))
	L.Push(tbl)
	return 1
}
