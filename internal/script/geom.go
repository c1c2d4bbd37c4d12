package script

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/wegman-software/lwgeom-go/lwgeom"
)

func (r *Runtime) geomMethods() map[string]lua.LGFunction {
	return map[string]lua.LGFunction{
		"srid":       r.geomSRID,
		"set_srid":   r.geomSetSRID,
		"type":       r.geomType,
		"as_text":    r.geomAsText,
		"as_ewkt":    r.geomAsEWKT,
		"as_hex":     r.geomAsHex,
		"as_geojson": r.geomAsGeoJSON,
		"bbox":       r.geomBBox,
		"num_geoms":  r.geomNumGeoms,
		"geohash":    r.geomGeoHash,
		"split":      r.geomSplit,
		"clone":      r.geomClone,
		"close":      r.geomClose,
	}
}

// checkGeom returns the open geometry at stack index n or raises a Lua error.
func (r *Runtime) checkGeom(L *lua.LState, n int) *lwgeom.Geom {
	ud := L.CheckUserData(n)
	g, ok := ud.Value.(*lwgeom.Geom)
	if !ok {
		L.ArgError(n, "geometry expected")
		return nil
	}
	if g.Closed() {
		L.ArgError(n, "geometry is closed")
		return nil
	}
	return g
}

func pushString(L *lua.LState, s string, err error) int {
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LString(s))
	return 1
}

func (r *Runtime) geomSRID(L *lua.LState) int {
	srid, ok := r.checkGeom(L, 1).SRID()
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LNumber(srid))
	return 1
}

func (r *Runtime) geomSetSRID(L *lua.LState) int {
	r.checkGeom(L, 1).SetSRID(int32(L.CheckInt(2)))
	return 0
}

func (r *Runtime) geomType(L *lua.LState) int {
	L.Push(lua.LString(r.checkGeom(L, 1).GeometryType()))
	return 1
}

func precisionOpts(L *lua.LState, n int) []lwgeom.EncodeOption {
	if L.GetTop() < n {
		return nil
	}
	return []lwgeom.EncodeOption{lwgeom.WithPrecision(L.CheckInt(n))}
}

func (r *Runtime) geomAsText(L *lua.LState) int {
	s, err := r.checkGeom(L, 1).AsText(precisionOpts(L, 2)...)
	return pushString(L, s, err)
}

func (r *Runtime) geomAsEWKT(L *lua.LState) int {
	s, err := r.checkGeom(L, 1).AsEWKT(precisionOpts(L, 2)...)
	return pushString(L, s, err)
}

func (r *Runtime) geomAsHex(L *lua.LState) int {
	s, err := r.checkGeom(L, 1).AsHexEWKB()
	return pushString(L, s, err)
}

func (r *Runtime) geomAsGeoJSON(L *lua.LState) int {
	s, err := r.checkGeom(L, 1).AsGeoJSON(precisionOpts(L, 2)...)
	return pushString(L, s, err)
}

// geomBBox returns {xmin=, ymin=, xmax=, ymax=} or nil for an empty geometry.
func (r *Runtime) geomBBox(L *lua.LState) int {
	box, err := r.checkGeom(L, 1).BBox()
	if err != nil {
		L.Push(lua.LNil)
		return 1
	}
	tbl := L.NewTable()
	tbl.RawSetString("xmin", lua.LNumber(box.XMin()))
	tbl.RawSetString("ymin", lua.LNumber(box.YMin()))
	tbl.RawSetString("xmax", lua.LNumber(box.XMax()))
	tbl.RawSetString("ymax", lua.LNumber(box.YMax()))
	L.Push(tbl)
	return 1
}

func (r *Runtime) geomNumGeoms(L *lua.LState) int {
	L.Push(lua.LNumber(r.checkGeom(L, 1).NumGeoms()))
	return 1
}

func (r *Runtime) geomGeoHash(L *lua.LState) int {
	s, err := r.checkGeom(L, 1).GeoHash(L.OptInt(2, lwgeom.GeoHashAutoPrecision))
	return pushString(L, s, err)
}

func (r *Runtime) geomSplit(L *lua.LState) int {
	g, blade := r.checkGeom(L, 1), r.checkGeom(L, 2)
	out, err := g.Split(blade)
	return r.pushResult(L, out, err)
}

func (r *Runtime) geomClone(L *lua.LState) int {
	out, err := r.checkGeom(L, 1).Clone()
	return r.pushResult(L, out, err)
}

// geomClose releases the geometry early. Closing twice is a no-op.
func (r *Runtime) geomClose(L *lua.LState) int {
	ud := L.CheckUserData(1)
	g, ok := ud.Value.(*lwgeom.Geom)
	if !ok {
		L.ArgError(1, "geometry expected")
		return 0
	}
	g.Close()
	delete(r.handles, g)
	return 0
}

func (r *Runtime) geomToString(L *lua.LState) int {
	ud := L.CheckUserData(1)
	g, ok := ud.Value.(*lwgeom.Geom)
	if !ok || g.Closed() {
		L.Push(lua.LString("<closed geometry>"))
		return 1
	}
	s, err := g.AsEWKT()
	if err != nil {
		s = "<invalid geometry>"
	}
	L.Push(lua.LString(s))
	return 1
}
