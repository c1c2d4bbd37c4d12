// Package engine is the geometry engine behind the lwgeom package.
//
// It deliberately keeps the contract of a C geometry library: geometries live
// in an arena owned by the Engine and are addressed through opaque Ptr values,
// output buffers come from an explicit allocator, every allocation must be
// released exactly once, and failures are reported as Null results or through
// parser result structures. Nothing in this package is reclaimed by the
// garbage collector on the caller's behalf.
package engine

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/cockroachdb/errors"
	"github.com/twpayne/go-geom"
)

// SRIDUnknown is the SRID of a geometry with no spatial reference.
const SRIDUnknown = 0

// Ptr is an opaque reference to a geometry node. The low 32 bits hold the
// arena slot (plus one, so that the zero value is Null) and the high 32 bits
// hold the slot generation at allocation time.
type Ptr uint64

// Null is the null geometry reference.
const Null Ptr = 0

func makePtr(idx, gen uint32) Ptr {
	return Ptr(uint64(gen)<<32 | uint64(idx+1))
}

func (p Ptr) slot() (idx, gen uint32) {
	return uint32(p) - 1, uint32(p >> 32)
}

func (p Ptr) String() string {
	if p == Null {
		return "0x0"
	}
	idx, gen := p.slot()
	return fmt.Sprintf("geom#%d.%d", idx, gen)
}

// node is one geometry in the arena. Everything except srid is fixed at
// creation, so concurrent readers need no locking.
type node struct {
	g      geom.T
	srid   atomic.Int32
	bbox   *GBox
	parent Ptr

	// children holds sub-geometries handed out by SubGeom. It is only touched
	// with Engine.mu held for writing.
	children []Ptr
}

type slot struct {
	gen  uint32
	node *node
}

// Engine owns all geometry nodes and output buffers it hands out.
type Engine struct {
	mu    sync.RWMutex
	slots []slot
	free  []uint32

	alloc  memory.Allocator
	notice atomic.Value // func(string)

	liveGeoms    atomic.Int64
	geomAllocs   atomic.Int64
	geomFrees    atomic.Int64
	liveBuffers  atomic.Int64
	bufferBytes  atomic.Int64
	bufferAllocs atomic.Int64
	bufferFrees  atomic.Int64
}

// New creates an engine that takes its output buffers from alloc. A nil
// allocator selects memory.NewGoAllocator().
func New(alloc memory.Allocator) *Engine {
	if alloc == nil {
		alloc = memory.NewGoAllocator()
	}
	e := &Engine{alloc: alloc}
	e.notice.Store(func(string) {})
	return e
}

// SetNoticeHandler installs the function receiving engine notices (the
// reasons behind Null results). A nil handler discards notices.
func (e *Engine) SetNoticeHandler(fn func(msg string)) {
	if fn == nil {
		fn = func(string) {}
	}
	e.notice.Store(fn)
}

func (e *Engine) noticef(format string, args ...interface{}) {
	e.notice.Load().(func(string))(fmt.Sprintf(format, args...))
}

// Stats is a snapshot of the engine's allocation counters.
type Stats struct {
	LiveGeoms    int64
	GeomAllocs   int64
	GeomFrees    int64
	LiveBuffers  int64
	BufferBytes  int64
	BufferAllocs int64
	BufferFrees  int64
}

// Stats returns the current allocation counters.
func (e *Engine) Stats() Stats {
	return Stats{
		LiveGeoms:    e.liveGeoms.Load(),
		GeomAllocs:   e.geomAllocs.Load(),
		GeomFrees:    e.geomFrees.Load(),
		LiveBuffers:  e.liveBuffers.Load(),
		BufferBytes:  e.bufferBytes.Load(),
		BufferAllocs: e.bufferAllocs.Load(),
		BufferFrees:  e.bufferFrees.Load(),
	}
}

// newNode allocates a top-level node for g.
func (e *Engine) newNode(g geom.T, srid int32) Ptr {
	return e.insert(&node{g: g, bbox: computeBBox(g)}, srid)
}

func (e *Engine) insert(n *node, srid int32) Ptr {
	n.srid.Store(srid)

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.insertLocked(n)
}

func (e *Engine) insertLocked(n *node) Ptr {
	var idx uint32
	if k := len(e.free); k > 0 {
		idx = e.free[k-1]
		e.free = e.free[:k-1]
	} else {
		e.slots = append(e.slots, slot{})
		idx = uint32(len(e.slots) - 1)
	}
	s := &e.slots[idx]
	s.gen++
	s.node = n

	e.liveGeoms.Add(1)
	e.geomAllocs.Add(1)
	return makePtr(idx, s.gen)
}

// resolveLocked returns the node behind p. Stale and null references are
// programming errors and panic.
func (e *Engine) resolveLocked(p Ptr) *node {
	if p == Null {
		panic(errors.AssertionFailedf("engine: null geometry dereference"))
	}
	idx, gen := p.slot()
	if int(idx) >= len(e.slots) || e.slots[idx].gen != gen || e.slots[idx].node == nil {
		panic(errors.AssertionFailedf("engine: use of released geometry %s", p))
	}
	return e.slots[idx].node
}

func (e *Engine) resolve(p Ptr) *node {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.resolveLocked(p)
}

// Valid reports whether p currently refers to a live node.
func (e *Engine) Valid(p Ptr) bool {
	if p == Null {
		return false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	idx, gen := p.slot()
	return int(idx) < len(e.slots) && e.slots[idx].gen == gen && e.slots[idx].node != nil
}

// FreeGeom releases p together with every sub-geometry handed out from it.
// Releasing Null is a no-op; releasing twice or releasing a sub-geometry
// panics.
func (e *Engine) FreeGeom(p Ptr) {
	if p == Null {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	n := e.resolveLocked(p)
	if n.parent != Null {
		panic(errors.AssertionFailedf("engine: %s is owned by %s and cannot be freed directly", p, n.parent))
	}
	e.releaseLocked(p, n)
}

func (e *Engine) releaseLocked(p Ptr, n *node) {
	for _, c := range n.children {
		if c != Null {
			e.releaseLocked(c, e.resolveLocked(c))
		}
	}
	n.children = nil

	idx, _ := p.slot()
	e.slots[idx].node = nil
	e.free = append(e.free, idx)

	e.liveGeoms.Add(-1)
	e.geomFrees.Add(1)
}

// HasSRID reports whether p carries a known SRID.
func (e *Engine) HasSRID(p Ptr) bool {
	return e.resolve(p).srid.Load() != SRIDUnknown
}

// GetSRID returns the SRID of p, SRIDUnknown when unset.
func (e *Engine) GetSRID(p Ptr) int32 {
	return e.resolve(p).srid.Load()
}

// SetSRID assigns srid to p and to every sub-geometry already handed out
// for it. No validation is performed.
func (e *Engine) SetSRID(p Ptr, srid int32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.setSRIDLocked(e.resolveLocked(p), srid)
}

func (e *Engine) setSRIDLocked(n *node, srid int32) {
	n.srid.Store(srid)
	for _, c := range n.children {
		if c != Null {
			e.setSRIDLocked(e.resolveLocked(c), srid)
		}
	}
}

// GetBBox returns the cached bounding box of p, nil for empty geometries.
func (e *Engine) GetBBox(p Ptr) *GBox {
	return e.resolve(p).bbox
}

// Geometry exposes the immutable geometry stored behind p. Callers must not
// modify the returned value.
func (e *Engine) Geometry(p Ptr) geom.T {
	return e.resolve(p).g
}

// NumParts returns how many sub-geometries SubGeom can hand out for p: rings
// for polygons, members for collections, zero otherwise.
func (e *Engine) NumParts(p Ptr) int {
	return numParts(e.resolve(p).g)
}

// SubGeom returns the i-th part of p as a node owned by p. The same Ptr is
// returned on every call; it becomes invalid when p is freed. Null is
// returned when i is out of range.
func (e *Engine) SubGeom(p Ptr, i int) Ptr {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := e.resolveLocked(p)
	count := numParts(n.g)
	if i < 0 || i >= count {
		e.noticef("sub-geometry index %d out of range [0, %d)", i, count)
		return Null
	}
	if n.children == nil {
		n.children = make([]Ptr, count)
	}
	if c := n.children[i]; c != Null {
		return c
	}

	part := partAt(n.g, i)
	child := &node{g: part, bbox: computeBBox(part), parent: p}
	child.srid.Store(n.srid.Load())
	c := e.insertLocked(child)
	n.children[i] = c
	return c
}

func numParts(g geom.T) int {
	switch g := g.(type) {
	case *geom.Polygon:
		return g.NumLinearRings()
	case *geom.MultiPoint:
		return g.NumPoints()
	case *geom.MultiLineString:
		return g.NumLineStrings()
	case *geom.MultiPolygon:
		return g.NumPolygons()
	case *geom.GeometryCollection:
		return g.NumGeoms()
	default:
		return 0
	}
}

func partAt(g geom.T, i int) geom.T {
	switch g := g.(type) {
	case *geom.Polygon:
		ring := g.LinearRing(i)
		return geom.NewLineStringFlat(ring.Layout(), ring.FlatCoords())
	case *geom.MultiPoint:
		return g.Point(i)
	case *geom.MultiLineString:
		return g.LineString(i)
	case *geom.MultiPolygon:
		return g.Polygon(i)
	case *geom.GeometryCollection:
		return g.Geom(i)
	default:
		panic(errors.AssertionFailedf("engine: %T has no parts", g))
	}
}

// TypeName returns the upper-case WKT type name of p.
func (e *Engine) TypeName(p Ptr) string {
	return typeName(e.resolve(p).g)
}

func typeName(g geom.T) string {
	switch g.(type) {
	case *geom.Point:
		return "POINT"
	case *geom.LineString:
		return "LINESTRING"
	case *geom.Polygon:
		return "POLYGON"
	case *geom.MultiPoint:
		return "MULTIPOINT"
	case *geom.MultiLineString:
		return "MULTILINESTRING"
	case *geom.MultiPolygon:
		return "MULTIPOLYGON"
	case *geom.GeometryCollection:
		return "GEOMETRYCOLLECTION"
	default:
		return "GEOMETRY"
	}
}
