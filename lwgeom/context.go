// Package lwgeom is a memory-safe geometry API on top of a manually managed
// geometry engine.
//
// A *Geom owns exactly one engine geometry and releases it when Close is
// called. Serializations copy engine output into Go memory and release the
// engine buffer before returning. A *Ref is a borrowed view that never
// releases anything and becomes unusable when its owner is closed.
//
//	g, err := lwgeom.FromEWKT("SRID=4326;POINT(1 2)")
//	if err != nil {
//		return err
//	}
//	defer g.Close()
package lwgeom

import (
	"sync"

	"github.com/apache/arrow/go/v14/arrow/memory"
	"go.uber.org/zap"

	"github.com/wegman-software/lwgeom-go/internal/engine"
	"github.com/wegman-software/lwgeom-go/internal/logger"
)

// Context binds geometries to one engine instance. Geometries from different
// contexts cannot be combined.
type Context struct {
	eng *engine.Engine
	log *zap.Logger
}

type contextOptions struct {
	alloc memory.Allocator
	log   *zap.Logger
}

// ContextOption configures NewContext.
type ContextOption func(*contextOptions)

// WithAllocator sets the allocator engine output buffers are taken from.
func WithAllocator(alloc memory.Allocator) ContextOption {
	return func(o *contextOptions) { o.alloc = alloc }
}

// WithLogger sets the logger receiving engine notices at debug level.
func WithLogger(log *zap.Logger) ContextOption {
	return func(o *contextOptions) { o.log = log }
}

// NewContext creates a context with its own engine.
func NewContext(opts ...ContextOption) *Context {
	var o contextOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}

	c := &Context{
		eng: engine.New(o.alloc),
		log: o.log.Named("lwgeom"),
	}
	c.eng.SetNoticeHandler(func(msg string) {
		c.log.Debug("engine notice", zap.String("msg", msg))
	})
	return c
}

var (
	defaultCtx     *Context
	defaultCtxOnce sync.Once
)

// Default returns the context used by the package-level functions. It logs
// through the global logger.
func Default() *Context {
	defaultCtxOnce.Do(func() {
		defaultCtx = NewContext(WithLogger(logger.Get()))
	})
	return defaultCtx
}

// Stats is a snapshot of a context's engine allocations.
type Stats struct {
	LiveGeoms    int64
	GeomAllocs   int64
	GeomFrees    int64
	LiveBuffers  int64
	BufferBytes  int64
	BufferAllocs int64
	BufferFrees  int64
}

// Stats returns the engine allocation counters.
func (c *Context) Stats() Stats {
	s := c.eng.Stats()
	return Stats{
		LiveGeoms:    s.LiveGeoms,
		GeomAllocs:   s.GeomAllocs,
		GeomFrees:    s.GeomFrees,
		LiveBuffers:  s.LiveBuffers,
		BufferBytes:  s.BufferBytes,
		BufferAllocs: s.BufferAllocs,
		BufferFrees:  s.BufferFrees,
	}
}

// Leaked reports whether any geometry or buffer is still allocated.
func (s Stats) Leaked() bool {
	return s.LiveGeoms != 0 || s.LiveBuffers != 0
}
