package engine

import (
	"encoding/binary"
	"sync/atomic"

	"github.com/cockroachdb/errors"
)

// varlenaHeaderSize is the size of the length word in front of a varlena
// payload.
const varlenaHeaderSize = 4

// Buffer is output memory handed out by the engine. It must be returned with
// FreeBuffer exactly once.
type Buffer struct {
	data     []byte
	released atomic.Bool
}

// Bytes returns the buffer contents. The slice is only valid until the
// buffer is freed.
func (b *Buffer) Bytes() []byte {
	if b.released.Load() {
		panic(errors.AssertionFailedf("engine: read of released buffer"))
	}
	return b.data
}

// Varlena is a length-prefixed buffer: a little-endian uint32 holding the
// total size (header included) followed by the payload.
type Varlena struct {
	buf *Buffer
}

// Size returns the declared payload length.
func (v *Varlena) Size() int {
	return int(binary.LittleEndian.Uint32(v.buf.Bytes())) - varlenaHeaderSize
}

// Data returns the payload. It may contain zero bytes; use Size, not a
// terminator, to find its end.
func (v *Varlena) Data() []byte {
	return v.buf.Bytes()[varlenaHeaderSize:]
}

func (e *Engine) allocBuffer(n int) *Buffer {
	b := &Buffer{data: e.alloc.Allocate(n)[:n]}
	e.liveBuffers.Add(1)
	e.bufferAllocs.Add(1)
	e.bufferBytes.Add(int64(n))
	return b
}

// newTextBuffer copies s into a NUL-terminated buffer and returns it with
// its size, terminator included.
func (e *Engine) newTextBuffer(s string) (*Buffer, int) {
	size := len(s) + 1
	b := e.allocBuffer(size)
	copy(b.data, s)
	b.data[len(s)] = 0
	return b, size
}

func (e *Engine) newVarlena(payload []byte) *Varlena {
	b := e.allocBuffer(varlenaHeaderSize + len(payload))
	binary.LittleEndian.PutUint32(b.data, uint32(varlenaHeaderSize+len(payload)))
	copy(b.data[varlenaHeaderSize:], payload)
	return &Varlena{buf: b}
}

// FreeBuffer returns b to the allocator. Freeing nil is a no-op; freeing
// twice panics.
func (e *Engine) FreeBuffer(b *Buffer) {
	if b == nil {
		return
	}
	if !b.released.CompareAndSwap(false, true) {
		panic(errors.AssertionFailedf("engine: double free of output buffer"))
	}
	n := len(b.data)
	e.alloc.Free(b.data)
	b.data = nil

	e.liveBuffers.Add(-1)
	e.bufferFrees.Add(1)
	e.bufferBytes.Add(-int64(n))
}

// FreeVarlena releases v.
func (e *Engine) FreeVarlena(v *Varlena) {
	if v == nil {
		return
	}
	e.FreeBuffer(v.buf)
}
