package lwgeom

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrNullPtr is returned when the engine produces no geometry or buffer
	// where one was expected.
	ErrNullPtr = errors.New("geometry engine returned a null pointer")

	// ErrNoBBox is returned for geometries without a bounding box (empty ones).
	ErrNoBBox = errors.New("geometry has no bounding box")

	// ErrClosed marks the panic raised when a closed Geom is used.
	ErrClosed = errors.New("use of closed geometry")
)

// WKTParseError is a parse failure reported by the engine with a message.
type WKTParseError struct {
	Message  string
	Location int
}

func (e *WKTParseError) Error() string {
	return fmt.Sprintf("WKT parse error: %s (at offset %d)", e.Message, e.Location)
}

// FailedWithoutMessageError is a parse failure the engine did not explain.
type FailedWithoutMessageError struct {
	Op string
}

func (e *FailedWithoutMessageError) Error() string {
	return fmt.Sprintf("%s failed without a message", e.Op)
}

// InvalidParameterError reports an argument that violates a documented
// precondition.
type InvalidParameterError struct {
	Op    string
	Param string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("%s: invalid parameter %q", e.Op, e.Param)
}

// MixedFormatError is returned by FromText when the text carried its own
// SRID, i.e. it was EWKT rather than WKT.
type MixedFormatError struct {
	SRID int32
}

func (e *MixedFormatError) Error() string {
	return fmt.Sprintf("extended WKT with SRID=%d passed where plain WKT was expected; use FromEWKT", e.SRID)
}

// EncodingError reports text that cannot be handed to the engine, such as a
// string with an embedded NUL byte.
type EncodingError struct {
	Op     string
	Offset int
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("%s: input contains a NUL byte at offset %d", e.Op, e.Offset)
}

func closedPanic(what string) {
	panic(errors.Mark(errors.AssertionFailedf("lwgeom: %s used after Close", what), ErrClosed))
}
