package lwgeom

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/wegman-software/lwgeom-go/internal/engine"
)

// BoxRef is a read-only view of a geometry's cached bounding box.
type BoxRef struct {
	box *engine.GBox
}

// XMin returns the minimum X.
func (b *BoxRef) XMin() float64 { return b.box.XMin }

// XMax returns the maximum X.
func (b *BoxRef) XMax() float64 { return b.box.XMax }

// YMin returns the minimum Y.
func (b *BoxRef) YMin() float64 { return b.box.YMin }

// YMax returns the maximum Y.
func (b *BoxRef) YMax() float64 { return b.box.YMax }

// Width returns XMax - XMin.
func (b *BoxRef) Width() float64 { return b.box.XMax - b.box.XMin }

// Height returns YMax - YMin.
func (b *BoxRef) Height() float64 { return b.box.YMax - b.box.YMin }

func (b *BoxRef) String() string {
	return fmt.Sprintf("BOX(%s %s,%s %s)",
		engine.FormatOrdinate(b.box.XMin, DefaultPrecision), engine.FormatOrdinate(b.box.YMin, DefaultPrecision),
		engine.FormatOrdinate(b.box.XMax, DefaultPrecision), engine.FormatOrdinate(b.box.YMax, DefaultPrecision))
}

func bboxOf(ctx *Context, p engine.Ptr) (*BoxRef, error) {
	box := ctx.eng.GetBBox(p)
	if box == nil {
		return nil, errors.WithStack(ErrNoBBox)
	}
	return &BoxRef{box: box}, nil
}
