// Package export writes tile envelopes to Parquet files.
package export

import (
	"os"

	"github.com/apache/arrow/go/v14/arrow"
	"github.com/apache/arrow/go/v14/arrow/array"
	"github.com/apache/arrow/go/v14/arrow/memory"
	"github.com/apache/arrow/go/v14/parquet"
	"github.com/apache/arrow/go/v14/parquet/compress"
	"github.com/apache/arrow/go/v14/parquet/pqarrow"
	"github.com/cockroachdb/errors"
)

// DefaultBatchSize is the number of rows buffered per record batch.
const DefaultBatchSize = 10000

// Row is one tile envelope.
type Row struct {
	Z, X, Y int32
	SRID    int32
	EWKB    []byte
	GeoHash string
}

// Schema is the Arrow schema of tile files.
var Schema = arrow.NewSchema([]arrow.Field{
	{Name: "z", Type: arrow.PrimitiveTypes.Int32, Nullable: false},
	{Name: "x", Type: arrow.PrimitiveTypes.Int32, Nullable: false},
	{Name: "y", Type: arrow.PrimitiveTypes.Int32, Nullable: false},
	{Name: "srid", Type: arrow.PrimitiveTypes.Int32, Nullable: false},
	{Name: "geom_ewkb", Type: arrow.BinaryTypes.Binary, Nullable: false},
	{Name: "geohash", Type: arrow.BinaryTypes.String, Nullable: false},
}, nil)

// TileWriter writes Rows to a Parquet file. It is not safe for concurrent use.
type TileWriter struct {
	file      *os.File
	writer    *pqarrow.FileWriter
	builder   *array.RecordBuilder
	batchSize int
	count     int
	total     int64
}

// NewTileWriter creates path and prepares a Zstd-compressed writer. A nil mem
// uses memory.DefaultAllocator and batchSize <= 0 uses DefaultBatchSize.
func NewTileWriter(path string, batchSize int, mem memory.Allocator) (*TileWriter, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "create tile file")
	}

	writerProps := parquet.NewWriterProperties(
		parquet.WithCompression(compress.Codecs.Zstd),
		parquet.WithDictionaryDefault(false),
		parquet.WithAllocator(mem),
	)

	writer, err := pqarrow.NewFileWriter(Schema, f, writerProps, pqarrow.NewArrowWriterProperties(pqarrow.WithAllocator(mem)))
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "create parquet writer")
	}

	return &TileWriter{
		file:      f,
		writer:    writer,
		builder:   array.NewRecordBuilder(mem, Schema),
		batchSize: batchSize,
	}, nil
}

// Write appends a row, flushing a record batch when it is full.
func (w *TileWriter) Write(r Row) error {
	w.builder.Field(0).(*array.Int32Builder).Append(r.Z)
	w.builder.Field(1).(*array.Int32Builder).Append(r.X)
	w.builder.Field(2).(*array.Int32Builder).Append(r.Y)
	w.builder.Field(3).(*array.Int32Builder).Append(r.SRID)
	w.builder.Field(4).(*array.BinaryBuilder).Append(r.EWKB)
	w.builder.Field(5).(*array.StringBuilder).Append(r.GeoHash)

	w.count++
	w.total++
	if w.count >= w.batchSize {
		return w.flush()
	}
	return nil
}

// Rows returns the number of rows written so far.
func (w *TileWriter) Rows() int64 {
	return w.total
}

func (w *TileWriter) flush() error {
	if w.count == 0 {
		return nil
	}
	rec := w.builder.NewRecord()
	defer rec.Release()
	err := w.writer.Write(rec)
	w.count = 0
	return errors.Wrap(err, "write record batch")
}

// Close flushes pending rows and closes the file.
func (w *TileWriter) Close() error {
	defer w.builder.Release()
	if err := w.flush(); err != nil {
		w.writer.Close()
		return err
	}
	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return errors.Wrap(err, "close parquet writer")
	}
	// The parquet writer may already have closed its sink.
	if err := w.file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return errors.Wrap(err, "close tile file")
	}
	return nil
}
