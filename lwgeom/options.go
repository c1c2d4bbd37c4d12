package lwgeom

// DefaultPrecision is the number of decimal digits written by the WKT
// serializers unless WithPrecision says otherwise.
const DefaultPrecision = 15

// DefaultGeoJSONPrecision is the default for AsGeoJSON.
const DefaultGeoJSONPrecision = 9

type encodeOptions struct {
	precision int
}

// EncodeOption configures a text serialization.
type EncodeOption func(*encodeOptions)

// WithPrecision sets the maximum number of decimal digits per ordinate.
func WithPrecision(digits int) EncodeOption {
	return func(o *encodeOptions) { o.precision = digits }
}

func newEncodeOptions(precision int, opts []EncodeOption) encodeOptions {
	o := encodeOptions{precision: precision}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ByteOrder selects the byte order of WKB output.
type ByteOrder int

// WKB byte orders.
const (
	NDR ByteOrder = iota // little endian
	XDR                  // big endian
)
