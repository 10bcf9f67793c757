// Package postcard provides an encode-only postcard format handler for
// slate. Like bincode, postcard needs the schema to be read back.
package postcard

import (
	"encoding/binary"
	"math"

	"github.com/thirteen37/slate/internal/format"
	"github.com/thirteen37/slate/internal/value"
)

// Handler implements format.Codec for postcard output.
type Handler struct{}

// New creates a new postcard handler.
func New() *Handler {
	return &Handler{}
}

// Decode always fails; postcard carries no type information.
func (h *Handler) Decode(data []byte, opts format.DecodeOptions) (value.Value, error) {
	return nil, &format.UnknownFormatError{Input: format.Postcard.String(), Reason: "not self-describing, output only"}
}

// Encode writes the tree with the serde data model in postcard's wire
// format. Lengths and unsigned integers are LEB128 varints, signed integers
// are zigzag varints and floats are little-endian f64. Null is the unit
// value and writes nothing.
func (h *Handler) Encode(tree value.Value, opts format.EncodeOptions) ([]byte, error) {
	return appendValue(nil, tree)
}

func appendValue(buf []byte, v value.Value) ([]byte, error) {
	switch val := v.(type) {
	case nil, value.Null:
		return buf, nil
	case value.Bool:
		if val {
			return append(buf, 1), nil
		}
		return append(buf, 0), nil
	case value.Int:
		if val >= 0 {
			return binary.AppendUvarint(buf, uint64(val)), nil
		}
		// binary.AppendVarint uses the same zigzag mapping as postcard.
		return binary.AppendVarint(buf, int64(val)), nil
	case value.Float:
		return binary.LittleEndian.AppendUint64(buf, math.Float64bits(float64(val))), nil
	case value.String:
		buf = binary.AppendUvarint(buf, uint64(len(val)))
		return append(buf, val...), nil
	case value.Bytes:
		buf = binary.AppendUvarint(buf, uint64(len(val)))
		return append(buf, val...), nil
	case value.Sequence:
		buf = binary.AppendUvarint(buf, uint64(len(val)))
		var err error
		for _, item := range val {
			if buf, err = appendValue(buf, item); err != nil {
				return nil, err
			}
		}
		return buf, nil
	case *value.Mapping:
		buf = binary.AppendUvarint(buf, uint64(val.Len()))
		var err error
		for _, e := range val.Entries() {
			if buf, err = appendValue(buf, e.Key); err != nil {
				return nil, err
			}
			if buf, err = appendValue(buf, e.Value); err != nil {
				return nil, err
			}
		}
		return buf, nil
	}
	return nil, format.Unsupported(format.Postcard, v, "unexpected value type %T", v)
}

// Ensure Handler implements format.Codec.
var _ format.Codec = (*Handler)(nil)
