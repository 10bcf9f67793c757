// Package bincode provides an encode-only bincode (1.x, fixed-width integer)
// format handler for slate.
//
// Bincode is not self-describing: a reader needs the schema to decode it, so
// slate can write bincode but never read it.
package bincode

import (
	"encoding/binary"
	"math"

	"github.com/thirteen37/slate/internal/format"
	"github.com/thirteen37/slate/internal/value"
)

// Handler implements format.Codec for bincode output.
type Handler struct{}

// New creates a new bincode handler.
func New() *Handler {
	return &Handler{}
}

// Decode always fails; bincode carries no type information.
func (h *Handler) Decode(data []byte, opts format.DecodeOptions) (value.Value, error) {
	return nil, &format.UnknownFormatError{Input: format.Bincode.String(), Reason: "not self-describing, output only"}
}

// Encode writes the tree with the serde data model and bincode's default
// options: little-endian fixed-width integers and u64 length prefixes.
//
//	null      unit, no bytes
//	bool      1 byte
//	int       8 bytes (u64 when non-negative, i64 otherwise; same bits)
//	float     f64, 8 bytes
//	string    u64 length + UTF-8
//	bytes     u64 length + raw bytes
//	sequence  u64 length + elements
//	mapping   u64 length + key, value pairs
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
		return binary.LittleEndian.AppendUint64(buf, uint64(val)), nil
	case value.Float:
		return binary.LittleEndian.AppendUint64(buf, math.Float64bits(float64(val))), nil
	case value.String:
		buf = binary.LittleEndian.AppendUint64(buf, uint64(len(val)))
		return append(buf, val...), nil
	case value.Bytes:
		buf = binary.LittleEndian.AppendUint64(buf, uint64(len(val)))
		return append(buf, val...), nil
	case value.Sequence:
		buf = binary.LittleEndian.AppendUint64(buf, uint64(len(val)))
		var err error
		for _, item := range val {
			if buf, err = appendValue(buf, item); err != nil {
				return nil, err
			}
		}
		return buf, nil
	case *value.Mapping:
		buf = binary.LittleEndian.AppendUint64(buf, uint64(val.Len()))
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
	return nil, format.Unsupported(format.Bincode, v, "unexpected value type %T", v)
}

// Ensure Handler implements format.Codec.
var _ format.Codec = (*Handler)(nil)
