// Package cbor provides the CBOR (RFC 8949) format handler for slate.
package cbor

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/thirteen37/slate/internal/format"
	"github.com/thirteen37/slate/internal/value"
)

// CBOR major types.
const (
	majorUint   = 0
	majorNegInt = 1
	majorBytes  = 2
	majorText   = 3
	majorArray  = 4
	majorMap    = 5
	majorTag    = 6
	majorSimple = 7
)

// encMode encodes scalars with Core Deterministic Encoding (RFC 8949 §4.2):
// smallest integer and float widths, no indefinite-length items. Arrays and
// maps are framed by hand so that map order and non-string keys survive.
var encMode cbor.EncMode

// decMode decodes individual items; maps are walked entry by entry.
var decMode cbor.DecMode

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("cbor: encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// Tag content is decoded through RawTag so no tag needs registering.
		TimeTag: cbor.DecTagOptional,
	}.DecMode()
	if err != nil {
		panic("cbor: decoder initialization failed: " + err.Error())
	}
}

// Handler implements format.Codec for CBOR files.
type Handler struct{}

// New creates a new CBOR handler.
func New() *Handler {
	return &Handler{}
}

// Decode reads a single CBOR data item and returns the value tree.
func (h *Handler) Decode(data []byte, opts format.DecodeOptions) (value.Value, error) {
	if opts.StripComments {
		return nil, fmt.Errorf("strip-comments is not supported for CBOR format")
	}
	if len(data) == 0 {
		return nil, format.NewSyntaxError(format.CBOR, errors.New("empty input"))
	}
	if err := decMode.Wellformed(data); err != nil {
		return nil, format.NewSyntaxError(format.CBOR, err)
	}

	v, err := decodeItem(data)
	if err != nil {
		return nil, format.NewSyntaxError(format.CBOR, err)
	}
	return v, nil
}

// decodeItem converts exactly one well-formed CBOR data item.
func decodeItem(item []byte) (value.Value, error) {
	switch item[0] >> 5 {
	case majorUint, majorNegInt:
		var n any
		if err := decMode.Unmarshal(item, &n); err != nil {
			return nil, err
		}
		return value.FromNative(n)
	case majorBytes:
		var b []byte
		if err := decMode.Unmarshal(item, &b); err != nil {
			return nil, err
		}
		return value.Bytes(b), nil
	case majorText:
		var s string
		if err := decMode.Unmarshal(item, &s); err != nil {
			return nil, err
		}
		return value.String(s), nil
	case majorArray:
		var items []cbor.RawMessage
		if err := decMode.Unmarshal(item, &items); err != nil {
			return nil, err
		}
		seq := make(value.Sequence, len(items))
		for i, raw := range items {
			v, err := decodeItem(raw)
			if err != nil {
				return nil, err
			}
			seq[i] = v
		}
		return seq, nil
	case majorMap:
		return decodeMap(item)
	case majorTag:
		return decodeTag(item)
	default:
		var x any
		if err := decMode.Unmarshal(item, &x); err != nil {
			return nil, err
		}
		switch s := x.(type) {
		case cbor.SimpleValue:
			return value.Int(s), nil
		case float32:
			return value.Float(s), nil
		}
		return value.FromNative(x)
	}
}

// decodeMap walks the entries of a map in encoded order.
func decodeMap(item []byte) (value.Value, error) {
	count, indefinite, rest, err := readHead(item)
	if err != nil {
		return nil, err
	}

	m := value.NewMapping()
	next := func() (value.Value, error) {
		var raw cbor.RawMessage
		var err error
		rest, err = decMode.UnmarshalFirst(rest, &raw)
		if err != nil {
			return nil, err
		}
		return decodeItem(raw)
	}

	for i := uint64(0); indefinite || i < count; i++ {
		if indefinite && len(rest) > 0 && rest[0] == 0xff {
			break
		}
		k, err := next()
		if err != nil {
			return nil, err
		}
		v, err := next()
		if err != nil {
			return nil, err
		}
		m.Set(k, v)
	}
	return m, nil
}

// decodeTag maps tagged items to the closest plain value: date/times become
// RFC 3339 strings, bignums become numbers and other tags are dropped.
func decodeTag(item []byte) (value.Value, error) {
	var tag cbor.RawTag
	if err := decMode.Unmarshal(item, &tag); err != nil {
		return nil, err
	}
	switch tag.Number {
	case 0, 1:
		var t time.Time
		if err := decMode.Unmarshal(item, &t); err != nil {
			return nil, err
		}
		return value.String(t.UTC().Format(time.RFC3339Nano)), nil
	case 2, 3:
		var b big.Int
		if err := decMode.Unmarshal(item, &b); err != nil {
			return nil, err
		}
		return value.FromBigInt(&b), nil
	default:
		return decodeItem(tag.Content)
	}
}

// readHead parses the initial byte(s) of an array or map and returns the
// element count and the remaining bytes.
func readHead(item []byte) (count uint64, indefinite bool, rest []byte, err error) {
	info := item[0] & 0x1f
	rest = item[1:]
	switch {
	case info < 24:
		return uint64(info), false, rest, nil
	case info == 31:
		return 0, true, rest, nil
	}

	size := 1 << (info - 24)
	if info > 27 || len(rest) < size {
		return 0, false, nil, fmt.Errorf("malformed item head 0x%02x", item[0])
	}
	switch size {
	case 1:
		count = uint64(rest[0])
	case 2:
		count = uint64(binary.BigEndian.Uint16(rest))
	case 4:
		count = uint64(binary.BigEndian.Uint32(rest))
	case 8:
		count = binary.BigEndian.Uint64(rest)
	}
	return count, false, rest[size:], nil
}

// appendHead appends a definite-length head for the given major type.
func appendHead(buf []byte, major byte, n uint64) []byte {
	mt := major << 5
	switch {
	case n < 24:
		return append(buf, mt|byte(n))
	case n <= 0xff:
		return append(buf, mt|24, byte(n))
	case n <= 0xffff:
		return binary.BigEndian.AppendUint16(append(buf, mt|25), uint16(n))
	case n <= 0xffffffff:
		return binary.BigEndian.AppendUint32(append(buf, mt|26), uint32(n))
	default:
		return binary.BigEndian.AppendUint64(append(buf, mt|27), n)
	}
}

// Encode writes the tree as a single CBOR data item.
func (h *Handler) Encode(tree value.Value, opts format.EncodeOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, tree); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encode(buf *bytes.Buffer, v value.Value) error {
	var scalar any
	switch val := v.(type) {
	case nil, value.Null:
		buf.WriteByte(0xf6)
		return nil
	case value.Sequence:
		buf.Write(appendHead(nil, majorArray, uint64(len(val))))
		for _, item := range val {
			if err := encode(buf, item); err != nil {
				return err
			}
		}
		return nil
	case *value.Mapping:
		buf.Write(appendHead(nil, majorMap, uint64(val.Len())))
		for _, e := range val.Entries() {
			if err := encode(buf, e.Key); err != nil {
				return err
			}
			if err := encode(buf, e.Value); err != nil {
				return err
			}
		}
		return nil
	case value.Bool:
		scalar = bool(val)
	case value.Int:
		scalar = int64(val)
	case value.Float:
		scalar = float64(val)
	case value.String:
		scalar = string(val)
	case value.Bytes:
		scalar = []byte(val)
	default:
		return format.Unsupported(format.CBOR, v, "unexpected value type %T", v)
	}

	b, err := encMode.Marshal(scalar)
	if err != nil {
		return &format.UnsupportedShapeError{Format: format.CBOR, Kind: v.Kind(), Detail: err.Error()}
	}
	buf.Write(b)
	return nil
}

// Ensure Handler implements format.Codec.
var _ format.Codec = (*Handler)(nil)
