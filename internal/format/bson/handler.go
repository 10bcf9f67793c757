// Package bson provides the BSON format handler for slate.
package bson

import (
	"fmt"
	"time"

	"github.com/thirteen37/slate/internal/format"
	"github.com/thirteen37/slate/internal/value"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Handler implements format.Codec for BSON documents.
type Handler struct{}

// New creates a new BSON handler.
func New() *Handler {
	return &Handler{}
}

// Decode reads one BSON document and returns a *value.Mapping in document
// order.
func (h *Handler) Decode(data []byte, opts format.DecodeOptions) (value.Value, error) {
	if opts.StripComments {
		return nil, fmt.Errorf("strip-comments is not supported for BSON format")
	}

	raw := bson.Raw(data)
	if err := raw.Validate(); err != nil {
		return nil, format.NewSyntaxError(format.BSON, err)
	}
	return decodeDocument(raw)
}

func decodeDocument(doc bson.Raw) (*value.Mapping, error) {
	elems, err := doc.Elements()
	if err != nil {
		return nil, format.NewSyntaxError(format.BSON, err)
	}
	m := value.NewMapping()
	for _, elem := range elems {
		v, err := decodeValue(elem.Value())
		if err != nil {
			return nil, err
		}
		m.SetString(elem.Key(), v)
	}
	return m, nil
}

// decodeValue maps a BSON element to the tree. Types without a tree
// counterpart use their conventional text form.
func decodeValue(rv bson.RawValue) (value.Value, error) {
	switch rv.Type {
	case bson.TypeDouble:
		return value.Float(rv.Double()), nil
	case bson.TypeString:
		return value.String(rv.StringValue()), nil
	case bson.TypeEmbeddedDocument:
		return decodeDocument(rv.Document())
	case bson.TypeArray:
		vals, err := rv.Array().Values()
		if err != nil {
			return nil, format.NewSyntaxError(format.BSON, err)
		}
		seq := make(value.Sequence, len(vals))
		for i, item := range vals {
			v, err := decodeValue(item)
			if err != nil {
				return nil, err
			}
			seq[i] = v
		}
		return seq, nil
	case bson.TypeBinary:
		_, data := rv.Binary()
		return value.Bytes(data), nil
	case bson.TypeUndefined, bson.TypeNull:
		return value.Null{}, nil
	case bson.TypeObjectID:
		return value.String(rv.ObjectID().Hex()), nil
	case bson.TypeBoolean:
		return value.Bool(rv.Boolean()), nil
	case bson.TypeDateTime:
		t := time.UnixMilli(rv.DateTime()).UTC()
		return value.String(t.Format(time.RFC3339Nano)), nil
	case bson.TypeRegex:
		pattern, options := rv.Regex()
		return value.String("/" + pattern + "/" + options), nil
	case bson.TypeDBPointer:
		ns, id := rv.DBPointer()
		m := value.NewMapping()
		m.SetString("$ref", value.String(ns))
		m.SetString("$id", value.String(id.Hex()))
		return m, nil
	case bson.TypeJavaScript:
		return value.String(rv.JavaScript()), nil
	case bson.TypeSymbol:
		return value.String(rv.Symbol()), nil
	case bson.TypeCodeWithScope:
		code, _ := rv.CodeWithScope()
		return value.String(code), nil
	case bson.TypeInt32:
		return value.Int(rv.Int32()), nil
	case bson.TypeTimestamp:
		t, i := rv.Timestamp()
		m := value.NewMapping()
		m.SetString("t", value.Int(t))
		m.SetString("i", value.Int(i))
		return m, nil
	case bson.TypeInt64:
		return value.Int(rv.Int64()), nil
	case bson.TypeDecimal128:
		return value.String(rv.Decimal128().String()), nil
	case bson.TypeMinKey:
		return value.String("MinKey"), nil
	case bson.TypeMaxKey:
		return value.String("MaxKey"), nil
	}
	return nil, format.NewSyntaxError(format.BSON, fmt.Errorf("unknown element type 0x%02x", byte(rv.Type)))
}

// Encode writes the tree as one BSON document. The top level must be a
// mapping; integers are always written as int64.
func (h *Handler) Encode(tree value.Value, opts format.EncodeOptions) ([]byte, error) {
	m, ok := tree.(*value.Mapping)
	if !ok {
		return nil, format.Unsupported(format.BSON, tree, "a BSON document must be a mapping")
	}

	doc, err := toDocument(m)
	if err != nil {
		return nil, err
	}

	data, err := bson.Marshal(doc)
	if err != nil {
		return nil, &format.UnsupportedShapeError{Format: format.BSON, Kind: value.KindMapping, Detail: err.Error()}
	}
	return data, nil
}

func toDocument(m *value.Mapping) (bson.D, error) {
	keys, err := format.StringKeys(format.BSON, m)
	if err != nil {
		return nil, err
	}
	doc := make(bson.D, 0, len(keys))
	for i, e := range m.Entries() {
		v, err := toBSON(e.Value)
		if err != nil {
			return nil, err
		}
		doc = append(doc, bson.E{Key: keys[i], Value: v})
	}
	return doc, nil
}

func toBSON(v value.Value) (any, error) {
	switch val := v.(type) {
	case nil, value.Null:
		return nil, nil
	case value.Bool:
		return bool(val), nil
	case value.Int:
		return int64(val), nil
	case value.Float:
		return float64(val), nil
	case value.String:
		return string(val), nil
	case value.Bytes:
		return primitive.Binary{Subtype: 0x00, Data: []byte(val)}, nil
	case value.Sequence:
		arr := make(bson.A, len(val))
		for i, item := range val {
			child, err := toBSON(item)
			if err != nil {
				return nil, err
			}
			arr[i] = child
		}
		return arr, nil
	case *value.Mapping:
		return toDocument(val)
	}
	return nil, format.Unsupported(format.BSON, v, "unexpected value type %T", v)
}

// Ensure Handler implements format.Codec.
var _ format.Codec = (*Handler)(nil)
