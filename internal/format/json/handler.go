// Package json provides the JSON format handler for slate.
package json

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/iancoleman/orderedmap"
	"github.com/thirteen37/slate/internal/format"
	"github.com/thirteen37/slate/internal/value"
	"github.com/tidwall/jsonc"
)

// Handler implements format.Codec for JSON files.
type Handler struct {
	Pretty bool
}

// New creates a compact JSON handler.
func New() *Handler {
	return &Handler{}
}

// NewPretty creates an indenting JSON handler.
func NewPretty() *Handler {
	return &Handler{Pretty: true}
}

func (h *Handler) id() format.ID {
	if h.Pretty {
		return format.PrettyJSON
	}
	return format.JSON
}

// StripComments removes // and /* */ comments and trailing commas, allowing
// JSONC files to be parsed.
func StripComments(data []byte) []byte {
	return jsonc.ToJSON(data)
}

// Decode reads JSON bytes and returns the value tree.
// Object key order from the document is preserved.
func (h *Handler) Decode(data []byte, opts format.DecodeOptions) (value.Value, error) {
	if opts.StripComments {
		data = StripComments(data)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return nil, h.syntaxError(data, dec, err)
	}

	// A document holds exactly one value.
	if _, err := dec.Token(); err != io.EOF {
		if err == nil {
			err = errors.New("unexpected data after top-level value")
		}
		return nil, h.syntaxError(data, dec, err)
	}
	return v, nil
}

func (h *Handler) syntaxError(data []byte, dec *json.Decoder, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return format.NewSyntaxErrorAt(h.id(), data, len(data), errors.New("unexpected end of input"))
	}
	offset := int(dec.InputOffset())
	var se *json.SyntaxError
	if errors.As(err, &se) {
		offset = int(se.Offset)
		if offset > 0 {
			offset--
		}
	}
	return format.NewSyntaxErrorAt(h.id(), data, offset, err)
}

func decodeValue(dec *json.Decoder) (value.Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			m := value.NewMapping()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key must be a string, got %v", keyTok)
				}
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				m.SetString(key, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return m, nil
		case '[':
			seq := value.Sequence{}
			for dec.More() {
				item, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				seq = append(seq, item)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return seq, nil
		default:
			return nil, fmt.Errorf("unexpected %q", rune(t))
		}
	case string:
		return value.String(t), nil
	case json.Number:
		return parseNumber(t)
	case bool:
		return value.Bool(t), nil
	case nil:
		return value.Null{}, nil
	default:
		return nil, fmt.Errorf("unexpected token %v", tok)
	}
}

// parseNumber keeps integer literals exact. Integers beyond int64 become
// floats.
func parseNumber(n json.Number) (value.Value, error) {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return value.Int(i), nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return nil, fmt.Errorf("invalid number %q", s)
	}
	return value.Float(f), nil
}

// Encode writes the tree as JSON. Pretty output is indented and ends with a
// newline.
func (h *Handler) Encode(tree value.Value, opts format.EncodeOptions) ([]byte, error) {
	native, err := h.toJSONTree(tree)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if h.Pretty {
		indent := opts.Indent
		if indent == "" {
			indent = "  "
		}
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(native); err != nil {
		return nil, fmt.Errorf("failed to serialize JSON: %w", err)
	}

	out := buf.Bytes()
	if !h.Pretty {
		out = bytes.TrimSuffix(out, []byte("\n"))
	}
	return out, nil
}

// number renders floats so that they read back as floats.
type number float64

func (n number) MarshalJSON() ([]byte, error) {
	return []byte(value.FormatFloat(float64(n))), nil
}

// toJSONTree converts the tree to values encoding/json writes in order:
// mappings become *orderedmap.OrderedMap.
func (h *Handler) toJSONTree(v value.Value) (any, error) {
	switch val := v.(type) {
	case nil, value.Null:
		return nil, nil
	case value.Bool:
		return bool(val), nil
	case value.Int:
		return int64(val), nil
	case value.Float:
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, format.Unsupported(h.id(), v, "%s has no JSON representation", value.FormatFloat(f))
		}
		return number(f), nil
	case value.String:
		return string(val), nil
	case value.Bytes:
		// JSON has no byte strings; write them as an array of octets.
		out := make([]any, len(val))
		for i, b := range val {
			out[i] = int64(b)
		}
		return out, nil
	case value.Sequence:
		out := make([]any, len(val))
		for i, item := range val {
			child, err := h.toJSONTree(item)
			if err != nil {
				return nil, err
			}
			out[i] = child
		}
		return out, nil
	case *value.Mapping:
		keys, err := format.StringKeys(h.id(), val)
		if err != nil {
			return nil, err
		}
		om := orderedmap.New()
		om.SetEscapeHTML(false)
		for i, e := range val.Entries() {
			child, err := h.toJSONTree(e.Value)
			if err != nil {
				return nil, err
			}
			om.Set(keys[i], child)
		}
		return om, nil
	default:
		return nil, format.Unsupported(h.id(), v, "unexpected value type %T", v)
	}
}

// Ensure Handler implements format.Codec.
var _ format.Codec = (*Handler)(nil)
