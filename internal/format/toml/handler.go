// Package toml provides the TOML format handler for slate.
package toml

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/thirteen37/slate/internal/format"
	"github.com/thirteen37/slate/internal/value"
)

// Handler implements format.Codec for TOML files.
type Handler struct{}

// New creates a new TOML handler.
func New() *Handler {
	return &Handler{}
}

// Decode reads TOML bytes and returns a *value.Mapping.
// Key order from the source document is preserved.
func (h *Handler) Decode(data []byte, opts format.DecodeOptions) (value.Value, error) {
	if opts.StripComments {
		return nil, fmt.Errorf("strip-comments is not supported for TOML format")
	}

	// Decode into a generic map to get values
	var raw map[string]any
	meta, err := toml.Decode(string(data), &raw)
	if err != nil {
		return nil, FormatError(data, err)
	}

	// Convert to the value tree using metadata for key order
	return convertWithMeta(raw, meta, nil)
}

// convertWithMeta recursively converts decoded TOML values, using TOML
// metadata to restore key order.
func convertWithMeta(v any, meta toml.MetaData, prefix []string) (value.Value, error) {
	switch val := v.(type) {
	case map[string]any:
		result := value.NewMapping()

		// Get keys in document order from metadata
		for _, k := range getKeysInOrder(meta, prefix, val) {
			childPrefix := append(append([]string(nil), prefix...), k)
			child, err := convertWithMeta(val[k], meta, childPrefix)
			if err != nil {
				return nil, err
			}
			result.SetString(k, child)
		}
		return result, nil
	case []map[string]any:
		// Array of tables
		result := make(value.Sequence, len(val))
		for i, item := range val {
			child, err := convertWithMeta(item, meta, prefix)
			if err != nil {
				return nil, err
			}
			result[i] = child
		}
		return result, nil
	case []any:
		result := make(value.Sequence, len(val))
		for i, item := range val {
			child, err := convertWithMeta(item, meta, prefix)
			if err != nil {
				return nil, err
			}
			result[i] = child
		}
		return result, nil
	case time.Time:
		return value.String(formatTime(val)), nil
	default:
		return value.FromNative(val)
	}
}

// formatTime renders TOML date/times in their RFC 3339 shape. Local dates
// and times keep their local form.
func formatTime(t time.Time) string {
	switch t.Location().String() {
	case "date-local":
		return t.Format("2006-01-02")
	case "time-local":
		return t.Format("15:04:05.999999999")
	case "datetime-local":
		return t.Format("2006-01-02T15:04:05.999999999")
	}
	return t.Format(time.RFC3339Nano)
}

// getKeysInOrder returns map keys in document order using TOML metadata.
func getKeysInOrder(meta toml.MetaData, prefix []string, m map[string]any) []string {
	// Build a set of keys we need to find
	needed := make(map[string]bool)
	for k := range m {
		needed[k] = true
	}

	// Get keys in order from metadata
	var ordered []string
	seen := make(map[string]bool)
	for _, key := range meta.Keys() {
		// Check if this key matches our prefix + one more segment
		if len(key) == len(prefix)+1 && matchesPrefix(key, prefix) {
			k := key[len(prefix)]
			if needed[k] && !seen[k] {
				ordered = append(ordered, k)
				seen[k] = true
			}
		}
	}

	// Keys defined only through dotted paths of deeper tables
	var rest []string
	for k := range needed {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	for _, k := range firstAppearance(meta, prefix, rest) {
		ordered = append(ordered, k)
	}

	return ordered
}

// firstAppearance orders keys by the first metadata key that passes
// through them.
func firstAppearance(meta toml.MetaData, prefix []string, keys []string) []string {
	if len(keys) == 0 {
		return nil
	}
	pending := make(map[string]bool, len(keys))
	for _, k := range keys {
		pending[k] = true
	}
	var ordered []string
	for _, key := range meta.Keys() {
		if len(key) > len(prefix) && matchesPrefix(key, prefix) {
			k := key[len(prefix)]
			if pending[k] {
				ordered = append(ordered, k)
				delete(pending, k)
			}
		}
	}
	for _, k := range keys {
		if pending[k] {
			ordered = append(ordered, k)
		}
	}
	return ordered
}

// matchesPrefix checks if key starts with prefix.
func matchesPrefix(key toml.Key, prefix []string) bool {
	if len(key) < len(prefix) {
		return false
	}
	for i, p := range prefix {
		if key[i] != p {
			return false
		}
	}
	return true
}

// FormatError returns a SyntaxError carrying the position of a TOML parse
// error.
func FormatError(data []byte, err error) error {
	var perr toml.ParseError
	if errors.As(err, &perr) {
		se := format.NewSyntaxErrorAt(format.TOML, data, perr.Position.Start, err)
		se.Msg = perr.Message
		if perr.Position.Line > 0 {
			se.Line = perr.Position.Line
		}
		return se
	}
	return format.NewSyntaxError(format.TOML, err)
}

// Encode writes the tree to TOML bytes. The top level must be a mapping.
// Mapping order is kept by encoding each mapping as a struct whose fields
// follow the entries.
func (h *Handler) Encode(tree value.Value, opts format.EncodeOptions) ([]byte, error) {
	if _, ok := tree.(*value.Mapping); !ok {
		return nil, format.Unsupported(format.TOML, tree, "a TOML document must be a table")
	}

	doc, err := toGo(tree)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	encoder.Indent = opts.Indent
	if err := encoder.Encode(doc); err != nil {
		return nil, &format.UnsupportedShapeError{Format: format.TOML, Kind: value.KindMapping, Detail: err.Error()}
	}

	return buf.Bytes(), nil
}

// toGo converts the tree to Go values the TOML encoder understands.
func toGo(v value.Value) (any, error) {
	switch val := v.(type) {
	case nil, value.Null:
		return nil, format.Unsupported(format.TOML, value.Null{}, "TOML has no null value")
	case value.Bool:
		return bool(val), nil
	case value.Int:
		return int64(val), nil
	case value.Float:
		return float64(val), nil
	case value.String:
		return string(val), nil
	case value.Bytes:
		// TOML has no byte strings; write them as an array of octets.
		out := make([]int64, len(val))
		for i, b := range val {
			out[i] = int64(b)
		}
		return out, nil
	case value.Sequence:
		out := make([]any, len(val))
		for i, item := range val {
			child, err := toGo(item)
			if err != nil {
				return nil, err
			}
			out[i] = child
		}
		return out, nil
	case *value.Mapping:
		return tableToGo(val)
	default:
		return nil, format.Unsupported(format.TOML, v, "unexpected value type %T", v)
	}
}

// tableToGo builds a struct value with one field per entry, tagged with the
// entry's key, so the encoder writes keys in mapping order.
func tableToGo(m *value.Mapping) (any, error) {
	keys, err := format.StringKeys(format.TOML, m)
	if err != nil {
		return nil, err
	}

	children := make([]any, len(keys))
	for i, e := range m.Entries() {
		child, err := toGo(e.Value)
		if err != nil {
			return nil, err
		}
		children[i] = child
	}

	if !taggable(keys) {
		// Keys a struct tag cannot carry fall back to a map, which the
		// encoder writes in sorted order.
		out := make(map[string]any, len(keys))
		for i, k := range keys {
			out[k] = children[i]
		}
		return out, nil
	}

	fields := make([]reflect.StructField, len(keys))
	for i, k := range keys {
		fields[i] = reflect.StructField{
			Name: "F" + strconv.Itoa(i),
			Type: reflect.TypeOf(children[i]),
			Tag:  reflect.StructTag(`toml:` + strconv.Quote(k)),
		}
	}
	sv := reflect.New(reflect.StructOf(fields)).Elem()
	for i, child := range children {
		sv.Field(i).Set(reflect.ValueOf(child))
	}
	return sv.Interface(), nil
}

// taggable reports whether every key survives a round trip through a
// `toml:"..."` struct tag.
func taggable(keys []string) bool {
	for _, k := range keys {
		if k == "" || k == "-" || strings.Contains(k, ",") {
			return false
		}
	}
	return true
}

// Ensure Handler implements format.Codec.
var _ format.Codec = (*Handler)(nil)
