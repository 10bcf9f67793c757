// Package pickle provides the Python pickle format handler for slate.
package pickle

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"sort"

	ogórek "github.com/kisielk/og-rek"
	"github.com/thirteen37/slate/internal/format"
	"github.com/thirteen37/slate/internal/value"
)

// Protocol is the pickle protocol written by Encode. Protocol 3 is the
// oldest that Python 3 reads with native str values.
const Protocol = 3

var (
	orderedDict = ogórek.Class{Module: "collections", Name: "OrderedDict"}
	bytesClass  = ogórek.Class{Module: "builtins", Name: "bytes"}
)

// Handler implements format.Codec for pickle streams.
type Handler struct{}

// New creates a new pickle handler.
func New() *Handler {
	return &Handler{}
}

// Decode reads one pickle and returns the value tree. Plain dicts have no
// order and are sorted by key; OrderedDict calls keep theirs.
func (h *Handler) Decode(data []byte, opts format.DecodeOptions) (value.Value, error) {
	if opts.StripComments {
		return nil, fmt.Errorf("strip-comments is not supported for pickle format")
	}

	// Like Python's pickle.loads, bytes after the STOP opcode are ignored.
	obj, err := ogórek.NewDecoder(bytes.NewReader(data)).Decode()
	if err != nil {
		return nil, format.NewSyntaxError(format.Pickle, err)
	}

	v, err := fromPickle(obj)
	if err != nil {
		return nil, format.NewSyntaxError(format.Pickle, err)
	}
	return v, nil
}

func fromPickle(obj any) (value.Value, error) {
	switch val := obj.(type) {
	case nil, ogórek.None:
		return value.Null{}, nil
	case bool:
		return value.Bool(val), nil
	case int64:
		return value.Int(val), nil
	case *big.Int:
		return value.FromBigInt(val), nil
	case float64:
		return value.Float(val), nil
	case string:
		return value.String(val), nil
	case []byte:
		return value.Bytes(val), nil
	case []any:
		return sequence(val)
	case ogórek.Tuple:
		return sequence(val)
	case ogórek.Call:
		return fromCall(val)
	case ogórek.Class:
		return nil, fmt.Errorf("unsupported pickled class %s.%s", val.Module, val.Name)
	case ogórek.Ref:
		return nil, errors.New("persistent references are not supported")
	}

	rv := reflect.ValueOf(obj)
	switch rv.Kind() {
	case reflect.Map:
		return dict(rv)
	case reflect.String:
		// Bytes-like named string types from the decoder.
		if rv.Type().Name() == "Bytes" {
			return value.Bytes(rv.String()), nil
		}
		return value.String(rv.String()), nil
	}
	return nil, fmt.Errorf("unsupported pickled value of type %T", obj)
}

func sequence(items []any) (value.Value, error) {
	seq := make(value.Sequence, len(items))
	for i, item := range items {
		v, err := fromPickle(item)
		if err != nil {
			return nil, err
		}
		seq[i] = v
	}
	return seq, nil
}

// dict converts a plain dict, sorting entries by the canonical key text.
func dict(rv reflect.Value) (value.Value, error) {
	type pair struct {
		key, val value.Value
		sortKey  string
	}
	pairs := make([]pair, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k, err := fromPickle(iter.Key().Interface())
		if err != nil {
			return nil, err
		}
		v, err := fromPickle(iter.Value().Interface())
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, pair{key: k, val: v, sortKey: value.Canonical(k)})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].sortKey < pairs[j].sortKey })

	m := value.NewMapping()
	for _, p := range pairs {
		m.Set(p.key, p.val)
	}
	return m, nil
}

// fromCall understands the calls Encode writes: OrderedDict([(k, v), ...])
// and bytes([...]).
func fromCall(call ogórek.Call) (value.Value, error) {
	switch call.Callable {
	case orderedDict:
		m := value.NewMapping()
		if len(call.Args) == 0 {
			return m, nil
		}
		items, ok := asList(call.Args[0])
		if !ok {
			return nil, errors.New("OrderedDict argument is not a list of pairs")
		}
		for _, item := range items {
			kv, ok := asList(item)
			if !ok || len(kv) != 2 {
				return nil, errors.New("OrderedDict item is not a (key, value) pair")
			}
			k, err := fromPickle(kv[0])
			if err != nil {
				return nil, err
			}
			v, err := fromPickle(kv[1])
			if err != nil {
				return nil, err
			}
			m.Set(k, v)
		}
		return m, nil
	case bytesClass, ogórek.Class{Module: "__builtin__", Name: "bytearray"}, ogórek.Class{Module: "builtins", Name: "bytearray"}:
		if len(call.Args) == 0 {
			return value.Bytes{}, nil
		}
		items, ok := asList(call.Args[0])
		if !ok {
			return nil, errors.New("bytes argument is not a list of integers")
		}
		out := make(value.Bytes, len(items))
		for i, item := range items {
			n, ok := item.(int64)
			if !ok || n < 0 || n > 255 {
				return nil, fmt.Errorf("bytes item %v is not an octet", item)
			}
			out[i] = byte(n)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported pickled call %s.%s", call.Callable.Module, call.Callable.Name)
}

func asList(obj any) ([]any, bool) {
	switch val := obj.(type) {
	case []any:
		return val, true
	case ogórek.Tuple:
		return val, true
	}
	return nil, false
}

// Encode writes the tree as a pickle. Mappings become OrderedDict calls so
// their order survives and output is deterministic.
func (h *Handler) Encode(tree value.Value, opts format.EncodeOptions) ([]byte, error) {
	obj, err := toPickle(tree, false)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := ogórek.NewEncoderWithConfig(&buf, &ogórek.EncoderConfig{Protocol: Protocol})
	if err := enc.Encode(obj); err != nil {
		return nil, &format.UnsupportedShapeError{Format: format.Pickle, Kind: value.KindOf(tree), Detail: err.Error()}
	}
	return buf.Bytes(), nil
}

// toPickle converts v. Keys must be hashable in Python, so sequences used
// as keys become tuples and mappings cannot be keys at all.
func toPickle(v value.Value, asKey bool) (any, error) {
	switch val := v.(type) {
	case nil, value.Null:
		return ogórek.None{}, nil
	case value.Bool:
		return bool(val), nil
	case value.Int:
		return int64(val), nil
	case value.Float:
		return float64(val), nil
	case value.String:
		return string(val), nil
	case value.Bytes:
		octets := make([]any, len(val))
		for i, b := range val {
			octets[i] = int64(b)
		}
		return ogórek.Call{Callable: bytesClass, Args: ogórek.Tuple{octets}}, nil
	case value.Sequence:
		items := make([]any, len(val))
		for i, item := range val {
			child, err := toPickle(item, asKey)
			if err != nil {
				return nil, err
			}
			items[i] = child
		}
		if asKey {
			return ogórek.Tuple(items), nil
		}
		return items, nil
	case *value.Mapping:
		if asKey {
			return nil, format.Unsupported(format.Pickle, v, "a mapping cannot be a dict key")
		}
		pairs := make([]any, 0, val.Len())
		for _, e := range val.Entries() {
			k, err := toPickle(e.Key, true)
			if err != nil {
				return nil, err
			}
			child, err := toPickle(e.Value, false)
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, ogórek.Tuple{k, child})
		}
		return ogórek.Call{Callable: orderedDict, Args: ogórek.Tuple{pairs}}, nil
	}
	return nil, format.Unsupported(format.Pickle, v, "unexpected value type %T", v)
}

// Ensure Handler implements format.Codec.
var _ format.Codec = (*Handler)(nil)
