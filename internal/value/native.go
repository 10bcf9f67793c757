package value

import (
	"fmt"
	"math"
	"math/big"
	"reflect"
	"sort"
	"time"
)

// ToNative converts v to plain Go values: map[string]any (keys coerced with
// KeyString), []any, []byte, string, int64, float64, bool and nil.
func ToNative(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case Bool:
		return bool(val)
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case String:
		return string(val)
	case Bytes:
		return []byte(val)
	case Sequence:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = ToNative(item)
		}
		return out
	case *Mapping:
		out := make(map[string]any, val.Len())
		for _, e := range val.Entries() {
			out[KeyString(e.Key)] = ToNative(e.Value)
		}
		return out
	default:
		return nil
	}
}

// FromNative converts plain Go values into a tree. Go maps have no order, so
// their entries are sorted by the canonical form of the key.
func FromNative(x any) (Value, error) {
	switch val := x.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case []byte:
		return Bytes(append([]byte(nil), val...)), nil
	case int:
		return Int(val), nil
	case int8:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint:
		return fromUint(uint64(val)), nil
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case uint64:
		return fromUint(val), nil
	case float32:
		return Float(val), nil
	case float64:
		return Float(val), nil
	case *big.Int:
		return FromBigInt(val), nil
	case big.Int:
		return FromBigInt(&val), nil
	case time.Time:
		return String(val.Format(time.RFC3339Nano)), nil
	case []any:
		out := make(Sequence, len(val))
		for i, item := range val {
			child, err := FromNative(item)
			if err != nil {
				return nil, err
			}
			out[i] = child
		}
		return out, nil
	}

	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make(Sequence, rv.Len())
		for i := range out {
			child, err := FromNative(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			out[i] = child
		}
		return out, nil
	case reflect.Map:
		return fromNativeMap(rv)
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null{}, nil
		}
		return FromNative(rv.Elem().Interface())
	}
	return nil, fmt.Errorf("unsupported Go type %T", x)
}

func fromNativeMap(rv reflect.Value) (Value, error) {
	type pair struct {
		key, val Value
		sortKey  string
	}
	pairs := make([]pair, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k, err := FromNative(iter.Key().Interface())
		if err != nil {
			return nil, err
		}
		v, err := FromNative(iter.Value().Interface())
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, pair{key: k, val: v, sortKey: Canonical(k)})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].sortKey < pairs[j].sortKey })

	m := NewMapping()
	for _, p := range pairs {
		m.Set(p.key, p.val)
	}
	return m, nil
}

func fromUint(u uint64) Value {
	if u > math.MaxInt64 {
		return Float(float64(u))
	}
	return Int(int64(u))
}

// FromBigInt returns an Int when b fits in 64 bits and the nearest Float
// otherwise.
func FromBigInt(b *big.Int) Value {
	if b.IsInt64() {
		return Int(b.Int64())
	}
	f, _ := new(big.Float).SetInt(b).Float64()
	return Float(f)
}
