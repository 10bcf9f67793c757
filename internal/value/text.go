package value

import (
	"encoding/base64"
	"math"
	"strconv"
	"strings"
)

// FormatFloat renders f in its shortest form. Finite integral values keep a
// trailing ".0" so text formats read them back as floats.
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// KeyString coerces a mapping key to a string for formats whose keys must be
// strings. Strings pass through, scalars use their plain text form, bytes are
// base64 and composite keys use Canonical.
func KeyString(k Value) string {
	switch key := k.(type) {
	case String:
		return string(key)
	case nil, Null:
		return "null"
	case Bool:
		return strconv.FormatBool(bool(key))
	case Int:
		return strconv.FormatInt(int64(key), 10)
	case Float:
		return FormatFloat(float64(key))
	case Bytes:
		return base64.StdEncoding.EncodeToString(key)
	default:
		return Canonical(k)
	}
}

// ScalarText renders a scalar the way line-oriented formats (INI, unit files)
// store it. It reports false for sequences and mappings.
func ScalarText(v Value) (string, bool) {
	switch val := v.(type) {
	case nil, Null:
		return "", true
	case String:
		return string(val), true
	case Sequence, *Mapping:
		return "", false
	default:
		return KeyString(val), true
	}
}

// Canonical renders v as compact, deterministic, JSON-like text.
func Canonical(v Value) string {
	var sb strings.Builder
	writeCanonical(&sb, v)
	return sb.String()
}

func writeCanonical(sb *strings.Builder, v Value) {
	switch val := v.(type) {
	case nil, Null:
		sb.WriteString("null")
	case Bool:
		sb.WriteString(strconv.FormatBool(bool(val)))
	case Int:
		sb.WriteString(strconv.FormatInt(int64(val), 10))
	case Float:
		sb.WriteString(FormatFloat(float64(val)))
	case String:
		sb.WriteString(strconv.Quote(string(val)))
	case Bytes:
		sb.WriteString("b64:")
		sb.WriteString(strconv.Quote(base64.StdEncoding.EncodeToString(val)))
	case Sequence:
		sb.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeCanonical(sb, item)
		}
		sb.WriteByte(']')
	case *Mapping:
		sb.WriteByte('{')
		for i, e := range val.Entries() {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeCanonical(sb, e.Key)
			sb.WriteByte(':')
			writeCanonical(sb, e.Value)
		}
		sb.WriteByte('}')
	}
}
