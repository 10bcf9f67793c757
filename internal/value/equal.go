package value

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Equal reports whether a and b hold the same data. Floats compare by value
// with NaN equal to itself; mappings compare as sets of entries.
func Equal(a, b Value) bool {
	return identity(a) == identity(b)
}

// identity returns an injective string encoding of v. Mapping entries are
// sorted so the encoding ignores insertion order.
func identity(v Value) string {
	var sb strings.Builder
	writeIdentity(&sb, v)
	return sb.String()
}

func writeIdentity(sb *strings.Builder, v Value) {
	switch val := v.(type) {
	case nil, Null:
		sb.WriteByte('n')
	case Bool:
		if val {
			sb.WriteString("b1")
		} else {
			sb.WriteString("b0")
		}
	case Int:
		sb.WriteByte('i')
		sb.WriteString(strconv.FormatInt(int64(val), 10))
		sb.WriteByte(';')
	case Float:
		f := float64(val)
		switch {
		case math.IsNaN(f):
			f = math.NaN()
		case f == 0:
			f = 0
		}
		sb.WriteByte('f')
		sb.WriteString(strconv.FormatUint(math.Float64bits(f), 16))
		sb.WriteByte(';')
	case String:
		writeChunk(sb, 's', string(val))
	case Bytes:
		writeChunk(sb, 'y', string(val))
	case Sequence:
		sb.WriteString("q")
		sb.WriteString(strconv.Itoa(len(val)))
		sb.WriteByte('[')
		for _, item := range val {
			writeIdentity(sb, item)
		}
		sb.WriteByte(']')
	case *Mapping:
		parts := make([]string, 0, val.Len())
		for _, e := range val.Entries() {
			var entry strings.Builder
			writeIdentity(&entry, e.Key)
			writeIdentity(&entry, e.Value)
			parts = append(parts, entry.String())
		}
		sort.Strings(parts)
		sb.WriteString("m")
		sb.WriteString(strconv.Itoa(len(parts)))
		sb.WriteByte('{')
		for _, p := range parts {
			writeChunk(sb, 'e', p)
		}
		sb.WriteByte('}')
	}
}

func writeChunk(sb *strings.Builder, tag byte, s string) {
	sb.WriteByte(tag)
	sb.WriteString(strconv.Itoa(len(s)))
	sb.WriteByte(':')
	sb.WriteString(s)
}
