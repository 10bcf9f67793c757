package flexbuffers

import (
	"encoding/binary"
	"math"
	"sort"
	"strings"

	"github.com/thirteen37/slate/internal/format"
	"github.com/thirteen37/slate/internal/value"
)

// slot is a value waiting to be written into its parent: inline scalars
// carry their bits, everything else the absolute offset of its data.
type slot struct {
	typ   fbType
	width bitWidth // inline: width of the value; otherwise: element width of the target
	u     uint64   // uint, bool or absolute offset
	i     int64
	f     float64
}

// elemWidth returns the width this slot needs when written as element idx
// of a vector that will start at the end of a bufSize-byte buffer.
func (s slot) elemWidth(bufSize, idx int) bitWidth {
	if s.typ.inline() {
		return s.width
	}
	// The relative offset depends on where it lands, which depends on the
	// width chosen; try each width in turn.
	for w := width8; w <= width64; w++ {
		n := w.bytes()
		loc := bufSize + padding(bufSize, n) + idx*n
		if widthU(uint64(loc)-s.u) <= w {
			return w
		}
	}
	return width64
}

func (s slot) packedType(parent bitWidth) byte {
	w := s.width
	if s.typ.inline() && parent > w {
		w = parent
	}
	return packType(s.typ, w)
}

// builder writes a FlexBuffer bottom-up: children first, then the vectors
// and maps that point back at them.
type builder struct {
	buf []byte
}

func (b *builder) align(w bitWidth) int {
	n := w.bytes()
	b.buf = append(b.buf, make([]byte, padding(len(b.buf), n))...)
	return n
}

func (b *builder) writeUint(u uint64, n int) {
	switch n {
	case 1:
		b.buf = append(b.buf, byte(u))
	case 2:
		b.buf = binary.LittleEndian.AppendUint16(b.buf, uint16(u))
	case 4:
		b.buf = binary.LittleEndian.AppendUint32(b.buf, uint32(u))
	default:
		b.buf = binary.LittleEndian.AppendUint64(b.buf, u)
	}
}

func (b *builder) writeFloat(f float64, n int) {
	if n == 4 {
		b.buf = binary.LittleEndian.AppendUint32(b.buf, math.Float32bits(float32(f)))
		return
	}
	b.buf = binary.LittleEndian.AppendUint64(b.buf, math.Float64bits(f))
}

func (b *builder) writeAny(s slot, n int) {
	switch s.typ {
	case typeNull, typeInt:
		b.writeUint(uint64(s.i), n)
	case typeBool, typeUint:
		b.writeUint(s.u, n)
	case typeFloat:
		b.writeFloat(s.f, n)
	default:
		b.writeUint(uint64(len(b.buf))-s.u, n)
	}
}

func (b *builder) blob(data []byte, typ fbType) slot {
	w := widthU(uint64(len(data)))
	n := b.align(w)
	b.writeUint(uint64(len(data)), n)
	loc := len(b.buf)
	b.buf = append(b.buf, data...)
	if typ == typeString {
		b.buf = append(b.buf, 0)
	}
	return slot{typ: typ, width: w, u: uint64(loc)}
}

func (b *builder) key(k string) slot {
	loc := len(b.buf)
	b.buf = append(b.buf, k...)
	b.buf = append(b.buf, 0)
	return slot{typ: typeKey, width: width8, u: uint64(loc)}
}

// vector writes elems. A keys slot turns the vector into the values half of
// a map; typed vectors omit the per-element type bytes.
func (b *builder) vector(elems []slot, typed bool, keys *slot) slot {
	w := widthU(uint64(len(elems)))
	prefix := 1
	if keys != nil {
		w = max(w, keys.elemWidth(len(b.buf), 0))
		prefix += 2
	}
	elemType := typeKey
	for i, e := range elems {
		w = max(w, e.elemWidth(len(b.buf), i+prefix))
		if typed && i == 0 {
			elemType = e.typ
		}
	}

	n := b.align(w)
	if keys != nil {
		b.writeUint(uint64(len(b.buf))-keys.u, n)
		b.writeUint(uint64(keys.width.bytes()), n)
	}
	b.writeUint(uint64(len(elems)), n)
	loc := len(b.buf)
	for _, e := range elems {
		b.writeAny(e, n)
	}
	if !typed {
		for _, e := range elems {
			b.buf = append(b.buf, e.packedType(w))
		}
	}

	typ := typeVector
	switch {
	case keys != nil:
		typ = typeMap
	case typed:
		typ = elemType - typeInt + typeVectorInt
	}
	return slot{typ: typ, width: w, u: uint64(loc)}
}

func (b *builder) value(v value.Value) (slot, error) {
	switch val := v.(type) {
	case nil, value.Null:
		return slot{typ: typeNull, width: width8}, nil
	case value.Bool:
		s := slot{typ: typeBool, width: width8}
		if val {
			s.u = 1
		}
		return s, nil
	case value.Int:
		return slot{typ: typeInt, width: widthI(int64(val)), i: int64(val)}, nil
	case value.Float:
		return slot{typ: typeFloat, width: widthF(float64(val)), f: float64(val)}, nil
	case value.String:
		return b.blob([]byte(val), typeString), nil
	case value.Bytes:
		return b.blob(val, typeBlob), nil
	case value.Sequence:
		elems := make([]slot, len(val))
		for i, item := range val {
			s, err := b.value(item)
			if err != nil {
				return slot{}, err
			}
			elems[i] = s
		}
		return b.vector(elems, false, nil), nil
	case *value.Mapping:
		return b.mapping(val)
	}
	return slot{}, format.Unsupported(format.Flexbuffers, v, "unexpected value type %T", v)
}

// mapping writes keys sorted bytewise, which readers rely on for lookup.
func (b *builder) mapping(m *value.Mapping) (slot, error) {
	names, err := format.StringKeys(format.Flexbuffers, m)
	if err != nil {
		return slot{}, err
	}

	entries := m.Entries()
	order := make([]int, len(entries))
	for i := range order {
		order[i] = i
		if strings.IndexByte(names[i], 0) >= 0 {
			return slot{}, format.Unsupported(format.Flexbuffers, m, "key %q contains a NUL byte", names[i])
		}
	}
	sort.Slice(order, func(i, j int) bool {
		return names[order[i]] < names[order[j]]
	})

	keys := make([]slot, len(order))
	vals := make([]slot, len(order))
	for i, idx := range order {
		keys[i] = b.key(names[idx])
		s, err := b.value(entries[idx].Value)
		if err != nil {
			return slot{}, err
		}
		vals[i] = s
	}

	keyVec := b.vector(keys, true, nil)
	return b.vector(vals, false, &keyVec), nil
}

// finish writes the root slot followed by its packed type and byte width.
func (b *builder) finish(root slot) []byte {
	n := b.align(root.elemWidth(len(b.buf), 0))
	b.writeAny(root, n)
	b.buf = append(b.buf, root.packedType(width8), byte(n))
	return b.buf
}
