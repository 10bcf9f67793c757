package flexbuffers

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/thirteen37/slate/internal/value"
)

// maxDepth bounds nesting so that offsets pointing back into an enclosing
// vector cannot recurse forever.
const maxDepth = 512

var errOutOfRange = errors.New("offset out of range")

// ref locates one value: where it is stored, the width it is stored with,
// and its packed type.
type ref struct {
	pos         int
	parentWidth int // byte width of the slot at pos
	byteWidth   int // element byte width of the target, from the packed type
	typ         fbType
}

type reader struct {
	buf    []byte
	visits int
}

// maxVisits bounds how many values a buffer may decode to. Every value owns
// at least one slot byte, so only vectors sharing offsets can exceed it.
func (r *reader) maxVisits() int {
	return 4*len(r.buf) + 64
}

func (r *reader) root() (ref, error) {
	if len(r.buf) < 3 {
		return ref{}, errors.New("buffer too short")
	}
	n := int(r.buf[len(r.buf)-1])
	if n != 1 && n != 2 && n != 4 && n != 8 {
		return ref{}, fmt.Errorf("invalid root byte width %d", n)
	}
	packed := r.buf[len(r.buf)-2]
	pos := len(r.buf) - 2 - n
	if pos < 0 {
		return ref{}, errOutOfRange
	}
	return newRef(pos, n, packed), nil
}

func newRef(pos, parentWidth int, packed byte) ref {
	return ref{pos: pos, parentWidth: parentWidth, byteWidth: 1 << (packed & 3), typ: fbType(packed >> 2)}
}

func (r *reader) readUint(pos, n int) (uint64, error) {
	if pos < 0 || pos+n > len(r.buf) {
		return 0, errOutOfRange
	}
	b := r.buf[pos : pos+n]
	switch n {
	case 1:
		return uint64(b[0]), nil
	case 2:
		return uint64(binary.LittleEndian.Uint16(b)), nil
	case 4:
		return uint64(binary.LittleEndian.Uint32(b)), nil
	case 8:
		return binary.LittleEndian.Uint64(b), nil
	}
	return 0, fmt.Errorf("invalid byte width %d", n)
}

func (r *reader) readInt(pos, n int) (int64, error) {
	u, err := r.readUint(pos, n)
	if err != nil {
		return 0, err
	}
	shift := 64 - 8*n
	return int64(u<<shift) >> shift, nil
}

func (r *reader) readFloat(pos, n int) (float64, error) {
	u, err := r.readUint(pos, n)
	if err != nil {
		return 0, err
	}
	switch n {
	case 4:
		return float64(math.Float32frombits(uint32(u))), nil
	case 8:
		return math.Float64frombits(u), nil
	}
	return 0, fmt.Errorf("unsupported %d-byte float", n)
}

// indirect follows the offset stored at ref.
func (r *reader) indirect(x ref) (int, error) {
	off, err := r.readUint(x.pos, x.parentWidth)
	if err != nil {
		return 0, err
	}
	if off > uint64(x.pos) {
		return 0, errOutOfRange
	}
	return x.pos - int(off), nil
}

// sized returns the bytes of a size-prefixed string or blob.
func (r *reader) sized(x ref) ([]byte, error) {
	target, err := r.indirect(x)
	if err != nil {
		return nil, err
	}
	size, err := r.readUint(target-x.byteWidth, x.byteWidth)
	if err != nil {
		return nil, err
	}
	if size > uint64(len(r.buf)-target) {
		return nil, errOutOfRange
	}
	return r.buf[target : target+int(size)], nil
}

func (r *reader) key(x ref) (string, error) {
	target, err := r.indirect(x)
	if err != nil {
		return "", err
	}
	end := bytes.IndexByte(r.buf[target:], 0)
	if end < 0 {
		return "", errors.New("unterminated key")
	}
	return string(r.buf[target : target+end]), nil
}

func (r *reader) value(x ref, depth int) (value.Value, error) {
	if depth > maxDepth {
		return nil, errors.New("nesting too deep")
	}
	r.visits++
	if r.visits > r.maxVisits() {
		return nil, errors.New("shared offsets expand beyond the buffer size")
	}

	switch x.typ {
	case typeNull:
		return value.Null{}, nil
	case typeBool:
		u, err := r.readUint(x.pos, x.parentWidth)
		return value.Bool(u != 0), err
	case typeInt:
		i, err := r.readInt(x.pos, x.parentWidth)
		return value.Int(i), err
	case typeUint:
		u, err := r.readUint(x.pos, x.parentWidth)
		if err != nil {
			return nil, err
		}
		return value.FromNative(u)
	case typeFloat:
		f, err := r.readFloat(x.pos, x.parentWidth)
		return value.Float(f), err
	case typeIndirectInt, typeIndirectUint, typeIndirectFloat:
		target, err := r.indirect(x)
		if err != nil {
			return nil, err
		}
		direct := ref{pos: target, parentWidth: x.byteWidth, typ: x.typ - typeIndirectInt + typeInt}
		return r.value(direct, depth+1)
	case typeKey:
		k, err := r.key(x)
		return value.String(k), err
	case typeString:
		b, err := r.sized(x)
		return value.String(b), err
	case typeBlob:
		b, err := r.sized(x)
		return value.Bytes(b), err
	case typeVector:
		return r.vector(x, depth)
	case typeMap:
		return r.mapping(x, depth)
	case typeVectorBool:
		return r.typedVector(x, typeBool, 0, depth)
	}

	switch {
	case x.typ >= typeVectorInt && x.typ <= typeVectorString:
		elem := x.typ - typeVectorInt + typeInt
		return r.typedVector(x, elem, 0, depth)
	case x.typ >= typeVectorInt2 && x.typ <= typeVectorFloat4:
		k := int(x.typ - typeVectorInt2)
		return r.typedVector(x, typeInt+fbType(k%3), k/3+2, depth)
	}
	return nil, fmt.Errorf("unknown value type %d", x.typ)
}

// elements resolves the start and length of a vector. Fixed-length typed
// vectors carry no size prefix.
func (r *reader) elements(x ref, fixed int) (int, int, error) {
	target, err := r.indirect(x)
	if err != nil {
		return 0, 0, err
	}
	if fixed > 0 {
		return target, fixed, nil
	}
	size, err := r.readUint(target-x.byteWidth, x.byteWidth)
	if err != nil {
		return 0, 0, err
	}
	if size > uint64(len(r.buf)) {
		return 0, 0, errOutOfRange
	}
	return target, int(size), nil
}

func (r *reader) vector(x ref, depth int) (value.Value, error) {
	start, n, err := r.elements(x, 0)
	if err != nil {
		return nil, err
	}
	types := start + n*x.byteWidth
	if types+n > len(r.buf) {
		return nil, errOutOfRange
	}
	seq := make(value.Sequence, n)
	for i := range seq {
		child := newRef(start+i*x.byteWidth, x.byteWidth, r.buf[types+i])
		if seq[i], err = r.value(child, depth+1); err != nil {
			return nil, err
		}
	}
	return seq, nil
}

func (r *reader) typedVector(x ref, elem fbType, fixed, depth int) (value.Value, error) {
	start, n, err := r.elements(x, fixed)
	if err != nil {
		return nil, err
	}
	if start+n*x.byteWidth > len(r.buf) {
		return nil, errOutOfRange
	}
	seq := make(value.Sequence, n)
	for i := range seq {
		child := ref{pos: start + i*x.byteWidth, parentWidth: x.byteWidth, byteWidth: x.byteWidth, typ: elem}
		if seq[i], err = r.value(child, depth+1); err != nil {
			return nil, err
		}
	}
	return seq, nil
}

// mapping reads a map: a values vector prefixed by the offset and byte
// width of its keys vector.
func (r *reader) mapping(x ref, depth int) (value.Value, error) {
	start, _, err := r.elements(x, 0)
	if err != nil {
		return nil, err
	}
	keysRef := ref{pos: start - 3*x.byteWidth, parentWidth: x.byteWidth}
	keysStart, err := r.indirect(keysRef)
	if err != nil {
		return nil, err
	}
	keysWidth, err := r.readUint(start-2*x.byteWidth, x.byteWidth)
	if err != nil {
		return nil, err
	}
	if keysWidth != 1 && keysWidth != 2 && keysWidth != 4 && keysWidth != 8 {
		return nil, fmt.Errorf("invalid key width %d", keysWidth)
	}

	vals, err := r.vector(x, depth)
	if err != nil {
		return nil, err
	}

	m := value.NewMapping()
	for i, v := range vals.(value.Sequence) {
		kw := int(keysWidth)
		k, err := r.key(ref{pos: keysStart + i*kw, parentWidth: kw, typ: typeKey})
		if err != nil {
			return nil, err
		}
		m.SetString(k, v)
	}
	return m, nil
}
