// Package value provides the format-agnostic tree that every format decodes
// into and encodes from.
package value

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindBytes
	KindSequence
	KindMapping
)

var kindNames = [...]string{
	KindNull:     "null",
	KindBool:     "bool",
	KindInt:      "int",
	KindFloat:    "float",
	KindString:   "string",
	KindBytes:    "bytes",
	KindSequence: "sequence",
	KindMapping:  "mapping",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsScalar reports whether the kind holds no child values.
func (k Kind) IsScalar() bool {
	return k != KindSequence && k != KindMapping
}

// Value is a node of the tree. It is implemented by Null, Bool, Int, Float,
// String, Bytes, Sequence and *Mapping.
type Value interface {
	Kind() Kind
}

// Null is the absent value.
type Null struct{}

// Bool is a boolean.
type Bool bool

// Int is a 64-bit signed integer.
type Int int64

// Float is a 64-bit float.
type Float float64

// String is UTF-8 text.
type String string

// Bytes is an arbitrary byte sequence.
type Bytes []byte

// Sequence is an ordered list of values.
type Sequence []Value

func (Null) Kind() Kind     { return KindNull }
func (Bool) Kind() Kind     { return KindBool }
func (Int) Kind() Kind      { return KindInt }
func (Float) Kind() Kind    { return KindFloat }
func (String) Kind() Kind   { return KindString }
func (Bytes) Kind() Kind    { return KindBytes }
func (Sequence) Kind() Kind { return KindSequence }

// KindOf returns the kind of v, treating a nil interface as null.
func KindOf(v Value) Kind {
	if v == nil {
		return KindNull
	}
	return v.Kind()
}

// AsMapping returns v as a mapping, or nil if it is not one.
func AsMapping(v Value) *Mapping {
	m, _ := v.(*Mapping)
	return m
}
