package yaml

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thirteen37/slate/internal/format"
	"github.com/thirteen37/slate/internal/value"
	"github.com/thirteen37/slate/internal/value/valuetest"
)

func TestHandler_Decode(t *testing.T) {
	input := `
name: slate
count: 3
ratio: 0.5
enabled: yes_not_bool
flag: true
nothing: ~
blob: !!binary aGVsbG8=
when: 2024-01-02T03:04:05Z
list:
  - 1
  - two
1: int key
`
	got, err := New().Decode([]byte(input), format.DecodeOptions{})
	require.NoError(t, err)

	want := value.NewMapping()
	want.SetString("name", value.String("slate"))
	want.SetString("count", value.Int(3))
	want.SetString("ratio", value.Float(0.5))
	want.SetString("enabled", value.String("yes_not_bool"))
	want.SetString("flag", value.Bool(true))
	want.SetString("nothing", value.Null{})
	want.SetString("blob", value.Bytes("hello"))
	want.SetString("when", value.String("2024-01-02T03:04:05Z"))
	want.SetString("list", value.Sequence{value.Int(1), value.String("two")})
	want.Set(value.Int(1), value.String("int key"))

	assert.True(t, valuetest.Identical(want, got), "got %s", value.Canonical(got))
}

func TestHandler_Decode_AnchorsAndMerge(t *testing.T) {
	input := `
base: &base
  a: 1
  b: 2
derived:
  <<: *base
  b: 3
alias: *base
`
	got, err := New().Decode([]byte(input), format.DecodeOptions{})
	require.NoError(t, err)

	m := value.AsMapping(got)
	require.NotNil(t, m)
	derived, _ := m.GetString("derived")
	dm := value.AsMapping(derived)
	require.NotNil(t, dm)

	b, _ := dm.GetString("b")
	assert.Equal(t, value.Int(3), b, "explicit key must win over merged key")
	a, _ := dm.GetString("a")
	assert.Equal(t, value.Int(1), a)

	alias, _ := m.GetString("alias")
	base, _ := m.GetString("base")
	assert.True(t, value.Equal(alias, base))
}

func TestHandler_Decode_Empty(t *testing.T) {
	got, err := New().Decode(nil, format.DecodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, value.Null{}, got)
}

func TestHandler_Decode_SyntaxError(t *testing.T) {
	_, err := New().Decode([]byte("this: is: not: valid: yaml"), format.DecodeOptions{})
	var se *format.SyntaxError
	require.True(t, errors.As(err, &se), "error = %v", err)
	assert.Equal(t, 1, se.Line)
}

func TestHandler_Decode_MultipleDocuments(t *testing.T) {
	_, err := New().Decode([]byte("a: 1\n---\nb: 2\n"), format.DecodeOptions{})
	var se *format.SyntaxError
	require.True(t, errors.As(err, &se), "error = %v", err)
	assert.Equal(t, 3, se.Line)

	got, err := New().Decode([]byte("---\na: 1\n"), format.DecodeOptions{})
	require.NoError(t, err)
	want := value.NewMapping()
	want.SetString("a", value.Int(1))
	assert.True(t, valuetest.Identical(want, got), "got %s", value.Canonical(got))
}

func TestHandler_Decode_ExcessiveAliasing(t *testing.T) {
	// Each level holds ten aliases of the previous one.
	var sb strings.Builder
	sb.WriteString("l0: &l0 [lol, lol, lol, lol, lol, lol, lol, lol, lol, lol]\n")
	for i := 1; i <= 9; i++ {
		ref := fmt.Sprintf("*l%d", i-1)
		fmt.Fprintf(&sb, "l%d: &l%d [%s]\n", i, i, strings.TrimSuffix(strings.Repeat(ref+", ", 10), ", "))
	}

	_, err := New().Decode([]byte(sb.String()), format.DecodeOptions{})
	var se *format.SyntaxError
	require.True(t, errors.As(err, &se), "error = %v", err)
	assert.Contains(t, se.Error(), "excessive aliasing")
}

func TestHandler_Decode_ModestAliasing(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("base: &base {a: 1, b: 2}\n")
	for i := 0; i < 50; i++ {
		fmt.Fprintf(&sb, "k%d: *base\n", i)
	}

	got, err := New().Decode([]byte(sb.String()), format.DecodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, 51, value.AsMapping(got).Len())
}

func TestHandler_Encode(t *testing.T) {
	inner := value.NewMapping()
	inner.SetString("z", value.Bool(false))
	inner.SetString("a", value.Float(1))

	tree := value.NewMapping()
	tree.SetString("text", value.String("true"))
	tree.SetString("inner", inner)
	tree.SetString("list", value.Sequence{value.Int(1), value.Null{}})
	tree.SetString("bytes", value.Bytes("hi"))

	got, err := New().Encode(tree, format.EncodeOptions{})
	require.NoError(t, err)

	want := `text: "true"
inner:
  z: false
  a: 1.0
list:
  - 1
  - null
bytes: !!binary aGk=
`
	assert.Equal(t, want, string(got))
}

func TestHandler_RoundTrip(t *testing.T) {
	tree := value.NewMapping()
	tree.SetString("multi", value.String("line one\nline two\n"))
	tree.Set(value.Sequence{value.Int(1), value.Int(2)}, value.String("complex key"))
	tree.SetString("nan", value.Float(-1.25e-7))
	tree.SetString("octet", value.Bytes{0, 255})

	h := New()
	encoded, err := h.Encode(tree, format.EncodeOptions{})
	require.NoError(t, err)
	decoded, err := h.Decode(encoded, format.DecodeOptions{})
	require.NoError(t, err)
	assert.True(t, valuetest.Identical(tree, decoded), "decoded %s", value.Canonical(decoded))

	again, err := h.Encode(decoded, format.EncodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, string(encoded), string(again))
}
