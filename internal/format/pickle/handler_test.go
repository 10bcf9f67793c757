package pickle

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thirteen37/slate/internal/format"
	"github.com/thirteen37/slate/internal/value"
	"github.com/thirteen37/slate/internal/value/valuetest"
)

func TestHandler_Decode_PlainDict(t *testing.T) {
	// Protocol 0 pickle of {'b': 1, 'a': [1, 2.5, None, True]}.
	input := "(dp0\nS'b'\np1\nI1\nsS'a'\np2\n(lp3\nI1\naF2.5\naNaI01\nas."

	got, err := New().Decode([]byte(input), format.DecodeOptions{})
	require.NoError(t, err)

	want := value.NewMapping()
	want.SetString("a", value.Sequence{value.Int(1), value.Float(2.5), value.Null{}, value.Bool(true)})
	want.SetString("b", value.Int(1))

	// Plain dicts carry no order; entries come back sorted by key.
	assert.True(t, valuetest.Identical(want, got), "got %s", value.Canonical(got))
}

func TestHandler_Decode_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"truncated", "(dp0\nS'b'"},
		{"unknown class", "c__main__\nThing\n)R."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().Decode([]byte(tt.input), format.DecodeOptions{})
			var se *format.SyntaxError
			assert.True(t, errors.As(err, &se), "error = %v", err)
		})
	}
}

func TestHandler_RoundTrip(t *testing.T) {
	inner := value.NewMapping()
	inner.SetString("z", value.Int(26))
	inner.SetString("a", value.Int(1))

	tree := value.NewMapping()
	tree.SetString("name", value.String("slåte"))
	tree.SetString("inner", inner)
	tree.SetString("list", value.Sequence{value.Float(0.25), value.Null{}, value.Bool(false)})
	tree.SetString("bytes", value.Bytes{0, 128, 255})
	tree.SetString("empty", value.NewMapping())
	tree.Set(value.Sequence{value.Int(1), value.Int(2)}, value.String("tuple key"))
	tree.Set(value.Int(-7), value.String("int key"))

	h := New()
	encoded, err := h.Encode(tree, format.EncodeOptions{})
	require.NoError(t, err)

	decoded, err := h.Decode(encoded, format.DecodeOptions{})
	require.NoError(t, err)
	assert.True(t, valuetest.Identical(tree, decoded), "decoded %s", value.Canonical(decoded))

	again, err := h.Encode(decoded, format.EncodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, encoded, again)
}

func TestHandler_Encode_MappingKey(t *testing.T) {
	tree := value.NewMapping()
	tree.Set(value.NewMapping(), value.Int(1))

	_, err := New().Encode(tree, format.EncodeOptions{})
	var ue *format.UnsupportedShapeError
	assert.True(t, errors.As(err, &ue), "error = %v", err)
}
