package cbor

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thirteen37/slate/internal/format"
	"github.com/thirteen37/slate/internal/value"
	"github.com/thirteen37/slate/internal/value/valuetest"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestHandler_Decode(t *testing.T) {
	tests := []struct {
		name string
		hex  string
		want value.Value
	}{
		{"uint", "1864", value.Int(100)},
		{"negative", "3863", value.Int(-100)},
		{"uint64 overflow", "1bffffffffffffffff", value.Float(18446744073709551615)},
		{"half float", "f93e00", value.Float(1.5)},
		{"text", "6449455446", value.String("IETF")},
		{"bytes", "4401020304", value.Bytes{1, 2, 3, 4}},
		{"null", "f6", value.Null{}},
		{"undefined", "f7", value.Null{}},
		{"true", "f5", value.Bool(true)},
		{"indefinite array", "9f018202039f0405ffff", value.Sequence{
			value.Int(1),
			value.Sequence{value.Int(2), value.Int(3)},
			value.Sequence{value.Int(4), value.Int(5)},
		}},
		{"datetime tag", "c074323031332d30332d32315432303a30343a30305a", value.String("2013-03-21T20:04:00Z")},
		{"epoch tag", "c11a514b67b0", value.String("2013-03-21T20:04:00Z")},
		{"unknown tag keeps content", "d82076687474703a2f2f7777772e6578616d706c652e636f6d", value.String("http://www.example.com")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New().Decode(mustHex(t, tt.hex), format.DecodeOptions{})
			require.NoError(t, err)
			assert.True(t, valuetest.Identical(tt.want, got), "got %s, want %s", value.Canonical(got), value.Canonical(tt.want))
		})
	}
}

func TestHandler_Decode_MapOrderAndKeys(t *testing.T) {
	// {"b": 1, 1: "a", "a": [true]} in that order.
	got, err := New().Decode(mustHex(t, "a3616201016161616181f5"), format.DecodeOptions{})
	require.NoError(t, err)

	want := value.NewMapping()
	want.SetString("b", value.Int(1))
	want.Set(value.Int(1), value.String("a"))
	want.SetString("a", value.Sequence{value.Bool(true)})
	assert.True(t, valuetest.Identical(want, got), "got %s", value.Canonical(got))

	// Indefinite-length map {_ "a": 1}.
	got, err = New().Decode(mustHex(t, "bf616101ff"), format.DecodeOptions{})
	require.NoError(t, err)
	m := value.AsMapping(got)
	require.NotNil(t, m)
	assert.Equal(t, 1, m.Len())
}

func TestHandler_Decode_Malformed(t *testing.T) {
	for _, in := range []string{"", "a2616101", "1864ff"} {
		_, err := New().Decode(mustHex(t, in), format.DecodeOptions{})
		var se *format.SyntaxError
		assert.True(t, errors.As(err, &se), "input %q: error = %v", in, err)
	}
}

func TestHandler_Encode(t *testing.T) {
	tree := value.NewMapping()
	tree.SetString("b", value.Int(1))
	tree.Set(value.Int(1), value.String("a"))
	tree.SetString("a", value.Sequence{value.Bool(true)})

	got, err := New().Encode(tree, format.EncodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, "a3616201016161616181f5", hex.EncodeToString(got))
}

func TestHandler_RoundTrip(t *testing.T) {
	long := make(value.Sequence, 300)
	for i := range long {
		long[i] = value.Int(int64(i) * 1000)
	}
	tree := value.NewMapping()
	tree.SetString("long", long)
	tree.SetString("float", value.Float(3.141592653589793))
	tree.SetString("small float", value.Float(0.5))
	tree.SetString("bytes", value.Bytes("raw"))
	tree.SetString("null", value.Null{})
	tree.SetString("neg", value.Int(-1<<40))

	h := New()
	encoded, err := h.Encode(tree, format.EncodeOptions{})
	require.NoError(t, err)
	decoded, err := h.Decode(encoded, format.DecodeOptions{})
	require.NoError(t, err)
	assert.True(t, valuetest.Identical(tree, decoded))

	again, err := h.Encode(decoded, format.EncodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, encoded, again)
}
