package bincode

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thirteen37/slate/internal/format"
	"github.com/thirteen37/slate/internal/value"
)

func TestHandler_Encode(t *testing.T) {
	tree := value.NewMapping()
	tree.SetString("a", value.Int(1))
	tree.SetString("b", value.Sequence{value.Bool(true), value.Null{}, value.Int(-1)})
	tree.SetString("c", value.Float(1.5))

	got, err := New().Encode(tree, format.EncodeOptions{})
	require.NoError(t, err)

	want := "0300000000000000" + // 3 entries
		"0100000000000000" + "61" + "0100000000000000" + // "a": 1
		"0100000000000000" + "62" + "0300000000000000" + "01" + "ffffffffffffffff" + // "b": [true, (), -1]
		"0100000000000000" + "63" + "000000000000f83f" // "c": 1.5
	assert.Equal(t, want, hex.EncodeToString(got))
}

func TestHandler_Encode_Scalars(t *testing.T) {
	tests := []struct {
		name string
		in   value.Value
		want string
	}{
		{"null", value.Null{}, ""},
		{"false", value.Bool(false), "00"},
		{"bytes", value.Bytes{0xde, 0xad}, "0200000000000000dead"},
		{"empty string", value.String(""), "0000000000000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New().Encode(tt.in, format.EncodeOptions{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, hex.EncodeToString(got))
		})
	}
}

func TestHandler_Decode_Unsupported(t *testing.T) {
	_, err := New().Decode([]byte{0}, format.DecodeOptions{})
	var ue *format.UnknownFormatError
	assert.True(t, errors.As(err, &ue), "error = %v", err)
}
