package postcard

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

	want := "03" + // 3 entries
		"0161" + "01" + // "a": 1
		"0162" + "03" + "01" + "01" + // "b": [true, (), -1]
		"0163" + "000000000000f83f" // "c": 1.5
	assert.Equal(t, want, hex.EncodeToString(got))
}

func TestHandler_Encode_Varints(t *testing.T) {
	tests := []struct {
		name string
		in   value.Value
		want string
	}{
		{"zero", value.Int(0), "00"},
		{"multi-byte unsigned", value.Int(300), "ac02"},
		{"zigzag negative", value.Int(-150), "ab02"},
		{"min int64", value.Int(-1 << 63), "ffffffffffffffffff01"},
		{"long string length", value.String(string(make([]byte, 200))), "c801" + hex.EncodeToString(make([]byte, 200))},
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
