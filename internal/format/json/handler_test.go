package json

import (
	"errors"
	"math"
	"testing"

	"github.com/thirteen37/slate/internal/format"
	"github.com/thirteen37/slate/internal/value"
	"github.com/thirteen37/slate/internal/value/valuetest"
)

func TestHandler_Decode(t *testing.T) {
	h := New()

	tests := []struct {
		name     string
		input    string
		opts     format.DecodeOptions
		wantKeys []string
		wantErr  bool
	}{
		{
			name:     "simple json",
			input:    `{"key": "value"}`,
			wantKeys: []string{"key"},
		},
		{
			name:     "nested json",
			input:    `{"outer": {"inner": "value"}, "list": [1, 2]}`,
			wantKeys: []string{"outer", "list"},
		},
		{
			name:     "jsonc with strip comments",
			input:    "{\n  // comment\n  \"key\": \"value\", /* block */\n}",
			opts:     format.DecodeOptions{StripComments: true},
			wantKeys: []string{"key"},
		},
		{
			name:    "jsonc without strip comments",
			input:   "{\n  // comment\n  \"key\": \"value\"\n}",
			wantErr: true,
		},
		{
			name:    "invalid json",
			input:   `{invalid}`,
			wantErr: true,
		},
		{
			name:    "trailing data",
			input:   `{} {}`,
			wantErr: true,
		},
		{
			name:    "empty input",
			input:   ``,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := h.Decode([]byte(tt.input), tt.opts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Decode() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				var se *format.SyntaxError
				if !errors.As(err, &se) {
					t.Errorf("Decode() error type = %T, want *format.SyntaxError", err)
				}
				return
			}
			m := value.AsMapping(got)
			if m == nil {
				t.Fatalf("Decode() returned %T, want *value.Mapping", got)
			}
			keys := m.Keys()
			if len(keys) != len(tt.wantKeys) {
				t.Fatalf("Decode() got %d keys, want %d", len(keys), len(tt.wantKeys))
			}
			for i, k := range keys {
				if value.KeyString(k) != tt.wantKeys[i] {
					t.Errorf("Decode() key[%d] = %v, want %q", i, k, tt.wantKeys[i])
				}
			}
		})
	}
}

func TestHandler_Decode_Position(t *testing.T) {
	_, err := New().Decode([]byte("{\n  \"key\": value\n}"), format.DecodeOptions{})
	var se *format.SyntaxError
	if !errors.As(err, &se) {
		t.Fatalf("Decode() error = %v, want *format.SyntaxError", err)
	}
	if se.Line != 2 {
		t.Errorf("SyntaxError.Line = %d, want 2", se.Line)
	}
}

func TestHandler_Decode_Numbers(t *testing.T) {
	got, err := New().Decode([]byte(`[1, -9007199254740993, 1.5, 2.0, 1e3, 18446744073709551616]`), format.DecodeOptions{})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	want := value.Sequence{
		value.Int(1),
		value.Int(-9007199254740993),
		value.Float(1.5),
		value.Float(2),
		value.Float(1000),
		value.Float(18446744073709551616),
	}
	if !valuetest.Identical(got, want) {
		t.Errorf("Decode() = %s, want %s", value.Canonical(got), value.Canonical(want))
	}
}

func TestHandler_Encode_PreservesOrder(t *testing.T) {
	tree := value.NewMapping()
	tree.SetString("zebra", value.String("z"))
	tree.SetString("apple", value.String("a"))
	tree.SetString("mango", value.String("m"))

	got, err := New().Encode(tree, format.EncodeOptions{})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	want := `{"zebra":"z","apple":"a","mango":"m"}`
	if string(got) != want {
		t.Errorf("Encode() = %s, want %s", got, want)
	}
}

func TestHandler_Encode_Pretty(t *testing.T) {
	inner := value.NewMapping()
	inner.SetString("html", value.String("<b>&</b>"))
	tree := value.NewMapping()
	tree.SetString("ratio", value.Float(2))
	tree.SetString("inner", inner)
	tree.SetString("empty", value.Sequence{})

	got, err := NewPretty().Encode(tree, format.EncodeOptions{})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	want := `{
  "ratio": 2.0,
  "inner": {
    "html": "<b>&</b>"
  },
  "empty": []
}
`
	if string(got) != want {
		t.Errorf("Encode() =\n%s\nwant\n%s", got, want)
	}
}

func TestHandler_Encode_Coercions(t *testing.T) {
	h := New()

	keyed := value.NewMapping()
	keyed.Set(value.Int(1), value.Bytes{1, 2})
	keyed.Set(value.Sequence{value.Bool(true)}, value.Null{})
	got, err := h.Encode(keyed, format.EncodeOptions{})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if want := `{"1":[1,2],"[true]":null}`; string(got) != want {
		t.Errorf("Encode() = %s, want %s", got, want)
	}

	collide := value.NewMapping()
	collide.Set(value.Int(1), value.Null{})
	collide.SetString("1", value.Null{})
	if _, err := h.Encode(collide, format.EncodeOptions{}); err == nil {
		t.Error("Encode() should reject keys that collide after coercion")
	}

	_, err = h.Encode(value.Float(math.Inf(1)), format.EncodeOptions{})
	var use *format.UnsupportedShapeError
	if !errors.As(err, &use) || use.Kind != value.KindFloat {
		t.Errorf("Encode(inf) error = %v, want UnsupportedShapeError for float", err)
	}
}

func TestHandler_DecodeAndEncode_Idempotent(t *testing.T) {
	input := `{"name":"slate","tags":["a","b"],"nested":{"z":1,"a":[true,null,0.25]},"big":1.0}`
	h := New()

	tree, err := h.Decode([]byte(input), format.DecodeOptions{})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	output, err := h.Encode(tree, format.EncodeOptions{})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if string(output) != input {
		t.Errorf("round trip =\n%s\nwant\n%s", output, input)
	}
}
