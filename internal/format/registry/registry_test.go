package registry

import (
	"errors"
	"testing"

	"github.com/thirteen37/slate/internal/format"
	"github.com/thirteen37/slate/internal/value"
)

func TestLookup(t *testing.T) {
	for _, id := range format.All() {
		t.Run(id.String(), func(t *testing.T) {
			codec, err := Lookup(id)
			if id.IsSpecial() {
				var ue *format.UnknownFormatError
				if !errors.As(err, &ue) {
					t.Fatalf("Lookup(%s) error = %v, want UnknownFormatError", id, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Lookup(%s) error = %v", id, err)
			}
			if codec == nil {
				t.Fatalf("Lookup(%s) returned nil codec", id)
			}
		})
	}
}

func TestLookup_Unknown(t *testing.T) {
	if _, err := Lookup(format.Unknown); err == nil {
		t.Error("Lookup(Unknown) should fail")
	}
}

// commonTree uses only shapes every decodable format can hold.
func commonTree() value.Value {
	server := value.NewMapping()
	server.SetString("host", value.String("localhost"))
	server.SetString("tags", value.Sequence{value.String("a"), value.String("b")})

	tree := value.NewMapping()
	tree.SetString("server", server)
	tree.SetString("other", value.NewMapping())
	return tree
}

func TestRoundTrip_AllDecodable(t *testing.T) {
	tree := commonTree()
	for _, id := range format.All() {
		if !id.CanDecode() {
			continue
		}
		t.Run(id.String(), func(t *testing.T) {
			codec, err := Lookup(id)
			if err != nil {
				t.Fatal(err)
			}
			data, err := codec.Encode(tree, format.EncodeOptions{})
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			got, err := codec.Decode(data, format.DecodeOptions{})
			if err != nil {
				t.Fatalf("Decode() error = %v\n%s", err, data)
			}
			if !value.Equal(tree, got) {
				t.Errorf("round trip mismatch: got %s, want %s", value.Canonical(got), value.Canonical(tree))
			}

			again, err := codec.Encode(got, format.EncodeOptions{})
			if err != nil {
				t.Fatalf("second Encode() error = %v", err)
			}
			if string(again) != string(data) {
				t.Errorf("encode is not idempotent:\n%s\n---\n%s", data, again)
			}
		})
	}
}

// typedTree holds numbers and booleans. INI keeps only strings, so it is
// left out of conversions over this tree.
func typedTree() value.Value {
	limits := value.NewMapping()
	limits.SetString("max", value.Int(1<<40))
	limits.SetString("min", value.Int(-7))
	limits.SetString("ratio", value.Float(0.5))
	limits.SetString("scale", value.Float(-1.25))

	tree := value.NewMapping()
	tree.SetString("enabled", value.Bool(true))
	tree.SetString("debug", value.Bool(false))
	tree.SetString("port", value.Int(8080))
	tree.SetString("limits", limits)
	tree.SetString("mixed", value.Sequence{value.Int(0), value.Float(2.5), value.Bool(true), value.String("x")})
	return tree
}

func TestConvert_Pairs(t *testing.T) {
	convertPairs(t, commonTree(), func(format.ID) bool { return true })
}

func TestConvert_Pairs_TypedScalars(t *testing.T) {
	convertPairs(t, typedTree(), func(id format.ID) bool { return id != format.INI })
}

// convertPairs writes tree in every included format, converts each result
// into every other included format and checks the data survives.
func convertPairs(t *testing.T, tree value.Value, include func(format.ID) bool) {
	t.Helper()
	var ids []format.ID
	for _, id := range format.All() {
		if id.CanDecode() && include(id) {
			ids = append(ids, id)
		}
	}

	for _, from := range ids {
		src, _ := Lookup(from)
		data, err := src.Encode(tree, format.EncodeOptions{})
		if err != nil {
			t.Fatalf("%s: Encode() error = %v", from, err)
		}
		decoded, err := src.Decode(data, format.DecodeOptions{})
		if err != nil {
			t.Fatalf("%s: Decode() error = %v", from, err)
		}
		for _, to := range ids {
			dst, _ := Lookup(to)
			out, err := dst.Encode(decoded, format.EncodeOptions{})
			if err != nil {
				t.Errorf("%s -> %s: Encode() error = %v", from, to, err)
				continue
			}
			back, err := dst.Decode(out, format.DecodeOptions{})
			if err != nil {
				t.Errorf("%s -> %s: Decode() error = %v", from, to, err)
				continue
			}
			if !value.Equal(tree, back) {
				t.Errorf("%s -> %s: got %s", from, to, value.Canonical(back))
			}
		}
	}
}
