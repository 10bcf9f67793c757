package valuetest

import (
	"testing"

	"github.com/thirteen37/slate/internal/value"
)

func TestIdentical(t *testing.T) {
	ab := value.NewMapping()
	ab.SetString("a", value.Int(1))
	ab.SetString("b", value.Sequence{value.Int(2)})
	ba := value.NewMapping()
	ba.SetString("b", value.Sequence{value.Int(2)})
	ba.SetString("a", value.Int(1))

	if !value.Equal(ab, ba) {
		t.Fatal("Equal() should ignore mapping order")
	}
	if Identical(ab, ba) {
		t.Error("Identical() should respect mapping order")
	}
	if !Identical(ab, ab.Clone()) {
		t.Error("Identical() should hold for a clone")
	}
	if Identical(value.Sequence{value.Int(1)}, value.Sequence{value.Float(1)}) {
		t.Error("Identical() should keep int and float apart")
	}
}
