// Package ron provides the RON (Rusty Object Notation) format handler for
// slate, in compact and pretty flavors.
package ron

import (
	"github.com/thirteen37/slate/internal/format"
	"github.com/thirteen37/slate/internal/value"
)

// DefaultIndent is the pretty indentation when none is configured.
const DefaultIndent = "    "

// Handler implements format.Codec for RON files.
type Handler struct {
	Pretty bool
}

// New creates a compact RON handler.
func New() *Handler {
	return &Handler{}
}

// NewPretty creates a RON handler that writes one element per line.
func NewPretty() *Handler {
	return &Handler{Pretty: true}
}

// Decode reads RON text and returns the value tree. Comments are always
// allowed, so StripComments is accepted and has nothing left to do.
func (h *Handler) Decode(data []byte, opts format.DecodeOptions) (value.Value, error) {
	return decode(data)
}

// Encode writes the tree as RON text.
func (h *Handler) Encode(tree value.Value, opts format.EncodeOptions) ([]byte, error) {
	if !h.Pretty {
		return encode(tree, "")
	}
	indent := opts.Indent
	if indent == "" {
		indent = DefaultIndent
	}
	return encode(tree, indent)
}

// Ensure Handler implements format.Codec.
var _ format.Codec = (*Handler)(nil)
