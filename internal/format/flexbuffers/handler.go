// Package flexbuffers provides the FlexBuffers (schemaless FlatBuffers)
// format handler for slate.
//
// Map keys are strings and are stored sorted, so mapping order does not
// survive a round trip; the entries themselves do.
package flexbuffers

import (
	"fmt"

	"github.com/thirteen37/slate/internal/format"
	"github.com/thirteen37/slate/internal/value"
)

// Handler implements format.Codec for FlexBuffers.
type Handler struct{}

// New creates a new FlexBuffers handler.
func New() *Handler {
	return &Handler{}
}

// Decode reads a FlexBuffer from its root at the end of data.
func (h *Handler) Decode(data []byte, opts format.DecodeOptions) (value.Value, error) {
	if opts.StripComments {
		return nil, fmt.Errorf("strip-comments is not supported for FlexBuffers format")
	}

	r := &reader{buf: data}
	root, err := r.root()
	if err != nil {
		return nil, format.NewSyntaxError(format.Flexbuffers, err)
	}
	v, err := r.value(root, 0)
	if err != nil {
		return nil, format.NewSyntaxError(format.Flexbuffers, err)
	}
	return v, nil
}

// Encode writes the tree as a FlexBuffer using the narrowest widths that
// hold each vector's elements.
func (h *Handler) Encode(tree value.Value, opts format.EncodeOptions) ([]byte, error) {
	b := &builder{}
	root, err := b.value(tree)
	if err != nil {
		return nil, err
	}
	return b.finish(root), nil
}

// Ensure Handler implements format.Codec.
var _ format.Codec = (*Handler)(nil)
