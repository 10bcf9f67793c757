// Package format defines the serialization formats slate understands, how
// they are resolved from flags and file names, and the Codec interface each
// format adapter implements.
package format

import "github.com/thirteen37/slate/internal/value"

// DecodeOptions configures decoding behavior.
type DecodeOptions struct {
	StripComments bool // Strip // and /* */ comments (JSON only)
}

// EncodeOptions configures encoding behavior.
type EncodeOptions struct {
	Indent string // Indentation string for pretty text formats (e.g., "  " or "\t")
}

// Codec defines the interface for format adapters.
type Codec interface {
	// Decode reads raw bytes and returns the value tree.
	Decode(data []byte, opts DecodeOptions) (value.Value, error)

	// Encode writes the tree to bytes.
	Encode(tree value.Value, opts EncodeOptions) ([]byte, error)
}
