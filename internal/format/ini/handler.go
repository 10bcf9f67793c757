// Package ini provides an INI format handler for slate.
package ini

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/thirteen37/slate/internal/format"
	"github.com/thirteen37/slate/internal/value"
	"gopkg.in/ini.v1"
)

// Handler implements format.Codec for INI files.
type Handler struct{}

// New creates a new INI handler.
func New() *Handler {
	return &Handler{}
}

// loadOptions lets a key repeat inside a section; repeats become sequences.
// Repeated values are kept so a sequence keeps every element.
var loadOptions = ini.LoadOptions{AllowShadows: true, AllowDuplicateShadowValues: true}

// Decode reads INI bytes and returns a *value.Mapping.
// Structure: {"global": "value", "section": {"key": "value"}}
// Keys before any section header become top-level entries. All values are
// strings; a key that repeats within a section becomes a sequence and a key
// that appears once is a scalar, so a one-element sequence reads back as its
// element.
func (h *Handler) Decode(data []byte, opts format.DecodeOptions) (value.Value, error) {
	if opts.StripComments {
		return nil, fmt.Errorf("strip-comments is not supported for INI format")
	}

	cfg, err := ini.LoadSources(loadOptions, data)
	if err != nil {
		return nil, syntaxError(data, err)
	}

	result := value.NewMapping()

	for _, section := range cfg.Sections() {
		if section.Name() == ini.DefaultSection {
			// ini.v1 keeps global keys in "DEFAULT"; they live at the top level
			decodeKeys(result, section)
			continue
		}

		sectionMap := value.NewMapping()
		decodeKeys(sectionMap, section)
		result.SetString(section.Name(), sectionMap)
	}

	return result, nil
}

func decodeKeys(dst *value.Mapping, section *ini.Section) {
	for _, key := range section.Keys() {
		vals := key.ValueWithShadows()
		if len(vals) == 1 {
			dst.SetString(key.Name(), value.String(vals[0]))
			continue
		}
		seq := make(value.Sequence, len(vals))
		for i, v := range vals {
			seq[i] = value.String(v)
		}
		dst.SetString(key.Name(), seq)
	}
}

// syntaxError locates the offending line when ini.v1 reports one.
func syntaxError(data []byte, err error) error {
	var delim ini.ErrDelimiterNotFound
	if errors.As(err, &delim) {
		text := string(data)
		if off := strings.Index(text, delim.Line); off >= 0 {
			se := format.NewSyntaxErrorAt(format.INI, data, off, err)
			se.Msg = fmt.Sprintf("key-value delimiter not found: %s", strings.TrimSpace(delim.Line))
			return se
		}
	}
	return format.NewSyntaxError(format.INI, err)
}

// Encode writes the tree to formatted INI bytes. Top-level scalars are
// global keys, top-level mappings are sections and sequences of scalars
// repeat their key once per element.
func (h *Handler) Encode(tree value.Value, opts format.EncodeOptions) ([]byte, error) {
	m := value.AsMapping(tree)
	if m == nil {
		return nil, format.Unsupported(format.INI, tree, "an INI document must be a mapping of sections")
	}

	names, err := format.StringKeys(format.INI, m)
	if err != nil {
		return nil, err
	}

	cfg := ini.Empty(loadOptions)

	// Global keys first: they must precede every section header.
	for i, e := range m.Entries() {
		if _, isSection := e.Value.(*value.Mapping); isSection {
			continue
		}
		if names[i] == ini.DefaultSection {
			return nil, format.Unsupported(format.INI, e.Value, "key %q is reserved for the global section", ini.DefaultSection)
		}
		if err := encodeKey(cfg.Section(ini.DefaultSection), names[i], e.Value); err != nil {
			return nil, err
		}
	}

	for i, e := range m.Entries() {
		sectionMap, isSection := e.Value.(*value.Mapping)
		if !isSection {
			continue
		}
		if names[i] == ini.DefaultSection {
			return nil, format.Unsupported(format.INI, e.Value, "section name %q is reserved", ini.DefaultSection)
		}

		section, err := cfg.NewSection(names[i])
		if err != nil {
			return nil, fmt.Errorf("failed to create section %q: %w", names[i], err)
		}

		keys, err := format.StringKeys(format.INI, sectionMap)
		if err != nil {
			return nil, err
		}
		for j, ke := range sectionMap.Entries() {
			if _, nested := ke.Value.(*value.Mapping); nested {
				return nil, format.Unsupported(format.INI, ke.Value, "section %q key %q: INI sections cannot nest", names[i], keys[j])
			}
			if err := encodeKey(section, keys[j], ke.Value); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	_, err = cfg.WriteTo(&buf)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize INI: %w", err)
	}

	return buf.Bytes(), nil
}

// encodeKey adds one key. A sequence adds the first element as the value
// and the rest as shadows; a one-element sequence is written as a plain key.
func encodeKey(section *ini.Section, name string, v value.Value) error {
	vals, err := keyValues(v)
	if err != nil {
		return err
	}
	if len(vals) == 0 {
		// An empty sequence has no INI form that reads back as a sequence.
		return format.Unsupported(format.INI, v, "key %q: empty sequence", name)
	}

	key, err := section.NewKey(name, vals[0])
	if err != nil {
		return fmt.Errorf("failed to create key %q: %w", name, err)
	}
	for _, shadow := range vals[1:] {
		if err := key.AddShadow(shadow); err != nil {
			return fmt.Errorf("failed to repeat key %q: %w", name, err)
		}
	}
	return nil
}

// keyValues converts a key's value to its INI text forms. INI values are
// strings only; bytes become base64 and null becomes an empty value.
func keyValues(v value.Value) ([]string, error) {
	if seq, ok := v.(value.Sequence); ok {
		out := make([]string, len(seq))
		for i, item := range seq {
			text, ok := value.ScalarText(item)
			if !ok {
				return nil, format.Unsupported(format.INI, item, "sequence elements must be scalars")
			}
			out[i] = text
		}
		return out, nil
	}

	text, ok := value.ScalarText(v)
	if !ok {
		return nil, format.Unsupported(format.INI, v, "unexpected value")
	}
	return []string{text}, nil
}

// Ensure Handler implements format.Codec.
var _ format.Codec = (*Handler)(nil)
