package ron

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/thirteen37/slate/internal/format"
	"github.com/thirteen37/slate/internal/value"
)

// writer renders a tree as RON. With an indent set, sequences and mappings
// open one element per line with trailing commas.
type writer struct {
	sb     strings.Builder
	indent string
}

func encode(tree value.Value, indent string) ([]byte, error) {
	w := &writer{indent: indent}
	if err := w.value(tree, 0); err != nil {
		return nil, err
	}
	return []byte(w.sb.String()), nil
}

func (w *writer) value(v value.Value, depth int) error {
	switch val := v.(type) {
	case nil, value.Null:
		w.sb.WriteString("()")
	case value.Bool:
		w.sb.WriteString(strconv.FormatBool(bool(val)))
	case value.Int:
		w.sb.WriteString(strconv.FormatInt(int64(val), 10))
	case value.Float:
		w.sb.WriteString(value.FormatFloat(float64(val)))
	case value.String:
		writeString(&w.sb, string(val))
	case value.Bytes:
		writeBytes(&w.sb, val)
	case value.Sequence:
		return w.sequence(val, depth)
	case *value.Mapping:
		return w.mapping(val, depth)
	default:
		return format.Unsupported(format.RON, v, "unexpected value type %T", v)
	}
	return nil
}

func (w *writer) sequence(seq value.Sequence, depth int) error {
	w.sb.WriteByte('[')
	for i, item := range seq {
		w.separator(i, depth+1)
		if err := w.value(item, depth+1); err != nil {
			return err
		}
	}
	w.close(len(seq), depth)
	w.sb.WriteByte(']')
	return nil
}

func (w *writer) mapping(m *value.Mapping, depth int) error {
	w.sb.WriteByte('{')
	for i, e := range m.Entries() {
		w.separator(i, depth+1)
		if err := w.value(e.Key, depth+1); err != nil {
			return err
		}
		w.sb.WriteByte(':')
		if w.indent != "" {
			w.sb.WriteByte(' ')
		}
		if err := w.value(e.Value, depth+1); err != nil {
			return err
		}
	}
	w.close(m.Len(), depth)
	w.sb.WriteByte('}')
	return nil
}

// separator starts element i of a collection.
func (w *writer) separator(i, depth int) {
	if w.indent == "" {
		if i > 0 {
			w.sb.WriteByte(',')
		}
		return
	}
	if i > 0 {
		w.sb.WriteByte(',')
	}
	w.sb.WriteByte('\n')
	w.sb.WriteString(strings.Repeat(w.indent, depth))
}

// close ends a collection of n elements.
func (w *writer) close(n, depth int) {
	if w.indent == "" || n == 0 {
		return
	}
	w.sb.WriteString(",\n")
	w.sb.WriteString(strings.Repeat(w.indent, depth))
}

func writeString(sb *strings.Builder, s string) {
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		case 0:
			sb.WriteString(`\0`)
		default:
			if r == utf8.RuneError || !unicode.IsPrint(r) {
				sb.WriteString(`\u{`)
				sb.WriteString(strconv.FormatInt(int64(r), 16))
				sb.WriteByte('}')
				continue
			}
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
}

func writeBytes(sb *strings.Builder, b []byte) {
	sb.WriteString(`b"`)
	for _, c := range b {
		switch {
		case c == '"':
			sb.WriteString(`\"`)
		case c == '\\':
			sb.WriteString(`\\`)
		case c == '\n':
			sb.WriteString(`\n`)
		case c == '\t':
			sb.WriteString(`\t`)
		case c >= 0x20 && c < 0x7f:
			sb.WriteByte(c)
		default:
			sb.WriteString(`\x`)
			if c < 0x10 {
				sb.WriteByte('0')
			}
			sb.WriteString(strconv.FormatUint(uint64(c), 16))
		}
	}
	sb.WriteByte('"')
}
