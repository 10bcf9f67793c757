package ron

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/thirteen37/slate/internal/format"
	"github.com/thirteen37/slate/internal/value"
)

// parser is a recursive-descent reader over RON text.
//
// Struct and enum names carry no data in the tree: named and anonymous
// structs become mappings with string keys, tuples become sequences, a
// newtype wrapper Name(x) is x and a bare identifier (unit variant) is its
// name as a string.
type parser struct {
	src string
	pos int
}

// parseError is an error at a byte offset of the source.
type parseError struct {
	offset int
	msg    string
}

func (e *parseError) Error() string { return e.msg }

func (p *parser) errorf(msg string, args ...any) error {
	return &parseError{offset: p.pos, msg: fmt.Sprintf(msg, args...)}
}

func decode(data []byte) (value.Value, error) {
	if !utf8.Valid(data) {
		return nil, format.NewSyntaxError(format.RON, errors.New("input is not valid UTF-8"))
	}
	p := &parser{src: string(data)}
	v, err := p.document()
	if err != nil {
		var pe *parseError
		if errors.As(err, &pe) {
			se := format.NewSyntaxErrorAt(format.RON, data, pe.offset, err)
			se.Msg = pe.msg
			return nil, se
		}
		return nil, format.NewSyntaxError(format.RON, err)
	}
	return v, nil
}

func (p *parser) document() (value.Value, error) {
	if err := p.skipSpace(); err != nil {
		return nil, err
	}
	for strings.HasPrefix(p.src[p.pos:], "#!") {
		if err := p.skipAttribute(); err != nil {
			return nil, err
		}
		if err := p.skipSpace(); err != nil {
			return nil, err
		}
	}
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	if err := p.skipSpace(); err != nil {
		return nil, err
	}
	if p.pos < len(p.src) {
		return nil, p.errorf("unexpected trailing characters")
	}
	return v, nil
}

// skipAttribute skips an inner attribute such as #![enable(implicit_some)].
func (p *parser) skipAttribute() error {
	p.pos += 2
	if p.peek() != '[' {
		return p.errorf("expected '[' after '#!'")
	}
	depth := 0
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				p.pos++
				return nil
			}
		}
		p.pos++
	}
	return p.errorf("unterminated attribute")
}

// skipSpace skips whitespace, line comments and nested block comments.
func (p *parser) skipSpace() error {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			p.pos++
		case strings.HasPrefix(p.src[p.pos:], "//"):
			end := strings.IndexByte(p.src[p.pos:], '\n')
			if end < 0 {
				p.pos = len(p.src)
			} else {
				p.pos += end + 1
			}
		case strings.HasPrefix(p.src[p.pos:], "/*"):
			start := p.pos
			depth := 0
			for {
				if p.pos >= len(p.src) {
					p.pos = start
					return p.errorf("unterminated block comment")
				}
				switch {
				case strings.HasPrefix(p.src[p.pos:], "/*"):
					depth++
					p.pos += 2
				case strings.HasPrefix(p.src[p.pos:], "*/"):
					depth--
					p.pos += 2
				default:
					p.pos++
				}
				if depth == 0 {
					break
				}
			}
		default:
			return nil
		}
	}
	return nil
}

func (p *parser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) expect(c byte) error {
	if err := p.skipSpace(); err != nil {
		return err
	}
	if p.peek() != c {
		if p.pos >= len(p.src) {
			return p.errorf("expected %q, found end of input", c)
		}
		return p.errorf("expected %q, found %q", c, p.src[p.pos])
	}
	p.pos++
	return nil
}

func (p *parser) value() (value.Value, error) {
	if err := p.skipSpace(); err != nil {
		return nil, err
	}
	if p.pos >= len(p.src) {
		return nil, p.errorf("unexpected end of input")
	}

	c := p.src[p.pos]
	switch {
	case c == '"':
		s, err := p.quoted('"', false)
		if err != nil {
			return nil, err
		}
		return value.String(s), nil
	case c == '\'':
		return p.char()
	case c == '[':
		return p.sequence()
	case c == '{':
		return p.mapping()
	case c == '(':
		return p.parenthesized()
	case c == 'b' && strings.HasPrefix(p.src[p.pos:], `b"`):
		p.pos++
		s, err := p.quoted('"', true)
		if err != nil {
			return nil, err
		}
		return value.Bytes(s), nil
	case c == 'b' && isRawStart(p.src[p.pos+1:]):
		p.pos++
		s, err := p.raw()
		if err != nil {
			return nil, err
		}
		return value.Bytes(s), nil
	case c == 'r' && isRawStart(p.src[p.pos:]):
		s, err := p.raw()
		if err != nil {
			return nil, err
		}
		return value.String(s), nil
	case c == '-' || c == '+' || c == '.' || isDigit(c):
		return p.number()
	case isIdentStart(c):
		return p.identValue()
	}
	return nil, p.errorf("unexpected character %q", c)
}

func (p *parser) sequence() (value.Value, error) {
	p.pos++ // [
	seq := value.Sequence{}
	for {
		if err := p.skipSpace(); err != nil {
			return nil, err
		}
		if p.peek() == ']' {
			p.pos++
			return seq, nil
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		seq = append(seq, v)
		if done, err := p.listSeparator(']'); err != nil || done {
			return seq, err
		}
	}
}

func (p *parser) mapping() (value.Value, error) {
	p.pos++ // {
	m := value.NewMapping()
	for {
		if err := p.skipSpace(); err != nil {
			return nil, err
		}
		if p.peek() == '}' {
			p.pos++
			return m, nil
		}
		k, err := p.value()
		if err != nil {
			return nil, err
		}
		if err := p.expect(':'); err != nil {
			return nil, err
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		m.Set(k, v)
		if done, err := p.listSeparator('}'); err != nil || done {
			return m, err
		}
	}
}

// listSeparator consumes a ',' or the closing delimiter. It reports true once
// the closing delimiter has been consumed.
func (p *parser) listSeparator(closing byte) (bool, error) {
	if err := p.skipSpace(); err != nil {
		return false, err
	}
	switch p.peek() {
	case ',':
		p.pos++
		return false, nil
	case closing:
		p.pos++
		return true, nil
	case 0:
		return false, p.errorf("expected ',' or %q, found end of input", closing)
	}
	return false, p.errorf("expected ',' or %q, found %q", closing, p.src[p.pos])
}

// parenthesized reads unit "()", a tuple "(a, b)" or an anonymous struct
// "(field: value)".
func (p *parser) parenthesized() (value.Value, error) {
	p.pos++ // (
	if err := p.skipSpace(); err != nil {
		return nil, err
	}
	if p.peek() == ')' {
		p.pos++
		return value.Null{}, nil
	}
	if p.atField() {
		return p.structFields()
	}
	seq, err := p.tupleItems()
	if err != nil {
		return nil, err
	}
	return seq, nil
}

// atField reports whether the input continues with "ident :".
func (p *parser) atField() bool {
	save := p.pos
	defer func() { p.pos = save }()
	if _, ok := p.ident(); !ok {
		return false
	}
	if err := p.skipSpace(); err != nil {
		return false
	}
	return p.peek() == ':' && !strings.HasPrefix(p.src[p.pos:], "::")
}

// structFields reads "name: value, ..." up to and including ')'.
func (p *parser) structFields() (value.Value, error) {
	m := value.NewMapping()
	for {
		if err := p.skipSpace(); err != nil {
			return nil, err
		}
		if p.peek() == ')' {
			p.pos++
			return m, nil
		}
		name, ok := p.ident()
		if !ok {
			return nil, p.errorf("expected field name")
		}
		if err := p.expect(':'); err != nil {
			return nil, err
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		m.SetString(name, v)
		if done, err := p.listSeparator(')'); err != nil || done {
			return m, err
		}
	}
}

// tupleItems reads "value, ..." up to and including ')'.
func (p *parser) tupleItems() (value.Sequence, error) {
	seq := value.Sequence{}
	for {
		if err := p.skipSpace(); err != nil {
			return nil, err
		}
		if p.peek() == ')' {
			p.pos++
			return seq, nil
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		seq = append(seq, v)
		if done, err := p.listSeparator(')'); err != nil || done {
			return seq, err
		}
	}
}

// identValue reads keywords, named structs, enum variants and the float
// specials inf and NaN.
func (p *parser) identValue() (value.Value, error) {
	start := p.pos
	name, _ := p.ident()

	switch name {
	case "true":
		return value.Bool(true), nil
	case "false":
		return value.Bool(false), nil
	case "None":
		return value.Null{}, nil
	case "inf":
		return value.Float(math.Inf(1)), nil
	case "NaN":
		return value.Float(math.NaN()), nil
	case "Some":
		if err := p.expect('('); err != nil {
			return nil, err
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		if err := p.skipSpace(); err != nil {
			return nil, err
		}
		if p.peek() == ',' {
			p.pos++
		}
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		return v, nil
	}

	if err := p.skipSpace(); err != nil {
		return nil, err
	}
	if p.peek() != '(' {
		if p.peek() == '{' || p.peek() == '[' {
			p.pos = start
			return nil, p.errorf("unexpected identifier %q", name)
		}
		// Unit struct or unit enum variant.
		return value.String(name), nil
	}

	p.pos++ // (
	if err := p.skipSpace(); err != nil {
		return nil, err
	}
	if p.peek() == ')' {
		p.pos++
		return value.String(name), nil
	}
	if p.atField() {
		return p.structFields()
	}
	seq, err := p.tupleItems()
	if err != nil {
		return nil, err
	}
	if len(seq) == 1 {
		// Newtype struct or variant.
		return seq[0], nil
	}
	return seq, nil
}

// ident reads an identifier, including raw identifiers r#name.
func (p *parser) ident() (string, bool) {
	start := p.pos
	if strings.HasPrefix(p.src[p.pos:], "r#") && p.pos+2 < len(p.src) && isIdentStart(p.src[p.pos+2]) {
		p.pos += 2
	}
	if p.pos >= len(p.src) || !isIdentStart(p.src[p.pos]) {
		p.pos = start
		return "", false
	}
	nameStart := p.pos
	for p.pos < len(p.src) && isIdentChar(p.src[p.pos]) {
		p.pos++
	}
	return p.src[nameStart:p.pos], true
}

func (p *parser) number() (value.Value, error) {
	start := p.pos
	neg := false
	if c := p.peek(); c == '-' || c == '+' {
		neg = c == '-'
		p.pos++
	}
	rest := p.src[p.pos:]
	switch {
	case strings.HasPrefix(rest, "inf"):
		p.pos += 3
		if neg {
			return value.Float(math.Inf(-1)), nil
		}
		return value.Float(math.Inf(1)), nil
	case strings.HasPrefix(rest, "NaN"):
		p.pos += 3
		return value.Float(math.NaN()), nil
	}

	base := 10
	if len(rest) > 1 && rest[0] == '0' {
		switch rest[1] {
		case 'x':
			base = 16
		case 'o':
			base = 8
		case 'b':
			base = 2
		}
	}
	if base != 10 {
		p.pos += 2
		digitsStart := p.pos
		for p.pos < len(p.src) && (isHexDigit(p.src[p.pos]) || p.src[p.pos] == '_') {
			p.pos++
		}
		digits := strings.ReplaceAll(p.src[digitsStart:p.pos], "_", "")
		if digits == "" {
			p.pos = start
			return nil, p.errorf("invalid number")
		}
		return p.integer(start, neg, digits, base)
	}

	isFloat := false
scan:
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case isDigit(c) || c == '_':
		case c == '.':
			isFloat = true
		case c == 'e' || c == 'E':
			isFloat = true
			if p.pos+1 < len(p.src) && (p.src[p.pos+1] == '+' || p.src[p.pos+1] == '-') {
				p.pos++
			}
		default:
			break scan
		}
		p.pos++
	}
	text := strings.ReplaceAll(p.src[start:p.pos], "_", "")
	if strings.HasPrefix(text, "+") {
		text = text[1:]
	}
	if text == "" || text == "-" {
		p.pos = start
		return nil, p.errorf("invalid number")
	}
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			p.pos = start
			return nil, p.errorf("invalid number %q", p.src[start:p.pos])
		}
		return value.Float(f), nil
	}
	digits := strings.TrimPrefix(text, "-")
	return p.integer(start, neg, digits, 10)
}

// integer converts digits in base. Values outside int64 become Float.
func (p *parser) integer(start int, neg bool, digits string, base int) (value.Value, error) {
	var b big.Int
	if _, ok := b.SetString(digits, base); !ok {
		p.pos = start
		return nil, p.errorf("invalid number %q", p.src[start:p.pos])
	}
	if neg {
		b.Neg(&b)
	}
	return value.FromBigInt(&b), nil
}

func (p *parser) char() (value.Value, error) {
	s, err := p.quoted('\'', false)
	if err != nil {
		return nil, err
	}
	if utf8.RuneCountInString(s) != 1 {
		return nil, p.errorf("character literal must hold exactly one character")
	}
	return value.String(s), nil
}

// quoted reads a string delimited by quote, decoding escapes. Only byte
// strings may hold \x escapes above 0x7f.
func (p *parser) quoted(quote byte, bytes bool) (string, error) {
	start := p.pos
	p.pos++ // opening quote
	var sb strings.Builder
	for {
		if p.pos >= len(p.src) {
			p.pos = start
			return "", p.errorf("unterminated string")
		}
		c := p.src[p.pos]
		switch c {
		case quote:
			p.pos++
			return sb.String(), nil
		case '\\':
			if err := p.escape(&sb, bytes); err != nil {
				return "", err
			}
		default:
			sb.WriteByte(c)
			p.pos++
		}
	}
}

func (p *parser) escape(sb *strings.Builder, bytes bool) error {
	p.pos++ // backslash
	if p.pos >= len(p.src) {
		return p.errorf("unterminated escape")
	}
	c := p.src[p.pos]
	p.pos++
	switch c {
	case 'n':
		sb.WriteByte('\n')
	case 'r':
		sb.WriteByte('\r')
	case 't':
		sb.WriteByte('\t')
	case '0':
		sb.WriteByte(0)
	case '\\', '"', '\'':
		sb.WriteByte(c)
	case '\n':
		// Line continuation: skip leading whitespace on the next line.
		for p.pos < len(p.src) && unicode.IsSpace(rune(p.src[p.pos])) {
			p.pos++
		}
	case 'x':
		if p.pos+2 > len(p.src) {
			return p.errorf("truncated \\x escape")
		}
		n, err := strconv.ParseUint(p.src[p.pos:p.pos+2], 16, 8)
		if err != nil {
			return p.errorf("invalid \\x escape")
		}
		if n > 0x7f && !bytes {
			return p.errorf("\\x escape above 0x7f outside a byte string")
		}
		sb.WriteByte(byte(n))
		p.pos += 2
	case 'u':
		if p.peek() != '{' {
			return p.errorf("expected '{' in \\u escape")
		}
		end := strings.IndexByte(p.src[p.pos:], '}')
		if end < 0 {
			return p.errorf("unterminated \\u escape")
		}
		hex := strings.ReplaceAll(p.src[p.pos+1:p.pos+end], "_", "")
		n, err := strconv.ParseUint(hex, 16, 32)
		if err != nil || !utf8.ValidRune(rune(n)) {
			return p.errorf("invalid \\u escape")
		}
		sb.WriteRune(rune(n))
		p.pos += end + 1
	default:
		p.pos--
		return p.errorf("unknown escape \\%c", c)
	}
	return nil
}

// raw reads r"..." or r#"..."# with any number of hashes.
func (p *parser) raw() (string, error) {
	start := p.pos
	p.pos++ // r
	hashes := 0
	for p.peek() == '#' {
		hashes++
		p.pos++
	}
	if p.peek() != '"' {
		p.pos = start
		return "", p.errorf("invalid raw string")
	}
	p.pos++
	closing := "\"" + strings.Repeat("#", hashes)
	end := strings.Index(p.src[p.pos:], closing)
	if end < 0 {
		p.pos = start
		return "", p.errorf("unterminated raw string")
	}
	s := p.src[p.pos : p.pos+end]
	p.pos += end + len(closing)
	return s, nil
}

// isRawStart reports whether s begins a raw string: r" or r#...#".
func isRawStart(s string) bool {
	if !strings.HasPrefix(s, "r") {
		return false
	}
	rest := strings.TrimLeft(s[1:], "#")
	return strings.HasPrefix(rest, `"`)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool { return isIdentStart(c) || isDigit(c) }
