package format

import (
	"fmt"
	"strings"

	"github.com/thirteen37/slate/internal/value"
)

// UnknownFormatError reports a format flag or file extension that could not
// be resolved.
type UnknownFormatError struct {
	Input  string // flag value or path that failed to resolve
	Reason string
}

func (e *UnknownFormatError) Error() string {
	if e.Input == "" {
		return fmt.Sprintf("unknown format: %s", e.Reason)
	}
	return fmt.Sprintf("unknown format %q: %s", e.Input, e.Reason)
}

// SyntaxError reports a decode failure. Line and Column are 1-based and zero
// when the underlying parser does not report a position.
type SyntaxError struct {
	Format ID
	Line   int
	Column int
	Msg    string
	Err    error
}

func (e *SyntaxError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "invalid %s", e.Format.Name())
	if e.Line > 0 {
		fmt.Fprintf(&sb, " at line %d", e.Line)
		if e.Column > 0 {
			fmt.Fprintf(&sb, ", column %d", e.Column)
		}
	}
	sb.WriteString(": ")
	switch {
	case e.Msg != "":
		sb.WriteString(e.Msg)
	case e.Err != nil:
		sb.WriteString(e.Err.Error())
	default:
		sb.WriteString("malformed input")
	}
	return sb.String()
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// NewSyntaxError wraps a parser error without position information.
func NewSyntaxError(id ID, err error) *SyntaxError {
	return &SyntaxError{Format: id, Err: err}
}

// NewSyntaxErrorAt wraps a parser error that occurred at a byte offset of data.
func NewSyntaxErrorAt(id ID, data []byte, offset int, err error) *SyntaxError {
	line, col, _ := ErrorContext(string(data), offset)
	return &SyntaxError{Format: id, Line: line, Column: col, Err: err}
}

// UnsupportedShapeError reports a value the target format cannot represent.
type UnsupportedShapeError struct {
	Format ID
	Kind   value.Kind
	Detail string
}

func (e *UnsupportedShapeError) Error() string {
	msg := fmt.Sprintf("%s cannot represent %s", e.Format.Name(), e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Unsupported returns an UnsupportedShapeError for v.
func Unsupported(id ID, v value.Value, format string, args ...any) *UnsupportedShapeError {
	return &UnsupportedShapeError{Format: id, Kind: value.KindOf(v), Detail: fmt.Sprintf(format, args...)}
}

// ErrorContext converts a byte offset into a 1-based line and column and
// returns the text of that line. Offsets outside content report line 1,
// column 1 and an empty snippet.
func ErrorContext(content string, offset int) (line, col int, snippet string) {
	if offset < 0 || offset >= len(content) {
		if offset == len(content) && offset > 0 {
			// End of input: point just past the last character.
			before := content[:offset]
			line = strings.Count(before, "\n") + 1
			col = offset - strings.LastIndexByte(before, '\n')
			return line, col, lastLine(before)
		}
		return 1, 1, ""
	}

	before := content[:offset]
	line = strings.Count(before, "\n") + 1
	lineStart := strings.LastIndexByte(before, '\n') + 1
	col = offset - lineStart + 1

	lineEnd := strings.IndexByte(content[offset:], '\n')
	if lineEnd < 0 {
		snippet = content[lineStart:]
	} else {
		snippet = content[lineStart : offset+lineEnd]
	}
	return line, col, snippet
}

func lastLine(s string) string {
	return s[strings.LastIndexByte(s, '\n')+1:]
}
