package fsio

import (
	"errors"
	"os"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Diff returns a line diff from before to after with "--- name" and
// "+++ name" headers. Unchanged lines are prefixed with a space, removed
// lines with "-" and added lines with "+". Equal inputs give "".
func Diff(name, before, after string) string {
	if before == after {
		return ""
	}

	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var sb strings.Builder
	sb.WriteString("--- " + name + "\n")
	sb.WriteString("+++ " + name + "\n")
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		}
		for _, line := range splitLines(d.Text) {
			sb.WriteString(prefix)
			sb.WriteString(line)
		}
	}
	return sb.String()
}

// splitLines splits text after each newline. A final line without one gets
// a newline and a marker.
func splitLines(text string) []string {
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	} else {
		lines[len(lines)-1] += "\n\\ No newline at end of file\n"
	}
	return lines
}

// DiffFile compares the current contents of path with content. A missing
// file diffs as empty.
func (f *FS) DiffFile(path string, content []byte) (string, error) {
	before, err := f.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", err
	}
	return Diff(path, string(before), string(content)), nil
}
