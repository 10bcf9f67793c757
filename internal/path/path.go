// Package path provides path selectors for navigating value trees.
package path

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/thirteen37/slate/internal/value"
)

// Wildcard matches every key of a mapping or every element of a sequence.
const Wildcard = "*"

// Path represents a selector for navigating a value tree.
type Path interface {
	// Segments returns the path as a slice of string keys.
	Segments() []string

	// String returns a canonical string representation.
	String() string
}

// ArrayPath is a path specified as an array of keys.
// Example: ["servers", 0, "host"]
type ArrayPath struct {
	segments []string
}

// NewArrayPath creates a new ArrayPath from string segments.
func NewArrayPath(segments []string) *ArrayPath {
	return &ArrayPath{segments: segments}
}

// ParseArrayPath parses a JSON array string into an ArrayPath. Elements
// may be strings or non-negative integers; integers index sequences.
func ParseArrayPath(s string) (*ArrayPath, error) {
	var raw []any
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, fmt.Errorf("invalid path array: %w", err)
	}

	segments := make([]string, len(raw))
	for i, r := range raw {
		switch seg := r.(type) {
		case string:
			segments[i] = seg
		case float64:
			if seg < 0 || seg != float64(int(seg)) {
				return nil, fmt.Errorf("invalid path array: element %d is not a valid index", i)
			}
			segments[i] = strconv.Itoa(int(seg))
		default:
			return nil, fmt.Errorf("invalid path array: element %d must be a string or an index", i)
		}
	}
	return &ArrayPath{segments: segments}, nil
}

// Segments returns the path segments.
func (p *ArrayPath) Segments() []string {
	return p.segments
}

// String returns the path as a JSON array string.
func (p *ArrayPath) String() string {
	data, _ := json.Marshal(p.segments)
	return string(data)
}

// NotFoundError reports the first segment of a path that does not resolve.
type NotFoundError struct {
	Path    string
	Segment string
	Reason  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("path %s: segment %q %s", e.Path, e.Segment, e.Reason)
}

// Lookup returns the subtree of v at p. Mapping keys are compared through
// value.KeyString so non-string keys can be addressed by their text;
// sequence elements are addressed by decimal index. A wildcard segment
// collects the remaining lookup over every child into a sequence, skipping
// children where it does not resolve.
func Lookup(v value.Value, p Path) (value.Value, error) {
	return lookup(v, p.Segments(), p)
}

func lookup(v value.Value, segments []string, p Path) (value.Value, error) {
	if len(segments) == 0 {
		return v, nil
	}
	seg, rest := segments[0], segments[1:]

	if seg == Wildcard {
		var children []value.Value
		switch val := v.(type) {
		case *value.Mapping:
			for _, e := range val.Entries() {
				children = append(children, e.Value)
			}
		case value.Sequence:
			children = val
		default:
			return nil, &NotFoundError{Path: p.String(), Segment: seg, Reason: "cannot expand a " + value.KindOf(v).String() + " value"}
		}
		matches := value.Sequence{}
		for _, child := range children {
			if found, err := lookup(child, rest, p); err == nil {
				matches = append(matches, found)
			}
		}
		return matches, nil
	}

	switch val := v.(type) {
	case *value.Mapping:
		for _, e := range val.Entries() {
			if value.KeyString(e.Key) == seg {
				return lookup(e.Value, rest, p)
			}
		}
		return nil, &NotFoundError{Path: p.String(), Segment: seg, Reason: "not found"}
	case value.Sequence:
		i, err := strconv.Atoi(seg)
		if err != nil || i < 0 {
			return nil, &NotFoundError{Path: p.String(), Segment: seg, Reason: "is not a sequence index"}
		}
		if i >= len(val) {
			return nil, &NotFoundError{Path: p.String(), Segment: seg, Reason: fmt.Sprintf("is out of range (length %d)", len(val))}
		}
		return lookup(val[i], rest, p)
	}
	return nil, &NotFoundError{Path: p.String(), Segment: seg, Reason: "cannot index a " + value.KindOf(v).String() + " value"}
}
