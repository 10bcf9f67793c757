// Package yaml provides the YAML format handler for slate.
package yaml

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/thirteen37/slate/internal/format"
	"github.com/thirteen37/slate/internal/value"
	"gopkg.in/yaml.v3"
)

// Handler implements format.Codec for YAML files.
type Handler struct{}

// New creates a new YAML handler.
func New() *Handler {
	return &Handler{}
}

// lineRegex extracts the line number yaml.v3 puts in its error messages.
var lineRegex = regexp.MustCompile(`line (\d+)`)

// Decode reads a single YAML document and returns the value tree.
// Mapping order, anchors, merge keys and !!binary scalars are honored.
// An empty document decodes to null; a stream of several documents is an
// error.
func (h *Handler) Decode(data []byte, opts format.DecodeOptions) (value.Value, error) {
	if opts.StripComments {
		return nil, fmt.Errorf("strip-comments is not supported for YAML format")
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	var doc yaml.Node
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return value.Null{}, nil
		}
		return nil, syntaxError(err)
	}

	var extra yaml.Node
	switch err := dec.Decode(&extra); {
	case errors.Is(err, io.EOF):
	case err != nil:
		return nil, syntaxError(err)
	default:
		at := &extra
		if len(extra.Content) > 0 {
			at = extra.Content[0]
		}
		return nil, nodeError(at, "multiple documents in one input")
	}

	if doc.Kind == 0 {
		return value.Null{}, nil
	}
	c := &converter{}
	return c.node(&doc)
}

func syntaxError(err error) error {
	se := format.NewSyntaxError(format.YAML, err)
	if m := lineRegex.FindStringSubmatch(err.Error()); m != nil {
		se.Line, _ = strconv.Atoi(m[1])
	}
	return se
}

func nodeError(n *yaml.Node, msg string, args ...any) error {
	return &format.SyntaxError{
		Format: format.YAML,
		Line:   n.Line,
		Column: n.Column,
		Msg:    fmt.Sprintf(msg, args...),
	}
}

// Alias expansion limits, matching the ones yaml.v3 applies when decoding
// into Go values.
const (
	aliasRatioRangeLow  = 400000
	aliasRatioRangeHigh = 4000000
	aliasRatioRange     = float64(aliasRatioRangeHigh - aliasRatioRangeLow)
)

// allowedAliasRatio returns the share of produced nodes that may come from
// alias expansion once decodeCount nodes have been produced.
func allowedAliasRatio(decodeCount int) float64 {
	switch {
	case decodeCount <= aliasRatioRangeLow:
		return 0.99
	case decodeCount >= aliasRatioRangeHigh:
		return 0.10
	default:
		return 0.99 - 0.89*(float64(decodeCount-aliasRatioRangeLow)/aliasRatioRange)
	}
}

// converter turns yaml.Nodes into value.Values, counting the nodes it
// produces so that nested aliases cannot expand without bound.
type converter struct {
	decoded    int
	aliased    int
	aliasDepth int
}

func (c *converter) count(n *yaml.Node) error {
	c.decoded++
	if c.aliasDepth > 0 {
		c.aliased++
	}
	if c.aliased > 100 && c.decoded > 1000 && float64(c.aliased)/float64(c.decoded) > allowedAliasRatio(c.decoded) {
		return nodeError(n, "document contains excessive aliasing")
	}
	return nil
}

func (c *converter) alias(n *yaml.Node) (value.Value, error) {
	c.aliasDepth++
	defer func() { c.aliasDepth-- }()
	return c.node(n.Alias)
}

// node recursively converts a yaml.Node to a value.Value.
func (c *converter) node(n *yaml.Node) (value.Value, error) {
	if err := c.count(n); err != nil {
		return nil, err
	}

	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return value.Null{}, nil
		}
		return c.node(n.Content[0])
	case yaml.AliasNode:
		return c.alias(n)
	case yaml.SequenceNode:
		seq := make(value.Sequence, 0, len(n.Content))
		for _, item := range n.Content {
			v, err := c.node(item)
			if err != nil {
				return nil, err
			}
			seq = append(seq, v)
		}
		return seq, nil
	case yaml.MappingNode:
		return c.mapping(n)
	case yaml.ScalarNode:
		return convertScalar(n)
	default:
		return nil, nodeError(n, "unexpected node kind %d", n.Kind)
	}
}

func (c *converter) mapping(n *yaml.Node) (value.Value, error) {
	m := value.NewMapping()
	var merges []*yaml.Node

	for i := 0; i+1 < len(n.Content); i += 2 {
		keyNode, valNode := n.Content[i], n.Content[i+1]
		if keyNode.Kind == yaml.ScalarNode && keyNode.ShortTag() == "!!merge" {
			merges = append(merges, valNode)
			continue
		}
		key, err := c.node(keyNode)
		if err != nil {
			return nil, err
		}
		val, err := c.node(valNode)
		if err != nil {
			return nil, err
		}
		m.Set(key, val)
	}

	// Merged entries never override keys written explicitly.
	for _, src := range merges {
		viaAlias := src.Kind == yaml.AliasNode
		if viaAlias {
			src = src.Alias
		}
		sources := []*yaml.Node{src}
		if src.Kind == yaml.SequenceNode {
			sources = src.Content
		}
		for _, s := range sources {
			if viaAlias {
				c.aliasDepth++
			}
			merged, err := c.node(s)
			if viaAlias {
				c.aliasDepth--
			}
			if err != nil {
				return nil, err
			}
			mm := value.AsMapping(merged)
			if mm == nil {
				return nil, nodeError(s, "merge key value must be a mapping")
			}
			for _, e := range mm.Entries() {
				if !m.Has(e.Key) {
					m.Set(e.Key, e.Value)
				}
			}
		}
	}
	return m, nil
}

func convertScalar(n *yaml.Node) (value.Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return value.Null{}, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, nodeError(n, "invalid bool %q", n.Value)
		}
		return value.Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err == nil {
			return value.Int(i), nil
		}
		// Out of int64 range.
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, nodeError(n, "invalid int %q", n.Value)
		}
		return value.Float(f), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, nodeError(n, "invalid float %q", n.Value)
		}
		return value.Float(f), nil
	case "!!binary":
		b, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(n.Value), ""))
		if err != nil {
			return nil, nodeError(n, "invalid !!binary: %v", err)
		}
		return value.Bytes(b), nil
	default:
		// !!str, !!timestamp and application tags keep their text.
		return value.String(n.Value), nil
	}
}

// Encode writes the tree to YAML bytes.
func (h *Handler) Encode(tree value.Value, opts format.EncodeOptions) ([]byte, error) {
	node, err := toNode(tree)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(indentWidth(opts.Indent))
	if err := enc.Encode(node); err != nil {
		return nil, &format.UnsupportedShapeError{Format: format.YAML, Kind: value.KindOf(tree), Detail: err.Error()}
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to serialize YAML: %w", err)
	}
	return buf.Bytes(), nil
}

func indentWidth(indent string) int {
	if indent == "" || strings.Trim(indent, " ") != "" {
		return 2
	}
	return len(indent)
}

func scalar(tag, text string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: text}
}

// toNode converts a value.Value to a yaml.Node.
func toNode(v value.Value) (*yaml.Node, error) {
	switch val := v.(type) {
	case nil, value.Null:
		return scalar("!!null", "null"), nil
	case value.Bool:
		return scalar("!!bool", strconv.FormatBool(bool(val))), nil
	case value.Int:
		return scalar("!!int", strconv.FormatInt(int64(val), 10)), nil
	case value.Float:
		return scalar("!!float", formatFloat(float64(val))), nil
	case value.String:
		n := scalar("!!str", string(val))
		if strings.Contains(string(val), "\n") {
			n.Style = yaml.LiteralStyle
		}
		return n, nil
	case value.Bytes:
		return scalar("!!binary", base64.StdEncoding.EncodeToString(val)), nil
	case value.Sequence:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range val {
			child, err := toNode(item)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, child)
		}
		return n, nil
	case *value.Mapping:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, e := range val.Entries() {
			k, err := toNode(e.Key)
			if err != nil {
				return nil, err
			}
			child, err := toNode(e.Value)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, k, child)
		}
		return n, nil
	default:
		return nil, errors.New("unexpected value type")
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return ".nan"
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	}
	return value.FormatFloat(f)
}

// Ensure Handler implements format.Codec.
var _ format.Codec = (*Handler)(nil)
