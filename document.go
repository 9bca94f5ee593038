package docbind

import (
	"bytes"
	"fmt"
	"math"
	"reflect"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/reoring/docbind/schema"
)

// Document engine boundary. The document tree is gopkg.in/yaml.v3's Node:
// mappings keep key order, and head/line/foot comments survive a
// decode/encode round trip. Everything the core needs from the engine goes
// through the helpers in this file.

// Parse reads YAML text into a document tree. Empty input yields an empty
// document with an empty root mapping.
func Parse(data []byte) (*yaml.Node, error) {
	var n yaml.Node
	if err := yaml.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("docbind: parse: %w", err)
	}
	if n.Kind == 0 {
		return emptyDocument(), nil
	}
	return &n, nil
}

// Marshal serializes a document tree back to text with two-space indentation.
// Untouched nodes keep their comments and ordering.
func Marshal(doc *yaml.Node) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := yaml.NewEncoder(buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("docbind: marshal: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("docbind: marshal: %w", err)
	}
	return buf.Bytes(), nil
}

func emptyDocument() *yaml.Node {
	return &yaml.Node{
		Kind:    yaml.DocumentNode,
		Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}},
	}
}

// DeepCopyNode returns an independent copy of a node tree, comments and
// styling included.
func DeepCopyNode(n *yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	out := *n
	if len(n.Content) > 0 {
		out.Content = make([]*yaml.Node, len(n.Content))
		for i, c := range n.Content {
			out.Content[i] = DeepCopyNode(c)
		}
	}
	return &out
}

// IsMapping reports whether the node is table-like: a mapping, or a document
// whose root is a mapping.
func IsMapping(n *yaml.Node) bool {
	m := deref(n)
	if m == nil {
		return false
	}
	if m.Kind == yaml.DocumentNode {
		return len(m.Content) == 1 && deref(m.Content[0]).Kind == yaml.MappingNode
	}
	return m.Kind == yaml.MappingNode
}

func deref(n *yaml.Node) *yaml.Node {
	if n != nil && n.Kind == yaml.AliasNode && n.Alias != nil {
		return n.Alias
	}
	return n
}

// rootMapping unwraps a document node to its root mapping, or nil when the
// root is not a mapping.
func rootMapping(doc *yaml.Node) *yaml.Node {
	n := deref(doc)
	if n == nil {
		return nil
	}
	if n.Kind == yaml.DocumentNode {
		if len(n.Content) != 1 {
			return nil
		}
		n = deref(n.Content[0])
	}
	if n.Kind != yaml.MappingNode {
		return nil
	}
	return n
}

// ensureRootMapping is rootMapping for write paths: an empty document grows a
// root mapping in place.
func ensureRootMapping(doc *yaml.Node) *yaml.Node {
	n := deref(doc)
	if n != nil && n.Kind == yaml.DocumentNode && len(n.Content) == 0 {
		n.Content = []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}
	}
	return rootMapping(doc)
}

func mapHas(m *yaml.Node, key string) bool { return mapGet(m, key) != nil }

func mapGet(m *yaml.Node, key string) *yaml.Node {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

// mapSet replaces the value for an existing key, keeping the key node (and
// any comments attached to it) intact, or appends a new pair at the end.
func mapSet(m *yaml.Node, key string, val *yaml.Node) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content[i+1] = val
			return
		}
	}
	m.Content = append(m.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		val,
	)
}

func newMapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

// nodeToValue decodes a node subtree into a plain Go value (map[string]any,
// []any, scalars).
func nodeToValue(n *yaml.Node) (any, error) {
	n = deref(n)
	if n == nil {
		return nil, fmt.Errorf("docbind: nil node")
	}
	if n.Kind == yaml.DocumentNode {
		if len(n.Content) == 0 {
			return map[string]any{}, nil
		}
		n = n.Content[0]
	}
	var v any
	if err := n.Decode(&v); err != nil {
		return nil, fmt.Errorf("docbind: decode: %w", err)
	}
	return v, nil
}

// encodeValue builds a fresh node for a model value. Records render as
// mappings in declaration order with nil fields omitted; keyed mappings of
// records render with sorted keys for deterministic output.
func encodeValue(v any) (*yaml.Node, error) {
	switch vv := v.(type) {
	case *schema.Record:
		m := newMapping()
		for _, fv := range vv.Fields() {
			if fv.Value == nil {
				continue
			}
			cn, err := encodeValue(fv.Value)
			if err != nil {
				return nil, err
			}
			mapSet(m, fv.Name, cn)
		}
		return m, nil
	case []*schema.Record:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, rec := range vv {
			cn, err := encodeValue(rec)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, cn)
		}
		return seq, nil
	case map[string]*schema.Record:
		keys := make([]string, 0, len(vv))
		for k := range vv {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		m := newMapping()
		for _, k := range keys {
			cn, err := encodeValue(vv[k])
			if err != nil {
				return nil, err
			}
			mapSet(m, k, cn)
		}
		return m, nil
	case []any:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, e := range vv {
			cn, err := encodeValue(e)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, cn)
		}
		return seq, nil
	default:
		n := &yaml.Node{}
		if err := n.Encode(v); err != nil {
			return nil, fmt.Errorf("docbind: encode: %w", err)
		}
		return n, nil
	}
}

// normalize canonicalizes numeric and structural forms so values decoded from
// a document compare cleanly against normalized model values.
func normalize(v any) any {
	switch vv := v.(type) {
	case int:
		return int64(vv)
	case int8:
		return int64(vv)
	case int16:
		return int64(vv)
	case int32:
		return int64(vv)
	case uint:
		return int64(vv)
	case uint8:
		return int64(vv)
	case uint16:
		return int64(vv)
	case uint32:
		return int64(vv)
	case uint64:
		// values beyond the signed range stay unsigned rather than wrap
		if vv > math.MaxInt64 {
			return vv
		}
		return int64(vv)
	case float32:
		return float64(vv)
	case []any:
		out := make([]any, len(vv))
		for i, e := range vv {
			out[i] = normalize(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(vv))
		for k, e := range vv {
			out[k] = normalize(e)
		}
		return out
	default:
		return v
	}
}

// modelPlain flattens record-bearing model values to plain mappings so they
// can be compared against decoded document values.
func modelPlain(v any) any {
	switch vv := v.(type) {
	case *schema.Record:
		if vv == nil {
			return nil
		}
		return vv.AsMap()
	case []*schema.Record:
		out := make([]any, len(vv))
		for i, rec := range vv {
			out[i] = rec.AsMap()
		}
		return out
	case map[string]*schema.Record:
		out := make(map[string]any, len(vv))
		for k, rec := range vv {
			out[k] = rec.AsMap()
		}
		return out
	default:
		return v
	}
}

// leafEqual compares a model leaf value with a document node.
func leafEqual(modelVal any, n *yaml.Node) bool {
	dv, err := nodeToValue(n)
	if err != nil {
		return false
	}
	return reflect.DeepEqual(normalize(modelPlain(modelVal)), normalize(dv))
}

// GetAt safely retrieves a document field by its dotted location, returning
// def when any segment is absent or a non-mapping intermediate is hit. It
// never errors. Presence is decided by key membership, so a stored value that
// happens to equal def is still returned.
func GetAt(doc *yaml.Node, location string, def any) any {
	segs := ParsePath(location)
	n := rootMapping(doc)
	for i, seg := range segs {
		if n == nil || n.Kind != yaml.MappingNode {
			return def
		}
		v := mapGet(n, seg)
		if v == nil {
			return def
		}
		if i == len(segs)-1 {
			out, err := nodeToValue(v)
			if err != nil {
				return def
			}
			return out
		}
		n = deref(v)
	}
	return def
}

// SetAt sets a document field by its dotted location, creating empty mappings
// for missing intermediate segments. An intermediate that already holds a
// non-mapping value fails with NonContainerWriteError; creating a mapping
// inside a scalar is never permitted.
func SetAt(doc *yaml.Node, location string, v any) error {
	segs := ParsePath(location)
	cur := ensureRootMapping(doc)
	if cur == nil {
		return &NonContainerWriteError{Path: Path{}}
	}
	walked := make(Path, 0, len(segs))
	for _, seg := range segs[:len(segs)-1] {
		walked = append(walked, seg)
		next := mapGet(cur, seg)
		if next == nil {
			nm := newMapping()
			mapSet(cur, seg, nm)
			cur = nm
			continue
		}
		next = deref(next)
		if next.Kind != yaml.MappingNode {
			p := make(Path, len(walked))
			copy(p, walked)
			return &NonContainerWriteError{Path: p}
		}
		cur = next
	}
	vn, err := encodeValue(v)
	if err != nil {
		return err
	}
	mapSet(cur, segs[len(segs)-1], vn)
	return nil
}
