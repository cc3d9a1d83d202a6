package unifiedmodel

import (
	"fmt"
	"reflect"
	"strings"
)

// Model is a tree of nodes rooted at a node of the registry's root type
type Model struct {
	registry *TypeRegistry
	root     *Node
}

// NewModel creates an empty model. The root node carries the given name; its path is always empty.
func NewModel(registry *TypeRegistry, name string) *Model {
	m := &Model{registry: registry}
	m.root = newNode(registry.Root(), name, m)
	return m
}

// Registry returns the type registry of the model
func (m *Model) Registry() *TypeRegistry { return m.registry }

// Root returns the root node
func (m *Model) Root() *Node { return m.root }

// Path returns the root path
func (m *Model) Path() string { return "" }

// Model returns the model itself so it can be used as a PathNode
func (m *Model) Model() *Model { return m }

// Resolve looks up the node or collection at path. When allowPartial is set and the full path does not
// resolve, the deepest resolvable ancestor is returned instead of nil.
func (m *Model) Resolve(path string, allowPartial bool) PathNode {
	var current PathNode = m.root
	for _, segment := range SplitPath(path) {
		var next PathNode
		switch c := current.(type) {
		case *Node:
			p, ok := c.typ.Property(segment)
			if !ok {
				break
			}
			switch p.Kind {
			case PropertyNode:
				if child := c.nested[p.Name]; child != nil {
					next = child
				}
			case PropertyCollection:
				next = c.collections[p.Name]
			}
		case *Collection:
			if item := c.Get(segment); item != nil {
				next = item
			}
		}
		if next == nil {
			if allowPartial {
				return current
			}
			return nil
		}
		current = next
	}
	return current
}

// ResolveNode resolves a path that must lead to a node
func (m *Model) ResolveNode(path string) (*Node, bool) {
	n, ok := m.Resolve(path, false).(*Node)
	return n, ok
}

// Clone returns a deep, independent copy of the model. References are remapped onto the copy.
func (m *Model) Clone() *Model {
	clone := &Model{registry: m.registry}
	mapping := make(map[*Node]*Node)
	clone.root = cloneNode(m.root, clone, mapping)

	for original, copied := range mapping {
		for name, ref := range original.refs {
			if ref == nil {
				continue
			}
			if target, ok := mapping[ref]; ok {
				copied.refs[name] = target
			}
		}
	}
	return clone
}

func cloneNode(n *Node, model *Model, mapping map[*Node]*Node) *Node {
	copied := newNode(n.typ, n.name, model)
	mapping[n] = copied

	for name, value := range n.values {
		copied.values[name] = cloneValue(value)
	}
	for name, child := range n.nested {
		if child == nil {
			continue
		}
		nested := cloneNode(child, model, mapping)
		nested.parent = copied
		copied.nested[name] = nested
	}
	for name, collection := range n.collections {
		target := copied.collections[name]
		for _, item := range collection.items {
			target.insert(cloneNode(item, model, mapping), -1)
		}
	}
	return copied
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case []any:
		out := make([]any, len(v))
		for i := range v {
			out[i] = cloneValue(v[i])
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = cloneValue(item)
		}
		return out
	default:
		return value
	}
}

// Walk visits every node depth-first in property declaration order. Returning false from fn skips
// the children of the visited node.
func (m *Model) Walk(fn func(n *Node) bool) {
	walk(m.root, fn)
}

func walk(n *Node, fn func(n *Node) bool) {
	if !fn(n) {
		return
	}
	for _, child := range n.Children() {
		walk(child, fn)
	}
}

// Dump renders the model as indented text for diagnostics
func (m *Model) Dump() string {
	var b strings.Builder
	dumpNode(&b, m.root, 0)
	return b.String()
}

func dumpNode(b *strings.Builder, n *Node, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(b, "%s%s %q", indent, n.typ.Name, n.name)
	if n.HasIndex() {
		fmt.Fprintf(b, " #%d", n.Index())
	}
	b.WriteString("\n")

	for _, p := range n.typ.Properties {
		switch p.Kind {
		case PropertyValue:
			if value, ok := n.values[p.Name]; ok && !isEmptyValue(value) {
				fmt.Fprintf(b, "%s  %s: %v\n", indent, p.Name, value)
			}
		case PropertyReference:
			if ref := n.Ref(p.Name); ref != nil {
				fmt.Fprintf(b, "%s  %s: -> %s\n", indent, p.Name, ref.Path())
			}
		case PropertyNode:
			if child := n.nested[p.Name]; child != nil {
				dumpNode(b, child, depth+1)
			}
		case PropertyCollection:
			collection := n.collections[p.Name]
			if collection.Len() == 0 {
				continue
			}
			fmt.Fprintf(b, "%s  %s:\n", indent, p.Name)
			for _, item := range collection.items {
				dumpNode(b, item, depth+2)
			}
		}
	}
}

// EqualValues compares two property values deeply
func EqualValues(a, b any) bool {
	if isEmptyValue(a) && isEmptyValue(b) {
		return true
	}
	return reflect.DeepEqual(a, b)
}

func isEmptyValue(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	default:
		return false
	}
}
