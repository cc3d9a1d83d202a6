package unifiedmodel

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const nameKey = "name"

type pendingRef struct {
	node *Node
	desc *PropertyDescriptor
	path string
}

// Decode builds a model from a YAML document. Every mapping names its node with a "name" key and
// lists its properties by property name: scalars for values, a node path for references, a mapping
// for nested nodes and a list of mappings for collections.
func Decode(registry *TypeRegistry, data []byte) (*Model, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("data cannot be empty")
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse model document: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("model document must be a mapping")
	}

	name, _ := doc[nameKey].(string)
	model := NewModel(registry, name)

	var refs []pendingRef
	if err := decodeNode(model.root, doc, &refs); err != nil {
		return nil, err
	}

	for _, ref := range refs {
		target, ok := model.ResolveNode(ref.path)
		if !ok {
			return nil, fmt.Errorf("%w: %s.%s refers to %q", ErrNotFound, ref.node.Path(), ref.desc.Name, ref.path)
		}
		ref.node.refs[ref.desc.Name] = target
	}
	return model, nil
}

func decodeNode(n *Node, doc map[string]any, refs *[]pendingRef) error {
	for _, key := range getSortedKeys(doc) {
		if key == nameKey {
			continue
		}
		raw := doc[key]
		p, ok := n.typ.Property(key)
		if !ok {
			return fmt.Errorf("%s %q: unknown property %q", n.typ.Name, n.Path(), key)
		}

		switch p.Kind {
		case PropertyValue:
			if !isEmptyValue(raw) {
				n.values[p.Name] = raw
			}

		case PropertyReference:
			if raw == nil {
				continue
			}
			path, ok := raw.(string)
			if !ok {
				return fmt.Errorf("%s.%s: reference must be a path, got %T", n.Path(), p.Name, raw)
			}
			*refs = append(*refs, pendingRef{node: n, desc: p, path: path})

		case PropertyNode:
			if raw == nil {
				continue
			}
			child, ok := raw.(map[string]any)
			if !ok {
				return fmt.Errorf("%s.%s: nested node must be a mapping, got %T", n.Path(), p.Name, raw)
			}
			nested, err := n.SetNested(p.Name)
			if err != nil {
				return err
			}
			if err := decodeNode(nested, child, refs); err != nil {
				return err
			}

		case PropertyCollection:
			if raw == nil {
				continue
			}
			list, ok := raw.([]any)
			if !ok {
				return fmt.Errorf("%s.%s: collection must be a list, got %T", n.Path(), p.Name, raw)
			}
			for i, entry := range list {
				item, ok := entry.(map[string]any)
				if !ok {
					return fmt.Errorf("%s.%s[%d]: item must be a mapping, got %T", n.Path(), p.Name, i, entry)
				}
				name, _ := item[nameKey].(string)
				if strings.TrimSpace(name) == "" {
					return fmt.Errorf("%s.%s[%d]: item has no name", n.Path(), p.Name, i)
				}
				child, err := n.collections[p.Name].add(name, -1)
				if err != nil {
					return err
				}
				if err := decodeNode(child, item, refs); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Encode renders a model as a YAML document that Decode accepts. Properties appear in declaration order.
func Encode(model *Model) ([]byte, error) {
	if model == nil {
		return nil, fmt.Errorf("model cannot be nil")
	}
	doc, err := encodeNode(model.root)
	if err != nil {
		return nil, err
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode model: %w", err)
	}
	return out, nil
}

func encodeNode(n *Node) (*yaml.Node, error) {
	doc := &yaml.Node{Kind: yaml.MappingNode}
	add := func(key string, value *yaml.Node) {
		doc.Content = append(doc.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: key}, value)
	}
	scalar := func(value any) (*yaml.Node, error) {
		var v yaml.Node
		if err := v.Encode(value); err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", n.Path(), err)
		}
		return &v, nil
	}

	if n.owner != nil || n.parent == nil {
		v, err := scalar(n.name)
		if err != nil {
			return nil, err
		}
		add(nameKey, v)
	}

	for _, p := range n.typ.Properties {
		switch p.Kind {
		case PropertyValue:
			value, ok := n.values[p.Name]
			if !ok || isEmptyValue(value) {
				continue
			}
			v, err := scalar(value)
			if err != nil {
				return nil, err
			}
			add(p.Name, v)

		case PropertyReference:
			ref := n.Ref(p.Name)
			if ref == nil {
				continue
			}
			v, err := scalar(ref.Path())
			if err != nil {
				return nil, err
			}
			add(p.Name, v)

		case PropertyNode:
			child := n.nested[p.Name]
			if child == nil {
				continue
			}
			v, err := encodeNode(child)
			if err != nil {
				return nil, err
			}
			add(p.Name, v)

		case PropertyCollection:
			collection := n.collections[p.Name]
			if collection.Len() == 0 {
				continue
			}
			list := &yaml.Node{Kind: yaml.SequenceNode}
			for _, item := range collection.items {
				v, err := encodeNode(item)
				if err != nil {
					return nil, err
				}
				list.Content = append(list.Content, v)
			}
			add(p.Name, list)
		}
	}
	return doc, nil
}

// NodeInfo is the JSON shape of a node
type NodeInfo struct {
	Type        string                 `json:"type"`
	Name        string                 `json:"name"`
	Path        string                 `json:"path"`
	Index       *int                   `json:"index,omitempty"`
	Values      map[string]any         `json:"values,omitempty"`
	References  map[string]string      `json:"references,omitempty"`
	Nested      map[string]*NodeInfo   `json:"nested,omitempty"`
	Collections map[string][]*NodeInfo `json:"collections,omitempty"`
}

// SerializeModel converts a model to JSON bytes for storage or transmission.
func SerializeModel(model *Model) ([]byte, error) {
	if model == nil {
		return nil, fmt.Errorf("model cannot be nil")
	}

	return json.MarshalIndent(describeNode(model.root), "", "  ")
}

func describeNode(n *Node) *NodeInfo {
	info := &NodeInfo{
		Type: n.typ.Name,
		Name: n.name,
		Path: n.Path(),
	}
	if n.HasIndex() {
		index := n.Index()
		info.Index = &index
	}
	for _, p := range n.typ.Properties {
		switch p.Kind {
		case PropertyValue:
			if value, ok := n.values[p.Name]; ok && !isEmptyValue(value) {
				if info.Values == nil {
					info.Values = make(map[string]any)
				}
				info.Values[p.Name] = value
			}
		case PropertyReference:
			if ref := n.Ref(p.Name); ref != nil {
				if info.References == nil {
					info.References = make(map[string]string)
				}
				info.References[p.Name] = ref.Path()
			}
		case PropertyNode:
			if child := n.nested[p.Name]; child != nil {
				if info.Nested == nil {
					info.Nested = make(map[string]*NodeInfo)
				}
				info.Nested[p.Name] = describeNode(child)
			}
		case PropertyCollection:
			collection := n.collections[p.Name]
			if collection.Len() == 0 {
				continue
			}
			if info.Collections == nil {
				info.Collections = make(map[string][]*NodeInfo)
			}
			for _, item := range collection.items {
				info.Collections[p.Name] = append(info.Collections[p.Name], describeNode(item))
			}
		}
	}
	return info
}
