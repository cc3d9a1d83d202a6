// Package unifiedmodel provides a hierarchical, named-node representation of a database schema.
// A model is a tree of typed nodes. Each node type declares its properties up front: scalar values,
// references to other nodes of the same model, a single nested child node, or a named collection
// of child nodes. Property metadata (immutability, volatility, dependency roots) drives how schema
// upgrades are planned against the model.

package unifiedmodel

import (
	"fmt"
	"sort"
)

// PropertyKind describes what a property of a node holds
type PropertyKind int

const (
	// PropertyValue holds a scalar or a list of scalars
	PropertyValue PropertyKind = iota
	// PropertyReference holds a reference to another node of the same model
	PropertyReference
	// PropertyNode holds a single nested child node named after the property
	PropertyNode
	// PropertyCollection holds a named collection of child nodes
	PropertyCollection
)

func (k PropertyKind) String() string {
	switch k {
	case PropertyValue:
		return "value"
	case PropertyReference:
		return "reference"
	case PropertyNode:
		return "node"
	case PropertyCollection:
		return "collection"
	default:
		return fmt.Sprintf("PropertyKind(%d)", int(k))
	}
}

// PropertyDescriptor describes one property of a node type
type PropertyDescriptor struct {
	// Name is the property name, also used as the path segment for nested nodes and collections
	Name string `json:"name" yaml:"name"`

	// Kind is what the property holds
	Kind PropertyKind `json:"kind" yaml:"kind"`

	// ItemType is the node type of nested nodes and collection items
	ItemType string `json:"item_type,omitempty" yaml:"item_type,omitempty"`

	// Ordered marks collections whose item order is significant
	Ordered bool `json:"ordered,omitempty" yaml:"ordered,omitempty"`

	// IsImmutable marks properties whose nodes cannot be altered in place and are recreated instead
	IsImmutable bool `json:"is_immutable,omitempty" yaml:"is_immutable,omitempty"`

	// IsVolatile marks bookkeeping properties that may change even on otherwise frozen nodes
	IsVolatile bool `json:"is_volatile,omitempty" yaml:"is_volatile,omitempty"`

	// DependencyRootType names the ancestor node type that upgrade actions for this property attach to
	DependencyRootType string `json:"dependency_root_type,omitempty" yaml:"dependency_root_type,omitempty"`
}

// IsStructural reports whether the property holds child nodes
func (p *PropertyDescriptor) IsStructural() bool {
	return p.Kind == PropertyNode || p.Kind == PropertyCollection
}

// NodeType describes a kind of node and its properties in declaration order
type NodeType struct {
	Name       string               `json:"name" yaml:"name"`
	Properties []PropertyDescriptor `json:"properties" yaml:"properties"`
}

// Property looks up a property descriptor by name, ignoring case
func (t *NodeType) Property(name string) (*PropertyDescriptor, bool) {
	for i := range t.Properties {
		if EqualNames(t.Properties[i].Name, name) {
			return &t.Properties[i], true
		}
	}
	return nil, false
}

// TypeRegistry holds the node types of a model family
type TypeRegistry struct {
	root  string
	types map[string]*NodeType
}

// NewTypeRegistry creates a registry with the given root type and validates that every nested and
// collection property refers to a registered item type.
func NewTypeRegistry(root string, types ...*NodeType) (*TypeRegistry, error) {
	registry := &TypeRegistry{
		root:  root,
		types: make(map[string]*NodeType, len(types)),
	}

	for _, t := range types {
		if t == nil || t.Name == "" {
			return nil, fmt.Errorf("node type must have a name")
		}
		if _, exists := registry.types[t.Name]; exists {
			return nil, fmt.Errorf("duplicate node type: %s", t.Name)
		}
		registry.types[t.Name] = t
	}

	if _, ok := registry.types[root]; !ok {
		return nil, fmt.Errorf("root type %s is not registered", root)
	}

	for _, t := range types {
		seen := make(map[string]bool, len(t.Properties))
		for _, p := range t.Properties {
			key := FoldName(p.Name)
			if seen[key] {
				return nil, fmt.Errorf("type %s declares property %s twice", t.Name, p.Name)
			}
			seen[key] = true

			if !p.IsStructural() {
				continue
			}
			if _, ok := registry.types[p.ItemType]; !ok {
				return nil, fmt.Errorf("type %s property %s refers to unknown item type %q", t.Name, p.Name, p.ItemType)
			}
		}
	}

	return registry, nil
}

// Root returns the root node type
func (r *TypeRegistry) Root() *NodeType {
	return r.types[r.root]
}

// Type looks up a node type by name
func (r *TypeRegistry) Type(name string) (*NodeType, bool) {
	t, ok := r.types[name]
	return t, ok
}

// TypeNames returns the sorted names of all registered types
func (r *TypeRegistry) TypeNames() []string {
	return getSortedKeys(r.types)
}

func getSortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
