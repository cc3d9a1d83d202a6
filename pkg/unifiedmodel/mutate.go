package unifiedmodel

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a path does not resolve
	ErrNotFound = errors.New("node not found")
	// ErrNameConflict is returned when a sibling with the same name already exists
	ErrNameConflict = errors.New("name conflict")
	// ErrTypeMismatch is returned when a node or value does not fit the target property
	ErrTypeMismatch = errors.New("type mismatch")
	// ErrInvalidIndex is returned when an ordinal index lies outside its collection
	ErrInvalidIndex = errors.New("invalid index")
)

// NodeRef is a path reference to a node, used wherever a node must be named before it is resolved
type NodeRef struct {
	Path string `json:"path" yaml:"path"`
}

func (r NodeRef) String() string { return "@" + r.Path }

// Add creates a child node in a collection property. A negative index appends.
func (n *Node) Add(property, name string, index int) (*Node, error) {
	c := n.Items(property)
	if c == nil {
		return nil, fmt.Errorf("%w: %s has no collection %s", ErrTypeMismatch, n.typ.Name, property)
	}
	return c.add(name, index)
}

func (c *Collection) add(name string, index int) (*Node, error) {
	if existing := c.Get(name); existing != nil {
		return nil, fmt.Errorf("%w: %s already contains %s", ErrNameConflict, c.Path(), existing.name)
	}
	if index > len(c.items) {
		return nil, fmt.Errorf("%w: %d in %s of length %d", ErrInvalidIndex, index, c.Path(), len(c.items))
	}
	itemType, _ := c.owner.model.registry.Type(c.desc.ItemType)
	child := newNode(itemType, name, c.owner.model)
	if !c.desc.Ordered {
		index = -1
	}
	c.insert(child, index)
	return child, nil
}

// SetNested creates the nested child node of a node property, replacing nothing
func (n *Node) SetNested(property string) (*Node, error) {
	p, ok := n.typ.Property(property)
	if !ok || p.Kind != PropertyNode {
		return nil, fmt.Errorf("%w: %s has no nested property %s", ErrTypeMismatch, n.typ.Name, property)
	}
	if n.nested[p.Name] != nil {
		return nil, fmt.Errorf("%w: %s already has %s", ErrNameConflict, n.Path(), p.Name)
	}
	itemType, _ := n.model.registry.Type(p.ItemType)
	child := newNode(itemType, p.Name, n.model)
	child.parent = n
	n.nested[p.Name] = child
	return child, nil
}

// Set assigns a scalar property, or a reference property when value is a *Node or NodeRef
func (n *Node) Set(property string, value any) error {
	p, ok := n.typ.Property(property)
	if !ok {
		return fmt.Errorf("%w: %s has no property %s", ErrTypeMismatch, n.typ.Name, property)
	}
	switch p.Kind {
	case PropertyValue:
		if isEmptyValue(value) {
			delete(n.values, p.Name)
			return nil
		}
		n.values[p.Name] = value
		return nil
	case PropertyReference:
		return n.setRef(p, value)
	default:
		return fmt.Errorf("%w: %s.%s is a %s property", ErrTypeMismatch, n.typ.Name, p.Name, p.Kind)
	}
}

func (n *Node) setRef(p *PropertyDescriptor, value any) error {
	switch v := value.(type) {
	case nil:
		delete(n.refs, p.Name)
	case *Node:
		if v == nil {
			delete(n.refs, p.Name)
			return nil
		}
		if v.model != n.model {
			return fmt.Errorf("%w: %s.%s cannot reference a node of another model", ErrTypeMismatch, n.Path(), p.Name)
		}
		n.refs[p.Name] = v
	case NodeRef:
		target, ok := n.model.ResolveNode(v.Path)
		if !ok {
			return fmt.Errorf("%w: reference %s from %s.%s", ErrNotFound, v.Path, n.Path(), p.Name)
		}
		n.refs[p.Name] = target
	default:
		return fmt.Errorf("%w: %s.%s expects a node reference, got %T", ErrTypeMismatch, n.Path(), p.Name, value)
	}
	return nil
}

// CreateNode creates a node of the given type under parentPath. When parentPath names a collection the
// node becomes an item called name, inserted at index for ordered collections; when it names a node, the
// node becomes the nested child held by the property called name.
func (m *Model) CreateNode(parentPath, typeName, name string, index int) (*Node, error) {
	parent := m.Resolve(parentPath, false)
	switch p := parent.(type) {
	case *Collection:
		if p.desc.ItemType != typeName {
			return nil, fmt.Errorf("%w: %s holds %s, not %s", ErrTypeMismatch, p.Path(), p.desc.ItemType, typeName)
		}
		return p.add(name, index)
	case *Node:
		desc, ok := p.typ.Property(name)
		if !ok || desc.Kind != PropertyNode || desc.ItemType != typeName {
			return nil, fmt.Errorf("%w: %s cannot hold a nested %s called %s", ErrTypeMismatch, p.Path(), typeName, name)
		}
		return p.SetNested(desc.Name)
	default:
		return nil, fmt.Errorf("%w: parent %s", ErrNotFound, parentPath)
	}
}

// RemoveNode detaches the node at path together with its subtree
func (m *Model) RemoveNode(path string) error {
	n, ok := m.ResolveNode(path)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if n == m.root {
		return fmt.Errorf("%w: the root node cannot be removed", ErrTypeMismatch)
	}

	if n.owner != nil {
		n.owner.detach(n)
	} else if n.parent != nil {
		for name, child := range n.parent.nested {
			if child == n {
				delete(n.parent.nested, name)
			}
		}
		n.parent = nil
	}
	walk(n, func(d *Node) bool {
		d.model = nil
		return true
	})
	return nil
}

// MoveNode renames the node at path and moves it into the collection at newParentPath. A negative
// index keeps the current position when the collection does not change, and appends otherwise.
func (m *Model) MoveNode(path, newParentPath, newName string, index int) (*Node, error) {
	n, ok := m.ResolveNode(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if n.owner == nil {
		return nil, fmt.Errorf("%w: %s is not a collection item and cannot be moved", ErrTypeMismatch, path)
	}
	target, ok := m.Resolve(newParentPath, false).(*Collection)
	if !ok {
		return nil, fmt.Errorf("%w: collection %s", ErrNotFound, newParentPath)
	}
	if target.desc.ItemType != n.typ.Name {
		return nil, fmt.Errorf("%w: %s holds %s, not %s", ErrTypeMismatch, target.Path(), target.desc.ItemType, n.typ.Name)
	}
	for ancestor := target.owner; ancestor != nil; ancestor = ancestor.parent {
		if ancestor == n {
			return nil, fmt.Errorf("%w: %s cannot move below itself", ErrTypeMismatch, path)
		}
	}
	if existing := target.Get(newName); existing != nil && existing != n {
		return nil, fmt.Errorf("%w: %s already contains %s", ErrNameConflict, target.Path(), existing.name)
	}

	source := n.owner
	position := source.IndexOf(n)
	source.detach(n)
	if index < 0 && source == target {
		index = position
	}
	if index > target.Len() {
		source.insert(n, position)
		return nil, fmt.Errorf("%w: %d in %s of length %d", ErrInvalidIndex, index, target.Path(), target.Len())
	}
	n.name = newName
	if !target.desc.Ordered {
		index = -1
	}
	target.insert(n, index)
	return n, nil
}

// SetProperty assigns a scalar or reference property of the node at path. Reference properties accept
// a NodeRef, which is resolved against this model.
func (m *Model) SetProperty(path, property string, value any) error {
	n, ok := m.ResolveNode(path)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return n.Set(property, cloneValue(value))
}
