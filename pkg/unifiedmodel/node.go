package unifiedmodel

import "fmt"

// PathNode is anything addressable by a path within a model: a node or a collection
type PathNode interface {
	Path() string
	Model() *Model
}

// Node is a typed, named element of a model
type Node struct {
	typ    *NodeType
	name   string
	parent *Node
	owner  *Collection
	model  *Model

	values      map[string]any
	refs        map[string]*Node
	nested      map[string]*Node
	collections map[string]*Collection
}

func newNode(typ *NodeType, name string, model *Model) *Node {
	n := &Node{
		typ:         typ,
		name:        name,
		model:       model,
		values:      make(map[string]any),
		refs:        make(map[string]*Node),
		nested:      make(map[string]*Node),
		collections: make(map[string]*Collection),
	}
	for i := range typ.Properties {
		p := &typ.Properties[i]
		if p.Kind == PropertyCollection {
			n.collections[p.Name] = &Collection{owner: n, desc: p, byName: make(map[string]*Node)}
		}
	}
	return n
}

// Type returns the node type
func (n *Node) Type() *NodeType { return n.typ }

// Name returns the node name. Nested nodes are named after the property holding them.
func (n *Node) Name() string { return n.name }

// Parent returns the node owning this node, or nil for the root
func (n *Node) Parent() *Node { return n.parent }

// Collection returns the collection holding this node, or nil when the node is the root or nested
func (n *Node) Collection() *Collection { return n.owner }

// Model returns the model the node is attached to, or nil once the node has been removed
func (n *Node) Model() *Model { return n.model }

// Index returns the position of the node within an ordered collection, or -1
func (n *Node) Index() int {
	if n.owner == nil || !n.owner.desc.Ordered {
		return -1
	}
	return n.owner.IndexOf(n)
}

// HasIndex reports whether the node lives in an ordered collection
func (n *Node) HasIndex() bool {
	return n.owner != nil && n.owner.desc.Ordered
}

// OwnerProperty returns the descriptor of the parent property holding this node
func (n *Node) OwnerProperty() *PropertyDescriptor {
	if n.owner != nil {
		return n.owner.desc
	}
	if n.parent != nil {
		p, _ := n.parent.typ.Property(n.name)
		return p
	}
	return nil
}

// Path returns the slash-delimited path of the node, derived from the parent chain
func (n *Node) Path() string {
	if n.parent == nil {
		return ""
	}
	if n.owner != nil {
		return JoinPath(n.owner.Path(), n.name)
	}
	return JoinPath(n.parent.Path(), n.name)
}

// Value returns a scalar property value
func (n *Node) Value(property string) any {
	p, ok := n.typ.Property(property)
	if !ok {
		return nil
	}
	return n.values[p.Name]
}

// Ref returns the node referenced by a reference property. References to removed nodes read as nil.
func (n *Node) Ref(property string) *Node {
	p, ok := n.typ.Property(property)
	if !ok {
		return nil
	}
	ref := n.refs[p.Name]
	if ref == nil || ref.model == nil {
		return nil
	}
	return ref
}

// Nested returns the nested child node held by a node property
func (n *Node) Nested(property string) *Node {
	p, ok := n.typ.Property(property)
	if !ok {
		return nil
	}
	return n.nested[p.Name]
}

// Items returns the collection held by a collection property
func (n *Node) Items(property string) *Collection {
	p, ok := n.typ.Property(property)
	if !ok {
		return nil
	}
	return n.collections[p.Name]
}

// Children returns the direct child nodes in property declaration order
func (n *Node) Children() []*Node {
	var children []*Node
	for _, p := range n.typ.Properties {
		switch p.Kind {
		case PropertyNode:
			if child := n.nested[p.Name]; child != nil {
				children = append(children, child)
			}
		case PropertyCollection:
			children = append(children, n.collections[p.Name].items...)
		}
	}
	return children
}

func (n *Node) String() string {
	return fmt.Sprintf("%s(%s)", n.typ.Name, n.Path())
}

// Collection is a named set of child nodes owned by a node property
type Collection struct {
	owner  *Node
	desc   *PropertyDescriptor
	items  []*Node
	byName map[string]*Node
}

// Owner returns the node holding the collection
func (c *Collection) Owner() *Node { return c.owner }

// Name returns the property name of the collection
func (c *Collection) Name() string { return c.desc.Name }

// Property returns the descriptor of the collection property
func (c *Collection) Property() *PropertyDescriptor { return c.desc }

// Ordered reports whether item order is significant
func (c *Collection) Ordered() bool { return c.desc.Ordered }

// Model returns the model of the owning node
func (c *Collection) Model() *Model { return c.owner.model }

// Path returns the collection path: the owner path followed by the property name
func (c *Collection) Path() string {
	return JoinPath(c.owner.Path(), c.desc.Name)
}

// Len returns the number of items
func (c *Collection) Len() int { return len(c.items) }

// Items returns the items in collection order
func (c *Collection) Items() []*Node {
	items := make([]*Node, len(c.items))
	copy(items, c.items)
	return items
}

// Get looks up an item by name, ignoring case
func (c *Collection) Get(name string) *Node {
	return c.byName[FoldName(name)]
}

// At returns the item at position i
func (c *Collection) At(i int) *Node {
	if i < 0 || i >= len(c.items) {
		return nil
	}
	return c.items[i]
}

// IndexOf returns the position of an item, or -1
func (c *Collection) IndexOf(n *Node) int {
	for i, item := range c.items {
		if item == n {
			return i
		}
	}
	return -1
}

func (c *Collection) insert(n *Node, index int) {
	if index < 0 || index > len(c.items) {
		index = len(c.items)
	}
	c.items = append(c.items, nil)
	copy(c.items[index+1:], c.items[index:])
	c.items[index] = n
	c.byName[FoldName(n.name)] = n
	n.owner = c
	n.parent = c.owner
}

func (c *Collection) detach(n *Node) {
	i := c.IndexOf(n)
	if i < 0 {
		return
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	delete(c.byName, FoldName(n.name))
	n.owner = nil
	n.parent = nil
}
