// Package difference holds the structural delta between two models: node differences carrying a
// movement classification and per-property changes, collections of node differences, and leaf value
// differences. The set of variants is closed.
package difference

import (
	"fmt"
	"strings"

	"github.com/redbco/redb-upgrade/pkg/unifiedmodel"
)

// Difference is one of *NodeDifference, *NodeCollectionDifference or *ValueDifference
type Difference interface {
	HasChanges() bool
	isDifference()
}

// PropertyChange is the difference of one named property of a node
type PropertyChange struct {
	Name       string
	Difference Difference
}

// NodeDifference describes how a single node differs between source and target
type NodeDifference struct {
	Source *unifiedmodel.Node
	Target *unifiedmodel.Node

	// SourcePath and TargetPath are the node paths at comparison time
	SourcePath string
	TargetPath string

	Movement            MovementInfo
	IsDataChanged       bool
	IsRemoveOnCleanup   bool
	IsDependentOnParent bool

	PropertyChanges []PropertyChange
}

func (*NodeDifference) isDifference() {}

// HasChanges reports whether the node moved, has property changes or has its data changed
func (d *NodeDifference) HasChanges() bool {
	return d.Movement.Has(Changed) || len(d.PropertyChanges) > 0 || d.IsDataChanged
}

// Node returns the target node, or the source node when the node was removed
func (d *NodeDifference) Node() *unifiedmodel.Node {
	if d.Target != nil {
		return d.Target
	}
	return d.Source
}

// Name returns the name of the node the difference was built for
func (d *NodeDifference) Name() string {
	if n := d.Node(); n != nil {
		return n.Name()
	}
	return ""
}

// TypeName returns the node type name, taken from the target when present
func (d *NodeDifference) TypeName() string {
	if n := d.Node(); n != nil {
		return n.Type().Name
	}
	return ""
}

// Property returns the difference recorded for a property, or nil
func (d *NodeDifference) Property(name string) Difference {
	for _, pc := range d.PropertyChanges {
		if unifiedmodel.EqualNames(pc.Name, name) {
			return pc.Difference
		}
	}
	return nil
}

// AddProperty appends a property change
func (d *NodeDifference) AddProperty(name string, diff Difference) {
	d.PropertyChanges = append(d.PropertyChanges, PropertyChange{Name: name, Difference: diff})
}

func (d *NodeDifference) String() string {
	path := d.TargetPath
	if !d.Movement.Has(Created) && d.SourcePath != "" && (d.Target == nil || d.TargetPath == "") {
		path = d.SourcePath
	}
	return fmt.Sprintf("%s %q [%s]", d.TypeName(), path, d.Movement)
}

// NodeCollectionDifference lists the differing items of a collection property
type NodeCollectionDifference struct {
	Source *unifiedmodel.Collection
	Target *unifiedmodel.Collection

	ItemChanges []*NodeDifference
}

func (*NodeCollectionDifference) isDifference() {}

// HasChanges reports whether any item differs
func (d *NodeCollectionDifference) HasChanges() bool {
	return len(d.ItemChanges) > 0
}

// ValueDifference is a changed scalar or reference. Reference values are *unifiedmodel.Node.
type ValueDifference struct {
	Source any
	Target any
}

func (*ValueDifference) isDifference() {}

// HasChanges always reports true; value differences are only recorded for changed values
func (d *ValueDifference) HasChanges() bool { return true }

// Dump renders a difference tree as indented text for diagnostics
func Dump(d Difference) string {
	if d == nil {
		return "<no difference>\n"
	}
	var b strings.Builder
	dump(&b, d, "", 0)
	return b.String()
}

func dump(b *strings.Builder, d Difference, label string, depth int) {
	indent := strings.Repeat("  ", depth)
	prefix := indent
	if label != "" {
		prefix += label + ": "
	}

	switch diff := d.(type) {
	case *NodeDifference:
		fmt.Fprintf(b, "%s%s", prefix, diff)
		if diff.Movement.Has(NameChanged|ParentChanged|ParentRelocated) && diff.Source != nil && diff.Target != nil {
			fmt.Fprintf(b, " from %q", diff.SourcePath)
		}
		var flags []string
		if diff.IsDataChanged {
			flags = append(flags, "data")
		}
		if diff.IsRemoveOnCleanup {
			flags = append(flags, "remove-on-cleanup")
		}
		if diff.IsDependentOnParent {
			flags = append(flags, "dependent")
		}
		if len(flags) > 0 {
			fmt.Fprintf(b, " (%s)", strings.Join(flags, ", "))
		}
		b.WriteString("\n")
		for _, pc := range diff.PropertyChanges {
			dump(b, pc.Difference, pc.Name, depth+1)
		}
	case *NodeCollectionDifference:
		fmt.Fprintf(b, "%s%d item(s)\n", prefix, len(diff.ItemChanges))
		for _, item := range diff.ItemChanges {
			dump(b, item, "", depth+1)
		}
	case *ValueDifference:
		fmt.Fprintf(b, "%s%s -> %s\n", prefix, formatValue(diff.Source), formatValue(diff.Target))
	default:
		fmt.Fprintf(b, "%s<unsupported %T>\n", prefix, d)
	}
}

func formatValue(v any) string {
	switch value := v.(type) {
	case nil:
		return "<nil>"
	case *unifiedmodel.Node:
		if value == nil {
			return "<nil>"
		}
		return "@" + value.Path()
	case string:
		return fmt.Sprintf("%q", value)
	default:
		return fmt.Sprintf("%v", value)
	}
}
