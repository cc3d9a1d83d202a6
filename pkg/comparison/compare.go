// Package comparison builds the difference tree between two models of the same type registry.
package comparison

import (
	"fmt"

	"github.com/redbco/redb-upgrade/pkg/difference"
	"github.com/redbco/redb-upgrade/pkg/hints"
	"github.com/redbco/redb-upgrade/pkg/unifiedmodel"
)

// ModelComparator compares two models node by node
type ModelComparator struct{}

// NewModelComparator creates a new model comparator
func NewModelComparator() *ModelComparator {
	return &ModelComparator{}
}

// CompareResult represents the result of a model comparison
type CompareResult struct {
	// Difference is nil when the models are equal
	Difference difference.Difference
	// Warnings lists hints that could not be applied
	Warnings []string
}

// HasChanges reports whether the comparison found any difference
func (r *CompareResult) HasChanges() bool {
	return r.Difference != nil
}

// Compare returns the difference between source and target, or nil when they are equal
func (c *ModelComparator) Compare(source, target *unifiedmodel.Model, hs *hints.HintSet) (difference.Difference, error) {
	result, err := c.CompareModels(source, target, hs)
	if err != nil {
		return nil, err
	}
	if result.Difference == nil {
		return nil, nil
	}
	return result.Difference, nil
}

// CompareModels compares two models and reports hints that were skipped
func (c *ModelComparator) CompareModels(source, target *unifiedmodel.Model, hs *hints.HintSet) (*CompareResult, error) {
	if source == nil || target == nil {
		return nil, fmt.Errorf("source and target models are required")
	}
	if source.Registry() != target.Registry() {
		return nil, fmt.Errorf("models use different type registries")
	}
	if hs == nil {
		hs = hints.NewHintSet(source, target)
	}

	run := &comparison{
		hints:   hs,
		matches: make(map[*unifiedmodel.Node]*unifiedmodel.Node),
		reverse: make(map[*unifiedmodel.Node]*unifiedmodel.Node),
		result:  &CompareResult{Warnings: make([]string, 0)},
	}

	run.matchModels(source, target)

	root := run.compareNodes(source.Root(), target.Root(), false, false)
	if root.HasChanges() {
		run.result.Difference = root
	}
	return run.result, nil
}

type comparison struct {
	hints   *hints.HintSet
	matches map[*unifiedmodel.Node]*unifiedmodel.Node
	reverse map[*unifiedmodel.Node]*unifiedmodel.Node
	result  *CompareResult
}

func (c *comparison) warnf(format string, args ...any) {
	c.result.Warnings = append(c.result.Warnings, fmt.Sprintf(format, args...))
}

func (c *comparison) match(source, target *unifiedmodel.Node) {
	c.matches[source] = target
	c.reverse[target] = source
}

func (c *comparison) ignored(n *unifiedmodel.Node) bool {
	return n != nil && c.hints.IsIgnored(n.Path())
}

// matchModels pairs source nodes with target nodes: roots first, then rename hints, then names
// within matched parents.
func (c *comparison) matchModels(source, target *unifiedmodel.Model) {
	c.match(source.Root(), target.Root())
	queue := [][2]*unifiedmodel.Node{{source.Root(), target.Root()}}

	for _, h := range c.hints.Renames() {
		s, sok := source.ResolveNode(h.SourcePath)
		t, tok := target.ResolveNode(h.TargetPath)
		switch {
		case !sok || !tok:
			c.warnf("rename %s -> %s: path does not resolve", h.SourcePath, h.TargetPath)
		case s.Collection() == nil || t.Collection() == nil:
			c.warnf("rename %s -> %s: only collection items can be renamed", h.SourcePath, h.TargetPath)
		case s.Type() != t.Type():
			c.warnf("rename %s -> %s: %s cannot become %s", h.SourcePath, h.TargetPath, s.Type().Name, t.Type().Name)
		case c.matches[s] != nil || c.reverse[t] != nil:
			c.warnf("rename %s -> %s: node is already matched", h.SourcePath, h.TargetPath)
		case c.ignored(s) || c.ignored(t):
		default:
			c.match(s, t)
			queue = append(queue, [2]*unifiedmodel.Node{s, t})
		}
	}

	for len(queue) > 0 {
		pair := queue[0]
		queue = queue[1:]
		queue = append(queue, c.matchChildren(pair[0], pair[1])...)
	}
}

func (c *comparison) matchChildren(source, target *unifiedmodel.Node) [][2]*unifiedmodel.Node {
	var matched [][2]*unifiedmodel.Node
	for _, p := range target.Type().Properties {
		switch p.Kind {
		case unifiedmodel.PropertyNode:
			s, t := source.Nested(p.Name), target.Nested(p.Name)
			if s == nil || t == nil || c.matches[s] != nil || c.reverse[t] != nil || c.ignored(s) || c.ignored(t) {
				continue
			}
			c.match(s, t)
			matched = append(matched, [2]*unifiedmodel.Node{s, t})

		case unifiedmodel.PropertyCollection:
			sc, tc := source.Items(p.Name), target.Items(p.Name)
			for _, t := range tc.Items() {
				if c.reverse[t] != nil || c.ignored(t) {
					continue
				}
				s := sc.Get(t.Name())
				if s == nil || c.matches[s] != nil || s.Type() != t.Type() || c.ignored(s) {
					continue
				}
				c.match(s, t)
				matched = append(matched, [2]*unifiedmodel.Node{s, t})
			}
		}
	}
	return matched
}

// compareNodes builds the difference of a node pair. Either side may be nil.
func (c *comparison) compareNodes(source, target *unifiedmodel.Node, relocated, removeOnCleanup bool) *difference.NodeDifference {
	d := &difference.NodeDifference{Source: source, Target: target}
	if source != nil {
		d.SourcePath = source.Path()
	}
	if target != nil {
		d.TargetPath = target.Path()
	}

	switch {
	case source == nil:
		d.Movement = difference.Created
	case target == nil:
		d.Movement = difference.Removed
	default:
		d.Movement = c.movement(source, target)
		if relocated {
			d.Movement |= difference.ParentRelocated
		}
	}

	if source != nil {
		d.IsDataChanged = len(c.hints.DataHintsFor(d.SourcePath)) > 0
		if target == nil {
			d.IsRemoveOnCleanup = removeOnCleanup || len(c.hints.CopyDataFrom(d.SourcePath)) > 0
		}
	}
	if p := d.Node().OwnerProperty(); p != nil && p.DependencyRootType != "" {
		d.IsDependentOnParent = true
	}

	childRelocated := source != nil && target != nil && d.Movement.Has(difference.ParentChanged|difference.ParentRelocated)
	c.compareProperties(d, childRelocated)
	return d
}

func (c *comparison) movement(source, target *unifiedmodel.Node) difference.MovementInfo {
	var m difference.MovementInfo
	// the root and nested nodes take their names from the document and the owning property
	if source.Collection() != nil && target.Collection() != nil && source.Name() != target.Name() {
		m |= difference.NameChanged
	}
	if source.HasIndex() && target.HasIndex() && source.Index() != target.Index() {
		m |= difference.IndexChanged
	}
	if source.Parent() != nil && target.Parent() != nil {
		sp, tp := source.OwnerProperty(), target.OwnerProperty()
		if c.matches[source.Parent()] != target.Parent() || sp == nil || tp == nil || sp.Name != tp.Name {
			m |= difference.ParentChanged
		}
	}
	return m
}

func (c *comparison) propertyIgnored(d *difference.NodeDifference, property string) bool {
	if d.Source != nil && c.hints.IsIgnored(unifiedmodel.JoinPath(d.SourcePath, property)) {
		return true
	}
	return d.Target != nil && c.hints.IsIgnored(unifiedmodel.JoinPath(d.TargetPath, property))
}

func (c *comparison) compareProperties(d *difference.NodeDifference, relocated bool) {
	source, target := d.Source, d.Target
	for _, p := range d.Node().Type().Properties {
		if c.propertyIgnored(d, p.Name) {
			continue
		}

		switch p.Kind {
		case unifiedmodel.PropertyValue:
			if target == nil {
				continue
			}
			var before any
			if source != nil {
				before = source.Value(p.Name)
			}
			after := target.Value(p.Name)
			if !unifiedmodel.EqualValues(before, after) {
				d.AddProperty(p.Name, &difference.ValueDifference{Source: before, Target: after})
			}

		case unifiedmodel.PropertyReference:
			if target == nil {
				continue
			}
			var before *unifiedmodel.Node
			if source != nil {
				before = source.Ref(p.Name)
			}
			after := target.Ref(p.Name)
			if !c.sameReference(before, after) {
				d.AddProperty(p.Name, &difference.ValueDifference{Source: nodeOrNil(before), Target: nodeOrNil(after)})
			}

		case unifiedmodel.PropertyNode:
			if nested := c.compareNested(d, p.Name, relocated); nested != nil {
				d.AddProperty(p.Name, nested)
			}

		case unifiedmodel.PropertyCollection:
			if items := c.compareCollection(d, p.Name, relocated); items != nil {
				d.AddProperty(p.Name, items)
			}
		}
	}
}

func (c *comparison) sameReference(before, after *unifiedmodel.Node) bool {
	if before == nil || after == nil {
		return before == nil && after == nil
	}
	return c.matches[before] == after
}

// nodeOrNil keeps a nil *Node from turning into a non-nil interface value
func nodeOrNil(n *unifiedmodel.Node) any {
	if n == nil {
		return nil
	}
	return n
}

func (c *comparison) compareNested(d *difference.NodeDifference, property string, relocated bool) *difference.NodeDifference {
	var s, t *unifiedmodel.Node
	if d.Source != nil {
		s = d.Source.Nested(property)
	}
	if d.Target != nil {
		t = d.Target.Nested(property)
	}
	if c.ignored(s) {
		s = nil
	}
	if c.ignored(t) {
		t = nil
	}
	if s != nil && c.matches[s] != t {
		s = nil
	}
	if s == nil && t == nil {
		return nil
	}

	nested := c.compareNodes(s, t, relocated, d.IsRemoveOnCleanup)
	if !nested.HasChanges() {
		return nil
	}
	return nested
}

func (c *comparison) compareCollection(d *difference.NodeDifference, property string, relocated bool) *difference.NodeCollectionDifference {
	items := &difference.NodeCollectionDifference{}
	if d.Source != nil {
		items.Source = d.Source.Items(property)
	}
	if d.Target != nil {
		items.Target = d.Target.Items(property)
		for _, t := range items.Target.Items() {
			if c.ignored(t) {
				continue
			}
			s := c.reverse[t]
			if item := c.compareNodes(s, t, relocated, false); item.HasChanges() {
				items.ItemChanges = append(items.ItemChanges, item)
			}
		}
	}
	if items.Source != nil {
		for _, s := range items.Source.Items() {
			if c.matches[s] != nil || c.ignored(s) {
				continue
			}
			items.ItemChanges = append(items.ItemChanges, c.compareNodes(s, nil, false, d.IsRemoveOnCleanup))
		}
	}

	if !items.HasChanges() {
		return nil
	}
	return items
}
