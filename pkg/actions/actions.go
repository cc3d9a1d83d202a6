// Package actions defines the atomic upgrade actions produced by the planner. Every action can be
// executed against an in-memory model; grouping actions only exist to label parts of a sequence
// and disappear when the sequence is flattened.
package actions

import (
	"fmt"
	"sort"
	"strings"

	"github.com/redbco/redb-upgrade/pkg/hints"
	"github.com/redbco/redb-upgrade/pkg/unifiedmodel"
)

// Action is one of *CreateNodeAction, *RemoveNodeAction, *MoveNodeAction, *PropertyChangeAction,
// *DataAction or *GroupingNodeAction
type Action interface {
	fmt.Stringer
	// Execute applies the action to the model in place
	Execute(m *unifiedmodel.Model) error
	isAction()
}

// CreateNodeAction creates a node of Type called Name below the node or collection at Path
type CreateNodeAction struct {
	Path  string
	Type  string
	Name  string
	Index *int
}

func (*CreateNodeAction) isAction() {}

func (a *CreateNodeAction) Execute(m *unifiedmodel.Model) error {
	if _, err := m.CreateNode(a.Path, a.Type, a.Name, indexOrAppend(a.Index)); err != nil {
		return fmt.Errorf("failed to create %s %s in %q: %w", a.Type, a.Name, a.Path, err)
	}
	return nil
}

func (a *CreateNodeAction) String() string {
	return fmt.Sprintf("Create %s %s%s", a.Type, quote(unifiedmodel.JoinPath(a.Path, a.Name)), formatIndex(a.Index))
}

// RemoveNodeAction removes the node at Path with its subtree
type RemoveNodeAction struct {
	Path string
}

func (*RemoveNodeAction) isAction() {}

func (a *RemoveNodeAction) Execute(m *unifiedmodel.Model) error {
	if err := m.RemoveNode(a.Path); err != nil {
		return fmt.Errorf("failed to remove %q: %w", a.Path, err)
	}
	return nil
}

func (a *RemoveNodeAction) String() string {
	return "Remove " + quote(a.Path)
}

// MoveNodeAction renames, reparents or reorders the node at Path. NewPath is the resulting path.
type MoveNodeAction struct {
	Path    string
	Parent  string
	Name    string
	Index   *int
	NewPath string
}

func (*MoveNodeAction) isAction() {}

func (a *MoveNodeAction) Execute(m *unifiedmodel.Model) error {
	if _, err := m.MoveNode(a.Path, a.Parent, a.Name, indexOrAppend(a.Index)); err != nil {
		return fmt.Errorf("failed to move %q to %q: %w", a.Path, a.NewPath, err)
	}
	return nil
}

func (a *MoveNodeAction) String() string {
	return fmt.Sprintf("Move %s to %s%s", quote(a.Path), quote(a.NewPath), formatIndex(a.Index))
}

// PropertyChangeAction assigns properties of the node at Path. Reference properties hold a
// unifiedmodel.NodeRef.
type PropertyChangeAction struct {
	Path       string
	Properties map[string]any
}

func (*PropertyChangeAction) isAction() {}

func (a *PropertyChangeAction) Execute(m *unifiedmodel.Model) error {
	for _, name := range a.propertyNames() {
		if err := m.SetProperty(a.Path, name, a.Properties[name]); err != nil {
			return fmt.Errorf("failed to change %s of %q: %w", name, a.Path, err)
		}
	}
	return nil
}

func (a *PropertyChangeAction) propertyNames() []string {
	names := make([]string, 0, len(a.Properties))
	for name := range a.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (a *PropertyChangeAction) String() string {
	parts := make([]string, 0, len(a.Properties))
	for _, name := range a.propertyNames() {
		parts = append(parts, fmt.Sprintf("%s=%s", name, formatValue(a.Properties[name])))
	}
	return fmt.Sprintf("Change %s: %s", quote(a.Path), strings.Join(parts, ", "))
}

// DataAction applies a data operation described by a hint. It does not change the structure.
type DataAction struct {
	Hint hints.DataHint
}

func (*DataAction) isAction() {}

func (a *DataAction) Execute(*unifiedmodel.Model) error { return nil }

func (a *DataAction) String() string {
	return "Data " + a.Hint.String()
}

// GroupingNodeAction labels a run of actions
type GroupingNodeAction struct {
	Comment string
	Actions []Action
}

func (*GroupingNodeAction) isAction() {}

// Add appends non-nil actions, dropping empty groups
func (g *GroupingNodeAction) Add(actions ...Action) {
	for _, a := range actions {
		if a == nil {
			continue
		}
		if child, ok := a.(*GroupingNodeAction); ok && child.IsEmpty() {
			continue
		}
		g.Actions = append(g.Actions, a)
	}
}

// IsEmpty reports whether the group holds no actions
func (g *GroupingNodeAction) IsEmpty() bool {
	return g == nil || len(g.Actions) == 0
}

// Execute runs the children in order and stops at the first failure
func (g *GroupingNodeAction) Execute(m *unifiedmodel.Model) error {
	for _, a := range g.Actions {
		if err := a.Execute(m); err != nil {
			return err
		}
	}
	return nil
}

func (g *GroupingNodeAction) String() string {
	return fmt.Sprintf("Group %s (%d)", quote(g.Comment), len(g.Actions))
}

// Flatten returns the leaf actions in pre-order; grouping actions are dropped
func Flatten(actions ...Action) []Action {
	var out []Action
	var visit func(a Action)
	visit = func(a Action) {
		switch action := a.(type) {
		case nil:
		case *GroupingNodeAction:
			if action == nil {
				return
			}
			for _, child := range action.Actions {
				visit(child)
			}
		default:
			out = append(out, a)
		}
	}
	for _, a := range actions {
		visit(a)
	}
	return out
}

// Format renders actions one per line, indenting the children of groups under their comment
func Format(actions ...Action) string {
	var b strings.Builder
	var visit func(a Action, depth int)
	visit = func(a Action, depth int) {
		indent := strings.Repeat("  ", depth)
		if g, ok := a.(*GroupingNodeAction); ok {
			if g == nil {
				return
			}
			fmt.Fprintf(&b, "%s# %s\n", indent, g.Comment)
			for _, child := range g.Actions {
				visit(child, depth+1)
			}
			return
		}
		if a != nil {
			fmt.Fprintf(&b, "%s%s\n", indent, a)
		}
	}
	for _, a := range actions {
		visit(a, 0)
	}
	return b.String()
}

// Execute runs actions in order against the model
func Execute(m *unifiedmodel.Model, actions ...Action) error {
	for i, a := range actions {
		if err := a.Execute(m); err != nil {
			return fmt.Errorf("action %d: %w", i, err)
		}
	}
	return nil
}

func indexOrAppend(index *int) int {
	if index == nil {
		return -1
	}
	return *index
}

func formatIndex(index *int) string {
	if index == nil {
		return ""
	}
	return fmt.Sprintf(" at %d", *index)
}

func quote(path string) string {
	if path == "" {
		return "<root>"
	}
	return path
}

func formatValue(v any) string {
	switch value := v.(type) {
	case nil:
		return "<nil>"
	case unifiedmodel.NodeRef:
		return value.String()
	case string:
		return fmt.Sprintf("%q", value)
	default:
		return fmt.Sprintf("%v", value)
	}
}

// IntPtr returns a pointer to i
func IntPtr(i int) *int { return &i }
