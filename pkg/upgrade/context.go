package upgrade

import (
	"github.com/redbco/redb-upgrade/pkg/actions"
	"github.com/redbco/redb-upgrade/pkg/difference"
)

// upgradeContext is the frame of one visited difference. Frames are linked to the frame that was
// current when they were opened.
type upgradeContext struct {
	parent *upgradeContext

	difference difference.Difference
	property   string

	isImmutable        bool
	isRemoved          bool
	dependencyRootType string

	preConditions  actions.GroupingNodeAction
	actions        actions.GroupingNodeAction
	renames        actions.GroupingNodeAction
	postConditions actions.GroupingNodeAction
}

// enter opens a frame for diff below the current one. Inherited state is copied from the parent.
func (r *run) enter(diff difference.Difference, property string) *upgradeContext {
	ctx := &upgradeContext{
		parent:     r.context,
		difference: diff,
		property:   property,
	}
	if p := r.context; p != nil {
		ctx.isImmutable = p.isImmutable
		ctx.isRemoved = p.isRemoved
		ctx.dependencyRootType = p.dependencyRootType
	}
	r.context = ctx
	return ctx
}

// leave closes the current frame. Its buckets are merged into one group that is appended to the
// parent frame, then the buffered renames and post-conditions are executed against the current
// model. The merged group is returned.
func (r *run) leave(ctx *upgradeContext, comment string) (*actions.GroupingNodeAction, error) {
	r.context = ctx.parent

	group := &actions.GroupingNodeAction{Comment: comment}
	group.Add(ctx.preConditions.Actions...)
	group.Add(ctx.actions.Actions...)
	group.Add(ctx.renames.Actions...)
	group.Add(ctx.postConditions.Actions...)

	if ctx.parent != nil {
		ctx.parent.actions.Add(group)
	}

	for _, a := range ctx.renames.Actions {
		if err := r.execute(a); err != nil {
			return group, err
		}
	}
	for _, a := range ctx.postConditions.Actions {
		if err := r.execute(a); err != nil {
			return group, err
		}
	}
	return group, nil
}

// nodeDifference returns the node difference of the frame, or nil
func (ctx *upgradeContext) nodeDifference() *difference.NodeDifference {
	d, _ := ctx.difference.(*difference.NodeDifference)
	return d
}

// owner returns the nearest ancestor frame opened for another node difference
func (ctx *upgradeContext) owner() *upgradeContext {
	for c := ctx.parent; c != nil; c = c.parent {
		if d := c.nodeDifference(); d != nil && c.difference != ctx.difference {
			return c
		}
	}
	return nil
}

// enclosingNode returns the nearest frame, starting with ctx, opened for a node difference
func (ctx *upgradeContext) enclosingNode() *upgradeContext {
	for c := ctx; c != nil; c = c.parent {
		if _, ok := c.difference.(*difference.NodeDifference); ok {
			return c
		}
	}
	return nil
}
