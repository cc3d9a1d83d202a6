package upgrade

import (
	"fmt"

	"github.com/redbco/redb-upgrade/pkg/actions"
)

// actionKind decides which bucket an action lands in and when it is executed
type actionKind int

const (
	// regular actions run immediately in the current frame
	kindRegular actionKind = iota
	// preCondition actions run immediately, ahead of the main actions of their dependency root
	kindPreCondition
	// postCondition actions run when their dependency root frame closes
	kindPostCondition
	// rename actions run together with the renames of their siblings when the enclosing frame closes
	kindRename
)

func (k actionKind) String() string {
	switch k {
	case kindRegular:
		return "regular"
	case kindPreCondition:
		return "pre-condition"
	case kindPostCondition:
		return "post-condition"
	case kindRename:
		return "rename"
	default:
		return fmt.Sprintf("actionKind(%d)", int(k))
	}
}

// addAction attaches an action to exactly one frame bucket
func (r *run) addAction(kind actionKind, a actions.Action) error {
	ctx := r.context

	if kind == kindRename {
		scope := ctx.parent
		for scope != nil && scope.difference == ctx.difference {
			scope = scope.parent
		}
		if scope == nil {
			scope = ctx
		}
		scope.renames.Add(a)
		return nil
	}

	if kind == kindRegular || ctx.dependencyRootType == "" {
		ctx.actions.Add(a)
		return r.execute(a)
	}

	root, err := r.dependencyRoot(ctx)
	if err != nil {
		return err
	}
	if kind == kindPreCondition {
		root.preConditions.Add(a)
		return r.execute(a)
	}
	root.postConditions.Add(a)
	return nil
}

// dependencyRoot finds the nearest ancestor frame whose node has the dependency root type of ctx
func (r *run) dependencyRoot(ctx *upgradeContext) (*upgradeContext, error) {
	for c := ctx.parent; c != nil; c = c.parent {
		d := c.nodeDifference()
		if d == nil {
			continue
		}
		if d.TypeName() == ctx.dependencyRootType {
			return c, nil
		}
	}

	location := ""
	if d := ctx.enclosingNode(); d != nil {
		location = d.nodeDifference().String()
	}
	return nil, fmt.Errorf("%w: no %s above %s", ErrDependencyRootNotFound, ctx.dependencyRootType, location)
}

func (r *run) execute(a actions.Action) error {
	if err := a.Execute(r.current); err != nil {
		return fmt.Errorf("failed to apply %s during %s: %w", a, r.stage, err)
	}
	r.executed++
	return nil
}
