package upgrade

import (
	"fmt"

	"github.com/redbco/redb-upgrade/pkg/actions"
	"github.com/redbco/redb-upgrade/pkg/difference"
	"github.com/redbco/redb-upgrade/pkg/hints"
	"github.com/redbco/redb-upgrade/pkg/unifiedmodel"
)

func (r *run) visit(diff difference.Difference) error {
	switch d := diff.(type) {
	case *difference.NodeDifference:
		return r.visitNodeDifference(d)
	case *difference.NodeCollectionDifference:
		return r.visitNodeCollectionDifference(d)
	case *difference.ValueDifference:
		return r.visitValueDifference(d)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedDifference, diff)
	}
}

func (r *run) visitNodeDifference(d *difference.NodeDifference) (err error) {
	ctx := r.enter(d, "")
	defer func() {
		if _, closeErr := r.leave(ctx, groupComment(d)); err == nil {
			err = closeErr
		}
	}()

	allowed := r.isAllowedForCurrentStage(d, ctx)

	if r.stage.IsInverse() {
		if err := r.processProperties(d, ctx, allowed); err != nil {
			return err
		}
		if allowed {
			return r.processMovement(d, ctx)
		}
		return nil
	}

	if allowed {
		if err := r.processMovement(d, ctx); err != nil {
			return err
		}
	}
	return r.processProperties(d, ctx, allowed)
}

func groupComment(d *difference.NodeDifference) string {
	if name := d.Name(); name != "" {
		return name
	}
	return d.TypeName()
}

func (r *run) visitNodeCollectionDifference(d *difference.NodeCollectionDifference) error {
	items := d.ItemChanges
	if r.stage == StageUpgrade {
		// renamed items go first so the names they release are free for the rest
		renamed := make([]*difference.NodeDifference, 0, len(items))
		rest := make([]*difference.NodeDifference, 0, len(items))
		for _, item := range items {
			if item.Movement.Has(difference.NameChanged) {
				renamed = append(renamed, item)
			} else {
				rest = append(rest, item)
			}
		}
		items = append(renamed, rest...)
	}

	for _, item := range items {
		if err := r.visitNodeDifference(item); err != nil {
			return err
		}
	}

	if r.stage == StageUpgrade && d.Target != nil && d.Target.Ordered() {
		return r.reorder(d)
	}
	return nil
}

// reorder moves the items of an ordered collection to their target positions, lowest index first
func (r *run) reorder(d *difference.NodeCollectionDifference) error {
	owner := r.context.enclosingNode()
	if owner == nil {
		return nil
	}
	path := unifiedmodel.JoinPath(r.currentNodePath(owner), d.Target.Name())
	live, ok := r.current.Resolve(path, false).(*unifiedmodel.Collection)
	if !ok {
		return nil
	}

	for i, item := range d.Target.Items() {
		n := live.Get(item.Name())
		if n == nil {
			continue
		}
		index := min(i, live.Len()-1)
		if live.IndexOf(n) == index {
			continue
		}
		move := &actions.MoveNodeAction{
			Path:    n.Path(),
			Parent:  live.Path(),
			Name:    n.Name(),
			Index:   actions.IntPtr(index),
			NewPath: n.Path(),
		}
		if err := r.addAction(kindPostCondition, move); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) visitValueDifference(d *difference.ValueDifference) error {
	if r.stage != StageUpgrade {
		return nil
	}
	owner := r.context.enclosingNode()
	if owner == nil {
		return nil
	}
	target := owner.nodeDifference().Target
	if target == nil {
		return nil
	}

	value := d.Target
	if n, ok := value.(*unifiedmodel.Node); ok {
		value = unifiedmodel.NodeRef{Path: n.Path()}
	}
	return r.addAction(kindPostCondition, &actions.PropertyChangeAction{
		Path:       target.Path(),
		Properties: map[string]any{r.context.property: value},
	})
}

func (r *run) processProperties(d *difference.NodeDifference, ctx *upgradeContext, allowed bool) error {
	changes := d.PropertyChanges
	if r.stage.IsInverse() {
		reversed := make([]difference.PropertyChange, len(changes))
		for i, pc := range changes {
			reversed[len(changes)-1-i] = pc
		}
		changes = reversed
	}

	nodeType := d.Node().Type()
	for _, pc := range changes {
		desc, ok := nodeType.Property(pc.Name)
		if !ok {
			return fmt.Errorf("%w: %s has no property %s", ErrUnsupportedDifference, nodeType.Name, pc.Name)
		}
		if r.stage.IsInverse() && ctx.isImmutable && !desc.IsVolatile {
			continue
		}
		if err := r.visitProperty(pc, desc, ctx, allowed); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) visitProperty(pc difference.PropertyChange, desc *unifiedmodel.PropertyDescriptor, parent *upgradeContext, allowed bool) (err error) {
	ctx := r.enter(pc.Difference, desc.Name)
	ctx.isImmutable = parent.isImmutable || desc.IsImmutable
	ctx.isRemoved = parent.isRemoved || (r.stage.IsRemoval() && allowed)
	if desc.DependencyRootType != "" {
		ctx.dependencyRootType = desc.DependencyRootType
	}
	defer func() {
		if _, closeErr := r.leave(ctx, desc.Name); err == nil {
			err = closeErr
		}
	}()

	return r.visit(pc.Difference)
}

// isPrepareRemovable reports whether the node goes away during Prepare: it is dropped without a
// pending data copy, or it is frozen and has to be recreated
func (r *run) isPrepareRemovable(d *difference.NodeDifference, ctx *upgradeContext) bool {
	removed := d.Movement.Has(difference.Removed) && !d.IsRemoveOnCleanup
	recreated := ctx.isImmutable && !d.Movement.Has(difference.Created)
	return removed || recreated
}

func (r *run) isAllowedForCurrentStage(d *difference.NodeDifference, ctx *upgradeContext) bool {
	switch r.stage {
	case StageCleanupData, StageCopyData, StagePostCopyData:
		return d.IsDataChanged
	case StagePrepare:
		return r.isPrepareRemovable(d, ctx)
	case StageTemporaryRename:
		return d.Movement.Has(difference.NameChanged) && !r.isPrepareRemovable(d, ctx) && r.isCyclicRename(d)
	case StageUpgrade:
		return !r.isPrepareRemovable(d, ctx) &&
			d.Movement.Has(difference.Created|difference.Copied|difference.NameChanged|difference.IndexChanged|difference.ParentChanged)
	case StageCleanup:
		return d.Movement.Has(difference.Removed)
	default:
		return false
	}
}

// isCyclicRename reports whether renaming the node directly would collide: a live sibling already
// carries the target name, or a rename hint moves another node onto this node's path.
func (r *run) isCyclicRename(d *difference.NodeDifference) bool {
	if !d.Movement.Has(difference.NameChanged) || d.Source == nil || d.Target == nil {
		return false
	}
	live, ok := r.current.ResolveNode(r.currentSourcePath(d))
	if !ok || live.Collection() == nil {
		return false
	}
	if sibling := live.Collection().Get(d.Target.Name()); sibling != nil && sibling != live {
		return true
	}
	if h := r.hints.RenameToTarget(d.SourcePath); h != nil && !unifiedmodel.EqualNames(h.SourcePath, d.SourcePath) {
		return true
	}
	return false
}

func (r *run) processMovement(d *difference.NodeDifference, ctx *upgradeContext) error {
	switch r.stage {
	case StageCleanupData:
		return r.addDataActions(d, func(h hints.DataHint) bool {
			switch hint := h.(type) {
			case *hints.DeleteDataHint:
				return !hint.PostCopy
			case *hints.UpdateDataHint:
				return true
			default:
				return false
			}
		})

	case StageCopyData:
		return r.addDataActions(d, func(h hints.DataHint) bool {
			_, ok := h.(*hints.CopyDataHint)
			return ok
		})

	case StagePostCopyData:
		return r.addDataActions(d, func(h hints.DataHint) bool {
			hint, ok := h.(*hints.DeleteDataHint)
			return ok && hint.PostCopy
		})

	case StagePrepare, StageCleanup:
		if ctx.isRemoved && !d.IsDependentOnParent {
			return nil
		}
		return r.addAction(kindPreCondition, &actions.RemoveNodeAction{Path: r.currentSourcePath(d)})

	case StageTemporaryRename:
		return r.temporaryRename(d)

	case StageUpgrade:
		return r.upgradeNode(d, ctx)
	}
	return nil
}

func (r *run) addDataActions(d *difference.NodeDifference, keep func(hints.DataHint) bool) error {
	if d.Source == nil {
		return nil
	}
	for _, h := range r.dataHints(d.SourcePath, r.currentSourcePath(d), keep) {
		if err := r.addAction(kindRegular, &actions.DataAction{Hint: h}); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) temporaryRename(d *difference.NodeDifference) error {
	path := r.currentSourcePath(d)
	live, ok := r.current.ResolveNode(path)
	if !ok || live.Collection() == nil {
		return nil
	}
	collection := live.Collection()
	name := r.temporaryName(collection, live.Name())
	newPath := unifiedmodel.JoinPath(collection.Path(), name)

	r.ledger.record(d.SourcePath, live)
	r.pending[unifiedmodel.FoldName(newPath)] = struct{}{}

	return r.addAction(kindRename, &actions.MoveNodeAction{
		Path:    path,
		Parent:  collection.Path(),
		Name:    name,
		NewPath: newPath,
	})
}

// temporaryName picks a name that is neither taken in the live collection nor promised to another
// pending temporary rename
func (r *run) temporaryName(collection *unifiedmodel.Collection, name string) string {
	base := r.planner.temporaryPrefix + name
	candidate := base
	for counter := 1; ; counter++ {
		_, pending := r.pending[unifiedmodel.FoldName(unifiedmodel.JoinPath(collection.Path(), candidate))]
		if collection.Get(candidate) == nil && !pending {
			return candidate
		}
		candidate = fmt.Sprintf("%s%d", base, counter)
	}
}

func (r *run) upgradeNode(d *difference.NodeDifference, ctx *upgradeContext) error {
	owner := ctx.owner()
	if owner == nil || d.Target == nil {
		return nil
	}
	ownerPath := r.currentNodePath(owner)
	property := d.Target.OwnerProperty()

	if d.Source == nil || d.Movement.Has(difference.Created|difference.Copied) {
		create := &actions.CreateNodeAction{Type: d.Target.Type().Name}
		if d.Target.Collection() == nil {
			create.Path = ownerPath
			create.Name = property.Name
		} else {
			create.Path = unifiedmodel.JoinPath(ownerPath, property.Name)
			create.Name = d.Target.Name()
			if d.Target.HasIndex() {
				index := d.Target.Index()
				if live, ok := r.current.Resolve(create.Path, false).(*unifiedmodel.Collection); ok {
					index = min(index, live.Len())
				}
				create.Index = actions.IntPtr(index)
			}
		}
		return r.addAction(kindPostCondition, create)
	}

	live := d.Source
	if live.Model() == nil || live.Collection() == nil {
		return nil
	}
	parentPath := unifiedmodel.JoinPath(ownerPath, property.Name)
	name := d.Target.Name()

	var index *int
	target, ok := r.current.Resolve(parentPath, false).(*unifiedmodel.Collection)
	if ok && d.Target.HasIndex() {
		limit := target.Len()
		if live.Collection() == target {
			limit--
		}
		index = actions.IntPtr(min(d.Target.Index(), limit))
	}

	if ok && live.Collection() == target && live.Name() == name && (index == nil || live.Index() == *index) {
		return nil
	}

	return r.addAction(kindPostCondition, &actions.MoveNodeAction{
		Path:    live.Path(),
		Parent:  parentPath,
		Name:    name,
		Index:   index,
		NewPath: unifiedmodel.JoinPath(parentPath, name),
	})
}

// currentSourcePath returns where the source node of a difference lives in the current model
func (r *run) currentSourcePath(d *difference.NodeDifference) string {
	if r.rediffed && d.Source != nil {
		return d.Source.Path()
	}
	return r.ledger.actualPath(d.SourcePath)
}

// currentNodePath returns the current path of the node a frame was opened for. Created nodes are
// placed below the current path of their owner.
func (r *run) currentNodePath(ctx *upgradeContext) string {
	d := ctx.nodeDifference()
	if d == nil {
		return ""
	}
	if d.Source != nil {
		return r.currentSourcePath(d)
	}
	owner := ctx.owner()
	if owner == nil || d.Target == nil {
		return ""
	}
	base := r.currentNodePath(owner)
	property := d.Target.OwnerProperty()
	if d.Target.Collection() != nil {
		return unifiedmodel.JoinPath(base, property.Name, d.Target.Name())
	}
	return unifiedmodel.JoinPath(base, property.Name)
}
