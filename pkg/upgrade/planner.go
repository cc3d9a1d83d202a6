// Package upgrade synthesizes the ordered action sequence that turns a source model into a target
// model. The sequence is built in fixed stages; every action is applied to a working copy of the
// source as it is emitted, and the result is checked against the target before it is returned.
package upgrade

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/redbco/redb-upgrade/pkg/actions"
	"github.com/redbco/redb-upgrade/pkg/difference"
	"github.com/redbco/redb-upgrade/pkg/hints"
	"github.com/redbco/redb-upgrade/pkg/logger"
	"github.com/redbco/redb-upgrade/pkg/unifiedmodel"
)

// DefaultTemporaryPrefix is prepended to the names of nodes moved aside during TemporaryRename
const DefaultTemporaryPrefix = "Temp_"

// Comparer produces the difference between two models. A nil difference means the models are equal.
type Comparer interface {
	Compare(source, target *unifiedmodel.Model, hs *hints.HintSet) (difference.Difference, error)
}

// ComparerFunc adapts a function to the Comparer interface
type ComparerFunc func(source, target *unifiedmodel.Model, hs *hints.HintSet) (difference.Difference, error)

// Compare calls f
func (f ComparerFunc) Compare(source, target *unifiedmodel.Model, hs *hints.HintSet) (difference.Difference, error) {
	return f(source, target, hs)
}

// Planner synthesizes upgrade sequences
type Planner struct {
	comparer        Comparer
	logger          *logger.Logger
	temporaryPrefix string
}

// Option configures a Planner
type Option func(*Planner)

// WithLogger sets the logger used for stage and validation reporting
func WithLogger(l *logger.Logger) Option {
	return func(p *Planner) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithTemporaryPrefix overrides DefaultTemporaryPrefix
func WithTemporaryPrefix(prefix string) Option {
	return func(p *Planner) {
		if prefix != "" {
			p.temporaryPrefix = prefix
		}
	}
}

// NewPlanner creates a planner that re-diffs with comparer
func NewPlanner(comparer Comparer, opts ...Option) *Planner {
	p := &Planner{
		comparer:        comparer,
		logger:          logger.Discard(),
		temporaryPrefix: DefaultTemporaryPrefix,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// StageResult is the action group one stage produced
type StageResult struct {
	Stage UpgradeStage
	Group *actions.GroupingNodeAction
}

// Plan is a validated upgrade sequence
type Plan struct {
	ID uuid.UUID
	// Stages holds one group per stage that emitted actions, in execution order
	Stages []StageResult
	// Actions is the flattened sequence
	Actions []actions.Action
}

// Groups returns the stage groups as actions
func (p *Plan) Groups() []actions.Action {
	out := make([]actions.Action, 0, len(p.Stages))
	for _, s := range p.Stages {
		out = append(out, s.Group)
	}
	return out
}

// Stage returns the flattened actions of one stage
func (p *Plan) Stage(stage UpgradeStage) []actions.Action {
	for _, s := range p.Stages {
		if s.Stage == stage {
			return actions.Flatten(s.Group)
		}
	}
	return nil
}

// Format renders the plan with its group comments
func (p *Plan) Format() string {
	return actions.Format(p.Groups()...)
}

// run holds the state of one synthesis call
type run struct {
	planner  *Planner
	comparer Comparer
	log      *logger.Logger

	hints   *hints.HintSet
	source  *unifiedmodel.Model
	target  *unifiedmodel.Model
	current *unifiedmodel.Model

	stage    UpgradeStage
	context  *upgradeContext
	ledger   *renameLedger
	pending  map[string]struct{}
	rediffed bool
	executed int
}

// Synthesize builds the upgrade sequence for diff, the difference between hs.SourceModel and
// hs.TargetModel. A nil diff yields an empty plan.
func (p *Planner) Synthesize(diff difference.Difference, hs *hints.HintSet) (*Plan, error) {
	if p.comparer == nil {
		return nil, &ArgumentError{Field: "comparer", Reason: "is required"}
	}
	if err := checkArguments(diff, hs); err != nil {
		return nil, err
	}

	r := &run{
		planner:  p,
		comparer: p.comparer,
		log:      p.logger,
		hints:    hs,
		source:   hs.SourceModel,
		target:   hs.TargetModel,
		current:  hs.SourceModel.Clone(),
		ledger:   newRenameLedger(),
		pending:  make(map[string]struct{}),
	}
	plan := &Plan{ID: uuid.New()}

	working := diff
	for _, stage := range Stages {
		r.stage = stage

		if stage == StageUpgrade {
			r.updateHints()
			rediff, err := r.comparer.Compare(r.current, r.target, r.hints)
			if err != nil {
				return nil, fmt.Errorf("failed to compare models before %s: %w", stage, err)
			}
			working = normalize(rediff)
			r.rediffed = true
		}

		executed := r.executed
		group, err := r.runStage(working)
		if err != nil {
			return nil, fmt.Errorf("stage %s failed: %w", stage, err)
		}
		if stage == StageTemporaryRename {
			r.pending = make(map[string]struct{})
		}
		if group != nil && !group.IsEmpty() {
			plan.Stages = append(plan.Stages, StageResult{Stage: stage, Group: group})
		}
		r.log.Debugf("stage %s applied %d actions", stage, r.executed-executed)
	}

	if err := r.validate(plan); err != nil {
		return nil, err
	}

	plan.Actions = actions.Flatten(plan.Groups()...)
	r.log.Infof("plan %s: %d actions in %d stages, %d temporary renames", plan.ID, len(plan.Actions), len(plan.Stages), r.ledger.len())
	return plan, nil
}

// PlanModels compares the models of hs and synthesizes the sequence for the result
func (p *Planner) PlanModels(hs *hints.HintSet) (*Plan, error) {
	if hs == nil || hs.SourceModel == nil || hs.TargetModel == nil {
		return nil, &ArgumentError{Field: "hints", Reason: "source and target models are required"}
	}
	if p.comparer == nil {
		return nil, &ArgumentError{Field: "comparer", Reason: "is required"}
	}
	diff, err := p.comparer.Compare(hs.SourceModel, hs.TargetModel, hs)
	if err != nil {
		return nil, fmt.Errorf("failed to compare models: %w", err)
	}
	return p.Synthesize(normalize(diff), hs)
}

// Verify replays seq on a copy of the source model and returns what still differs from the target,
// honouring only the ignore hints of hs. A nil difference means the sequence is complete.
func (p *Planner) Verify(hs *hints.HintSet, seq []actions.Action) (difference.Difference, error) {
	if hs == nil || hs.SourceModel == nil || hs.TargetModel == nil {
		return nil, &ArgumentError{Field: "hints", Reason: "source and target models are required"}
	}
	current, err := Replay(hs.SourceModel, seq)
	if err != nil {
		return nil, err
	}
	diff, err := p.comparer.Compare(current, hs.TargetModel, hs.IgnoreOnly(current, hs.TargetModel))
	if err != nil {
		return nil, err
	}
	return normalize(diff), nil
}

// Synthesize is a convenience wrapper returning the flattened sequence
func Synthesize(diff difference.Difference, hs *hints.HintSet, comparer Comparer) ([]actions.Action, error) {
	plan, err := NewPlanner(comparer).Synthesize(diff, hs)
	if err != nil {
		return nil, err
	}
	return plan.Actions, nil
}

// Replay applies seq to a copy of source
func Replay(source *unifiedmodel.Model, seq []actions.Action) (*unifiedmodel.Model, error) {
	if source == nil {
		return nil, &ArgumentError{Field: "source", Reason: "is required"}
	}
	current := source.Clone()
	if err := actions.Execute(current, seq...); err != nil {
		return nil, err
	}
	return current, nil
}

func checkArguments(diff difference.Difference, hs *hints.HintSet) error {
	if hs == nil {
		return &ArgumentError{Field: "hints", Reason: "is required"}
	}
	if hs.SourceModel == nil {
		return &ArgumentError{Field: "SourceModel", Reason: "is required"}
	}
	if hs.TargetModel == nil {
		return &ArgumentError{Field: "TargetModel", Reason: "is required"}
	}

	diff = normalize(diff)
	if diff == nil {
		return nil
	}
	root, ok := diff.(*difference.NodeDifference)
	if !ok {
		return &ArgumentError{Field: "difference", Reason: fmt.Sprintf("top-level difference is %T, expected a node difference", diff)}
	}
	if root.Source == nil || root.Source.Model() != hs.SourceModel {
		return &ArgumentError{Field: "SourceModel", Reason: "does not match the source of the difference"}
	}
	if root.Target == nil || root.Target.Model() != hs.TargetModel {
		return &ArgumentError{Field: "TargetModel", Reason: "does not match the target of the difference"}
	}
	return nil
}

// normalize maps typed nil and change-free differences to nil
func normalize(diff difference.Difference) difference.Difference {
	switch d := diff.(type) {
	case nil:
		return nil
	case *difference.NodeDifference:
		if d == nil || !d.HasChanges() {
			return nil
		}
	case *difference.NodeCollectionDifference:
		if d == nil {
			return nil
		}
	case *difference.ValueDifference:
		if d == nil {
			return nil
		}
	}
	return diff
}

// runStage visits diff below a stage frame and returns the stage group
func (r *run) runStage(diff difference.Difference) (group *actions.GroupingNodeAction, err error) {
	if diff == nil {
		return nil, nil
	}
	root, ok := diff.(*difference.NodeDifference)
	if !ok {
		return nil, fmt.Errorf("%w: top-level %T", ErrUnsupportedDifference, diff)
	}

	r.context = nil
	ctx := r.enter(nil, "")
	defer func() {
		g, closeErr := r.leave(ctx, r.stage.String())
		group = g
		if err == nil {
			err = closeErr
		}
	}()

	return nil, r.visit(root)
}

func (r *run) validate(plan *Plan) error {
	residual, err := r.comparer.Compare(r.current, r.target, r.hints.IgnoreOnly(r.current, r.target))
	if err != nil {
		return fmt.Errorf("failed to compare upgraded model with target: %w", err)
	}
	residual = normalize(residual)
	if residual == nil {
		return nil
	}

	verr := &ValidationError{
		TargetDump:  r.target.Dump(),
		CurrentDump: r.current.Dump(),
		Sequence:    plan.Format(),
		Residual:    difference.Dump(residual),
	}
	r.log.Errorf("plan %s failed validation:\n%s", plan.ID, verr.Report())
	return verr
}
