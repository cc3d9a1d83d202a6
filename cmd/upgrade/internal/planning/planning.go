// Package planning backs the upgrade CLI commands: it loads model and hint files, runs the planner
// and prints the results.
package planning

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/redbco/redb-upgrade/pkg/actions"
	"github.com/redbco/redb-upgrade/pkg/comparison"
	"github.com/redbco/redb-upgrade/pkg/config"
	"github.com/redbco/redb-upgrade/pkg/difference"
	"github.com/redbco/redb-upgrade/pkg/hints"
	"github.com/redbco/redb-upgrade/pkg/logger"
	"github.com/redbco/redb-upgrade/pkg/unifiedmodel"
	"github.com/redbco/redb-upgrade/pkg/upgrade"
)

// ErrResidualDifference is returned by Validate when the replayed plan does not reach the target
var ErrResidualDifference = errors.New("replayed plan does not reach the target model")

// Options names the input files of a command
type Options struct {
	SourcePath string
	TargetPath string
	HintsPath  string
	// Format overrides the configured output format when set
	Format string
}

// Runner executes CLI commands against one configuration
type Runner struct {
	cfg      *config.Config
	log      *logger.Logger
	out      io.Writer
	comparer *comparison.ModelComparator
}

// NewRunner creates a runner printing to out
func NewRunner(cfg *config.Config, log *logger.Logger, out io.Writer) *Runner {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Runner{cfg: cfg, log: log, out: out, comparer: comparison.NewModelComparator()}
}

func (r *Runner) planner() *upgrade.Planner {
	return upgrade.NewPlanner(r.comparer,
		upgrade.WithLogger(r.log),
		upgrade.WithTemporaryPrefix(r.cfg.Planner.TemporaryPrefix),
	)
}

func (r *Runner) format(opts Options) (string, error) {
	format := strings.ToLower(opts.Format)
	if format == "" {
		format = strings.ToLower(r.cfg.Output.Format)
	}
	switch format {
	case config.FormatText, config.FormatJSON:
		return format, nil
	default:
		return "", fmt.Errorf("unsupported output format %q", opts.Format)
	}
}

// Load reads the source and target models and the optional hint file
func (r *Runner) Load(opts Options) (*hints.HintSet, error) {
	if opts.SourcePath == "" || opts.TargetPath == "" {
		return nil, fmt.Errorf("both --source and --target are required")
	}

	registry := unifiedmodel.RelationalTypes()
	source, err := loadModel(registry, opts.SourcePath)
	if err != nil {
		return nil, err
	}
	target, err := loadModel(registry, opts.TargetPath)
	if err != nil {
		return nil, err
	}

	if opts.HintsPath == "" {
		return hints.NewHintSet(source, target), nil
	}
	//nolint:gosec // path is supplied by the operator
	data, err := os.ReadFile(opts.HintsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read hints file: %w", err)
	}
	hs, err := hints.Load(data, source, target)
	if err != nil {
		return nil, fmt.Errorf("failed to load hints from %s: %w", opts.HintsPath, err)
	}
	r.log.Debugf("loaded %d hints from %s", hs.Len(), opts.HintsPath)
	return hs, nil
}

func loadModel(registry *unifiedmodel.TypeRegistry, path string) (*unifiedmodel.Model, error) {
	//nolint:gosec // path is supplied by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}
	model, err := unifiedmodel.Decode(registry, data)
	if err != nil {
		return nil, fmt.Errorf("failed to load model from %s: %w", path, err)
	}
	return model, nil
}

type planDocument struct {
	ID      string          `json:"id"`
	Actions json.RawMessage `json:"actions"`
}

// Plan synthesizes the upgrade sequence and prints it grouped (text) or flat (json)
func (r *Runner) Plan(opts Options) error {
	format, err := r.format(opts)
	if err != nil {
		return err
	}
	hs, err := r.Load(opts)
	if err != nil {
		return err
	}

	plan, err := r.planner().PlanModels(hs)
	if err != nil {
		return err
	}

	if format == config.FormatJSON {
		seq, err := actions.MarshalSequence(plan.Actions)
		if err != nil {
			return fmt.Errorf("failed to encode plan: %w", err)
		}
		data, err := json.MarshalIndent(planDocument{ID: plan.ID.String(), Actions: seq}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode plan: %w", err)
		}
		_, err = fmt.Fprintln(r.out, string(data))
		return err
	}

	fmt.Fprintf(r.out, "Plan %s (%d actions)\n", plan.ID, len(plan.Actions))
	if len(plan.Actions) == 0 {
		fmt.Fprintln(r.out, "Models are identical, nothing to do.")
		return nil
	}
	_, err = fmt.Fprint(r.out, plan.Format())
	return err
}

// Diff prints the difference between the models
func (r *Runner) Diff(opts Options) error {
	hs, err := r.Load(opts)
	if err != nil {
		return err
	}
	result, err := r.comparer.CompareModels(hs.SourceModel, hs.TargetModel, hs)
	if err != nil {
		return fmt.Errorf("failed to compare models: %w", err)
	}
	for _, w := range result.Warnings {
		r.log.Warn("%s", w)
	}

	if !result.HasChanges() {
		fmt.Fprintln(r.out, "No differences.")
		return nil
	}
	_, err = fmt.Fprint(r.out, difference.Dump(result.Difference))
	return err
}

// Validate plans, replays the flat sequence on a fresh copy of the source and compares the result
// with the target
func (r *Runner) Validate(opts Options) error {
	hs, err := r.Load(opts)
	if err != nil {
		return err
	}
	planner := r.planner()
	plan, err := planner.PlanModels(hs)
	if err != nil {
		return err
	}

	residual, err := planner.Verify(hs, plan.Actions)
	if err != nil {
		return fmt.Errorf("failed to replay plan %s: %w", plan.ID, err)
	}
	if residual != nil {
		fmt.Fprint(r.out, difference.Dump(residual))
		return fmt.Errorf("plan %s: %w", plan.ID, ErrResidualDifference)
	}

	fmt.Fprintf(r.out, "Plan %s verified: %d actions reach the target model.\n", plan.ID, len(plan.Actions))
	return nil
}
