package skillet

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/deepnoodle-ai/skillet/slogger"
)

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	Registry *Registry
	Selector *Selector
	Logger   slogger.Logger
}

// Turn is the outcome of processing one utterance.
type Turn struct {
	ID          string        `json:"id"`
	Utterance   string        `json:"utterance"`
	Evaluations []Evaluation  `json:"evaluations"`
	Selections  []Selection   `json:"selections"`
	Log         *ExecutionLog `json:"-"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
}

// Lines returns the turn's execution log messages.
func (t *Turn) Lines() []string {
	return t.Log.Lines()
}

// Runner selects skills for an utterance and executes them in selection
// order against a fresh ExecutionLog.
type Runner struct {
	registry *Registry
	selector *Selector
	logger   slogger.Logger
}

// NewRunner creates a Runner.
func NewRunner(opts RunnerOptions) *Runner {
	if opts.Logger == nil {
		opts.Logger = slogger.DefaultLogger
	}
	return &Runner{registry: opts.Registry, selector: opts.Selector, logger: opts.Logger}
}

// Run processes one utterance. Execution faults are recorded in the turn's
// log; the returned error reports cancellation or failures to persist skill
// telemetry. A non-nil Turn is returned whenever selection completed.
func (r *Runner) Run(ctx context.Context, utterance string) (*Turn, error) {
	turn := &Turn{
		ID:        uuid.NewString(),
		Utterance: utterance,
		Log:       NewExecutionLog(),
		StartedAt: time.Now(),
	}
	logger := r.logger.With("turn", turn.ID)

	evals, err := r.selector.Evaluate(ctx, utterance, r.registry.All())
	if err != nil {
		return nil, err
	}
	turn.Evaluations = evals
	turn.Selections = Selections(evals)
	logger.Debug("selected skills", "count", len(turn.Selections))

	var errs []error
	for _, sel := range turn.Selections {
		if err := r.registry.Execute(ctx, turn.Log, sel.Skill.Name, sel.Params); err != nil {
			logger.Warn("failed to record skill execution", "skill", sel.Skill.Name, "error", err)
			errs = append(errs, err)
		}
	}
	turn.Duration = time.Since(turn.StartedAt)
	return turn, errors.Join(errs...)
}
