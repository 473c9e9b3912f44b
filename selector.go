package skillet

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/deepnoodle-ai/skillet/skill"
	"github.com/deepnoodle-ai/skillet/slogger"
)

const (
	// DefaultConcurrency caps parallel oracle calls during selection.
	DefaultConcurrency = 8

	// DefaultMaxVibeExamples caps the example phrases embedded in a
	// selection prompt.
	DefaultMaxVibeExamples = 5
)

// SelectorOptions configures a Selector.
type SelectorOptions struct {
	Oracle Oracle

	// Extractor extracts parameters of selected skills. Defaults to an
	// Extractor over the same Oracle.
	Extractor *Extractor

	Logger          slogger.Logger
	Concurrency     int
	CallTimeout     time.Duration
	MaxVibeExamples int
}

// Evaluation is the selector's verdict on one skill.
type Evaluation struct {
	Skill    *skill.Skill   `json:"skill"`
	Decision Decision       `json:"decision"`
	Raw      string         `json:"raw,omitempty"`
	Err      error          `json:"-"`
	Params   map[string]any `json:"params,omitempty"`
}

// Selection is a skill chosen for an utterance with its extracted parameters.
type Selection struct {
	Skill  *skill.Skill   `json:"skill"`
	Params map[string]any `json:"params"`
}

// Selector decides which skills apply to an utterance. Every skill is asked
// about independently; any number may be selected.
type Selector struct {
	oracle          Oracle
	extractor       *Extractor
	logger          slogger.Logger
	concurrency     int
	callTimeout     time.Duration
	maxVibeExamples int
}

// NewSelector creates a Selector.
func NewSelector(opts SelectorOptions) *Selector {
	if opts.Logger == nil {
		opts.Logger = slogger.DefaultLogger
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	if opts.MaxVibeExamples <= 0 {
		opts.MaxVibeExamples = DefaultMaxVibeExamples
	}
	if opts.Extractor == nil {
		opts.Extractor = NewExtractor(ExtractorOptions{
			Oracle:      opts.Oracle,
			Logger:      opts.Logger,
			CallTimeout: opts.CallTimeout,
		})
	}
	return &Selector{
		oracle:          opts.Oracle,
		extractor:       opts.Extractor,
		logger:          opts.Logger,
		concurrency:     opts.Concurrency,
		callTimeout:     opts.CallTimeout,
		maxVibeExamples: opts.MaxVibeExamples,
	}
}

// Evaluate asks the oracle about every skill in parallel and extracts the
// parameters of those selected. Results are in the order of skills. The only
// error is cancellation of ctx.
func (s *Selector) Evaluate(ctx context.Context, utterance string, skills []*skill.Skill) ([]Evaluation, error) {
	results := make([]Evaluation, len(skills))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, sk := range skills {
		g.Go(func() error {
			results[i] = s.evaluate(gctx, utterance, sk)
			return nil
		})
	}
	g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// Select returns the selected skills in the order of skills.
func (s *Selector) Select(ctx context.Context, utterance string, skills []*skill.Skill) ([]Selection, error) {
	evals, err := s.Evaluate(ctx, utterance, skills)
	if err != nil {
		return nil, err
	}
	return Selections(evals), nil
}

// Selections keeps the evaluations whose decision selects the skill.
func Selections(evals []Evaluation) []Selection {
	var out []Selection
	for _, e := range evals {
		if e.Decision.Selected() {
			out = append(out, Selection{Skill: e.Skill, Params: e.Params})
		}
	}
	return out
}

func (s *Selector) evaluate(ctx context.Context, utterance string, sk *skill.Skill) Evaluation {
	eval := Evaluation{Skill: sk, Decision: Indeterminate}
	examples := sk.VibeTestPhrases
	if len(examples) > s.maxVibeExamples {
		examples = examples[:s.maxVibeExamples]
	}
	prompt, err := executeTemplate(selectionPromptTemplate, selectionPromptData{
		Name:        sk.Name,
		Description: sk.Description,
		Examples:    examples,
		Utterance:   utterance,
	})
	if err != nil {
		eval.Err = err
		s.logger.Error("failed to build selection prompt", "skill", sk.Name, "error", err)
		return eval
	}

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	raw, err := s.oracle.AskYesNo(callCtx, prompt)
	cancel()
	if err != nil {
		eval.Err = err
		s.logger.Debug("oracle call failed, skill not selected", "skill", sk.Name, "error", err)
		return eval
	}
	eval.Raw = raw
	eval.Decision = ParseDecision(raw)
	if eval.Decision == Indeterminate {
		s.logger.Debug("indeterminate oracle answer, skill not selected", "skill", sk.Name, "answer", raw)
	}
	if eval.Decision.Selected() {
		eval.Params = map[string]any{}
		if len(sk.Parameters) > 0 {
			eval.Params = s.extractor.ExtractAll(ctx, utterance, sk)
		}
	}
	return eval
}
