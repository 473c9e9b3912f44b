// Package vibetest measures how reliably the selector picks each skill for
// the skill's own example phrases.
//
// Every phrase is run through the selector Iterations times against the full
// skill set. An iteration counts as correct when the target skill is among
// the selections, whatever else is selected alongside it. A skill passes
// when its overall rate reaches Threshold.
package vibetest

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/deepnoodle-ai/skillet"
	"github.com/deepnoodle-ai/skillet/skill"
	"github.com/deepnoodle-ai/skillet/slogger"
)

const (
	DefaultIterations = 1
	DefaultThreshold  = 0.6

	numberTolerance = 0.001
)

// Options configures a Runner.
type Options struct {
	Selector *skillet.Selector

	// Iterations is the number of times each phrase is run.
	Iterations int

	// Threshold is the pass rate in [0, 1].
	Threshold float64

	// Model names the oracle model in the report.
	Model string

	// Progress is called after every iteration.
	Progress func(skillName, phrase string, iteration int)

	Logger slogger.Logger
	Now    func() time.Time
}

// Runner runs vibe tests.
type Runner struct {
	selector   *skillet.Selector
	iterations int
	threshold  float64
	model      string
	progress   func(string, string, int)
	logger     slogger.Logger
	now        func() time.Time
}

// New creates a Runner.
func New(opts Options) *Runner {
	if opts.Iterations <= 0 {
		opts.Iterations = DefaultIterations
	}
	if opts.Threshold <= 0 || opts.Threshold > 1 {
		opts.Threshold = DefaultThreshold
	}
	if opts.Logger == nil {
		opts.Logger = slogger.DefaultLogger
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Runner{
		selector:   opts.Selector,
		iterations: opts.Iterations,
		threshold:  opts.Threshold,
		model:      opts.Model,
		progress:   opts.Progress,
		logger:     opts.Logger,
		now:        opts.Now,
	}
}

// Timing summarizes iteration latencies in seconds.
type Timing struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// PhraseResult is the outcome for one phrase.
type PhraseResult struct {
	Phrase              string         `json:"phrase"`
	Correct             int            `json:"correct"`
	Total               int            `json:"total"`
	Errors              int            `json:"errors"`
	SuccessRate         float64        `json:"success_rate"`
	ParamCorrect        int            `json:"parameter_correct"`
	ParamSuccessRate    float64        `json:"parameter_success_rate"`
	ExpectedParams      map[string]any `json:"expected_params"`
	SecondaryCounts     map[string]int `json:"secondary_action_counts"`
	SecondaryPerAttempt [][]string     `json:"secondary_actions_per_iteration"`
	Timing              Timing         `json:"timing"`
}

// SkillResult is the outcome for one skill.
type SkillResult struct {
	Skill        string         `json:"action_name"`
	Description  string         `json:"action_description"`
	TotalCorrect int            `json:"total_correct"`
	TotalTests   int            `json:"total_tests"`
	SuccessRate  float64        `json:"success_rate"`
	Passed       bool           `json:"passed"`
	Phrases      []PhraseResult `json:"phrase_results"`
	Timing       Timing         `json:"timing"`
}

// Summary aggregates a report.
type Summary struct {
	SkillsTested       int      `json:"skills_tested"`
	SkillsPassed       int      `json:"skills_passed"`
	SkillsFailed       int      `json:"skills_failed"`
	TotalTests         int      `json:"total_tests"`
	TotalCorrect       int      `json:"total_correct"`
	OverallSuccessRate float64  `json:"overall_success_rate"`
	Failed             []string `json:"failed"`
}

// Report is the outcome of a vibe test run.
type Report struct {
	Timestamp  string        `json:"timestamp"`
	Model      string        `json:"model,omitempty"`
	Iterations int           `json:"iterations"`
	Threshold  float64       `json:"threshold"`
	Duration   float64       `json:"total_runtime"`
	Skills     []SkillResult `json:"results"`
	Summary    Summary       `json:"summary"`
}

// Passed reports whether every tested skill passed.
func (r *Report) Passed() bool {
	return r.Summary.SkillsFailed == 0
}

// Run tests every skill in targets that has vibe phrases. Selection runs
// against all, so secondary selections reflect the whole registry. Only
// cancellation aborts the run.
func (r *Runner) Run(ctx context.Context, targets, all []*skill.Skill) (*Report, error) {
	start := r.now()
	report := &Report{
		Timestamp:  start.Format(time.RFC3339),
		Model:      r.model,
		Iterations: r.iterations,
		Threshold:  r.threshold,
		Skills:     []SkillResult{},
	}
	for _, sk := range targets {
		if len(sk.VibeTestPhrases) == 0 {
			continue
		}
		res, err := r.RunSkill(ctx, sk, all)
		if err != nil {
			return nil, err
		}
		report.Skills = append(report.Skills, *res)
	}
	report.Duration = r.now().Sub(start).Seconds()
	report.Summary = summarize(report.Skills)
	return report, nil
}

// RunSkill tests one skill.
func (r *Runner) RunSkill(ctx context.Context, target *skill.Skill, all []*skill.Skill) (*SkillResult, error) {
	res := &SkillResult{Skill: target.Name, Description: target.Description}
	var latencies []float64
	for _, phrase := range target.VibeTestPhrases {
		pr, times, err := r.runPhrase(ctx, target, phrase, all)
		if err != nil {
			return nil, err
		}
		res.Phrases = append(res.Phrases, *pr)
		res.TotalCorrect += pr.Correct
		res.TotalTests += pr.Total - pr.Errors
		latencies = append(latencies, times...)
	}
	res.SuccessRate = rate(res.TotalCorrect, res.TotalTests)
	res.Passed = res.SuccessRate >= r.threshold*100
	res.Timing = timing(latencies)
	r.logger.Info("vibe tested skill",
		"skill", target.Name,
		"correct", res.TotalCorrect,
		"total", res.TotalTests,
		"passed", res.Passed)
	return res, nil
}

func (r *Runner) runPhrase(ctx context.Context, target *skill.Skill, phrase string, all []*skill.Skill) (*PhraseResult, []float64, error) {
	pr := &PhraseResult{
		Phrase:          phrase,
		Total:           r.iterations,
		ExpectedParams:  ExpectedParams(target, phrase),
		SecondaryCounts: map[string]int{},
	}
	var latencies []float64
	for i := range r.iterations {
		begin := r.now()
		selections, err := r.selector.Select(ctx, phrase, all)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			r.logger.Warn("vibe iteration failed", "skill", target.Name, "iteration", i+1, "error", err)
			pr.Errors++
			pr.SecondaryPerAttempt = append(pr.SecondaryPerAttempt, []string{})
			continue
		}
		latencies = append(latencies, r.now().Sub(begin).Seconds())

		secondary := []string{}
		for _, sel := range selections {
			if sel.Skill.Name != target.Name {
				secondary = append(secondary, sel.Skill.Name)
				pr.SecondaryCounts[sel.Skill.Name]++
				continue
			}
			pr.Correct++
			if len(pr.ExpectedParams) > 0 && ParamsMatch(pr.ExpectedParams, sel.Params) {
				pr.ParamCorrect++
			}
		}
		pr.SecondaryPerAttempt = append(pr.SecondaryPerAttempt, secondary)
		if r.progress != nil {
			r.progress(target.Name, phrase, i+1)
		}
	}
	pr.SuccessRate = rate(pr.Correct, pr.Total)
	if len(pr.ExpectedParams) > 0 {
		pr.ParamSuccessRate = rate(pr.ParamCorrect, pr.Total)
	} else {
		pr.ParamSuccessRate = 100
	}
	pr.Timing = timing(latencies)
	return pr, latencies, nil
}

// ExpectedParams derives the parameter values a phrase implies. A skill with
// exactly one number parameter expects the first number in the phrase.
func ExpectedParams(sk *skill.Skill, phrase string) map[string]any {
	var numeric []string
	for _, name := range sk.ParameterNames() {
		if sk.Parameters[name].Type == skill.TypeNumber {
			numeric = append(numeric, name)
		}
	}
	out := map[string]any{}
	if len(numeric) != 1 {
		return out
	}
	if n, ok := skill.ParseNumber(phrase); ok {
		out[numeric[0]] = n
	}
	return out
}

// ParamsMatch reports whether got carries every expected value. Numbers
// match within a small tolerance; everything else compares as text.
func ParamsMatch(expected, got map[string]any) bool {
	for name, want := range expected {
		v, ok := got[name]
		if !ok || v == nil {
			return false
		}
		if w, isNum := want.(float64); isNum {
			g, ok := skill.Coerce(skill.TypeNumber, v)
			if !ok || math.Abs(g.(float64)-w) >= numberTolerance {
				return false
			}
			continue
		}
		if fmt.Sprint(v) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

func summarize(results []SkillResult) Summary {
	s := Summary{SkillsTested: len(results), Failed: []string{}}
	for _, res := range results {
		s.TotalTests += res.TotalTests
		s.TotalCorrect += res.TotalCorrect
		if res.Passed {
			s.SkillsPassed++
		} else {
			s.SkillsFailed++
			s.Failed = append(s.Failed, res.Skill)
		}
	}
	s.OverallSuccessRate = rate(s.TotalCorrect, s.TotalTests)
	return s
}

// rate is a percentage; zero when total is zero.
func rate(n, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

func timing(values []float64) Timing {
	if len(values) == 0 {
		return Timing{}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	var sum float64
	for _, v := range sorted {
		sum += v
	}
	mid := len(sorted) / 2
	median := sorted[mid]
	if len(sorted)%2 == 0 {
		median = (sorted[mid-1] + sorted[mid]) / 2
	}
	return Timing{
		Mean:   sum / float64(len(sorted)),
		Median: median,
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
	}
}
