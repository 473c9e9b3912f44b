package skillet

import (
	"context"
	"strings"
	"time"

	"github.com/deepnoodle-ai/skillet/skill"
	"github.com/deepnoodle-ai/skillet/slogger"
)

// NotFound is the sentinel the oracle answers with when an utterance holds no
// value for a parameter.
const NotFound = "NOT_FOUND"

// DefaultCallTimeout bounds a single oracle call.
const DefaultCallTimeout = 30 * time.Second

// ExtractorOptions configures an Extractor.
type ExtractorOptions struct {
	Oracle      Oracle
	Logger      slogger.Logger
	CallTimeout time.Duration
}

// Extractor derives typed parameter values from an utterance.
type Extractor struct {
	oracle      Oracle
	logger      slogger.Logger
	callTimeout time.Duration
}

// NewExtractor creates an Extractor.
func NewExtractor(opts ExtractorOptions) *Extractor {
	if opts.Logger == nil {
		opts.Logger = slogger.DefaultLogger
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	return &Extractor{oracle: opts.Oracle, logger: opts.Logger, callTimeout: opts.CallTimeout}
}

// Extract asks the oracle for one parameter's value. It returns false when
// the value is absent: the oracle said NOT_FOUND, answered with nothing
// usable for the declared type, or failed.
func (x *Extractor) Extract(ctx context.Context, utterance, skillName, paramName string, p skill.Parameter) (any, bool) {
	prompt, err := executeTemplate(extractionPromptTemplate, extractionPromptData{
		Skill:       skillName,
		Name:        paramName,
		Type:        p.Type,
		Description: p.Description,
		Required:    p.Required,
		Utterance:   utterance,
		NotFound:    NotFound,
	})
	if err != nil {
		x.logger.Error("failed to build extraction prompt", "skill", skillName, "param", paramName, "error", err)
		return nil, false
	}

	callCtx, cancel := context.WithTimeout(ctx, x.callTimeout)
	defer cancel()
	raw, err := x.oracle.AskExtract(callCtx, prompt)
	if err != nil {
		x.logger.Debug("extraction failed, treating parameter as absent",
			"skill", skillName, "param", paramName, "error", err)
		return nil, false
	}
	value, ok := ParseExtraction(p.Type, raw)
	x.logger.Debug("extracted parameter", "skill", skillName, "param", paramName, "raw", raw, "found", ok)
	return value, ok
}

// ExtractAll extracts every declared parameter of s independently. Absent
// parameters are omitted from the result.
func (x *Extractor) ExtractAll(ctx context.Context, utterance string, s *skill.Skill) map[string]any {
	params := map[string]any{}
	for _, name := range s.ParameterNames() {
		if ctx.Err() != nil {
			break
		}
		if v, ok := x.Extract(ctx, utterance, s.Name, name, s.Parameters[name]); ok {
			params[name] = v
		}
	}
	return params
}

// ParseExtraction converts a raw extraction answer to the declared type.
func ParseExtraction(t skill.ParamType, raw string) (any, bool) {
	answer := StripThinking(raw)
	if answer == "" || strings.Contains(strings.ToUpper(answer), NotFound) {
		return nil, false
	}
	switch t {
	case skill.TypeNumber:
		f, ok := skill.ParseNumber(answer)
		return f, ok
	case skill.TypeBoolean:
		b, ok := skill.ParseBool(trimQuotes(answer))
		return b, ok
	default:
		answer = trimQuotes(answer)
		return answer, answer != ""
	}
}

func trimQuotes(s string) string {
	s = strings.TrimSpace(s)
	for _, q := range []string{`"`, `'`, "`"} {
		if len(s) >= 2 && strings.HasPrefix(s, q) && strings.HasSuffix(s, q) {
			return strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	return s
}
