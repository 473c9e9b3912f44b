package skillet

import (
	"regexp"
	"strings"
)

// Decision is the parsed answer to an applicability question.
type Decision int

const (
	// Indeterminate covers empty or garbled answers and failed oracle calls.
	Indeterminate Decision = iota
	Yes
	No
)

func (d Decision) String() string {
	switch d {
	case Yes:
		return "yes"
	case No:
		return "no"
	default:
		return "indeterminate"
	}
}

func (d Decision) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Selected applies the selection policy: only an explicit Yes selects a
// skill. Indeterminate answers, including oracle timeouts and transport
// errors, are treated as No. Under a degraded oracle this under-triggers
// skills rather than running them on a guess.
func (d Decision) Selected() bool {
	return d == Yes
}

var thinkingBlock = regexp.MustCompile(`(?is)<think>.*?</think>`)

// StripThinking removes <think>...</think> blocks from a model answer. An
// unterminated block drops everything after its opening tag.
func StripThinking(text string) string {
	text = thinkingBlock.ReplaceAllString(text, "")
	if i := strings.Index(strings.ToLower(text), "<think>"); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text)
}

// ParseDecision interprets a raw yes/no answer.
func ParseDecision(raw string) Decision {
	answer := strings.ToLower(StripThinking(raw))
	switch {
	case strings.HasPrefix(answer, "yes"):
		return Yes
	case strings.HasPrefix(answer, "no"):
		return No
	default:
		return Indeterminate
	}
}
