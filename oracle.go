package skillet

import (
	"context"
	"sync"
)

// Oracle answers the questions the selector and extractor ask. It is a
// language model behind a prompt-in, text-out interface; all parsing of its
// answers happens in this package.
type Oracle interface {
	// AskYesNo answers an applicability question. The answer is expected to
	// start with "yes" or "no".
	AskYesNo(ctx context.Context, prompt string) (string, error)

	// AskExtract answers a parameter extraction question with a bare value
	// or NOT_FOUND.
	AskExtract(ctx context.Context, prompt string) (string, error)
}

var _ Oracle = &MockOracle{}

// OracleCall records one question put to a MockOracle.
type OracleCall struct {
	Kind   string
	Prompt string
}

// MockOracle is a scripted Oracle for tests and offline runs.
type MockOracle struct {
	// YesNo answers applicability questions. Nil answers "no".
	YesNo func(ctx context.Context, prompt string) (string, error)

	// Extract answers extraction questions. Nil answers NOT_FOUND.
	Extract func(ctx context.Context, prompt string) (string, error)

	mu    sync.Mutex
	calls []OracleCall
}

func (m *MockOracle) AskYesNo(ctx context.Context, prompt string) (string, error) {
	m.record("yes_no", prompt)
	if m.YesNo == nil {
		return "no", nil
	}
	return m.YesNo(ctx, prompt)
}

func (m *MockOracle) AskExtract(ctx context.Context, prompt string) (string, error) {
	m.record("extract", prompt)
	if m.Extract == nil {
		return NotFound, nil
	}
	return m.Extract(ctx, prompt)
}

func (m *MockOracle) record(kind, prompt string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, OracleCall{Kind: kind, Prompt: prompt})
}

// Calls returns every question asked so far.
func (m *MockOracle) Calls() []OracleCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]OracleCall(nil), m.calls...)
}
