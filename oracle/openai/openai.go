// Package openai answers oracle questions through an OpenAI-compatible chat
// completions endpoint. Ollama serves the same API under /v1, which makes it
// the default for local models.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/deepnoodle-ai/skillet"
	"github.com/deepnoodle-ai/skillet/retry"
	"github.com/deepnoodle-ai/skillet/slogger"
)

const ProviderName = "openai"

var (
	DefaultModel         = "gpt-4o-mini"
	DefaultOllamaModel   = "gemma3:4b"
	DefaultOllamaBaseURL = "http://localhost:11434/v1"
	DefaultMaxTokens     = 256
	DefaultMaxRetries    = 3
	DefaultRetryBaseWait = 1 * time.Second
)

var _ skillet.Oracle = &Oracle{}

// Oracle asks a chat model each question as a single user message at
// temperature zero.
type Oracle struct {
	client        openai.Client
	apiKey        string
	baseURL       string
	model         string
	maxTokens     int
	maxRetries    int
	retryBaseWait time.Duration
	httpClient    *http.Client
	logger        slogger.Logger
}

// New returns an Oracle for the OpenAI API. The API key defaults to the
// OPENAI_API_KEY environment variable.
func New(opts ...Option) *Oracle {
	o := &Oracle{
		apiKey:        os.Getenv("OPENAI_API_KEY"),
		model:         DefaultModel,
		maxTokens:     DefaultMaxTokens,
		maxRetries:    DefaultMaxRetries,
		retryBaseWait: DefaultRetryBaseWait,
		logger:        slogger.DefaultLogger,
	}
	for _, opt := range opts {
		opt(o)
	}
	// Retries are handled here so that they respect the per-call deadline.
	clientOpts := []option.RequestOption{option.WithMaxRetries(0)}
	if o.apiKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(o.apiKey))
	}
	if o.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(o.baseURL))
	}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(o.httpClient))
	}
	o.client = openai.NewClient(clientOpts...)
	return o
}

// NewOllama returns an Oracle for a local Ollama server.
func NewOllama(opts ...Option) *Oracle {
	base := []Option{
		WithBaseURL(DefaultOllamaBaseURL),
		WithModel(DefaultOllamaModel),
		WithAPIKey("ollama"),
	}
	return New(append(base, opts...)...)
}

func (o *Oracle) Name() string {
	return ProviderName
}

func (o *Oracle) Model() string {
	return o.model
}

func (o *Oracle) AskYesNo(ctx context.Context, prompt string) (string, error) {
	return o.ask(ctx, prompt)
}

func (o *Oracle) AskExtract(ctx context.Context, prompt string) (string, error) {
	return o.ask(ctx, prompt)
}

func (o *Oracle) ask(ctx context.Context, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(0),
	}
	if o.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(o.maxTokens))
	}

	var answer string
	err := retry.Do(ctx, func() error {
		resp, err := o.client.Chat.Completions.New(ctx, params)
		if err != nil {
			var apiErr *openai.Error
			if errors.As(err, &apiErr) {
				if apiErr.StatusCode == http.StatusTooManyRequests {
					o.logger.Warn("rate limit exceeded", "provider", ProviderName, "model", o.model)
				}
				return &statusError{code: apiErr.StatusCode, err: err}
			}
			return fmt.Errorf("error making request: %w", err)
		}
		if len(resp.Choices) == 0 {
			return errors.New("empty response from chat completions api")
		}
		answer = resp.Choices[0].Message.Content
		return nil
	}, retry.WithMaxRetries(o.maxRetries), retry.WithBaseWait(o.retryBaseWait))
	if err != nil {
		return "", err
	}
	return answer, nil
}

type statusError struct {
	code int
	err  error
}

func (e *statusError) Error() string   { return e.err.Error() }
func (e *statusError) Unwrap() error   { return e.err }
func (e *statusError) StatusCode() int { return e.code }
