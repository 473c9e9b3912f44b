package openai

import (
	"net/http"
	"time"

	"github.com/deepnoodle-ai/skillet/slogger"
)

// Option configures an Oracle.
type Option func(*Oracle)

// WithAPIKey sets the API key. Ollama accepts any value.
func WithAPIKey(apiKey string) Option {
	return func(o *Oracle) {
		o.apiKey = apiKey
	}
}

// WithBaseURL sets the API base URL, e.g. "http://localhost:11434/v1".
func WithBaseURL(baseURL string) Option {
	return func(o *Oracle) {
		o.baseURL = baseURL
	}
}

// WithModel sets the chat model.
func WithModel(model string) Option {
	return func(o *Oracle) {
		o.model = model
	}
}

// WithMaxTokens caps the answer length.
func WithMaxTokens(maxTokens int) Option {
	return func(o *Oracle) {
		o.maxTokens = maxTokens
	}
}

// WithMaxRetries sets the total number of attempts per question.
func WithMaxRetries(maxRetries int) Option {
	return func(o *Oracle) {
		o.maxRetries = maxRetries
	}
}

// WithRetryBaseWait sets the base wait time for retries.
func WithRetryBaseWait(retryBaseWait time.Duration) Option {
	return func(o *Oracle) {
		o.retryBaseWait = retryBaseWait
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *Oracle) {
		o.httpClient = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger slogger.Logger) Option {
	return func(o *Oracle) {
		o.logger = logger
	}
}
