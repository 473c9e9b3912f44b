package google

import (
	"net/http"
	"time"

	"github.com/deepnoodle-ai/skillet/slogger"
)

// Option is a function that configures the Google oracle.
type Option func(*Oracle)

// WithProjectID selects the Vertex AI backend for the given project.
func WithProjectID(projectID string) Option {
	return func(o *Oracle) {
		o.projectID = projectID
	}
}

// WithLocation sets the Google Cloud location/region.
func WithLocation(location string) Option {
	return func(o *Oracle) {
		o.location = location
	}
}

// WithAPIKey sets the API key for the oracle.
func WithAPIKey(apiKey string) Option {
	return func(o *Oracle) {
		o.apiKey = apiKey
	}
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(baseURL string) Option {
	return func(o *Oracle) {
		o.baseURL = baseURL
	}
}

// WithModel sets the model.
func WithModel(model string) Option {
	return func(o *Oracle) {
		o.model = model
	}
}

// WithMaxTokens sets the maximum answer tokens.
func WithMaxTokens(maxTokens int) Option {
	return func(o *Oracle) {
		o.maxTokens = maxTokens
	}
}

// WithMaxRetries sets the maximum number of attempts.
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
