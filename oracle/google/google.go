// Package google answers oracle questions with Gemini models through the
// genai SDK.
package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/deepnoodle-ai/skillet"
	"github.com/deepnoodle-ai/skillet/retry"
	"github.com/deepnoodle-ai/skillet/slogger"
)

const ProviderName = "google"

var (
	DefaultModel         = "gemini-2.5-flash"
	DefaultMaxTokens     = 256
	DefaultMaxRetries    = 3
	DefaultRetryBaseWait = 1 * time.Second
)

var _ skillet.Oracle = &Oracle{}

type Oracle struct {
	client        *genai.Client
	projectID     string
	location      string
	apiKey        string
	baseURL       string
	model         string
	maxTokens     int
	maxRetries    int
	retryBaseWait time.Duration
	httpClient    *http.Client
	logger        slogger.Logger
	mutex         sync.Mutex
}

// New returns a Gemini oracle. The API key defaults to GEMINI_API_KEY, then
// GOOGLE_API_KEY.
func New(opts ...Option) *Oracle {
	var apiKey string
	if value := os.Getenv("GEMINI_API_KEY"); value != "" {
		apiKey = value
	} else if value := os.Getenv("GOOGLE_API_KEY"); value != "" {
		apiKey = value
	}
	o := &Oracle{
		apiKey:        apiKey,
		model:         DefaultModel,
		maxTokens:     DefaultMaxTokens,
		maxRetries:    DefaultMaxRetries,
		retryBaseWait: DefaultRetryBaseWait,
		logger:        slogger.DefaultLogger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Oracle) initClient(ctx context.Context) (*genai.Client, error) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	if o.client != nil {
		return o.client, nil
	}
	cfg := &genai.ClientConfig{
		APIKey:     o.apiKey,
		Project:    o.projectID,
		Location:   o.location,
		HTTPClient: o.httpClient,
	}
	if o.projectID == "" {
		cfg.Backend = genai.BackendGeminiAPI
	} else {
		cfg.Backend = genai.BackendVertexAI
	}
	if o.baseURL != "" {
		cfg.HTTPOptions.BaseURL = o.baseURL
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create google genai client: %w", err)
	}
	o.client = client
	return o.client, nil
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
	client, err := o.initClient(ctx)
	if err != nil {
		return "", err
	}
	genConfig := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	}
	if o.maxTokens > 0 {
		genConfig.MaxOutputTokens = int32(o.maxTokens)
	}

	var answer string
	err = retry.Do(ctx, func() error {
		resp, err := client.Models.GenerateContent(ctx, o.model, genai.Text(prompt), genConfig)
		if err != nil {
			var apiErr genai.APIError
			if errors.As(err, &apiErr) {
				if apiErr.Code == http.StatusTooManyRequests {
					o.logger.Warn("rate limit exceeded", "provider", ProviderName, "model", o.model)
				}
				return &statusError{code: apiErr.Code, err: err}
			}
			return fmt.Errorf("error generating content: %w", err)
		}
		if len(resp.Candidates) == 0 {
			return errors.New("empty response from genai api")
		}
		answer = strings.TrimSpace(resp.Text())
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
