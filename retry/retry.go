// Package retry runs oracle requests with exponential backoff.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net/http"
	"time"
)

const (
	DefaultMaxRetries = 3
	DefaultBaseWait   = 1 * time.Second
)

// Func is a function that can be retried.
type Func func() error

// Options configures Do.
type Options struct {
	MaxRetries int
	BaseWait   time.Duration
	OnRetry    func(attempt int, err error)
}

// Option mutates Options.
type Option func(*Options)

// WithMaxRetries sets the total number of attempts.
func WithMaxRetries(n int) Option {
	return func(o *Options) { o.MaxRetries = n }
}

// WithBaseWait sets the initial backoff. Each retry doubles it.
func WithBaseWait(d time.Duration) Option {
	return func(o *Options) { o.BaseWait = d }
}

// WithOnRetry registers a callback invoked before each retry.
func WithOnRetry(fn func(attempt int, err error)) Option {
	return func(o *Options) { o.OnRetry = fn }
}

// Do calls f until it succeeds, returns a non-recoverable error, the attempt
// budget is spent, or ctx is done. Only errors marked recoverable, or API
// errors with a retryable status code, are retried.
func Do(ctx context.Context, f Func, opts ...Option) error {
	o := Options{MaxRetries: DefaultMaxRetries, BaseWait: DefaultBaseWait}
	for _, opt := range opts {
		opt(&o)
	}
	if o.MaxRetries < 1 {
		o.MaxRetries = 1
	}

	var lastErr error
	for attempt := 0; attempt < o.MaxRetries; attempt++ {
		if attempt > 0 {
			if o.OnRetry != nil {
				o.OnRetry(attempt, lastErr)
			}
			backoff := time.Duration(float64(o.BaseWait) * math.Pow(2, float64(attempt-1)))
			jitter := time.Duration(rand.Float64() * float64(backoff) * 0.1)
			timer := time.NewTimer(backoff + jitter)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		err := f()
		if err == nil {
			return nil
		}
		lastErr = unwrapRecoverable(err)
		if !shouldRetry(err) {
			return lastErr
		}
	}
	return lastErr
}

func shouldRetry(err error) bool {
	if IsRecoverable(err) {
		return true
	}
	var apiErr APIError
	if errors.As(err, &apiErr) {
		return ShouldRetry(apiErr.StatusCode())
	}
	return false
}

// ShouldRetry determines if the given status code should trigger a retry
func ShouldRetry(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || // 429
		statusCode == http.StatusBadGateway || // 502
		statusCode == http.StatusServiceUnavailable || // 503
		statusCode == http.StatusGatewayTimeout // 504
}

// APIError is implemented by errors that carry an HTTP status code.
type APIError interface {
	error
	StatusCode() int
}

// RecoverableError marks an error as safe to retry.
type RecoverableError struct {
	Err error
}

func (e *RecoverableError) Error() string { return e.Err.Error() }
func (e *RecoverableError) Unwrap() error { return e.Err }

// NewRecoverableError wraps err so that Do retries it.
func NewRecoverableError(err error) error {
	if err == nil {
		return nil
	}
	return &RecoverableError{Err: err}
}

// IsRecoverable reports whether err was marked with NewRecoverableError.
func IsRecoverable(err error) bool {
	var r *RecoverableError
	return errors.As(err, &r)
}

func unwrapRecoverable(err error) error {
	var r *RecoverableError
	if errors.As(err, &r) {
		return r.Err
	}
	return err
}
