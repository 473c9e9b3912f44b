package config

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/deepnoodle-ai/skillet"
	"github.com/deepnoodle-ai/skillet/oracle/google"
	"github.com/deepnoodle-ai/skillet/oracle/openai"
	"github.com/deepnoodle-ai/skillet/sandbox"
	"github.com/deepnoodle-ai/skillet/slogger"
	"github.com/deepnoodle-ai/skillet/store"
)

// NewLogger builds the logger described by the log section. Output goes to
// stderr.
func (c *Config) NewLogger() slogger.Logger {
	return slogger.NewWithOptions(slogger.Options{
		Writer: os.Stderr,
		Level:  slogger.LevelFromString(c.Log.Level),
		JSON:   c.Log.JSON,
	})
}

// StoreOptions converts the store section.
func (c *Config) StoreOptions() store.Options {
	return store.Options{
		Driver: c.Store.Driver,
		Dir:    c.Store.Dir,
		DSN:    c.Store.DSN,
		URL:    c.Store.URL,
		Prefix: c.Store.Prefix,
	}
}

// OpenStore opens the configured skill store.
func (c *Config) OpenStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, c.StoreOptions())
}

// NewOracle builds the configured oracle provider.
func (c *Config) NewOracle(logger slogger.Logger) (skillet.Oracle, error) {
	oc := c.Oracle
	httpClient := &http.Client{Timeout: oc.Timeout.Std()}
	switch oc.Provider {
	case ProviderOllama, ProviderOpenAI:
		opts := []openai.Option{
			openai.WithLogger(logger),
			openai.WithHTTPClient(httpClient),
			openai.WithMaxRetries(oc.MaxRetries),
		}
		if oc.Model != "" {
			opts = append(opts, openai.WithModel(oc.Model))
		}
		if oc.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(oc.BaseURL))
		}
		if oc.APIKey != "" {
			opts = append(opts, openai.WithAPIKey(oc.APIKey))
		}
		if oc.MaxTokens > 0 {
			opts = append(opts, openai.WithMaxTokens(oc.MaxTokens))
		}
		if oc.Provider == ProviderOllama {
			return openai.NewOllama(opts...), nil
		}
		return openai.New(opts...), nil
	case ProviderGoogle:
		opts := []google.Option{
			google.WithLogger(logger),
			google.WithHTTPClient(httpClient),
			google.WithMaxRetries(oc.MaxRetries),
		}
		if oc.Model != "" {
			opts = append(opts, google.WithModel(oc.Model))
		}
		if oc.BaseURL != "" {
			opts = append(opts, google.WithBaseURL(oc.BaseURL))
		}
		if oc.APIKey != "" {
			opts = append(opts, google.WithAPIKey(oc.APIKey))
		}
		if oc.Project != "" {
			opts = append(opts, google.WithProjectID(oc.Project), google.WithLocation(oc.Location))
		}
		if oc.MaxTokens > 0 {
			opts = append(opts, google.WithMaxTokens(oc.MaxTokens))
		}
		return google.New(opts...), nil
	default:
		return nil, fmt.Errorf("unknown oracle provider %q", oc.Provider)
	}
}

// RegistryOptions converts the script section for a registry backed by st.
func (c *Config) RegistryOptions(st store.Store, logger slogger.Logger) skillet.RegistryOptions {
	return skillet.RegistryOptions{
		Store:     st,
		Logger:    logger,
		ReadPaths: c.Script.ReadPaths,
		Modules:   c.Script.Modules,
	}
}

// SelectorOptions converts the selector section.
func (c *Config) SelectorOptions(oracle skillet.Oracle, logger slogger.Logger) skillet.SelectorOptions {
	extractor := skillet.NewExtractor(skillet.ExtractorOptions{
		Oracle:      oracle,
		Logger:      logger,
		CallTimeout: c.Selector.CallTimeout.Std(),
	})
	return skillet.SelectorOptions{
		Oracle:          oracle,
		Extractor:       extractor,
		Logger:          logger,
		Concurrency:     c.Selector.Concurrency,
		CallTimeout:     c.Selector.CallTimeout.Std(),
		MaxVibeExamples: c.Selector.MaxVibeExamples,
	}
}

// SandboxConfig converts the sandbox section into backend configuration.
func (c *Config) SandboxConfig() *sandbox.Config {
	return &sandbox.Config{
		Backend:   c.Sandbox.Backend,
		ReadPaths: c.Script.ReadPaths,
		Docker:    c.Sandbox.Docker,
		Seatbelt:  c.Sandbox.Seatbelt,
	}
}

// NewHarness builds the sandbox test harness. The current executable is
// re-executed in child mode.
func (c *Config) NewHarness(logger slogger.Logger) (*sandbox.Harness, error) {
	return sandbox.NewHarness(sandbox.HarnessOptions{
		Timeout:   c.Sandbox.Timeout.Std(),
		Modules:   c.Sandbox.AllowedModules,
		ReadPaths: c.Script.ReadPaths,
		Manager:   sandbox.NewManager(c.SandboxConfig()),
		Logger:    logger,
	})
}

// WatcherOptions converts the watch section.
func (c *Config) WatcherOptions(registry *skillet.Registry, logger slogger.Logger) skillet.WatcherOptions {
	return skillet.WatcherOptions{
		Dir:      c.Watch.Dir,
		Registry: registry,
		Logger:   logger,
		Debounce: c.Watch.Debounce.Std(),
	}
}
