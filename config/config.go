// Package config loads skillet configuration from YAML or JSON files, .env
// files and SKILLET_* environment variables, and builds the components it
// describes.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"

	"github.com/deepnoodle-ai/skillet/sandbox"
	"github.com/deepnoodle-ai/skillet/script"
	"github.com/deepnoodle-ai/skillet/store"
)

// Oracle providers.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderGoogle = "google"
)

// Default returns the configuration used when no file is given: a file
// store under ~/.skillet and a local Ollama model.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info"},
		Store: StoreConfig{
			Driver: store.DriverFile,
			Dir:    "~/.skillet/skills",
		},
		Oracle: OracleConfig{
			Provider:   ProviderOllama,
			Timeout:    Duration(30 * time.Second),
			MaxRetries: 3,
		},
		Selector: SelectorConfig{
			Concurrency:     8,
			CallTimeout:     Duration(30 * time.Second),
			MaxVibeExamples: 5,
		},
		Sandbox: SandboxConfig{
			Timeout:        Duration(sandbox.DefaultTimeout),
			AllowedModules: append([]string{}, script.DefaultModules...),
			Backend:        sandbox.BackendNone,
		},
		Server: ServerConfig{
			Addr:        "127.0.0.1:8080",
			CORSOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		},
		Watch: WatchConfig{
			Dir:      "skills",
			Debounce: Duration(300 * time.Millisecond),
		},
		Vibe: VibeConfig{
			Iterations: 1,
			Threshold:  0.6,
		},
	}
}

// LoadDotEnv loads .env files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load reads path (or the defaults when path is empty), applies SKILLET_*
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		parsed, err := ParseFile(path)
		if err != nil {
			return nil, err
		}
		cfg = parsed
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerations and limits.
func (c *Config) Validate() error {
	var errs []error
	drivers := []string{store.DriverFile, store.DriverSQLite, store.DriverRedis, store.DriverPostgres, store.DriverMemory}
	if !slices.Contains(drivers, c.Store.Driver) {
		errs = append(errs, fmt.Errorf("store.driver must be one of %s", strings.Join(drivers, ", ")))
	}
	providers := []string{ProviderOllama, ProviderOpenAI, ProviderGoogle}
	if !slices.Contains(providers, c.Oracle.Provider) {
		errs = append(errs, fmt.Errorf("oracle.provider must be one of %s", strings.Join(providers, ", ")))
	}
	backends := []string{"", sandbox.BackendNone, sandbox.BackendAuto, sandbox.BackendSeatbelt, sandbox.BackendDocker, sandbox.BackendPodman}
	if !slices.Contains(backends, c.Sandbox.Backend) {
		errs = append(errs, fmt.Errorf("sandbox.backend %q is not supported", c.Sandbox.Backend))
	}
	if c.Selector.Concurrency < 0 {
		errs = append(errs, errors.New("selector.concurrency must not be negative"))
	}
	if c.Sandbox.Timeout < 0 || c.Selector.CallTimeout < 0 || c.Oracle.Timeout < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	if c.Vibe.Threshold < 0 || c.Vibe.Threshold > 1 {
		errs = append(errs, errors.New("vibe.threshold must be between 0 and 1"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Save writes a Config to a file. The file extension is used to
// determine the configuration format:
// - .json -> JSON
// - .yml or .yaml -> YAML
func (c *Config) Save(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		return c.SaveJSON(path)
	case ".yml", ".yaml":
		return c.SaveYAML(path)
	default:
		return fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// SaveYAML writes a Config to a YAML file
func (c *Config) SaveYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// SaveJSON writes a Config to a JSON file
func (c *Config) SaveJSON(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Write a Config to a writer in YAML format
func (c *Config) Write(w io.Writer) error {
	return yaml.NewEncoder(w).Encode(c)
}
