package config

import (
	"fmt"
	"time"

	"github.com/deepnoodle-ai/skillet/sandbox"
)

// Config is the top-level skillet configuration.
type Config struct {
	Log      LogConfig      `json:"log" yaml:"log"`
	Store    StoreConfig    `json:"store" yaml:"store"`
	Oracle   OracleConfig   `json:"oracle" yaml:"oracle"`
	Selector SelectorConfig `json:"selector" yaml:"selector"`
	Sandbox  SandboxConfig  `json:"sandbox" yaml:"sandbox"`
	Script   ScriptConfig   `json:"script" yaml:"script"`
	Server   ServerConfig   `json:"server" yaml:"server"`
	Watch    WatchConfig    `json:"watch" yaml:"watch"`
	Vibe     VibeConfig     `json:"vibe" yaml:"vibe"`
}

type LogConfig struct {
	Level string `json:"level" yaml:"level"`
	JSON  bool   `json:"json" yaml:"json"`
}

// StoreConfig selects the persistence backend for skill records.
type StoreConfig struct {
	Driver string `json:"driver" yaml:"driver"`
	Dir    string `json:"dir,omitempty" yaml:"dir,omitempty"`
	DSN    string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	URL    string `json:"url,omitempty" yaml:"url,omitempty"`
	Prefix string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
}

// OracleConfig selects the model that answers selection and extraction
// questions.
type OracleConfig struct {
	Provider   string   `json:"provider" yaml:"provider"`
	Model      string   `json:"model,omitempty" yaml:"model,omitempty"`
	BaseURL    string   `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	APIKey     string   `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	Project    string   `json:"project,omitempty" yaml:"project,omitempty"`
	Location   string   `json:"location,omitempty" yaml:"location,omitempty"`
	Timeout    Duration `json:"timeout" yaml:"timeout"`
	MaxRetries int      `json:"max_retries" yaml:"max_retries"`
	MaxTokens  int      `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
}

type SelectorConfig struct {
	Concurrency     int      `json:"concurrency" yaml:"concurrency"`
	CallTimeout     Duration `json:"call_timeout" yaml:"call_timeout"`
	MaxVibeExamples int      `json:"max_vibe_examples" yaml:"max_vibe_examples"`
}

type SandboxConfig struct {
	Timeout        Duration               `json:"timeout" yaml:"timeout"`
	AllowedModules []string               `json:"allowed_modules" yaml:"allowed_modules"`
	Backend        string                 `json:"backend" yaml:"backend"`
	Docker         sandbox.DockerConfig   `json:"docker" yaml:"docker"`
	Seatbelt       sandbox.SeatbeltConfig `json:"seatbelt" yaml:"seatbelt"`
}

type ScriptConfig struct {
	ReadPaths []string `json:"read_paths" yaml:"read_paths"`
	Modules   []string `json:"modules" yaml:"modules"`
}

type ServerConfig struct {
	Addr        string   `json:"addr" yaml:"addr"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins"`
}

// WatchConfig enables hot reload of a skill definition directory.
type WatchConfig struct {
	Enabled  bool     `json:"enabled" yaml:"enabled"`
	Dir      string   `json:"dir" yaml:"dir"`
	Debounce Duration `json:"debounce" yaml:"debounce"`
}

type VibeConfig struct {
	Iterations int     `json:"iterations" yaml:"iterations"`
	Threshold  float64 `json:"threshold" yaml:"threshold"`
	ReportPath string  `json:"report_path,omitempty" yaml:"report_path,omitempty"`
}

// Duration is a time.Duration written as a string such as "30s".
type Duration time.Duration

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}
