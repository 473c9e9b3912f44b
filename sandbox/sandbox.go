// Package sandbox tests untrusted skill programs in a separate, time-bounded
// process before they are admitted to a registry.
//
// The Harness re-executes the current binary in child mode (see IsChild and
// RunChild), hands it the program over stdin, and reads back a line protocol
// on stdout:
//
//	SUCCESS
//	LOG: <message>
//	LOG: <message>
//
// A failing child writes "ERROR: <message>" to stderr and exits non-zero.
// The parent kills the child's whole process group when the timeout expires.
// A Manager can additionally wrap the child in an OS-level sandbox.
package sandbox

import (
	"context"
	"fmt"
	"os/exec"
)

// Backend names accepted in Config.Backend.
const (
	BackendNone     = "none"
	BackendAuto     = "auto"
	BackendSeatbelt = "seatbelt"
	BackendDocker   = "docker"
	BackendPodman   = "podman"
)

// Config selects and configures OS-level wrapping of sandbox children.
type Config struct {
	// Backend is "none", "auto", "seatbelt", "docker" or "podman".
	// Empty means none.
	Backend string `json:"backend" yaml:"backend"`

	// AllowNetwork permits outbound network access. Skill tests never need
	// it; it exists for debugging backends.
	AllowNetwork bool `json:"allow_network" yaml:"allow_network"`

	// ReadPaths are host paths made readable inside container backends.
	// Doublestar suffixes such as "/**" are trimmed to their root directory.
	ReadPaths []string `json:"read_paths" yaml:"read_paths"`

	// Docker-specific options
	Docker DockerConfig `json:"docker" yaml:"docker"`

	// Seatbelt-specific options
	Seatbelt SeatbeltConfig `json:"seatbelt" yaml:"seatbelt"`
}

type DockerConfig struct {
	// Image is the container image (default: "alpine:3.20")
	Image string `json:"image" yaml:"image"`

	// Command is "docker" or "podman" (auto-detected if empty)
	Command string `json:"command" yaml:"command"`

	// Memory limit, e.g. "128m"
	Memory string `json:"memory" yaml:"memory"`

	// CPUs limit, e.g. "0.5"
	CPUs string `json:"cpus" yaml:"cpus"`

	// PidsLimit caps the number of processes in the container
	PidsLimit int `json:"pids_limit" yaml:"pids_limit"`
}

type SeatbeltConfig struct {
	// Profile is "restrictive" or "permissive" (default: "restrictive")
	Profile string `json:"profile" yaml:"profile"`

	// CustomProfilePath overrides built-in profiles
	CustomProfilePath string `json:"custom_profile_path" yaml:"custom_profile_path"`
}

// Backend represents a sandboxing implementation
type Backend interface {
	// Name returns the backend identifier
	Name() string

	// Available checks if this backend can be used
	Available() bool

	// WrapCommand wraps a command for sandboxed execution
	WrapCommand(ctx context.Context, cmd *exec.Cmd, cfg *Config) (*exec.Cmd, func(), error)
}

// Manager manages sandbox backends and wraps commands.
type Manager struct {
	backends []Backend
	config   *Config
}

// NewManager creates a new sandbox manager with the given configuration.
func NewManager(cfg *Config) *Manager {
	if cfg == nil {
		cfg = &Config{}
	}
	return &Manager{
		backends: []Backend{
			&SeatbeltBackend{},
			NewDockerBackend(),
		},
		config: cfg,
	}
}

// Config returns the current configuration.
func (m *Manager) Config() *Config {
	return m.config
}

// SelectBackend returns the backend named in the configuration, the first
// available backend for "auto", or nil when wrapping is disabled.
func (m *Manager) SelectBackend() (Backend, error) {
	switch m.config.Backend {
	case "", BackendNone:
		return nil, nil
	case BackendAuto:
		for _, b := range m.backends {
			if b.Available() {
				return b, nil
			}
		}
		return nil, nil
	}
	for _, b := range m.backends {
		if b.Name() == m.config.Backend || (m.config.Backend == BackendDocker && isContainerBackend(b)) {
			if !b.Available() {
				return nil, fmt.Errorf("sandbox backend %q is not available", m.config.Backend)
			}
			return b, nil
		}
	}
	return nil, fmt.Errorf("unknown sandbox backend %q", m.config.Backend)
}

func isContainerBackend(b Backend) bool {
	_, ok := b.(*DockerBackend)
	return ok
}

// Wrap wraps a command for sandboxed execution. With no backend selected the
// command is returned unchanged; the harness's process isolation and timeout
// still apply.
func (m *Manager) Wrap(ctx context.Context, cmd *exec.Cmd) (*exec.Cmd, func(), error) {
	backend, err := m.SelectBackend()
	if err != nil {
		return nil, nil, err
	}
	if backend == nil {
		return cmd, func() {}, nil
	}
	return backend.WrapCommand(ctx, cmd, m.config)
}
