package sandbox

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"text/template"
)

//go:embed profiles/restrictive.sb.tmpl
var restrictiveProfileTmpl string

//go:embed profiles/permissive.sb.tmpl
var permissiveProfileTmpl string

// SeatbeltBackend wraps children with macOS sandbox-exec.
type SeatbeltBackend struct{}

func (s *SeatbeltBackend) Name() string { return BackendSeatbelt }

func (s *SeatbeltBackend) Available() bool {
	if runtime.GOOS != "darwin" {
		return false
	}
	_, err := exec.LookPath("sandbox-exec")
	return err == nil
}

type seatbeltTemplateData struct {
	Executable   string
	TmpDir       string
	AllowNetwork bool
}

// RenderProfile renders the configured seatbelt profile for executable.
func (s *SeatbeltBackend) RenderProfile(executable string, cfg *Config) (string, error) {
	tmplStr := restrictiveProfileTmpl
	if cfg.Seatbelt.Profile == "permissive" {
		tmplStr = permissiveProfileTmpl
	}
	if cfg.Seatbelt.CustomProfilePath != "" {
		data, err := os.ReadFile(cfg.Seatbelt.CustomProfilePath)
		if err != nil {
			return "", fmt.Errorf("read custom profile: %w", err)
		}
		tmplStr = string(data)
	}

	tmpl, err := template.New("profile").Parse(tmplStr)
	if err != nil {
		return "", fmt.Errorf("parse profile template: %w", err)
	}

	tmpDir := os.TempDir()
	if resolved, err := filepath.EvalSymlinks(tmpDir); err == nil {
		tmpDir = resolved
	}
	if resolved, err := filepath.EvalSymlinks(executable); err == nil {
		executable = resolved
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, seatbeltTemplateData{
		Executable:   executable,
		TmpDir:       tmpDir,
		AllowNetwork: cfg.AllowNetwork,
	})
	if err != nil {
		return "", fmt.Errorf("execute profile template: %w", err)
	}
	return buf.String(), nil
}

func (s *SeatbeltBackend) WrapCommand(ctx context.Context, cmd *exec.Cmd, cfg *Config) (*exec.Cmd, func(), error) {
	profile, err := s.RenderProfile(cmd.Path, cfg)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.CreateTemp("", "skillet-sandbox-*.sb")
	if err != nil {
		return nil, nil, err
	}
	profilePath := f.Name()
	if _, err := f.WriteString(profile); err != nil {
		f.Close()
		os.Remove(profilePath)
		return nil, nil, err
	}
	f.Close()

	cleanup := func() {
		os.Remove(profilePath)
	}

	args := []string{"-f", profilePath, cmd.Path}
	if len(cmd.Args) > 1 {
		args = append(args, cmd.Args[1:]...)
	}

	wrapped := exec.CommandContext(ctx, "sandbox-exec", args...)
	wrapped.Dir = cmd.Dir
	wrapped.Env = cmd.Env
	wrapped.Stdin = cmd.Stdin
	wrapped.Stdout = cmd.Stdout
	wrapped.Stderr = cmd.Stderr

	return wrapped, cleanup, nil
}
