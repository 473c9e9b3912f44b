package sandbox

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// DefaultDockerImage runs the statically linked skillet binary.
const DefaultDockerImage = "alpine:3.20"

// containerExecutable is where the host binary is mounted in the container.
const containerExecutable = "/usr/local/bin/skillet"

// DockerBackend runs children in a throwaway container with a read-only root
// filesystem and no network. The host binary is mounted into the container,
// so it must be built for the container's platform (linux, CGO disabled).
type DockerBackend struct {
	command string
}

func NewDockerBackend() *DockerBackend {
	// Prefer podman on Linux
	if _, err := exec.LookPath("podman"); err == nil {
		return &DockerBackend{command: "podman"}
	}
	return &DockerBackend{command: "docker"}
}

func (d *DockerBackend) Name() string { return d.command }

func (d *DockerBackend) Available() bool {
	if runtime.GOOS != "linux" {
		return false
	}
	if _, err := exec.LookPath(d.command); err != nil {
		return false
	}
	// Verify daemon is running
	cmd := exec.Command(d.command, "info")
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	return cmd.Run() == nil
}

func (d *DockerBackend) WrapCommand(ctx context.Context, cmd *exec.Cmd, cfg *Config) (*exec.Cmd, func(), error) {
	dockerCmd := d.command
	if cfg.Docker.Command != "" {
		dockerCmd = cfg.Docker.Command
	}
	image := cfg.Docker.Image
	if image == "" {
		image = DefaultDockerImage
	}

	args := []string{
		"run", "--rm", "-i", "--init",
		"--read-only",
		"--tmpfs", "/tmp",
	}
	if !cfg.AllowNetwork {
		args = append(args, "--network", "none")
	}
	if cfg.Docker.Memory != "" {
		args = append(args, "--memory", cfg.Docker.Memory)
	}
	if cfg.Docker.CPUs != "" {
		args = append(args, "--cpus", cfg.Docker.CPUs)
	}
	if cfg.Docker.PidsLimit > 0 {
		args = append(args, "--pids-limit", strconv.Itoa(cfg.Docker.PidsLimit))
	}

	addMount := func(hostPath, containerPath, opts string) error {
		if strings.Contains(hostPath, ":") {
			return fmt.Errorf("invalid host path (contains colon): %s", hostPath)
		}
		mount := hostPath + ":" + containerPath
		if opts != "" {
			mount += ":" + opts
		}
		args = append(args, "--volume", mount)
		return nil
	}
	if err := addMount(cmd.Path, containerExecutable, "ro"); err != nil {
		return nil, nil, err
	}
	for _, p := range cfg.ReadPaths {
		root := MountRoot(p)
		if root == "" {
			continue
		}
		if _, err := os.Stat(root); err != nil {
			continue
		}
		if err := addMount(root, root, "ro"); err != nil {
			return nil, nil, err
		}
	}

	for _, kv := range cmd.Env {
		args = append(args, "--env", kv)
	}

	cleanup := func() {}
	if cidFile, err := os.CreateTemp("", "skillet-docker-cid-"); err == nil {
		cidPath := cidFile.Name()
		cidFile.Close()
		os.Remove(cidPath) // Docker wants to create it
		args = append(args, "--cidfile", cidPath)
		cleanup = func() {
			cid, err := os.ReadFile(cidPath)
			if err == nil && len(cid) > 0 {
				exec.Command(dockerCmd, "rm", "-f", strings.TrimSpace(string(cid))).Run()
			}
			os.Remove(cidPath)
		}
	}

	args = append(args, image, containerExecutable)
	args = append(args, cmd.Args[1:]...)

	wrapped := exec.CommandContext(ctx, dockerCmd, args...)
	wrapped.Env = minimalEnv(nil)
	wrapped.Stdin = cmd.Stdin
	wrapped.Stdout = cmd.Stdout
	wrapped.Stderr = cmd.Stderr

	return wrapped, cleanup, nil
}

// MountRoot trims glob segments from a read pattern, leaving the directory
// that has to be mounted for the pattern to match.
func MountRoot(pattern string) string {
	pattern = filepath.Clean(pattern)
	parts := strings.Split(pattern, string(filepath.Separator))
	for i, part := range parts {
		if strings.ContainsAny(part, "*?[{") {
			parts = parts[:i]
			break
		}
	}
	root := strings.Join(parts, string(filepath.Separator))
	if root == "" && strings.HasPrefix(pattern, string(filepath.Separator)) {
		return string(filepath.Separator)
	}
	return root
}
