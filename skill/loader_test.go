package skill

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type captureLogger struct {
	debugs []string
	warns  []string
}

func (c *captureLogger) Debug(msg string, args ...any) { c.debugs = append(c.debugs, msg) }
func (c *captureLogger) Warn(msg string, args ...any)  { c.warns = append(c.warns, msg) }

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoaderLoadsJSONAndYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "greet.json"), `{
  "name": "greet",
  "description": "Use when the user says hello",
  "function_code": "func execute() { log(\"[greet] hi\") }"
}`)
	writeFile(t, filepath.Join(dir, "nested", "double.yaml"), `
name: double
description: Use to double a number
role: mathematics
parameters:
  n:
    type: number
    required: true
    description: value to double
function_code: |
  func execute(n) {
      log(sprintf("%v", n * 2))
  }
`)
	writeFile(t, filepath.Join(dir, "broken.json"), `{"name": `)
	writeFile(t, filepath.Join(dir, "notes.txt"), `ignored`)

	logger := &captureLogger{}
	loader := NewLoader(LoaderOptions{Paths: []string{dir}, Logger: logger})
	require.NoError(t, loader.Load())

	require.Equal(t, 2, loader.Count())
	names := []string{}
	for _, s := range loader.List() {
		names = append(names, s.Name)
	}
	require.Equal(t, []string{"double", "greet"}, names)

	double, ok := loader.Get("double")
	require.True(t, ok)
	require.Equal(t, RoleMathematics, double.Role)
	require.Equal(t, TypeNumber, double.Parameters["n"].Type)
	require.True(t, double.Parameters["n"].Required)

	src, ok := loader.Source("greet")
	require.True(t, ok)
	require.Equal(t, filepath.Join(dir, "greet.json"), src)

	require.Len(t, logger.warns, 1)
	require.Contains(t, logger.warns[0], "broken.json")
}

func TestLoaderFirstPathWins(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(first, "a.json"), `{"name": "dup", "description": "first", "function_code": "func execute() {}"}`)
	writeFile(t, filepath.Join(second, "a.json"), `{"name": "dup", "description": "second", "function_code": "func execute() {}"}`)

	loader := NewLoader(LoaderOptions{Paths: []string{first, second}})
	require.NoError(t, loader.Load())
	s, ok := loader.Get("dup")
	require.True(t, ok)
	require.Equal(t, "first", s.Description)
}

func TestLoaderMissingPath(t *testing.T) {
	loader := NewLoader(LoaderOptions{Paths: []string{filepath.Join(t.TempDir(), "absent")}})
	require.NoError(t, loader.Load())
	require.Zero(t, loader.Count())
}

func TestParseFileUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skill.toml")
	writeFile(t, path, "name = 'x'")
	_, err := ParseFile(path)
	require.Error(t, err)
}
