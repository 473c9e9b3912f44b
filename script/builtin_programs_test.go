package script_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/deepnoodle-ai/skillet/script"
	"github.com/deepnoodle-ai/skillet/skill"
	"github.com/stretchr/testify/require"
)

func builtinProgram(t *testing.T, name string) *script.Program {
	t.Helper()
	for _, s := range skill.Builtins() {
		if s.Name == name {
			prog, err := script.Compile(context.Background(), s.FunctionCode)
			require.NoError(t, err)
			return prog
		}
	}
	t.Fatalf("no builtin skill %q", name)
	return nil
}

func run(t *testing.T, prog *script.Program, env script.Env, args map[string]any) []string {
	t.Helper()
	var out []string
	env.Log = func(msg string) { out = append(out, msg) }
	require.NoError(t, prog.Call(context.Background(), env, args))
	return out
}

func TestBuiltinsCompile(t *testing.T) {
	for _, s := range skill.Builtins() {
		t.Run(s.Name, func(t *testing.T) {
			prog, err := script.Compile(context.Background(), s.FunctionCode)
			require.NoError(t, err)
			require.ElementsMatch(t, s.ParameterNames(), prog.Params())
		})
	}
}

func TestSquareRoot(t *testing.T) {
	prog := builtinProgram(t, "square_root")

	out := run(t, prog, script.Env{}, map[string]any{"number": 16.0})
	require.Contains(t, out, "[Square Root] Result: 4")
	require.Contains(t, out, "[Square Root] 16 is a perfect square")

	out = run(t, prog, script.Env{}, map[string]any{"number": 2.0})
	require.Contains(t, out, "[Square Root] Result: 1.414214")
	require.Contains(t, out, "[Square Root] Rounded to 2 decimal places: 1.41")

	out = run(t, prog, script.Env{}, map[string]any{"number": -4.0})
	require.Contains(t, out, "[Square Root] Result: 2.000000i (imaginary number)")

	out = run(t, prog, script.Env{}, nil)
	require.Equal(t, []string{"[Square Root] Error: No number provided for square root calculation"}, out)
}

func TestCalculate(t *testing.T) {
	prog := builtinProgram(t, "calculate")

	out := run(t, prog, script.Env{}, map[string]any{"expression": "5 + 3"})
	require.Contains(t, out, "[Calculator] Result: 5 + 3 = 8")
	require.Contains(t, out, "[Calculator] Operation type: Addition")

	out = run(t, prog, script.Env{}, map[string]any{"expression": "7 / 2"})
	require.Contains(t, out, "[Calculator] Result: 7 / 2 = 3.5")
	require.Contains(t, out, "[Calculator] Note: Result includes decimal portion")

	out = run(t, prog, script.Env{}, map[string]any{"expression": "1 / 0"})
	require.Contains(t, out, "[Calculator] Error: Division by zero!")

	out = run(t, prog, script.Env{}, map[string]any{"expression": "rm -rf /"})
	require.Contains(t, out, "[Calculator] Error: Expression contains invalid characters")
}

func TestGetWeatherDefaultsLocation(t *testing.T) {
	prog := builtinProgram(t, "getWeather")
	out := run(t, prog, script.Env{}, nil)
	require.Equal(t, "[Weather Check] Retrieving weather information for current location", out[0])
	require.Contains(t, out, "[Weather] UV Index: 6 (High) - Sun protection recommended")
}

func TestGetTime(t *testing.T) {
	prog := builtinProgram(t, "getTime")
	now := time.Date(2025, time.June, 2, 9, 30, 0, 0, time.UTC)
	env := script.Env{Now: func() time.Time { return now }}

	out := run(t, prog, env, map[string]any{"timezone": "PST"})
	require.Equal(t, "[Time Check] Retrieving current time for PST", out[0])
	require.Contains(t, out, "[Time] Current time: 09:30:00 AM")
	require.Contains(t, out, "[Time] Date: Monday, June 02, 2025")
	require.Contains(t, out, "[Time] Period: Morning")
	require.Contains(t, out, "[Time] Note: Timezone conversion for 'PST' would be applied in production")
}

func TestFileReader(t *testing.T) {
	prog := builtinProgram(t, "fileReader")
	dir := t.TempDir()
	path := filepath.Join(dir, "paper.txt")
	require.NoError(t, os.WriteFile(path, []byte("abstract"), 0o644))

	out := run(t, prog, script.Env{ReadPaths: []string{dir + "/**"}}, map[string]any{"filePath": path})
	require.Equal(t, "[fileReader] here is the filePath: "+path+" contents:\n\nabstract", out[len(out)-1])

	out = run(t, prog, script.Env{}, map[string]any{"filePath": path})
	require.Equal(t, "[fileReader] Access to filePath: "+path+" is not permitted", out[len(out)-1])

	missing := filepath.Join(dir, "missing.txt")
	out = run(t, prog, script.Env{ReadPaths: []string{dir + "/**"}}, map[string]any{"filePath": missing})
	require.Contains(t, out[len(out)-1], "file not found")
}

func TestDirectoryReader(t *testing.T) {
	prog := builtinProgram(t, "directoryReader")
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("alpha"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	out := run(t, prog, script.Env{ReadPaths: []string{dir + "/**"}}, map[string]any{"dir": dir})
	require.Contains(t, out, "[directoryReader] Here is file contents for: "+filepath.Join(dir, "a.txt")+":\nalpha")
	require.Contains(t, out, "[directoryReader] Now looking at item: nested at "+filepath.Join(dir, "nested"))

	out = run(t, prog, script.Env{}, map[string]any{"dir": dir})
	require.Equal(t, "[directoryReader] Error: Access to "+dir+" is not permitted", out[len(out)-1])
}

func TestFear(t *testing.T) {
	out := run(t, builtinProgram(t, "fear"), script.Env{}, nil)
	require.Len(t, out, 1)
	require.Contains(t, out[0], "[fear response]")
}
