package skill

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuiltins(t *testing.T) {
	builtins := Builtins()
	names := make([]string, 0, len(builtins))
	for _, s := range builtins {
		names = append(names, s.Name)
	}
	require.Equal(t, []string{
		"fear", "fileReader", "directoryReader", "getWeather",
		"getTime", "square_root", "calculate", "customScript",
	}, names)

	for _, s := range builtins {
		require.True(t, IsBuiltin(s.Name))
		require.Equal(t, s.Name != "customScript", s.Verified, s.Name)
	}
	require.False(t, IsBuiltin("nope"))
}

func TestBuiltinsAreFreshCopies(t *testing.T) {
	a := Builtins()
	a[0].ExecutionCount = 99
	a[1].Parameters["other"] = Parameter{Type: TypeString}

	b := Builtins()
	require.Zero(t, b[0].ExecutionCount)
	require.NotContains(t, b[1].Parameters, "other")
}
