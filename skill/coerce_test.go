package skill

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		input string
		want  float64
		ok    bool
	}{
		{"16", 16, true},
		{" 2.5 ", 2.5, true},
		{"-4", -4, true},
		{"The number is 16.", 16, true},
		{"about -3.75 or so", -3.75, true},
		{"1e3", 1000, true},
		{"twelve", 0, false},
		{"", 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, ok := ParseNumber(tc.input)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestParseBool(t *testing.T) {
	for _, in := range []string{"true", "Yes", "y", "1", "ON", "true."} {
		v, ok := ParseBool(in)
		require.True(t, ok, in)
		require.True(t, v, in)
	}
	for _, in := range []string{"false", "No", "n", "0", "off"} {
		v, ok := ParseBool(in)
		require.True(t, ok, in)
		require.False(t, v, in)
	}
	_, ok := ParseBool("maybe")
	require.False(t, ok)
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		name string
		typ  ParamType
		in   any
		want any
		ok   bool
	}{
		{"number from float", TypeNumber, 2.5, 2.5, true},
		{"number from int", TypeNumber, 7, 7.0, true},
		{"number from json", TypeNumber, json.Number("3"), 3.0, true},
		{"number from text", TypeNumber, "root of 81", 81.0, true},
		{"number from garbage", TypeNumber, "none", nil, false},
		{"number from bool", TypeNumber, true, nil, false},
		{"bool from text", TypeBoolean, "yes", true, true},
		{"bool from bool", TypeBoolean, false, false, true},
		{"bool from number", TypeBoolean, 1.0, true, true},
		{"string from string", TypeString, "Paris", "Paris", true},
		{"string from number", TypeString, 42.0, "42", true},
		{"nil", TypeString, nil, nil, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Coerce(tc.typ, tc.in)
			require.Equal(t, tc.ok, ok)
			if tc.ok {
				require.Equal(t, tc.want, got)
			}
		})
	}
}
