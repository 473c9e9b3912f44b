package skill

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hasMessage(messages []string, substr string) bool {
	for _, m := range messages {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

func TestValidateAcceptsBuiltins(t *testing.T) {
	for _, s := range Builtins() {
		t.Run(s.Name, func(t *testing.T) {
			r := Validate(s)
			require.True(t, r.Valid, r.Errors)
			require.NoError(t, r.Err())
		})
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *Skill)
		want   string
	}{
		{"empty name", func(s *Skill) { s.Name = "" }, "Skill name is required"},
		{"bad name", func(s *Skill) { s.Name = "9lives" }, "must start with a letter"},
		{"hyphen name", func(s *Skill) { s.Name = "my-skill" }, "must start with a letter"},
		{"bad role", func(s *Skill) { s.Role = "wizardry" }, "Invalid role 'wizardry'"},
		{"bad scope", func(s *Skill) { s.Scope = "galaxy" }, "Invalid scope 'galaxy'"},
		{"bad param type", func(s *Skill) { s.Parameters["x"] = Parameter{Type: "integer"} }, "invalid type 'integer'"},
		{"missing param type", func(s *Skill) { s.Parameters["x"] = Parameter{} }, "missing 'type' field"},
		{"bad param name", func(s *Skill) { s.Parameters["1x"] = Parameter{Type: TypeString} }, "must be a valid identifier"},
		{"empty code", func(s *Skill) { s.FunctionCode = "   " }, "Function code cannot be empty"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := sampleSkill()
			tc.mutate(s)
			r := Validate(s)
			require.False(t, r.Valid)
			require.True(t, hasMessage(r.Errors, tc.want), r.Errors)
			require.Error(t, r.Err())
		})
	}
}

func TestValidateWarnings(t *testing.T) {
	s := sampleSkill()
	s.Name = "Square" + strings.Repeat("x", 50)
	s.Description = "short"
	s.VibeTestPhrases = []string{"hey"}
	s.Parameters["n"] = Parameter{Type: TypeNumber}
	s.FunctionCode = "func execute(n) { print(n) }"

	r := Validate(s)
	require.True(t, r.Valid, r.Errors)
	for _, want := range []string{
		"quite long",
		"starting with lowercase",
		"very short - consider",
		"should clearly indicate",
		"Consider adding more vibe test phrases",
		"Vibe test phrase 1 is very short",
		"missing a description",
		"should use log()",
	} {
		assert.True(t, hasMessage(r.Warnings, want), want)
	}
}

func TestValidateNoPhrases(t *testing.T) {
	s := sampleSkill()
	s.VibeTestPhrases = nil
	r := Validate(s)
	require.True(t, r.Valid)
	require.True(t, hasMessage(r.Warnings, "No vibe test phrases"))
}

func TestCheckSignature(t *testing.T) {
	s := sampleSkill()
	s.Parameters["label"] = Parameter{Type: TypeString}

	r := CheckSignature(s, []string{"n", "label"})
	require.True(t, r.Valid)
	require.Empty(t, r.Warnings)

	r = CheckSignature(s, []string{"label", "extra"})
	require.False(t, r.Valid)
	require.True(t, hasMessage(r.Errors, "Required parameter 'n'"))
	require.True(t, hasMessage(r.Warnings, "Function argument 'extra'"))

	r = CheckSignature(s, []string{"n"})
	require.True(t, r.Valid)
	require.True(t, hasMessage(r.Warnings, "Optional parameter 'label'"))
}

func TestMerge(t *testing.T) {
	r := ValidationResult{Valid: true}
	r.Merge(ValidationResult{Errors: []string{"boom"}, Warnings: []string{"hmm"}})
	require.False(t, r.Valid)
	require.Equal(t, []string{"boom"}, r.Errors)
	require.Equal(t, []string{"hmm"}, r.Warnings)
}
