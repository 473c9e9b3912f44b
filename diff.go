package skillet

import (
	"github.com/pmezard/go-difflib/difflib"

	"github.com/deepnoodle-ai/skillet/skill"
)

// DiffContextLines is the number of unchanged lines shown around each change.
const DiffContextLines = 3

// CodeDiff returns a unified diff between two versions of a skill's function
// code. It returns an empty string when the code is unchanged.
func CodeDiff(name, oldCode, newCode string) (string, error) {
	if oldCode == newCode {
		return "", nil
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(oldCode),
		B:        difflib.SplitLines(newCode),
		FromFile: name + " (registered)",
		ToFile:   name + " (candidate)",
		Context:  DiffContextLines,
	})
}

// SkillDiff compares the function code of two definitions of a skill.
func SkillDiff(current, candidate *skill.Skill) (string, error) {
	return CodeDiff(candidate.Name, current.FunctionCode, candidate.FunctionCode)
}
