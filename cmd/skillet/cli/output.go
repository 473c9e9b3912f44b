package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/deepnoodle-ai/skillet"
	"github.com/deepnoodle-ai/skillet/internal/tablewriter"
	"github.com/deepnoodle-ai/skillet/skill"
)

var (
	headerStyle  = color.New(color.FgCyan, color.Bold)
	boldStyle    = color.New(color.Bold)
	successStyle = color.New(color.FgGreen)
	warningStyle = color.New(color.FgYellow, color.Bold)
	errorStyle   = color.New(color.FgRed)
	mutedStyle   = color.New(color.FgHiBlack)
	skillStyle   = color.New(color.FgMagenta, color.Bold)
)

const (
	checkmark = "✓"
	xmark     = "✗"
	bullet    = "•"
	arrow     = "→"
)

// printSkillTable writes one row per skill. Verified skills are marked.
func printSkillTable(w io.Writer, skills []*skill.Skill) {
	if len(skills) == 0 {
		fmt.Fprintln(w, mutedStyle.Sprint("No skills registered"))
		return
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"", "Name", "Role", "Scope", "Runs", "Success", "Description"})
	table.SetMaxWidth(6, 60)
	for _, s := range skills {
		mark := ""
		if s.Verified {
			mark = successStyle.Sprint(checkmark)
		}
		table.Append([]string{
			mark,
			s.Name,
			s.Role,
			string(s.Scope),
			fmt.Sprint(s.ExecutionCount),
			fmt.Sprintf("%.0f%%", s.SuccessRate),
			s.Description,
		})
	}
	table.Render()
}

func printSkill(w io.Writer, s *skill.Skill) {
	fmt.Fprintln(w, skillStyle.Sprint(s.Name))
	fmt.Fprintf(w, "  %s\n\n", s.Description)
	fmt.Fprintf(w, "  Role: %s   Scope: %s   Verified: %t\n", s.Role, s.Scope, s.Verified)
	fmt.Fprintf(w, "  Runs: %d   Success: %.1f%%   Avg time: %.3fs\n",
		s.ExecutionCount, s.SuccessRate, s.AverageExecutionTime)
	if len(s.Parameters) > 0 {
		fmt.Fprintln(w, boldStyle.Sprint("\n  Parameters"))
		for _, name := range s.ParameterNames() {
			p := s.Parameters[name]
			req := "optional"
			if p.Required {
				req = "required"
			}
			fmt.Fprintf(w, "  %s %s (%s, %s) %s\n", bullet, name, p.Type, req, mutedStyle.Sprint(p.Description))
		}
	}
	if len(s.VibeTestPhrases) > 0 {
		fmt.Fprintln(w, boldStyle.Sprint("\n  Vibe phrases"))
		for _, phrase := range s.VibeTestPhrases {
			fmt.Fprintf(w, "  %s %s\n", bullet, phrase)
		}
	}
	fmt.Fprintln(w, boldStyle.Sprint("\n  Code"))
	for _, line := range strings.Split(strings.TrimRight(s.FunctionCode, "\n"), "\n") {
		fmt.Fprintf(w, "  %s %s\n", mutedStyle.Sprint("│"), line)
	}
}

func printTurn(w io.Writer, turn *skillet.Turn) {
	if len(turn.Selections) == 0 {
		fmt.Fprintln(w, mutedStyle.Sprint("No skills selected"))
	}
	for _, sel := range turn.Selections {
		fmt.Fprintf(w, "%s %s%s\n", arrow, skillStyle.Sprint(sel.Skill.Name), formatParams(sel.Params))
	}
	for _, line := range turn.Lines() {
		fmt.Fprintf(w, "  %s\n", line)
	}
	for _, e := range turn.Evaluations {
		if e.Err != nil {
			fmt.Fprintln(w, warningStyle.Sprintf("  %s: %v", e.Skill.Name, e.Err))
		}
	}
}

func formatParams(params map[string]any) string {
	if len(params) == 0 {
		return ""
	}
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%v", name, params[name])
	}
	return mutedStyle.Sprintf(" (%s)", strings.Join(parts, ", "))
}

func printValidation(w io.Writer, result skill.ValidationResult) {
	if result.Valid {
		fmt.Fprintln(w, successStyle.Sprintf("%s valid", checkmark))
	} else {
		fmt.Fprintln(w, errorStyle.Sprintf("%s invalid", xmark))
	}
	for _, msg := range result.Errors {
		fmt.Fprintln(w, errorStyle.Sprintf("  error: %s", msg))
	}
	for _, msg := range result.Warnings {
		fmt.Fprintln(w, warningStyle.Sprintf("  warning: %s", msg))
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
