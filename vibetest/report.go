package vibetest

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"github.com/deepnoodle-ai/skillet/internal/tablewriter"
)

var (
	headerStyle = color.New(color.FgCyan, color.Bold)
	passStyle   = color.New(color.FgGreen, color.Bold)
	warnStyle   = color.New(color.FgYellow)
	failStyle   = color.New(color.FgRed, color.Bold)
	mutedStyle  = color.New(color.FgHiBlack)
)

const phraseWidth = 48

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// Save writes the report as JSON to path, creating parent directories.
func (r *Report) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := r.WriteJSON(f); err != nil {
		f.Close()
		return fmt.Errorf("write report: %w", err)
	}
	return f.Close()
}

// LoadReport reads a report written by Save.
func LoadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", path, err)
	}
	return &r, nil
}

// Print writes a per-phrase table for every skill followed by a summary.
func (r *Report) Print(w io.Writer) {
	for _, res := range r.Skills {
		headerStyle.Fprintf(w, "%s", res.Skill)
		mutedStyle.Fprintf(w, "  %s\n", truncate(res.Description, 72))

		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"Phrase", "Selected", "Params", "Secondary"})
		table.SetMaxWidth(0, phraseWidth)
		for _, pr := range res.Phrases {
			params := "-"
			if len(pr.ExpectedParams) > 0 {
				params = fmt.Sprintf("%d/%d", pr.ParamCorrect, pr.Total)
			}
			table.Append([]string{
				pr.Phrase,
				rateStyle(pr.SuccessRate, r.Threshold).Sprintf("%d/%d", pr.Correct, pr.Total),
				params,
				secondary(pr.SecondaryCounts),
			})
		}
		table.Render()

		verdict := failStyle.Sprint("FAIL")
		if res.Passed {
			verdict = passStyle.Sprint("PASS")
		}
		fmt.Fprintf(w, "%s %d/%d (%.1f%%)\n\n", verdict, res.TotalCorrect, res.TotalTests, res.SuccessRate)
	}

	s := r.Summary
	headerStyle.Fprintln(w, "Summary")
	fmt.Fprintf(w, "  Skills: %d tested, %s, %s\n",
		s.SkillsTested,
		passStyle.Sprintf("%d passed", s.SkillsPassed),
		failStyle.Sprintf("%d failed", s.SkillsFailed))
	fmt.Fprintf(w, "  Overall: %d/%d (%.1f%%) at a %.0f%% threshold\n",
		s.TotalCorrect, s.TotalTests, s.OverallSuccessRate, r.Threshold*100)
	if len(s.Failed) > 0 {
		fmt.Fprintf(w, "  Failed: %s\n", strings.Join(s.Failed, ", "))
	}
}

func rateStyle(rate, threshold float64) *color.Color {
	switch {
	case rate >= 80:
		return passStyle
	case rate >= threshold*100:
		return warnStyle
	default:
		return failStyle
	}
}

func secondary(counts map[string]int) string {
	if len(counts) == 0 {
		return mutedStyle.Sprint("none")
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s×%d", name, counts[name])
	}
	return strings.Join(parts, ", ")
}

// truncate shortens s to width display cells.
func truncate(s string, width int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return runewidth.Truncate(s, width, "...")
}
