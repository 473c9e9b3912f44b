package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/deepnoodle-ai/skillet"
	"github.com/deepnoodle-ai/skillet/config"
	"github.com/deepnoodle-ai/skillet/skill"
)

var testCmd = &cobra.Command{
	Use:   "test <file|name>",
	Short: "Run a skill's code once in the sandbox harness",
	Long: `Run a skill definition file, or a registered skill by name, in a sandboxed
subprocess and print its log.

Examples:
  skillet test square_root --input '{"number": 16}'
  skillet test skills/greet.yaml --input '{"who": "Ada"}' --timeout 3s`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input, err := inputFlag(cmd)
		if err != nil {
			return err
		}
		timeout, _ := cmd.Flags().GetDuration("timeout")
		return withApp(cmd, func(ctx context.Context, a *app) error {
			s, err := resolveSkill(a, args[0])
			if err != nil {
				return err
			}
			if timeout > 0 {
				a.cfg.Sandbox.Timeout = config.Duration(timeout)
			}
			return sandboxTest(ctx, a, s, input, cmd.OutOrStdout())
		})
	},
}

func init() {
	testCmd.Flags().String("input", "", "JSON object of parameters")
	testCmd.Flags().Duration("timeout", 0, "Override the sandbox timeout")
	rootCmd.AddCommand(testCmd)
}

// resolveSkill reads target as a definition file when it exists on disk and
// as a registered skill name otherwise.
func resolveSkill(a *app, target string) (*skill.Skill, error) {
	if info, err := os.Stat(target); err == nil && !info.IsDir() {
		return skill.ParseFile(target)
	}
	s, ok := a.registry.Get(target)
	if !ok {
		return nil, fmt.Errorf("%w: %s", skillet.ErrSkillNotFound, target)
	}
	return s, nil
}

// sandboxTest runs s once in the harness and reports the outcome. A failed
// run is returned as an error.
func sandboxTest(ctx context.Context, a *app, s *skill.Skill, input map[string]any, w io.Writer) error {
	harness, err := a.cfg.NewHarness(a.logger)
	if err != nil {
		return err
	}
	result, err := harness.Test(ctx, s.FunctionCode, input)
	if err != nil {
		return err
	}
	if result.Passed {
		fmt.Fprintln(w, successStyle.Sprintf("%s sandbox run passed in %s", checkmark, result.Duration.Round(time.Millisecond)))
		for _, line := range result.Logs {
			fmt.Fprintf(w, "  %s\n", line)
		}
		return nil
	}
	fmt.Fprintln(w, errorStyle.Sprintf("%s sandbox run failed (%s)", xmark, result.Reason))
	fmt.Fprintf(w, "  %s\n", result.Output)
	return errors.New("sandbox test failed")
}

func inputFlag(cmd *cobra.Command) (map[string]any, error) {
	raw, _ := cmd.Flags().GetString("input")
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}
	var input map[string]any
	if err := json.Unmarshal([]byte(raw), &input); err != nil {
		return nil, fmt.Errorf("--input must be a JSON object: %w", err)
	}
	return input, nil
}

// colorDiff colors the added and removed lines of a unified diff.
func colorDiff(diff string) string {
	var b strings.Builder
	for _, line := range strings.SplitAfter(diff, "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			b.WriteString(boldStyle.Sprint(line))
		case strings.HasPrefix(line, "+"):
			b.WriteString(successStyle.Sprint(line))
		case strings.HasPrefix(line, "-"):
			b.WriteString(errorStyle.Sprint(line))
		case strings.HasPrefix(line, "@@"):
			b.WriteString(headerStyle.Sprint(line))
		default:
			b.WriteString(line)
		}
	}
	return b.String()
}
