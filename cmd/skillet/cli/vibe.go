package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deepnoodle-ai/skillet"
	"github.com/deepnoodle-ai/skillet/skill"
	"github.com/deepnoodle-ai/skillet/vibetest"
)

var vibeCmd = &cobra.Command{
	Use:   "vibe [skill...]",
	Short: "Measure how reliably each skill is selected for its own phrases",
	Long: `Run every vibe test phrase through the selector and report how often the
target skill was selected. A skill passes when its rate reaches the threshold.

Examples:
  skillet vibe
  skillet vibe square_root calculate --iterations 5
  skillet vibe --report reports/vibe.json --threshold 0.8`,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		return withApp(cmd, func(ctx context.Context, a *app) error {
			iterations, threshold, reportPath := a.cfg.Vibe.Iterations, a.cfg.Vibe.Threshold, a.cfg.Vibe.ReportPath
			if flags.Changed("iterations") {
				iterations, _ = flags.GetInt("iterations")
			}
			if flags.Changed("threshold") {
				threshold, _ = flags.GetFloat64("threshold")
			}
			if flags.Changed("report") {
				reportPath, _ = flags.GetString("report")
			}

			targets, err := vibeTargets(a.registry, args)
			if err != nil {
				return err
			}
			sel, err := a.selector()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			runner := vibetest.New(vibetest.Options{
				Selector:   sel,
				Iterations: iterations,
				Threshold:  threshold,
				Model:      oracleLabel(a),
				Logger:     a.logger,
				Progress: func(name, phrase string, i int) {
					fmt.Fprint(cmd.ErrOrStderr(), mutedStyle.Sprint("."))
				},
			})
			report, err := runner.Run(ctx, targets, a.registry.All())
			fmt.Fprintln(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			report.Print(out)
			if reportPath != "" {
				if err := report.Save(reportPath); err != nil {
					return err
				}
				fmt.Fprintln(out, mutedStyle.Sprintf("Report written to %s", reportPath))
			}
			if !report.Passed() {
				return errors.New("vibe tests failed")
			}
			return nil
		})
	},
}

func vibeTargets(registry *skillet.Registry, names []string) ([]*skill.Skill, error) {
	if len(names) == 0 {
		return registry.WithVibeTests(), nil
	}
	targets := make([]*skill.Skill, 0, len(names))
	for _, name := range names {
		s, ok := registry.Get(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", skillet.ErrSkillNotFound, name)
		}
		targets = append(targets, s)
	}
	return targets, nil
}

func init() {
	vibeCmd.Flags().IntP("iterations", "n", vibetest.DefaultIterations, "Runs per phrase")
	vibeCmd.Flags().Float64("threshold", vibetest.DefaultThreshold, "Pass rate between 0 and 1")
	vibeCmd.Flags().String("report", "", "Write a JSON report to this path")
	rootCmd.AddCommand(vibeCmd)
}

func oracleLabel(a *app) string {
	if a.cfg.Oracle.Model == "" {
		return a.cfg.Oracle.Provider
	}
	return a.cfg.Oracle.Provider + ":" + a.cfg.Oracle.Model
}
