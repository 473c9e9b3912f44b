package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/deepnoodle-ai/skillet"
	"github.com/deepnoodle-ai/skillet/skill"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered skills",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		match, _ := cmd.Flags().GetString("match")
		role, _ := cmd.Flags().GetString("role")
		asJSON, _ := cmd.Flags().GetBool("json")
		return withApp(cmd, func(ctx context.Context, a *app) error {
			skills := a.registry.All()
			if match != "" {
				var err error
				if skills, err = a.registry.Match(match); err != nil {
					return err
				}
			}
			if role != "" {
				filtered := skills[:0]
				for _, s := range skills {
					if s.Role == role {
						filtered = append(filtered, s)
					}
				}
				skills = filtered
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), skills)
			}
			printSkillTable(cmd.OutOrStdout(), skills)
			return nil
		})
	},
}

var showCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a skill's definition and telemetry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		return withApp(cmd, func(ctx context.Context, a *app) error {
			s, ok := a.registry.Get(args[0])
			if !ok {
				return fmt.Errorf("%w: %s", skillet.ErrSkillNotFound, args[0])
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), s)
			}
			printSkill(cmd.OutOrStdout(), s)
			return nil
		})
	},
}

var registerCmd = &cobra.Command{
	Use:   "register <file>",
	Short: "Validate, sandbox-test and register a skill definition",
	Long: `Register a skill from a JSON or YAML definition file.

The definition is validated and its code is run once in the sandbox harness
before it is registered. Verified (built-in) skills cannot be replaced.

Examples:
  skillet register skills/greet.yaml --input '{"who": "Ada"}'
  skillet register skills/greet.json --skip-test`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		skipTest, _ := cmd.Flags().GetBool("skip-test")
		input, err := inputFlag(cmd)
		if err != nil {
			return err
		}
		s, err := skill.ParseFile(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			out := cmd.OutOrStdout()
			existing, exists := a.registry.Get(s.Name)
			if exists && existing.Verified {
				return fmt.Errorf("%w: %s", skillet.ErrVerifiedSkill, s.Name)
			}
			s.Verified = false

			result := a.registry.Validate(ctx, s)
			printValidation(out, result)
			if !result.Valid {
				return errors.New("validation failed")
			}
			if !skipTest {
				if err := sandboxTest(ctx, a, s, input, out); err != nil {
					return err
				}
			}
			if exists {
				s.CreatedAt = existing.CreatedAt
				s.ExecutionCount = existing.ExecutionCount
				s.SuccessRate = existing.SuccessRate
				s.AverageExecutionTime = existing.AverageExecutionTime
				if diff, _ := skillet.SkillDiff(existing, s); diff != "" {
					fmt.Fprint(out, colorDiff(diff))
				}
			}
			if err := a.registry.Register(ctx, s); err != nil {
				return err
			}
			fmt.Fprintln(out, successStyle.Sprintf("%s registered %s", checkmark, s.Name))
			return nil
		})
	},
}

var removeCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Remove a non-verified skill",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.registry.Remove(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Sprintf("%s removed %s", checkmark, args[0]))
			return nil
		})
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a skill definition without registering it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := skill.ParseFile(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			result := a.registry.Validate(ctx, s)
			printValidation(cmd.OutOrStdout(), result)
			if !result.Valid {
				return errors.New("validation failed")
			}
			return nil
		})
	},
}

var diffCmd = &cobra.Command{
	Use:   "diff <file>",
	Short: "Show how a definition's code differs from the registered skill",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := skill.ParseFile(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			existing, ok := a.registry.Get(s.Name)
			if !ok {
				return fmt.Errorf("%w: %s", skillet.ErrSkillNotFound, s.Name)
			}
			diff, err := skillet.SkillDiff(existing, s)
			if err != nil {
				return err
			}
			if diff == "" {
				fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Sprint("No code changes"))
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), colorDiff(diff))
			return nil
		})
	},
}

var redeployCmd = &cobra.Command{
	Use:   "redeploy",
	Short: "Re-register fresh copies of the built-in skills",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.registry.RedeployBuiltins(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Sprintf("%s redeployed %d built-in skills", checkmark, len(skill.Builtins())))
			return nil
		})
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every registered skill as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		return withApp(cmd, func(ctx context.Context, a *app) error {
			doc := a.registry.Export(time.Now())
			if output == "" || output == "-" {
				return writeJSON(cmd.OutOrStdout(), doc)
			}
			data, err := json.MarshalIndent(doc, "", "  ")
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, append(data, '\n'), 0o644); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Sprintf("%s exported %d skills to %s", checkmark, doc.SkillsCount, output))
			return nil
		})
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import skills from an export document",
	Long: `Import skills from a document written by "skillet export" or the skill
editor API. Skills that already exist are skipped, and imported skills are
never verified.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var doc skillet.ImportDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("decode %s: %w", args[0], err)
		}
		if doc.Skills == nil {
			return fmt.Errorf("%s has no skills object", args[0])
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			imported, errs := a.registry.Import(ctx, doc)
			out := cmd.OutOrStdout()
			for _, msg := range errs {
				fmt.Fprintln(out, warningStyle.Sprintf("  %s", msg))
			}
			fmt.Fprintln(out, successStyle.Sprintf("%s imported %d skills", checkmark, imported))
			return nil
		})
	},
}

func init() {
	listCmd.Flags().String("match", "", "Glob pattern over skill names (e.g. 'get*')")
	listCmd.Flags().String("role", "", "Only list skills with this role")
	listCmd.Flags().Bool("json", false, "Print JSON")
	showCmd.Flags().Bool("json", false, "Print the skill record as JSON")
	registerCmd.Flags().Bool("skip-test", false, "Register without the sandbox test run")
	registerCmd.Flags().String("input", "", "JSON object of parameters for the sandbox test run")
	exportCmd.Flags().StringP("output", "o", "", "Write to a file instead of stdout")

	rootCmd.AddCommand(listCmd, showCmd, registerCmd, removeCmd, validateCmd,
		diffCmd, redeployCmd, exportCmd, importCmd)
}
