package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

var turnCmd = &cobra.Command{
	Use:   "turn <message>",
	Short: "Select and run the skills that apply to one message",
	Long: `Ask the oracle which registered skills apply to a message, extract their
parameters and run them in order.

Examples:
  skillet turn "what's the square root of 144?"
  skillet turn "is it raining in Paris?" --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		utterance := strings.Join(args, " ")
		return withApp(cmd, func(ctx context.Context, a *app) error {
			runner, err := a.runner()
			if err != nil {
				return err
			}
			turn, err := runner.Run(ctx, utterance)
			if turn == nil {
				return err
			}
			if err != nil {
				a.logger.Warn("turn completed with errors", "error", err)
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"turn":  turn,
					"log":   turn.Lines(),
					"count": len(turn.Selections),
				})
			}
			printTurn(cmd.OutOrStdout(), turn)
			return nil
		})
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Run skills interactively for each line you type",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			runner, err := a.runner()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, headerStyle.Sprintf("skillet chat (%d skills, %s)", a.registry.Len(), oracleLabel(a)))
			fmt.Fprintln(out, mutedStyle.Sprint("Type a message, /skills to list skills, or /quit to exit."))
			return chatLoop(ctx, cmd.InOrStdin(), out, func(line string) error {
				if line == "/skills" {
					printSkillTable(out, a.registry.All())
					return nil
				}
				turn, err := runner.Run(ctx, line)
				if turn == nil {
					return err
				}
				printTurn(out, turn)
				return nil
			})
		})
	},
}

// chatLoop calls handle for every non-empty input line until EOF, /quit or
// cancellation.
func chatLoop(ctx context.Context, in io.Reader, out io.Writer, handle func(string) error) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, boldStyle.Sprint("> "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit", "quit", "exit":
			return nil
		}
		if err := handle(line); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintln(out, errorStyle.Sprintf("Error: %v", err))
		}
	}
}

func init() {
	turnCmd.Flags().Bool("json", false, "Print the turn as JSON")
	rootCmd.AddCommand(turnCmd, chatCmd)
}
