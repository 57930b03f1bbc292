package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/datafix-cli/internal/ai"
	"github.com/KaramelBytes/datafix-cli/internal/engine"
	"github.com/KaramelBytes/datafix-cli/internal/utils"
)

var (
	sugAI       aiFlags
	sugOut      string
	sugApply    bool
	sugOutTable string
	sugDiff     bool
)

var suggestCmd = &cobra.Command{
	Use:   "suggest <table> [instruction]",
	Short: "Ask a model for cleaning actions and optionally apply them",
	Long: `suggest profiles the table, sends the profile and your instruction to the configured
model, and prints the proposed actions as JSON. Review them, then run
'datafix apply' with the saved file, or pass --apply to apply them right away.`,
	Example: `  datafix suggest stores.csv -o fixes.json
  datafix suggest stores.csv "standardize Item_Fat_Content spellings" --apply --out-table clean.csv
  datafix suggest stores.xlsx --provider ollama --model llama3.1:8b`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := readInput(args[0])
		if err != nil {
			return err
		}
		if in.t == nil {
			printReport(cmd.ErrOrStderr(), in.rep)
			return runError(in.rep)
		}
		gen, provider, model, err := sugAI.generator(in.path)
		if err != nil {
			return err
		}
		ctx, cancel := sugAI.withTimeout(cmd.Context())
		defer cancel()

		stderr := cmd.ErrOrStderr()
		fmt.Fprintf(stderr, "⚙ Asking %s (%s) for suggestions on %s ...\n", model, provider, in.path)
		s, err := gen.Suggest(ctx, in.t, strings.Join(args[1:], " "))
		if err != nil {
			return ai.Hint(err, provider, model)
		}
		if s.RequestID != "" {
			fmt.Fprintf(stderr, "Request ID: %s\n", s.RequestID)
		}
		if cost, ok := ai.EstimateCostUSD(model, s.Usage.PromptTokens, s.Usage.CompletionTokens); ok {
			fmt.Fprintf(stderr, "Tokens: prompt %d, completion %d (≈$%.4f)\n", s.Usage.PromptTokens, s.Usage.CompletionTokens, cost)
		}
		if s.Explanation != "" {
			fmt.Fprintf(stderr, "\n%s\n\n", s.Explanation)
		}

		b, err := utils.PrettyJSON(s)
		if err != nil {
			return err
		}
		if sugOut != "" {
			if err := utils.SafeWriteFile(sugOut, append(b, '\n')); err != nil {
				return err
			}
			fmt.Fprintf(stderr, "✓ Wrote %s to %s\n", plural(len(s.Actions), "action"), sugOut)
		} else if !sugApply {
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
		}
		if !sugApply {
			return nil
		}

		exec := engine.NewExecutor(engine.WithLogger(logger))
		after, rep := exec.ExecuteRaw(in.path, in.raw, s.Actions, in.opt)
		logger.Debug("Applied suggestions", zap.Int("applied", rep.ActionsApplied), zap.Int("failed", rep.ActionsFailed))
		return emit(cmd, &outputFlags{path: sugOutTable, diff: sugDiff}, in, after, rep)
	},
}

func init() {
	rootCmd.AddCommand(suggestCmd)
	sugAI.register(suggestCmd)
	suggestCmd.Flags().StringVarP(&sugOut, "output", "o", "", "write the suggested actions (JSON) to this file")
	suggestCmd.Flags().BoolVar(&sugApply, "apply", false, "apply the suggested actions to the table")
	suggestCmd.Flags().StringVar(&sugOutTable, "out-table", "", "with --apply: write the cleaned table here (default CSV on stdout)")
	suggestCmd.Flags().BoolVar(&sugDiff, "diff", false, "with --apply: show a line diff of the table")
}
