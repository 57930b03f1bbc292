package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datafix-cli/internal/ai"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Show the model catalog used for prompt sizing and cost estimates",
	Long: `models lists the known context windows and prices. Extend or override entries
with a YAML file referenced by the 'models_catalog' config key:

  openai/gpt-4o-mini: {context_tokens: 128000, input_per_k: 0.00015, output_per_k: 0.0006}`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tw := tablewriter.NewWriter(cmd.OutOrStdout())
		tw.SetHeader([]string{"Model", "Context", "Input $/1K", "Output $/1K"})
		tw.SetAutoFormatHeaders(false)
		tw.SetAutoWrapText(false)
		for _, mi := range ai.Catalog() {
			in, out := "-", "-"
			if mi.InputPerK > 0 || mi.OutputPerK > 0 {
				in, out = fmt.Sprintf("%.5f", mi.InputPerK), fmt.Sprintf("%.5f", mi.OutputPerK)
			}
			tw.Append([]string{mi.Name, humanize.Comma(int64(mi.ContextTokens)), in, out})
		}
		tw.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
