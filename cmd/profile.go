package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datafix-cli/internal/analysis"
	"github.com/KaramelBytes/datafix-cli/internal/utils"
)

var (
	profOutputPath string
	profSampleRows int
	profTopValues  int
	profOutlierThr float64
	profJSON       bool
)

var profileCmd = &cobra.Command{
	Use:   "profile <table>",
	Short: "Summarize a table's columns and data quality issues",
	Long: `profile infers a kind for every column (numeric, datetime, categorical, text),
counts missing and invalid values, flags outliers and inconsistent spellings, and
prints the summary as Markdown. This is the same summary 'datafix suggest' sends
to the model.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := readInput(args[0])
		if err != nil {
			return err
		}
		if in.t == nil {
			printReport(cmd.ErrOrStderr(), in.rep)
			return runError(in.rep)
		}
		opt := analysis.DefaultOptions()
		opt.Name = filepath.Base(in.path)
		if profSampleRows >= 0 {
			opt.SampleRows = profSampleRows
		}
		if profTopValues > 0 {
			opt.TopValues = profTopValues
		}
		if cmd.Flags().Changed("outlier-threshold") {
			opt.OutlierThreshold = profOutlierThr
		}
		rep := analysis.Profile(in.t, opt)

		var out []byte
		if profJSON {
			if out, err = utils.PrettyJSON(rep); err != nil {
				return err
			}
		} else {
			out = []byte(rep.Markdown())
		}
		if profOutputPath != "" {
			if err := utils.SafeWriteFile(profOutputPath, out); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote profile to %s\n", profOutputPath)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.Flags().StringVarP(&profOutputPath, "output", "o", "", "optional path to write the profile")
	profileCmd.Flags().IntVar(&profSampleRows, "sample-rows", 5, "number of sample rows to include")
	profileCmd.Flags().IntVar(&profTopValues, "top-values", 8, "most frequent values listed per categorical column")
	profileCmd.Flags().Float64Var(&profOutlierThr, "outlier-threshold", 3.5, "robust |z| threshold for outliers (MAD-based); 0 disables")
	profileCmd.Flags().BoolVar(&profJSON, "json", false, "emit the profile as JSON instead of Markdown")
}
