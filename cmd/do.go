package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datafix-cli/internal/command"
)

var doOut outputFlags

var doCmd = &cobra.Command{
	Use:   "do <table> <instruction>",
	Short: "Apply a plain-English cleaning command",
	Example: `  datafix do stores.csv "fill missing values in 'Outlet_Size' with 'Medium'"
  datafix do stores.csv "fill empty Item_Weight with the median" -o out.csv
  datafix do stores.csv "replace 'LF' with 'Low Fat' in Item_Fat_Content" --diff
  datafix do stores.csv "remove rows where Item_Weight < 5"
  datafix do stores.csv "sort by Item_MRP descending"`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := readInput(args[0])
		if err != nil {
			return err
		}
		if in.t == nil {
			return emit(cmd, &doOut, in, in.raw, in.rep)
		}
		rep := command.NewRunner(logger).Apply(in.t, strings.Join(args[1:], " "))
		after := in.raw
		if rep.ActionsApplied > 0 {
			if after, err = in.encode(in.t); err != nil {
				return err
			}
		}
		return emit(cmd, &doOut, in, after, rep)
	},
}

func init() {
	rootCmd.AddCommand(doCmd)
	doOut.register(doCmd)
}
