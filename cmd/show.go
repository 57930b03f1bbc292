package cmd

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var (
	showRows  int
	showWidth int
)

var showCmd = &cobra.Command{
	Use:   "show <table>",
	Short: "Print the first rows of a table with row numbers",
	Long: `show prints the leading rows as a grid. Row numbers are 1-based and match the
rowNumber used by actions, commands and reports.`,
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
		t := in.t
		n := t.Len()
		if showRows >= 0 && showRows < n {
			n = showRows
		}

		out := cmd.OutOrStdout()
		tw := tablewriter.NewWriter(out)
		tw.SetHeader(append([]string{"#"}, t.Headers()...))
		tw.SetAutoFormatHeaders(false)
		tw.SetAutoWrapText(false)
		for i := 0; i < n; i++ {
			rec := t.Record(i)
			row := make([]string, 0, len(rec)+1)
			row = append(row, strconv.Itoa(i+1))
			for _, v := range rec {
				row = append(row, clipCell(v, showWidth))
			}
			tw.Append(row)
		}
		tw.SetCaption(true, fmt.Sprintf("%s: showing %s of %s rows, %s columns",
			filepath.Base(in.path), humanize.Comma(int64(n)), humanize.Comma(int64(t.Len())), humanize.Comma(int64(len(t.Headers())))))
		tw.Render()
		return nil
	},
}

func clipCell(v string, width int) string {
	r := []rune(v)
	if width <= 3 || len(r) <= width {
		return v
	}
	return string(r[:width-3]) + "..."
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().IntVarP(&showRows, "rows", "n", 20, "number of rows to show (-1 for all)")
	showCmd.Flags().IntVar(&showWidth, "width", 40, "clip cell values longer than this many characters")
}
