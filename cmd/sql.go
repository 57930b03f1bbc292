package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/datafix-cli/internal/ai"
	"github.com/KaramelBytes/datafix-cli/internal/sqlstmt"
	"github.com/KaramelBytes/datafix-cli/internal/utils"
)

var (
	sqlOut  outputFlags
	sqlAI   aiFlags
	sqlNoAI bool
)

var sqlCmd = &cobra.Command{
	Use:   "sql <table> <statement>",
	Short: "Run an UPDATE or DELETE statement against a table",
	Long: `sql runs a small SQL dialect against the table. The table name in the statement
is not checked. Supported forms:

  UPDATE t SET col = 'v' WHERE col IS [NOT] NULL | col = '' | col = 'x' | col IN ('a','b')
  UPDATE t SET col = 'v'
  DELETE FROM t WHERE col = 'x' | col IN (...) | col IS [NOT] NULL
  DELETE FROM t WHERE col < 10 (also <=, >, >=, =, != or <> against a number)

SELECT statements are not executed locally; they are answered by the configured
model from the table contents unless --no-ai is given.`,
	Example: `  datafix sql stores.csv "UPDATE stores SET Outlet_Size = 'Medium' WHERE Outlet_Size IS NULL"
  datafix sql stores.csv "DELETE FROM stores WHERE Item_Weight < 5" -o out.csv
  datafix sql stores.csv "SELECT Outlet_Type, COUNT(*) FROM stores GROUP BY Outlet_Type"`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := readInput(args[0])
		if err != nil {
			return err
		}
		if in.t == nil {
			return emit(cmd, &sqlOut, in, in.raw, in.rep)
		}
		stmt := strings.Join(args[1:], " ")
		rep := sqlstmt.NewRunner(logger).Exec(in.t, stmt)
		if !rep.ReadOnly {
			after := in.raw
			if rep.ActionsApplied > 0 {
				if after, err = in.encode(in.t); err != nil {
					return err
				}
			}
			return emit(cmd, &sqlOut, in, after, rep)
		}

		if sqlNoAI {
			return emit(cmd, &sqlOut, in, in.raw, rep)
		}
		gen, provider, model, err := sqlAI.generator(in.path)
		if err != nil {
			return err
		}
		ctx, cancel := sqlAI.withTimeout(cmd.Context())
		defer cancel()
		logger.Info("Delegating read-only statement", zap.String("provider", provider), zap.String("model", model))
		answer, err := gen.Answer(ctx, in.t, stmt)
		if err != nil {
			return ai.Hint(err, provider, model)
		}
		if sqlOut.json {
			b, err := utils.PrettyJSON(jsonOutcome{Report: rep, Answer: answer})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), answer)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sqlCmd)
	sqlOut.register(sqlCmd)
	sqlAI.register(sqlCmd)
	sqlCmd.Flags().BoolVar(&sqlNoAI, "no-ai", false, "do not send SELECT statements to a model")
}
