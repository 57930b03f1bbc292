package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datafix-cli/internal/engine"
)

var (
	applyActions string
	applyOut     outputFlags
)

var applyCmd = &cobra.Command{
	Use:   "apply <table>",
	Short: "Apply a batch of cleaning actions from a JSON or YAML file",
	Long: `Apply reads actions (a JSON array, a YAML list, or {"actions": [...]} as written
by 'datafix suggest') and applies them to the table. REMOVE_ROW actions run first;
row numbers in the other actions refer to the table after those removals.`,
	Example: `  datafix apply stores.csv --actions fixes.json -o stores.clean.csv
  datafix apply stores.xlsx --actions fixes.yaml --diff
  cat fixes.json | datafix apply stores.csv --actions - --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if applyActions == "" {
			return fmt.Errorf("--actions is required")
		}
		actions, err := readActions(cmd, applyActions)
		if err != nil {
			return err
		}
		in, err := readInput(args[0])
		if err != nil {
			return err
		}
		exec := engine.NewExecutor(engine.WithLogger(logger))
		after, rep := exec.ExecuteRaw(in.path, in.raw, actions, in.opt)
		return emit(cmd, &applyOut, in, after, rep)
	},
}

// readActions decodes an action file; "-" reads stdin.
func readActions(cmd *cobra.Command, path string) ([]engine.Action, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read actions: %w", err)
	}
	actions, err := engine.DecodeActions(data)
	if err != nil {
		return nil, fmt.Errorf("decode actions from %s: %w", path, err)
	}
	return actions, nil
}

func init() {
	rootCmd.AddCommand(applyCmd)
	applyCmd.Flags().StringVarP(&applyActions, "actions", "a", "", "JSON/YAML file with actions ('-' for stdin)")
	applyOut.register(applyCmd)
}
