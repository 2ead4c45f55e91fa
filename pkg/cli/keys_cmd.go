package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newGuessKeysCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "guess-keys",
		Short: "Discover candidate keys for every table",
		Long: `Analyzes the database and prints the candidate keys found for each
table. Declared primary keys and unique constraints are reported as-is;
tables without declared keys get their column combinations probed for
uniqueness, narrowest first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := opts.analyze(cmd.Context())
			if err != nil {
				return err
			}

			if len(result.Keys) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No candidate keys found.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TABLE\tCOLUMNS\tMETHOD\tWIDTH")
			for _, k := range result.Keys {
				fmt.Fprintf(w, "%s.%s\t%s\t%s\t%d\n",
					k.SchemaName, k.TableName,
					strings.Join(k.Columns, ", "),
					k.Method, k.Level)
			}
			return w.Flush()
		},
	}

	return cmd
}
