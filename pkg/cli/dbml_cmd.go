package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/schemalens/schemalens/pkg/export"
)

func newDBMLCmd(opts *rootOptions) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "dbml",
		Short: "Export the database schema as DBML",
		Long: `Analyzes the database and prints a DBML document: one Table block per
table and one Ref line per inferred relationship.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := opts.analyze(cmd.Context())
			if err != nil {
				return err
			}

			doc := export.WriteDBML(result.Tables, result.Relationships)
			return writeOutput(cmd, outPath, doc)
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write to file instead of stdout")

	return cmd
}

// writeOutput prints to stdout, or to a file when --out is set.
func writeOutput(cmd *cobra.Command, path, content string) error {
	if path == "" {
		fmt.Fprint(cmd.OutOrStdout(), content)
		return nil
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", path)
	return nil
}
