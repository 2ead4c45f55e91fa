package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/schemalens/schemalens/pkg/export"
)

func newDDLCmd(opts *rootOptions) *cobra.Command {
	var (
		flavor  string
		outPath string
	)

	cmd := &cobra.Command{
		Use:   "ddl",
		Short: "Export the database schema as CREATE TABLE statements",
		Long: `Analyzes the database and prints DDL for the requested flavor: CREATE
TABLE statements with the best candidate key as PRIMARY KEY, plus ALTER
TABLE foreign keys for inferred one-to-many relationships.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flavor == "" {
				cfg, err := LoadUserConfig()
				if err != nil {
					return err
				}
				prof, _ := cfg.ActiveProfile(opts.profile)
				flavor = prof.Flavor
			}
			if flavor == "" {
				flavor = export.FlavorPostgres
			}

			result, err := opts.analyze(cmd.Context())
			if err != nil {
				return err
			}

			doc, err := export.WriteDDL(flavor, result.Tables, result.Keys, result.Relationships)
			if err != nil {
				return fmt.Errorf("%w (supported: %s)", err, strings.Join(export.Flavors(), ", "))
			}
			return writeOutput(cmd, outPath, doc)
		},
	}

	cmd.Flags().StringVar(&flavor, "flavor", "", "SQL flavor: "+strings.Join(export.Flavors(), ", "))
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write to file instead of stdout")

	return cmd
}
