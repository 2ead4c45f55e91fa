// Package cli implements the schemalens command line interface. Commands
// connect straight to a database, run the analysis pipeline in-process,
// and print the result, without requiring a running engine.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/schemalens/schemalens/pkg/adapters/datasource"
	"github.com/schemalens/schemalens/pkg/logging"
	"github.com/schemalens/schemalens/pkg/services"
)

// rootOptions carry the resolved connection settings shared by all
// subcommands. Precedence: flag > environment > profile.
type rootOptions struct {
	dsn     string
	dsType  string
	profile string
	verbose bool

	maxKeyColumns int
	maxGuesses    int

	logger *zap.Logger
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", logging.SanitizeError(err))
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "schemalens",
		Short: "Inspect database schemas, guess keys, and export DBML or DDL",
		Long: `schemalens connects to a database, captures its schema, discovers
candidate keys and relationships, and renders the result as DBML or DDL.

Connections come from --dsn/--type flags, SCHEMALENS_DSN/SCHEMALENS_TYPE
environment variables, or a named profile in ~/.schemalens/config.yaml.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.dsn, "dsn", "", "connection string of the database to analyze")
	cmd.PersistentFlags().StringVar(&opts.dsType, "type", "", "datasource type (postgres, sqlserver, sqlite)")
	cmd.PersistentFlags().StringVar(&opts.profile, "profile", "", "named profile from the config file")
	cmd.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "log analysis progress to stderr")
	cmd.PersistentFlags().IntVar(&opts.maxKeyColumns, "max-key-columns", 3, "widest column combination to test when guessing keys (1-6)")
	cmd.PersistentFlags().IntVar(&opts.maxGuesses, "max-guesses", 1000, "uniqueness probe budget per table (0 = unlimited)")

	cmd.AddCommand(
		newDBMLCmd(opts),
		newDDLCmd(opts),
		newGuessKeysCmd(opts),
		newProfileCmd(),
		newVersionCmd(),
	)

	return cmd
}

// resolve fills in missing connection settings from the environment and
// the active profile, then validates them.
func (o *rootOptions) resolve() error {
	cfg, err := LoadUserConfig()
	if err != nil {
		return err
	}
	if o.profile != "" {
		if _, ok := cfg.Profiles[o.profile]; !ok {
			return fmt.Errorf("profile %q not found in config file", o.profile)
		}
	}
	prof, _ := cfg.ActiveProfile(o.profile)

	if o.dsn == "" {
		o.dsn = os.Getenv("SCHEMALENS_DSN")
	}
	if o.dsn == "" {
		o.dsn = prof.DSN
	}
	if o.dsType == "" {
		o.dsType = os.Getenv("SCHEMALENS_TYPE")
	}
	if o.dsType == "" {
		o.dsType = prof.Type
	}

	if o.dsn == "" {
		return fmt.Errorf("no connection given: set --dsn, SCHEMALENS_DSN, or a profile")
	}
	if o.dsType == "" {
		return fmt.Errorf("no datasource type given: set --type, SCHEMALENS_TYPE, or a profile")
	}
	if !datasource.IsRegistered(o.dsType) {
		return fmt.Errorf("unknown datasource type %q", o.dsType)
	}

	if o.verbose {
		o.logger, err = logging.NewLogger("local")
		if err != nil {
			return err
		}
	} else {
		o.logger = zap.NewNop()
	}

	return nil
}

// analyze connects to the configured database and runs the full
// pipeline: snapshot, key guessing, relationship inference. Settings
// are resolved here rather than in a PersistentPreRunE so commands
// that never touch a database (version, profile) work unconfigured.
func (o *rootOptions) analyze(ctx context.Context) (*services.AnalysisResult, error) {
	if err := o.resolve(); err != nil {
		return nil, err
	}

	intro, err := datasource.New(ctx, o.dsType, o.dsn, o.logger)
	if err != nil {
		return nil, fmt.Errorf("connect: %s", logging.SanitizeError(err))
	}
	defer intro.Close()

	return services.Analyze(ctx, intro, services.KeyGuessConfig{
		MaxKeyColumns: o.maxKeyColumns,
		MaxGuesses:    o.maxGuesses,
	}, o.logger)
}
