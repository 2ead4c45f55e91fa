package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage saved connection profiles",
	}

	cmd.AddCommand(
		newProfileSetCmd(),
		newProfileListCmd(),
		newProfileUseCmd(),
	)

	return cmd
}

func newProfileSetCmd() *cobra.Command {
	var (
		dsn    string
		dsType string
		flavor string
	)

	cmd := &cobra.Command{
		Use:   "set <name>",
		Short: "Create or update a named profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			cfg, err := LoadUserConfig()
			if err != nil {
				return err
			}
			if cfg.Profiles == nil {
				cfg.Profiles = make(map[string]Profile)
			}

			prof := cfg.Profiles[name]
			if dsn != "" {
				prof.DSN = dsn
			}
			if dsType != "" {
				prof.Type = dsType
			}
			if flavor != "" {
				prof.Flavor = flavor
			}
			cfg.Profiles[name] = prof
			if cfg.CurrentProfile == "" {
				cfg.CurrentProfile = name
			}

			if err := SaveUserConfig(cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved profile %q\n", name)
			return nil
		},
	}

	cmd.Flags().StringVar(&dsn, "dsn", "", "connection string")
	cmd.Flags().StringVar(&dsType, "type", "", "datasource type (postgres, sqlserver, sqlite)")
	cmd.Flags().StringVar(&flavor, "flavor", "", "default DDL flavor for this profile")

	return cmd
}

func newProfileListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadUserConfig()
			if err != nil {
				return err
			}
			if len(cfg.Profiles) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No profiles saved.")
				return nil
			}

			names := make([]string, 0, len(cfg.Profiles))
			for name := range cfg.Profiles {
				names = append(names, name)
			}
			sort.Strings(names)

			for _, name := range names {
				marker := " "
				if name == cfg.CurrentProfile {
					marker = "*"
				}
				// Connection strings stay out of the listing.
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", marker, name, cfg.Profiles[name].Type)
			}
			return nil
		},
	}
}

func newProfileUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <name>",
		Short: "Set the default profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			cfg, err := LoadUserConfig()
			if err != nil {
				return err
			}
			if _, ok := cfg.Profiles[name]; !ok {
				return fmt.Errorf("profile %q not found; create it with: schemalens profile set %s", name, name)
			}

			cfg.CurrentProfile = name
			if err := SaveUserConfig(cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Default profile is now %q\n", name)
			return nil
		},
	}
}
