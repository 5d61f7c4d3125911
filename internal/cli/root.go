package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	Server     string
	Token      string
	ConfigPath string
}

// NewRootCommand creates the root command for the fbctl CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "fbctl",
		Short: "fbctl - client for the freebusy backend",
		Long:  "Command line client for managing calendars and querying aggregated free/busy state.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.applyConfigFile()
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.Server, "server", "", "base URL of the backend, e.g. http://localhost:8080")
	cmd.PersistentFlags().StringVar(&opts.Token, "token", "", "bearer token for authenticated requests")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", DefaultConfigPath, "path to the client config file")

	// Add subcommands
	cmd.AddCommand(NewTokenCommand(opts))
	cmd.AddCommand(NewMkcalCommand(opts))
	cmd.AddCommand(NewRmcalCommand(opts))
	cmd.AddCommand(NewIngestCommand(opts))
	cmd.AddCommand(NewFreeBusyCommand(opts))

	return cmd
}
