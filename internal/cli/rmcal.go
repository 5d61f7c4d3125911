package cli

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"
)

// NewRmcalCommand creates the rmcal command.
func NewRmcalCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rmcal <name>",
		Short: "Delete a calendar",
		Long: `Delete a calendar owned by the authenticated user, along with every
object stored in it.

Example:
  fbctl rmcal old-project`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return removeCalendar(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func removeCalendar(opts *RootOptions, name string, cmd *cobra.Command) error {
	if _, err := opts.doRequest(cmd.Context(), http.MethodDelete, "/calendars/"+url.PathEscape(name), "", nil); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "deleted calendar %q\n", name)
	return nil
}
