package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"
)

// FreeBusyOptions holds flags for the freebusy command.
type FreeBusyOptions struct {
	*RootOptions
	Start     string
	End       string
	Timezone  string
	Organizer string
	Attendee  string
	Details   bool
}

// NewFreeBusyCommand creates the freebusy command.
func NewFreeBusyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FreeBusyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "freebusy <address>",
		Short: "Query a user's free/busy state",
		Long: `Query the aggregated free/busy state of the user behind the given
calendar address and print the resulting iCalendar document.

Bounds are UTC timestamps like 20240301T000000Z. With --timezone, events
without a fixed zone are interpreted on that zone's wall clock.

Example:
  fbctl freebusy boss@example.com --start 20240301T000000Z --end 20240308T000000Z
  fbctl freebusy boss@example.com --start 20240301T000000Z --end 20240302T000000Z --details`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return queryFreeBusy(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Start, "start", "", "range start, UTC timestamp (required)")
	cmd.Flags().StringVar(&opts.End, "end", "", "range end, UTC timestamp (required)")
	cmd.Flags().StringVar(&opts.Timezone, "timezone", "", "IANA zone for events without a fixed zone")
	cmd.Flags().StringVar(&opts.Organizer, "organizer", "", "organizer address echoed into the reply")
	cmd.Flags().StringVar(&opts.Attendee, "attendee", "", "attendee address echoed into the reply")
	cmd.Flags().BoolVar(&opts.Details, "details", false, "include event details where the server allows it")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")

	return cmd
}

func queryFreeBusy(opts *FreeBusyOptions, address string, cmd *cobra.Command) error {
	body, err := json.Marshal(struct {
		Start        string `json:"start"`
		End          string `json:"end"`
		Timezone     string `json:"timezone,omitempty"`
		Organizer    string `json:"organizer,omitempty"`
		Attendee     string `json:"attendee,omitempty"`
		EventDetails bool   `json:"event_details,omitempty"`
	}{
		Start:        opts.Start,
		End:          opts.End,
		Timezone:     opts.Timezone,
		Organizer:    opts.Organizer,
		Attendee:     opts.Attendee,
		EventDetails: opts.Details,
	})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	data, err := opts.doRequest(cmd.Context(), http.MethodPost, "/freebusy/"+url.PathEscape(address), "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}
