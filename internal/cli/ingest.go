package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// IngestOptions holds flags for the ingest command.
type IngestOptions struct {
	*RootOptions
	Object string
}

// NewIngestCommand creates the ingest command.
func NewIngestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IngestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ingest <calendar> <file.ics>",
		Short: "Upload an iCalendar object into a calendar",
		Long: `Upload an iCalendar file into the named calendar.

The object name defaults to the file's base name. Uploading under an
existing name replaces the stored object and reindexes its time spans.

Example:
  fbctl ingest work meeting.ics
  fbctl ingest work meeting.ics --object standup.ics`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ingestObject(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Object, "object", "", "object name to store under (defaults to the file name)")

	return cmd
}

func ingestObject(opts *IngestOptions, calendarName, path string, cmd *cobra.Command) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading object file: %w", err)
	}

	name := opts.Object
	if name == "" {
		name = filepath.Base(path)
	}

	respData, err := opts.doRequest(cmd.Context(), http.MethodPut,
		"/calendars/"+url.PathEscape(calendarName)+"/objects/"+url.PathEscape(name),
		"text/calendar", bytes.NewReader(data))
	if err != nil {
		return err
	}

	var resp struct {
		Href string `json:"href"`
		ETag string `json:"etag"`
	}
	if err := json.Unmarshal(respData, &resp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "stored %s etag %s\n", resp.Href, resp.ETag)
	return nil
}
