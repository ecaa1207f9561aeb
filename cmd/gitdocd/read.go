package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Inspect calendars",
}

var calendarGetCmd = &cobra.Command{
	Use:   "get [name]",
	Short: "Print a calendar, creating it if it does not exist",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := ""
		if len(args) == 1 {
			name = args[0]
		}

		a, err := newApp(cfg, logger)
		if err != nil {
			return err
		}
		defer a.close()

		cal, err := a.calendars.Get(cmd.Context(), name)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"file":    cal.File,
			"content": cal.Text,
			"sha":     cal.Version,
		})
	},
}

var requestsCmd = &cobra.Command{
	Use:   "requests",
	Short: "Inspect the request list",
}

var requestsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print all requests with the list version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg, logger)
		if err != nil {
			return err
		}
		defer a.close()

		records, version, err := a.requests.List(cmd.Context())
		if err != nil {
			return err
		}
		var sha *string
		if v, ok := version.Get(); ok {
			sha = &v
		}
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"requests": records,
			"sha":      sha,
		})
	},
}

func printJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func init() {
	calendarCmd.AddCommand(calendarGetCmd)
	requestsCmd.AddCommand(requestsListCmd)
	rootCmd.AddCommand(calendarCmd, requestsCmd)
}
