package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tazhate/monitorat/internal/clients/caldav"
)

var calendarsCmd = &cobra.Command{
	Use:   "calendars",
	Short: "List calendars on the configured CalDAV server",
	Long:  "Lists the calendar collections of calendar.username so one can be picked for calendar.path.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		c := a.config.Snapshot().Calendar
		if c.URL == "" {
			return fmt.Errorf("calendar.url is not set")
		}

		cals, err := caldav.NewClient(c.URL, c.Username, c.Password, c.Path).DiscoverCalendars(cmd.Context())
		if err != nil {
			return err
		}
		if len(cals) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("No calendars found."))
			return nil
		}
		for _, cal := range cals {
			marker := "  "
			if cal.URL == c.Path {
				marker = "* "
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s%s  %s\n", marker, headerStyle.Render(cal.DisplayName), mutedStyle.Render(cal.URL))
		}
		return nil
	},
}
