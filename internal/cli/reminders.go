package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/tazhate/monitorat/internal/domain"
	"github.com/tazhate/monitorat/internal/service"
)

var (
	colorGreen  = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	colorOrange = lipgloss.AdaptiveColor{Dark: "#FFA94D", Light: "#C05621"}
	colorRed    = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	colorGray   = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}

	headerStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorGray)
)

var remindersCmd = &cobra.Command{
	Use:   "reminders",
	Short: "Show reminder status",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		statuses, err := a.reminders.ListStatus()
		if err != nil {
			return err
		}
		renderReminders(cmd.OutOrStdout(), statuses)
		return nil
	},
}

var touchCmd = &cobra.Command{
	Use:   "touch <id>",
	Short: "Mark a reminder as done now",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		def, err := a.reminders.Touch(args[0])
		if errors.Is(err, service.ErrNotFound) {
			return fmt.Errorf("no reminder with id %q", args[0])
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Touched %s, next expiry in %d days\n", def.Name, def.ExpiryDays)
		return nil
	},
}

var notifyPriority string

var notifyTestCmd = &cobra.Command{
	Use:   "notify-test",
	Short: "Send a test notification to every configured target",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := domain.ParsePriority(notifyPriority)
		if err != nil {
			return err
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		res := a.reminders.SendTestNotification(cmd.Context(), p)
		if !res.Sent() {
			return fmt.Errorf("no notification targets accepted the message")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Sent to %d target(s), %d failed\n", res.Attempted, res.Failed)
		return nil
	},
}

func init() {
	notifyTestCmd.Flags().StringVarP(&notifyPriority, "priority", "p", "normal", "low, normal or high")
}

func statusStyle(s domain.Status) lipgloss.Style {
	switch s {
	case domain.StatusOK:
		return lipgloss.NewStyle().Foreground(colorGreen)
	case domain.StatusWarning:
		return lipgloss.NewStyle().Foreground(colorOrange).Bold(true)
	case domain.StatusExpired:
		return lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	default:
		return mutedStyle
	}
}

func renderReminders(w io.Writer, statuses []domain.ReminderStatus) {
	if len(statuses) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No reminders configured."))
		return
	}

	idWidth, nameWidth := len("ID"), len("NAME")
	for _, st := range statuses {
		idWidth = max(idWidth, lipgloss.Width(st.ID))
		nameWidth = max(nameWidth, lipgloss.Width(st.Name))
	}
	idCol := lipgloss.NewStyle().Width(idWidth + 2)
	nameCol := lipgloss.NewStyle().Width(nameWidth + 2)
	statusCol := lipgloss.NewStyle().Width(10)
	numCol := lipgloss.NewStyle().Width(8).Align(lipgloss.Right)

	fmt.Fprintln(w, headerStyle.Render(
		idCol.Render("ID")+nameCol.Render("NAME")+statusCol.Render("STATUS")+
			numCol.Render("SINCE")+numCol.Render("LEFT"),
	))

	for _, st := range statuses {
		fmt.Fprintln(w,
			idCol.Render(st.ID)+
				nameCol.Render(st.Name)+
				statusCol.Inherit(statusStyle(st.Status)).Render(string(st.Status))+
				numCol.Render(optInt(st.DaysSince))+
				numCol.Render(optInt(st.DaysRemaining)),
		)
	}
}

func optInt(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}
