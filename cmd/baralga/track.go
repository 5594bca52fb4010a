package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/goodtune/baralga/internal/storage"
	"github.com/spf13/cobra"
)

var (
	stopDescription string

	addDate        string
	addFrom        string
	addTo          string
	addDescription string
)

var startCmd = &cobra.Command{
	Use:   "start PROJECT_ID",
	Short: "Start tracking time on a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runStart,
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running activity and record it",
	Args:  cobra.NoArgs,
	RunE:  runStop,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the running activity",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var addCmd = &cobra.Command{
	Use:   "add PROJECT_ID",
	Short: "Record a finished activity",
	Long: `Record a finished activity. An end time before the start time is taken
to be on the following day.`,
	Example: `  baralga add 1 --from 09:00 --to 12:30 -d "Sprint planning"
  baralga add 2 --date 2024-03-05 --from 22:00 --to 01:00`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

var removeCmd = &cobra.Command{
	Use:   "remove ACTIVITY_ID",
	Short: "Delete a recorded activity",
	Args:  cobra.ExactArgs(1),
	RunE:  runRemove,
}

func init() {
	stopCmd.Flags().StringVarP(&stopDescription, "description", "d", "", "Activity description (defaults to the last one used)")

	addCmd.Flags().StringVar(&addDate, "date", "", "Day of the activity (YYYY-MM-DD), defaults to today")
	addCmd.Flags().StringVar(&addFrom, "from", "", "Start time (HH:MM)")
	addCmd.Flags().StringVar(&addTo, "to", "", "End time (HH:MM)")
	addCmd.Flags().StringVarP(&addDescription, "description", "d", "", "Activity description")
	_ = addCmd.MarkFlagRequired("from")
	_ = addCmd.MarkFlagRequired("to")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(removeCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	running, err := a.tracker.Start(cmd.Context(), id)
	if err != nil {
		return err
	}

	fmt.Printf("Started %s at %s\n", storage.Title(cmd.Context(), a.projects, running.ProjectID), running.Start.Format("15:04"))
	return nil
}

func runStop(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	activity, err := a.tracker.Stop(cmd.Context(), stopDescription)
	if err != nil {
		return err
	}

	fmt.Printf("Recorded %s on %s (%s - %s)\n",
		formatHours(activity.Hours()),
		storage.Title(cmd.Context(), a.projects, activity.ProjectID),
		activity.Start.Format("15:04"),
		activity.End.Format("15:04"),
	)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	running, elapsed, ok := a.tracker.Status()
	if !ok {
		fmt.Println("No activity running")
		return nil
	}

	green := color.New(color.FgGreen, color.Bold)
	_, _ = green.Print("Running: ")
	fmt.Printf("%s since %s (%s)\n",
		storage.Title(cmd.Context(), a.projects, running.ProjectID),
		running.Start.Format("2006-01-02 15:04"),
		elapsed.Truncate(time.Minute),
	)
	if last := a.settings.LastDescription(); last != "" {
		fmt.Printf("Last description: %s\n", last)
	}
	return nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	start, end, err := parseSpan(addDate, addFrom, addTo, time.Now())
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	activity, err := a.tracker.Add(cmd.Context(), id, start, end, addDescription)
	if err != nil {
		return err
	}

	fmt.Printf("Recorded %s on %s (activity %s)\n",
		formatHours(activity.Hours()),
		storage.Title(cmd.Context(), a.projects, activity.ProjectID),
		activity.ID,
	)
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.tracker.Remove(cmd.Context(), strings.TrimSpace(args[0])); err != nil {
		return fmt.Errorf("failed to remove activity %s: %w", args[0], err)
	}
	fmt.Printf("Removed activity %s\n", args[0])
	return nil
}

// parseSpan builds start and end times from a day and two HH:MM times in
// the local zone. An end before the start rolls over to the next day.
func parseSpan(day, from, to string, now time.Time) (time.Time, time.Time, error) {
	date := now
	if day != "" {
		d, err := time.ParseInLocation("2006-01-02", day, now.Location())
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", day)
		}
		date = d
	}

	start, err := atClock(date, from)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := atClock(date, to)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end.Before(start) {
		end = end.AddDate(0, 0, 1)
	}
	return start, end, nil
}

func atClock(date time.Time, hhmm string) (time.Time, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(hhmm))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: want HH:MM", hhmm)
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, date.Location()), nil
}

// formatHours renders fractional hours as "H:MM h".
func formatHours(hours float64) string {
	minutes := int(hours*60 + 0.5)
	return fmt.Sprintf("%d:%02d h", minutes/60, minutes%60)
}
