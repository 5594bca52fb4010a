package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/goodtune/baralga/internal/filter"
	"github.com/goodtune/baralga/internal/report"
	"github.com/goodtune/baralga/internal/storage"
	"github.com/spf13/cobra"
)

var (
	reportFlags filterFlags
	reportSave  bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarise recorded hours",
	Long: `Summarise recorded hours. Without filter flags the remembered filter is
used; with --save the flags given are remembered for next time.`,
}

var reportDaysCmd = &cobra.Command{
	Use:   "days",
	Short: "Hours per day, latest first",
	Args:  cobra.NoArgs,
	RunE:  runReport(printDays),
}

var reportWeeksCmd = &cobra.Command{
	Use:   "weeks",
	Short: "Hours per ISO week, latest first",
	Args:  cobra.NoArgs,
	RunE:  runReport(printWeeks),
}

var reportProjectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Hours per project",
	Args:  cobra.NoArgs,
	RunE:  runReport(printProjects),
}

func init() {
	reportFlags.register(reportCmd.PersistentFlags())
	reportCmd.PersistentFlags().BoolVar(&reportSave, "save", false, "Remember the filter flags")

	reportCmd.AddCommand(reportDaysCmd)
	reportCmd.AddCommand(reportWeeksCmd)
	reportCmd.AddCommand(reportProjectsCmd)
	rootCmd.AddCommand(reportCmd)
}

type reportPrinter func(ctx context.Context, a *app, f filter.Filter, activities []storage.Activity)

func runReport(printReport reportPrinter) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		sel, changed, err := reportFlags.apply(cmd.Flags(), a.settings.Selection())
		if err != nil {
			return err
		}
		if reportSave && changed {
			if err := a.settings.SaveFilter(sel); err != nil {
				return fmt.Errorf("failed to save filter: %w", err)
			}
		}

		f := sel.Resolve(a.clock.Now())
		activities, err := report.Load(cmd.Context(), a.store.Activities(), f)
		if err != nil {
			return err
		}

		cyan := color.New(color.FgCyan, color.Bold)
		_, _ = cyan.Printf("%s\n\n", f)
		if len(activities) == 0 {
			fmt.Println("No activities recorded")
			return nil
		}

		printReport(cmd.Context(), a, f, activities)
		return nil
	}
}

func printDays(_ context.Context, _ *app, f filter.Filter, activities []storage.Activity) {
	r := report.NewHoursByDayReport(f)
	for _, activity := range activities {
		r.Add(activity)
	}

	for _, item := range r.Items() {
		fmt.Printf("%s  %10s\n", item.Day().Format("Mon 2006-01-02"), formatHours(item.Hours()))
	}
	printTotal(r.Total())
}

func printWeeks(_ context.Context, _ *app, f filter.Filter, activities []storage.Activity) {
	r := report.NewHoursByWeekReport(f)
	for _, activity := range activities {
		r.Add(activity)
	}

	var total float64
	for _, item := range r.Items() {
		fmt.Printf("%d-W%02d  %10s\n", item.Year, item.Week, formatHours(item.Hours))
		total += item.Hours
	}
	printTotal(total)
}

func printProjects(ctx context.Context, a *app, f filter.Filter, activities []storage.Activity) {
	r := report.NewHoursByProjectReport(f, func(id int64) string {
		return storage.Title(ctx, a.projects, id)
	})
	for _, activity := range activities {
		r.Add(activity)
	}

	var total float64
	for _, item := range r.Items() {
		fmt.Printf("%-30s  %10s\n", item.Title, formatHours(item.Hours))
		total += item.Hours
	}
	printTotal(total)
}

func printTotal(hours float64) {
	bold := color.New(color.Bold)
	fmt.Println(strings.Repeat("-", 42))
	_, _ = bold.Printf("%-30s  %10s\n", "Total", formatHours(hours))
}
