package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/goodtune/baralga/internal/filter"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// filterFlags holds the period and project flags shared by report and
// filter commands.
type filterFlags struct {
	year, month, week string
	project           int64
}

func (f *filterFlags) register(flags *pflag.FlagSet) {
	flags.StringVar(&f.year, "year", "", "Year: a number, current or all")
	flags.StringVar(&f.month, "month", "", "Month (1-12): a number, current or all")
	flags.StringVar(&f.week, "week", "", "ISO week (1-53): a number, current or all")
	flags.Int64Var(&f.project, "project", 0, "Project id, 0 for all projects")
}

// apply overrides base with the flags that were set on the command line.
func (f *filterFlags) apply(flags *pflag.FlagSet, base filter.Selection) (filter.Selection, bool, error) {
	sel := base
	changed := false

	for _, field := range []struct {
		name  string
		value string
		dst   *filter.Value
	}{
		{"year", f.year, &sel.Year},
		{"month", f.month, &sel.Month},
		{"week", f.week, &sel.Week},
	} {
		if !flags.Changed(field.name) {
			continue
		}
		v, err := filter.ParseValue(field.value)
		if err != nil {
			return base, false, fmt.Errorf("--%s: %w", field.name, err)
		}
		*field.dst = v
		changed = true
	}

	if flags.Changed("project") {
		sel.ProjectID = f.project
		changed = true
	}

	if err := sel.Validate(); err != nil {
		return base, false, err
	}
	return sel, changed, nil
}

var (
	filterSetFlags filterFlags
	filterClear    bool
)

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Show or change the remembered report filter",
}

var filterShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the remembered filter",
	Args:  cobra.NoArgs,
	RunE:  runFilterShow,
}

var filterSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change the remembered filter",
	Example: `  baralga filter set --year current --month current --week all
  baralga filter set --project 3
  baralga filter set --clear`,
	Args: cobra.NoArgs,
	RunE: runFilterSet,
}

func init() {
	filterSetFlags.register(filterSetCmd.Flags())
	filterSetCmd.Flags().BoolVar(&filterClear, "clear", false, "Forget the whole filter before applying flags")

	filterCmd.AddCommand(filterShowCmd)
	filterCmd.AddCommand(filterSetCmd)
	rootCmd.AddCommand(filterCmd)
}

func runFilterShow(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	printSelection(a.settings.Selection(), time.Now())
	return nil
}

func runFilterSet(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	base := a.settings.Selection()
	if filterClear {
		base = filter.Selection{}
	}
	sel, _, err := filterSetFlags.apply(cmd.Flags(), base)
	if err != nil {
		return err
	}
	if err := a.settings.SaveFilter(sel); err != nil {
		return fmt.Errorf("failed to save filter: %w", err)
	}

	printSelection(sel, time.Now())
	return nil
}

func printSelection(sel filter.Selection, now time.Time) {
	cyan := color.New(color.FgCyan, color.Bold)

	_, _ = cyan.Println("[filter]")
	fmt.Printf("  year    = %s\n", sel.Year)
	fmt.Printf("  month   = %s\n", sel.Month)
	fmt.Printf("  week    = %s\n", sel.Week)
	if sel.ProjectID != 0 {
		fmt.Printf("  project = #%d\n", sel.ProjectID)
	} else {
		fmt.Println("  project = all")
	}
	fmt.Printf("\nToday this selects: %s\n", sel.Resolve(now))
}
