package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change user settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show all settings, defaults highlighted",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:     "set KEY VALUE",
	Short:   "Change a setting",
	Example: `  baralga settings set export.excel ~/Documents/reports`,
	Args:    cobra.MinimumNArgs(2),
	RunE:    runSettingsSet,
}

var settingsUnsetCmd = &cobra.Command{
	Use:   "unset KEY",
	Short: "Restore a setting to its default",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsUnset,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsUnsetCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow, color.Bold)

	_, _ = cyan.Printf("[%s]\n", a.settings.Path())
	for _, e := range a.settings.Entries() {
		if e.Default {
			_, _ = green.Printf("  %s = %s  (default)\n", e.Key, e.Value)
			continue
		}
		_, _ = yellow.Printf("  %s = %s\n", e.Key, e.Value)
	}
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	key, value := args[0], strings.Join(args[1:], " ")
	if err := a.settings.Set(key, value); err != nil {
		return err
	}
	fmt.Printf("%s = %s\n", key, value)
	return nil
}

func runSettingsUnset(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.settings.Unset(args[0]); err != nil {
		return err
	}
	fmt.Printf("%s restored to default\n", args[0])
	return nil
}
