package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goodtune/baralga/internal/config"
	"github.com/spf13/cobra"
)

var (
	version    = "dev"
	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "baralga",
	Short: "Baralga - simple local time tracking",
	Long: `Baralga tracks the time you spend on projects. Activities are kept in a
local data file that is backed up automatically; filters and preferences are
remembered between runs.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", filepath.Join(config.DefaultDirectory(), "config.yaml"), "Path to configuration file")
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
