package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fieldforge",
	Short: "CRM custom module and field schema engine",
	Long: `FieldForge lets CRM tenants define their own modules and fields
and stores records validated against those schemas.

Quick start:
  fieldforge serve     # Start the API server
  fieldforge validate  # Validate configuration

Operations:
  fieldforge version   # Print build information`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "fieldforge.yaml", "config file path")
}
