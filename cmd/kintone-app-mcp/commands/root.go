package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version    = "dev"
	configFile string
	verbose    bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "kintone-app-mcp",
	Short: "Kintone MCP Server",
	Long: `A Model Context Protocol (MCP) server for a configured Kintone application.

This tool exposes CRUD and search operations on one Kintone app as MCP tools,
converting between the app's field schema and Kintone's wire representation.`,
	Version: version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Cobra output goes to stderr; stdout carries the MCP protocol.
	rootCmd.SetOut(os.Stderr)
	rootCmd.SetErr(os.Stderr)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "config.json", "path to the app configuration file")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "verbose output")
}

// SetVersion sets the version for the CLI.
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// verboseLog prints a message only if verbose mode is enabled.
func verboseLog(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}
