// Package main provides the cachesim command-line interface.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cachesim",
	Short: "CacheSim drives a configurable set-associative cache model through synthetic workloads.",
	Long: `CacheSim drives a cycle-level model of a multi-port set-associative ` +
		`cache controller through synthetic workloads and reports hit rates, ` +
		`replacement behavior, prediction accuracy and latency estimates.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func main() {
	Execute()
}
