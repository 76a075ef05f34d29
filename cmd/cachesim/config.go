package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/sarchlab/cachesim/cache"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and write cache configurations.",
	Long: "`config` prints the default configuration; `config --write " +
		"cache.json` saves it to a file for editing.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := cache.DefaultConfig()

		path, _ := cmd.Flags().GetString("write")
		if path != "" {
			if err := cfg.SaveConfig(path); err != nil {
				log.Fatalf("Error writing configuration: %v", err)
			}
			fmt.Printf("Default configuration written to %s\n", path)
			return
		}

		encoded, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			log.Fatalf("Error encoding configuration: %v", err)
		}
		fmt.Fprintln(os.Stdout, string(encoded))
	},
}

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.Flags().String("write", "", "write the default configuration to the given path")
}
