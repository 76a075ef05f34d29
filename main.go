// Package main provides the entry point for CacheSim.
// CacheSim is a cycle-level model of a multi-port set-associative cache
// controller.
//
// For the full CLI, use: go run ./cmd/cachesim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("CacheSim - Set-Associative Cache Controller Model")
	fmt.Println("")
	fmt.Println("Usage: cachesim <command>")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  run       Run synthetic workloads against a cache configuration")
	fmt.Println("  config    Inspect and write cache configurations")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/cachesim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/cachesim' instead.")
	}
}
