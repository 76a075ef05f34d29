package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/sarchlab/cachesim/cache"
	"github.com/sarchlab/cachesim/stats"
	"github.com/sarchlab/cachesim/workloads"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run synthetic workloads against a cache configuration.",
	Long: "`run --workload strided` replays one of the built-in access " +
		"patterns (sequential, strided, random, mixed or all) against the " +
		"configured cache and prints the measured counters.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadCacheConfig(cmd)
		if err != nil {
			log.Fatalf("Error loading configuration: %v", err)
		}

		name, _ := cmd.Flags().GetString("workload")
		accesses, _ := cmd.Flags().GetInt("accesses")
		seed, _ := cmd.Flags().GetInt64("seed")
		csv, _ := cmd.Flags().GetBool("csv")
		record, _ := cmd.Flags().GetString("record")
		interval, _ := cmd.Flags().GetUint64("snapshot-interval")

		var recorder stats.Recorder
		if record != "" {
			recorder = stats.New(record)
		}

		harness := workloads.NewHarness(workloads.HarnessConfig{
			Cache:            cfg,
			Recorder:         recorder,
			SnapshotInterval: interval,
		})

		selected, err := selectWorkloads(name, accesses, seed, cfg)
		if err != nil {
			log.Fatalf("Error: %v", err)
		}
		for _, w := range selected {
			harness.Add(w)
		}

		results, err := harness.RunAll()
		if err != nil {
			log.Fatalf("Error running workloads: %v", err)
		}

		if csv {
			harness.PrintCSV(results)
		} else {
			harness.PrintResults(results)
		}

		if recorder != nil {
			recorder.CreateTable("results", workloads.Result{})
			for _, r := range results {
				recorder.Insert("results", r)
			}
			recorder.Flush()
		}
	},
}

func loadCacheConfig(cmd *cobra.Command) (cache.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return cache.DefaultConfig(), nil
	}
	return cache.LoadConfig(path)
}

func selectWorkloads(name string, accesses int, seed int64, cfg cache.Config) ([]workloads.Workload, error) {
	wordSize := cfg.WordSizeBytes()
	span := uint64(cfg.CacheSizeBytes) * 4

	sequential := workloads.Sequential(accesses, 0, wordSize)
	strided := workloads.Strided(accesses, 0, uint64(cfg.BlockSizeBytes))
	random := workloads.Random(accesses, seed, span, cfg.ClientPorts, wordSize)
	mixed := workloads.Mixed(accesses, seed, uint64(cfg.CacheSizeBytes)/2, cfg.ClientPorts, wordSize)

	switch name {
	case "sequential":
		return []workloads.Workload{sequential}, nil
	case "strided":
		return []workloads.Workload{strided}, nil
	case "random":
		return []workloads.Workload{random}, nil
	case "mixed":
		return []workloads.Workload{mixed}, nil
	case "all":
		return []workloads.Workload{sequential, strided, random, mixed}, nil
	default:
		return nil, fmt.Errorf("unknown workload %q", name)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("config", "", "path to a cache configuration JSON file")
	runCmd.Flags().String("workload", "all", "workload to run: sequential, strided, random, mixed or all")
	runCmd.Flags().Int("accesses", 10000, "number of accesses per workload")
	runCmd.Flags().Int64("seed", 1, "seed for the randomized workloads")
	runCmd.Flags().Bool("csv", false, "print results as CSV")
	runCmd.Flags().String("record", "", "record results into the named SQLite database")
	runCmd.Flags().Uint64("snapshot-interval", 1000, "counter snapshot period in cycles when recording")
}
