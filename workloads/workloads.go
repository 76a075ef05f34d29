// Package workloads provides synthetic access pattern generators and a
// harness that drives a cache controller through them for calibration and
// comparison runs.
package workloads

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"time"

	"github.com/sarchlab/cachesim/cache"
	"github.com/sarchlab/cachesim/stats"
)

// Access is one generated cache access.
type Access struct {
	// Port is the issuing client port.
	Port int

	// Op is read or write.
	Op cache.Op

	// Address is the physical address.
	Address uint64

	// Data is the word to store (writes only).
	Data uint64
}

// Workload is a named access sequence.
type Workload struct {
	// Name identifies the workload
	Name string

	// Description explains what the workload stresses
	Description string

	// Accesses is the generated access sequence
	Accesses []Access
}

// Sequential generates n single-port reads walking upward one word at a
// time from base.
func Sequential(n int, base uint64, wordSize int) Workload {
	accesses := make([]Access, n)
	for i := range accesses {
		accesses[i] = Access{
			Op:      cache.OpRead,
			Address: base + uint64(i*wordSize),
		}
	}

	return Workload{
		Name:        "sequential",
		Description: "single-port upward word-by-word reads",
		Accesses:    accesses,
	}
}

// Strided generates n single-port reads with a constant stride, the pattern
// the prefetcher is built to catch.
func Strided(n int, base, stride uint64) Workload {
	accesses := make([]Access, n)
	for i := range accesses {
		accesses[i] = Access{
			Op:      cache.OpRead,
			Address: base + uint64(i)*stride,
		}
	}

	return Workload{
		Name:        "strided",
		Description: fmt.Sprintf("single-port reads with a constant %d-byte stride", stride),
		Accesses:    accesses,
	}
}

// Random generates n reads spread uniformly over a span of the address
// space, striped across the given ports. The same seed reproduces the same
// sequence.
func Random(n int, seed int64, span uint64, ports, wordSize int) Workload {
	rng := rand.New(rand.NewSource(seed))
	words := span / uint64(wordSize)

	accesses := make([]Access, n)
	for i := range accesses {
		accesses[i] = Access{
			Port:    i % ports,
			Op:      cache.OpRead,
			Address: uint64(rng.Int63n(int64(words))) * uint64(wordSize),
		}
	}

	return Workload{
		Name:        "random",
		Description: fmt.Sprintf("uniform random reads over a %d-byte span", span),
		Accesses:    accesses,
	}
}

// Mixed generates n accesses over a small working set with a 2:1
// read-to-write ratio, striped across the given ports.
func Mixed(n int, seed int64, span uint64, ports, wordSize int) Workload {
	rng := rand.New(rand.NewSource(seed))
	words := span / uint64(wordSize)

	accesses := make([]Access, n)
	for i := range accesses {
		a := Access{
			Port:    i % ports,
			Address: uint64(rng.Int63n(int64(words))) * uint64(wordSize),
		}
		if rng.Intn(3) == 0 {
			a.Op = cache.OpWrite
			a.Data = rng.Uint64()
		}
		accesses[i] = a
	}

	return Workload{
		Name:        "mixed",
		Description: "random reads and writes, 2:1 ratio, small working set",
		Accesses:    accesses,
	}
}

// Result holds the measured outcome of one workload run.
type Result struct {
	// Name identifies the workload
	Name string `json:"name"`

	// Description explains what the workload stresses
	Description string `json:"description"`

	// Accesses is the number of granted cache accesses
	Accesses uint64 `json:"accesses"`

	// Cycles is the number of controller clock steps taken
	Cycles uint64 `json:"cycles"`

	// Retries is the number of bank-conflict resubmissions
	Retries uint64 `json:"retries"`

	Hits           uint64  `json:"hits"`
	Misses         uint64  `json:"misses"`
	HitRatePercent float64 `json:"hit_rate_percent"`

	Replacements   uint64 `json:"replacements"`
	DirtyEvictions uint64 `json:"dirty_evictions"`

	// Prefetches is the number of prefetch targets issued
	Prefetches uint64 `json:"prefetches,omitempty"`

	// WayPredictAccuracyPercent is the way predictor hit-way accuracy
	WayPredictAccuracyPercent float64 `json:"way_predict_accuracy_percent,omitempty"`

	ECCCorrected     uint64 `json:"ecc_corrected,omitempty"`
	ECCUncorrectable uint64 `json:"ecc_uncorrectable,omitempty"`

	// LatencyCycles is the summed per-access latency estimate
	LatencyCycles uint64 `json:"latency_cycles"`

	// BandwidthBytes is the total data moved through the ports
	BandwidthBytes uint64 `json:"bandwidth_bytes"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// Snapshot is one periodic counter sample taken during a workload run.
type Snapshot struct {
	Workload       string
	Cycle          uint64
	Hits           uint64
	Misses         uint64
	Replacements   uint64
	Prefetches     uint64
	BandwidthBytes uint64
}

// snapshotTable is the recorder table periodic samples go into.
const snapshotTable = "snapshots"

// HarnessConfig configures the workload harness.
type HarnessConfig struct {
	// Cache configures the controller under test
	Cache cache.Config

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Recorder, when set, receives a Snapshot every SnapshotInterval
	// cycles of each run
	Recorder stats.Recorder

	// SnapshotInterval is the sampling period in cycles (0 disables)
	SnapshotInterval uint64
}

// Harness runs workloads against a fresh controller each and reports
// results.
type Harness struct {
	config    HarnessConfig
	workloads []Workload
}

// NewHarness creates a new workload harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	return &Harness{config: config}
}

// Add appends a workload to the harness.
func (h *Harness) Add(w Workload) {
	h.workloads = append(h.workloads, w)
}

// RunAll executes all workloads and returns their results.
func (h *Harness) RunAll() ([]Result, error) {
	if h.snapshotting() {
		h.config.Recorder.CreateTable(snapshotTable, Snapshot{})
	}

	results := make([]Result, 0, len(h.workloads))

	for _, w := range h.workloads {
		result, err := h.run(w)
		if err != nil {
			return nil, fmt.Errorf("workload %s: %w", w.Name, err)
		}
		results = append(results, result)
	}

	return results, nil
}

// run replays one workload. Each cycle submits the longest prefix of the
// remaining accesses that targets distinct ports; accesses denied by a bank
// conflict stay at the front and are resubmitted the next cycle.
func (h *Harness) run(w Workload) (Result, error) {
	mem := cache.NewLineMemory(h.config.Cache)
	ctrl, err := cache.NewController(h.config.Cache, mem)
	if err != nil {
		return Result{}, err
	}

	result := Result{Name: w.Name, Description: w.Description}
	start := time.Now()

	pending := w.Accesses
	for len(pending) > 0 {
		reqs, used := nextCycle(pending, h.config.Cache.ClientPorts)

		out, err := ctrl.Advance(cache.CycleInput{Requests: reqs})
		if err != nil {
			return Result{}, err
		}

		// Keep denied accesses at the front for resubmission.
		retained := pending[:0:0]
		for i, resp := range out.Responses {
			if resp.Ready {
				result.Accesses++
				continue
			}
			result.Retries++
			retained = append(retained, pending[i])
		}
		pending = append(retained, pending[used:]...)

		// Drain the prefetch queue the way a memory collaborator would.
		for {
			if _, ok := ctrl.PopPrefetch(); !ok {
				break
			}
		}

		if h.snapshotting() && out.Counters.Cycles%h.config.SnapshotInterval == 0 {
			h.config.Recorder.Insert(snapshotTable, Snapshot{
				Workload:       w.Name,
				Cycle:          out.Counters.Cycles,
				Hits:           out.Counters.Hits,
				Misses:         out.Counters.Misses,
				Replacements:   out.Counters.Replacements,
				Prefetches:     out.Counters.Prefetches,
				BandwidthBytes: out.Counters.BandwidthBytes,
			})
		}
	}

	result.WallTime = time.Since(start)

	c := ctrl.Counters()
	result.Cycles = c.Cycles
	result.Hits = c.Hits
	result.Misses = c.Misses
	result.HitRatePercent = c.HitRate()
	result.Replacements = c.Replacements
	result.DirtyEvictions = c.DirtyEvictions
	result.Prefetches = c.Prefetches
	result.WayPredictAccuracyPercent = c.WayPredictAccuracy()
	result.ECCCorrected = c.ECCCorrected
	result.ECCUncorrectable = c.ECCUncorrectable
	result.LatencyCycles = c.LatencyCycles
	result.BandwidthBytes = c.BandwidthBytes

	return result, nil
}

func (h *Harness) snapshotting() bool {
	return h.config.Recorder != nil && h.config.SnapshotInterval > 0
}

// nextCycle takes the longest prefix of accesses targeting distinct ports,
// capped at the port count, and returns it as one cycle's requests.
func nextCycle(accesses []Access, ports int) ([]cache.Request, int) {
	reqs := make([]cache.Request, 0, ports)
	seen := make(map[int]bool, ports)

	used := 0
	for _, a := range accesses {
		if len(reqs) == ports || seen[a.Port] {
			break
		}
		seen[a.Port] = true
		reqs = append(reqs, cache.Request{
			Port:    a.Port,
			Op:      a.Op,
			Address: a.Address,
			Data:    a.Data,
		})
		used++
	}

	return reqs, used
}

// PrintResults outputs results in a human-readable format.
func (h *Harness) PrintResults(results []Result) {
	out := h.config.Output
	_, _ = fmt.Fprintln(out, "=== CacheSim Workload Results ===")
	_, _ = fmt.Fprintln(out, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(out, "Workload: %s\n", r.Name)
		_, _ = fmt.Fprintf(out, "  Description: %s\n", r.Description)
		_, _ = fmt.Fprintf(out, "  Accesses:        %d\n", r.Accesses)
		_, _ = fmt.Fprintf(out, "  Cycles:          %d\n", r.Cycles)
		if r.Retries > 0 {
			_, _ = fmt.Fprintf(out, "  Retries:         %d\n", r.Retries)
		}
		_, _ = fmt.Fprintf(out, "  Hits:            %d\n", r.Hits)
		_, _ = fmt.Fprintf(out, "  Misses:          %d\n", r.Misses)
		_, _ = fmt.Fprintf(out, "  Hit Rate:        %.1f%%\n", r.HitRatePercent)
		_, _ = fmt.Fprintf(out, "  Replacements:    %d\n", r.Replacements)
		_, _ = fmt.Fprintf(out, "  Dirty Evictions: %d\n", r.DirtyEvictions)
		if r.Prefetches > 0 {
			_, _ = fmt.Fprintf(out, "  Prefetches:      %d\n", r.Prefetches)
		}
		if r.WayPredictAccuracyPercent > 0 {
			_, _ = fmt.Fprintf(out, "  Way Prediction:  %.1f%%\n", r.WayPredictAccuracyPercent)
		}
		if r.ECCCorrected > 0 || r.ECCUncorrectable > 0 {
			_, _ = fmt.Fprintf(out, "  ECC Corrected:   %d\n", r.ECCCorrected)
			_, _ = fmt.Fprintf(out, "  ECC Poisoned:    %d\n", r.ECCUncorrectable)
		}
		_, _ = fmt.Fprintf(out, "  Latency Cycles:  %d\n", r.LatencyCycles)
		_, _ = fmt.Fprintf(out, "  Bandwidth:       %d bytes\n", r.BandwidthBytes)
		_, _ = fmt.Fprintf(out, "  Wall Time: %v\n", r.WallTime)
		_, _ = fmt.Fprintln(out, "")
	}
}

// PrintCSV outputs results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []Result) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,accesses,cycles,hits,misses,hit_rate,replacements,dirty_evictions,prefetches,latency_cycles,bandwidth_bytes")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%d,%d,%d,%d,%.3f,%d,%d,%d,%d,%d\n",
			r.Name,
			r.Accesses,
			r.Cycles,
			r.Hits,
			r.Misses,
			r.HitRatePercent,
			r.Replacements,
			r.DirtyEvictions,
			r.Prefetches,
			r.LatencyCycles,
			r.BandwidthBytes,
		)
	}
}
