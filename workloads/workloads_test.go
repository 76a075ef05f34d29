package workloads_test

import (
	"bytes"
	"database/sql"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sarchlab/cachesim/cache"
	"github.com/sarchlab/cachesim/stats"
	"github.com/sarchlab/cachesim/workloads"
)

func TestGeneratorsAreDeterministic(t *testing.T) {
	a := workloads.Random(100, 7, 64*1024, 2, 4)
	b := workloads.Random(100, 7, 64*1024, 2, 4)

	if len(a.Accesses) != len(b.Accesses) {
		t.Fatalf("lengths differ: %d vs %d", len(a.Accesses), len(b.Accesses))
	}
	for i := range a.Accesses {
		if a.Accesses[i] != b.Accesses[i] {
			t.Fatalf("access %d differs with identical seeds", i)
		}
	}

	c := workloads.Random(100, 8, 64*1024, 2, 4)
	same := true
	for i := range a.Accesses {
		if a.Accesses[i] != c.Accesses[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("different seeds produced identical sequences")
	}
}

func TestSequentialWorkloadShape(t *testing.T) {
	w := workloads.Sequential(10, 0x100, 4)

	if len(w.Accesses) != 10 {
		t.Fatalf("expected 10 accesses, got %d", len(w.Accesses))
	}
	for i, a := range w.Accesses {
		want := uint64(0x100 + i*4)
		if a.Address != want {
			t.Errorf("access %d: address %#x, want %#x", i, a.Address, want)
		}
		if a.Op != cache.OpRead {
			t.Errorf("access %d: expected a read", i)
		}
	}
}

func TestHarnessRunsSequentialWorkload(t *testing.T) {
	harness := workloads.NewHarness(workloads.HarnessConfig{
		Cache:  cache.DefaultConfig(),
		Output: &bytes.Buffer{},
	})
	harness.Add(workloads.Sequential(256, 0, 4))

	results, err := harness.RunAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	r := results[0]
	if r.Accesses != 256 {
		t.Errorf("accesses = %d, want 256", r.Accesses)
	}
	if r.Hits+r.Misses != 256 {
		t.Errorf("hits+misses = %d, want 256", r.Hits+r.Misses)
	}

	// 256 word reads touch 16 lines of 64 bytes: 16 misses, 240 hits.
	if r.Misses != 16 {
		t.Errorf("misses = %d, want 16", r.Misses)
	}
	if r.Cycles == 0 {
		t.Error("cycle counter never advanced")
	}
}

func TestHarnessConfirmsStridesOnStridedWorkload(t *testing.T) {
	harness := workloads.NewHarness(workloads.HarnessConfig{
		Cache:  cache.DefaultConfig(),
		Output: &bytes.Buffer{},
	})
	harness.Add(workloads.Strided(10, 0, 64))

	results, err := harness.RunAll()
	if err != nil {
		t.Fatal(err)
	}

	if results[0].Prefetches < 8 {
		t.Errorf("prefetches = %d, want at least 8", results[0].Prefetches)
	}
}

func TestHarnessRunsMultiPortWorkloads(t *testing.T) {
	cfg := cache.DefaultConfig()
	harness := workloads.NewHarness(workloads.HarnessConfig{
		Cache:  cfg,
		Output: &bytes.Buffer{},
	})
	harness.Add(workloads.Mixed(500, 3, uint64(cfg.CacheSizeBytes)/2, cfg.ClientPorts, cfg.WordSizeBytes()))

	results, err := harness.RunAll()
	if err != nil {
		t.Fatal(err)
	}

	r := results[0]
	if r.Accesses != 500 {
		t.Errorf("accesses = %d, want 500 (denied accesses must be retried)", r.Accesses)
	}
}

func TestHarnessRecordsPeriodicSnapshots(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	recorder := stats.NewWithDB(db)
	harness := workloads.NewHarness(workloads.HarnessConfig{
		Cache:            cache.DefaultConfig(),
		Output:           &bytes.Buffer{},
		Recorder:         recorder,
		SnapshotInterval: 64,
	})
	harness.Add(workloads.Sequential(256, 0, 4))

	if _, err := harness.RunAll(); err != nil {
		t.Fatal(err)
	}
	recorder.Flush()

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM snapshots;").Scan(&count)
	if err != nil {
		t.Fatal(err)
	}

	// 256 single-port accesses take 256 cycles: four samples at period 64.
	if count != 4 {
		t.Errorf("snapshot count = %d, want 4", count)
	}

	var hits uint64
	err = db.QueryRow(
		"SELECT Hits FROM snapshots WHERE Cycle = 256;",
	).Scan(&hits)
	if err != nil {
		t.Fatal(err)
	}
	if hits != 240 {
		t.Errorf("final snapshot hits = %d, want 240", hits)
	}
}

func TestPrintCSVHeader(t *testing.T) {
	var buf bytes.Buffer
	harness := workloads.NewHarness(workloads.HarnessConfig{
		Cache:  cache.DefaultConfig(),
		Output: &buf,
	})

	harness.PrintCSV([]workloads.Result{{Name: "sequential", Accesses: 1}})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus one row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "name,accesses,cycles") {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if !strings.HasPrefix(lines[1], "sequential,1,") {
		t.Errorf("unexpected row: %s", lines[1])
	}
}
