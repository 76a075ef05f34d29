package stats_test

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sarchlab/cachesim/stats"
)

type sampleRow struct {
	Name    string
	Hits    uint64
	HitRate float64
}

func setupRecorder(t *testing.T) (stats.Recorder, *sql.DB) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return stats.NewWithDB(db), db
}

func TestRecorderCreateTable(t *testing.T) {
	recorder, db := setupRecorder(t)

	recorder.CreateTable("results", sampleRow{})

	var tableName string
	err := db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name='results';",
	).Scan(&tableName)
	require.NoError(t, err, "Table should be created")
	assert.Equal(t, "results", tableName)
	assert.Equal(t, []string{"results"}, recorder.ListTables())
}

func TestRecorderInsertAndFlush(t *testing.T) {
	recorder, db := setupRecorder(t)

	recorder.CreateTable("results", sampleRow{})
	recorder.Insert("results", sampleRow{Name: "strided", Hits: 42, HitRate: 87.5})
	recorder.Insert("results", sampleRow{Name: "random", Hits: 7, HitRate: 12.5})
	recorder.Flush()

	var name string
	var hits uint64
	var hitRate float64
	err := db.QueryRow(
		"SELECT Name, Hits, HitRate FROM results WHERE Name='strided';",
	).Scan(&name, &hits, &hitRate)
	require.NoError(t, err, "Data should be inserted")
	assert.Equal(t, "strided", name)
	assert.Equal(t, uint64(42), hits)
	assert.Equal(t, 87.5, hitRate)

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM results;").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRecorderFlushIsIdempotent(t *testing.T) {
	recorder, db := setupRecorder(t)

	recorder.CreateTable("results", sampleRow{})
	recorder.Insert("results", sampleRow{Name: "mixed", Hits: 1})
	recorder.Flush()
	recorder.Flush()

	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM results;").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRecorderRejectsUnknownTable(t *testing.T) {
	recorder, _ := setupRecorder(t)

	assert.Panics(t, func() {
		recorder.Insert("missing", sampleRow{})
	})
}

func TestRecorderRejectsNestedStructs(t *testing.T) {
	recorder, _ := setupRecorder(t)

	bad := struct {
		Inner sampleRow
	}{}

	assert.Panics(t, func() {
		recorder.CreateTable("bad", bad)
	})
}
