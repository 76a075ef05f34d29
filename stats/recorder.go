// Package stats persists simulation results into SQLite so that sweeps over
// configurations and workloads can be compared after the fact.
package stats

import (
	"database/sql"
	"fmt"
	"os"
	"reflect"
	"strings"

	// SQLite driver, used through database/sql only.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// A Recorder stores rows of flat structs into named tables.
type Recorder interface {
	// CreateTable creates a table whose columns are the fields of the
	// sample entry.
	CreateTable(tableName string, sampleEntry any)

	// Insert buffers one row for a table created earlier.
	Insert(tableName string, entry any)

	// ListTables returns the names of all created tables.
	ListTables() []string

	// Flush writes all buffered rows to the database.
	Flush()
}

// New creates a Recorder backed by a new SQLite file at the given path,
// without the .sqlite3 suffix. An empty path picks a unique name. The
// recorder flushes on process exit.
func New(path string) Recorder {
	r := &sqliteRecorder{
		dbName:    path,
		batchSize: 100000,
		tables:    make(map[string]*table),
	}

	r.open()

	atexit.Register(func() { r.Flush() })

	return r
}

// NewWithDB creates a Recorder on an already opened database, mainly for
// tests running on in-memory databases.
func NewWithDB(db *sql.DB) Recorder {
	r := &sqliteRecorder{
		DB:        db,
		batchSize: 100000,
		tables:    make(map[string]*table),
	}

	atexit.Register(func() { r.Flush() })

	return r
}

type table struct {
	columns []string
	rows    []any
}

type sqliteRecorder struct {
	*sql.DB

	dbName    string
	tables    map[string]*table
	batchSize int
	rowCount  int
}

func (r *sqliteRecorder) open() {
	if r.dbName == "" {
		r.dbName = "cachesim_" + xid.New().String()
	}

	filename := r.dbName + ".sqlite3"

	if _, err := os.Stat(filename); err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	fmt.Fprintf(os.Stderr, "Recording results to: %s\n", filename)

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		panic(err)
	}

	r.DB = db
}

// columnNames extracts the field names of a flat struct. Only scalar and
// string fields are storable.
func columnNames(entry any) []string {
	t := reflect.TypeOf(entry)
	names := make([]string, 0, t.NumField())

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !isStorableKind(field.Type.Kind()) {
			panic(fmt.Sprintf("field %s of %s cannot be stored",
				field.Name, t.Name()))
		}
		names = append(names, field.Name)
	}

	return names
}

func isStorableKind(kind reflect.Kind) bool {
	switch kind {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16,
		reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16,
		reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}

func (r *sqliteRecorder) CreateTable(tableName string, sampleEntry any) {
	columns := columnNames(sampleEntry)

	createSQL := "CREATE TABLE " + tableName +
		" (\n\t" + strings.Join(columns, ", \n\t") + "\n);"
	r.mustExecute(createSQL)

	r.tables[tableName] = &table{columns: columns}
}

func (r *sqliteRecorder) Insert(tableName string, entry any) {
	t, exists := r.tables[tableName]
	if !exists {
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	t.rows = append(t.rows, entry)

	r.rowCount++
	if r.rowCount >= r.batchSize {
		r.Flush()
	}
}

func (r *sqliteRecorder) ListTables() []string {
	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}

	return names
}

func (r *sqliteRecorder) Flush() {
	if r.rowCount == 0 {
		return
	}

	r.mustExecute("BEGIN TRANSACTION")
	defer r.mustExecute("COMMIT TRANSACTION")

	for name, t := range r.tables {
		if len(t.rows) == 0 {
			continue
		}

		placeholders := strings.TrimSuffix(
			strings.Repeat("?, ", len(t.columns)), ", ")
		stmt, err := r.Prepare(
			"INSERT INTO " + name + " VALUES (" + placeholders + ")")
		if err != nil {
			panic(err)
		}

		for _, row := range t.rows {
			v := reflect.ValueOf(row)
			args := make([]any, 0, v.NumField())
			for i := 0; i < v.NumField(); i++ {
				args = append(args, v.Field(i).Interface())
			}

			if _, err := stmt.Exec(args...); err != nil {
				panic(err)
			}
		}

		t.rows = nil
		stmt.Close()
	}

	r.rowCount = 0
}

func (r *sqliteRecorder) mustExecute(query string) sql.Result {
	res, err := r.Exec(query)
	if err != nil {
		fmt.Printf("Failed to execute: %s\n", query)
		panic(err)
	}

	return res
}
