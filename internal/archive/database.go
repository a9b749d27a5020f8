// Package archive stores decoded flights in a SQLite database.
package archive

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"example.com/edmdat/internal/edm"
)

// DB is a flight archive backed by SQLite.
type DB struct {
	db *sql.DB
}

// New opens or creates the archive at dbPath.
func New(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := tuneSQLite(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to tune database: %w", err)
	}

	archive := &DB{db: db}
	if err := archive.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return archive, nil
}

func tuneSQLite(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) initSchema() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS imports (
			id TEXT PRIMARY KEY,
			path TEXT NOT NULL,
			sha256 TEXT NOT NULL,
			tail_number TEXT,
			model INTEGER NOT NULL,
			firmware INTEGER NOT NULL,
			flags INTEGER NOT NULL,
			imported_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS flights (
			import_id TEXT NOT NULL REFERENCES imports(id),
			number INTEGER NOT NULL,
			start TIMESTAMP NOT NULL,
			interval_secs INTEGER NOT NULL,
			flags INTEGER NOT NULL,
			rows INTEGER NOT NULL,
			duration_secs REAL NOT NULL,
			PRIMARY KEY (import_id, number)
		)`,
		`CREATE TABLE IF NOT EXISTS samples (
			import_id TEXT NOT NULL,
			flight INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			ts TIMESTAMP NOT NULL,
			channel TEXT NOT NULL,
			value REAL,
			mark INTEGER NOT NULL,
			FOREIGN KEY (import_id, flight) REFERENCES flights(import_id, number)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_imports_sha256 ON imports(sha256)`,
		`CREATE INDEX IF NOT EXISTS idx_samples_flight ON samples(import_id, flight, seq)`,
	}
	for _, stmt := range schema {
		if _, err := d.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// Import identifies one archived input file.
type Import struct {
	ID     string
	Path   string
	SHA256 string

	db *DB
}

// BeginImport records an input file and returns the import its flights are
// written under.
func (d *DB) BeginImport(path, sha256 string, h *edm.Header) (*Import, error) {
	imp := &Import{ID: uuid.NewString(), Path: path, SHA256: sha256, db: d}
	_, err := d.db.Exec(`INSERT INTO imports (
		id, path, sha256, tail_number, model, firmware, flags, imported_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		imp.ID, path, sha256, h.TailNumber, h.Config.Model, h.Config.Firmware, uint32(h.Config.Flags), time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert import: %w", err)
	}
	return imp, nil
}

// FindImports returns the IDs of imports of a file with the given digest,
// oldest first.
func (d *DB) FindImports(sha256 string) ([]string, error) {
	rows, err := d.db.Query(`SELECT id FROM imports WHERE sha256 = ? ORDER BY imported_at, rowid`, sha256)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// FlightRow is an archived flight.
type FlightRow struct {
	Number       uint16
	Start        time.Time
	IntervalSecs int
	Flags        edm.Features
	Rows         int
	Duration     time.Duration
}

// Flights lists the flights of an import in number order.
func (d *DB) Flights(importID string) ([]FlightRow, error) {
	rows, err := d.db.Query(`SELECT number, start, interval_secs, flags, rows, duration_secs
		FROM flights WHERE import_id = ? ORDER BY number`, importID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []FlightRow
	for rows.Next() {
		var (
			fr    FlightRow
			flags uint32
			secs  float64
		)
		if err := rows.Scan(&fr.Number, &fr.Start, &fr.IntervalSecs, &flags, &fr.Rows, &secs); err != nil {
			return nil, err
		}
		fr.Flags = edm.Features(flags)
		fr.Duration = time.Duration(secs * float64(time.Second))
		out = append(out, fr)
	}
	return out, rows.Err()
}

// SampleRow is one archived channel value. Value is nil when the sensor
// reported not available.
type SampleRow struct {
	Seq     int
	Time    time.Time
	Channel string
	Value   *float64
	Mark    bool
}

// Samples returns the archived values of one channel of a flight in row
// order.
func (d *DB) Samples(importID string, flight uint16, channel string) ([]SampleRow, error) {
	rows, err := d.db.Query(`SELECT seq, ts, channel, value, mark FROM samples
		WHERE import_id = ? AND flight = ? AND channel = ? ORDER BY seq`, importID, flight, channel)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SampleRow
	for rows.Next() {
		var (
			s     SampleRow
			value sql.NullFloat64
		)
		if err := rows.Scan(&s.Seq, &s.Time, &s.Channel, &value, &s.Mark); err != nil {
			return nil, err
		}
		if value.Valid {
			v := value.Float64
			s.Value = &v
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
