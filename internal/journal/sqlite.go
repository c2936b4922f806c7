package journal

import (
	"database/sql"
	"fmt"
	"time"

	"platelog/internal/journal/migrations"
	"platelog/internal/review"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteJournal implements the review.Journal interface using SQLite.
type SQLiteJournal struct {
	db   *sql.DB
	path string
}

// NewSQLiteJournal opens (or creates) a journal database at path and brings
// its schema to the latest version. path can be a file path or ":memory:"
// for an in-memory journal.
func NewSQLiteJournal(path string) (*SQLiteJournal, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating journal: %w", err)
	}

	return &SQLiteJournal{
		db:   db,
		path: path,
	}, nil
}

// OpenConnection opens and configures a SQLite connection with appropriate
// PRAGMAs. Exported for tools and tests that need a properly configured
// connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

func (j *SQLiteJournal) BeginOperation(entry *review.OperationEntry) error {
	_, err := j.db.Exec(
		`INSERT INTO operations (id, operation, parameters, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		entry.ID, entry.Operation, entry.Parameters, "running", entry.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("recording operation start: %w", err)
	}
	return nil
}

func (j *SQLiteJournal) FinishOperation(id, status string, finishedAt time.Time) error {
	res, err := j.db.Exec(
		`UPDATE operations SET status = ?, finished_at = ? WHERE id = ?`,
		status, finishedAt, id,
	)
	if err != nil {
		return fmt.Errorf("recording operation finish: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("recording operation finish: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("recording operation finish: no operation with id %s", id)
	}
	return nil
}

func (j *SQLiteJournal) RecordArtifact(entry *review.ArtifactEntry) error {
	_, err := j.db.Exec(
		`INSERT INTO artifacts (id, reference, size_bytes, content_type, created_at) VALUES (?, ?, ?, ?, ?)`,
		entry.ID, entry.Reference, entry.SizeBytes, entry.ContentType, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("recording artifact: %w", err)
	}
	return nil
}

func (j *SQLiteJournal) RecentOperations(limit int) ([]*review.OperationEntry, error) {
	// rowid tiebreaks entries sharing a start time by insertion order.
	rows, err := j.db.Query(
		`SELECT id, operation, parameters, status, started_at, finished_at
		 FROM operations ORDER BY started_at DESC, rowid DESC LIMIT ?`,
		int64(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	defer rows.Close()

	var entries []*review.OperationEntry
	for rows.Next() {
		entry := &review.OperationEntry{}
		var finishedAt sql.NullTime
		if err := rows.Scan(&entry.ID, &entry.Operation, &entry.Parameters, &entry.Status, &entry.StartedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scanning operation: %w", err)
		}
		if finishedAt.Valid {
			entry.FinishedAt = finishedAt.Time
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return entries, nil
}

// Path returns the journal file path (or ":memory:" for in-memory journals).
func (j *SQLiteJournal) Path() string {
	return j.path
}

// Close closes the journal database connection.
func (j *SQLiteJournal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteJournal implements the review.Journal interface
var _ review.Journal = (*SQLiteJournal)(nil)
