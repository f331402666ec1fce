package storage

import (
	"database/sql"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// New opens a SQLite database connection at the given path.
// It enables foreign keys and WAL and sets a busy timeout so concurrent
// readers and the ingestion writer do not fail with "database is locked".
func New(path string) (*sql.DB, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	// Enable foreign keys (disabled by default in SQLite)
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Migrate creates the document registry and the tables used by the sqlite vector backend.
// It is idempotent.
func Migrate(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			source TEXT PRIMARY KEY,
			hash TEXT NOT NULL,
			collection TEXT NOT NULL,
			chunk_count INTEGER NOT NULL DEFAULT 0,
			rejected_chunks INTEGER NOT NULL DEFAULT 0,
			ingested_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS document_chunks (
			source TEXT NOT NULL,
			chunk_id TEXT NOT NULL,
			PRIMARY KEY (source, chunk_id),
			FOREIGN KEY (source) REFERENCES documents(source) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_document_chunks_chunk_id ON document_chunks (chunk_id);`,
		`CREATE TABLE IF NOT EXISTS vector_collections (
			name TEXT PRIMARY KEY,
			vector_size INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS vector_points (
			collection TEXT NOT NULL,
			id TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			text TEXT NOT NULL,
			meta TEXT NOT NULL DEFAULT '{}',
			vector TEXT NOT NULL,
			PRIMARY KEY (collection, id),
			FOREIGN KEY (collection) REFERENCES vector_collections(name) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_vector_points_source ON vector_points (collection, source);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
