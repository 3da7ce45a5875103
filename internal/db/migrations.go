package db

import (
	"database/sql"
	"fmt"
)

// schema holds one entry per schema version; entry i upgrades version i to
// i+1. Entries are never edited once released, only appended.
var schema = []string{
	// 1: generic key-value state.
	`CREATE TABLE IF NOT EXISTS kv (
		key        TEXT     PRIMARY KEY,
		value      BLOB     NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
}

// migrate applies the schema steps the file has not seen yet, each in its
// own transaction together with the version bump.
func migrate(db *sql.DB) error {
	var current int
	if err := db.QueryRow("PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	if current > len(schema) {
		return fmt.Errorf("schema version %d is newer than this build supports (%d); upgrade hn", current, len(schema))
	}

	for v := current; v < len(schema); v++ {
		if err := step(db, v+1, schema[v]); err != nil {
			return err
		}
	}
	return nil
}

func step(db *sql.DB, version int, stmt string) (err error) {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("schema %d: %w", version, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.Exec(stmt); err != nil {
		return fmt.Errorf("schema %d: %w", version, err)
	}
	// PRAGMA does not take bind parameters.
	if _, err = tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		return fmt.Errorf("schema %d: setting version: %w", version, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("schema %d: commit: %w", version, err)
	}
	return nil
}
