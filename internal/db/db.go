// Package db opens the SQLite file that holds local client state: the
// signed-in session, favorites and the remembered email.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// DefaultPath returns ~/.homenest/hn.db.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".homenest", "hn.db"), nil
}

// Open opens or creates the state database at path and brings its schema
// up to date. The file is readable by the owner only since it stores
// refresh tokens.
func Open(path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating state directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening state database: %w", err)
	}

	if err := prepare(db, path); err != nil {
		err = fmt.Errorf("preparing state database %s: %w", path, err)
		if closeErr := db.Close(); closeErr != nil {
			return nil, errors.Join(err, fmt.Errorf("closing state database: %w", closeErr))
		}
		return nil, err
	}
	return db, nil
}

func prepare(db *sql.DB, path string) error {
	// Several hn processes may share the file; WAL lets readers proceed
	// while another process writes, and the busy timeout covers writers.
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("executing %s: %w", pragma, err)
		}
	}

	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("restricting permissions: %w", err)
	}

	if err := migrate(db); err != nil {
		return fmt.Errorf("migrating: %w", err)
	}
	return nil
}
