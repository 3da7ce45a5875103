package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T) string
		wantErr string
	}{
		{
			name: "fresh state directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), ".homenest", "hn.db")
			},
		},
		{
			name: "directory in place of file",
			setup: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "hn.db")
				if err := os.Mkdir(path, 0o755); err != nil {
					t.Fatalf("setup: %v", err)
				}
				return path
			},
			wantErr: "state database",
		},
		{
			name: "written by a newer hn",
			setup: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "hn.db")
				d := mustOpen(t, path)
				if _, err := d.Exec(fmt.Sprintf("PRAGMA user_version = %d", len(schema)+1)); err != nil {
					t.Fatalf("setup: %v", err)
				}
				mustClose(t, d)
				return path
			},
			wantErr: "newer than this build supports",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Open(tt.setup(t))
			if tt.wantErr != "" {
				if err == nil {
					mustClose(t, d)
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("error = %q, want it to mention %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			mustClose(t, d)
		})
	}
}

func TestStateFilePermissions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".homenest")
	path := filepath.Join(dir, "hn.db")
	mustClose(t, mustOpen(t, path))

	tests := []struct {
		path string
		want os.FileMode
	}{
		{dir, 0o700},
		{path, 0o600},
	}
	for _, tt := range tests {
		info, err := os.Stat(tt.path)
		if err != nil {
			t.Fatalf("stat %s: %v", tt.path, err)
		}
		if got := info.Mode().Perm(); got != tt.want {
			t.Errorf("%s mode = %o, want %o", filepath.Base(tt.path), got, tt.want)
		}
	}
}

func TestStateFileTightenedOnReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hn.db")
	mustClose(t, mustOpen(t, path))
	if err := os.Chmod(path, 0o644); err != nil {
		t.Fatalf("chmod: %v", err)
	}

	mustClose(t, mustOpen(t, path))

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if got := info.Mode().Perm(); got != 0o600 {
		t.Errorf("mode after reopen = %o, want 600", got)
	}
}

func TestPragmas(t *testing.T) {
	d := mustOpen(t, filepath.Join(t.TempDir(), "hn.db"))
	t.Cleanup(func() { mustClose(t, d) })

	tests := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"busy_timeout", "5000"},
		{"user_version", fmt.Sprint(len(schema))},
	}
	for _, tt := range tests {
		var got string
		if err := d.QueryRow("PRAGMA " + tt.pragma).Scan(&got); err != nil {
			t.Fatalf("PRAGMA %s: %v", tt.pragma, err)
		}
		if got != tt.want {
			t.Errorf("%s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestKVSchema(t *testing.T) {
	d := mustOpen(t, filepath.Join(t.TempDir(), "hn.db"))
	t.Cleanup(func() { mustClose(t, d) })

	want := []string{"key", "value", "updated_at"}
	cols := tableColumns(t, d, "kv")
	if strings.Join(cols, ",") != strings.Join(want, ",") {
		t.Errorf("kv columns = %v, want %v", cols, want)
	}
}

func TestKVUpsertReplacesSession(t *testing.T) {
	d := mustOpen(t, filepath.Join(t.TempDir(), "hn.db"))
	t.Cleanup(func() { mustClose(t, d) })

	const upsert = `INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`
	for _, token := range []string{"first", "second"} {
		if _, err := d.Exec(upsert, "session", []byte(token)); err != nil {
			t.Fatalf("upsert %s: %v", token, err)
		}
	}

	var n int
	var value []byte
	if err := d.QueryRow(`SELECT COUNT(*), MAX(value) FROM kv WHERE key = 'session'`).Scan(&n, &value); err != nil {
		t.Fatalf("query: %v", err)
	}
	if n != 1 || string(value) != "second" {
		t.Errorf("got %d rows with value %q, want 1 row with %q", n, value, "second")
	}
}

func TestStateSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hn.db")

	d := mustOpen(t, path)
	if _, err := d.Exec(`INSERT INTO kv (key, value) VALUES ('favorites', ?)`, []byte(`["p1"]`)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	mustClose(t, d)

	d = mustOpen(t, path)
	t.Cleanup(func() { mustClose(t, d) })
	var value []byte
	if err := d.QueryRow(`SELECT value FROM kv WHERE key = 'favorites'`).Scan(&value); err != nil {
		t.Fatalf("favorites lost on reopen: %v", err)
	}
	if string(value) != `["p1"]` {
		t.Errorf("favorites = %s, want [\"p1\"]", value)
	}
}

func TestDefaultPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	p, err := DefaultPath()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := filepath.Join(home, ".homenest", "hn.db"); p != want {
		t.Errorf("DefaultPath() = %q, want %q", p, want)
	}
}

func mustOpen(t *testing.T, path string) *sql.DB {
	t.Helper()
	d, err := Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	return d
}

func mustClose(t *testing.T, d *sql.DB) {
	t.Helper()
	if err := d.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
}

func tableColumns(t *testing.T, d *sql.DB, table string) []string {
	t.Helper()
	rows, err := d.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		t.Fatalf("pragma table_info(%s): %v", table, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			t.Errorf("close rows: %v", err)
		}
	}()

	var cols []string
	for rows.Next() {
		var cid, notnull, pk int
		var name, typ string
		var dflt *string
		if err := rows.Scan(&cid, &name, &typ, &notnull, &dflt, &pk); err != nil {
			t.Fatalf("scan: %v", err)
		}
		cols = append(cols, name)
	}
	return cols
}
