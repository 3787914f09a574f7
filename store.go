package sitegen

import (
	"database/sql"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps a SQLite database that remembers the content hash of every
// output file, so incremental builds can skip rewriting unchanged files.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the SQLite database at path, ensures the
// parent directory exists, and runs schema migrations.
func OpenStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets the dev server's rebuild worker write while a build from
	// another process reads; busy_timeout makes writers wait.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS outputs (
    path TEXT PRIMARY KEY,
    hash TEXT NOT NULL,
    built_at TEXT NOT NULL
);
`)
	return err
}

// Unchanged reports whether path was last written with hash.
func (s *Store) Unchanged(path, hash string) (bool, error) {
	var stored string
	err := s.db.QueryRow(`SELECT hash FROM outputs WHERE path = ?`, path).Scan(&stored)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return stored == hash, nil
}

// Record upserts the hash written for path.
func (s *Store) Record(path, hash string) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO outputs (path, hash, built_at) VALUES (?, ?, ?)`,
		path, hash, time.Now().UTC().Format(time.RFC3339))
	return err
}

// Paths returns every recorded output path, sorted.
func (s *Store) Paths() ([]string, error) {
	rows, err := s.db.Query(`SELECT path FROM outputs`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// Prune forgets every recorded path not in keep and returns how many
// entries were removed. Files on disk are left alone.
func (s *Store) Prune(keep map[string]struct{}) (int, error) {
	paths, err := s.Paths()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, p := range paths {
		if _, ok := keep[p]; ok {
			continue
		}
		if _, err := s.db.Exec(`DELETE FROM outputs WHERE path = ?`, p); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
