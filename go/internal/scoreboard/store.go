package scoreboard

import (
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for score persistence.
type Store struct {
	db *sql.DB
}

// OpenStore opens or creates the SQLite database at path and applies
// migrations.
func OpenStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scores (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			score INTEGER NOT NULL,
			submitted_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_scores_rank ON scores(score DESC, submitted_at ASC);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Insert appends one score entry.
func (s *Store) Insert(e Entry) error {
	_, err := s.db.Exec(
		`INSERT INTO scores (name, score, submitted_at) VALUES (?, ?, ?)`,
		e.Name, e.Score, e.Timestamp,
	)
	return err
}

// Load returns up to limit entries ranked best-first.
func (s *Store) Load(limit int) ([]Entry, error) {
	rows, err := s.db.Query(
		`SELECT name, score, submitted_at FROM scores
		 ORDER BY score DESC, submitted_at ASC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Name, &e.Score, &e.Timestamp); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
