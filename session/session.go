// Package session persists the local user session between runs: the signed-in
// credentials, the UI theme and the last opened board.
package session

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNoSession is returned when no credentials are stored.
var ErrNoSession = errors.New("no stored session")

// DefaultTheme is used until the user picks one.
const DefaultTheme = "system"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS credentials (
    id         INTEGER PRIMARY KEY CHECK (id = 1),
    user_id    TEXT NOT NULL,
    token      TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS preferences (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
`

// Store is a sqlite-backed session store. Safe for concurrent use; sqlite
// serializes writers internally.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the session database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init session schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// SaveCredentials stores the signed-in user and token, replacing any
// previous session.
func (s *Store) SaveCredentials(userID, token string) error {
	if userID == "" || token == "" {
		return errors.New("session: user id and token must be set")
	}
	_, err := s.db.Exec(
		`INSERT INTO credentials (id, user_id, token, updated_at) VALUES (1, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET user_id = excluded.user_id, token = excluded.token, updated_at = excluded.updated_at`,
		userID, token, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// Credentials returns the stored user id and token, or ErrNoSession.
func (s *Store) Credentials() (userID, token string, err error) {
	row := s.db.QueryRow(`SELECT user_id, token FROM credentials WHERE id = 1`)
	if err := row.Scan(&userID, &token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", "", ErrNoSession
		}
		return "", "", err
	}
	return userID, token, nil
}

// ClearCredentials signs the user out. Clearing an empty store is fine.
func (s *Store) ClearCredentials() error {
	_, err := s.db.Exec(`DELETE FROM credentials WHERE id = 1`)
	return err
}

func (s *Store) setPreference(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
         ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) preference(key string) (string, error) {
	var value string
	row := s.db.QueryRow(`SELECT value FROM preferences WHERE key = ?`, key)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return value, nil
}

// SetTheme stores the UI theme preference.
func (s *Store) SetTheme(theme string) error {
	switch theme {
	case "light", "dark", "system":
		return s.setPreference("theme", theme)
	default:
		return fmt.Errorf("session: unknown theme %q", theme)
	}
}

// Theme returns the stored theme, or DefaultTheme when unset.
func (s *Store) Theme() (string, error) {
	theme, err := s.preference("theme")
	if err != nil {
		return "", err
	}
	if theme == "" {
		return DefaultTheme, nil
	}
	return theme, nil
}

// SetLastBoard remembers the board to reopen on the next run.
func (s *Store) SetLastBoard(boardID string) error {
	return s.setPreference("last_board", boardID)
}

// LastBoard returns the last opened board id, empty when never set.
func (s *Store) LastBoard() (string, error) {
	return s.preference("last_board")
}
