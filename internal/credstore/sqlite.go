package credstore

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLiteStore is the durable Store implementation. Credentials live in a
// single-row table on the device; the row is read once at open and every
// write goes through to disk before updating the in-memory view.
type SQLiteStore struct {
	db     *sqlx.DB
	mu     sync.RWMutex
	token  *string
	userID *string
}

type credentialRow struct {
	Token  *string `db:"token"`
	UserID *string `db:"user_id"`
}

// OpenSQLite opens (creating if needed) the credential database at path.
// Failure here is fatal to the process; there is no degraded mode.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create credential directory: %w", err)
		}
	}

	db, err := sqlx.Connect("sqlite", path+"?_journal=WAL&_sync=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open credential database: %w", err)
	}

	// Single writer, single reader; a pool buys nothing here.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS credentials (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			token TEXT,
			user_id TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("initialize credential schema: %w", err)
	}

	var row credentialRow
	err = s.db.Get(&row, `SELECT token, user_id FROM credentials WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := s.db.Exec(`INSERT INTO credentials (id) VALUES (1)`); err != nil {
			return fmt.Errorf("seed credential row: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}

	s.token = row.Token
	s.userID = row.UserID
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveToken(token *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`UPDATE credentials SET token = $1 WHERE id = 1`, token); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	s.token = copyField(token)
	return nil
}

func (s *SQLiteStore) SaveUserID(id *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`UPDATE credentials SET user_id = $1 WHERE id = 1`, id); err != nil {
		return fmt.Errorf("persist user id: %w", err)
	}
	s.userID = copyField(id)
	return nil
}

func (s *SQLiteStore) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == nil {
		return "", false
	}
	return *s.token, true
}

func (s *SQLiteStore) UserID() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.userID == nil {
		return "", false
	}
	return *s.userID, true
}

func (s *SQLiteStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`UPDATE credentials SET token = NULL, user_id = NULL WHERE id = 1`); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	s.token = nil
	s.userID = nil
	return nil
}

func (s *SQLiteStore) IsLoggedIn() bool {
	_, ok := s.Token()
	return ok
}
