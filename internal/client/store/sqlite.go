package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bissquit/crmdesk/internal/client/store/migrations"
	"github.com/bissquit/crmdesk/internal/domain"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// SQLiteStore persists the session in a SQLite file so it survives restarts.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the store at dsn and migrates it.
// Use ":memory:" for a throwaway store.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection: SQLite has a single writer and ":memory:" is per connection.
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migrate store: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Credential implements Store.
func (s *SQLiteStore) Credential(ctx context.Context) (string, error) {
	value, err := s.get(ctx, KeyCredential)
	if err != nil {
		return "", err
	}
	return value, nil
}

// SetCredential implements Store.
func (s *SQLiteStore) SetCredential(ctx context.Context, secretKey string) error {
	return s.set(ctx, s.db, KeyCredential, secretKey)
}

// Profile implements Store.
func (s *SQLiteStore) Profile(ctx context.Context) (*domain.Profile, error) {
	value, err := s.get(ctx, KeyProfile)
	if err != nil || value == "" {
		return nil, err
	}
	var p domain.Profile
	if err := json.Unmarshal([]byte(value), &p); err != nil {
		return nil, fmt.Errorf("decode %s: %w", KeyProfile, err)
	}
	return &p, nil
}

// SetProfile implements Store.
func (s *SQLiteStore) SetProfile(ctx context.Context, profile domain.Profile) error {
	value, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode %s: %w", KeyProfile, err)
	}
	return s.set(ctx, s.db, KeyProfile, string(value))
}

// IDLists implements Store.
func (s *SQLiteStore) IDLists(ctx context.Context) (domain.IDLists, error) {
	lists := emptyLists()
	for key, field := range listFields(&lists) {
		value, err := s.get(ctx, key)
		if err != nil {
			return domain.IDLists{}, err
		}
		if value == "" {
			continue
		}
		if err := json.Unmarshal([]byte(value), field); err != nil {
			return domain.IDLists{}, fmt.Errorf("decode %s: %w", key, err)
		}
		if *field == nil {
			*field = []string{}
		}
	}
	return lists, nil
}

// SetIDLists implements Store. All six keys are written in one transaction.
func (s *SQLiteStore) SetIDLists(ctx context.Context, lists domain.IDLists) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return s.setLists(ctx, tx, lists)
	})
}

// SetSnapshot implements Store. The profile and lists share one transaction.
func (s *SQLiteStore) SetSnapshot(ctx context.Context, profile domain.Profile, lists domain.IDLists) error {
	value, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode %s: %w", KeyProfile, err)
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.set(ctx, tx, KeyProfile, string(value)); err != nil {
			return err
		}
		return s.setLists(ctx, tx, lists)
	})
}

func (s *SQLiteStore) setLists(ctx context.Context, db execer, lists domain.IDLists) error {
	lists = cloneLists(lists)
	for key, field := range listFields(&lists) {
		value, err := json.Marshal(*field)
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		if err := s.set(ctx, db, key, string(value)); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Clear implements Store.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session`); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM session WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get %s: %w", key, err)
	}
	return value, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLiteStore) set(ctx context.Context, db execer, key, value string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO session (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}
