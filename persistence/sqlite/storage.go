package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikesparr/redis-workflow/persistence"
)

//go:embed schema.sql
var schemaSQL string

var _ persistence.Storage = new(sqliteStorage)

// sqliteStorage keeps workflow records on local disk for single node setups.
type sqliteStorage struct {
	db *sql.DB
}

// Open creates or opens the database at path and applies the schema.
func Open(path string) (*sqliteStorage, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to execute schema: %w", err)
	}
	return &sqliteStorage{db: db}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func (s *sqliteStorage) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (s *sqliteStorage) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.KeyNotFoundError{Key: key}
		}
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return value, nil
}

func (s *sqliteStorage) Delete(ctx context.Context, keys ...string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	defer tx.Rollback()
	for _, key := range keys {
		if _, err := tx.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
			return persistence.StorageLayerError{Message: err.Error()}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM members WHERE set_key = ?`, key); err != nil {
			return persistence.StorageLayerError{Message: err.Error()}
		}
	}
	if err := tx.Commit(); err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (s *sqliteStorage) AddMember(ctx context.Context, setKey string, member string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO members (set_key, member) VALUES (?, ?)`, setKey, member)
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (s *sqliteStorage) RemoveMember(ctx context.Context, setKey string, member string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM members WHERE set_key = ? AND member = ?`, setKey, member)
	if err != nil {
		return persistence.StorageLayerError{Message: err.Error()}
	}
	return nil
}

func (s *sqliteStorage) Members(ctx context.Context, setKey string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT member FROM members WHERE set_key = ? ORDER BY member`, setKey)
	if err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	defer rows.Close()

	members := []string{}
	for rows.Next() {
		var member string
		if err := rows.Scan(&member); err != nil {
			return nil, persistence.StorageLayerError{Message: err.Error()}
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence.StorageLayerError{Message: err.Error()}
	}
	return members, nil
}

func (s *sqliteStorage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
