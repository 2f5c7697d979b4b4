// Package store — хранилище ключ/значение для расширений поверх SQLite.
// Ключи разделены по имени расширения, одно расширение не видит чужие.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// лимит на размер значения, больше расширению не нужно
const MaxValueLen = 64 << 10

var ErrValueTooLarge = errors.New("value too large")

type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// Open открывает (или создаёт) базу по пути path. ":memory:" — база в памяти.
func Open(path string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	// один писатель, sqlite не любит параллельные записи
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		log.Warn("enable WAL", "error", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS extension_storage (
		extension TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (extension, key)
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	log.Debug("store opened", "path", path)
	return &Store{db: db, log: log}, nil
}

func (s *Store) Get(ctx context.Context, ext, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM extension_storage WHERE extension = ? AND key = ?",
		ext, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s/%s: %w", ext, key, err)
	}
	return value, true, nil
}

func (s *Store) Set(ctx context.Context, ext, key, value string) error {
	if len(value) > MaxValueLen {
		return ErrValueTooLarge
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO extension_storage (extension, key, value)
		VALUES (?, ?, ?)
		ON CONFLICT(extension, key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, ext, key, value)
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", ext, key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, ext, key string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM extension_storage WHERE extension = ? AND key = ?",
		ext, key,
	)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", ext, key, err)
	}
	return nil
}

// Keys — ключи расширения, отсортированные.
func (s *Store) Keys(ctx context.Context, ext string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT key FROM extension_storage WHERE extension = ? ORDER BY key", ext)
	if err != nil {
		return nil, fmt.Errorf("keys %s: %w", ext, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
