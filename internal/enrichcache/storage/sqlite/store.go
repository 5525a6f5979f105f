// Package sqlite provides a SQLite-backed enrichment cache storage
// implementation.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/pressroom/internal/enrichcache/storage"
	"github.com/louisbranch/pressroom/internal/enrichcache/storage/sqlite/migrations"
	sqlitemigrate "github.com/louisbranch/pressroom/internal/platform/storage/sqlitemigrate"
	_ "modernc.org/sqlite"
)

// versionKey names the meta row recording the cache format version.
const versionKey = "cache_version"

// Store persists enrichment cache state in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite enrichment cache store and applies embedded
// migrations. When the stored format version differs from version, all
// cached entries are dropped and the version row is rewritten; old entries
// are never reinterpreted under a new format.
func Open(path, version string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if strings.TrimSpace(version) == "" {
		return nil, fmt.Errorf("cache version is required")
	}
	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	if err := ensureVersion(sqlDB, version); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("reconcile cache version: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// ensureVersion wipes cached entries when the stored version differs and
// records the current version.
func ensureVersion(sqlDB *sql.DB, version string) error {
	var stored string
	err := sqlDB.QueryRow("SELECT value FROM cache_meta WHERE key = ?", versionKey).Scan(&stored)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("read version: %w", err)
	}
	if stored == version {
		return nil
	}
	tx, err := sqlDB.Begin()
	if err != nil {
		return fmt.Errorf("begin version transaction: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM enrichment_entries"); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("drop stale entries: %w", err)
	}
	if _, err := tx.Exec(
		"INSERT INTO cache_meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		versionKey, version,
	); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record version: %w", err)
	}
	return tx.Commit()
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// GetEntry reads one cached entry.
func (s *Store) GetEntry(ctx context.Context, resourceKey string) (storage.Entry, bool, error) {
	if err := ctx.Err(); err != nil {
		return storage.Entry{}, false, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Entry{}, false, fmt.Errorf("storage is not configured")
	}
	resourceKey = strings.TrimSpace(resourceKey)
	if resourceKey == "" {
		return storage.Entry{}, false, fmt.Errorf("resource key is required")
	}

	var content string
	var storedAt int64
	err := s.sqlDB.QueryRowContext(
		ctx,
		"SELECT content, stored_at_ms FROM enrichment_entries WHERE resource_key = ?",
		resourceKey,
	).Scan(&content, &storedAt)
	if err == sql.ErrNoRows {
		return storage.Entry{}, false, nil
	}
	if err != nil {
		return storage.Entry{}, false, fmt.Errorf("read entry: %w", err)
	}
	return storage.Entry{
		ResourceKey: resourceKey,
		Content:     content,
		StoredAt:    fromMillis(storedAt),
	}, true, nil
}

// PutEntry inserts or replaces one cached entry.
func (s *Store) PutEntry(ctx context.Context, entry storage.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	resourceKey := strings.TrimSpace(entry.ResourceKey)
	if resourceKey == "" {
		return fmt.Errorf("resource key is required")
	}
	storedAt := entry.StoredAt
	if storedAt.IsZero() {
		storedAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO enrichment_entries (resource_key, content, stored_at_ms)
		 VALUES (?, ?, ?)
		 ON CONFLICT(resource_key) DO UPDATE SET
		   content = excluded.content,
		   stored_at_ms = excluded.stored_at_ms`,
		resourceKey, entry.Content, toMillis(storedAt),
	)
	if err != nil {
		return fmt.Errorf("write entry: %w", err)
	}
	return nil
}

// DeleteEntry removes one cached entry.
func (s *Store) DeleteEntry(ctx context.Context, resourceKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	resourceKey = strings.TrimSpace(resourceKey)
	if resourceKey == "" {
		return fmt.Errorf("resource key is required")
	}
	if _, err := s.sqlDB.ExecContext(ctx, "DELETE FROM enrichment_entries WHERE resource_key = ?", resourceKey); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

// Clear removes every cached entry.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if _, err := s.sqlDB.ExecContext(ctx, "DELETE FROM enrichment_entries"); err != nil {
		return fmt.Errorf("clear entries: %w", err)
	}
	return nil
}
