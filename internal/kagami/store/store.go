// Package store provides Kagami's sqlite-backed session persistence: the
// operator-added exclusion patterns (encrypted at rest, since blocklist
// entries contain secret material), the worktree shared-dir list, and a small
// key/value table for runtime-tunable knobs.
//
// All access goes through database/sql with the modernc.org/sqlite driver;
// migrations run once at open time.
package store

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/bdobrica/Kagami/common/crypto"
	"github.com/bdobrica/Kagami/common/retry"
)

// ErrNotFound is returned by Get when the requested key does not exist.
var ErrNotFound = errors.New("store: key not found")

// Store wraps the sqlite database.
type Store struct {
	db  *sql.DB
	key []byte
}

// migrations are applied in order at open time.  Append only.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS exclusion_patterns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		pattern_cipher TEXT NOT NULL,
		allowlist INTEGER NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS shared_dirs (
		dir TEXT PRIMARY KEY,
		position INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS config (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
}

// Open opens (or creates) the database at path, applies migrations, and
// returns the Store.  masterKey encrypts persisted exclusion patterns; it
// must be crypto.KeySize bytes.
func Open(path string, masterKey []byte) (*Store, error) {
	if len(masterKey) != crypto.KeySize {
		return nil, crypto.ErrInvalidKeySize
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %q: %w", path, err)
	}
	// sqlite handles one writer; serialise at the pool level.
	db.SetMaxOpenConns(1)

	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: migration %d: %w", i, err)
		}
	}

	return &Store{db: db, key: masterKey}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// writeRetry wraps transient sqlite write failures (SQLITE_BUSY under
// concurrent readers) with a short backoff.
func (s *Store) writeRetry(ctx context.Context, fn func() error) error {
	return retry.Do(ctx, retry.Config{
		MaxAttempts:  3,
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     500 * time.Millisecond,
	}, fn)
}

// Pattern is one persisted exclusion pattern.
type Pattern struct {
	ID        int64
	Value     string
	Allowlist bool
	CreatedAt time.Time
}

// AddPattern persists an exclusion pattern.  The pattern text is encrypted
// with the master key before it touches disk.
func (s *Store) AddPattern(ctx context.Context, value string, allowlist bool) (*Pattern, error) {
	cipher, err := crypto.Encrypt(s.key, []byte(value))
	if err != nil {
		return nil, fmt.Errorf("store: encrypt pattern: %w", err)
	}
	now := time.Now().UTC()

	var id int64
	err = s.writeRetry(ctx, func() error {
		result, err := s.db.ExecContext(ctx, `
			INSERT INTO exclusion_patterns (pattern_cipher, allowlist, created_at)
			VALUES (?, ?, ?)
		`, hex.EncodeToString(cipher), boolToInt(allowlist), now.Format(time.RFC3339))
		if err != nil {
			return err
		}
		id, err = result.LastInsertId()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("store: add pattern: %w", err)
	}

	return &Pattern{ID: id, Value: value, Allowlist: allowlist, CreatedAt: now}, nil
}

// ListPatterns returns all persisted patterns, decrypted, oldest first.
// Entries that fail to decrypt (key rotation) are skipped.
func (s *Store) ListPatterns(ctx context.Context) ([]*Pattern, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, pattern_cipher, allowlist, created_at
		FROM exclusion_patterns
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("store: list patterns: %w", err)
	}
	defer rows.Close()

	var patterns []*Pattern
	for rows.Next() {
		var (
			id        int64
			cipherHex string
			allowlist int
			createdAt string
		)
		if err := rows.Scan(&id, &cipherHex, &allowlist, &createdAt); err != nil {
			return nil, fmt.Errorf("store: scan pattern: %w", err)
		}
		cipher, err := hex.DecodeString(cipherHex)
		if err != nil {
			continue
		}
		plain, err := crypto.Decrypt(s.key, cipher)
		if err != nil {
			continue
		}
		at, _ := time.Parse(time.RFC3339, createdAt)
		patterns = append(patterns, &Pattern{
			ID:        id,
			Value:     string(plain),
			Allowlist: allowlist != 0,
			CreatedAt: at,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate patterns: %w", err)
	}
	return patterns, nil
}

// ReplaceSharedDirs atomically replaces the worktree shared-dir list,
// preserving the given order.
func (s *Store) ReplaceSharedDirs(ctx context.Context, dirs []string) error {
	return s.writeRetry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("store: begin: %w", err)
		}
		defer tx.Rollback()

		if _, err := tx.ExecContext(ctx, `DELETE FROM shared_dirs`); err != nil {
			return fmt.Errorf("store: clear shared dirs: %w", err)
		}
		for i, dir := range dirs {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO shared_dirs (dir, position) VALUES (?, ?)
			`, dir, i); err != nil {
				return fmt.Errorf("store: insert shared dir %q: %w", dir, err)
			}
		}
		return tx.Commit()
	})
}

// SharedDirs returns the persisted shared-dir list in order.
func (s *Store) SharedDirs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT dir FROM shared_dirs ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("store: shared dirs: %w", err)
	}
	defer rows.Close()

	var dirs []string
	for rows.Next() {
		var dir string
		if err := rows.Scan(&dir); err != nil {
			return nil, fmt.Errorf("store: scan shared dir: %w", err)
		}
		dirs = append(dirs, dir)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate shared dirs: %w", err)
	}
	return dirs, nil
}

// Get returns the config value for key or ErrNotFound when absent.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM config WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("store: get %q: %w", key, err)
	}
	return value, nil
}

// Set upserts the config key/value pair.
func (s *Store) Set(ctx context.Context, key, value string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	return s.writeRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO config (key, value, updated_at)
			VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET
				value      = excluded.value,
				updated_at = excluded.updated_at
		`, key, value, now)
		if err != nil {
			return fmt.Errorf("store: set %q: %w", key, err)
		}
		return nil
	})
}

// Delete removes key.  Deleting a non-existent key returns nil.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.writeRetry(ctx, func() error {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM config WHERE key = ?`, key); err != nil {
			return fmt.Errorf("store: delete %q: %w", key, err)
		}
		return nil
	})
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
