package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/usherlabs/custody/internal/crypto"
)

// SQLite stores documents in a SQLite database. When a master key is set,
// document values are encrypted at rest.
type SQLite struct {
	db        *sql.DB
	masterKey *crypto.MasterKey
}

// OpenSQLite creates or opens the database at dbPath and runs migrations.
// If masterKey is nil, values are stored in plaintext.
func OpenSQLite(dbPath string, masterKey *crypto.MasterKey) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	// WAL mode for concurrent readers
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLite{db: db, masterKey: masterKey}
	if err := s.Migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Migrate runs all database migrations.
func (s *SQLite) Migrate() error {
	migrations := []string{
		migrationDocuments,
	}

	for i, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}

const migrationDocuments = `
CREATE TABLE IF NOT EXISTS documents (
	did TEXT NOT NULL,
	key TEXT NOT NULL,
	record_id TEXT NOT NULL UNIQUE,
	value TEXT NOT NULL,
	encrypted INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (did, key)
);

CREATE INDEX IF NOT EXISTS idx_documents_did ON documents(did);
`

// Open returns the store of did.
func (s *SQLite) Open(ctx context.Context, did string) (Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &sqliteStore{s: s, did: did}, nil
}

type sqliteStore struct {
	s   *SQLite
	did string
}

func (st *sqliteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	var encrypted bool

	err := st.s.db.QueryRowContext(ctx, `
		SELECT value, encrypted FROM documents WHERE did = ? AND key = ?
	`, st.did, key).Scan(&value, &encrypted)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s: %w", key, err)
	}

	if !encrypted {
		return []byte(value), nil
	}
	if st.s.masterKey == nil {
		return nil, fmt.Errorf("document %s is encrypted but no master key is configured", key)
	}

	decrypted, err := st.s.masterKey.Decrypt(value)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt document %s: %w", key, err)
	}
	return decrypted, nil
}

func (st *sqliteStore) Set(ctx context.Context, key string, value []byte) error {
	now := time.Now()

	storedValue := string(value)
	encrypted := false
	if st.s.masterKey != nil {
		enc, err := st.s.masterKey.Encrypt(value)
		if err != nil {
			return fmt.Errorf("failed to encrypt document %s: %w", key, err)
		}
		storedValue = enc
		encrypted = true
	}

	// record_id is only taken from the insert; updates keep the original.
	_, err := st.s.db.ExecContext(ctx, `
		INSERT INTO documents (did, key, record_id, value, encrypted, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(did, key) DO UPDATE SET
			value = excluded.value,
			encrypted = excluded.encrypted,
			updated_at = excluded.updated_at
	`, st.did, key, uuid.NewString(), storedValue, encrypted, now, now)
	if err != nil {
		return fmt.Errorf("failed to set document %s: %w", key, err)
	}
	return nil
}

func (st *sqliteStore) RecordID(ctx context.Context, key string) (string, error) {
	var recordID string
	err := st.s.db.QueryRowContext(ctx, `
		SELECT record_id FROM documents WHERE did = ? AND key = ?
	`, st.did, key).Scan(&recordID)

	if err == sql.ErrNoRows {
		return "", ErrRecordMissing
	}
	if err != nil {
		return "", fmt.Errorf("failed to get record id for %s: %w", key, err)
	}
	return recordID, nil
}
