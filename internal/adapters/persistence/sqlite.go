// Package persistence provides durable storage for built index artifacts.
// Clean Architecture: Adapter implementing ports.ArtifactStore.
// One SQLite file holds the record metadata, the aligned embedding vectors,
// and the fingerprint of the data they were built from.
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/0xcro3dile/licenserag-go/internal/domain/entities"
)

const fingerprintKey = "fingerprint"

// SQLiteStore persists index artifacts at a fixed well-known location.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the artifact database under dataPath.
func NewSQLiteStore(dataPath string) (*SQLiteStore, error) {
	if dataPath == "" {
		dataPath = "./data"
	}
	if err := os.MkdirAll(dataPath, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dataPath, "index.db"))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS indexed_records (
		position INTEGER PRIMARY KEY,
		record TEXT NOT NULL,
		embedding TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS index_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Load reads the persisted collection. ok is false when nothing has been
// saved yet.
func (s *SQLiteStore) Load(ctx context.Context) ([]entities.Record, [][]float32, string, bool, error) {
	var fingerprint string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM index_meta WHERE key = ?", fingerprintKey,
	).Scan(&fingerprint)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, "", false, nil
	}
	if err != nil {
		return nil, nil, "", false, fmt.Errorf("reading fingerprint: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT record, embedding FROM indexed_records ORDER BY position",
	)
	if err != nil {
		return nil, nil, "", false, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var records []entities.Record
	var vectors [][]float32
	for rows.Next() {
		var recordJSON, embeddingJSON []byte
		if err := rows.Scan(&recordJSON, &embeddingJSON); err != nil {
			return nil, nil, "", false, fmt.Errorf("scanning row: %w", err)
		}

		var record entities.Record
		if err := json.Unmarshal(recordJSON, &record); err != nil {
			return nil, nil, "", false, fmt.Errorf("decoding record: %w", err)
		}
		var vector []float32
		if err := json.Unmarshal(embeddingJSON, &vector); err != nil {
			return nil, nil, "", false, fmt.Errorf("decoding embedding: %w", err)
		}

		records = append(records, record)
		vectors = append(vectors, vector)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, "", false, fmt.Errorf("iterating rows: %w", err)
	}

	return records, vectors, fingerprint, true, nil
}

// Save replaces the persisted collection and fingerprint in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, records []entities.Record, vectors [][]float32, fingerprint string) error {
	if len(records) != len(vectors) {
		return fmt.Errorf("cannot persist %d records with %d vectors", len(records), len(vectors))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM indexed_records"); err != nil {
		return fmt.Errorf("clearing records: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO indexed_records (position, record, embedding) VALUES (?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i := range records {
		recordJSON, err := json.Marshal(records[i])
		if err != nil {
			return fmt.Errorf("encoding record %d: %w", i, err)
		}
		embeddingJSON, err := json.Marshal(vectors[i])
		if err != nil {
			return fmt.Errorf("encoding embedding %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, i, recordJSON, embeddingJSON); err != nil {
			return fmt.Errorf("inserting record %d: %w", i, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO index_meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		fingerprintKey, fingerprint,
	); err != nil {
		return fmt.Errorf("saving fingerprint: %w", err)
	}

	return tx.Commit()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
