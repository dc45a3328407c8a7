// Package sqlite persists the ingested chunk catalog so unchanged lecture
// folders are not re-chunked and re-embedded on every start.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/pressly/goose/v3"
	// Register modernc SQLite driver with database/sql.
	_ "modernc.org/sqlite"

	"ragchitchat/internal/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var gooseInitMu sync.Mutex

const fingerprintKey = "fingerprint"

// Catalog stores chunks and their embeddings alongside the fingerprint of the
// corpus they were built from.
type Catalog struct {
	db *sql.DB
}

// Open opens or creates the catalog at path and applies migrations.
func Open(ctx context.Context, path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open catalog: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: set busy timeout: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Catalog{db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	gooseInitMu.Lock()
	defer func() {
		goose.SetBaseFS(nil)
		gooseInitMu.Unlock()
	}()
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("sqlite: set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("sqlite: apply migrations: %w", err)
	}
	return nil
}

// Fingerprint returns the stored corpus fingerprint, or "" for an empty catalog.
func (c *Catalog) Fingerprint(ctx context.Context) (string, error) {
	var value string
	err := c.db.QueryRowContext(ctx, "SELECT value FROM catalog_meta WHERE key = ?", fingerprintKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("sqlite: read fingerprint: %w", err)
	}
	return value, nil
}

// Replace atomically swaps the stored chunks for the given set.
func (c *Catalog) Replace(ctx context.Context, fingerprint string, chunks []domain.Chunk) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return fmt.Errorf("sqlite: clear chunks: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO chunks (position, id, source, page, idx, text, embedding) VALUES (?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()
	for i, ch := range chunks {
		if _, err := stmt.ExecContext(ctx, i, ch.ID, ch.Source, ch.Page, ch.Index, ch.Text, encodeVector(ch.Embedding)); err != nil {
			return fmt.Errorf("sqlite: insert chunk %s: %w", ch.ID, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO catalog_meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		fingerprintKey, fingerprint); err != nil {
		return fmt.Errorf("sqlite: write fingerprint: %w", err)
	}
	return tx.Commit()
}

// Load returns all stored chunks in ingestion order.
func (c *Catalog) Load(ctx context.Context) ([]domain.Chunk, error) {
	rows, err := c.db.QueryContext(ctx,
		"SELECT id, source, page, idx, text, embedding FROM chunks ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("sqlite: query chunks: %w", err)
	}
	defer rows.Close()
	var out []domain.Chunk
	for rows.Next() {
		var ch domain.Chunk
		var blob []byte
		if err := rows.Scan(&ch.ID, &ch.Source, &ch.Page, &ch.Index, &ch.Text, &blob); err != nil {
			return nil, fmt.Errorf("sqlite: scan chunk: %w", err)
		}
		ch.Embedding = decodeVector(blob)
		out = append(out, ch)
	}
	return out, rows.Err()
}

func (c *Catalog) Close() error { return c.db.Close() }

func encodeVector(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	if len(b) < 4 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}
