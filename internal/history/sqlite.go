package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/medrag-mcp-server/internal/domain"
)

// SQLiteStore implements Store using an embedded SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore opens or creates the database at dbPath with its schema.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL lets readers proceed while a resolution is being recorded.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS query_history (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL DEFAULT '',
		query TEXT NOT NULL,
		subject TEXT NOT NULL,
		stage TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		confidence TEXT NOT NULL DEFAULT '',
		summary TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_query_history_user ON query_history(user_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_query_history_created_at ON query_history(created_at);
	CREATE INDEX IF NOT EXISTS idx_query_history_stage ON query_history(stage);
	`

	_, err := db.Exec(schema)
	return err
}

const sqliteColumns = `id, user_id, query, subject, stage, category, confidence, summary, created_at`

// Save inserts record.
func (s *SQLiteStore) Save(ctx context.Context, record *Record) error {
	prepare(record)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO query_history (`+sqliteColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		record.ID,
		record.UserID,
		record.Query,
		record.Subject,
		string(record.Stage),
		string(record.Category),
		string(record.Confidence),
		record.Summary,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}
	return nil
}

// Get returns the record with id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteColumns+` FROM query_history WHERE id = ?`, id)

	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("history record %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return record, nil
}

// List returns records newest first.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*Record, error) {
	limit, offset = clampPage(limit, offset)
	return s.list(ctx, limit, offset)
}

func (s *SQLiteStore) list(ctx context.Context, limit, offset int) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sqliteColumns+`
		FROM query_history
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	return collect(rows)
}

// ListByUser returns one user's records newest first.
func (s *SQLiteStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*Record, error) {
	limit, offset = clampPage(limit, offset)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sqliteColumns+`
		FROM query_history
		WHERE user_id = ?
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	return collect(rows)
}

// Count returns the number of records.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM query_history").Scan(&count)
	return count, err
}

// StageCounts returns the number of records per stage.
func (s *SQLiteStore) StageCounts(ctx context.Context) (map[domain.Stage]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT stage, COUNT(*) FROM query_history GROUP BY stage")
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	return collectStageCounts(rows)
}

// Delete removes the record with id.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM query_history WHERE id = ?", id)
	return err
}

// maxExportLimit is the maximum number of records exported at once.
const maxExportLimit = 1000000

// ExportJSON writes every record to writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.list(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}
	return writeExport(all, writer)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func collect(rows *sql.Rows) ([]*Record, error) {
	defer rows.Close()

	var result []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, record)
	}
	return result, rows.Err()
}

func collectStageCounts(rows *sql.Rows) (map[domain.Stage]int64, error) {
	defer rows.Close()

	counts := make(map[domain.Stage]int64, len(domain.Stages))
	for _, stage := range domain.Stages {
		counts[stage] = 0
	}
	for rows.Next() {
		var stage string
		var n int64
		if err := rows.Scan(&stage, &n); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		counts[domain.Stage(stage)] = n
	}
	return counts, rows.Err()
}

func encodeJSON(writer io.Writer, v any) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
