// Package history records resolved queries per user. Recording is done by
// the transports after a successful resolution; the resolver never writes.
package history

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/medrag-mcp-server/internal/domain"
)

// DefaultSummaryLength is the number of runes of the first section kept with a record.
const DefaultSummaryLength = 200

// Record is one resolved query.
type Record struct {
	ID         string                 `json:"id"`
	UserID     string                 `json:"user_id,omitempty"`
	Query      string                 `json:"query"`
	Subject    string                 `json:"subject"`
	Stage      domain.Stage           `json:"stage"`
	Category   domain.Category        `json:"category,omitempty"`
	Confidence domain.ConfidenceLevel `json:"confidence"`
	Summary    string                 `json:"summary"`
	CreatedAt  time.Time              `json:"created_at"`
}

// NewRecord builds a record for a resolution of query made by userID.
func NewRecord(userID, query string, result *domain.ResolutionResult, summaryLength int) *Record {
	if summaryLength <= 0 {
		summaryLength = DefaultSummaryLength
	}
	return &Record{
		ID:         uuid.NewString(),
		UserID:     userID,
		Query:      query,
		Subject:    result.Subject,
		Stage:      result.Stage,
		Category:   result.Category,
		Confidence: result.Confidence,
		Summary:    result.Summary(summaryLength),
		CreatedAt:  time.Now().UTC(),
	}
}

// Store persists history records.
type Store interface {
	// Save inserts record. An empty ID or zero CreatedAt is filled in.
	Save(ctx context.Context, record *Record) error

	// Get returns the record with id, or an error wrapping domain.ErrNotFound.
	Get(ctx context.Context, id string) (*Record, error)

	// List returns records newest first.
	List(ctx context.Context, limit, offset int) ([]*Record, error)

	// ListByUser returns the records of one user, newest first.
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*Record, error)

	// Count returns the total number of records.
	Count(ctx context.Context) (int64, error)

	// StageCounts returns how many records each cascade stage produced.
	StageCounts(ctx context.Context) (map[domain.Stage]int64, error)

	// Delete removes the record with id. Deleting a missing record is not an error.
	Delete(ctx context.Context, id string) error

	// ExportJSON writes every record to writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// Close releases resources.
	Close() error
}

// Export is the JSON export format.
type Export struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Count      int       `json:"count"`
	Records    []*Record `json:"records"`
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

// Open creates the store selected by cfg.Driver. It returns a nil Store
// when history is disabled.
func Open(cfg domain.HistoryConfig, logger *logrus.Logger) (Store, error) {
	if logger == nil {
		logger = logrus.New()
	}
	switch cfg.Driver {
	case DriverNone, "":
		return nil, nil
	case DriverSQLite:
		store, err := NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.WithField("path", cfg.SQLitePath).Info("Query history stored in SQLite")
		return store, nil
	case DriverPostgres:
		store, err := NewPostgresStoreFromURL(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		logger.Info("Query history stored in PostgreSQL")
		return store, nil
	default:
		return nil, fmt.Errorf("unknown history driver %q", cfg.Driver)
	}
}

func prepare(record *Record) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
}

// Page size bounds for List and ListByUser.
const (
	defaultPageSize = 50
	maxPageSize     = 500
)

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(s scanner) (*Record, error) {
	r := &Record{}
	var stage, category, confidence string

	err := s.Scan(
		&r.ID, &r.UserID, &r.Query, &r.Subject,
		&stage, &category, &confidence, &r.Summary, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Stage = domain.Stage(stage)
	r.Category = domain.Category(category)
	r.Confidence = domain.ConfidenceLevel(confidence)
	return r, nil
}

func writeExport(records []*Record, writer io.Writer) error {
	export := &Export{
		Version:    "1.0",
		ExportedAt: time.Now().UTC(),
		Count:      len(records),
		Records:    records,
	}
	return encodeJSON(writer, export)
}
