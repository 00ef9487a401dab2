// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists conversion history in SQLite. Batch conversion
// consults it to skip inputs whose content hash is unchanged since the last
// successful conversion.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/mdconvert/pkg/types"
)

const defaultMaxResults = 50

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store manages the history database.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the history database at cfg.Path and creates
// the schema if it does not exist. The path ":memory:" opens a private
// in-memory database.
func NewStore(cfg types.StoreConfig) (*Store, error) {
	dsn := ":memory:"
	if cfg.Path != "" && cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
		dsn = cfg.Path + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if dsn == ":memory:" {
		// Each connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS conversions (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			sha256 TEXT NOT NULL,
			converter TEXT,
			status TEXT NOT NULL,
			title TEXT,
			output_path TEXT,
			error TEXT,
			converted_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversions_source ON conversions(source, converted_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record inserts rec, assigning an ID and timestamp when unset. It returns
// the stored record.
func (s *Store) Record(ctx context.Context, rec types.ConversionRecord) (types.ConversionRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.ConvertedAt.IsZero() {
		rec.ConvertedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversions (id, source, sha256, converter, status, title, output_path, error, converted_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Source, rec.SHA256, rec.Converter, string(rec.Status),
		rec.Title, rec.OutputPath, rec.Error, rec.ConvertedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return rec, fmt.Errorf("inserting conversion record: %w", err)
	}
	return rec, nil
}

// Latest returns the most recent successful conversion of source, or nil
// when there is none.
func (s *Store) Latest(ctx context.Context, source string) (*types.ConversionRecord, error) {
	recs, err := s.List(ctx, QueryOptions{
		Source:     source,
		Status:     types.ConversionDone,
		MaxResults: 1,
	})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return &recs[0], nil
}

// QueryOptions filters List.
type QueryOptions struct {
	// Source matches the exact input path or URL.
	Source string

	// Contains matches a substring of the source.
	Contains string

	// Status filters by outcome.
	Status types.ConversionStatus

	// MaxResults limits result count. Zero uses the default (50).
	MaxResults int
}

// List returns records newest first.
func (s *Store) List(ctx context.Context, opts QueryOptions) ([]types.ConversionRecord, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(
		`SELECT id, source, sha256, converter, status, title, output_path, error, converted_at
		FROM conversions WHERE 1=1`)

	if opts.Source != "" {
		qb.WriteString(` AND source = ?`)
		args = append(args, opts.Source)
	}
	if opts.Contains != "" {
		qb.WriteString(` AND instr(source, ?) > 0`)
		args = append(args, opts.Contains)
	}
	if opts.Status != "" {
		qb.WriteString(` AND status = ?`)
		args = append(args, string(opts.Status))
	}
	qb.WriteString(` ORDER BY converted_at DESC, rowid DESC LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var out []types.ConversionRecord
	for rows.Next() {
		var (
			rec                                  types.ConversionRecord
			status, at                           string
			converter, title, outputPath, errMsg sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.Source, &rec.SHA256, &converter, &status,
			&title, &outputPath, &errMsg, &at); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		rec.Status = types.ConversionStatus(status)
		rec.Converter = converter.String
		rec.Title = title.String
		rec.OutputPath = outputPath.String
		rec.Error = errMsg.String
		if t, err := time.Parse(timeLayout, at); err == nil {
			rec.ConvertedAt = t
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Prune deletes records older than cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM conversions WHERE converted_at < ?`,
		cutoff.UTC().Format(timeLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning history: %w", err)
	}
	return res.RowsAffected()
}
