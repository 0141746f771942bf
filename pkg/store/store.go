// Package store implements the working relational store for one cleaning
// run: an in-memory SQLite database holding the raw and cleaned relations.
package store

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const (
	// SourceTable is the fixed relation cleaning scripts read from.
	SourceTable = "raw_data"
	// DestTable is the fixed relation cleaning scripts materialize.
	DestTable = "clean_data"
)

// Store wraps one private in-memory SQLite database. Each run gets a fresh
// store; no concurrent run can observe another run's tables.
type Store struct {
	db      *sql.DB
	columns []string
	logger  *zap.Logger
}

// New opens a fresh in-memory working store.
func New(logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open working store: %w", err)
	}
	// An in-memory SQLite database lives on a single connection; a second
	// connection would see an empty database.
	db.SetMaxOpenConns(1)

	return &Store{db: db, logger: logger.Named("store")}, nil
}

// LoadCSV reads a CSV (header row = column names) into a freshly reset
// raw_data table, dropping any prior raw or clean relation. Returns the
// number of data rows loaded.
func (s *Store) LoadCSV(ctx context.Context, r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return 0, fmt.Errorf("csv file is empty")
	}
	if err != nil {
		return 0, fmt.Errorf("read csv header: %w", err)
	}
	if len(header) == 0 {
		return 0, fmt.Errorf("csv file has no columns")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
		if header[i] == "" {
			header[i] = fmt.Sprintf("column_%d", i+1)
		}
	}

	if err := s.dropTables(ctx); err != nil {
		return 0, err
	}

	colDefs := make([]string, len(header))
	for i, name := range header {
		colDefs[i] = quoteIdent(name) + " TEXT"
	}
	createStmt := fmt.Sprintf("CREATE TABLE %s (%s)", SourceTable, strings.Join(colDefs, ", "))
	if _, err := s.db.ExecContext(ctx, createStmt); err != nil {
		return 0, fmt.Errorf("create %s: %w", SourceTable, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin load: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(header)), ",")
	insert, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)", SourceTable, placeholders))
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer insert.Close()

	rowCount := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("read csv row %d: %w", rowCount+1, err)
		}

		values := make([]any, len(header))
		for i := range header {
			if i < len(record) {
				values[i] = record[i]
			} else {
				values[i] = nil // short row: missing trailing fields become NULL
			}
		}
		if _, err := insert.ExecContext(ctx, values...); err != nil {
			return 0, fmt.Errorf("insert csv row %d: %w", rowCount+1, err)
		}
		rowCount++
	}

	if rowCount == 0 {
		return 0, fmt.Errorf("csv file has no data rows")
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit load: %w", err)
	}

	s.columns = header
	s.logger.Info("csv loaded into working store",
		zap.Int("columns", len(header)),
		zap.Int("rows", rowCount))

	return rowCount, nil
}

// Columns returns the column names of the loaded raw relation.
func (s *Store) Columns() []string {
	cols := make([]string, len(s.columns))
	copy(cols, s.columns)
	return cols
}

// Loaded reports whether a CSV has been loaded into the working store.
func (s *Store) Loaded() bool {
	return len(s.columns) > 0
}

// SampleText renders the first n rows of raw_data as an aligned text block
// for inclusion in model prompts.
func (s *Store) SampleText(ctx context.Context, n int) (string, error) {
	if !s.Loaded() {
		return "", fmt.Errorf("no data loaded")
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT %d", SourceTable, n))
	if err != nil {
		return "", fmt.Errorf("sample %s: %w", SourceTable, err)
	}
	defer rows.Close()

	records, err := scanAll(rows, len(s.columns))
	if err != nil {
		return "", err
	}

	return alignText(s.columns, records), nil
}

// Reset drops both relations and forgets the loaded columns.
func (s *Store) Reset(ctx context.Context) error {
	if err := s.dropTables(ctx); err != nil {
		return err
	}
	s.columns = nil
	return nil
}

// Close releases the in-memory database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) dropTables(ctx context.Context) error {
	for _, table := range []string{SourceTable, DestTable} {
		if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			return fmt.Errorf("drop %s: %w", table, err)
		}
	}
	return nil
}

// quoteIdent double-quotes an identifier, escaping embedded quotes.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// scanAll reads all rows as strings, rendering NULL as an empty string.
func scanAll(rows *sql.Rows, width int) ([][]string, error) {
	var records [][]string
	for rows.Next() {
		raw := make([]sql.NullString, width)
		dest := make([]any, width)
		for i := range raw {
			dest[i] = &raw[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		record := make([]string, width)
		for i, v := range raw {
			if v.Valid {
				record[i] = v.String
			}
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// alignText pads columns to a common width, the way a dataframe prints.
func alignText(columns []string, records [][]string) string {
	widths := make([]int, len(columns))
	for i, c := range columns {
		widths[i] = len(c)
	}
	for _, rec := range records {
		for i, v := range rec {
			if i < len(widths) && len(v) > widths[i] {
				widths[i] = len(v)
			}
		}
	}

	var b strings.Builder
	writeRow := func(values []string) {
		for i, v := range values {
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(v)
			b.WriteString(strings.Repeat(" ", widths[i]-len(v)))
		}
		b.WriteString("\n")
	}

	writeRow(columns)
	for _, rec := range records {
		writeRow(rec)
	}
	return strings.TrimRight(b.String(), "\n")
}
