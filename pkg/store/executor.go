package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dataclinic-ai/engine/pkg/models"
	scriptsql "github.com/dataclinic-ai/engine/pkg/sql"
)

// ExecutionError is the structured execution failure the adapter reports.
// The orchestrator's correction loop feeds it back to the generator.
type ExecutionError struct {
	Kind      models.ExecutionErrorKind
	Message   string
	Statement int // 1-based index of the failing statement, 0 if unknown
}

// ExecutionKind implements the orchestrator's ExecutionFault interface.
func (e *ExecutionError) ExecutionKind() models.ExecutionErrorKind {
	return e.Kind
}

func (e *ExecutionError) Error() string {
	if e.Statement > 0 {
		return fmt.Sprintf("execution (%s) statement %d: %s", e.Kind, e.Statement, e.Message)
	}
	return fmt.Sprintf("execution (%s): %s", e.Kind, e.Message)
}

// ClassifyExecutionError maps an engine error message onto the execution
// taxonomy. The adapter performs no semantic validation beyond what the
// engine itself reports.
func ClassifyExecutionError(err error) *ExecutionError {
	if err == nil {
		return nil
	}
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr
	}

	msg := err.Error()
	lower := strings.ToLower(msg)

	switch {
	case strings.Contains(lower, "syntax error") || strings.Contains(lower, "incomplete input") ||
		strings.Contains(lower, "unrecognized token"):
		return &ExecutionError{Kind: models.ExecErrSyntax, Message: msg}
	case strings.Contains(lower, "no such table") || strings.Contains(lower, "no such column"):
		return &ExecutionError{Kind: models.ExecErrMissingRelation, Message: msg}
	case strings.Contains(lower, "datatype mismatch") || strings.Contains(lower, "cannot convert") ||
		strings.Contains(lower, "type mismatch"):
		return &ExecutionError{Kind: models.ExecErrTypeMismatch, Message: msg}
	default:
		return &ExecutionError{Kind: models.ExecErrOther, Message: msg}
	}
}

// Execute runs a generated cleaning script against the working store. The
// script is expected to read raw_data and populate clean_data. On failure it
// returns an *ExecutionError; the failed statements are rolled back so a
// corrected script starts from a clean slate.
func (s *Store) Execute(ctx context.Context, script string) error {
	if strings.TrimSpace(script) == "" {
		return &ExecutionError{Kind: models.ExecErrOther, Message: "script is empty"}
	}

	for _, finding := range scriptsql.ScreenScript(script) {
		s.logger.Warn("suspicious literal in generated script",
			zap.String("fingerprint", finding.Fingerprint),
			zap.Int("literal_len", len(finding.Literal)))
	}

	// A corrected script recreates clean_data from scratch; stale halves of
	// a failed attempt must not survive into the next one.
	if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+DestTable); err != nil {
		return &ExecutionError{Kind: models.ExecErrOther, Message: err.Error()}
	}

	statements := scriptsql.SplitStatements(script)
	if len(statements) == 0 {
		return &ExecutionError{Kind: models.ExecErrOther, Message: "script contains no statements"}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &ExecutionError{Kind: models.ExecErrOther, Message: err.Error()}
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			execErr := ClassifyExecutionError(err)
			execErr.Statement = i + 1
			s.logger.Warn("cleaning script failed",
				zap.String("kind", string(execErr.Kind)),
				zap.Int("statement", execErr.Statement))
			return execErr
		}
	}

	if err := tx.Commit(); err != nil {
		return &ExecutionError{Kind: models.ExecErrOther, Message: err.Error()}
	}

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+DestTable).Scan(&count); err != nil {
		return ClassifyExecutionError(err)
	}
	if count == 0 {
		return &ExecutionError{Kind: models.ExecErrOther, Message: DestTable + " is empty after execution"}
	}

	s.logger.Info("cleaning script executed",
		zap.Int("statements", len(statements)),
		zap.Int("clean_rows", count))

	return nil
}

// CleanData returns the columns and rows of the cleaned relation for
// display or download.
func (s *Store) CleanData(ctx context.Context) ([]string, [][]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT * FROM "+DestTable)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", DestTable, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("read %s columns: %w", DestTable, err)
	}

	records, err := scanAll(rows, len(columns))
	if err != nil {
		return nil, nil, err
	}
	return columns, records, nil
}
