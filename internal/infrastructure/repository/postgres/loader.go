package postgres

import (
	"context"
	"fmt"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/football-etl/internal/domain/record"
	"github.com/riskibarqy/football-etl/internal/platform/logging"
)

// OpenerFunc adapts a function to SessionOpener.
type OpenerFunc func(ctx context.Context) (Session, error)

func (f OpenerFunc) Open(ctx context.Context) (Session, error) { return f(ctx) }

// LoadError reports the table whose load aborted the run. Table is empty
// when the failure happened outside a single table (open or commit).
type LoadError struct {
	Table string
	Err   error
}

func (e *LoadError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("load failed: %v", e.Err)
	}
	return fmt.Sprintf("load %s failed: %v", e.Table, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// BulkLoader replaces whole tables with record batches.
type BulkLoader struct {
	opener SessionOpener
	logger *logging.Logger
}

func NewBulkLoader(opener SessionOpener, logger *logging.Logger) *BulkLoader {
	if logger == nil {
		logger = logging.Default()
	}
	return &BulkLoader{opener: opener, logger: logger.Named("loader")}
}

// Load truncates the batch's table and copies every record into it, inside
// the session's transaction. The table's catalog columns must equal the
// batch schema in name and order.
func (l *BulkLoader) Load(ctx context.Context, session Session, batch *record.Batch) error {
	tableName := batch.Table()

	columns, err := session.TableColumns(ctx, tableName)
	if err != nil {
		return crerr.Wrapf(err, "read catalog columns of %s", tableName)
	}
	if len(columns) == 0 {
		return fmt.Errorf("%w: table %s does not exist", record.ErrSchemaMismatch, tableName)
	}
	if err := batch.Schema.MatchColumns(columns); err != nil {
		return err
	}
	if err := batch.Validate(); err != nil {
		return err
	}

	if err := session.Truncate(ctx, tableName); err != nil {
		return crerr.Wrapf(err, "truncate %s", tableName)
	}

	rows := make([][]any, 0, len(batch.Records))
	for _, rec := range batch.Records {
		row := make([]any, len(rec))
		for i, value := range rec {
			row[i] = value.Driver()
		}
		rows = append(rows, row)
	}
	if err := session.CopyIn(ctx, tableName, batch.Schema.ColumnNames(), rows); err != nil {
		return crerr.Wrapf(err, "copy %d rows into %s", len(rows), tableName)
	}

	l.logger.InfoContext(ctx, "table replaced", "table", tableName, "rows", len(rows))
	return nil
}

// LoadAll loads every batch in order within one session and commits once.
// Any failure rolls the whole transaction back. The session is closed exactly
// once on every path.
func (l *BulkLoader) LoadAll(ctx context.Context, batches []*record.Batch) error {
	session, err := l.opener.Open(ctx)
	if err != nil {
		return &LoadError{Err: err}
	}
	defer func() {
		if err := session.Close(); err != nil {
			l.logger.WarnContext(ctx, "close load session failed", "error", err)
		}
	}()

	for _, batch := range batches {
		if err := l.Load(ctx, session, batch); err != nil {
			l.rollback(ctx, session)
			l.logger.ErrorContext(ctx, "load aborted, transaction rolled back", "table", batch.Table(), "error", err)
			return &LoadError{Table: batch.Table(), Err: err}
		}
	}

	if err := session.Commit(); err != nil {
		l.rollback(ctx, session)
		return &LoadError{Err: err}
	}

	l.logger.InfoContext(ctx, "load committed", "tables", len(batches))
	return nil
}

func (l *BulkLoader) rollback(ctx context.Context, session Session) {
	if err := session.Rollback(); err != nil {
		l.logger.WarnContext(ctx, "rollback failed", "error", err)
	}
}
