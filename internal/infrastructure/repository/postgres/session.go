package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	qb "github.com/riskibarqy/football-etl/internal/platform/querybuilder"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
)

// Session is one connection and one open transaction, owned by a single load.
type Session interface {
	TableColumns(ctx context.Context, table string) ([]string, error)
	Truncate(ctx context.Context, table string) error
	CopyIn(ctx context.Context, table string, columns []string, rows [][]any) error
	Commit() error
	Rollback() error
	Close() error
}

// SessionOpener acquires a fresh Session.
type SessionOpener interface {
	Open(ctx context.Context) (Session, error)
}

// Connector opens instrumented sessions against one database and schema.
type Connector struct {
	dsn    string
	schema string
}

func NewConnector(dsn, schema string) (*Connector, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("database url is required")
	}
	schema = strings.TrimSpace(schema)
	if schema == "" {
		schema = "public"
	}
	return &Connector{dsn: dsn, schema: schema}, nil
}

func (c *Connector) Schema() string { return c.schema }

// Target is the database location with credentials removed.
func (c *Connector) Target() string { return redactURL(c.dsn) }

func (c *Connector) Open(ctx context.Context) (Session, error) {
	db, err := otelsqlx.Open("postgres", c.dsn,
		otelsql.WithDBName(dbNameFromURL(c.dsn)),
		otelsql.WithDBSystem("postgresql"),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("begin load transaction: %w", err)
	}

	return &sqlSession{db: db, tx: tx, schema: c.schema}, nil
}

type sqlSession struct {
	db        *sqlx.DB
	tx        *sqlx.Tx
	schema    string
	closeOnce sync.Once
	closeErr  error
}

func (s *sqlSession) TableColumns(ctx context.Context, table string) ([]string, error) {
	query, args, err := qb.Select("column_name").
		From("information_schema.columns").
		Where(qb.Eq("table_schema", s.schema), qb.Eq("table_name", table)).
		OrderBy("ordinal_position").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build columns query: %w", err)
	}

	var columns []string
	if err := s.tx.SelectContext(ctx, &columns, query, args...); err != nil {
		return nil, fmt.Errorf("select columns for %s.%s: %w", s.schema, table, err)
	}
	return columns, nil
}

func (s *sqlSession) Truncate(ctx context.Context, table string) error {
	query, err := qb.TruncateTable(pq.QuoteIdentifier(s.schema) + "." + pq.QuoteIdentifier(table))
	if err != nil {
		return err
	}
	if _, err := s.tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("truncate %s.%s: %w", s.schema, table, err)
	}
	return nil
}

func (s *sqlSession) CopyIn(ctx context.Context, table string, columns []string, rows [][]any) error {
	stmt, err := s.tx.PrepareContext(ctx, pq.CopyInSchema(s.schema, table, columns...))
	if err != nil {
		return fmt.Errorf("prepare copy into %s.%s: %w", s.schema, table, err)
	}
	defer stmt.Close()

	for i, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("copy row %d into %s.%s: %w", i+1, s.schema, table, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		return fmt.Errorf("flush copy into %s.%s: %w", s.schema, table, err)
	}
	return nil
}

func (s *sqlSession) Commit() error {
	if err := s.tx.Commit(); err != nil {
		return fmt.Errorf("commit load transaction: %w", err)
	}
	return nil
}

func (s *sqlSession) Rollback() error {
	if err := s.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback load transaction: %w", err)
	}
	return nil
}

func (s *sqlSession) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}
