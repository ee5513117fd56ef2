package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgxQuerier is the part of *pgx.Conn and pgx.Tx used by statements.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// PgxConn implements Conn for a single pgx connection using named
// server-side prepared statements.
type PgxConn struct {
	conn    *pgx.Conn
	tx      pgx.Tx
	release func()
}

// NewPgxConn wraps conn. When release is non-nil Close calls it instead of
// closing conn, which is how pooled connections are handed back.
func NewPgxConn(conn *pgx.Conn, release func()) *PgxConn {
	return &PgxConn{conn: conn, release: release}
}

func (c *PgxConn) querier() pgxQuerier {
	if c.tx != nil {
		return c.tx
	}
	return c.conn
}

// PrepareContext prepares query under a unique name. Generated keys are
// returned through a RETURNING clause; column indexes are not supported.
func (c *PgxConn) PrepareContext(ctx context.Context, query string, opts PrepareOptions) (Stmt, error) {
	returning := false
	switch opts.Keys.Mode {
	case KeysAll:
		query += " RETURNING *"
		returning = true
	case KeysNames:
		query += " RETURNING " + strings.Join(opts.Keys.Names, ", ")
		returning = true
	case KeysIndexes:
		return nil, fmt.Errorf("%w: generated keys by column index", ErrNotSupported)
	}

	name := "sqlkit_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if _, err := c.conn.Prepare(ctx, name, query); err != nil {
		return nil, err
	}
	return &pgxStmt{conn: c, name: name, returning: returning}, nil
}

func (c *PgxConn) BeginTx(ctx context.Context) error {
	if c.tx != nil {
		return ErrTxInProgress
	}
	tx, err := c.conn.Begin(ctx)
	if err != nil {
		return err
	}
	c.tx = tx
	return nil
}

func (c *PgxConn) Commit(ctx context.Context) error {
	if c.tx == nil {
		return ErrNoTx
	}
	tx := c.tx
	c.tx = nil
	return tx.Commit(ctx)
}

func (c *PgxConn) Rollback(ctx context.Context) error {
	if c.tx == nil {
		return ErrNoTx
	}
	tx := c.tx
	c.tx = nil
	return tx.Rollback(ctx)
}

func (c *PgxConn) PingContext(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *PgxConn) Close() error {
	ctx := context.Background()
	var err error
	if c.tx != nil {
		err = c.tx.Rollback(ctx)
		c.tx = nil
	}
	if c.release != nil {
		c.release()
		return err
	}
	return errors.Join(err, c.conn.Close(ctx))
}

type pgxStmt struct {
	conn      *PgxConn
	name      string
	returning bool
}

func (s *pgxStmt) ExecContext(ctx context.Context, args ...any) (Result, error) {
	q := s.conn.querier()
	if !s.returning {
		tag, err := q.Exec(ctx, s.name, args...)
		if err != nil {
			return nil, err
		}
		return CountResult(tag.RowsAffected()), nil
	}

	rows, err := q.Query(ctx, s.name, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := &pgxResult{}
	for rows.Next() {
		if !res.hasID {
			values, err := rows.Values()
			if err != nil {
				return nil, err
			}
			if len(values) > 0 {
				res.id, res.hasID = toInt64(values[0])
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	res.affected = rows.CommandTag().RowsAffected()
	return res, nil
}

func (s *pgxStmt) QueryContext(ctx context.Context, args ...any) (Rows, error) {
	rows, err := s.conn.querier().Query(ctx, s.name, args...)
	if err != nil {
		return nil, err
	}
	return &PgxRows{rows: rows}, nil
}

// ExecBatch queues every argument set into a single pgx.Batch.
func (s *pgxStmt) ExecBatch(ctx context.Context, args [][]any) ([]int64, error) {
	batch := &pgx.Batch{}
	for _, set := range args {
		batch.Queue(s.name, set...)
	}

	br := s.conn.querier().SendBatch(ctx, batch)
	counts := make([]int64, 0, len(args))
	for range args {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return counts, err
		}
		counts = append(counts, tag.RowsAffected())
	}
	return counts, br.Close()
}

func (s *pgxStmt) Close() error {
	return s.conn.conn.Deallocate(context.Background(), s.name)
}

// PgxRows implements Rows for pgx.Rows.
type PgxRows struct {
	rows              pgx.Rows
	fieldDescriptions []pgconn.FieldDescription
}

func (p *PgxRows) Next() bool { return p.rows.Next() }

func (p *PgxRows) Scan(dest ...any) error { return p.rows.Scan(dest...) }

func (p *PgxRows) Close() error { p.rows.Close(); return nil }

func (p *PgxRows) Err() error { return p.rows.Err() }

func (p *PgxRows) Columns() ([]string, error) {
	if p.fieldDescriptions == nil {
		p.fieldDescriptions = p.rows.FieldDescriptions()
	}
	columns := make([]string, len(p.fieldDescriptions))
	for i, fd := range p.fieldDescriptions {
		columns[i] = fd.Name
	}
	return columns, nil
}

// Values returns the values for the current row.
func (p *PgxRows) Values() ([]any, error) {
	return p.rows.Values()
}

// pgxResult carries the first generated key read from RETURNING.
type pgxResult struct {
	id       int64
	hasID    bool
	affected int64
}

func (r *pgxResult) LastInsertId() (int64, error) {
	if !r.hasID {
		return 0, fmt.Errorf("%w: no integer key returned", ErrNotSupported)
	}
	return r.id, nil
}

func (r *pgxResult) RowsAffected() (int64, error) {
	return r.affected, nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int16:
		return int64(n), true
	case int:
		return int64(n), true
	}
	return 0, false
}

var (
	_ Conn      = (*PgxConn)(nil)
	_ BatchStmt = (*pgxStmt)(nil)
)
