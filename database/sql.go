package database

import (
	"context"
	"database/sql"
)

// SQLConn implements Conn for a *sql.Conn. Statements are prepared on the
// connection and rebound to the active transaction on use.
type SQLConn struct {
	conn *sql.Conn
	tx   *sql.Tx
}

// NewSQLConn wraps conn. The SQLConn takes ownership and closes it.
func NewSQLConn(conn *sql.Conn) *SQLConn {
	return &SQLConn{conn: conn}
}

// PrepareContext prepares query on the connection. Generated key selection
// is left to the driver: database/sql only exposes LastInsertId.
func (c *SQLConn) PrepareContext(ctx context.Context, query string, _ PrepareOptions) (Stmt, error) {
	stmt, err := c.conn.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}
	return &sqlStmt{conn: c, stmt: stmt}, nil
}

func (c *SQLConn) BeginTx(ctx context.Context) error {
	if c.tx != nil {
		return ErrTxInProgress
	}
	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	c.tx = tx
	return nil
}

func (c *SQLConn) Commit(context.Context) error {
	if c.tx == nil {
		return ErrNoTx
	}
	tx := c.tx
	c.tx = nil
	return tx.Commit()
}

func (c *SQLConn) Rollback(context.Context) error {
	if c.tx == nil {
		return ErrNoTx
	}
	tx := c.tx
	c.tx = nil
	return tx.Rollback()
}

func (c *SQLConn) PingContext(ctx context.Context) error {
	return c.conn.PingContext(ctx)
}

// Close rolls back an open transaction and returns the connection to its
// pool.
func (c *SQLConn) Close() error {
	if c.tx != nil {
		_ = c.tx.Rollback()
		c.tx = nil
	}
	return c.conn.Close()
}

type sqlStmt struct {
	conn *SQLConn
	stmt *sql.Stmt
}

func (s *sqlStmt) bound(ctx context.Context) *sql.Stmt {
	if s.conn.tx != nil {
		return s.conn.tx.StmtContext(ctx, s.stmt)
	}
	return s.stmt
}

func (s *sqlStmt) ExecContext(ctx context.Context, args ...any) (Result, error) {
	return s.bound(ctx).ExecContext(ctx, args...)
}

func (s *sqlStmt) QueryContext(ctx context.Context, args ...any) (Rows, error) {
	rows, err := s.bound(ctx).QueryContext(ctx, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ExecBatch runs each argument set in turn.
func (s *sqlStmt) ExecBatch(ctx context.Context, args [][]any) ([]int64, error) {
	stmt := s.bound(ctx)
	counts := make([]int64, 0, len(args))
	for _, set := range args {
		res, err := stmt.ExecContext(ctx, set...)
		if err != nil {
			return counts, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			n = RowsUnknown
		}
		counts = append(counts, n)
	}
	return counts, nil
}

func (s *sqlStmt) Close() error {
	return s.stmt.Close()
}

var (
	_ Conn      = (*SQLConn)(nil)
	_ BatchStmt = (*sqlStmt)(nil)
	_ Rows      = (*sql.Rows)(nil)
)
