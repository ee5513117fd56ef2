package engine

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Konsultn-Engineering/sqlkit/cache"
)

// Session is one logical connection with its own statement cache. It is not
// safe for concurrent use.
type Session struct {
	executor

	tx     *Tx
	closed bool
}

// Stats reports the statement cache counters of the session.
func (s *Session) Stats() cache.Stats {
	return s.stmts.Stats()
}

// Ping checks the connection and runs the dialect's ping statement.
func (s *Session) Ping(ctx context.Context) error {
	ping := s.engine.dialect.PingSQL()
	if err := s.checkDeadline(ping); err != nil {
		return err
	}
	if err := s.conn.PingContext(ctx); err != nil {
		return s.classify(err, "")
	}
	_, err := s.ScalarInt64(ctx, ping, nil)
	return err
}

// Begin starts a transaction. When a transaction timeout is configured its
// deadline is fixed here.
func (s *Session) Begin(ctx context.Context) (*Tx, error) {
	if s.tx != nil {
		return nil, ErrTxInProgress
	}
	if err := s.conn.BeginTx(ctx); err != nil {
		return nil, s.classify(err, "BEGIN")
	}

	tx := &Tx{session: s, executor: s.executor}
	tx.executor.tx = tx
	if timeout := s.engine.opts.TransactionTimeout; timeout > 0 {
		tx.deadline = NewDeadline(s.now().Add(timeout))
	}
	s.tx = tx

	fields := []zap.Field{}
	if !tx.deadline.IsZero() {
		fields = append(fields, zap.Time("deadline", tx.deadline.Time()))
	}
	s.logger.Info("transaction started", fields...)
	return tx, nil
}

// Transaction runs fn inside a transaction, committing when it returns nil
// and rolling back otherwise. A panic in fn rolls back and re-panics.
func (s *Session) Transaction(ctx context.Context, fn func(tx *Tx) error) (err error) {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if tx.done {
			return err
		}
		return withCleanup(err, tx.Rollback(ctx))
	}
	if tx.done {
		return nil
	}
	return tx.Commit(ctx)
}

// Close rolls back an open transaction, closes every statement handle and
// then the connection.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var err error
	if s.tx != nil {
		err = multierr.Append(err, s.tx.Rollback(context.Background()))
	}
	if cerr := s.stmts.Close(); cerr != nil {
		err = multierr.Append(err, fmt.Errorf("engine: closing statements: %w", cerr))
	}
	return multierr.Append(err, s.conn.Close())
}
