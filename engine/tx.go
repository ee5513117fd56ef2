package engine

import (
	"context"

	"go.uber.org/zap"
)

// Tx is a transaction on a Session. Every statement it runs is checked
// against its Deadline.
type Tx struct {
	executor

	session  *Session
	deadline Deadline
	done     bool
}

func (t *Tx) Deadline() Deadline { return t.deadline }

func (t *Tx) Commit(ctx context.Context) error {
	return t.finish(ctx, true)
}

func (t *Tx) Rollback(ctx context.Context) error {
	return t.finish(ctx, false)
}

func (t *Tx) finish(ctx context.Context, commit bool) error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	t.session.tx = nil

	op, fn := "rollback", t.conn.Rollback
	if commit {
		op, fn = "commit", t.conn.Commit
	}
	if err := fn(ctx); err != nil {
		t.logger.Info("transaction "+op+" failed", zap.Error(err))
		return t.classify(err, op)
	}
	t.logger.Info("transaction " + op)
	return nil
}
