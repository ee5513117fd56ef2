package engine

import (
	"context"
	"reflect"
	"time"

	"go.uber.org/zap"

	"github.com/Konsultn-Engineering/sqlkit/cache"
	"github.com/Konsultn-Engineering/sqlkit/database"
	"github.com/Konsultn-Engineering/sqlkit/dialect"
	"github.com/Konsultn-Engineering/sqlkit/template"
)

// Deadline is the instant after which statements of a transaction fail
// fast. The zero Deadline never expires. It is written once when the
// transaction begins and only read afterwards.
type Deadline struct {
	at time.Time
}

func NewDeadline(at time.Time) Deadline { return Deadline{at: at} }

func (d Deadline) IsZero() bool { return d.at.IsZero() }

func (d Deadline) Time() time.Time { return d.at }

func (d Deadline) Expired(now time.Time) bool {
	return !d.at.IsZero() && now.After(d.at)
}

// executor runs compiled statements on one connection. Session and Tx embed
// it; a Tx copy points back at its transaction.
type executor struct {
	engine  *Engine
	session *Session
	tx      *Tx
	conn    database.Conn
	stmts   *cache.StatementCache
	logger  *zap.Logger
}

var int64Type = reflect.TypeOf(int64(0))

func (x *executor) now() time.Time {
	return x.engine.opts.Clock()
}

// activeDeadline is the deadline of the transaction a statement runs in.
// Statements issued through the Session while a transaction is open run
// inside that transaction and share its deadline.
func (x *executor) activeDeadline() Deadline {
	if x.tx != nil {
		return x.tx.deadline
	}
	if x.session != nil && x.session.tx != nil {
		return x.session.tx.deadline
	}
	return Deadline{}
}

// checkDeadline is the pre-flight check made before any driver call.
func (x *executor) checkDeadline(sql string) error {
	if d := x.activeDeadline(); d.Expired(x.now()) {
		return &TransactionTimeoutError{Deadline: d.Time(), SQL: sql}
	}
	return nil
}

// classify turns a driver error into the executor's error taxonomy. A
// timeout-shaped code only becomes a TransactionTimeoutError when the
// deadline has passed as well.
func (x *executor) classify(err error, sql string) error {
	if err == nil {
		return nil
	}
	d := x.engine.dialect
	code := dialect.CodeOf(err)
	if deadline := x.activeDeadline(); d.IsTimeoutError(code) && deadline.Expired(x.now()) {
		return &TransactionTimeoutError{Deadline: deadline.Time(), SQL: sql, Err: err}
	}
	return &StatementExecutionError{
		Code:      code,
		SQL:       sql,
		Err:       err,
		Duplicate: d.IsDuplicateKeyError(code),
	}
}

// prepared is a statement handle with the plan and source it was built for.
type prepared struct {
	tmpl     string
	stmt     *cache.Statement
	compiled *template.Compiled
	src      template.Source
	call     call
	hit      bool
	keep     bool // handle closed by its owner, not after each call
}

func (x *executor) prepare(ctx context.Context, sql string, params any, c call) (*prepared, error) {
	src, err := template.SourceOf(params)
	if err != nil {
		return nil, err
	}
	compiled, err := x.engine.compile(sql, src, c)
	if err != nil {
		return nil, err
	}
	if err := x.checkDeadline(compiled.SQL); err != nil {
		return nil, err
	}

	stmt, hit, err := x.stmts.Prepare(ctx, compiled.SQL, c.prepareOptions(), !x.engine.opts.NoReuse)
	if err != nil {
		return nil, x.classify(err, compiled.SQL)
	}
	return &prepared{tmpl: sql, stmt: stmt, compiled: compiled, src: src, call: c, hit: hit}, nil
}

// release closes non-cached handles after use. Close failures are attached
// to err, or logged when the operation itself succeeded.
func (x *executor) release(p *prepared, err error) error {
	if p.stmt.Cached() || p.keep {
		return err
	}
	cerr := p.stmt.Close()
	if cerr != nil {
		x.logger.Warn("closing statement failed",
			zap.String("sql", p.compiled.SQL),
			zap.Error(cerr))
	}
	return withCleanup(err, cerr)
}

func (x *executor) logStatement(p *prepared, args []any, start time.Time, err error) {
	if ce := x.logger.Check(zap.DebugLevel, "statement"); ce != nil {
		ce.Write(
			zap.String("sql", p.compiled.SQL),
			zap.Strings("args", x.engine.render(args)),
			zap.Duration("duration", time.Since(start)),
			zap.Bool("cache_hit", p.hit),
			zap.Error(err),
		)
	}
}

func (x *executor) exec(ctx context.Context, p *prepared, args []any) (database.Result, error) {
	if err := x.checkDeadline(p.compiled.SQL); err != nil {
		return nil, err
	}
	start := time.Now()
	res, err := p.stmt.ExecContext(ctx, args...)
	x.logStatement(p, args, start, err)
	return res, x.classify(err, p.compiled.SQL)
}

func (x *executor) query(ctx context.Context, p *prepared, args []any) (database.Rows, error) {
	if err := x.checkDeadline(p.compiled.SQL); err != nil {
		return nil, err
	}
	start := time.Now()
	rows, err := p.stmt.QueryContext(ctx, args...)
	x.logStatement(p, args, start, err)
	if err != nil {
		return nil, x.classify(err, p.compiled.SQL)
	}
	return rows, nil
}

func (x *executor) batch(ctx context.Context, p *prepared, sets [][]any) ([]int64, error) {
	if err := x.checkDeadline(p.compiled.SQL); err != nil {
		return nil, err
	}
	start := time.Now()
	counts, err := p.stmt.ExecBatch(ctx, sets)
	if ce := x.logger.Check(zap.DebugLevel, "batch"); ce != nil {
		ce.Write(
			zap.String("sql", p.compiled.SQL),
			zap.Int("sets", len(sets)),
			zap.Int("completed", len(counts)),
			zap.Duration("duration", time.Since(start)),
			zap.Bool("cache_hit", p.hit),
			zap.Error(err),
		)
	}
	return counts, x.classify(err, p.compiled.SQL)
}

// Exec runs a statement that returns no rows.
func (x *executor) Exec(ctx context.Context, sql string, params any, opts ...CallOption) (database.Result, error) {
	p, err := x.prepare(ctx, sql, params, newCall(opts))
	if err != nil {
		return nil, err
	}
	args, err := x.engine.bind(p.compiled, p.src)
	if err != nil {
		return nil, x.release(p, err)
	}
	res, err := x.exec(ctx, p, args)
	return res, x.release(p, err)
}

// Update runs a statement and returns the number of affected rows.
func (x *executor) Update(ctx context.Context, sql string, params any, opts ...CallOption) (int64, error) {
	res, err := x.Exec(ctx, sql, params, opts...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Query runs a statement returning rows. With WithPage on a dialect without
// offset support the rows are skipped and truncated client-side. The caller
// must close the returned rows.
func (x *executor) Query(ctx context.Context, sql string, params any, opts ...CallOption) (database.Rows, error) {
	p, err := x.prepare(ctx, sql, params, newCall(opts))
	if err != nil {
		return nil, err
	}
	args, err := x.engine.bind(p.compiled, p.src)
	if err != nil {
		return nil, x.release(p, err)
	}
	rows, err := x.query(ctx, p, args)
	if err != nil {
		return nil, x.release(p, err)
	}
	return x.wrapRows(rows, p), nil
}

func (x *executor) wrapRows(rows database.Rows, p *prepared) database.Rows {
	var owned *cache.Statement
	if !p.stmt.Cached() && !p.keep {
		owned = p.stmt
	}
	page := p.call.page
	if x.engine.dialect.SupportsOffset() || p.call.count {
		page = dialect.Pagination{}
	}
	if owned == nil && !page.Paged() {
		return rows
	}
	return &pagedRows{
		Rows:   rows,
		stmt:   owned,
		skip:   page.Offset,
		limit:  page.Limit,
		logger: x.logger,
	}
}

// Count runs the count rewrite of sql.
func (x *executor) Count(ctx context.Context, sql string, params any) (int64, error) {
	return x.scalar(ctx, sql, params, call{count: true})
}

// ScalarInt64 returns the first column of the first row as an int64.
func (x *executor) ScalarInt64(ctx context.Context, sql string, params any) (int64, error) {
	return x.scalar(ctx, sql, params, call{})
}

func (x *executor) scalar(ctx context.Context, sql string, params any, c call) (n int64, err error) {
	p, err := x.prepare(ctx, sql, params, c)
	if err != nil {
		return 0, err
	}
	defer func() { err = x.release(p, err) }()

	args, err := x.engine.bind(p.compiled, p.src)
	if err != nil {
		return 0, err
	}
	rows, err := x.query(ctx, p, args)
	if err != nil {
		return 0, err
	}

	var v any
	if rows.Next() {
		err = rows.Scan(&v)
	} else if err = rows.Err(); err == nil {
		err = ErrNoRows
	}
	if cerr := rows.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, err
	}

	out, err := x.engine.dialect.FromDatabase(v, int64Type)
	if err != nil {
		return 0, err
	}
	return out.(int64), nil
}

// ExecBatch runs sql once per parameter set. Every set must compile to the
// same statement. On failure the counts of the completed sets are returned
// with the error.
func (x *executor) ExecBatch(ctx context.Context, sql string, params []any, opts ...CallOption) ([]int64, error) {
	if len(params) == 0 {
		return nil, nil
	}
	p, err := x.prepare(ctx, sql, params[0], newCall(opts))
	if err != nil {
		return nil, err
	}

	sets := make([][]any, len(params))
	for i, set := range params {
		src, err := template.SourceOf(set)
		if err != nil {
			return nil, x.release(p, err)
		}
		compiled := p.compiled
		if !compiled.Static {
			if compiled, err = x.engine.compile(sql, src, p.call); err != nil {
				return nil, x.release(p, err)
			}
			if compiled.SQL != p.compiled.SQL {
				return nil, x.release(p, ErrPlanMismatch)
			}
		}
		if sets[i], err = x.engine.bind(compiled, src); err != nil {
			return nil, x.release(p, err)
		}
	}

	counts, err := x.batch(ctx, p, sets)
	return counts, x.release(p, err)
}

// QueryNamed runs Query on the template stored under ref.
func (x *executor) QueryNamed(ctx context.Context, ref string, params any, opts ...CallOption) (database.Rows, error) {
	sql, err := x.engine.Resolve(ref)
	if err != nil {
		return nil, err
	}
	return x.Query(ctx, sql, params, opts...)
}

// ExecNamed runs Exec on the template stored under ref.
func (x *executor) ExecNamed(ctx context.Context, ref string, params any, opts ...CallOption) (database.Result, error) {
	sql, err := x.engine.Resolve(ref)
	if err != nil {
		return nil, err
	}
	return x.Exec(ctx, sql, params, opts...)
}
