package engine

import (
	"context"

	"github.com/Konsultn-Engineering/sqlkit/cache"
	"github.com/Konsultn-Engineering/sqlkit/database"
	"github.com/Konsultn-Engineering/sqlkit/template"
)

// Statement is a compiled template bound to a prepared handle, for repeated
// execution with different parameter values. Parameters must compile to the
// same SQL as the ones it was prepared with.
type Statement struct {
	x *executor
	p *prepared
}

// Prepare compiles sql against params and obtains a handle from the
// statement cache. The handle stays open until Close.
func (x *executor) Prepare(ctx context.Context, sql string, params any, opts ...CallOption) (*Statement, error) {
	p, err := x.prepare(ctx, sql, params, newCall(opts))
	if err != nil {
		return nil, err
	}
	p.keep = true
	return &Statement{x: x, p: p}, nil
}

func (s *Statement) SQL() string { return s.p.compiled.SQL }

func (s *Statement) Params() []template.Param { return s.p.compiled.Params }

// Handle is the underlying cached handle. Two Statements prepared from the
// same template and options share it while reuse is enabled.
func (s *Statement) Handle() *cache.Statement { return s.p.stmt }

func (s *Statement) args(params any) ([]any, error) {
	src, err := template.SourceOf(params)
	if err != nil {
		return nil, err
	}
	compiled := s.p.compiled
	if !compiled.Static {
		if compiled, err = s.x.engine.compile(s.p.tmpl, src, s.p.call); err != nil {
			return nil, err
		}
		if compiled.SQL != s.p.compiled.SQL {
			return nil, ErrPlanMismatch
		}
	}
	return s.x.engine.bind(compiled, src)
}

func (s *Statement) Exec(ctx context.Context, params any) (database.Result, error) {
	args, err := s.args(params)
	if err != nil {
		return nil, err
	}
	return s.x.exec(ctx, s.p, args)
}

func (s *Statement) Query(ctx context.Context, params any) (database.Rows, error) {
	args, err := s.args(params)
	if err != nil {
		return nil, err
	}
	rows, err := s.x.query(ctx, s.p, args)
	if err != nil {
		return nil, err
	}
	return s.x.wrapRows(rows, s.p), nil
}

func (s *Statement) ExecBatch(ctx context.Context, params []any) ([]int64, error) {
	sets := make([][]any, len(params))
	for i, set := range params {
		args, err := s.args(set)
		if err != nil {
			return nil, err
		}
		sets[i] = args
	}
	return s.x.batch(ctx, s.p, sets)
}

// Close releases the handle. A cached handle is evicted from the cache.
func (s *Statement) Close() error {
	return s.p.stmt.Close()
}
