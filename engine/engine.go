package engine

import (
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/Konsultn-Engineering/sqlkit/cache"
	"github.com/Konsultn-Engineering/sqlkit/database"
	"github.com/Konsultn-Engineering/sqlkit/dialect"
	"github.com/Konsultn-Engineering/sqlkit/template"
)

// Engine compiles templates for one dialect and hands out sessions. It is
// safe for concurrent use; sessions are not.
type Engine struct {
	dialect  dialect.Dialect
	compiler *template.Compiler
	queries  cache.QueryCache
	opts     Options
	logger   *zap.Logger
}

func New(d dialect.Dialect, opts Options) *Engine {
	if d == nil {
		d = dialect.NewDefaultDialect()
	}
	opts = opts.withDefaults()
	return &Engine{
		dialect: d,
		compiler: template.NewCompiler(template.Options{
			LikeEscapeChar:    opts.LikeEscapeChar,
			LikeEscapeTargets: opts.LikeEscapeTargets,
			Placeholder:       d.Placeholder,
		}),
		queries: cache.NewQueryCache(),
		opts:    opts,
		logger:  opts.Logger.With(zap.String("dialect", d.Name())),
	}
}

func (e *Engine) Dialect() dialect.Dialect { return e.dialect }

func (e *Engine) Compiler() *template.Compiler { return e.compiler }

func (e *Engine) Options() Options { return e.opts }

// Session binds conn to the engine. The session owns conn and closes it.
func (e *Engine) Session(conn database.Conn) *Session {
	s := &Session{}
	s.executor = executor{
		engine:  e,
		session: s,
		conn:    conn,
		stmts:   cache.NewStatementCache(conn, e.opts.StatementCacheSize, e.logger),
		logger:  e.logger,
	}
	return s
}

// Plan is a fully compiled statement with its bound arguments.
type Plan struct {
	SQL    string
	Params []template.Param
	Args   []any
	Static bool
}

// Plan compiles sql against params without touching a connection. Count
// selects the count rewrite.
func (e *Engine) Plan(sql string, params any, count bool, opts ...CallOption) (*Plan, error) {
	c := newCall(opts)
	c.count = count
	src, err := template.SourceOf(params)
	if err != nil {
		return nil, err
	}
	compiled, err := e.compile(sql, src, c)
	if err != nil {
		return nil, err
	}
	args, err := e.bind(compiled, src)
	if err != nil {
		return nil, err
	}
	return &Plan{SQL: compiled.SQL, Params: compiled.Params, Args: args, Static: compiled.Static}, nil
}

// Resolve returns the template SQL for a resource reference.
func (e *Engine) Resolve(ref string) (string, error) {
	if e.opts.Resources == nil {
		return "", ErrNoResources
	}
	return e.opts.Resources.Get(ref)
}

func (e *Engine) variant(c call) string {
	switch {
	case c.count:
		return "count"
	case c.page.Paged() && e.dialect.SupportsOffset():
		return "page:" + strconv.Itoa(c.page.Offset) + ":" + strconv.Itoa(c.page.Limit)
	}
	return ""
}

// compile runs the template pipeline: expansion, dialect rewrite and
// placeholder compilation in the dialect's positional form. Results that do
// not depend on the parameter values are cached per template and variant.
func (e *Engine) compile(sql string, src template.Source, c call) (*template.Compiled, error) {
	variant := e.variant(c)
	if out, ok := e.queries.Get(sql, variant); ok {
		return out, nil
	}

	expanded, err := template.Expand(sql, src)
	if err != nil {
		return nil, err
	}
	switch {
	case c.count:
		expanded = e.dialect.ConvertCountSQL(expanded)
	case c.page.Paged() && e.dialect.SupportsOffset():
		expanded = e.dialect.ConvertPaginationSQL(expanded, c.page)
	}

	out, err := e.compiler.Compile(expanded, src)
	if err != nil {
		return nil, err
	}

	if out.Static && !template.HasBlocks(sql) {
		e.queries.Set(sql, variant, out)
	}
	return out, nil
}

func (e *Engine) bind(c *template.Compiled, src template.Source) ([]any, error) {
	args, err := c.Args(src)
	if err != nil {
		return nil, err
	}
	for i, a := range args {
		if args[i], err = e.dialect.ToDatabase(a); err != nil {
			return nil, fmt.Errorf("engine: binding %s: %w", c.Params[i], err)
		}
	}
	return args, nil
}

func (e *Engine) render(args []any) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = e.dialect.RenderValue(a)
	}
	return out
}
