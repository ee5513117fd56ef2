package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Konsultn-Engineering/sqlkit/database"
)

const DefaultStatementCacheSize = 1000

var (
	ErrStatementClosed = errors.New("cache: statement is closed")
	ErrCacheClosed     = errors.New("cache: statement cache is closed")
)

// Signature captures the prepare-time options that change the statement
// the driver creates. It is comparable and used as part of Key.
type Signature struct {
	Keys    database.KeyMode
	Columns string
	Paged   bool
	Offset  int
	Limit   int
}

func SignatureOf(opts database.PrepareOptions) Signature {
	sig := Signature{
		Keys:    opts.Keys.Mode,
		Columns: opts.Keys.Canonical(),
	}
	if opts.Page.Paged() {
		sig.Paged = true
		sig.Offset = opts.Page.Offset
		sig.Limit = opts.Page.Limit
	}
	return sig
}

// Key identifies a cached statement: compiled SQL plus signature.
type Key struct {
	SQL string
	Sig Signature
}

type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Size      int
	Live      int
}

// StatementCache maps Keys to prepared statements of one connection. Every
// handle it hands out, cached or not, is tracked until closed so that Close
// can release them all.
type StatementCache struct {
	conn   database.Conn
	logger *zap.Logger

	mu      sync.Mutex
	lru     *lru.Cache[Key, *Statement]
	live    map[*Statement]struct{}
	evicted []*Statement
	closed  bool

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

func NewStatementCache(conn database.Conn, size int, logger *zap.Logger) *StatementCache {
	if size <= 0 {
		size = DefaultStatementCacheSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &StatementCache{
		conn:   conn,
		logger: logger,
		live:   make(map[*Statement]struct{}),
	}
	c.lru, _ = lru.NewWithEvict(size, c.onEvict)
	return c
}

// onEvict runs synchronously inside lru calls made with c.mu held. The
// handle is closed by the caller after the lock is released.
func (c *StatementCache) onEvict(_ Key, s *Statement) {
	if !s.markClosed() {
		return
	}
	delete(c.live, s)
	c.evictions.Add(1)
	c.evicted = append(c.evicted, s)
}

// Prepare returns a statement for sql. With reuse set, a live cached handle
// with the same key is returned; otherwise the driver prepares a new one.
// The bool result reports a cache hit.
func (c *StatementCache) Prepare(ctx context.Context, sql string, opts database.PrepareOptions, reuse bool) (*Statement, bool, error) {
	key := Key{SQL: sql, Sig: SignatureOf(opts)}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, false, ErrCacheClosed
	}
	if reuse {
		if s, ok := c.lru.Get(key); ok {
			if !s.Closed() {
				s.opens.Add(1)
				c.mu.Unlock()
				c.hits.Add(1)
				return s, true, nil
			}
			// Closed behind our back: drop it and treat as a miss.
			c.lru.Remove(key)
		}
	}
	c.mu.Unlock()

	c.misses.Add(1)
	stmt, err := c.conn.PrepareContext(ctx, sql, opts)
	if err != nil {
		return nil, false, err
	}

	s := &Statement{Stmt: stmt, key: key, cache: c, cached: reuse}
	s.opens.Store(1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		s.markClosed()
		return nil, false, multierr.Append(ErrCacheClosed, stmt.Close())
	}
	c.live[s] = struct{}{}
	if reuse {
		c.lru.Add(key, s)
	}
	evicted := c.takeEvicted()
	c.mu.Unlock()

	c.closeEvicted(evicted)
	return s, false, nil
}

func (c *StatementCache) takeEvicted() []*Statement {
	ev := c.evicted
	c.evicted = nil
	return ev
}

func (c *StatementCache) closeEvicted(stmts []*Statement) {
	for _, s := range stmts {
		if err := s.Stmt.Close(); err != nil {
			c.logger.Warn("closing evicted statement failed",
				zap.String("sql", s.key.SQL),
				zap.Error(err))
		}
	}
}

// release forgets s. It reports false when s was already closed.
func (c *StatementCache) release(s *Statement) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !s.markClosed() {
		return false
	}
	delete(c.live, s)
	if s.cached {
		if cur, ok := c.lru.Peek(s.key); ok && cur == s {
			c.lru.Remove(s.key)
		}
	}
	return true
}

// Lookup returns the cached handle for key without preparing.
func (c *StatementCache) Lookup(key Key) (*Statement, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.lru.Peek(key)
	if !ok || s.Closed() {
		return nil, false
	}
	return s, true
}

func (c *StatementCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Size:      c.lru.Len(),
		Live:      len(c.live),
	}
}

// Close closes every live handle. Later Prepare calls fail with
// ErrCacheClosed.
func (c *StatementCache) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true

	stmts := make([]*Statement, 0, len(c.live))
	for s := range c.live {
		s.markClosed()
		stmts = append(stmts, s)
	}
	c.live = make(map[*Statement]struct{})
	c.lru.Purge()
	c.evicted = nil
	c.mu.Unlock()

	var err error
	for _, s := range stmts {
		err = multierr.Append(err, s.Stmt.Close())
	}
	return err
}

// Statement is a prepared statement handed out by a StatementCache.
type Statement struct {
	database.Stmt

	key    Key
	cache  *StatementCache
	cached bool
	closed atomic.Bool
	opens  atomic.Int64
}

func (s *Statement) markClosed() bool {
	return s.closed.CompareAndSwap(false, true)
}

func (s *Statement) Key() Key { return s.key }

// Cached reports whether the handle is shared through the cache.
func (s *Statement) Cached() bool { return s.cached }

func (s *Statement) Closed() bool { return s.closed.Load() }

// Opens is the number of times the handle was returned by Prepare.
func (s *Statement) Opens() int64 { return s.opens.Load() }

func (s *Statement) ExecContext(ctx context.Context, args ...any) (database.Result, error) {
	if s.Closed() {
		return nil, ErrStatementClosed
	}
	return s.Stmt.ExecContext(ctx, args...)
}

func (s *Statement) QueryContext(ctx context.Context, args ...any) (database.Rows, error) {
	if s.Closed() {
		return nil, ErrStatementClosed
	}
	return s.Stmt.QueryContext(ctx, args...)
}

// ExecBatch uses the driver's batch support when available and falls back
// to one execution per argument set. Sets whose affected rows the driver
// cannot report count as database.RowsUnknown.
func (s *Statement) ExecBatch(ctx context.Context, args [][]any) ([]int64, error) {
	if s.Closed() {
		return nil, ErrStatementClosed
	}
	if b, ok := s.Stmt.(database.BatchStmt); ok {
		return b.ExecBatch(ctx, args)
	}

	counts := make([]int64, 0, len(args))
	for _, set := range args {
		res, err := s.Stmt.ExecContext(ctx, set...)
		if err != nil {
			return counts, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			n = database.RowsUnknown
		}
		counts = append(counts, n)
	}
	return counts, nil
}

// Close closes the handle and removes it from the cache immediately.
func (s *Statement) Close() error {
	if !s.cache.release(s) {
		return nil
	}
	return s.Stmt.Close()
}
