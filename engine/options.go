package engine

import (
	"time"

	"go.uber.org/zap"

	"github.com/Konsultn-Engineering/sqlkit/cache"
	"github.com/Konsultn-Engineering/sqlkit/database"
	"github.com/Konsultn-Engineering/sqlkit/dialect"
)

// Resources resolves "resource#SQL_ID" references to template SQL.
type Resources interface {
	Get(ref string) (string, error)
}

// Options configure an Engine. The zero value reuses prepared statements
// through the session's statement cache.
type Options struct {
	NoReuse            bool // prepare and close a handle per call
	LikeEscapeChar     rune
	LikeEscapeTargets  string
	TransactionTimeout time.Duration // 0 disables the deadline
	StatementCacheSize int
	Resources          Resources
	Logger             *zap.Logger
	Clock              func() time.Time
}

func DefaultOptions() Options {
	return Options{
		StatementCacheSize: cache.DefaultStatementCacheSize,
	}
}

func (o Options) withDefaults() Options {
	if o.StatementCacheSize <= 0 {
		o.StatementCacheSize = cache.DefaultStatementCacheSize
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}

// CallOption adjusts a single statement execution.
type CallOption func(*call)

type call struct {
	page  dialect.Pagination
	keys  database.GeneratedKeys
	count bool
}

// WithPage requests rows [offset, offset+limit). Zero limit means no upper
// bound.
func WithPage(offset, limit int) CallOption {
	return func(c *call) {
		c.page = dialect.Pagination{Offset: offset, Limit: limit}
	}
}

func WithGeneratedKeys(keys database.GeneratedKeys) CallOption {
	return func(c *call) {
		c.keys = keys
	}
}

func newCall(opts []CallOption) call {
	var c call
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func (c call) prepareOptions() database.PrepareOptions {
	return database.PrepareOptions{Keys: c.keys, Page: c.page}
}
