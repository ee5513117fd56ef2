package dialect

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
)

var (
	ErrUnsupported    = errors.New("dialect: operation not supported")
	ErrUnknownDialect = errors.New("dialect: unknown dialect")
)

// Dialect is the per-engine policy used when compiling and executing
// statements. Implementations are stateless.
type Dialect interface {
	Name() string
	Placeholder(n int) string
	RenderValue(v any) string

	SupportsIdentity() bool
	SupportsSequence() bool
	SupportsOffset() bool

	BuildSequenceGeneratorSQL(name string) (string, error)
	ConvertPaginationSQL(sql string, p Pagination) string
	ConvertCountSQL(sql string) string
	PingSQL() string

	IsDuplicateKeyError(code ErrorCode) bool
	IsTimeoutError(code ErrorCode) bool

	ToDatabase(v any) (any, error)
	FromDatabase(v any, target reflect.Type) (any, error)
}

// Pagination bounds. Zero means "not set" for either field.
type Pagination struct {
	Offset int
	Limit  int
}

func (p Pagination) Paged() bool {
	return p.Offset > 0 || p.Limit > 0
}

var registry = struct {
	sync.RWMutex
	m map[string]Dialect
}{m: make(map[string]Dialect)}

// Register makes d available under name (case-insensitive).
func Register(name string, d Dialect) {
	registry.Lock()
	defer registry.Unlock()
	registry.m[strings.ToLower(name)] = d
}

func Lookup(name string) (Dialect, error) {
	registry.RLock()
	defer registry.RUnlock()
	d, ok := registry.m[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDialect, name)
	}
	return d, nil
}

func Names() []string {
	registry.RLock()
	defer registry.RUnlock()
	names := make([]string, 0, len(registry.m))
	for n := range registry.m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func init() {
	Register("default", NewDefaultDialect())
	for _, n := range []string{"postgres", "postgresql", "pgx"} {
		Register(n, NewPostgresDialect())
	}
	Register("mysql", NewMySQLDialect())
	Register("tidb", NewTiDBDialect())
	for _, n := range []string{"sqlite", "sqlite3"} {
		Register(n, NewSQLiteDialect())
	}
	for _, n := range []string{"sqlserver", "mssql"} {
		Register(n, NewSQLServerDialect())
	}
	Register("oracle", NewOracleDialect())
}
