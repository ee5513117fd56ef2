package dialect

import (
	"fmt"
	"strconv"
)

type Postgres struct {
	Default
}

func NewPostgresDialect() Dialect {
	return &Postgres{}
}

func (Postgres) Name() string {
	return "postgres"
}

func (Postgres) Placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

func (Postgres) RenderValue(v any) string {
	return renderValue(v, "TRUE", "FALSE", func(b []byte) string {
		return fmt.Sprintf("'\\x%x'::bytea", b)
	})
}

func (Postgres) SupportsIdentity() bool { return true }
func (Postgres) SupportsSequence() bool { return true }
func (Postgres) SupportsOffset() bool   { return true }

func (Postgres) BuildSequenceGeneratorSQL(name string) (string, error) {
	return "SELECT nextval('" + name + "')", nil
}

func (Postgres) ConvertPaginationSQL(sql string, p Pagination) string {
	return appendLimitOffset(sql, p)
}

func (Postgres) IsDuplicateKeyError(code ErrorCode) bool {
	return code.SQLState == "23505"
}

// IsTimeoutError matches query_canceled, raised for statement_timeout and
// for cancel requests.
func (Postgres) IsTimeoutError(code ErrorCode) bool {
	return code.SQLState == "57014"
}

// ToDatabase passes uuid values through; both pgx and lib/pq encode them
// natively.
func (Postgres) ToDatabase(v any) (any, error) {
	return v, nil
}
