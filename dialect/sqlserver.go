package dialect

import (
	"fmt"
	"strconv"
)

type SQLServer struct {
	Default
}

func NewSQLServerDialect() Dialect {
	return &SQLServer{}
}

func (SQLServer) Name() string {
	return "sqlserver"
}

func (SQLServer) Placeholder(n int) string {
	return "@p" + strconv.Itoa(n)
}

func (SQLServer) RenderValue(v any) string {
	return renderValue(v, "1", "0", func(b []byte) string {
		return fmt.Sprintf("0x%x", b)
	})
}

func (SQLServer) SupportsIdentity() bool { return true }
func (SQLServer) SupportsSequence() bool { return true }
func (SQLServer) SupportsOffset() bool   { return true }

func (SQLServer) BuildSequenceGeneratorSQL(name string) (string, error) {
	return "SELECT NEXT VALUE FOR " + name, nil
}

// ConvertPaginationSQL uses OFFSET/FETCH, which is only valid after an
// ORDER BY clause.
func (SQLServer) ConvertPaginationSQL(sql string, p Pagination) string {
	if !p.Paged() {
		return sql
	}
	if _, ok := trailingOrderBy(sql); !ok {
		sql += " ORDER BY (SELECT NULL)"
	}
	sql += " OFFSET " + strconv.Itoa(p.Offset) + " ROWS"
	if p.Limit > 0 {
		sql += " FETCH NEXT " + strconv.Itoa(p.Limit) + " ROWS ONLY"
	}
	return sql
}

// ConvertCountSQL strips a trailing ORDER BY; derived tables reject it.
func (d SQLServer) ConvertCountSQL(sql string) string {
	return d.Default.ConvertCountSQL(stripOrderBy(sql))
}

func (SQLServer) IsDuplicateKeyError(code ErrorCode) bool {
	return code.Vendor == 2601 || code.Vendor == 2627
}

func (SQLServer) IsTimeoutError(code ErrorCode) bool {
	switch code.Vendor {
	case 1222, // lock request time out period exceeded
		-2: // client-side timeout
		return true
	}
	return false
}

func (d SQLServer) ToDatabase(v any) (any, error) {
	if b, ok := v.(bool); ok {
		return boolToInt(b), nil
	}
	return d.Default.ToDatabase(v)
}
