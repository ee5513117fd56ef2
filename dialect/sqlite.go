package dialect

import (
	"fmt"
	"strconv"
)

type SQLite struct {
	Default
}

func NewSQLiteDialect() Dialect {
	return &SQLite{}
}

func (SQLite) Name() string {
	return "sqlite"
}

func (SQLite) RenderValue(v any) string {
	return renderValue(v, "1", "0", func(b []byte) string {
		return fmt.Sprintf("X'%x'", b)
	})
}

func (SQLite) SupportsIdentity() bool { return true }
func (SQLite) SupportsOffset() bool   { return true }

func (SQLite) ConvertPaginationSQL(sql string, p Pagination) string {
	switch {
	case p.Limit > 0:
		sql += " LIMIT " + strconv.Itoa(p.Limit)
	case p.Offset > 0:
		sql += " LIMIT -1"
	}
	if p.Offset > 0 {
		sql += " OFFSET " + strconv.Itoa(p.Offset)
	}
	return sql
}

// Vendor codes carry the extended result code when the driver reports one.
func (SQLite) IsDuplicateKeyError(code ErrorCode) bool {
	switch code.Vendor {
	case 1555, // SQLITE_CONSTRAINT_PRIMARYKEY
		2067: // SQLITE_CONSTRAINT_UNIQUE
		return true
	}
	return false
}

func (SQLite) IsTimeoutError(code ErrorCode) bool {
	switch code.Vendor & 0xff {
	case 5, // SQLITE_BUSY
		9: // SQLITE_INTERRUPT
		return true
	}
	return false
}
