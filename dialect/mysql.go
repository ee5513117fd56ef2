package dialect

import (
	"fmt"
	"strconv"
)

// mysqlMaxLimit is the documented way to express "no limit" with an offset.
const mysqlMaxLimit = "18446744073709551615"

type MySQL struct {
	Default
}

func NewMySQLDialect() Dialect {
	return &MySQL{}
}

func (MySQL) Name() string {
	return "mysql"
}

func (MySQL) RenderValue(v any) string {
	return renderValue(v, "TRUE", "FALSE", func(b []byte) string {
		return fmt.Sprintf("X'%x'", b)
	})
}

func (MySQL) SupportsIdentity() bool { return true }
func (MySQL) SupportsOffset() bool   { return true }

func (MySQL) ConvertPaginationSQL(sql string, p Pagination) string {
	switch {
	case p.Limit > 0:
		sql += " LIMIT " + strconv.Itoa(p.Limit)
	case p.Offset > 0:
		sql += " LIMIT " + mysqlMaxLimit
	}
	if p.Offset > 0 {
		sql += " OFFSET " + strconv.Itoa(p.Offset)
	}
	return sql
}

func (MySQL) IsDuplicateKeyError(code ErrorCode) bool {
	return code.Vendor == 1062
}

func (MySQL) IsTimeoutError(code ErrorCode) bool {
	switch code.Vendor {
	case 1205, // ER_LOCK_WAIT_TIMEOUT
		3024, // ER_QUERY_TIMEOUT
		1317: // ER_QUERY_INTERRUPTED
		return true
	}
	return false
}
