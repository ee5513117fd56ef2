package dialect

import (
	"fmt"
	"strconv"
	"time"
)

type Oracle struct {
	Default
}

func NewOracleDialect() Dialect {
	return &Oracle{}
}

func (Oracle) Name() string {
	return "oracle"
}

func (Oracle) Placeholder(n int) string {
	return ":" + strconv.Itoa(n)
}

func (Oracle) RenderValue(v any) string {
	if t, ok := v.(time.Time); ok {
		return "TIMESTAMP '" + t.Format("2006-01-02 15:04:05.000000") + "'"
	}
	return renderValue(v, "1", "0", func(b []byte) string {
		return fmt.Sprintf("HEXTORAW('%x')", b)
	})
}

func (Oracle) SupportsIdentity() bool { return true }
func (Oracle) SupportsSequence() bool { return true }
func (Oracle) SupportsOffset() bool   { return true }

func (Oracle) BuildSequenceGeneratorSQL(name string) (string, error) {
	return "SELECT " + name + ".NEXTVAL FROM DUAL", nil
}

func (Oracle) ConvertPaginationSQL(sql string, p Pagination) string {
	if p.Offset > 0 {
		sql += " OFFSET " + strconv.Itoa(p.Offset) + " ROWS"
	}
	if p.Limit > 0 {
		sql += " FETCH FIRST " + strconv.Itoa(p.Limit) + " ROWS ONLY"
	}
	return sql
}

// ConvertCountSQL strips a trailing ORDER BY; inline views reject it.
func (d Oracle) ConvertCountSQL(sql string) string {
	return d.Default.ConvertCountSQL(stripOrderBy(sql))
}

func (Oracle) PingSQL() string {
	return "SELECT 1 FROM DUAL"
}

func (Oracle) IsDuplicateKeyError(code ErrorCode) bool {
	return code.Vendor == 1 // ORA-00001
}

func (Oracle) IsTimeoutError(code ErrorCode) bool {
	return code.Vendor == 1013 // ORA-01013 user requested cancel
}

func (d Oracle) ToDatabase(v any) (any, error) {
	if b, ok := v.(bool); ok {
		return boolToInt(b), nil
	}
	return d.Default.ToDatabase(v)
}
