package dialect

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Default is the fallback policy: no identity, sequence or offset support.
// Pagination is left to the caller, which skips rows after retrieval.
type Default struct{}

func NewDefaultDialect() Dialect {
	return &Default{}
}

func (Default) Name() string {
	return "default"
}

func (Default) Placeholder(int) string {
	return "?"
}

func (Default) RenderValue(v any) string {
	return renderValue(v, "TRUE", "FALSE", func(b []byte) string {
		return fmt.Sprintf("X'%x'", b)
	})
}

func (Default) SupportsIdentity() bool { return false }
func (Default) SupportsSequence() bool { return false }
func (Default) SupportsOffset() bool   { return false }

func (Default) BuildSequenceGeneratorSQL(name string) (string, error) {
	return "", fmt.Errorf("%w: sequence %q", ErrUnsupported, name)
}

func (Default) ConvertPaginationSQL(sql string, _ Pagination) string {
	return sql
}

func (Default) ConvertCountSQL(sql string) string {
	return "SELECT COUNT(*) COUNT_ FROM (" + sql + ") SUB_"
}

func (Default) PingSQL() string {
	return "SELECT 1"
}

func (Default) IsDuplicateKeyError(ErrorCode) bool { return false }
func (Default) IsTimeoutError(ErrorCode) bool      { return false }

func (Default) ToDatabase(v any) (any, error) {
	switch val := v.(type) {
	case uuid.UUID:
		return val.String(), nil
	case *uuid.UUID:
		if val == nil {
			return nil, nil
		}
		return val.String(), nil
	}
	return v, nil
}

func (Default) FromDatabase(v any, target reflect.Type) (any, error) {
	return convertValue(v, target)
}

func renderValue(v any, trueLit, falseLit string, bytesLit func([]byte) string) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return quote(val)
	case bool:
		if val {
			return trueLit
		}
		return falseLit
	case int, int8, int16, int32, int64:
		return fmt.Sprintf("%d", val)
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", val)
	case float32, float64:
		return strconv.FormatFloat(reflect.ValueOf(val).Float(), 'f', -1, 64)
	case time.Time:
		return "'" + val.Format("2006-01-02 15:04:05.000000") + "'"
	case []byte:
		return bytesLit(val)
	case uuid.UUID:
		return quote(val.String())
	default:
		return quote(fmt.Sprint(val))
	}
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func appendLimitOffset(sql string, p Pagination) string {
	if p.Limit > 0 {
		sql += " LIMIT " + strconv.Itoa(p.Limit)
	}
	if p.Offset > 0 {
		sql += " OFFSET " + strconv.Itoa(p.Offset)
	}
	return sql
}
