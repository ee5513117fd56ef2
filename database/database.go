package database

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/Konsultn-Engineering/sqlkit/dialect"
)

var (
	ErrNotSupported = errors.New("database: not supported by driver")
	ErrNoTx         = errors.New("database: no transaction in progress")
	ErrTxInProgress = errors.New("database: transaction already in progress")
)

// Conn is one logical connection to the database. Implementations are not
// safe for concurrent use.
type Conn interface {
	PrepareContext(ctx context.Context, query string, opts PrepareOptions) (Stmt, error)
	BeginTx(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	PingContext(ctx context.Context) error
	Close() error
}

// Stmt is a prepared statement handle owned by a Conn.
type Stmt interface {
	ExecContext(ctx context.Context, args ...any) (Result, error)
	QueryContext(ctx context.Context, args ...any) (Rows, error)
	Close() error
}

// RowsUnknown is the batch count of a set that succeeded but whose driver
// could not report the affected rows.
const RowsUnknown int64 = -1

// BatchStmt is implemented by statements that can execute several argument
// sets in one round trip. On failure the counts of the sets that completed
// are returned with the error. A count is RowsUnknown when the driver does
// not report it.
type BatchStmt interface {
	ExecBatch(ctx context.Context, args [][]any) ([]int64, error)
}

type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
	Columns() ([]string, error)
	Err() error
}

type Result interface {
	LastInsertId() (int64, error)
	RowsAffected() (int64, error)
}

type KeyMode uint8

const (
	KeysNone KeyMode = iota
	KeysAll
	KeysIndexes
	KeysNames
)

func (m KeyMode) String() string {
	switch m {
	case KeysAll:
		return "all"
	case KeysIndexes:
		return "indexes"
	case KeysNames:
		return "names"
	default:
		return "none"
	}
}

// GeneratedKeys selects which auto-generated columns a statement returns.
type GeneratedKeys struct {
	Mode    KeyMode
	Indexes []int
	Names   []string
}

// Canonical renders the column selection as a stable string, "" when no
// columns are listed. Names are length-prefixed so that no two selections
// render alike.
func (k GeneratedKeys) Canonical() string {
	switch k.Mode {
	case KeysIndexes:
		parts := make([]string, len(k.Indexes))
		for i, idx := range k.Indexes {
			parts[i] = strconv.Itoa(idx)
		}
		return strings.Join(parts, ",")
	case KeysNames:
		var b strings.Builder
		for i, name := range k.Names {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Itoa(len(name)))
			b.WriteByte(':')
			b.WriteString(name)
		}
		return b.String()
	}
	return ""
}

// PrepareOptions are the execution options fixed at prepare time.
type PrepareOptions struct {
	Keys GeneratedKeys
	Page dialect.Pagination
}

// CountResult is a Result for drivers that only report affected rows.
type CountResult int64

func (r CountResult) LastInsertId() (int64, error) {
	return 0, ErrNotSupported
}

func (r CountResult) RowsAffected() (int64, error) {
	return int64(r), nil
}
