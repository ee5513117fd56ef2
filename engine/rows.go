package engine

import (
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Konsultn-Engineering/sqlkit/cache"
	"github.com/Konsultn-Engineering/sqlkit/database"
)

// pagedRows skips and truncates rows for dialects that cannot paginate in
// SQL, and closes a non-cached statement together with its rows.
type pagedRows struct {
	database.Rows

	stmt   *cache.Statement
	skip   int
	limit  int
	seen   int
	logger *zap.Logger
}

func (r *pagedRows) Next() bool {
	for r.skip > 0 {
		if !r.Rows.Next() {
			return false
		}
		r.skip--
	}
	if r.limit > 0 && r.seen >= r.limit {
		return false
	}
	if !r.Rows.Next() {
		return false
	}
	r.seen++
	return true
}

func (r *pagedRows) Close() error {
	err := r.Rows.Close()
	if r.stmt != nil {
		if cerr := r.stmt.Close(); cerr != nil {
			r.logger.Warn("closing statement failed", zap.Error(cerr))
			err = multierr.Append(err, cerr)
		}
		r.stmt = nil
	}
	return err
}
