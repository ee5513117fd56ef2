package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/Konsultn-Engineering/sqlkit/dialect"
)

var (
	ErrTransactionTimeout = errors.New("engine: transaction timeout")
	ErrDuplicateKey       = errors.New("engine: duplicate key")
	ErrTxDone             = errors.New("engine: transaction has already been committed or rolled back")
	ErrTxInProgress       = errors.New("engine: transaction already in progress")
	ErrNoRows             = errors.New("engine: no rows in result set")
	ErrNoResources        = errors.New("engine: no SQL resource loader configured")
	ErrPlanMismatch       = errors.New("engine: parameters compile to a different statement")
)

// TransactionTimeoutError is returned when the transaction deadline has
// passed, either before a statement was sent or when the driver reported a
// timeout after it.
type TransactionTimeoutError struct {
	Deadline time.Time
	SQL      string
	Err      error // driver error, nil for the pre-flight check
}

func (e *TransactionTimeoutError) Error() string {
	msg := fmt.Sprintf("engine: transaction timeout: deadline %s exceeded", e.Deadline.Format(time.RFC3339Nano))
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransactionTimeoutError) Unwrap() error { return e.Err }

func (e *TransactionTimeoutError) Is(target error) bool {
	return target == ErrTransactionTimeout
}

// StatementExecutionError wraps any other driver failure with the code the
// dialect extracted from it.
type StatementExecutionError struct {
	Code      dialect.ErrorCode
	SQL       string
	Err       error
	Duplicate bool
}

func (e *StatementExecutionError) Error() string {
	return fmt.Sprintf("engine: statement failed (code %s): %v", e.Code, e.Err)
}

func (e *StatementExecutionError) Unwrap() error { return e.Err }

func (e *StatementExecutionError) Is(target error) bool {
	return target == ErrDuplicateKey && e.Duplicate
}

// CleanupError is a primary failure whose resource cleanup also failed.
// errors.Is and errors.As see the primary error only.
type CleanupError struct {
	Err     error
	Cleanup error
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("%v (cleanup: %v)", e.Err, e.Cleanup)
}

func (e *CleanupError) Unwrap() error { return e.Err }

// withCleanup attaches cleanup to err. A cleanup failure alone is not an
// error of the operation.
func withCleanup(err, cleanup error) error {
	if err == nil || cleanup == nil {
		return err
	}
	return &CleanupError{Err: err, Cleanup: cleanup}
}
