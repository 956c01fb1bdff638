// Package relkit is a record-oriented persistence engine: it translates
// declarative fetch/insert/update/delete operations over a schema of
// record types into parameterized SQL and executes them through a
// dialect driver, directly on a connection or inside a caller-supplied
// transaction. Fetched rows are not reconstructed into records by the
// engine.
package relkit

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors for common operations.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("relkit: entity not found")

	// ErrNotSingular is returned when a query that expects exactly one result
	// returns zero or multiple results.
	ErrNotSingular = errors.New("relkit: entity not singular")

	// ErrTxStarted is returned when attempting to start a new transaction
	// within an existing transaction.
	ErrTxStarted = errors.New("relkit: cannot start a transaction within a transaction")
)

// NotFoundError represents an error when an entity is not found.
type NotFoundError struct {
	label string
	id    any
}

func (e *NotFoundError) Error() string {
	if e.id != nil {
		return fmt.Sprintf("relkit: %s not found (id=%v)", e.label, e.id)
	}
	return fmt.Sprintf("relkit: %s not found", e.label)
}

// Is reports whether target matches ErrNotFound.
func (e *NotFoundError) Is(err error) bool { return err == ErrNotFound }

// Label returns the record type name.
func (e *NotFoundError) Label() string { return e.label }

// ID returns the id that was searched for, if any.
func (e *NotFoundError) ID() any { return e.id }

// NewNotFoundError returns a new NotFoundError for the given record type.
func NewNotFoundError(label string) *NotFoundError { return &NotFoundError{label: label} }

// NewNotFoundErrorWithID returns a new NotFoundError carrying the searched id.
func NewNotFoundErrorWithID(label string, id any) *NotFoundError {
	return &NotFoundError{label: label, id: id}
}

// IsNotFound returns true if err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// UsageError represents an illegal call sequence or malformed request: an
// unknown record type, an inactive/finished transaction, an invalid
// inclusion pattern, an arity mismatch in a filter test, a missing
// non-optional property on insert, or an invalid polymorphic discriminator.
type UsageError struct {
	Op  string // the call that was misused, e.g. "buildFetch", "tx.start"
	Msg string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("relkit: usage error in %s: %s", e.Op, e.Msg)
}

// NewUsageError returns a new UsageError.
func NewUsageError(op, msg string) *UsageError { return &UsageError{Op: op, Msg: msg} }

// IsUsageError returns true if err is (or wraps) a UsageError.
func IsUsageError(err error) bool {
	if err == nil {
		return false
	}
	var e *UsageError
	return errors.As(err, &e)
}

// ValidationError represents a typed value rejected during compilation:
// a type mismatch, NaN/Infinity, invalid datetime syntax, a malformed
// reference string, or a list supplied where a scalar was expected.
type ValidationError struct {
	Name string // field, property path, or parameter ref
	Err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("relkit: validation failed for %q: %s", e.Name, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NewValidationError returns a new ValidationError for the given name.
func NewValidationError(name string, err error) *ValidationError {
	return &ValidationError{Name: name, Err: err}
}

// IsValidationError returns true if err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}
	var e *ValidationError
	return errors.As(err, &e)
}

// TypeMismatchError represents a `?{ref}` substitution whose supplied
// value conflicts with the type its registered value function declares
// acceptable (§4.6 TypeMismatch).
type TypeMismatchError struct {
	Name string // the filter parameter's client-visible name
	Want string // what the value function expects, e.g. "list", "scalar"
	Got  any    // the value actually supplied
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("relkit: type mismatch for filter parameter %q: expected %s, got %T", e.Name, e.Want, e.Got)
}

// NewTypeMismatchError returns a new TypeMismatchError.
func NewTypeMismatchError(name, want string, got any) *TypeMismatchError {
	return &TypeMismatchError{Name: name, Want: want, Got: got}
}

// IsTypeMismatch returns true if err is (or wraps) a TypeMismatchError.
func IsTypeMismatch(err error) bool {
	if err == nil {
		return false
	}
	var e *TypeMismatchError
	return errors.As(err, &e)
}

// IntegrityError represents a generated parameter that resolved to NULL
// where that is forbidden, or an entangled target referencing a record
// that does not exist.
type IntegrityError struct {
	Msg string
}

func (e *IntegrityError) Error() string { return "relkit: integrity error: " + e.Msg }

// NewIntegrityError returns a new IntegrityError.
func NewIntegrityError(msg string) *IntegrityError { return &IntegrityError{Msg: msg} }

// IsIntegrityError returns true if err is (or wraps) an IntegrityError.
func IsIntegrityError(err error) bool {
	if err == nil {
		return false
	}
	var e *IntegrityError
	return errors.As(err, &e)
}

// ConstraintError represents a database constraint violation surfaced
// verbatim from the driver (DriverError, classified).
type ConstraintError struct {
	msg  string
	wrap error
}

func (e ConstraintError) Error() string { return fmt.Sprintf("relkit: constraint failed: %s", e.msg) }
func (e ConstraintError) Unwrap() error { return e.wrap }

// NewConstraintError returns a new ConstraintError wrapping a driver error.
func NewConstraintError(msg string, wrap error) error {
	return ConstraintError{msg: msg, wrap: wrap}
}

// IsConstraintError returns true if err is (or wraps) a ConstraintError.
func IsConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var e ConstraintError
	return errors.As(err, &e)
}

// TestFailedError is not a failure of the operation itself: it reports
// that one or more JSON-patch "test" ops did not pass during an update,
// so those records were skipped (§7, P7).
type TestFailedError struct {
	FailedRecordIDs []any
}

func (e *TestFailedError) Error() string {
	return fmt.Sprintf("relkit: test op failed for %d record(s)", len(e.FailedRecordIDs))
}

// IsTestFailed returns true if err is (or wraps) a TestFailedError.
func IsTestFailed(err error) bool {
	if err == nil {
		return false
	}
	var e *TestFailedError
	return errors.As(err, &e)
}

// RollbackError wraps an error that occurred while rolling back a
// transaction after some other error triggered the rollback. The
// original error remains reachable via Unwrap (§7: "a failed rollback
// is logged but does not replace the original error" — this type exists
// for callers that want both, not to replace propagation of the original).
type RollbackError struct {
	Err         error // the error that triggered the rollback
	RollbackErr error // the error the rollback attempt itself produced
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("relkit: %v (rollback also failed: %v)", e.Err, e.RollbackErr)
}

func (e *RollbackError) Unwrap() error { return e.Err }

// AggregateError represents multiple errors collected during one operation,
// e.g. several listener panics swallowed during transaction event fan-out.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 0 {
		return "relkit: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString("relkit: multiple errors:")
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  [%d] %v", i+1, err)
	}
	return sb.String()
}

// NewAggregateError returns a new AggregateError, or nil if errs is empty
// once nil entries are filtered out, or the single remaining error itself
// if only one remains.
func NewAggregateError(errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	switch len(filtered) {
	case 0:
		return nil
	case 1:
		return filtered[0]
	default:
		return &AggregateError{Errors: filtered}
	}
}

// --- driver error classification (§7 DriverError) ---

// errorCoder is implemented by driver errors carrying a vendor code,
// e.g. github.com/lib/pq.Error.
type errorCoder interface{ Code() string }

// errorNumberer is implemented by driver errors carrying a numeric code,
// e.g. github.com/go-sql-driver/mysql.MySQLError.
type errorNumberer interface{ Number() uint16 }

// sqlStateError is implemented by driver errors carrying a SQLSTATE code.
type sqlStateError interface{ SQLState() string }

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"

	mysqlDuplicateEntry         = 1062
	mysqlForeignKeyParent       = 1451
	mysqlForeignKeyChild        = 1452
	mysqlCheckConstraintViolate = 3819
)

// IsUniqueConstraintError reports whether err resulted from a uniqueness
// violation, trying a typed probe first and falling back to substring
// matching against known driver error text.
func IsUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := asError[sqlStateError](err); ok && e.SQLState() == pgUniqueViolation {
		return true
	}
	if e, ok := asError[errorCoder](err); ok && e.Code() == pgUniqueViolation {
		return true
	}
	if e, ok := asError[errorNumberer](err); ok && e.Number() == mysqlDuplicateEntry {
		return true
	}
	return containsAny(err.Error(),
		"Error 1062",
		"violates unique constraint",
		"UNIQUE constraint failed",
	)
}

// IsForeignKeyConstraintError reports whether err resulted from a
// foreign-key violation.
func IsForeignKeyConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := asError[sqlStateError](err); ok && e.SQLState() == pgForeignKeyViolation {
		return true
	}
	if e, ok := asError[errorCoder](err); ok && e.Code() == pgForeignKeyViolation {
		return true
	}
	if e, ok := asError[errorNumberer](err); ok {
		if n := e.Number(); n == mysqlForeignKeyParent || n == mysqlForeignKeyChild {
			return true
		}
	}
	return containsAny(err.Error(),
		"Error 1451",
		"Error 1452",
		"violates foreign key constraint",
		"FOREIGN KEY constraint failed",
	)
}

// IsCheckConstraintError reports whether err resulted from a check
// constraint violation.
func IsCheckConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := asError[sqlStateError](err); ok && e.SQLState() == pgCheckViolation {
		return true
	}
	if e, ok := asError[errorCoder](err); ok && e.Code() == pgCheckViolation {
		return true
	}
	if e, ok := asError[errorNumberer](err); ok && e.Number() == mysqlCheckConstraintViolate {
		return true
	}
	return containsAny(err.Error(), "Error 3819", "violates check constraint", "CHECK constraint failed")
}

// IsDriverConstraintError reports whether err resulted from any of the
// constraint violations above.
func IsDriverConstraintError(err error) bool {
	return IsUniqueConstraintError(err) || IsForeignKeyConstraintError(err) || IsCheckConstraintError(err)
}

func asError[T any](err error) (T, bool) {
	var target T
	for err != nil {
		if e, ok := err.(T); ok {
			return e, true
		}
		err = errors.Unwrap(err)
	}
	return target, false
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
