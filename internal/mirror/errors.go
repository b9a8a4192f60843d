package mirror

import (
	"errors"
	"fmt"
)

// ErrType represents different types of mirror errors
type ErrType string

const (
	// ErrTypeIntrospection means a schema read failed (fatal to the table, fatal
	// to the run when it happens during staging)
	ErrTypeIntrospection ErrType = "INTROSPECTION_ERROR"
	// ErrTypeSchemaCreate means replaying a table definition on the destination failed
	ErrTypeSchemaCreate ErrType = "SCHEMA_CREATE_ERROR"
	// ErrTypeDataCopy means streaming rows between databases failed
	ErrTypeDataCopy ErrType = "DATA_COPY_ERROR"
	// ErrTypeSwap means the atomic rename itself failed; the most severe outcome,
	// the target may need manual intervention
	ErrTypeSwap ErrType = "SWAP_ERROR"
	// ErrTypeCleanup means stale staged or retired tables were left behind;
	// warning severity, never fails a run
	ErrTypeCleanup ErrType = "CLEANUP_WARNING"
	// ErrTypeConfirmation means a restore was requested without explicit confirmation
	ErrTypeConfirmation ErrType = "CONFIRMATION_ERROR"
)

// Error represents an error raised while mirroring or restoring, carrying the
// affected table when there is one
type Error struct {
	Type    ErrType
	Table   string
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *Error) Error() string {
	prefix := string(e.Type)
	if e.Table != "" {
		prefix = fmt.Sprintf("%s [table %s]", e.Type, e.Table)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap returns the underlying cause error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewError creates a new mirror error
func NewError(errType ErrType, table, message string, cause error) *Error {
	return &Error{
		Type:    errType,
		Table:   table,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// NewIntrospectionError creates a schema-read error
func NewIntrospectionError(table, message string, cause error) *Error {
	return NewError(ErrTypeIntrospection, table, message, cause)
}

// NewSchemaCreateError creates a definition-replay error
func NewSchemaCreateError(table, message string, cause error) *Error {
	return NewError(ErrTypeSchemaCreate, table, message, cause)
}

// NewDataCopyError creates a row-copy error
func NewDataCopyError(table, message string, cause error) *Error {
	return NewError(ErrTypeDataCopy, table, message, cause)
}

// NewSwapError creates a rename-failure error
func NewSwapError(table, message string, cause error) *Error {
	return NewError(ErrTypeSwap, table, message, cause)
}

// NewCleanupWarning creates a non-fatal cleanup error
func NewCleanupWarning(table, message string, cause error) *Error {
	return NewError(ErrTypeCleanup, table, message, cause)
}

// TypeOf returns the mirror error type of err, or "" if err is not a mirror error
func TypeOf(err error) ErrType {
	var mirrorErr *Error
	if errors.As(err, &mirrorErr) {
		return mirrorErr.Type
	}
	return ""
}
