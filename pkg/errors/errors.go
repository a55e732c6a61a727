package errors

import (
	"errors"
	"fmt"
)

// ErrorType discriminates application errors so that every failure can be
// turned into exactly one user-facing notification.
type ErrorType string

const (
	// ErrorTypeRemoteQuery indicates a read against the backend failed
	ErrorTypeRemoteQuery ErrorType = "REMOTE_QUERY"

	// ErrorTypeRemoteWrite indicates an insert, update or upload failed
	ErrorTypeRemoteWrite ErrorType = "REMOTE_WRITE"

	// ErrorTypeValidation indicates caller-supplied input violates a precondition
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypePermissionDenied indicates a device capability was declined
	ErrorTypePermissionDenied ErrorType = "PERMISSION_DENIED"

	// ErrorTypeNotFound indicates a single-row lookup returned no row
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeUnauthorized indicates missing or invalid credentials
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"

	// ErrorTypeConflict indicates a conflict with existing data
	ErrorTypeConflict ErrorType = "CONFLICT"

	// ErrorTypeInternal indicates an internal error
	ErrorTypeInternal ErrorType = "INTERNAL"
)

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewRemoteQueryError creates a new read failure error
func NewRemoteQueryError(message string, err error) *AppError {
	return &AppError{Type: ErrorTypeRemoteQuery, Message: message, Err: err}
}

// NewRemoteWriteError creates a new write failure error
func NewRemoteWriteError(message string, err error) *AppError {
	return &AppError{Type: ErrorTypeRemoteWrite, Message: message, Err: err}
}

// NewValidationError creates a new validation error
func NewValidationError(message string) *AppError {
	return &AppError{Type: ErrorTypeValidation, Message: message}
}

// NewPermissionDeniedError creates a new permission denied error
func NewPermissionDeniedError(message string) *AppError {
	return &AppError{Type: ErrorTypePermissionDenied, Message: message}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{Type: ErrorTypeNotFound, Message: message}
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string) *AppError {
	return &AppError{Type: ErrorTypeUnauthorized, Message: message}
}

// NewConflictError creates a new conflict error
func NewConflictError(message string) *AppError {
	return &AppError{Type: ErrorTypeConflict, Message: message}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{Type: ErrorTypeInternal, Message: message, Err: err}
}

// TypeOf returns the type of the first AppError in err's chain, or
// ErrorTypeInternal when there is none.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// IsType reports whether err carries an AppError of the given type.
func IsType(err error, t ErrorType) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == t
}

// Message returns the user-facing message of err. Wrapped driver errors are
// never exposed.
func Message(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "unexpected error"
}
