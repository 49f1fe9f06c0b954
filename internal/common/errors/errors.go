package errors

import (
	"fmt"
	"time"
)

// ErrorCode identifies a class of application error.
type ErrorCode string

const (
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation      ErrorCode = "VALIDATION_ERROR"
	ErrCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrCodeUnauthenticated ErrorCode = "UNAUTHENTICATED"
	ErrCodeForbidden       ErrorCode = "FORBIDDEN"
	ErrCodeConflict        ErrorCode = "CONFLICT"
	ErrCodeBadRequest      ErrorCode = "BAD_REQUEST"

	ErrCodeUserNotFound    ErrorCode = "USER_NOT_FOUND"
	ErrCodePackageNotFound ErrorCode = "PACKAGE_NOT_FOUND"
	ErrCodePaymentNotFound ErrorCode = "PAYMENT_NOT_FOUND"
	ErrCodeNoticeNotFound  ErrorCode = "NOTICE_NOT_FOUND"

	ErrCodeDuplicatePending    ErrorCode = "DUPLICATE_PENDING"
	ErrCodeBelowMinimum        ErrorCode = "BELOW_MINIMUM"
	ErrCodeInsufficientBalance ErrorCode = "INSUFFICIENT_BALANCE"
	ErrCodeAlreadyResolved     ErrorCode = "ALREADY_RESOLVED"
	ErrCodeInvalidTransition   ErrorCode = "INVALID_TRANSITION"
	ErrCodePackageReferenced   ErrorCode = "PACKAGE_REFERENCED"
	ErrCodeInvalidWallet       ErrorCode = "INVALID_WALLET"

	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
	ErrCodeCacheError    ErrorCode = "CACHE_ERROR"
	ErrCodeTelegramAPI   ErrorCode = "TELEGRAM_API_ERROR"
)

// AppError is the typed error carried through services up to the HTTP layer.
type AppError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Cause     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// IsNotFound reports whether the error is a "not found" class error.
func (e *AppError) IsNotFound() bool {
	return e.Code == ErrCodeNotFound ||
		e.Code == ErrCodeUserNotFound ||
		e.Code == ErrCodePackageNotFound ||
		e.Code == ErrCodePaymentNotFound ||
		e.Code == ErrCodeNoticeNotFound
}

// IsValidation reports whether the error is user-correctable.
func (e *AppError) IsValidation() bool {
	return e.Code == ErrCodeValidation ||
		e.Code == ErrCodeBadRequest ||
		e.Code == ErrCodeBelowMinimum ||
		e.Code == ErrCodeInsufficientBalance ||
		e.Code == ErrCodeInvalidWallet
}

// IsUnauthorized reports whether the error is an auth failure.
func (e *AppError) IsUnauthorized() bool {
	return e.Code == ErrCodeUnauthenticated || e.Code == ErrCodeForbidden
}

// IsInternal reports whether the error should read as a server fault.
func (e *AppError) IsInternal() bool {
	return e.Code == ErrCodeInternal ||
		e.Code == ErrCodeDatabaseError ||
		e.Code == ErrCodeCacheError ||
		e.Code == ErrCodeTelegramAPI
}

// WithDetail attaches structured detail to the error.
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new application error.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Wrap wraps an existing error.
func Wrap(err error, code ErrorCode, message string) *AppError {
	appErr := New(code, message)
	appErr.Cause = err
	return appErr
}

// Wrapf wraps an existing error with formatting.
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// NewNotFoundError creates a "not found" error.
func NewNotFoundError(resource string, id interface{}) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource)).
		WithDetail("resource", resource).
		WithDetail("id", id)
}

// NewUnauthenticatedError creates an authentication error.
func NewUnauthenticatedError(reason string) *AppError {
	return New(ErrCodeUnauthenticated, fmt.Sprintf("Unauthenticated: %s", reason))
}

// NewForbiddenError creates a generic access error. The message deliberately
// says nothing about the target resource.
func NewForbiddenError() *AppError {
	return New(ErrCodeForbidden, "forbidden")
}

// NewValidationError creates a validation error for a field.
func NewValidationError(field, reason string) *AppError {
	return New(ErrCodeValidation, fmt.Sprintf("Validation failed for field '%s': %s", field, reason)).
		WithDetail("field", field).
		WithDetail("reason", reason)
}

// NewDatabaseError creates a storage error.
func NewDatabaseError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeDatabaseError, fmt.Sprintf("Database operation failed: %s", operation)).
		WithDetail("operation", operation)
}

// IsAppError reports whether err is an AppError.
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// AsAppError converts err to an AppError when possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if err != nil {
		appErr, _ = err.(*AppError)
	}
	return appErr, appErr != nil
}

// CodeOf returns the error code of err, or ErrCodeInternal for plain errors.
func CodeOf(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}
