package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a unique error code
type ErrorCode int

// AppError represents an application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Engine error codes. Validation and suppression are business
// rejections; persistence and scheduling are infrastructure failures
// that always propagate.
const (
	ErrValidation ErrorCode = iota + 2000
	ErrSuppressed
	ErrPersistence
	ErrScheduling
	ErrNotFound
	ErrInternal
)

func Validation(message string) *AppError {
	return &AppError{
		Code:    ErrValidation,
		Message: message,
	}
}

func Suppressed(message string) *AppError {
	return &AppError{
		Code:    ErrSuppressed,
		Message: message,
	}
}

func Persistence(err error) *AppError {
	return &AppError{
		Code:    ErrPersistence,
		Message: "failed to persist notification",
		Err:     err,
	}
}

func Scheduling(err error) *AppError {
	return &AppError{
		Code:    ErrScheduling,
		Message: "failed to hand off to delivery scheduler",
		Err:     err,
	}
}

func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Err:     err,
	}
}

func Internal(err error) *AppError {
	return &AppError{
		Code:    ErrInternal,
		Message: "internal error",
		Err:     err,
	}
}

func codeOf(err error) (ErrorCode, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code, true
	}
	return 0, false
}

// IsValidation reports whether err is a request validation rejection.
func IsValidation(err error) bool {
	code, ok := codeOf(err)
	return ok && code == ErrValidation
}

// IsSuppressed reports whether err is a deduplication rejection. This
// is a deliberate non-delivery outcome, not a fault; callers should log
// it as skipped rather than alert on it.
func IsSuppressed(err error) bool {
	code, ok := codeOf(err)
	return ok && code == ErrSuppressed
}

// IsPersistence reports whether err is a hard storage failure.
func IsPersistence(err error) bool {
	code, ok := codeOf(err)
	return ok && code == ErrPersistence
}

// IsScheduling reports whether err is a hard scheduler handoff failure.
func IsScheduling(err error) bool {
	code, ok := codeOf(err)
	return ok && code == ErrScheduling
}
