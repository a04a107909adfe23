package common

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds shared by every payout component. The kind travels to the
// admin UI so it can decide between "fix input", "refresh" and "retry".
const (
	KindValidation                = "VALIDATION_ERROR"
	KindInvalidState              = "INVALID_STATE"
	KindConcurrencyConflict       = "CONCURRENCY_CONFLICT"
	KindInsufficientFunds         = "INSUFFICIENT_FUNDS"
	KindInsufficientPlatformFunds = "INSUFFICIENT_PLATFORM_FUNDS"
	KindGateway                   = "GATEWAY_ERROR"
	KindNotFound                  = "NOT_FOUND"
	KindUnauthorized              = "UNAUTHORIZED"
	KindSessionExpired            = "SESSION_EXPIRED"
	KindForbidden                 = "FORBIDDEN"
	KindRateLimited               = "RATE_LIMITED"
	KindInternal                  = "INTERNAL_ERROR"
	KindServiceUnavailable        = "SERVICE_UNAVAILABLE"
)

// Sentinels for errors.Is checks. Comparison is by kind only.
var (
	ErrValidation                = &AppError{Kind: KindValidation}
	ErrInvalidState              = &AppError{Kind: KindInvalidState}
	ErrConcurrencyConflict       = &AppError{Kind: KindConcurrencyConflict}
	ErrInsufficientFunds         = &AppError{Kind: KindInsufficientFunds}
	ErrInsufficientPlatformFunds = &AppError{Kind: KindInsufficientPlatformFunds}
	ErrGateway                   = &AppError{Kind: KindGateway}
	ErrNotFound                  = &AppError{Kind: KindNotFound}
)

// AppError represents an application error with an HTTP status code
type AppError struct {
	Code    int    `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches another AppError of the same kind.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Kind != "" && t.Kind == e.Kind
}

// Retryable reports whether the caller may repeat the operation unchanged.
// Only gateway failures qualify; state and conflict errors need a refresh.
func (e *AppError) Retryable() bool {
	return e.Kind == KindGateway
}

// NewAppError creates a new application error
func NewAppError(code int, kind, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// NewBadRequestError creates a 400 error
func NewBadRequestError(message string, err error) *AppError {
	return NewAppError(http.StatusBadRequest, KindValidation, message, err)
}

// NewValidationError creates a 400 error for malformed or missing input
func NewValidationError(message string, err error) *AppError {
	return NewAppError(http.StatusBadRequest, KindValidation, message, err)
}

// NewUnauthorizedError creates a 401 error
func NewUnauthorizedError(message string) *AppError {
	return NewAppError(http.StatusUnauthorized, KindUnauthorized, message, nil)
}

// NewSessionExpiredError creates a 401 error telling the client to re-authenticate
func NewSessionExpiredError() *AppError {
	return NewAppError(http.StatusUnauthorized, KindSessionExpired, "session expired", nil)
}

// NewForbiddenError creates a 403 error
func NewForbiddenError(message string) *AppError {
	return NewAppError(http.StatusForbidden, KindForbidden, message, nil)
}

// NewRateLimitedError creates a 429 error
func NewRateLimitedError(message string) *AppError {
	return NewAppError(http.StatusTooManyRequests, KindRateLimited, message, nil)
}

// NewNotFoundError creates a 404 error
func NewNotFoundError(message string, err error) *AppError {
	return NewAppError(http.StatusNotFound, KindNotFound, message, err)
}

// NewInvalidStateError creates a 409 error for a disallowed status transition
func NewInvalidStateError(message string) *AppError {
	return NewAppError(http.StatusConflict, KindInvalidState, message, nil)
}

// NewConcurrencyConflictError creates a 409 error for a lost race
func NewConcurrencyConflictError(message string, err error) *AppError {
	return NewAppError(http.StatusConflict, KindConcurrencyConflict, message, err)
}

// NewInsufficientFundsError creates a 422 error for a tutor-side balance shortfall
func NewInsufficientFundsError(message string) *AppError {
	return NewAppError(http.StatusUnprocessableEntity, KindInsufficientFunds, message, nil)
}

// NewInsufficientPlatformFundsError creates a 503 error for a settlement-account shortfall
func NewInsufficientPlatformFundsError(message string) *AppError {
	return NewAppError(http.StatusServiceUnavailable, KindInsufficientPlatformFunds, message, nil)
}

// NewGatewayError creates a 502 error for a failed transfer call
func NewGatewayError(message string, err error) *AppError {
	return NewAppError(http.StatusBadGateway, KindGateway, message, err)
}

// NewInternalServerError creates a 500 error
func NewInternalServerError(message string) *AppError {
	return NewAppError(http.StatusInternalServerError, KindInternal, message, nil)
}

// NewInternalError creates a 500 error wrapping a cause
func NewInternalError(message string, err error) *AppError {
	return NewAppError(http.StatusInternalServerError, KindInternal, message, err)
}

// NewServiceUnavailableError creates a 503 error
func NewServiceUnavailableError(message string) *AppError {
	return NewAppError(http.StatusServiceUnavailable, KindServiceUnavailable, message, nil)
}

// KindOf returns the kind of an AppError anywhere in err's chain, or KindInternal.
func KindOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}
