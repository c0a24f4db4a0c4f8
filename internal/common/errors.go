package common

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrorKind classifies failures surfaced to callers. Each kind maps to one
// stable machine-readable code.
type ErrorKind string

const (
	KindAuth               ErrorKind = "AUTH_FAILED"
	KindValidation         ErrorKind = "INVALID_DETAILS"
	KindSignature          ErrorKind = "INVALID_SIGNATURE"
	KindGatewayUnavailable ErrorKind = "GATEWAY_UNREACHABLE"
	KindGatewayRejected    ErrorKind = "GATEWAY_REJECTED"
	KindNotCaptured        ErrorKind = "NOT_CAPTURED"
	KindPersistence        ErrorKind = "PERSISTENCE_FAILED"
	KindNotFound           ErrorKind = "NOT_FOUND"
	KindConfig             ErrorKind = "CONFIG_ERROR"
	KindUnavailable        ErrorKind = "SERVICE_UNAVAILABLE"
	KindRateLimited        ErrorKind = "RATE_LIMITED"
	KindForbidden          ErrorKind = "SUBSCRIPTION_REQUIRED"
)

// FailureReason is the tagged classification of a payment failure, decided
// where the raw gateway or widget error is first parsed.
type FailureReason string

const (
	ReasonGeneric        FailureReason = "generic"
	ReasonInvalidDetails FailureReason = "invalid_details"
	ReasonMethodDegraded FailureReason = "method_degraded"
)

// AppError is the error type returned across service boundaries.
type AppError struct {
	Kind       ErrorKind
	Message    string
	Details    map[string]string
	Reason     FailureReason
	Suggestion string
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the caller may retry the same request.
func (e *AppError) Retryable() bool {
	switch e.Kind {
	case KindGatewayUnavailable, KindPersistence, KindUnavailable:
		return true
	}
	return false
}

// HTTPStatus maps the error to a response status.
func (e *AppError) HTTPStatus() int {
	switch e.Kind {
	case KindAuth:
		return http.StatusUnauthorized
	case KindValidation, KindSignature:
		return http.StatusBadRequest
	case KindGatewayUnavailable, KindUnavailable:
		return http.StatusServiceUnavailable
	case KindGatewayRejected:
		switch e.Reason {
		case ReasonInvalidDetails:
			return http.StatusBadRequest
		case ReasonMethodDegraded:
			return http.StatusUnprocessableEntity
		}
		return http.StatusBadGateway
	case KindNotCaptured:
		return http.StatusPaymentRequired
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindForbidden:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// NewError builds an AppError of the given kind.
func NewError(kind ErrorKind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

// WrapError builds an AppError that keeps err as its cause.
func WrapError(kind ErrorKind, message string, err error) *AppError {
	return &AppError{Kind: kind, Message: message, Err: err}
}

// ValidationError reports a single invalid field.
func ValidationError(field, message string) *AppError {
	return &AppError{
		Kind:    KindValidation,
		Message: "Validation failed",
		Details: map[string]string{field: message},
	}
}

// AsAppError extracts an AppError from err, if any.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Kind == kind
}

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details,omitempty"`
	} `json:"error"`
	Reason     FailureReason `json:"reason,omitempty"`
	Retryable  bool          `json:"retryable"`
	Suggestion string        `json:"suggestion,omitempty"`
}

// CreateErrorResponse creates a standardized error response
func CreateErrorResponse(code string, message string, details map[string]string) *ErrorResponse {
	var resp ErrorResponse
	resp.Error.Code = code
	resp.Error.Message = message
	resp.Error.Details = details
	return &resp
}

// SendAppError renders err. Errors without a kind are reported as a
// generic server error so internals never reach the caller.
func SendAppError(c echo.Context, err error) error {
	appErr, ok := AsAppError(err)
	if !ok {
		return SendServerError(c, "An unexpected error occurred")
	}
	resp := CreateErrorResponse(string(appErr.Kind), appErr.Message, appErr.Details)
	resp.Reason = appErr.Reason
	resp.Retryable = appErr.Retryable()
	resp.Suggestion = appErr.Suggestion
	return c.JSON(appErr.HTTPStatus(), resp)
}

// SendValidationError sends a validation error response
func SendValidationError(c echo.Context, field, message string) error {
	return SendAppError(c, ValidationError(field, message))
}

// SendServerError sends a server error response
func SendServerError(c echo.Context, message string) error {
	return c.JSON(http.StatusInternalServerError, CreateErrorResponse("SERVER_ERROR", message, nil))
}

// SendUnauthorizedError sends an unauthorized error response
func SendUnauthorizedError(c echo.Context, message string) error {
	return SendAppError(c, NewError(KindAuth, message))
}
