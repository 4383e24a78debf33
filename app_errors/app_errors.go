package app_errors

import "fmt"

// AppError carries an HTTP status code alongside a client-safe message.
// Services return it instead of raw errors so controllers never have to
// guess at a status.
type AppError struct {
	Code    int
	Message string
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

func NotFound(message string) *AppError {
	return &AppError{Code: 404, Message: message}
}

func Forbidden(message string) *AppError {
	return &AppError{Code: 403, Message: message}
}

// InvalidOperation covers requests that are well-formed but not allowed by
// the domain rules, e.g. following yourself.
func InvalidOperation(message string) *AppError {
	return &AppError{Code: 400, Message: message}
}

// Conflict covers duplicate unique-constrained rows, e.g. a second pending
// follow request to the same recipient.
func Conflict(message string) *AppError {
	return &AppError{Code: 400, Message: message}
}

func Unauthorized(message string) *AppError {
	return &AppError{Code: 401, Message: message}
}

// NotVerified is the 403 flavor of an authentication failure: the credential
// is valid but the account has not confirmed its email yet.
func NotVerified(message string) *AppError {
	return &AppError{Code: 403, Message: message}
}

// Internal hides storage and transport failures behind a generic message.
// The underlying error stays server-side.
func Internal() *AppError {
	return &AppError{Code: 500, Message: "internal server error"}
}
