package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a pystudio error code.
type ErrorCode string

const (
	ErrInvalidRequest    ErrorCode = "INVALID_REQUEST"    // 400
	ErrUnauthorized      ErrorCode = "UNAUTHORIZED"       // 401
	ErrNotFound          ErrorCode = "NOT_FOUND"          // 404
	ErrConflict          ErrorCode = "CONFLICT"           // 409
	ErrRemoteUnavailable ErrorCode = "REMOTE_UNAVAILABLE" // 502
	ErrRemoteStatus      ErrorCode = "REMOTE_STATUS"      // 502
	ErrInvalidResponse   ErrorCode = "INVALID_RESPONSE"   // 502
	ErrInternal          ErrorCode = "INTERNAL"           // 500
)

// StudioError represents a structured error with code, status, and details.
type StudioError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *StudioError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *StudioError {
	return &StudioError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewUnauthorized creates a 401 error when no session token is stored.
func NewUnauthorized(msg string) *StudioError {
	return &StudioError{
		Code:    ErrUnauthorized,
		Status:  401,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing resource.
func NewNotFound(identifier string) *StudioError {
	return &StudioError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewConflict creates a 409 error when a resource already exists.
func NewConflict(msg string) *StudioError {
	return &StudioError{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewRemoteUnavailable creates a 502 error when the gateway could not be reached.
func NewRemoteUnavailable(err error) *StudioError {
	msg := "remote gateway unavailable"
	if err != nil {
		msg = fmt.Sprintf("remote gateway unavailable: %v", err)
	}
	return &StudioError{
		Code:    ErrRemoteUnavailable,
		Status:  502,
		Message: msg,
	}
}

// NewRemoteStatus creates a 502 error when the gateway answered with a non-2xx status.
func NewRemoteStatus(endpoint string, status int) *StudioError {
	return &StudioError{
		Code:    ErrRemoteStatus,
		Status:  502,
		Message: fmt.Sprintf("remote gateway returned status %d for %s", status, endpoint),
		Details: map[string]any{"endpoint": endpoint, "remote_status": status},
	}
}

// NewInvalidResponse creates a 502 error when the gateway response could not be decoded.
func NewInvalidResponse(endpoint string, err error) *StudioError {
	msg := fmt.Sprintf("invalid response from %s", endpoint)
	if err != nil {
		msg = fmt.Sprintf("invalid response from %s: %v", endpoint, err)
	}
	return &StudioError{
		Code:    ErrInvalidResponse,
		Status:  502,
		Message: msg,
		Details: map[string]any{"endpoint": endpoint},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The cause is kept in Details for logging; the message stays generic.
func NewInternal(err error) *StudioError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &StudioError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
	}
}

// Is checks if an error is a StudioError with the given code.
func Is(err error, code ErrorCode) bool {
	var sErr *StudioError
	if stderrors.As(err, &sErr) {
		return sErr.Code == code
	}
	return false
}
