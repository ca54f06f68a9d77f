package http

import (
	"fmt"
	"net/http"
)

// AppError represents application-level error with HTTP status.
type AppError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Field   string                 `json:"field,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Status  int                    `json:"-"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new application error.
func NewAppError(code, field, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Field:   field,
		Status:  status,
	}
}

// WithParam sets a single error param.
func (e *AppError) WithParam(key string, value interface{}) *AppError {
	if e.Params == nil {
		e.Params = make(map[string]interface{})
	}
	e.Params[key] = value
	return e
}

// WithError wraps an underlying error.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// NotFoundErrorf creates a 404 error with formatting.
func NotFoundErrorf(format string, a ...interface{}) *AppError {
	return NewAppError("ERR_NOT_FOUND", "", fmt.Sprintf(format, a...), http.StatusNotFound)
}

// BadRequestErrorf creates a 400 error with formatting.
func BadRequestErrorf(format string, a ...interface{}) *AppError {
	return NewAppError("ERR_BAD_REQUEST", "", fmt.Sprintf(format, a...), http.StatusBadRequest)
}

// ConflictErrorf creates a 409 error, used for illegal state transitions.
func ConflictErrorf(format string, a ...interface{}) *AppError {
	return NewAppError("ERR_CONFLICT", "", fmt.Sprintf(format, a...), http.StatusConflict)
}

// UnprocessableError creates a 422 error for domain rejections.
func UnprocessableError(field, message string) *AppError {
	return NewAppError("ERR_REJECTED", field, message, http.StatusUnprocessableEntity)
}

// InternalErrorf creates a 500 error with formatting.
func InternalErrorf(format string, a ...interface{}) *AppError {
	return NewAppError("ERR_INTERNAL", "", fmt.Sprintf(format, a...), http.StatusInternalServerError)
}
