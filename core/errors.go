package core

import (
	"fmt"
	"net/http"
)

// AppError carries an HTTP status alongside the wrapped cause so handlers
// can map pipeline failures without string matching.
type AppError struct {
	Code    int    `json:"-"`
	Message string `json:"error"`
	Op      string `json:"-"`
	Err     error  `json:"-"`
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

// InvalidInput rejects malformed requests before they enter the pipeline.
func InvalidInput(op, message string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Message: message, Op: op}
}

// NotFound covers explicit reads of artifacts that do not exist.
func NotFound(op, message string) *AppError {
	return &AppError{Code: http.StatusNotFound, Message: message, Op: op}
}

// Internal wraps unexpected failures caught at the orchestrator boundary.
func Internal(op string, err error, message string) *AppError {
	return &AppError{Code: http.StatusInternalServerError, Message: message, Op: op, Err: err}
}
