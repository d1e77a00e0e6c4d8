// internal/errors/errors.go
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrorTypeIO            ErrorType = "IO"
	ErrorTypeCorrupt       ErrorType = "CORRUPT_HISTORY"
	ErrorTypeUnrelatedPath ErrorType = "UNRELATED_PATH"
	ErrorTypeNotFound      ErrorType = "NOT_FOUND"
	ErrorTypeValidation    ErrorType = "VALIDATION"
)

// Error is the typed failure surfaced at the action boundary. Op and Path
// name the filesystem operation and resource when they are known.
type Error struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Code    int       `json:"code"`
	Op      string    `json:"op,omitempty"`
	Path    string    `json:"path,omitempty"`
	Details any       `json:"details,omitempty"`
	Err     error     `json:"-"`
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IO wraps a failed filesystem call.
func IO(op, path string, err error) *Error {
	return &Error{
		Type:    ErrorTypeIO,
		Message: fmt.Sprintf("%s %s", op, path),
		Code:    http.StatusInternalServerError,
		Op:      op,
		Path:    path,
		Err:     err,
	}
}

// Corrupt reports a history resource that could not be decoded.
func Corrupt(path string, err error) *Error {
	return &Error{
		Type:    ErrorTypeCorrupt,
		Message: fmt.Sprintf("decoding history %s", path),
		Code:    http.StatusInternalServerError,
		Op:      "decode",
		Path:    path,
		Err:     err,
	}
}

func UnrelatedPath(path, root string) *Error {
	return &Error{
		Type:    ErrorTypeUnrelatedPath,
		Message: fmt.Sprintf("path %s is not inside %s", path, root),
		Code:    http.StatusBadRequest,
		Path:    path,
	}
}

func NotFound(message string) *Error {
	return &Error{
		Type:    ErrorTypeNotFound,
		Message: message,
		Code:    http.StatusNotFound,
	}
}

func ValidationError(message string, details any) *Error {
	return &Error{
		Type:    ErrorTypeValidation,
		Message: message,
		Code:    http.StatusBadRequest,
		Details: details,
	}
}

// IsType reports whether any error in err's chain is an *Error of type t.
func IsType(err error, t ErrorType) bool {
	var e *Error
	if !stderrors.As(err, &e) {
		return false
	}
	return e.Type == t
}

// StatusCode maps err to an HTTP status, defaulting to 500.
func StatusCode(err error) int {
	var e *Error
	if stderrors.As(err, &e) && e.Code != 0 {
		return e.Code
	}
	return http.StatusInternalServerError
}
