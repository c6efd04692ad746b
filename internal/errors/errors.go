// Package errors provides coded errors for command exit reporting.
package errors

import (
	"context"
	"fmt"
)

// Code classifies an error for exit handling and structured output.
type Code string

const (
	CodeInternal        Code = "INTERNAL"
	CodeExternalService Code = "EXTERNAL_SERVICE"
	CodeCancelled       Code = "CANCELLED"
)

// Error is a coded error carrying an operator-facing message.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewExternalServiceError reports a dependency outside this process failing.
func NewExternalServiceError(msg string) error {
	return &Error{Code: CodeExternalService, Message: msg}
}

// WrapInternal wraps err as an internal fault. A context that was already
// cancelled reclassifies the wrap as CodeCancelled.
func WrapInternal(ctx context.Context, err error, msg string) error {
	code := CodeInternal
	if ctx != nil && ctx.Err() != nil {
		code = CodeCancelled
	}
	return &Error{Code: code, Message: msg, Err: err}
}
