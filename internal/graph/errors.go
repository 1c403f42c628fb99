package graph

import (
	"errors"
	"fmt"

	"github.com/huddleup/huddle/internal/auth"
	"github.com/huddleup/huddle/internal/store"
)

// Error codes surfaced to clients through the GraphQL error extensions.
const (
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeNotFound           = "NOT_FOUND"
	CodeInvalidArgument    = "INVALID_ARGUMENT"
	CodeInvalidCursor      = "INVALID_CURSOR"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeStoreUnavailable   = "STORE_UNAVAILABLE"
)

// Error is a resolver failure with a stable machine-readable code. The code
// reaches clients via Extensions; the cause stays server-side.
type Error struct {
	Code    string
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.cause)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Extensions attaches the code to the GraphQL error entry for this field.
func (e *Error) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": e.Code}
}

func errUnauthorized() error {
	return &Error{Code: CodeUnauthorized, Message: "unauthorized"}
}

func errNotFound(entity string) error {
	return &Error{Code: CodeNotFound, Message: entity + " not found"}
}

func errInvalidArgument(message string) error {
	return &Error{Code: CodeInvalidArgument, Message: message}
}

func errInvalidCursor(cause error) error {
	return &Error{Code: CodeInvalidCursor, Message: "malformed cursor", cause: cause}
}

// wrapStoreError maps adapter failures onto the client-facing taxonomy.
func wrapStoreError(err error, entity string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return errNotFound(entity)
	case errors.Is(err, auth.ErrInvalidCredentials):
		return &Error{Code: CodeInvalidCredentials, Message: "invalid credentials"}
	default:
		return &Error{Code: CodeStoreUnavailable, Message: "store unavailable", cause: err}
	}
}

// HasCode reports whether err carries the given error code.
func HasCode(err error, code string) bool {
	var coded *Error
	return errors.As(err, &coded) && coded.Code == code
}
