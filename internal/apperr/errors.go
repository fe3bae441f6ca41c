package apperr

import (
	"errors"
	"net/http"
)

// Code classifies an error for transport mapping. The REST surface maps codes
// to HTTP statuses, the GraphQL surface to error extension codes.
type Code string

const (
	CodeBadInput        Code = "BAD_USER_INPUT"
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	CodeForbidden       Code = "FORBIDDEN"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "BAD_REQUEST"
	CodeInternal        Code = "INTERNAL_ERROR"
)

type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string { return e.Message }

// Extensions satisfies the GraphQL extended-error contract so the code reaches
// clients as extensions.code.
func (e *Error) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": string(e.Code)}
}

func BadInput(msg string) *Error        { return &Error{Code: CodeBadInput, Message: msg} }
func Unauthenticated(msg string) *Error { return &Error{Code: CodeUnauthenticated, Message: msg} }
func Forbidden(msg string) *Error       { return &Error{Code: CodeForbidden, Message: msg} }
func NotFound(msg string) *Error        { return &Error{Code: CodeNotFound, Message: msg} }
func Conflict(msg string) *Error        { return &Error{Code: CodeConflict, Message: msg} }
func Internal(msg string) *Error        { return &Error{Code: CodeInternal, Message: msg} }

// From classifies any error: typed errors pass through, everything else is
// wrapped as internal with its raw message.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err.Error())
}

// HTTPStatus maps an error code to the REST status used for it. Conflicts are
// reported as 400, matching the client contract.
func HTTPStatus(err error) int {
	switch From(err).Code {
	case CodeBadInput, CodeConflict:
		return http.StatusBadRequest
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
