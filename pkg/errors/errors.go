// Package errors carries archflow's coded errors.
//
// Every failure that leaves a package boundary (a malformed architecture
// record, an unreachable generation service, a bad config file) is an
// [*Error] with a [Code]. The CLI prints [UserMessage]; the HTTP API writes
// the code and message as JSON with the status from [HTTPStatus]:
//
//	if err := a.Validate(); err != nil {
//	    return errors.Wrap(errors.ErrCodeInvalidArchitecture, err, "layout %s", path)
//	}
//
// [Is] and [GetCode] look through fmt.Errorf("%w") chains, so stages may add
// context with plain wrapping without losing the code.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an [Error]. Codes are stable strings and appear verbatim
// in API responses.
type Code string

const (
	// Rejected input: ideas, architecture records, formats, config.
	ErrCodeInvalidInput        Code = "INVALID_INPUT"
	ErrCodeInvalidArchitecture Code = "INVALID_ARCHITECTURE"
	ErrCodeInvalidFormat       Code = "INVALID_FORMAT"
	ErrCodeInvalidConfig       Code = "INVALID_CONFIG"

	// The generation service answered with something unusable.
	ErrCodeInvalidResponse Code = "INVALID_RESPONSE"

	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	ErrCodeNetwork Code = "NETWORK_ERROR"
	ErrCodeTimeout Code = "TIMEOUT"

	// Reported by the generation service for the forwarded bearer token.
	ErrCodeUnauthorized Code = "UNAUTHORIZED"
	ErrCodeForbidden    Code = "FORBIDDEN"

	ErrCodeInternal Code = "INTERNAL_ERROR"
)

// Error is a coded failure with an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// Error formats as "CODE: message" or "CODE: message: cause".
func (e *Error) Error() string {
	if e.Cause == nil {
		return string(e.Code) + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

// Unwrap exposes the cause to the standard errors package.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New returns an Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap returns an Error with a formatted message around cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether the outermost *Error in err's chain has code.
func Is(err error, code Code) bool {
	got := GetCode(err)
	return got != "" && got == code
}

// GetCode returns the code of the outermost *Error in err's chain, or "".
func GetCode(err error) Code {
	if e, ok := asError(err); ok {
		return e.Code
	}
	return ""
}

// UserMessage returns the message of the outermost *Error without its code,
// or err.Error() for uncoded errors.
func UserMessage(err error) string {
	if e, ok := asError(err); ok {
		return e.Message
	}
	return err.Error()
}

func asError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// HTTPStatus maps an error code to the HTTP status the API responds with.
// Unknown and empty codes map to 500.
func HTTPStatus(code Code) int {
	switch code {
	case ErrCodeInvalidInput, ErrCodeInvalidArchitecture, ErrCodeInvalidFormat, ErrCodeInvalidConfig:
		return http.StatusBadRequest
	case ErrCodeNotFound, ErrCodeFileNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeNetwork, ErrCodeInvalidResponse:
		return http.StatusBadGateway
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
