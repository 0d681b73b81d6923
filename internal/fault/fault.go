package fault

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is the machine-readable error category surfaced to callers. Guest-
// and host-facing surfaces render different next-step guidance per code, so
// transitions must never coerce one category into another.
type Code string

const (
	CodeInvalidStateTransition Code = "INVALID_STATE_TRANSITION"
	CodePreconditionNotMet     Code = "PRECONDITION_NOT_MET"
	CodeValidationFailed       Code = "VALIDATION_FAILED"
	CodeNotFound               Code = "NOT_FOUND"
	CodeConflict               Code = "CONFLICT"
)

type Error struct {
	Code    Code
	Message string
}

func (e Error) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func InvalidState(format string, args ...any) Error {
	return Error{Code: CodeInvalidStateTransition, Message: fmt.Sprintf(format, args...)}
}

func Precondition(format string, args ...any) Error {
	return Error{Code: CodePreconditionNotMet, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) Error {
	return Error{Code: CodeValidationFailed, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) Error {
	return Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) Error {
	return Error{Code: CodeConflict, Message: fmt.Sprintf(format, args...)}
}

// As extracts a fault.Error from err, unwrapping as needed.
func As(err error) (Error, bool) {
	var fe Error
	if errors.As(err, &fe) {
		return fe, true
	}
	return Error{}, false
}

// HTTPStatus maps a code to the status the handler layer writes.
// Invalid transitions and version conflicts are both 409 with distinct codes.
func HTTPStatus(code Code) int {
	switch code {
	case CodeValidationFailed:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidStateTransition, CodePreconditionNotMet, CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
