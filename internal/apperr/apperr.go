package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	Internal        Kind = "INTERNAL_ERROR"
	Unauthenticated Kind = "UNAUTHENTICATED"
	Forbidden       Kind = "FORBIDDEN"
	NotFound        Kind = "NOT_FOUND"
	Conflict        Kind = "CONFLICT"
	Validation      Kind = "VALIDATION_ERROR"
	OutOfStock      Kind = "OUT_OF_STOCK"
	ProductNotFound Kind = "PRODUCT_NOT_FOUND"
	InvalidState    Kind = "INVALID_STATE"
)

// Error is the typed failure returned by services. Msg is safe to show to
// callers; Err is for logs only.
type Error struct {
	Kind    Kind
	Msg     string
	Details []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind so callers can write errors.Is(err, apperr.New(apperr.NotFound, "")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Msg: msg} }

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func WithDetails(kind Kind, msg string, details []string) *Error {
	return &Error{Kind: kind, Msg: msg, Details: details}
}

// KindOf classifies err. Anything that is not an *Error is Internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool { return err != nil && KindOf(err) == kind }

func Status(kind Kind) int {
	switch kind {
	case Unauthenticated:
		return http.StatusUnauthorized
	case Forbidden, InvalidState:
		return http.StatusForbidden
	case NotFound, ProductNotFound:
		return http.StatusNotFound
	case Conflict, OutOfStock:
		return http.StatusConflict
	case Validation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
