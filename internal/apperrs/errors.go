// Package apperrs defines the error kinds shared by the shortener components
// and their mapping onto HTTP status codes.
package apperrs

import (
	"errors"
	"net/http"

	pkgerrors "github.com/pkg/errors"
)

// Kind classifies an error for callers that need to branch on it.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindExpired
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindExpired:
		return "expired"
	case KindStorage:
		return "storage"
	default:
		return "internal"
	}
}

// Error is the error type returned by the registry, recorder and service.
// Message is safe to show to API clients; Err carries the underlying cause.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports a match when kind and message agree, so a wrapped copy of a
// sentinel still satisfies errors.Is against the sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

var (
	ErrInvalidURL  = &Error{Kind: KindValidation, Message: "Invalid or missing URL"}
	ErrInvalidCode = &Error{Kind: KindValidation, Message: "Invalid custom shortcode format. Must be alphanumeric (4-20 chars) and can include _ or -"}
	ErrConflict    = &Error{Kind: KindConflict, Message: "Custom shortcode already in use. Please choose another or omit to auto-generate."}
	ErrNotFound    = &Error{Kind: KindNotFound, Message: "Short URL not found."}
	ErrExpired     = &Error{Kind: KindExpired, Message: "Short URL has expired."}
	ErrStorage     = &Error{Kind: KindStorage, Message: "storage failure"}

	ErrAllocationExhausted = &Error{Kind: KindInternal, Message: "could not allocate a unique short code"}
	ErrCodeGeneration      = &Error{Kind: KindInternal, Message: "could not generate a short code"}
)

// Wrap returns a copy of sentinel annotated with op and cause.
func Wrap(sentinel *Error, op string, cause error) *Error {
	return &Error{Kind: sentinel.Kind, Op: op, Message: sentinel.Message, Err: cause}
}

// Storage wraps a persistence failure with a stack trace.
func Storage(op string, cause error) *Error {
	return Wrap(ErrStorage, op, pkgerrors.WithStack(cause))
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus maps err onto the status code the API answers with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindExpired:
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message an API client may see for err. Storage
// and internal failures collapse to fallback.
func PublicMessage(err error, fallback string) string {
	var e *Error
	if !errors.As(err, &e) {
		return fallback
	}
	switch e.Kind {
	case KindStorage, KindInternal:
		return fallback
	default:
		return e.Message
	}
}
