package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/event-booking/internal/repository"
)

// Taxonomy sentinels.  Every error returned by a service method that is
// not an unexpected internal failure matches exactly one of them with
// errors.Is.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientSeats = errors.New("insufficient availability")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrTransient         = errors.New("temporarily unavailable")
	ErrConflict          = errors.New("conflict")
	// ErrCanceled marks work abandoned because the caller went away. It
	// is not a failure of the operation and is never retried.
	ErrCanceled = errors.New("request canceled")
)

// ErrorKind names a taxonomy kind in a form suitable for API error codes.
type ErrorKind string

const (
	KindValidation   ErrorKind = "validation_error"
	KindNotFound     ErrorKind = "not_found"
	KindInsufficient ErrorKind = "insufficient_availability"
	KindUnauthorized ErrorKind = "unauthorized"
	KindTransient    ErrorKind = "transient_failure"
	KindConflict     ErrorKind = "conflict"
	KindCanceled     ErrorKind = "request_canceled"
	KindInternal     ErrorKind = "internal"
)

// Kind classifies err.  Anything outside the taxonomy is KindInternal.
func Kind(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInsufficientSeats):
		return KindInsufficient
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrTransient):
		return KindTransient
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrCanceled):
		return KindCanceled
	default:
		return KindInternal
	}
}

// kindError carries a caller-facing message together with its taxonomy
// sentinel and, optionally, the underlying cause.
type kindError struct {
	kind  error
	msg   string
	cause error
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() []error {
	if e.cause == nil {
		return []error{e.kind}
	}
	return []error{e.kind, e.cause}
}

func newError(kind error, format string, args ...any) error {
	return &kindError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

func wrapError(kind error, cause error, msg string) error {
	return &kindError{kind: kind, msg: msg, cause: cause}
}

// translate maps repository and driver failures onto the taxonomy.  ctx is
// the operation context; its deadline expiring turns any failure into a
// transient one, and its cancellation into ErrCanceled.
func translate(ctx context.Context, err error) error {
	var ke *kindError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &ke):
		return err
	case errors.Is(err, repository.ErrEventNotFound):
		return wrapError(ErrNotFound, err, "event not found")
	case errors.Is(err, repository.ErrBookingNotFound):
		return wrapError(ErrNotFound, err, "booking not found")
	case errors.Is(err, repository.ErrInsufficientSeats):
		return wrapError(ErrInsufficientSeats, err, "not enough seats available")
	case errors.Is(err, repository.ErrEmailExists):
		return wrapError(ErrConflict, err, "email already registered")
	case errors.Is(err, repository.ErrOutOfRange):
		return wrapError(ErrValidation, err, "a value is too large to store")
	case errors.Is(ctx.Err(), context.Canceled), errors.Is(err, context.Canceled):
		// A dropped connection after cancellation is not a datastore fault.
		return wrapError(ErrCanceled, err, "request canceled by the client")
	case repository.IsTransient(err), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return wrapError(ErrTransient, err, "the operation timed out or conflicted with another one; retry")
	default:
		return err
	}
}
