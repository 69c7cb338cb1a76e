package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/JoseLuizMendes/barber-pro/internal/repository"
)

// Kind classifies a failure so callers can pick a response without
// reading error text.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindConflict
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindTransient:
		return "transient"
	}
	return "unknown"
}

// Error is returned by every booking operation that fails for a reason
// the caller can act on.  Entity names the record involved ("employee",
// "service", "booking", "slot") when there is one.
type Error struct {
	Kind   Kind
	Entity string
	Msg    string
	Err    error

	unknown bool
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Entity != "" {
		msg += " " + e.Entity
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the kind sentinels below, so errors.Is(err, ErrConflict)
// holds for every conflict regardless of entity or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Entity == "" && t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

// Kind sentinels for errors.Is.
var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrConflict   = &Error{Kind: KindConflict}
	ErrTransient  = &Error{Kind: KindTransient}
)

// KindOf returns the kind of err, or 0 when err is not a booking error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsUnknownOutcome reports whether a write may or may not have committed:
// the transaction reached its commit and then the context ended or the
// store went away.  Callers must re-query the slot before retrying.
func IsUnknownOutcome(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.unknown
}

func interrupted(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

func validationError(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func notFound(entity string) error {
	return &Error{Kind: KindNotFound, Entity: entity, Msg: "does not exist or is inactive"}
}

func conflict(msg string, cause error) error {
	return &Error{Kind: KindConflict, Entity: "slot", Msg: msg, Err: cause}
}

// fromStore converts a repository error into a booking error.  Errors it
// does not recognise are returned unchanged.
func fromStore(err error) error {
	switch {
	case err == nil:
		return nil
	case KindOf(err) != 0:
		return err
	case errors.Is(err, repository.ErrDuplicateSlot), errors.Is(err, repository.ErrSerialization):
		return conflict("slot just taken", err)
	case errors.Is(err, repository.ErrUnavailable):
		return &Error{Kind: KindTransient, Err: err}
	case interrupted(err):
		return &Error{Kind: KindTransient, Msg: "interrupted", Err: err}
	}
	return err
}

// fromCommit converts the error of a transaction whose body finished its
// write.  Only then can an interruption or a lost connection leave the
// outcome unknown; conflicts stay conflicts.
func fromCommit(err error) error {
	conv := fromStore(err)
	if KindOf(conv) != KindTransient || KindOf(err) != 0 {
		return conv
	}
	return &Error{
		Kind:    KindTransient,
		Msg:     "outcome unknown, re-check availability before retrying",
		Err:     err,
		unknown: true,
	}
}
