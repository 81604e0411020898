package board

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is checks.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrValidation   = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrPersistence  = errors.New("persistence failure")
)

// Kind classifies a board error.
type Kind int

const (
	KindUnauthorized Kind = iota + 1
	KindValidation
	KindNotFound
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindPersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindUnauthorized:
		return ErrUnauthorized
	case KindValidation:
		return ErrValidation
	case KindNotFound:
		return ErrNotFound
	case KindPersistence:
		return ErrPersistence
	default:
		return nil
	}
}

// Error is returned by every Store operation.
type Error struct {
	Kind Kind
	// Op is the store operation, e.g. "create task".
	Op string
	// Msg is the user-facing message.
	Msg string
	// Err is the underlying cause, set for persistence errors.
	Err error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	if e.Msg == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Msg, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

func unauthorized(op, msg string) error {
	return &Error{Kind: KindUnauthorized, Op: op, Msg: msg}
}

func invalid(op, msg string) error {
	return &Error{Kind: KindValidation, Op: op, Msg: msg}
}

func notFound(op, msg string) error {
	return &Error{Kind: KindNotFound, Op: op, Msg: msg}
}

func persistence(op string, err error) error {
	var be *Error
	if errors.As(err, &be) {
		return err
	}
	return &Error{Kind: KindPersistence, Op: op, Err: err}
}
