// Package apperr defines the error kinds surfaced by the inventory and order
// engines.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	// KindNotFound: a referenced entity does not exist.
	KindNotFound
	// KindInvalidInput: a required argument is missing or not positive.
	KindInvalidInput
	// KindBusinessRule: a state transition or stock rule was violated.
	KindBusinessRule
	// KindStockUnavailable: not enough available stock for an unconditional movement.
	KindStockUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidInput:
		return "invalid_input"
	case KindBusinessRule:
		return "business_rule"
	case KindStockUnavailable:
		return "stock_unavailable"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error of the same kind, so errors.Is(err, apperr.ErrNotFound)
// works for every not-found error.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

var (
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrInvalidInput     = &Error{Kind: KindInvalidInput}
	ErrBusinessRule     = &Error{Kind: KindBusinessRule}
	ErrStockUnavailable = &Error{Kind: KindStockUnavailable}
)

func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func InvalidInput(format string, args ...any) error {
	return &Error{Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...)}
}

func BusinessRule(format string, args ...any) error {
	return &Error{Kind: KindBusinessRule, Message: fmt.Sprintf(format, args...)}
}

func StockUnavailable(format string, args ...any) error {
	return &Error{Kind: KindStockUnavailable, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an underlying error.
func Wrap(kind Kind, cause error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// OrNotFound turns err into a NotFound error when it matches missing and
// returns it unchanged otherwise.
func OrNotFound(err, missing error, format string, args ...any) error {
	if errors.Is(err, missing) {
		return Wrap(KindNotFound, err, format, args...)
	}
	return err
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
