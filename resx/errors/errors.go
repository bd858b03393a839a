// Package errors implements the four-kind error taxonomy shared by every
// resx producer: InvalidReference, UnknownResource, UnknownKey, and Internal.
package errors

import "fmt"

// Kind classifies a resx error. The zero value is Internal.
type Kind int

const (
	Internal Kind = iota
	InvalidReference
	UnknownResource
	UnknownKey
)

func (k Kind) String() string {
	switch k {
	case InvalidReference:
		return "InvalidReference"
	case UnknownResource:
		return "UnknownResource"
	case UnknownKey:
		return "UnknownKey"
	default:
		return "Internal"
	}
}

// Error is the tagged error value every fallible resx operation returns.
type Error struct {
	Kind   Kind
	Detail string
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// Unwrap exposes the underlying cause, if any, to errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New builds a Kind-tagged error with no underlying cause.
func New(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// Newf builds a Kind-tagged error with a formatted detail.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Wrap builds a Kind-tagged error that carries cause as its Unwrap target.
func Wrap(kind Kind, detail string, cause error) *Error {
	return &Error{Kind: kind, Detail: detail, Cause: cause}
}

// Is reports whether err is a resx Error of the given kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// KindOf extracts the Kind from err if it is (or wraps) a *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	for err != nil {
		if as, ok := err.(*Error); ok {
			e = as
			break
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = unwrapper.Unwrap()
	}
	if e == nil {
		return Internal, false
	}
	return e.Kind, true
}
