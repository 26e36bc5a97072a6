package errkind

import (
	"errors"
	"fmt"
)

type Kind string

const (
	NotFound            Kind = "NotFound"
	AlreadyExists       Kind = "AlreadyExists"
	InvalidName         Kind = "InvalidName"
	ConstraintViolation Kind = "ConstraintViolation"
	TypeMismatch        Kind = "TypeMismatch"
	UpperBoundReached   Kind = "UpperBoundReached"
	CyclicReference     Kind = "CyclicReference"
	InvalidArgument     Kind = "InvalidArgument"
	EditionConcurrency  Kind = "EditionConcurrency"
	DataTypeNotFound    Kind = "DataTypeNotFound"
)

// Error is an editor error of a dedicated kind.
// Element and Name describe the model element
// the error refers to, if any.
type Error struct {
	Kind    Kind
	Element string
	Name    string
	msg     string
	cause   error
}

func (e *Error) Error() string {
	msg := e.msg
	if msg == "" {
		switch {
		case e.Element != "" && e.Name != "":
			msg = fmt.Sprintf("%s %q", e.Element, e.Name)
		case e.Name != "":
			msg = fmt.Sprintf("%q", e.Name)
		default:
			msg = e.Element
		}
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Kind, msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.cause
}

func New(kind Kind, elem, name string) *Error {
	return &Error{Kind: kind, Element: elem, Name: name}
}

func Newf(kind Kind, msg string, args ...interface{}) *Error {
	return &Error{Kind: kind, msg: fmt.Sprintf(msg, args...)}
}

func Wrapf(kind Kind, cause error, msg string, args ...interface{}) *Error {
	return &Error{Kind: kind, msg: fmt.Sprintf(msg, args...), cause: cause}
}

func ErrNotFound(elem, name string) error {
	return New(NotFound, elem, name)
}

func ErrAlreadyExists(elem, name string) error {
	return New(AlreadyExists, elem, name)
}

func ErrInvalidName(elem, name string) error {
	return New(InvalidName, elem, name)
}

func ErrInvalidArgument(msg string, args ...interface{}) error {
	return Newf(InvalidArgument, msg, args...)
}

func ErrUpperBoundReached(elem, name string) error {
	return New(UpperBoundReached, elem, name)
}

func ErrCyclicReference(msg string, args ...interface{}) error {
	return Newf(CyclicReference, msg, args...)
}

// Find returns the first editor error in the error chain, or nil.
func Find(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// KindOf returns the kind of the first editor error
// found in the error chain, or an empty kind.
func KindOf(err error) Kind {
	if e := Find(err); e != nil {
		return e.Kind
	}
	return ""
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func IsNotFound(err error) bool {
	return Is(err, NotFound)
}

func IsAlreadyExists(err error) bool {
	return Is(err, AlreadyExists)
}
