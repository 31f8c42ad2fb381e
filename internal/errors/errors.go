package errors

import (
	stderrors "errors"
	"fmt"
)

// Error is the structured error type threaded through the engine.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details map[string]any
	cause   error
}

// New creates an Error of the given kind with no wrapped cause.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap creates an Error of the given kind from an existing error. Returns nil if err is nil.
func Wrap(kind Kind, code string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Code: code, Message: err.Error(), cause: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause to the standard errors package.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches on Kind and Code, so errors.Is works against a sentinel built with New.
func (e *Error) Is(target error) bool {
	var t *Error
	if stderrors.As(target, &t) {
		return e.Kind == t.Kind && e.Code == t.Code
	}
	return false
}

// WithDetail attaches a contextual key-value pair and returns the receiver for chaining.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// Validation builds a KindValidation error.
func Validation(code, message string) *Error {
	return New(KindValidation, code, message)
}

// Storage builds a KindStorage error wrapping cause.
func Storage(code string, cause error) *Error {
	return Wrap(KindStorage, code, cause)
}

// Indexing builds a KindIndexing error wrapping cause, scoped to one file.
func Indexing(code string, cause error) *Error {
	return Wrap(KindIndexing, code, cause)
}

// Git builds a KindGit error wrapping cause.
func Git(code string, cause error) *Error {
	return Wrap(KindGit, code, cause)
}

// Embedding builds a KindEmbedding error wrapping cause.
func Embedding(code string, cause error) *Error {
	return Wrap(KindEmbedding, code, cause)
}

// KindOf extracts the Kind of err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// CodeOf extracts the Code of err, or "" if err is not an *Error.
func CodeOf(err error) string {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ""
}
