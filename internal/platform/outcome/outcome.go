// Package outcome defines the tagged result every voice tool endpoint returns:
// either a success carrying a result payload, or a failure carrying a kind and
// a message that can be read back to the caller.
package outcome

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Kind classifies a failure.
type Kind string

const (
	NotFound             Kind = "NotFound"
	Conflict             Kind = "Conflict"
	ClosedDay            Kind = "ClosedDay"
	InvalidTemporalInput Kind = "InvalidTemporalInput"
	Unavailable          Kind = "Unavailable"
	StorageError         Kind = "StorageError"

	// InvalidRequest is produced by the normalization layer before a request
	// reaches the scheduling engine.
	InvalidRequest Kind = "InvalidRequest"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// storageMessage is what callers hear for any persistence fault.
const storageMessage = "Something went wrong on our side. Please try again in a moment."

// Error is a typed failure. Err, when set, is the underlying cause and is
// never shown to the caller.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Kind) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Storage wraps a persistence fault.
func Storage(err error) *Error {
	return &Error{Kind: StorageError, Message: storageMessage, Err: err}
}

// KindOf returns the kind carried by err. Errors that are not typed failures
// report StorageError.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return StorageError
}

// Is reports whether err is a typed failure of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// Failure is the error half of an Outcome.
type Failure struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// Outcome is the tagged result. Exactly one of Result and Failure is set.
type Outcome struct {
	Status string      `json:"status"`
	Result interface{} `json:"result,omitempty"`
	*Failure
}

func Success(result interface{}) Outcome {
	return Outcome{Status: StatusSuccess, Result: result}
}

func Fail(kind Kind, message string) Outcome {
	return Outcome{Status: StatusError, Failure: &Failure{Kind: kind, Message: message}}
}

// FromError converts err into a failed Outcome. Untyped errors become a
// generic StorageError so internal details never leak.
func FromError(err error) Outcome {
	var e *Error
	if errors.As(err, &e) {
		return Fail(e.Kind, e.Message)
	}
	return Fail(StorageError, storageMessage)
}

func (o Outcome) OK() bool {
	return o.Failure == nil
}

// HTTPStatus is 200 for every domain outcome so the voice platform reads the
// message; storage faults answer 503.
func (o Outcome) HTTPStatus() int {
	if o.Failure != nil && o.Failure.Kind == StorageError {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

// Write renders o as JSON.
func Write(c echo.Context, o Outcome) error {
	return c.JSON(o.HTTPStatus(), o)
}

// WriteError renders err. Transport errors pass through to echo's error
// handler; everything else becomes a failed Outcome.
func WriteError(c echo.Context, err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	return Write(c, FromError(err))
}
