package client

import (
	"errors"
	"fmt"
)

// Kind classifies a failure at the network boundary. The client picks
// user-facing messages by kind rather than by matching error text.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindConnection  Kind = "connection"
	KindNotFound    Kind = "not_found"
	KindRateLimited Kind = "rate_limited"
	KindServer      Kind = "server"
	KindUpstream    Kind = "upstream"
	KindUnknown     Kind = "unknown"
)

// Sentinel errors for use with errors.Is().
var (
	ErrValidation  = errors.New("validation error")
	ErrConnection  = errors.New("connection error")
	ErrNotFound    = errors.New("not found")
	ErrRateLimited = errors.New("rate limited")
	ErrServer      = errors.New("server error")
	ErrUpstream    = errors.New("upstream error")
	ErrUnknown     = errors.New("unknown error")
)

var kindSentinels = map[Kind]error{
	KindValidation:  ErrValidation,
	KindConnection:  ErrConnection,
	KindNotFound:    ErrNotFound,
	KindRateLimited: ErrRateLimited,
	KindServer:      ErrServer,
	KindUpstream:    ErrUpstream,
	KindUnknown:     ErrUnknown,
}

// Error is returned by every Client method.
type Error struct {
	Kind    Kind
	Status  int // HTTP status, 0 when no response was received
	Message string
	Details any
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause for use with errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// KindOf returns the kind of err, KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// MessageOf returns the message carried by err without its cause.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

func validationError(msg string, cause error) *Error {
	return &Error{Kind: KindValidation, Message: msg, Cause: cause}
}

func kindForStatus(status int) Kind {
	switch {
	case status == 400 || status == 413:
		return KindValidation
	case status == 404:
		return KindNotFound
	case status == 429:
		return KindRateLimited
	case status >= 500:
		return KindServer
	default:
		return KindUnknown
	}
}
