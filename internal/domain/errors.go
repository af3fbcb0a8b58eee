package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so the boundary can map them to responses
type ErrorKind string

const (
	KindUnknown             ErrorKind = "unknown"
	KindQuotaExceeded       ErrorKind = "quota_exceeded"
	KindUpstreamTransport   ErrorKind = "upstream_transport"
	KindUpstreamApplication ErrorKind = "upstream_application"
	KindUpstreamCredentials ErrorKind = "upstream_credentials"
	KindUpstreamUnavailable ErrorKind = "upstream_unavailable"
	KindNotFound            ErrorKind = "not_found"
	KindInvalidArgument     ErrorKind = "invalid_argument"
)

// Error is the typed error propagated from the core to the boundary
type Error struct {
	Kind        ErrorKind
	Op          string
	Message     string
	WaitMinutes int
	Err         error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, msg)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a typed error wrapping cause
func NewError(kind ErrorKind, op, message string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: cause}
}

// QuotaExceeded builds the rejection returned when an hourly budget is spent
func QuotaExceeded(class string, waitMinutes int) *Error {
	return &Error{
		Kind:        KindQuotaExceeded,
		Op:          class,
		Message:     fmt.Sprintf("hourly quota exhausted, retry in %d min", waitMinutes),
		WaitMinutes: waitMinutes,
	}
}

// KindOf returns the kind of the first typed error in the chain
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// WaitMinutesOf returns the retry estimate carried by a quota error
func WaitMinutesOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.WaitMinutes
	}
	return 0
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
