// Package verrors classifies the core's error kinds per the fatal/
// non-fatal taxonomy: capture/config errors are fatal, dissection and
// bitstream-parse errors are recoverable and only terminate the one
// packet/frame/metric in flight.
package verrors

import (
	"errors"
	"fmt"
)

// Kind is the closed set of error kinds the core can raise.
type Kind string

const (
	CaptureInit          Kind = "CaptureInit"
	UnsupportedLink      Kind = "UnsupportedLink"
	UnsupportedNetwork   Kind = "UnsupportedNetwork"
	UnsupportedTransport Kind = "UnsupportedTransport"
	PipelineError        Kind = "PipelineError"
	UnsupportedCodec     Kind = "UnsupportedCodec"
	UnsupportedPixel     Kind = "UnsupportedPixelFormat"
	ParseUnderrun        Kind = "ParseUnderrun"
	DissectionGap        Kind = "DissectionGap"
	RttUnderSampled      Kind = "RttUnderSampled"
)

// Error wraps a Kind with a message and an optional cause.
type Error struct {
	Kind  Kind
	msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.msg)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an Error of the given kind.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, msg: msg}
}

// Wrap builds an Error of the given kind around a cause, matching the
// fmt.Errorf("...: %w", err) wrapping convention used elsewhere in this
// module.
func Wrap(kind Kind, msg string, cause error) error {
	return &Error{Kind: kind, msg: msg, cause: cause}
}

// Is reports whether err (or something it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
