package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// RenderErrorKind classifies terminal render failures.
type RenderErrorKind int

const (
	// ErrUnknown covers faults that fit no other category.
	ErrUnknown RenderErrorKind = iota

	// ErrWindowCreation means the browser process (the session's "window")
	// could not be launched or connected to.
	ErrWindowCreation

	// ErrWebViewCreation means the page could not be created or pointed at
	// the target URL.
	ErrWebViewCreation

	// ErrTimeout means the render exceeded its wall-clock budget, whether
	// detected inside the state machine or by the dispatcher.
	ErrTimeout

	// ErrScriptExecution means script evaluation inside the page failed.
	ErrScriptExecution

	// ErrProcessFailure means a worker process crashed, exited non-zero, or
	// exited without sending a result.
	ErrProcessFailure
)

// String returns the bare kind name.
func (k RenderErrorKind) String() string {
	switch k {
	case ErrWindowCreation:
		return "WindowCreation"
	case ErrWebViewCreation:
		return "WebViewCreation"
	case ErrTimeout:
		return "Timeout"
	case ErrScriptExecution:
		return "ScriptExecution"
	case ErrProcessFailure:
		return "ProcessFailure"
	default:
		return "Unknown"
	}
}

// Tag returns the message prefix used on the caller-visible error string.
// The tags follow the original bridge's conventions so downstream callers
// can keep matching on substrings like "Timeout".
func (k RenderErrorKind) Tag() string {
	switch k {
	case ErrWindowCreation:
		return "WindowCreationError"
	case ErrWebViewCreation:
		return "WebViewCreationError"
	case ErrTimeout:
		return "TimeoutError"
	case ErrScriptExecution:
		return "ScriptError"
	case ErrProcessFailure:
		return "ProcessFailureError"
	default:
		return "UnknownError"
	}
}

// RenderError is the single terminal failure type for a render session.
// Failures are never retried; each session produces at most one.
type RenderError struct {
	Kind    RenderErrorKind
	Message string
	Err     error // wrapped original error, may be nil
}

func (e *RenderError) Error() string {
	return e.Kind.Tag() + ": " + e.Message
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// NewRenderError creates a RenderError wrapping err.
func NewRenderError(kind RenderErrorKind, message string, err error) *RenderError {
	return &RenderError{Kind: kind, Message: message, Err: err}
}

// Errorf creates a RenderError with a formatted message.
func Errorf(kind RenderErrorKind, format string, args ...any) *RenderError {
	return &RenderError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// allKinds is ordered for prefix matching in ParseRenderError.
var allKinds = []RenderErrorKind{
	ErrWindowCreation,
	ErrWebViewCreation,
	ErrTimeout,
	ErrScriptExecution,
	ErrProcessFailure,
	ErrUnknown,
}

// ParseRenderError reconstructs a RenderError from its tagged string form,
// as carried over the worker wire protocol. Strings without a recognized
// tag come back as ErrUnknown with the full text preserved.
func ParseRenderError(s string) *RenderError {
	for _, k := range allKinds {
		prefix := k.Tag() + ": "
		if strings.HasPrefix(s, prefix) {
			return &RenderError{Kind: k, Message: strings.TrimPrefix(s, prefix)}
		}
	}
	return &RenderError{Kind: ErrUnknown, Message: s}
}

// Categorize wraps an arbitrary error as a RenderError. Context expiry maps
// to Timeout so the caller-visible contract is uniform no matter which layer
// noticed the deadline.
func Categorize(err error, message string) *RenderError {
	var re *RenderError
	if errors.As(err, &re) {
		return re
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return NewRenderError(ErrTimeout, message, err)
	default:
		return NewRenderError(ErrUnknown, fmt.Sprintf("%s: %v", message, err), err)
	}
}
