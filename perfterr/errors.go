// Package perfterr defines the failure taxonomy for autoperft.
//
// Every error surfaced by the oracle, the subject adapter, the suite loader,
// or the CLI maps to exactly one FailureClass, which determines the process
// exit code and lets conformance checks verify failure classification, not
// just "did it fail."
package perfterr

import (
	"errors"
	"fmt"
)

// FailureClass is a stable failure category.
type FailureClass string

const (
	// AdapterProtocol means the subject's stdout violated the split-perft
	// wire grammar. A case-level failure; the run continues.
	AdapterProtocol FailureClass = "ADAPTER_PROTOCOL"
	// AdapterProcess means the subject process failed to launch, crashed, or
	// exited non-zero. A case-level failure; the run continues.
	AdapterProcess FailureClass = "ADAPTER_PROCESS"
	// OracleInternal means the trusted generator rejected a FEN or a path
	// move it previously reported as legal. Fatal for the whole run.
	OracleInternal FailureClass = "ORACLE_INTERNAL"
	// SuiteMalformed means the EPD suite file was unreadable or invalid.
	SuiteMalformed FailureClass = "SUITE_MALFORMED"
	// CLIUsage means the command line itself was invalid.
	CLIUsage FailureClass = "CLI_USAGE"
	// InternalError covers unexpected failures with no narrower class.
	InternalError FailureClass = "INTERNAL_ERROR"
)

// ExitCode returns the process exit code for a run aborted by this class.
// Case-level adapter failures do not abort the run and never reach this
// mapping; divergences are results, not errors, and exit through the
// runner's pass/fail accounting instead.
func (fc FailureClass) ExitCode() int {
	switch fc {
	case SuiteMalformed, CLIUsage:
		return 2
	default:
		return 10
	}
}

// Error is the structured error type for all autoperft failures.
type Error struct {
	Class   FailureClass
	Op      string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = msg + ": " + e.Cause.Error()
	}
	if e.Op != "" {
		return fmt.Sprintf("perfterr: %s in %s: %s", e.Class, e.Op, msg)
	}
	return fmt.Sprintf("perfterr: %s: %s", e.Class, msg)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given class, operation, and message.
func New(class FailureClass, op string, message string) *Error {
	return &Error{Class: class, Op: op, Message: message}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(class FailureClass, op string, message string, cause error) *Error {
	return &Error{Class: class, Op: op, Message: message, Cause: cause}
}

// Newf creates a new Error with a formatted message.
func Newf(class FailureClass, op string, format string, args ...any) *Error {
	return &Error{Class: class, Op: op, Message: fmt.Sprintf(format, args...)}
}

// ClassOf returns the failure class carried by err, or InternalError when
// err does not carry one.
func ClassOf(err error) FailureClass {
	var e *Error
	if errors.As(err, &e) {
		return e.Class
	}
	return InternalError
}

// IsCaseLevel reports whether err aborts only the current test case rather
// than the whole run.
func IsCaseLevel(err error) bool {
	switch ClassOf(err) {
	case AdapterProtocol, AdapterProcess:
		return true
	default:
		return false
	}
}
