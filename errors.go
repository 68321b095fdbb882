// Package thread is a user-level threading library built on cooperative
// and preemptible green threads, with locks, condition variables, and
// join layered above a fixed-size thread table and FIFO ready queue.
package thread

import (
	"errors"
	"fmt"
)

// Error represents a structured thread-library error: which operation
// failed, on which TID, and why. Adapted from the teacher's ublk
// *Error (Op/DevID/Queue/Code/Errno/Msg/Inner) with DevID/Queue/Errno
// replaced by the single Tid this library actually has.
type Error struct {
	Op    string    // Operation that failed (e.g. "Create", "Yield", "Kill")
	Tid   int       // TID involved, or -1 if not applicable
	Code  ErrorCode // High-level error category
	Msg   string    // Human-readable message
	Inner error     // Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string
	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.Tid >= 0 {
		parts = append(parts, fmt.Sprintf("tid=%d", e.Tid))
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if len(parts) > 0 {
		return fmt.Sprintf("thread: %s (%s)", msg, parts[0])
	}
	return fmt.Sprintf("thread: %s", msg)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is provides errors.Is support by error category.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if te, ok := target.(*Error); ok {
		return e.Code == te.Code
	}
	return false
}

// ErrorCode represents a high-level error category, mirroring the
// taxonomy in spec.md §7.
type ErrorCode string

const (
	ErrCodeTableFull     ErrorCode = "thread table full"
	ErrCodeStackAlloc    ErrorCode = "stack allocation failed"
	ErrCodeInvalidTid    ErrorCode = "invalid or dead tid"
	ErrCodeNilQueue      ErrorCode = "nil wait queue"
	ErrCodeWouldDeadlock ErrorCode = "no other runnable thread"
	ErrCodeFailed        ErrorCode = "operation failed"
)

// NewError creates a new structured error.
func NewError(op string, tid int, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Tid: tid, Code: code, Msg: msg}
}

// WrapError wraps an internal/sched sentinel error with library context.
func WrapError(op string, tid int, inner error) *Error {
	if inner == nil {
		return nil
	}
	if te, ok := inner.(*Error); ok {
		return &Error{Op: op, Tid: tid, Code: te.Code, Msg: te.Msg, Inner: te.Inner}
	}
	return &Error{Op: op, Tid: tid, Code: ErrCodeFailed, Msg: inner.Error(), Inner: inner}
}

// IsCode reports whether err is a *Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Code == code
	}
	return false
}

// Precondition violations (release-not-owner, destroy-while-held,
// signal-without-lock) are fatal assertions per spec.md §7 — Go's
// idiomatic equivalent of the C assert() calls throughout thread.c.
func assertf(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}
