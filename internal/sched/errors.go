package sched

import "errors"

// Sentinel errors returned alongside the int codes the public thread
// package translates into *thread.Error. These stay internal because
// internal/sched has no business knowing about the root package's
// richer Op/Tid-carrying error type (that would be an import cycle).
var (
	ErrInvalidTid   = errors.New("sched: invalid or dead tid")
	ErrNilQueue     = errors.New("sched: nil wait queue")
	ErrTableFull    = errors.New("sched: thread table full")
	ErrStackAlloc   = errors.New("sched: stack allocation failed")
	ErrNotCreatable = errors.New("sched: tid not eligible for this operation")
)
