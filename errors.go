package seqz

import (
	"errors"
	"fmt"
)

// Hook Management Errors
//
// These errors are returned when managing hook lifecycle
// (registration, unregistration, service state).

// ErrAlreadyUnhooked is returned when attempting to unhook a hook
// that has already been unhooked or was never valid.
var ErrAlreadyUnhooked = errors.New("hook already unhooked")

// ErrHookNotFound is returned when attempting to remove a hook
// that no longer exists, for example after Clear.
var ErrHookNotFound = errors.New("hook not found")

// ErrEmptyName is returned when registering a handler under "".
var ErrEmptyName = errors.New("hook name is empty")

// ErrNilHandler is returned when registering a nil handler.
var ErrNilHandler = errors.New("hook handler is nil")

// Service Lifecycle Errors

// ErrServiceClosed is returned when attempting to use a service
// that has been closed via Close().
var ErrServiceClosed = errors.New("service is closed")

// ErrAlreadyClosed is returned when calling Close() on a service
// that has already been closed.
var ErrAlreadyClosed = errors.New("service already closed")

// Resource Limit Errors

// ErrTooManyHooks is returned when attempting to register a hook
// would exceed either:
//   - maxHooksPerEvent (100 hooks for a single name)
//   - maxTotalHooks (10,000 total hooks across all names)
var ErrTooManyHooks = errors.New("hook limit exceeded")

// Execution Errors

// ErrAsyncHandler is returned by the synchronous trigger variants when a
// handler registered under the name was declared async-only. No handler
// runs when this error is returned.
var ErrAsyncHandler = errors.New("async handler registered for synchronous trigger")

// ErrNilDeferred is the failure recorded when a handler reports a pending
// outcome backed by a nil pointer, such as a nil *Future.
var ErrNilDeferred = errors.New("handler returned a nil deferred")

// ErrHandlerPanicked matches (via errors.Is) every *PanicError.
var ErrHandlerPanicked = errors.New("hook panicked during execution")

// PanicError is the failure recorded when a handler or error handler
// panics instead of returning.
type PanicError struct {
	Value any
}

func newPanicError(v any) *PanicError {
	return &PanicError{Value: v}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%s: %v", ErrHandlerPanicked, e.Value)
}

// Is reports whether target is ErrHandlerPanicked.
func (e *PanicError) Is(target error) bool {
	return target == ErrHandlerPanicked
}

// Unwrap returns the panic value when it was an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// UnwindError reports that an error handler failed while unwinding. The
// unwind stops at that handler, so cleanup for earlier handlers did not run.
//
// Cause is the error that started the unwind. It is not part of the Unwrap
// chain, so errors.Is(err, cause) is false for an UnwindError.
type UnwindError struct {
	Name  Key   // hook name being unwound
	Index int   // snapshot index of the failing error handler
	Cause error // error that started the unwind
	Err   error // error returned by the error handler
}

func (e *UnwindError) Error() string {
	return fmt.Sprintf("unwind %q failed at handler %d: %v (while handling: %v)", e.Name, e.Index, e.Err, e.Cause)
}

func (e *UnwindError) Unwrap() error {
	return e.Err
}

// FaultKind classifies failures that escape the normal return path.
type FaultKind int

const (
	// FaultUnwind is an error handler failing during an unwind.
	FaultUnwind FaultKind = iota
	// FaultDetached is a deferred outcome rejecting after a synchronous
	// trigger moved past it without waiting.
	FaultDetached
)

func (k FaultKind) String() string {
	switch k {
	case FaultUnwind:
		return "unwind"
	case FaultDetached:
		return "detached"
	default:
		return fmt.Sprintf("FaultKind(%d)", int(k))
	}
}

// Fault is delivered to the FaultHandler.
type Fault struct {
	Kind FaultKind
	Name Key
	Err  error
}

func (f Fault) Error() string {
	return fmt.Sprintf("seqz %s fault on %q: %v", f.Kind, f.Name, f.Err)
}

func (f Fault) Unwrap() error {
	return f.Err
}

// FaultHandler receives faults. It may return, in which case an unwind fault
// is also returned to the trigger's caller as an *UnwindError.
type FaultHandler func(Fault)
