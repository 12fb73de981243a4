// Package seqz provides a named-hook sequencing engine: handlers registered
// under a name run one at a time in priority order when the name is triggered,
// and a failure walks back over the handlers that already ran, invoking their
// paired error handlers in reverse order.
//
// Handlers may complete immediately or later. A handler returns an Outcome,
// which is either a value, a failure, or a Deferred that settles later; the
// engine waits for deferred outcomes before moving to the next handler.
//
// Basic Usage:
//
//	hooks := seqz.New()
//	defer hooks.Close()
//
//	hooks.Hook("order.save", seqz.Func(func(ctx context.Context, recv any, args ...any) (any, error) {
//		return reserveStock(ctx, args[0].(Order))
//	}), seqz.Priority(1), seqz.OnError(seqz.ErrorFunc(func(ctx context.Context, recv any, cause error, args ...any) (any, error) {
//		return nil, releaseStock(ctx, args[0].(Order))
//	})))
//
//	results, err := hooks.Trigger(ctx, "order.save", order).Await(ctx)
//
// Ordering:
//
// Handlers run by ascending priority, ties broken by registration order.
// When handler i fails, error handlers for handlers i-1 down to 0 run, and the
// trigger fails with the original error value. The failing handler's own
// error handler is not invoked for its own failure.
//
// Wrapping:
//
// TriggerWrap runs "pre-X", "X", a body and "post-X" as one unit. A failure in
// any stage unwinds every stage that completed before it, most recent first.
//
// Faults:
//
// An error handler that fails while unwinding leaves cleanup incomplete. This
// is reported to the FaultHandler (see WithFaultHandler), which by default logs
// the fault and panics.
package seqz

import (
	"context"
	"reflect"
)

// Key represents a hook name used in registration and triggering.
//
//	const (
//		OrderSave Key = "order.save"
//		OrderShip Key = "order.ship"
//	)
type Key = string

// Handler is a registered callback. recv is the receiver the trigger was
// issued on (the Hooks container unless overridden with As) and args are
// the trigger arguments in order.
type Handler func(ctx context.Context, recv any, args ...any) Outcome

// ErrorHandler is the cleanup paired with a Handler. It receives the error
// that caused the unwind followed by the original trigger arguments.
type ErrorHandler func(ctx context.Context, recv any, cause error, args ...any) Outcome

// Deferred is a result that becomes available later. Any value exposing
// these two methods is treated as pending by From.
type Deferred interface {
	// Done is closed once the result is settled.
	Done() <-chan struct{}
	// Settled returns the value or failure. Only meaningful after Done.
	Settled() (any, error)
}

type outcomeKind uint8

const (
	immediate outcomeKind = iota
	failed
	pending
)

// Outcome is what a handler produced: an immediate value, an immediate
// failure, or a pending Deferred. The zero Outcome is an immediate nil value.
type Outcome struct {
	kind     outcomeKind
	value    any
	err      error
	deferred Deferred
}

// Value returns an Outcome completed with v.
func Value(v any) Outcome {
	return Outcome{kind: immediate, value: v}
}

// Fail returns an Outcome failed with err. A nil err yields Value(nil).
func Fail(err error) Outcome {
	if err == nil {
		return Outcome{}
	}
	return Outcome{kind: failed, err: err}
}

// Later returns a pending Outcome that settles with d. A nil interface
// yields Value(nil); a non-nil interface holding a nil pointer yields
// Fail(ErrNilDeferred).
func Later(d Deferred) Outcome {
	if d == nil {
		return Outcome{}
	}
	if isNilPointer(d) {
		return Fail(ErrNilDeferred)
	}
	return Outcome{kind: pending, deferred: d}
}

func isNilPointer(d Deferred) bool {
	v := reflect.ValueOf(d)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.Interface, reflect.Slice:
		return v.IsNil()
	}
	return false
}

// From builds an Outcome from a conventional (value, error) pair. A value
// that implements Deferred is treated as pending.
func From(v any, err error) Outcome {
	if err != nil {
		return Fail(err)
	}
	if d, ok := v.(Deferred); ok {
		return Later(d)
	}
	return Value(v)
}

// Pending reports whether the outcome settles later.
func (o Outcome) Pending() bool {
	return o.kind == pending
}

// Deferred returns the pending value, or nil for immediate outcomes.
func (o Outcome) Deferred() Deferred {
	return o.deferred
}

// Result returns the immediate value and error. For pending outcomes it
// returns the Deferred itself as the value.
func (o Outcome) Result() (any, error) {
	switch o.kind {
	case failed:
		return nil, o.err
	case pending:
		return o.deferred, nil
	default:
		return o.value, nil
	}
}

// Func adapts a conventional function to a Handler. Returned values that
// implement Deferred are awaited by the engine.
func Func(fn func(ctx context.Context, recv any, args ...any) (any, error)) Handler {
	return func(ctx context.Context, recv any, args ...any) Outcome {
		return From(fn(ctx, recv, args...))
	}
}

// AsyncFunc adapts fn to a Handler that runs fn on its own goroutine and
// reports a pending outcome.
func AsyncFunc(fn func(ctx context.Context, recv any, args ...any) (any, error)) Handler {
	return func(ctx context.Context, recv any, args ...any) Outcome {
		return Later(Go(ctx, func(ctx context.Context) (any, error) {
			return fn(ctx, recv, args...)
		}))
	}
}

// ErrorFunc adapts a conventional function to an ErrorHandler.
func ErrorFunc(fn func(ctx context.Context, recv any, cause error, args ...any) (any, error)) ErrorHandler {
	return func(ctx context.Context, recv any, cause error, args ...any) Outcome {
		return From(fn(ctx, recv, cause, args...))
	}
}

// AsyncErrorFunc adapts fn to an ErrorHandler that runs on its own goroutine.
func AsyncErrorFunc(fn func(ctx context.Context, recv any, cause error, args ...any) (any, error)) ErrorHandler {
	return func(ctx context.Context, recv any, cause error, args ...any) Outcome {
		return Later(Go(ctx, func(ctx context.Context) (any, error) {
			return fn(ctx, recv, cause, args...)
		}))
	}
}
