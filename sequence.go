package seqz

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// sequence is one trigger invocation: a snapshot of the handlers for a name
// plus the arguments and receiver they are called with.
//
// In detached mode (the synchronous variants) pending outcomes are not
// waited for. The Deferred itself is recorded as the result and a later
// rejection is reported as a FaultDetached.
type sequence struct {
	hooks    *Hooks
	ctx      context.Context
	recv     any
	name     Key
	entries  []entry
	args     []any
	detached bool

	// unwindFailed is set once an error handler has failed; no further
	// cleanup may run for this trigger.
	unwindFailed bool
}

func (h *Hooks) sequence(ctx context.Context, recv any, name Key, args []any, detached bool) *sequence {
	return &sequence{
		hooks:    h,
		ctx:      ctx,
		recv:     recv,
		name:     name,
		entries:  h.snapshot(name),
		args:     args,
		detached: detached,
	}
}

// checkSync rejects a synchronous run when any handler is async-only.
func (s *sequence) checkSync() error {
	for i := range s.entries {
		if s.entries[i].async {
			return fmt.Errorf("%w: %q", ErrAsyncHandler, s.name)
		}
	}
	return nil
}

// forward runs every handler in order and collects their results. On a
// failure at index i the error handlers for i-1..0 run before the original
// error is returned.
func (s *sequence) forward() ([]any, error) {
	start := s.started("trigger")

	results := make([]any, 0, len(s.entries))
	for i := range s.entries {
		e := &s.entries[i]
		atomic.AddInt64(&s.hooks.metrics.HandlersRun, 1)
		v, err := s.invoke(func(ctx context.Context) Outcome {
			return e.handler(ctx, s.recv, s.args...)
		})
		if err != nil {
			s.hooks.logger.Debug().
				Err(err).
				Str("hook", s.name).
				Int("index", i).
				Msg("handler failed")
			err = s.fail(i, err)
			s.finished(start, err)
			return nil, err
		}
		results = append(results, v)
	}

	s.finished(start, nil)
	return results, nil
}

// rewind runs every error handler from the last entry down, for callers
// that supply the error themselves.
func (s *sequence) rewind(cause error) error {
	start := s.started("rewind")
	err := s.unwind(len(s.entries)-1, cause)
	s.finished(start, err)
	return err
}

// fail unwinds the handlers before index i and returns the error the
// trigger completes with.
func (s *sequence) fail(i int, cause error) error {
	if i == 0 {
		return cause
	}
	if err := s.unwind(i-1, cause); err != nil {
		return err
	}
	return cause
}

// unwind invokes error handlers from index from down to 0. Entries without
// an error handler are skipped. The first failing error handler stops the
// unwind and is reported as a fault.
func (s *sequence) unwind(from int, cause error) error {
	if from < 0 {
		return nil
	}
	s.hooks.logger.Debug().
		Err(cause).
		Str("hook", s.name).
		Int("from", from).
		Msg("unwinding")

	for i := from; i >= 0; i-- {
		e := &s.entries[i]
		if e.onError == nil {
			continue
		}
		atomic.AddInt64(&s.hooks.metrics.CleanupsRun, 1)
		if _, err := s.invoke(func(ctx context.Context) Outcome {
			return e.onError(ctx, s.recv, cause, s.args...)
		}); err != nil {
			s.unwindFailed = true
			uerr := &UnwindError{Name: s.name, Index: i, Cause: cause, Err: err}
			s.hooks.fault(Fault{Kind: FaultUnwind, Name: s.name, Err: uerr})
			return uerr
		}
	}
	return nil
}

// invoke calls fn with the handler context and settles its outcome.
func (s *sequence) invoke(fn func(context.Context) Outcome) (any, error) {
	ctx, cancel := s.handlerContext()
	out := protect(ctx, fn)
	if !out.Pending() {
		cancel()
		return out.Result()
	}

	d := out.Deferred()
	if s.detached {
		go s.watch(d, cancel)
		return d, nil
	}
	v, err := settle(d)
	cancel()
	return v, err
}

// watch reports a detached Deferred that rejects.
func (s *sequence) watch(d Deferred, cancel context.CancelFunc) {
	_, err := settle(d)
	cancel()
	if err != nil {
		s.hooks.fault(Fault{Kind: FaultDetached, Name: s.name, Err: err})
	}
}

func (s *sequence) handlerContext() (context.Context, context.CancelFunc) {
	if s.hooks.timeout > 0 {
		return s.hooks.clock.WithTimeout(s.ctx, s.hooks.timeout)
	}
	return s.ctx, func() {}
}

func (s *sequence) started(op string) time.Time {
	atomic.AddInt64(&s.hooks.metrics.TriggersStarted, 1)
	s.hooks.logger.Debug().
		Str("hook", s.name).
		Str("op", op).
		Int("handlers", len(s.entries)).
		Bool("sync", s.detached).
		Msg("sequence started")
	return s.hooks.clock.Now()
}

func (s *sequence) finished(start time.Time, err error) {
	if err != nil {
		atomic.AddInt64(&s.hooks.metrics.TriggersFailed, 1)
	} else {
		atomic.AddInt64(&s.hooks.metrics.TriggersSucceeded, 1)
	}
	s.hooks.logger.Debug().
		Err(err).
		Str("hook", s.name).
		Dur("duration", s.hooks.clock.Now().Sub(start)).
		Msg("sequence finished")
}

// settle waits for d and returns its result. A panic from d's methods is
// returned as a *PanicError.
func settle(d Deferred) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, newPanicError(r)
		}
	}()
	<-d.Done()
	return d.Settled()
}

// protect converts a panic in fn into a failed Outcome.
func protect(ctx context.Context, fn func(context.Context) Outcome) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Fail(newPanicError(r))
		}
	}()
	return fn(ctx)
}
