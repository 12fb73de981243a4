package seqz

import "context"

// Scope issues triggers with an explicit receiver. Handlers receive the
// scope's receiver as their recv argument.
//
//	hooks.As(order).Trigger(ctx, "order.save")
type Scope struct {
	hooks *Hooks
	recv  any
}

// As returns a Scope whose triggers pass recv to handlers. The methods on
// Hooks use the Hooks container itself as the receiver.
func (h *Hooks) As(recv any) Scope {
	return Scope{hooks: h, recv: recv}
}

// Receiver returns the receiver handlers are called with.
func (s Scope) Receiver() any {
	return s.recv
}

// Trigger runs the handlers registered under name in order and resolves
// with their results. If a handler fails, the error handlers of the
// handlers before it run in reverse order and the Future is rejected with
// the handler's error, unwrapped.
//
// A name with no handlers resolves immediately with an empty list.
func (s Scope) Trigger(ctx context.Context, name Key, args ...any) *Future[[]any] {
	if err := s.hooks.begin(); err != nil {
		return Rejected[[]any](err)
	}
	seq := s.hooks.sequence(ctx, s.recv, name, args, false)
	if len(seq.entries) == 0 {
		defer s.hooks.end()
		results, _ := seq.forward()
		return Resolved(results)
	}
	return spawn(s.hooks, seq.forward)
}

// TriggerSync runs the handlers registered under name on the calling
// goroutine and returns their results.
//
// It fails with ErrAsyncHandler, without running anything, when an
// async-only handler is registered under name. Pending outcomes from other
// handlers are not waited for: the Deferred is recorded as the result and
// the next handler runs immediately. If such a Deferred later rejects, the
// rejection is delivered to the FaultHandler as a FaultDetached.
func (s Scope) TriggerSync(ctx context.Context, name Key, args ...any) ([]any, error) {
	if err := s.hooks.begin(); err != nil {
		return nil, err
	}
	defer s.hooks.end()

	seq := s.hooks.sequence(ctx, s.recv, name, args, true)
	if err := seq.checkSync(); err != nil {
		return nil, err
	}
	return seq.forward()
}

// TriggerError runs only the error handlers registered under name, from the
// last handler in trigger order to the first, passing cause. It resolves
// once they have all run; handlers without an error handler are skipped.
func (s Scope) TriggerError(ctx context.Context, name Key, cause error, args ...any) *Future[struct{}] {
	if err := s.hooks.begin(); err != nil {
		return Rejected[struct{}](err)
	}
	seq := s.hooks.sequence(ctx, s.recv, name, args, false)
	if len(seq.entries) == 0 {
		defer s.hooks.end()
		_ = seq.rewind(cause)
		return Resolved(struct{}{})
	}
	return spawn(s.hooks, func() (struct{}, error) {
		return struct{}{}, seq.rewind(cause)
	})
}

// TriggerErrorSync is the synchronous form of TriggerError. It has the same
// restrictions as TriggerSync.
func (s Scope) TriggerErrorSync(ctx context.Context, name Key, cause error, args ...any) error {
	if err := s.hooks.begin(); err != nil {
		return err
	}
	defer s.hooks.end()

	seq := s.hooks.sequence(ctx, s.recv, name, args, true)
	if err := seq.checkSync(); err != nil {
		return err
	}
	return seq.rewind(cause)
}

// Trigger runs the handlers for name with the container as receiver.
// See Scope.Trigger.
func (h *Hooks) Trigger(ctx context.Context, name Key, args ...any) *Future[[]any] {
	return h.As(h).Trigger(ctx, name, args...)
}

// TriggerSync runs the handlers for name on the calling goroutine.
// See Scope.TriggerSync.
func (h *Hooks) TriggerSync(ctx context.Context, name Key, args ...any) ([]any, error) {
	return h.As(h).TriggerSync(ctx, name, args...)
}

// TriggerError runs only the error handlers for name.
// See Scope.TriggerError.
func (h *Hooks) TriggerError(ctx context.Context, name Key, cause error, args ...any) *Future[struct{}] {
	return h.As(h).TriggerError(ctx, name, cause, args...)
}

// TriggerErrorSync runs only the error handlers for name on the calling
// goroutine. See Scope.TriggerErrorSync.
func (h *Hooks) TriggerErrorSync(ctx context.Context, name Key, cause error, args ...any) error {
	return h.As(h).TriggerErrorSync(ctx, name, cause, args...)
}

// spawn runs fn on a new goroutine for an operation that has already
// called begin.
func spawn[T any](h *Hooks, fn func() (T, error)) *Future[T] {
	f := NewFuture[T]()
	go func() {
		defer h.end()
		f.settle(fn())
	}()
	return f
}
