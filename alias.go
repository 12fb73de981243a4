package seqz

import "context"

// Stages registers handlers for the stages TriggerWrap runs. It forwards
// to a Hooks container, adding the stage prefix to the name.
type Stages struct {
	hooks *Hooks
}

// NewStages returns a Stages view over h.
func NewStages(h *Hooks) Stages {
	return Stages{hooks: h}
}

// Pre registers handler to run before name.
func (s Stages) Pre(name Key, handler Handler, opts ...HookOption) (Hook, error) {
	return s.hooks.Hook(PreName(name), handler, opts...)
}

// Post registers handler to run after name.
func (s Stages) Post(name Key, handler Handler, opts ...HookOption) (Hook, error) {
	return s.hooks.Hook(PostName(name), handler, opts...)
}

// Wrap runs the stages of name around body. See Hooks.TriggerWrap.
func (s Stages) Wrap(ctx context.Context, name Key, body Handler, args ...any) *Future[any] {
	return s.hooks.TriggerWrap(ctx, name, body, args...)
}

// Emitter exposes a Hooks container with event-style names: On registers,
// Emit triggers synchronously.
type Emitter struct {
	hooks *Hooks
}

// NewEmitter returns an Emitter view over h.
func NewEmitter(h *Hooks) Emitter {
	return Emitter{hooks: h}
}

// On registers handler under name.
func (e Emitter) On(name Key, handler Handler, opts ...HookOption) (Hook, error) {
	return e.hooks.Hook(name, handler, opts...)
}

// Emit runs the handlers for name synchronously. See Hooks.TriggerSync.
func (e Emitter) Emit(ctx context.Context, name Key, args ...any) ([]any, error) {
	return e.hooks.TriggerSync(ctx, name, args...)
}
