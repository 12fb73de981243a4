package seqz

import "context"

// Stage name prefixes used by TriggerWrap.
const (
	PrePrefix  = "pre-"
	PostPrefix = "post-"
)

// PreName returns the name of the stage that runs before name.
func PreName(name Key) Key { return PrePrefix + name }

// PostName returns the name of the stage that runs after name.
func PostName(name Key) Key { return PostPrefix + name }

// TriggerWrap runs PreName(name), name, body and PostName(name) in that
// order and resolves with the body's result. A nil body resolves with the
// results of the post stage instead.
//
// When a stage fails, its own trigger unwinds the handlers that ran inside
// it. Every earlier stage is then unwound in full, most recent first, and
// the Future is rejected with the original error. A body failure counts as
// a failure inside stage name: name and then PreName(name) are unwound.
func (s Scope) TriggerWrap(ctx context.Context, name Key, body Handler, args ...any) *Future[any] {
	if err := s.hooks.begin(); err != nil {
		return Rejected[any](err)
	}
	return spawn(s.hooks, func() (any, error) {
		return s.wrap(ctx, name, body, args, false)
	})
}

// TriggerWrapSync is the synchronous form of TriggerWrap. It fails with
// ErrAsyncHandler before running anything if any of the three stages has
// an async-only handler.
func (s Scope) TriggerWrapSync(ctx context.Context, name Key, body Handler, args ...any) (any, error) {
	if err := s.hooks.begin(); err != nil {
		return nil, err
	}
	defer s.hooks.end()

	for _, stage := range []Key{PreName(name), name, PostName(name)} {
		if err := s.hooks.sequence(ctx, s.recv, stage, nil, true).checkSync(); err != nil {
			return nil, err
		}
	}
	return s.wrap(ctx, name, body, args, true)
}

func (s Scope) wrap(ctx context.Context, name Key, body Handler, args []any, detached bool) (any, error) {
	var ran []*sequence
	// A stage whose own unwind failed has already reported the fault and
	// aborted cleanup for the whole wrap.
	rollback := func(stage *sequence, cause error) error {
		if stage.unwindFailed {
			return cause
		}
		for i := len(ran) - 1; i >= 0; i-- {
			if err := ran[i].rewind(cause); err != nil {
				return err
			}
		}
		return cause
	}

	pre := s.hooks.sequence(ctx, s.recv, PreName(name), args, detached)
	if _, err := pre.forward(); err != nil {
		return nil, err
	}
	ran = append(ran, pre)

	main := s.hooks.sequence(ctx, s.recv, name, args, detached)
	if _, err := main.forward(); err != nil {
		return nil, rollback(main, err)
	}
	ran = append(ran, main)

	var result any
	if body != nil {
		v, err := main.invoke(func(ctx context.Context) Outcome {
			return body(ctx, s.recv, args...)
		})
		if err != nil {
			return nil, rollback(main, err)
		}
		result = v
	}

	post := s.hooks.sequence(ctx, s.recv, PostName(name), args, detached)
	results, err := post.forward()
	if err != nil {
		return nil, rollback(post, err)
	}

	if body == nil {
		return results, nil
	}
	return result, nil
}

// TriggerWrap runs the pre, main and post stages of name around body with
// the container as receiver. See Scope.TriggerWrap.
func (h *Hooks) TriggerWrap(ctx context.Context, name Key, body Handler, args ...any) *Future[any] {
	return h.As(h).TriggerWrap(ctx, name, body, args...)
}

// TriggerWrapSync is the synchronous form of TriggerWrap.
// See Scope.TriggerWrapSync.
func (h *Hooks) TriggerWrapSync(ctx context.Context, name Key, body Handler, args ...any) (any, error) {
	return h.As(h).TriggerWrapSync(ctx, name, body, args...)
}
