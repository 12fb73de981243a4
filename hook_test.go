package seqz

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	TestUnhookEvent     Key = "test.unhook"
	TestClearEvent1     Key = "test.clear.event1"
	TestClearEvent2     Key = "test.clear.event2"
	TestEventLimitEvent Key = "test.limits.event"
)

func TestHookUnhook(t *testing.T) {
	hooks := New()
	defer hooks.Close()

	rec := &recorder{}
	hook, err := hooks.Hook(TestUnhookEvent, tag(rec, "removed"))
	require.NoError(t, err)
	_, err = hooks.Hook(TestUnhookEvent, tag(rec, "kept"))
	require.NoError(t, err)

	require.NoError(t, hook.Unhook())
	assert.ErrorIs(t, hook.Unhook(), ErrAlreadyUnhooked)

	results, err := hooks.TriggerSync(context.Background(), TestUnhookEvent)
	require.NoError(t, err)
	assert.Equal(t, []any{"kept"}, results)
	assert.Equal(t, []string{"kept"}, rec.list())
}

func TestUnhookLastHandlerRemovesSet(t *testing.T) {
	hooks := New()
	defer hooks.Close()

	hook, err := hooks.Hook(TestUnhookEvent, tag(&recorder{}, "only"))
	require.NoError(t, err)
	require.NoError(t, hooks.Unhook(hook))
	assert.Equal(t, 0, hooks.Len(TestUnhookEvent))

	results, err := await(t, hooks.Trigger(context.Background(), TestUnhookEvent))
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestHookClear(t *testing.T) {
	hooks := New()
	defer hooks.Close()

	rec := &recorder{}
	hook1, err := hooks.Hook(TestClearEvent1, tag(rec, "1"))
	require.NoError(t, err)
	hook2, err := hooks.Hook(TestClearEvent1, tag(rec, "2"))
	require.NoError(t, err)
	_, err = hooks.Hook(TestClearEvent2, tag(rec, "3"))
	require.NoError(t, err)

	assert.Equal(t, 2, hooks.Clear(TestClearEvent1))
	assert.Equal(t, 0, hooks.Clear("test.clear.nonexistent"))

	assert.ErrorIs(t, hook1.Unhook(), ErrHookNotFound)
	assert.ErrorIs(t, hook2.Unhook(), ErrHookNotFound)
	assert.Equal(t, 1, hooks.Len(TestClearEvent2))
}

func TestHookClearAll(t *testing.T) {
	hooks := New()
	defer hooks.Close()

	var handles []Hook
	for i := 0; i < 3; i++ {
		hook, err := hooks.Hook(Key(fmt.Sprintf("test.clearall.event%d", i)), tag(&recorder{}, "x"))
		require.NoError(t, err)
		handles = append(handles, hook)
	}

	assert.Equal(t, 3, hooks.ClearAll())
	for _, hook := range handles {
		assert.ErrorIs(t, hook.Unhook(), ErrHookNotFound)
	}
	assert.Equal(t, int64(0), hooks.Metrics().RegisteredHooks)
}

func TestUnhookAfterClearDoesNotRemoveNewHandler(t *testing.T) {
	hooks := New()
	defer hooks.Close()

	old, err := hooks.Hook(TestClearEvent1, tag(&recorder{}, "old"))
	require.NoError(t, err)
	hooks.Clear(TestClearEvent1)

	_, err = hooks.Hook(TestClearEvent1, tag(&recorder{}, "new"))
	require.NoError(t, err)

	assert.ErrorIs(t, old.Unhook(), ErrHookNotFound)
	assert.Equal(t, 1, hooks.Len(TestClearEvent1))
}

func TestResourceLimits(t *testing.T) {
	hooks := New()
	defer hooks.Close()

	noop := Func(func(ctx context.Context, recv any, args ...any) (any, error) { return nil, nil })

	for i := 0; i < maxHooksPerEvent+10; i++ {
		_, err := hooks.Hook(TestEventLimitEvent, noop)
		if i < maxHooksPerEvent {
			assert.NoError(t, err)
		} else {
			assert.ErrorIs(t, err, ErrTooManyHooks)
		}
	}

	total := maxHooksPerEvent
	for event := 1; total < maxTotalHooks; event++ {
		for i := 0; i < maxHooksPerEvent && total < maxTotalHooks; i++ {
			_, err := hooks.Hook(Key(fmt.Sprintf("%s-%d", TestEventLimitEvent, event)), noop)
			require.NoError(t, err)
			total++
		}
	}

	_, err := hooks.Hook("test.limits.overflow", noop)
	assert.ErrorIs(t, err, ErrTooManyHooks)
	assert.Equal(t, int64(maxTotalHooks), hooks.Metrics().RegisteredHooks)
}
