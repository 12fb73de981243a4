package seqz

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

// recorder collects labels in call order across goroutines.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, label)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}

// tag returns a synchronous handler producing label followed by the first
// trigger argument.
func tag(r *recorder, label string) Handler {
	return func(ctx context.Context, recv any, args ...any) Outcome {
		r.add(label)
		return Value(fmt.Sprint(label, first(args)))
	}
}

// asyncTag is tag with the result delivered through a Future.
func asyncTag(r *recorder, label string) Handler {
	return func(ctx context.Context, recv any, args ...any) Outcome {
		return Later(Go(ctx, func(ctx context.Context) (any, error) {
			time.Sleep(time.Millisecond)
			r.add(label)
			return fmt.Sprint(label, first(args)), nil
		}))
	}
}

// failWith returns a handler that records label and fails with err.
func failWith(r *recorder, label string, err error) Handler {
	return func(ctx context.Context, recv any, args ...any) Outcome {
		r.add(label)
		return Fail(err)
	}
}

// cleanup returns an error handler recording "undo " + label.
func cleanup(r *recorder, label string) ErrorHandler {
	return func(ctx context.Context, recv any, cause error, args ...any) Outcome {
		r.add("undo " + label)
		return Value(nil)
	}
}

// asyncCleanup is cleanup completing through a Future.
func asyncCleanup(r *recorder, label string) ErrorHandler {
	return AsyncErrorFunc(func(ctx context.Context, recv any, cause error, args ...any) (any, error) {
		time.Sleep(time.Millisecond)
		r.add("undo " + label)
		return nil, nil
	})
}

func first(args []any) any {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// faultSink collects faults instead of panicking.
type faultSink struct {
	mu     sync.Mutex
	faults []Fault
	seen   chan struct{}
}

func newFaultSink() *faultSink {
	return &faultSink{seen: make(chan struct{}, 16)}
}

func (f *faultSink) handle(fault Fault) {
	f.mu.Lock()
	f.faults = append(f.faults, fault)
	f.mu.Unlock()
	f.seen <- struct{}{}
}

func (f *faultSink) list() []Fault {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Fault, len(f.faults))
	copy(out, f.faults)
	return out
}

func (f *faultSink) wait(t *testing.T) {
	t.Helper()
	select {
	case <-f.seen:
	case <-time.After(time.Second):
		t.Fatal("fault was not reported within timeout")
	}
}

func await[T any](t *testing.T, f *Future[T]) (T, error) {
	t.Helper()
	select {
	case <-f.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("future did not settle within timeout")
	}
	return f.Wait()
}
