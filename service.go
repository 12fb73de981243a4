package seqz

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/zoobzio/clockz"
)

// Option configures a Hooks service during creation.
type Option func(*config)

// config holds internal configuration for service creation.
type config struct {
	clock   clockz.Clock // Time abstraction for deterministic testing
	timeout time.Duration
	logger  zerolog.Logger
	onFault FaultHandler
}

// WithTimeout sets a timeout applied to the context of every handler and
// error handler invocation. Default is no timeout (0).
//
// The timeout is cooperative: the engine still waits for a handler's
// outcome, so handlers must observe ctx.Done() for it to take effect.
func WithTimeout(timeout time.Duration) Option {
	return func(c *config) {
		c.timeout = timeout
	}
}

// WithClock sets the clock implementation for time operations.
// Default is clockz.RealClock for production use.
func WithClock(clock clockz.Clock) Option {
	return func(c *config) {
		c.clock = clock
	}
}

// WithLogger sets the logger used for debug tracing and fault reports.
// Default is a disabled logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithFaultHandler sets the handler for faults that escape the trigger's
// return path. The default handler logs the fault and panics.
func WithFaultHandler(fn FaultHandler) Option {
	return func(c *config) {
		c.onFault = fn
	}
}

// Resource limits prevent memory exhaustion.
// These limits are enforced during hook registration.
const (
	maxHooksPerEvent = 100   // Prevents a single name from dominating memory
	maxTotalHooks    = 10000 // Prevents unlimited hook registration across all names
)

// Hooks is a hook container: it stores handlers by name and runs them when
// a name is triggered.
//
// Thread Safety:
// Registration and triggering are safe for concurrent use. Every trigger
// works on a snapshot of the handlers taken when it starts, so handlers
// registered or removed while a trigger is running do not affect it.
// Concurrent triggers of the same name run independently.
//
// Usage Pattern:
// Keep Hooks as a private field and expose it through a method:
//
//	type OrderService struct {
//	    hooks *seqz.Hooks
//	}
//
//	func (s *OrderService) Events() *seqz.Hooks {
//	    return s.hooks
//	}
type Hooks struct {
	clock   clockz.Clock
	logger  zerolog.Logger
	timeout time.Duration
	onFault FaultHandler

	mu         sync.Mutex
	sets       map[Key]*hookSet
	totalHooks int // Tracks total hook count across all names
	closed     bool
	running    sync.WaitGroup

	metrics Metrics
}

// New creates a new hook service with the specified options.
//
// Example:
//
//	hooks := seqz.New(
//	    seqz.WithTimeout(5*time.Second),
//	    seqz.WithLogger(log.Logger),
//	)
//	defer hooks.Close()
func New(opts ...Option) *Hooks {
	cfg := config{
		clock:  clockz.RealClock,
		logger: zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	h := &Hooks{
		clock:   cfg.clock,
		logger:  cfg.logger.With().Str("component", "seqz").Logger(),
		timeout: cfg.timeout,
		onFault: cfg.onFault,
		sets:    make(map[Key]*hookSet),
	}
	if h.onFault == nil {
		h.onFault = h.panicOnFault
	}
	return h
}

// Hook registers handler under name. Multiple handlers may share a name.
func (h *Hooks) Hook(name Key, handler Handler, opts ...HookOption) (Hook, error) {
	if name == "" {
		return Hook{}, ErrEmptyName
	}
	if handler == nil {
		return Hook{}, ErrNilHandler
	}

	e := entry{handler: handler}
	for _, opt := range opts {
		opt(&e)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return Hook{}, ErrServiceClosed
	}

	set := h.sets[name]
	if set != nil && len(set.entries) >= maxHooksPerEvent {
		return Hook{}, ErrTooManyHooks
	}
	if h.totalHooks >= maxTotalHooks {
		return Hook{}, ErrTooManyHooks
	}

	if set == nil {
		set = &hookSet{}
		h.sets[name] = set
	}

	e.id = h.generateID()
	set.add(e)
	h.totalHooks++

	h.logger.Debug().
		Str("hook", name).
		Int("priority", e.priority).
		Uint64("seq", set.counter-1).
		Bool("async", e.async).
		Msg("hook registered")

	id := e.id
	return Hook{
		unhook: func() error {
			return h.removeHook(name, id)
		},
	}, nil
}

// HookAsync registers fn to run on its own goroutine and declares it
// async-only (see Async).
func (h *Hooks) HookAsync(name Key, fn func(ctx context.Context, recv any, args ...any) (any, error), opts ...HookOption) (Hook, error) {
	if fn == nil {
		return Hook{}, ErrNilHandler
	}
	return h.Hook(name, AsyncFunc(fn), append(opts, Async())...)
}

// removeHook removes a hook by ID.
func (h *Hooks) removeHook(name Key, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.sets[name]
	if set == nil || !set.remove(id) {
		return ErrHookNotFound
	}
	if len(set.entries) == 0 {
		delete(h.sets, name)
	}
	h.totalHooks--
	return nil
}

// Unhook removes a specific hook using its handle.
func (h *Hooks) Unhook(hook Hook) error {
	return hook.Unhook()
}

// Clear removes all hooks registered under name and returns how many
// were removed.
func (h *Hooks) Clear(name Key) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.sets[name]
	if set == nil {
		return 0
	}
	count := len(set.entries)
	h.totalHooks -= count
	delete(h.sets, name)
	return count
}

// ClearAll removes all hooks for all names.
func (h *Hooks) ClearAll() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	count := h.totalHooks
	h.sets = make(map[Key]*hookSet)
	h.totalHooks = 0
	return count
}

// Len returns the number of handlers registered under name.
func (h *Hooks) Len(name Key) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set := h.sets[name]; set != nil {
		return len(set.entries)
	}
	return 0
}

// Metrics returns current service metrics.
func (h *Hooks) Metrics() Metrics {
	h.mu.Lock()
	registeredHooks := int64(h.totalHooks)
	h.mu.Unlock()

	return Metrics{
		TriggersStarted:   atomic.LoadInt64(&h.metrics.TriggersStarted),
		TriggersSucceeded: atomic.LoadInt64(&h.metrics.TriggersSucceeded),
		TriggersFailed:    atomic.LoadInt64(&h.metrics.TriggersFailed),
		InFlight:          atomic.LoadInt64(&h.metrics.InFlight),
		HandlersRun:       atomic.LoadInt64(&h.metrics.HandlersRun),
		CleanupsRun:       atomic.LoadInt64(&h.metrics.CleanupsRun),
		Faults:            atomic.LoadInt64(&h.metrics.Faults),
		RegisteredHooks:   registeredHooks,
	}
}

// Close stops the service from accepting registrations and triggers, then
// waits for triggers already running to finish.
//
// Close must not be called from inside a handler: it would wait for the
// trigger running that handler.
func (h *Hooks) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrAlreadyClosed
	}
	h.closed = true
	h.mu.Unlock()

	h.running.Wait()
	h.logger.Debug().Msg("service closed")
	return nil
}

// begin marks a top-level operation as running. Every successful begin
// must be paired with end.
func (h *Hooks) begin() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrServiceClosed
	}
	h.running.Add(1)
	atomic.AddInt64(&h.metrics.InFlight, 1)
	return nil
}

func (h *Hooks) end() {
	atomic.AddInt64(&h.metrics.InFlight, -1)
	h.running.Done()
}

// snapshot returns the sorted handlers for name, or nil if none exist.
func (h *Hooks) snapshot(name Key) []entry {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.sets[name]
	if set == nil {
		return nil
	}
	return set.snapshot()
}

// fault counts, logs and delivers f to the fault handler.
func (h *Hooks) fault(f Fault) {
	atomic.AddInt64(&h.metrics.Faults, 1)
	h.logger.Error().
		Err(f.Err).
		Str("hook", f.Name).
		Stringer("kind", f.Kind).
		Msg("fault")
	h.onFault(f)
}

func (h *Hooks) panicOnFault(f Fault) {
	panic(f)
}

// generateID creates a random unique identifier for hooks.
func (h *Hooks) generateID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp-based ID if random fails
		return fmt.Sprintf("%d", h.clock.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}
