// Package plan loads hook plans: YAML descriptions of handlers to register
// on a seqz.Hooks container and the trigger to run against them. Plans let
// the ordering and unwind behaviour of a hook layout be tried out without
// writing Go code.
package plan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/zoobzio/clockz"
	"gopkg.in/yaml.v3"

	"github.com/zoobzio/seqz"
)

// Mode selects the trigger a plan runs.
type Mode string

const (
	ModeTrigger Mode = "trigger" // Trigger, awaited
	ModeSync    Mode = "sync"    // TriggerSync
	ModeError   Mode = "error"   // TriggerError with the plan's error
	ModeWrap    Mode = "wrap"    // TriggerWrap with the plan's body
)

// Plan is the root of a plan file.
type Plan struct {
	Name  string `yaml:"name"`
	Mode  Mode   `yaml:"mode"`
	Args  []any  `yaml:"args"`
	Error string `yaml:"error"`
	Body  *Step  `yaml:"body"`
	Hooks []Spec `yaml:"hooks"`
}

// Step describes what a simulated handler does.
type Step struct {
	Result any           `yaml:"result"`
	Fail   string        `yaml:"fail"`
	Delay  time.Duration `yaml:"delay"`
}

// Spec is one handler registration.
type Spec struct {
	ID       string `yaml:"id"`
	On       string `yaml:"on"` // defaults to the plan name
	Priority int    `yaml:"priority"`
	Async    bool   `yaml:"async"`
	Step     `yaml:",inline"`
	Cleanup  *Step `yaml:"cleanup"`
}

// Validation errors.
var (
	ErrNoName     = errors.New("plan has no name")
	ErrBadMode    = errors.New("unknown plan mode")
	ErrNoError    = errors.New("error mode requires an error message")
	ErrNoHookID   = errors.New("hook has no id")
	ErrDuplicated = errors.New("duplicate hook id")
)

// Load reads and validates the plan at path.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a plan.
func Parse(data []byte) (*Plan, error) {
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse plan: %w", err)
	}
	if p.Mode == "" {
		p.Mode = ModeTrigger
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks the plan for structural problems.
func (p *Plan) Validate() error {
	if p.Name == "" {
		return ErrNoName
	}
	switch p.Mode {
	case ModeTrigger, ModeSync, ModeWrap:
	case ModeError:
		if p.Error == "" {
			return ErrNoError
		}
	default:
		return fmt.Errorf("%w: %q", ErrBadMode, p.Mode)
	}

	seen := make(map[string]bool, len(p.Hooks))
	for i, h := range p.Hooks {
		if h.ID == "" {
			return fmt.Errorf("%w: hooks[%d]", ErrNoHookID, i)
		}
		if seen[h.ID] {
			return fmt.Errorf("%w: %q", ErrDuplicated, h.ID)
		}
		seen[h.ID] = true
	}
	return nil
}

// Tracer writes one line per simulated handler call. It is safe for use
// from handler goroutines.
type Tracer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewTracer returns a Tracer writing to out.
func NewTracer(out io.Writer) *Tracer {
	return &Tracer{out: out}
}

// Printf writes a trace line.
func (t *Tracer) Printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, format+"\n", args...)
}

// Runner registers a plan's handlers and runs its trigger.
type Runner struct {
	plan  *Plan
	hooks *seqz.Hooks
	clock clockz.Clock
	trace *Tracer
}

// NewRunner creates a Runner for p. Delays are measured on clock.
func NewRunner(p *Plan, hooks *seqz.Hooks, clock clockz.Clock, trace *Tracer) *Runner {
	return &Runner{plan: p, hooks: hooks, clock: clock, trace: trace}
}

// Register adds every handler in the plan to the container.
func (r *Runner) Register() error {
	for _, spec := range r.plan.Hooks {
		name := spec.On
		if name == "" {
			name = r.plan.Name
		}
		label := name + "/" + spec.ID

		opts := []seqz.HookOption{seqz.Priority(spec.Priority)}
		if spec.Cleanup != nil {
			opts = append(opts, seqz.OnError(r.cleanup(label, *spec.Cleanup)))
		}

		var err error
		if spec.Async {
			step := spec.Step
			_, err = r.hooks.HookAsync(name, func(ctx context.Context, recv any, args ...any) (any, error) {
				return r.perform(ctx, "run "+label, step)
			}, opts...)
		} else {
			_, err = r.hooks.Hook(name, r.handler("run "+label, spec.Step), opts...)
		}
		if err != nil {
			return fmt.Errorf("failed to register %s: %w", label, err)
		}
	}
	return nil
}

// Run executes the plan's trigger and returns its result.
func (r *Runner) Run(ctx context.Context) (any, error) {
	p := r.plan
	switch p.Mode {
	case ModeSync:
		return r.hooks.TriggerSync(ctx, p.Name, p.Args...)
	case ModeError:
		_, err := r.hooks.TriggerError(ctx, p.Name, errors.New(p.Error), p.Args...).Await(ctx)
		return nil, err
	case ModeWrap:
		var body seqz.Handler
		if p.Body != nil {
			body = r.handler("body", *p.Body)
		}
		return r.hooks.TriggerWrap(ctx, p.Name, body, p.Args...).Await(ctx)
	default:
		return r.hooks.Trigger(ctx, p.Name, p.Args...).Await(ctx)
	}
}

func (r *Runner) handler(label string, step Step) seqz.Handler {
	return seqz.Func(func(ctx context.Context, recv any, args ...any) (any, error) {
		return r.perform(ctx, label, step)
	})
}

func (r *Runner) cleanup(label string, step Step) seqz.ErrorHandler {
	return seqz.ErrorFunc(func(ctx context.Context, recv any, cause error, args ...any) (any, error) {
		return r.perform(ctx, fmt.Sprintf("cleanup %s (%v)", label, cause), step)
	})
}

// perform traces label, waits out the step's delay and reports its result.
func (r *Runner) perform(ctx context.Context, label string, step Step) (any, error) {
	r.trace.Printf("%s", label)
	if step.Delay > 0 {
		select {
		case <-r.clock.After(step.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if step.Fail != "" {
		return nil, errors.New(step.Fail)
	}
	return step.Result, nil
}
