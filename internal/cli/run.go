package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zoobzio/clockz"

	"github.com/zoobzio/seqz"
	"github.com/zoobzio/seqz/internal/plan"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Timeout string

	// Clock overrides the clock used for handler delays and timeouts.
	Clock clockz.Clock
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <plan.yaml>",
		Short: "Run a hook plan",
		Long: `Register the handlers from a plan file and run its trigger.

Each handler call is printed as "run <name>/<id>", each cleanup as
"cleanup <name>/<id> (<cause>)". The command fails when the trigger fails.

Example:
  seqz run ./plans/save.yaml
  seqz run -vv --timeout 2s ./plans/deploy.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Timeout, "timeout", "", "per-handler timeout (e.g. 500ms)")

	return cmd
}

func runPlan(cmd *cobra.Command, opts *RunOptions, path string) error {
	p, err := plan.Load(path)
	if err != nil {
		return err
	}

	clock := opts.Clock
	if clock == nil {
		clock = clockz.RealClock
	}

	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)
	trace := plan.NewTracer(cmd.OutOrStdout())

	hookOpts := []seqz.Option{
		seqz.WithClock(clock),
		seqz.WithLogger(logger),
		seqz.WithFaultHandler(func(f seqz.Fault) {
			trace.Printf("fault: %v", f)
		}),
	}
	if opts.Timeout != "" {
		d, err := parseDuration(opts.Timeout)
		if err != nil {
			return err
		}
		hookOpts = append(hookOpts, seqz.WithTimeout(d))
	}

	hooks := seqz.New(hookOpts...)
	defer hooks.Close()

	runner := plan.NewRunner(p, hooks, clock, trace)
	if err := runner.Register(); err != nil {
		return err
	}

	logger.Info().Str("plan", p.Name).Str("mode", string(p.Mode)).Int("hooks", len(p.Hooks)).Msg("running plan")

	result, err := runner.Run(context.Background())
	if err != nil {
		trace.Printf("error: %v", err)
		return fmt.Errorf("plan %q failed: %w", p.Name, err)
	}
	if p.Mode != plan.ModeError {
		trace.Printf("result: %v", result)
	}
	trace.Printf("ok")
	return nil
}
