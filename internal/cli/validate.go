package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/zoobzio/seqz/internal/plan"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <plan.yaml>...",
		Short: "Check hook plans without running them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(cmd.ErrOrStderr(), rootOpts.Verbose)
			for _, path := range args {
				p, err := plan.Load(path)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				logger.Debug().Str("path", path).Str("plan", p.Name).Msg("plan valid")
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%s, %d hooks)\n", path, p.Mode, len(p.Hooks))
			}
			return nil
		},
	}
}

func parseDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid timeout %q: must not be negative", s)
	}
	return d, nil
}
