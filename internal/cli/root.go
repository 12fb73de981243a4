// Package cli implements the seqz command line: it loads hook plans and
// runs them against a fresh hook container, printing a trace of every
// handler and cleanup call.
package cli

import (
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose int
}

// NewRootCommand creates the root command for the seqz CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "seqz",
		Short: "Run named-hook plans",
		Long: `seqz registers the handlers described in a plan file and triggers them,
printing the order in which handlers and their cleanups run.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().CountVarP(&opts.Verbose, "verbose", "v", "increase log verbosity (-v, -vv, -vvv)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))

	return cmd
}

// newLogger returns a console logger on out for the given verbosity.
func newLogger(out io.Writer, verbosity int) zerolog.Logger {
	level := zerolog.WarnLevel
	switch verbosity {
	case 0:
	case 1:
		level = zerolog.InfoLevel
	case 2:
		level = zerolog.DebugLevel
	default:
		level = zerolog.TraceLevel
	}

	console := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.Kitchen,
	}
	return zerolog.New(console).Level(level).With().Timestamp().Logger()
}
