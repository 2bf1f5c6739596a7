// Package cli builds the command-line front ends of the converters.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/dgallion1/docbridge/internal/archive"
	"github.com/spf13/cobra"
)

// Stdout is the output path that selects standard output.
const Stdout = "-"

// common holds the flags every tool shares.
type common struct {
	output  string
	verbose bool
}

func (c *common) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if c.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// newRoot returns a single-input command. Usage errors print usage;
// failures inside run do not.
func newRoot(use, short, long, version, defaultOutput string, c *common, run func(cmd *cobra.Command, input string) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:           use,
		Short:         short,
		Long:          long,
		Version:       version,
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return run(cmd, args[0])
		},
	}
	cmd.Flags().StringVarP(&c.output, "output", "o", defaultOutput, "output path ('-' for stdout)")
	cmd.Flags().BoolVar(&c.verbose, "verbose", false, "log progress to stderr")
	return cmd
}

// writeOutput writes data to path, or to the command's stdout for "-".
// Files only appear once fully written.
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == Stdout {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	out, err := archive.CreateAtomic(path)
	if err != nil {
		return err
	}
	defer out.Abort()
	if _, err := out.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return out.Commit()
}

// Execute runs cmd and returns the process exit status.
func Execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return 1
	}
	return 0
}
