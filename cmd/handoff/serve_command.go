package main

import (
	"github.com/spf13/cobra"

	"handoff/internal/hostrun"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve native messaging requests on stdin/stdout",
		Long: `Serve runs the same loop the browser starts. It is useful for driving the host
from a script; typing into it from a terminal will not produce valid frames.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHost(cmd, ctx, args)
		},
	}
}

func runHost(cmd *cobra.Command, ctx *commandContext, args []string) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	return hostrun.Run(cmd.Context(), cfg, hostrun.Options{
		Args:     args,
		LogLevel: ctx.logLevel(),
		Version:  version,
		Stdin:    cmd.InOrStdin(),
		Stdout:   cmd.OutOrStdout(),
	})
}
