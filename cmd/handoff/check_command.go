package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"handoff/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var skipManifests bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify directories, history and browser registration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			results := preflight.RunAll(cmd.Context(), cfg)
			if !skipManifests {
				home, err := os.UserHomeDir()
				if err != nil {
					return fmt.Errorf("resolve home directory: %w", err)
				}
				results = append(results, preflight.CheckManifests(cfg.Manifest, runtime.GOOS, home)...)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				kind := statusOK
				if !r.Passed {
					kind = statusError
				}
				rows = append(rows, []string{r.Name, statusLabel(kind, colorize), r.Detail})
			}
			fmt.Fprintln(out, renderTable([]column{{title: "Check"}, {title: "Status"}, {title: "Detail", wrap: true}}, rows))

			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d of %d checks failed", len(failed), len(results))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipManifests, "skip-manifests", false, "Do not inspect installed browser manifests")
	return cmd
}
