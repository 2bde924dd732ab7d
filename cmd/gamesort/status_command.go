package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gamesort/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check directories, the cache database, and remote services",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			if err := emit(ctx, cmd, results, func() error {
				out := cmd.OutOrStdout()
				renderStatusReport(out, "gamesort status", results, shouldColorize(out))
				return nil
			}); err != nil {
				return err
			}
			if failed := preflight.Blocking(results); len(failed) > 0 {
				return fmt.Errorf("%d required check(s) failed", len(failed))
			}
			return nil
		},
	}
}
