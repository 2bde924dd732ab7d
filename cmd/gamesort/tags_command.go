package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"gamesort/internal/cachestore"
	"gamesort/internal/reconcile"
	"gamesort/internal/tags"
)

func newTagsCommand(ctx *commandContext) *cobra.Command {
	tagsCmd := &cobra.Command{
		Use:   "tags",
		Short: "Inspect and edit the tag translation dictionary",
	}

	tagsCmd.AddCommand(newTagsListCommand(ctx))
	tagsCmd.AddCommand(newTagsSetCommand(ctx))
	tagsCmd.AddCommand(newTagsDeleteCommand(ctx))
	tagsCmd.AddCommand(newTagsPruneCommand(ctx))
	tagsCmd.AddCommand(newTagsSyncCommand(ctx))
	tagsCmd.AddCommand(newTagsStatsCommand(ctx))

	return tagsCmd
}

func newTagsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tag mappings by priority",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, release, err := ctx.openCache(lockShared)
			if err != nil {
				return err
			}
			defer release()

			mappings, err := store.ListTags(cmd.Context())
			if err != nil {
				return err
			}
			return emit(ctx, cmd, mappings, func() error {
				printMappings(cmd.OutOrStdout(), mappings)
				return nil
			})
		},
	}
}

func printMappings(out io.Writer, mappings []tags.Mapping) {
	if len(mappings) == 0 {
		fmt.Fprintln(out, "No tag mappings")
		return
	}
	rows := make([][]string, 0, len(mappings))
	for _, m := range mappings {
		rows = append(rows, []string{m.SourceTag, m.TargetTag, strconv.Itoa(m.Priority), formatStamp(m.UpdatedAt)})
	}
	fmt.Fprintln(out, renderTable(
		[]column{left("Source"), left("Target"), right("Priority"), left("Updated")},
		rows,
	))
}

func newTagsSetCommand(ctx *commandContext) *cobra.Command {
	var priority int
	cmd := &cobra.Command{
		Use:   "set <source> <target>",
		Short: "Add or replace a tag translation",
		Long: `Add or replace a tag translation.

Existing records keep their tags until "gamesort tags sync" recomputes them.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := tags.Normalize([]string{args[0]}, 1)
			target := strings.TrimSpace(args[1])
			if len(source) == 0 || target == "" {
				return fmt.Errorf("source and target tags must not be empty")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if priority <= 0 {
				priority = cfg.Tags.DefaultPriority
			}
			store, release, err := ctx.openCache(lockShared)
			if err != nil {
				return err
			}
			defer release()

			mapping := tags.Mapping{SourceTag: source[0], TargetTag: target, Priority: priority, UpdatedAt: time.Now()}
			if err := store.UpsertTag(cmd.Context(), mapping); err != nil {
				return err
			}
			return emit(ctx, cmd, mapping, func() error {
				fmt.Fprintf(cmd.OutOrStdout(), "Mapped %s -> %s (priority %d)\n", mapping.SourceTag, mapping.TargetTag, mapping.Priority)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&priority, "priority", "p", 0, "Primary-tag priority (defaults to tags.default_priority)")
	return cmd
}

func newTagsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <source>...",
		Short: "Remove tag mappings so the tags are translated again",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, release, err := ctx.openCache(lockShared)
			if err != nil {
				return err
			}
			defer release()

			out := cmd.OutOrStdout()
			for _, source := range tags.Normalize(args, 0) {
				removed, err := store.DeleteTag(cmd.Context(), source)
				if err != nil {
					return err
				}
				if removed {
					fmt.Fprintf(out, "Deleted mapping for %s\n", source)
				} else {
					fmt.Fprintf(out, "No mapping for %s\n", source)
				}
			}
			return nil
		},
	}
}

func newTagsPruneCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prune <substring>",
		Short: "Remove every mapping whose source or target contains substring",
		Long: `Remove every mapping whose source or target contains substring.

Useful for clearing compound tags such as "ファンタジー/RPG" that a bad
translation batch split or joined.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			substr := strings.TrimSpace(args[0])
			if substr == "" {
				return fmt.Errorf("substring must not be empty")
			}
			store, release, err := ctx.openCache(lockExclusive)
			if err != nil {
				return err
			}
			defer release()

			removed, err := store.DeleteTagsContaining(cmd.Context(), substr)
			if err != nil {
				return err
			}
			return emit(ctx, cmd, map[string]int64{"removed": removed}, func() error {
				fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d mapping(s) containing %q\n", removed, substr)
				return nil
			})
		},
	}
}

func newTagsSyncCommand(ctx *commandContext) *cobra.Command {
	var platform string
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Recompute translated and primary tags of cached records from the dictionary",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			store, release, err := ctx.openCache(lockExclusive)
			if err != nil {
				return err
			}
			defer release()

			resolver := tags.NewFromConfig(cfg, store, logger)
			summary, err := reconcile.Resync(cmd.Context(), store, resolver, cachestore.Filter{Platform: platform}, logger)
			if err != nil {
				return err
			}
			return emit(ctx, cmd, summary, func() error {
				fmt.Fprintf(cmd.OutOrStdout(), "Scanned %d record(s): %d updated, %d negative skipped, %d failed\n",
					summary.Scanned, summary.Updated, summary.Negative, summary.Failed)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&platform, "platform", "", "Only records in this platform namespace")
	return cmd
}

func newTagsStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count cached records per primary tag",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, release, err := ctx.openCache(lockShared)
			if err != nil {
				return err
			}
			defer release()

			stats, err := store.Stats(cmd.Context(), time.Now(), cfg.TTL())
			if err != nil {
				return err
			}
			return emit(ctx, cmd, stats.ByPrimaryTag, func() error {
				out := cmd.OutOrStdout()
				if len(stats.ByPrimaryTag) == 0 {
					fmt.Fprintln(out, "No cached records")
					return nil
				}
				printCounts(out, "Primary Tag", stats.ByPrimaryTag)
				return nil
			})
		},
	}
}
