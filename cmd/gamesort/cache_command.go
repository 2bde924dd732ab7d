package main

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"gamesort/internal/cachestore"
	"gamesort/internal/config"
	"gamesort/internal/games"
	"gamesort/internal/keys"
)

const stampLayout = "2006-01-02 15:04"

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage cached game records",
	}

	cacheCmd.AddCommand(newCacheListCommand(ctx))
	cacheCmd.AddCommand(newCacheShowCommand(ctx))
	cacheCmd.AddCommand(newCacheSearchCommand(ctx))
	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheDeleteCommand(ctx))
	cacheCmd.AddCommand(newCachePurgeCommand(ctx))
	cacheCmd.AddCommand(newCacheExportCommand(ctx))
	cacheCmd.AddCommand(newCacheBackupCommand(ctx))

	return cacheCmd
}

type filterFlags struct {
	platform  string
	negatives bool
	stale     bool
	tag       string
	limit     int
}

func (f *filterFlags) register(cmd *cobra.Command, withLimit bool) {
	cmd.Flags().StringVar(&f.platform, "platform", "", "Only records in this platform namespace")
	cmd.Flags().BoolVar(&f.negatives, "negatives", false, "Only negative (not found) entries")
	cmd.Flags().BoolVar(&f.stale, "stale", false, "Only records older than the cache TTL")
	cmd.Flags().StringVar(&f.tag, "tag", "", "Only records with this primary tag")
	if withLimit {
		cmd.Flags().IntVarP(&f.limit, "limit", "n", 0, "Maximum number of records (0 for all)")
	}
}

func (f *filterFlags) filter(ttl time.Duration) cachestore.Filter {
	filter := cachestore.Filter{
		Platform:      f.platform,
		NegativesOnly: f.negatives,
		PrimaryTag:    f.tag,
		Limit:         f.limit,
	}
	if f.stale {
		filter.StaleBefore = time.Now().Add(-ttl)
	}
	return filter
}

func (f *filterFlags) empty() bool {
	return strings.TrimSpace(f.platform) == "" && !f.negatives && !f.stale && strings.TrimSpace(f.tag) == ""
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	var flags filterFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached records",
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

			entries, err := store.List(cmd.Context(), flags.filter(cfg.TTL()))
			if err != nil {
				return err
			}
			return emit(ctx, cmd, entries, func() error {
				printEntries(cmd.OutOrStdout(), entries)
				return nil
			})
		},
	}
	flags.register(cmd, true)
	return cmd
}

func printEntries(out io.Writer, entries []cachestore.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "No cached records")
		return
	}
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, []string{
			entry.Platform,
			entry.Identifier,
			entryTitle(entry.Record),
			entry.Record.PrimaryTag,
			formatStamp(entry.Record.FetchedAt),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]column{left("Platform"), left("ID"), left("Title"), left("Primary Tag"), left("Fetched")},
		rows,
	))
	fmt.Fprintf(out, "%d record(s)\n", len(entries))
}

func entryTitle(rec games.GameRecord) string {
	if rec.IsNegative() {
		return "(" + string(rec.ErrorKind) + ")"
	}
	return rec.DisplayTitle()
}

func formatStamp(ts time.Time) string {
	if ts.IsZero() {
		return "unknown"
	}
	return ts.Local().Format(stampLayout)
}

// lookupKey classifies an argument the same way reconcile does, so "RJ-01234567.zip"
// and "rj01234567" name the same record.
func lookupKey(ctx *commandContext, raw, platform string) (keys.ItemKey, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return keys.ItemKey{}, err
	}
	key := keys.Classifier{TitlePlatform: cfg.Cache.TitlePlatform}.Classify(raw, platform)
	if key.ID() == "" {
		return keys.ItemKey{}, fmt.Errorf("%q does not name a record", raw)
	}
	return key, nil
}

func newCacheShowCommand(ctx *commandContext) *cobra.Command {
	var platform string
	cmd := &cobra.Command{
		Use:   "show <code-or-title>",
		Short: "Show one cached record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			key, err := lookupKey(ctx, args[0], platform)
			if err != nil {
				return err
			}
			store, release, err := ctx.openCache(lockShared)
			if err != nil {
				return err
			}
			defer release()

			entry, err := store.Find(cmd.Context(), key.Platform, key.ID())
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return fmt.Errorf("no cached record for %s", key)
				}
				return err
			}
			return emit(ctx, cmd, entry, func() error {
				printEntry(cmd.OutOrStdout(), entry, entry.Record.Fresh(time.Now(), cfg.TTL()))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&platform, "platform", "", "Platform namespace (inferred from the input by default)")
	return cmd
}

func printEntry(out io.Writer, entry cachestore.Entry, fresh bool) {
	rec := entry.Record
	line := func(label, value string) {
		if strings.TrimSpace(value) == "" {
			value = "-"
		}
		fmt.Fprintf(out, "%-14s %s\n", label+":", value)
	}
	line("Key", entry.Platform+"/"+entry.Identifier)
	if rec.IsNegative() {
		line("Status", string(rec.ErrorKind))
	}
	line("Title", rec.TitleSource)
	if rec.TitleTarget != nil {
		line("Translated", *rec.TitleTarget)
	}
	line("Primary tag", rec.PrimaryTag)
	line("Tags", strings.Join(rec.TagsSource, ", "))
	line("Tags (target)", strings.Join(rec.TagsTarget, ", "))
	line("Maker", rec.Maker)
	line("Released", rec.ReleaseDate)
	if rec.Rating > 0 {
		line("Rating", strconv.FormatFloat(rec.Rating, 'f', 2, 64))
	}
	line("Thumbnail", rec.ThumbnailURL)
	line("Link", rec.Link)
	line("Fetched", formatStamp(rec.FetchedAt))
	line("Fresh", yesNo(fresh))
}

func newCacheSearchCommand(ctx *commandContext) *cobra.Command {
	var (
		byTag bool
		limit int
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search cached records by title similarity or tag",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			store, release, err := ctx.openCache(lockShared)
			if err != nil {
				return err
			}
			defer release()

			if byTag {
				entries, err := store.SearchByTag(cmd.Context(), query, limit)
				if err != nil {
					return err
				}
				return emit(ctx, cmd, entries, func() error {
					printEntries(cmd.OutOrStdout(), entries)
					return nil
				})
			}

			matches, err := store.SearchTitle(cmd.Context(), query, limit)
			if err != nil {
				return err
			}
			return emit(ctx, cmd, matches, func() error {
				printMatches(cmd.OutOrStdout(), matches)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&byTag, "tag", false, "Match source, target, or primary tags instead of titles")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of results")
	return cmd
}

func printMatches(out io.Writer, matches []cachestore.Match) {
	if len(matches) == 0 {
		fmt.Fprintln(out, "No matching records")
		return
	}
	rows := make([][]string, 0, len(matches))
	for _, m := range matches {
		rows = append(rows, []string{
			strconv.FormatFloat(m.Score, 'f', 2, 64),
			m.Platform + "/" + m.Identifier,
			entryTitle(m.Record),
			m.Record.PrimaryTag,
		})
	}
	fmt.Fprintln(out, renderTable(
		[]column{right("Score"), left("Key"), left("Title"), left("Primary Tag")},
		rows,
	))
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache totals by platform, primary tag, and failure kind",
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
			return emit(ctx, cmd, stats, func() error {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Records:      %d\n", stats.Total)
				fmt.Fprintf(out, "Negatives:    %d\n", stats.Negatives)
				fmt.Fprintf(out, "Stale:        %d (ttl %s)\n", stats.Stale, cfg.TTL())
				fmt.Fprintf(out, "Tag mappings: %d\n", stats.TagMappings)
				printCounts(out, "Platform", stats.ByPlatform)
				printCounts(out, "Failure", stats.ByErrorKind)
				return nil
			})
		},
	}
}

// printCounts renders a count map as a table, largest first.
func printCounts(out io.Writer, label string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	names := slices.SortedFunc(maps.Keys(counts), func(a, b string) int {
		if counts[a] != counts[b] {
			return counts[b] - counts[a]
		}
		return strings.Compare(a, b)
	})
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		rows = append(rows, []string{name, strconv.Itoa(counts[name])})
	}
	fmt.Fprintln(out, renderTable([]column{left(label), right("Records")}, rows))
}

func newCacheDeleteCommand(ctx *commandContext) *cobra.Command {
	var platform string
	cmd := &cobra.Command{
		Use:   "delete <code-or-title>...",
		Short: "Delete cached records so the next reconcile fetches them again",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, release, err := ctx.openCache(lockShared)
			if err != nil {
				return err
			}
			defer release()

			out := cmd.OutOrStdout()
			for _, arg := range args {
				key, err := lookupKey(ctx, arg, platform)
				if err != nil {
					return err
				}
				removed, err := store.Delete(cmd.Context(), key.Platform, key.ID())
				if err != nil {
					return err
				}
				if removed {
					fmt.Fprintf(out, "Deleted %s\n", key)
				} else {
					fmt.Fprintf(out, "No cached record for %s\n", key)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&platform, "platform", "", "Platform namespace (inferred from the input by default)")
	return cmd
}

func newCachePurgeCommand(ctx *commandContext) *cobra.Command {
	var (
		flags filterFlags
		all   bool
	)
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete many cached records at once",
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == !flags.empty() {
				return errors.New("pass --all or at least one of --platform, --negatives, --stale, --tag (not both)")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, release, err := ctx.openCache(lockExclusive)
			if err != nil {
				return err
			}
			defer release()

			removed, err := store.Purge(cmd.Context(), flags.filter(cfg.TTL()))
			if err != nil {
				return err
			}
			return emit(ctx, cmd, map[string]int64{"removed": removed}, func() error {
				fmt.Fprintf(cmd.OutOrStdout(), "Purged %d record(s)\n", removed)
				return nil
			})
		},
	}
	flags.register(cmd, false)
	cmd.Flags().BoolVar(&all, "all", false, "Delete every cached record")
	return cmd
}

func newCacheExportCommand(ctx *commandContext) *cobra.Command {
	var flags filterFlags
	cmd := &cobra.Command{
		Use:   "export <dir>",
		Short: "Write cached records as JSON documents under platform/<xx>/<CODE>.json",
		Args:  cobra.ExactArgs(1),
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

			written, err := store.Export(cmd.Context(), args[0], flags.filter(cfg.TTL()))
			if err != nil {
				return err
			}
			return emit(ctx, cmd, map[string]any{"written": written, "dir": args[0]}, func() error {
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d record(s) to %s\n", written, args[0])
				return nil
			})
		},
	}
	flags.register(cmd, true)
	return cmd
}

func newCacheBackupCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "backup <file>",
		Short: "Copy the cache database to a file with checksum verification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dest, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			store, release, err := ctx.openCache(lockExclusive)
			if err != nil {
				return err
			}
			defer release()

			if err := store.Backup(cmd.Context(), dest); err != nil {
				return err
			}
			return emit(ctx, cmd, map[string]any{"backup": dest}, func() error {
				fmt.Fprintf(cmd.OutOrStdout(), "Backed up cache to %s\n", dest)
				return nil
			})
		},
	}
}
