package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"gamesort/internal/batch"
	"gamesort/internal/cachestore"
	"gamesort/internal/config"
	"gamesort/internal/keys"
	"gamesort/internal/logging"
	"gamesort/internal/notifications"
	"gamesort/internal/preflight"
	"gamesort/internal/reconcile"
	"gamesort/internal/scraper"
	"gamesort/internal/scraper/dlsite"
	"gamesort/internal/tags"
	"gamesort/internal/translator"
)

func newReconcileCommand(ctx *commandContext) *cobra.Command {
	var (
		inputFile    string
		workers      int
		timeout      time.Duration
		runPreflight bool
		progress     bool
	)

	cmd := &cobra.Command{
		Use:   "reconcile [input...]",
		Short: "Resolve archive names, product codes, or titles into game records",
		Long: `Resolve each input into a game record.

Inputs containing a DLsite product code (RJ01234567, rj-01234567.zip, ...) are
looked up in the cache and scraped on a miss. Anything else is recorded as a
title. Results keep the order of the inputs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := collectInputs(cmd.InOrStdin(), args, inputFile)
			if err != nil {
				return err
			}
			if len(inputs) == 0 {
				return errors.New("no inputs given (pass them as arguments or with --file)")
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			if runPreflight {
				if failed := preflight.Blocking(preflight.RunAll(cmd.Context(), cfg)); len(failed) > 0 {
					names := make([]string, 0, len(failed))
					for _, f := range failed {
						names = append(names, fmt.Sprintf("%s: %s", f.Name, f.Detail))
					}
					return fmt.Errorf("preflight failed: %s", strings.Join(names, "; "))
				}
			}

			store, release, err := ctx.openCache(lockShared)
			if err != nil {
				return err
			}
			defer release()

			pipeline, err := buildPipeline(cfg, store, logger)
			if err != nil {
				return err
			}

			coordinator := batch.NewFromConfig(cfg, pipeline, logger, func(opts *batch.Options) {
				if cmd.Flags().Changed("workers") {
					opts.Workers = workers
				}
				if cmd.Flags().Changed("timeout") {
					opts.Timeout = timeout
				}
				if progress && !ctx.jsonOutput() {
					errOut := cmd.ErrOrStderr()
					opts.Progress = func(done, total int, result batch.Result) {
						fmt.Fprintf(errOut, "[%d/%d] %s %s\n", done, total, resultStatus(result), result.Input)
					}
				}
			})

			started := time.Now()
			resp := coordinator.ReconcileAll(cmd.Context(), inputs)
			notifyBatch(cmd.Context(), notifications.NewService(cfg.Notifications), resp, time.Since(started), logger)
			return emit(ctx, cmd, resp, func() error {
				printBatchResponse(cmd.OutOrStdout(), resp)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&inputFile, "file", "f", "", "Read inputs from a file, one per line (- for stdin)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Concurrent items per chunk (overrides batch.workers)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Batch deadline (overrides batch.timeout_seconds, 0 disables)")
	cmd.Flags().BoolVar(&runPreflight, "preflight", false, "Run readiness checks before starting")
	cmd.Flags().BoolVar(&progress, "progress", false, "Print per-item progress to stderr")
	return cmd
}

func notifyBatch(ctx context.Context, notifier notifications.Service, resp batch.Response, elapsed time.Duration, logger *slog.Logger) {
	summary := resp.Summary()
	report := notifications.BatchReport{
		TaskID:    resp.TaskID,
		Total:     summary.Total,
		Succeeded: summary.Succeeded,
		Negative:  summary.Negative,
		Failed:    summary.Failed,
		TimedOut:  summary.TimedOut,
		Duration:  elapsed,
	}
	// The batch context may already be past its deadline.
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()
	if err := notifier.NotifyBatchCompleted(notifyCtx, report); err != nil {
		logging.WarnWithContext(logger, "batch notification failed", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			logging.String(logging.FieldImpact, "batch results are unaffected"),
		)
	}
}

// buildPipeline wires the scraper, translator, and tag resolver over store.
func buildPipeline(cfg *config.Config, store *cachestore.Store, logger *slog.Logger) (*reconcile.Pipeline, error) {
	client, err := dlsite.NewFromConfig(cfg.Scraper, logger)
	if err != nil {
		return nil, fmt.Errorf("init scraper: %w", err)
	}
	return reconcile.New(reconcile.Deps{
		Cache:      store,
		Scraper:    scraper.NewRetrying(client, dlsite.RetryPolicy(cfg.Scraper), logger),
		Translator: translator.NewFromConfig(cfg, logger),
		Tags:       tags.NewFromConfig(cfg, store, logger),
		Classifier: keys.Classifier{TitlePlatform: cfg.Cache.TitlePlatform},
		TTL:        cfg.TTL(),
		Logger:     logger,
	})
}

// collectInputs merges positional inputs with lines from file. Blank lines
// and lines starting with # are skipped.
func collectInputs(stdin io.Reader, args []string, file string) ([]string, error) {
	inputs := append([]string(nil), args...)
	file = strings.TrimSpace(file)
	if file == "" {
		return inputs, nil
	}

	var reader io.Reader
	if file == "-" {
		reader = stdin
	} else {
		expanded, err := config.ExpandPath(file)
		if err != nil {
			return nil, err
		}
		f, err := os.Open(expanded)
		if err != nil {
			return nil, fmt.Errorf("open input file: %w", err)
		}
		defer f.Close()
		reader = f
	}

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		inputs = append(inputs, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read inputs: %w", err)
	}
	return inputs, nil
}

func resultStatus(result batch.Result) string {
	switch {
	case result.Err != nil:
		return string(result.Err.Kind)
	case result.Record != nil && result.Record.IsNegative():
		return "not_found"
	default:
		return "ok"
	}
}

func printBatchResponse(out io.Writer, resp batch.Response) {
	rows := make([][]string, 0, len(resp.Results))
	for _, res := range resp.Results {
		row := []string{strconv.Itoa(res.Index + 1), res.Input, resultStatus(res), "", "", ""}
		switch {
		case res.Err != nil:
			row[3] = res.Err.Message
		case res.Record != nil:
			row[3] = res.Record.DisplayTitle()
			row[4] = res.Record.PrimaryTag
			row[5] = strings.Join(res.Record.TagsTarget, ", ")
		}
		rows = append(rows, row)
	}
	fmt.Fprintln(out, renderTable(
		[]column{right("#"), left("Input"), left("Status"), left("Title"), left("Primary Tag"), left("Tags")},
		rows,
	))

	summary := resp.Summary()
	fmt.Fprintf(out, "Task %s: %d ok, %d not found, %d failed, %d timed out\n",
		resp.TaskID, summary.Succeeded, summary.Negative, summary.Failed, summary.TimedOut)
}
