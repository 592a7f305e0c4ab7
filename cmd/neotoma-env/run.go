// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/neotoma-env/internal/envindex"
	"github.com/pdiddy/neotoma-env/internal/history"
	"github.com/pdiddy/neotoma-env/internal/neotoma"
	"github.com/pdiddy/neotoma-env/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Collect dataset ids, fetch their environments, and update the index",
	Long: `Run pages through the dataset listing, fetches detail for every id the
index does not already hold, merges the new entries into the index file, and
prints per-environment counts and overall progress.

An interrupted run leaves the index file untouched.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		bindFlags(cmd.Flags(), collectFlagKeys)
		bindFlags(cmd.Flags(), map[string]string{"build.detail_delay": "detail-delay"})
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		cfg.HTTP.UserAgent = loadedSecrets.UserAgent(cfg.HTTP.UserAgent)
		if noHistory, _ := cmd.Flags().GetBool("no-history"); noHistory {
			cfg.History.Path = ""
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		_, err = runIndex(ctx, cfg, cmd.OutOrStdout(), logger)
		return err
	},
}

// collectFlagKeys binds collection flags shared by run and collect.
var collectFlagKeys = map[string]string{
	"collect.limit":        "limit",
	"collect.batch_size":   "batch-size",
	"collect.max_records":  "max-records",
	"collect.page_delay":   "page-delay",
	"collect.skip_indexed": "skip-indexed",
}

func addCollectFlags(cmd *cobra.Command) {
	d := types.Defaults().Collect
	cmd.Flags().Int("limit", d.Limit, "maximum number of dataset ids to collect")
	cmd.Flags().Int("batch-size", d.BatchSize, "page size for the dataset listing")
	cmd.Flags().Int("max-records", d.MaxRecords, "stop paging once the offset reaches this value")
	cmd.Flags().Duration("page-delay", d.PageDelay, "pause after each listing page")
	cmd.Flags().Bool("skip-indexed", d.SkipIndexed, "leave ids already in the index out of the collection limit")
}

func init() {
	addCollectFlags(runCmd)
	runCmd.Flags().Duration("detail-delay", types.DefaultDelay, "pause after each dataset detail fetch")
	runCmd.Flags().Bool("no-history", false, "do not record this run in the history database")
	rootCmd.AddCommand(runCmd)
}

// recountIndex reads the saved index back; tests replace it.
var recountIndex = envindex.Recount

// runReport is what a completed run produced.
type runReport struct {
	RunID     string
	Collected int
	Build     envindex.BuildResult
	Saved     int
	Progress  envindex.Progress
}

// runIndex executes the full pipeline: load, collect, build, save, report.
// The index file is written only when collection and building both finish.
func runIndex(ctx context.Context, cfg types.Config, out io.Writer, log zerolog.Logger) (runReport, error) {
	var rep runReport

	existing, err := envindex.Load(cfg.Index.Path, log)
	if err != nil {
		return rep, err
	}
	log.Debug().Str("path", cfg.Index.Path).Int("environments", len(existing)).Msg("loaded index")

	rec, err := openRecorder(ctx, cfg, log)
	if err != nil {
		return rep, err
	}
	defer rec.close()
	rep.RunID = rec.run.ID

	// Every return below records the run; it counts as completed once the
	// index is saved.
	status := history.StatusAborted
	defer func() {
		rec.finish(context.WithoutCancel(ctx), status, rep.Collected, rep.Build)
	}()

	client := neotoma.NewClient(cfg.HTTP)

	collector := &neotoma.Collector{
		Lister: client,
		Config: cfg.Collect,
		Known:  existing.Seen(),
		Log:    log,
		Out:    out,
	}
	ids, err := collector.Collect(ctx)
	rep.Collected = len(ids)
	if err != nil {
		return rep, fmt.Errorf("collecting dataset ids: %w", err)
	}

	builder := &envindex.Builder{
		Fetcher: client,
		Config:  cfg.Build,
		Log:     log,
		Out:     out,
	}
	result, err := builder.Build(ctx, ids, existing)
	rep.Build = result
	if err != nil {
		return rep, fmt.Errorf("building index: %w", err)
	}

	if err := envindex.Save(cfg.Index.Path, result.Index); err != nil {
		return rep, err
	}
	status = history.StatusCompleted
	fmt.Fprintf(out, "\nSaved index to %s\n", cfg.Index.Path)

	envindex.PrintSummary(out, result.Index)

	saved, err := recountIndex(cfg.Index.Path, log)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.Index.Path).Msg("could not recount saved index, using in-memory count")
		saved = result.Index.CountDistinct()
	}
	rep.Saved = saved
	rep.Progress = fetchProgress(ctx, client, saved, log)
	envindex.PrintProgress(out, rep.Progress)
	return rep, nil
}

// fetchProgress pairs the saved count with the remote total. A failed total
// lookup is logged and reported as unknown.
func fetchProgress(ctx context.Context, client *neotoma.Client, saved int, log zerolog.Logger) envindex.Progress {
	p := envindex.Progress{Saved: saved}
	total, ok, err := client.Total(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("could not fetch dataset total")
		return p
	}
	p.Total, p.HasTotal = total, ok
	return p
}

// recorder writes run history when a history database is configured. A
// zero recorder does nothing.
type recorder struct {
	store *history.Store
	run   history.Run
	log   zerolog.Logger
}

func openRecorder(ctx context.Context, cfg types.Config, log zerolog.Logger) (*recorder, error) {
	rec := &recorder{log: log}
	if cfg.History.Path == "" {
		return rec, nil
	}
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	run, err := store.Begin(ctx, cfg.Index.Path, time.Now())
	if err != nil {
		store.Close()
		return nil, err
	}
	rec.store, rec.run = store, run
	log.Debug().Str("run_id", run.ID).Msg("recording run")
	return rec, nil
}

func (r *recorder) finish(ctx context.Context, status string, collected int, result envindex.BuildResult) {
	if r.store == nil {
		return
	}
	run := r.run
	run.FinishedAt = time.Now()
	run.Status = status
	run.Collected = collected
	run.Summary = result.Summary
	if result.Index != nil {
		run.Environments = len(result.Index)
		run.DistinctIDs = result.Index.CountDistinct()
	}
	if err := r.store.Finish(ctx, run, result.Items); err != nil {
		r.log.Warn().Err(err).Str("run_id", run.ID).Msg("could not record run history")
	}
}

func (r *recorder) close() {
	if r.store != nil {
		r.store.Close()
	}
}
