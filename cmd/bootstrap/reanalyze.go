package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"manuscript-editor-api/internal/application/analysis"
	"manuscript-editor-api/internal/config"
	einoobs "manuscript-editor-api/internal/observability/eino"
	"manuscript-editor-api/internal/wire"
)

var reanalyzeInline bool

var reanalyzeCmd = &cobra.Command{
	Use:   "reanalyze <chapterId>",
	Short: "Resubmit a chapter for developmental analysis",
	Long: `reanalyze moves the chapter back to PROCESSING and submits an analysis job.

With the redis_stream queue driver the job is published for analysis-worker.
With --inline (or the memory driver) the analysis runs in this process and the
command waits for it to finish.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		worker, cleanup, err := wire.InitializeWorker(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize worker: %w", err)
		}
		defer cleanup()

		inline := reanalyzeInline || cfg.Analysis.QueueDriver == config.QueueDriverMemory

		var (
			queue analysis.Queue
			pool  *analysis.WorkerPool
		)
		if inline {
			einoobs.Init()
			pool = analysis.NewWorkerPool(1, analysis.Handler(worker.Orchestrator))
			queue = pool
		} else {
			queue = worker.Producer
		}

		submitter := analysis.NewSubmitter(worker.ChapterRepo, worker.BookRepo, worker.FeedbackRepo, queue, cfg.Analysis.LeaseTTL)
		chapter, err := submitter.Reanalyze(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Chapter %s resubmitted (status %s).\n", chapter.ID, chapter.Status)

		if pool == nil {
			return nil
		}

		wait := cfg.Analysis.RunTimeout + time.Minute
		drainCtx, cancel := context.WithTimeout(ctx, wait)
		defer cancel()
		if err := pool.Shutdown(drainCtx); err != nil {
			return fmt.Errorf("analysis did not finish: %w", err)
		}

		done, err := worker.ChapterRepo.GetByID(ctx, chapter.ID)
		if err != nil {
			return err
		}
		if done == nil {
			return fmt.Errorf("chapter %s was deleted during analysis", chapter.ID)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Analysis finished with status %s.\n", done.Status)
		if msg := done.ErrorMessage(); msg != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "  error: %s\n", msg)
		}
		return nil
	},
}

func init() {
	reanalyzeCmd.Flags().BoolVar(&reanalyzeInline, "inline", false, "run the analysis in this process and wait for it")
}
