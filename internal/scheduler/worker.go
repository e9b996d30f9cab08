package scheduler

import (
	"context"

	"tuttscrm_backend/internal/enrichment"
	"tuttscrm_backend/platform/config"
	"tuttscrm_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// EnrichmentRunner is the engine entry point the worker drives.
type EnrichmentRunner interface {
	Run(ctx context.Context) (enrichment.RunSummary, error)
}

// Worker consumes scheduler tasks.
type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	enricher EnrichmentRunner
	log      *logger.Logger
}

// NewWorker creates the asynq consumer for the configured queue.
func NewWorker(cfg config.SchedulerConfig, enricher EnrichmentRunner, log *logger.Logger) (*Worker, error) {
	opt, err := RedisClientOpt(cfg)
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	w := &Worker{
		server:   server,
		mux:      asynq.NewServeMux(),
		enricher: enricher,
		log:      log,
	}
	w.mux.HandleFunc(TaskEnrichmentCycle, w.handleEnrichmentCycle)

	return w, nil
}

func (w *Worker) handleEnrichmentCycle(ctx context.Context, task *asynq.Task) error {
	summary, err := w.enricher.Run(ctx)
	if err != nil {
		w.log.Error("reconciliation cycle failed", "error", err)
		return err
	}

	w.log.Info("reconciliation cycle complete",
		"mode", summary.Mode,
		"spreadsheetProcessed", summary.Spreadsheet.Processed,
		"oracleProcessed", summary.Oracle.Processed,
		"resurrected", summary.Resurrected,
		"followupsCreated", summary.FollowUps.Created,
		"durationMs", summary.DurationMS,
	)
	return nil
}

// Run serves tasks until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
