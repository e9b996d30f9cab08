package scheduler

import (
	"context"

	"tuttscrm_backend/platform/config"
	"tuttscrm_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Periodic enqueues the reconciliation cycle on the configured cron spec.
type Periodic struct {
	scheduler *asynq.Scheduler
	log       *logger.Logger
}

// NewPeriodic creates the cron registrar.
func NewPeriodic(cfg config.SchedulerConfig, log *logger.Logger) (*Periodic, error) {
	opt, err := RedisClientOpt(cfg)
	if err != nil {
		return nil, err
	}

	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{})

	spec := cfg.GetEnrichmentCronSpec()
	entryID, err := scheduler.Register(spec, NewEnrichmentCycleTask(), asynq.Queue(queueName(cfg)))
	if err != nil {
		return nil, err
	}
	log.Info("reconciliation cycle registered", "cron", spec, "entry", entryID)

	return &Periodic{scheduler: scheduler, log: log}, nil
}

// Run emits tasks until the context is cancelled.
func (p *Periodic) Run(ctx context.Context) {
	if p == nil || p.scheduler == nil {
		return
	}

	go func() {
		<-ctx.Done()
		p.scheduler.Shutdown()
	}()

	if err := p.scheduler.Run(); err != nil {
		p.log.Error("periodic scheduler stopped", "error", err)
	}
}
