// Package scheduler runs the reconciliation cycle as a background worker:
// an asynq consumer plus a periodic registrar that enqueues the cycle on a
// cron spec.
package scheduler

import (
	"github.com/hibiken/asynq"
)

// TaskEnrichmentCycle triggers one batch reconciliation run.
const TaskEnrichmentCycle = "enrichment:cycle"

// NewEnrichmentCycleTask builds the cycle task. The run carries no payload:
// selection happens inside the engine.
func NewEnrichmentCycleTask() *asynq.Task {
	return asynq.NewTask(TaskEnrichmentCycle, nil, asynq.MaxRetry(0))
}
