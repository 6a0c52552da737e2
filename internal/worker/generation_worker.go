package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"

	"github.com/adreel/api/internal/model"
	"github.com/adreel/api/internal/service"
)

// GenerationRunner runs one generation attempt for a job
type GenerationRunner interface {
	RunGeneration(ctx context.Context, jobID string) *model.GenerationResult
}

// GenerationWorker processes queued generation tasks
type GenerationWorker struct {
	runner GenerationRunner
}

func NewGenerationWorker(runner GenerationRunner) *GenerationWorker {
	return &GenerationWorker{runner: runner}
}

// ProcessTask handles a generation task. Failures are already recorded on
// the job, so the task is never retried.
func (w *GenerationWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	jobID, err := service.ParseGenerateTask(t.Payload())
	if err != nil {
		return fmt.Errorf("invalid generation payload: %v: %w", err, asynq.SkipRetry)
	}

	logger := log.WithField("jobId", jobID)
	logger.Info("Processing generation task")

	result := w.runner.RunGeneration(ctx, jobID)
	if !result.Success {
		logger.WithFields(log.Fields{"kind": result.Kind, "error": result.Error}).Warn("Generation task finished with failure")
		return fmt.Errorf("%w: %w", result.Err(), asynq.SkipRetry)
	}

	logger.WithField("segments", len(result.Segments)).Info("Generation task completed")
	return nil
}

// Register binds the worker to its task type
func (w *GenerationWorker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(service.TaskTypeGenerate, w.ProcessTask)
}
