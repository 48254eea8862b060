package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/labelflow/labelflow/api/internal/domain"
	apperrors "github.com/labelflow/labelflow/api/internal/pkg/errors"
)

// SuggestionIngestor stores a batch of machine suggestions
type SuggestionIngestor interface {
	Ingest(ctx context.Context, batch *domain.SuggestionBatch) (*domain.SuggestionResult, error)
}

// SuggestionWorker consumes suggestion batches from the machine labeler
type SuggestionWorker struct {
	logger   *zap.Logger
	ingestor SuggestionIngestor
	timeout  time.Duration
}

// NewSuggestionWorker creates a new suggestion worker
func NewSuggestionWorker(logger *zap.Logger, ingestor SuggestionIngestor, timeout time.Duration) *SuggestionWorker {
	return &SuggestionWorker{
		logger:   logger.Named("suggestions"),
		ingestor: ingestor,
		timeout:  timeout,
	}
}

// RegisterHandlers registers the suggestion task handler
func (w *SuggestionWorker) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeSuggestions, w.HandleSuggestions)
}

// HandleSuggestions ingests one batch. Malformed payloads and batches for
// unknown tasks are not retried.
func (w *SuggestionWorker) HandleSuggestions(ctx context.Context, t *asynq.Task) error {
	var batch domain.SuggestionBatch
	if err := json.Unmarshal(t.Payload(), &batch); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	if batch.TaskID == uuid.Nil {
		return fmt.Errorf("payload has no task_id: %w", asynq.SkipRetry)
	}

	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	w.logger.Info("processing suggestion batch",
		zap.String("task_id", batch.TaskID.String()),
		zap.Int("suggestions", len(batch.Suggestions)),
		zap.Bool("final", batch.Final),
	)

	result, err := w.ingestor.Ingest(ctx, &batch)
	if err != nil {
		if apperrors.IsNotFound(err) {
			w.logger.Warn("dropping suggestions for unknown task",
				zap.String("task_id", batch.TaskID.String()),
			)
			return fmt.Errorf("task %s: %v: %w", batch.TaskID, err, asynq.SkipRetry)
		}
		return fmt.Errorf("failed to ingest suggestions: %w", err)
	}

	w.logger.Debug("suggestion batch done",
		zap.String("task_id", batch.TaskID.String()),
		zap.Int("applied", result.Applied),
		zap.Int("skipped", result.Skipped),
		zap.Int("invalid", result.Invalid),
	)

	return nil
}
