package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/labelflow/labelflow/api/internal/domain"
)

const (
	// TypeMachineRequested asks the external machine labeler to label a task
	TypeMachineRequested = "labeling:machine-requested"

	// TypeSuggestions carries machine labelings back from the labeler
	TypeSuggestions = "labeling:suggestions"
)

// MachineRequestedPayload represents the payload for machine labeling requests
type MachineRequestedPayload struct {
	TaskID uuid.UUID `json:"task_id"`
}

// NewMachineRequestedTask creates a machine labeling request
func NewMachineRequestedTask(payload *MachineRequestedPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeMachineRequested, data), nil
}

// NewSuggestionsTask creates a suggestion batch task
func NewSuggestionsTask(batch *domain.SuggestionBatch) (*asynq.Task, error) {
	data, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeSuggestions, data), nil
}

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Publisher hands tasks to the machine labeler through the queue
type Publisher struct {
	client enqueuer
	queue  string
}

// NewPublisher creates a publisher enqueueing on the given queue
func NewPublisher(client *asynq.Client, queue string) *Publisher {
	return &Publisher{client: client, queue: queue}
}

// PublishMachineRequested enqueues a machine labeling request for the task
func (p *Publisher) PublishMachineRequested(ctx context.Context, taskID uuid.UUID) error {
	task, err := NewMachineRequestedTask(&MachineRequestedPayload{TaskID: taskID})
	if err != nil {
		return err
	}

	if _, err := p.client.EnqueueContext(ctx, task, asynq.Queue(p.queue)); err != nil {
		return fmt.Errorf("failed to enqueue machine request: %w", err)
	}
	return nil
}
