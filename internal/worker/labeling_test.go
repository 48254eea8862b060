package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/labelflow/labelflow/api/internal/config"
	"github.com/labelflow/labelflow/api/internal/domain"
	apperrors "github.com/labelflow/labelflow/api/internal/pkg/errors"
)

type mockIngestor struct {
	mock.Mock
}

func (m *mockIngestor) Ingest(ctx context.Context, batch *domain.SuggestionBatch) (*domain.SuggestionResult, error) {
	args := m.Called(ctx, batch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SuggestionResult), args.Error(1)
}

type mockEnqueuer struct {
	mock.Mock
}

func (m *mockEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*asynq.TaskInfo), args.Error(1)
}

func TestSuggestionsPayloadWireFormat(t *testing.T) {
	taskID := uuid.New()
	itemID := uuid.New()
	raw := []byte(`{"task_id":"` + taskID.String() + `","final":true,"suggestions":[` +
		`{"dataset_item_id":"` + itemID.String() + `","tags":[{"length":9,"symbol":"O"}],"relation_tags":["r"],"confidence":0.25}]}`)

	var batch domain.SuggestionBatch
	require.NoError(t, json.Unmarshal(raw, &batch))

	assert.Equal(t, taskID, batch.TaskID)
	assert.True(t, batch.Final)
	require.Len(t, batch.Suggestions, 1)
	assert.Equal(t, itemID, batch.Suggestions[0].DatasetItemID)
	assert.Equal(t, 0.25, batch.Suggestions[0].Confidence)
	assert.Equal(t, []string{"r"}, batch.Suggestions[0].RelationTags)
}

func TestSuggestionWorker_HandleSuggestions(t *testing.T) {
	batch := &domain.SuggestionBatch{
		TaskID: uuid.New(),
		Suggestions: []domain.MachineSuggestion{
			{DatasetItemID: uuid.New(), Tags: []domain.Span{{Length: 3, Symbol: "O"}}, Confidence: 0.4},
		},
		Final: true,
	}
	task, err := NewSuggestionsTask(batch)
	require.NoError(t, err)
	assert.Equal(t, TypeSuggestions, task.Type())

	t.Run("ingests batch", func(t *testing.T) {
		ingestor := new(mockIngestor)
		w := NewSuggestionWorker(zap.NewNop(), ingestor, time.Second)

		ingestor.On("Ingest", mock.Anything, mock.MatchedBy(func(b *domain.SuggestionBatch) bool {
			return b.TaskID == batch.TaskID && len(b.Suggestions) == 1 && b.Final
		})).Return(&domain.SuggestionResult{Applied: 1}, nil)

		require.NoError(t, w.HandleSuggestions(context.Background(), task))
		ingestor.AssertExpectations(t)
	})

	t.Run("store failure is retried", func(t *testing.T) {
		ingestor := new(mockIngestor)
		w := NewSuggestionWorker(zap.NewNop(), ingestor, 0)

		ingestor.On("Ingest", mock.Anything, mock.Anything).Return(nil, apperrors.Unavailable("store down"))

		err := w.HandleSuggestions(context.Background(), task)
		require.Error(t, err)
		assert.False(t, errors.Is(err, asynq.SkipRetry))
	})

	t.Run("unknown task is dropped", func(t *testing.T) {
		ingestor := new(mockIngestor)
		w := NewSuggestionWorker(zap.NewNop(), ingestor, 0)

		ingestor.On("Ingest", mock.Anything, mock.Anything).Return(nil, apperrors.NotFound("task"))

		err := w.HandleSuggestions(context.Background(), task)
		assert.True(t, errors.Is(err, asynq.SkipRetry))
	})

	t.Run("malformed payload is dropped", func(t *testing.T) {
		ingestor := new(mockIngestor)
		w := NewSuggestionWorker(zap.NewNop(), ingestor, 0)

		err := w.HandleSuggestions(context.Background(), asynq.NewTask(TypeSuggestions, []byte(`{not json`)))
		assert.True(t, errors.Is(err, asynq.SkipRetry))

		err = w.HandleSuggestions(context.Background(), asynq.NewTask(TypeSuggestions, []byte(`{"suggestions":[]}`)))
		assert.True(t, errors.Is(err, asynq.SkipRetry))

		ingestor.AssertNotCalled(t, "Ingest", mock.Anything, mock.Anything)
	})
}

func TestPublisher_PublishMachineRequested(t *testing.T) {
	taskID := uuid.New()

	t.Run("enqueues request", func(t *testing.T) {
		client := new(mockEnqueuer)
		p := &Publisher{client: client, queue: "machine"}

		client.On("EnqueueContext", mock.Anything, mock.MatchedBy(func(task *asynq.Task) bool {
			var payload MachineRequestedPayload
			if err := json.Unmarshal(task.Payload(), &payload); err != nil {
				return false
			}
			return task.Type() == TypeMachineRequested && payload.TaskID == taskID
		}), mock.Anything).Return(&asynq.TaskInfo{ID: "1"}, nil)

		require.NoError(t, p.PublishMachineRequested(context.Background(), taskID))
		client.AssertExpectations(t)
	})

	t.Run("wraps enqueue failure", func(t *testing.T) {
		client := new(mockEnqueuer)
		p := &Publisher{client: client, queue: "machine"}

		client.On("EnqueueContext", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("redis down"))

		err := p.PublishMachineRequested(context.Background(), taskID)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "redis down")
	})
}

func TestMachineRequestedPayloadWireFormat(t *testing.T) {
	taskID := uuid.MustParse("7f1c2a9e-1111-4a4a-9b9b-123456789abc")
	task, err := NewMachineRequestedTask(&MachineRequestedPayload{TaskID: taskID})
	require.NoError(t, err)

	assert.JSONEq(t, `{"task_id":"7f1c2a9e-1111-4a4a-9b9b-123456789abc"}`, string(task.Payload()))
}

func TestNewServer_RequiresSuggestionService(t *testing.T) {
	_, err := NewServer(zap.NewNop(), &config.Config{}, &WorkerDependencies{})
	assert.Error(t, err)
}
