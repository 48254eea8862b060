package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/labelflow/labelflow/api/internal/domain"
	apperrors "github.com/labelflow/labelflow/api/internal/pkg/errors"
)

func TestLabelingScenario_JohnRuns(t *testing.T) {
	repos := newSQLiteRepositories(t)
	ctx := context.Background()
	ds, items := seedDataset(t, repos, "John runs")
	task := seedTask(t, repos, ds.ID, domain.TagDef{Name: "Person", Symbol: "PER", Color: "#f00"})

	tagsets := NewTagSetService(zap.NewNop(), repos, nil, RetryConfig{MaxRetries: 3})
	annotations := NewAnnotationService(zap.NewNop(), repos)
	item := items[0].ID

	err := annotations.Submit(ctx, task.ID, item, []domain.Span{{Length: 4, Symbol: "PER"}, {Length: 5, Symbol: "O"}}, nil)
	require.NoError(t, err)

	err = annotations.Submit(ctx, task.ID, item, []domain.Span{{Length: 4, Symbol: "PER"}, {Length: 4, Symbol: "O"}}, nil)
	assert.True(t, apperrors.IsValidation(err))
	assert.Contains(t, err.Error(), "sum to 8")

	err = annotations.Submit(ctx, task.ID, item, []domain.Span{{Length: 4, Symbol: "LOC"}, {Length: 5, Symbol: "O"}}, nil)
	assert.True(t, apperrors.IsValidation(err))

	_, err = tagsets.AddTag(ctx, task.ID, &domain.TagInput{Name: "Outside", Symbol: "O", Color: "#000"})
	assert.True(t, apperrors.IsInvalidArgument(err))

	got, err := tagsets.ReorderTags(ctx, task.ID, []string{"PER"})
	require.NoError(t, err)
	assert.Equal(t, []string{"PER"}, got.Tags.Symbols())
	assert.Equal(t, int64(1), got.Version)

	// the rejected submissions left the accepted one in place
	stored, err := repos.TaskItems.Get(ctx, task.ID, item)
	require.NoError(t, err)
	assert.True(t, stored.ByHuman)
	assert.Equal(t, domain.HumanConfidence, stored.Confidence)
	assert.Equal(t, []domain.Span{{Length: 4, Symbol: "PER"}, {Length: 5, Symbol: "O"}}, stored.Tags)
}

func TestAnnotationService_UpsertIsIdempotentByKey(t *testing.T) {
	repos := newSQLiteRepositories(t)
	ctx := context.Background()
	ds, items := seedDataset(t, repos, "John runs")
	task := seedTask(t, repos, ds.ID, person)
	annotations := NewAnnotationService(zap.NewNop(), repos)

	// claimed placeholder first, as the selector would leave it
	_, err := NewSelectorService(zap.NewNop(), repos, SelectorConfig{}).Next(ctx, task.ID)
	require.NoError(t, err)

	require.NoError(t, annotations.Submit(ctx, task.ID, items[0].ID, []domain.Span{{Length: 9, Symbol: "O"}}, nil))
	require.NoError(t, annotations.Submit(ctx, task.ID, items[0].ID, []domain.Span{{Length: 4, Symbol: "PER"}, {Length: 5, Symbol: "O"}}, []string{"subject"}))

	list, total, err := repos.TaskItems.ListByTask(ctx, &domain.TaskItemFilter{TaskID: task.ID}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Equal(t, []domain.Span{{Length: 4, Symbol: "PER"}, {Length: 5, Symbol: "O"}}, list[0].Tags)
	assert.Equal(t, []string{"subject"}, list[0].RelationTags)
	assert.True(t, list[0].ByHuman)
}

func TestAnnotationService_HumanSubmissionReplacesMachineConfidence(t *testing.T) {
	repos := newSQLiteRepositories(t)
	ctx := context.Background()
	ds, items := seedDataset(t, repos, "John runs")
	task := seedTask(t, repos, ds.ID, person)

	wrote, err := repos.TaskItems.UpsertSuggestion(ctx, &domain.TaskItem{
		TaskID:        task.ID,
		DatasetItemID: items[0].ID,
		Tags:          []domain.Span{{Length: 9, Symbol: "O"}},
		RelationTags:  []string{},
		Confidence:    0.3,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	})
	require.NoError(t, err)
	require.True(t, wrote)

	annotations := NewAnnotationService(zap.NewNop(), repos)
	require.NoError(t, annotations.Submit(ctx, task.ID, items[0].ID, []domain.Span{{Length: 4, Symbol: "PER"}, {Length: 5, Symbol: "O"}}, nil))

	stored, err := repos.TaskItems.Get(ctx, task.ID, items[0].ID)
	require.NoError(t, err)
	assert.True(t, stored.ByHuman)
	assert.Equal(t, domain.HumanConfidence, stored.Confidence)
}

func TestAnnotationService_Resolve(t *testing.T) {
	repos := newSQLiteRepositories(t)
	ctx := context.Background()
	ds, items := seedDataset(t, repos, "alpha")
	_, otherItems := seedDataset(t, repos, "omega")
	task := seedTask(t, repos, ds.ID, person)
	annotations := NewAnnotationService(zap.NewNop(), repos)
	spans := []domain.Span{{Length: 5, Symbol: "O"}}

	err := annotations.Submit(ctx, uuid.New(), items[0].ID, spans, nil)
	assert.True(t, apperrors.IsNotFound(err))

	err = annotations.Submit(ctx, task.ID, uuid.New(), spans, nil)
	assert.True(t, apperrors.IsNotFound(err))

	err = annotations.Submit(ctx, task.ID, otherItems[0].ID, spans, nil)
	assert.True(t, apperrors.IsCrossDatasetMismatch(err))

	_, err = repos.TaskItems.Get(ctx, task.ID, otherItems[0].ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestAnnotationService_SubmitJSON(t *testing.T) {
	repos := newSQLiteRepositories(t)
	ctx := context.Background()
	ds, items := seedDataset(t, repos, "Zoë läuft")
	task := seedTask(t, repos, ds.ID, person)
	annotations := NewAnnotationService(zap.NewNop(), repos)

	tests := []struct {
		name     string
		tags     string
		wantKind string
	}{
		{name: "accepted", tags: `[{"length":3,"symbol":"PER"},{"length":6,"symbol":"O"}]`},
		{name: "integral float", tags: `[{"length":9.0,"symbol":"O"}]`},
		{name: "extra field", tags: `[{"length":9,"symbol":"O","note":"x"}]`, wantKind: apperrors.CodeValidation},
		{name: "fractional length", tags: `[{"length":4.5,"symbol":"PER"},{"length":4.5,"symbol":"O"}]`, wantKind: apperrors.CodeValidation},
		{name: "byte length", tags: `[{"length":11,"symbol":"O"}]`, wantKind: apperrors.CodeValidation},
		{name: "empty", tags: `[]`, wantKind: apperrors.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := annotations.SubmitJSON(ctx, task.ID, items[0].ID, &domain.SubmissionInput{Tags: json.RawMessage(tt.tags)})
			if tt.wantKind == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, apperrors.GetCode(err))
		})
	}

	stored, err := repos.TaskItems.Get(ctx, task.ID, items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.Span{{Length: 9, Symbol: "O"}}, stored.Tags)
	assert.Equal(t, []string{}, stored.RelationTags)
}

func TestAnnotationService_StaleSymbolsSurviveTagDeletion(t *testing.T) {
	repos := newSQLiteRepositories(t)
	ctx := context.Background()
	ds, items := seedDataset(t, repos, "John runs")
	task := seedTask(t, repos, ds.ID, person)
	annotations := NewAnnotationService(zap.NewNop(), repos)
	tagsets := NewTagSetService(zap.NewNop(), repos, nil, RetryConfig{MaxRetries: 3})

	require.NoError(t, annotations.Submit(ctx, task.ID, items[0].ID, []domain.Span{{Length: 4, Symbol: "PER"}, {Length: 5, Symbol: "O"}}, nil))

	_, err := tagsets.DeleteTag(ctx, task.ID, "PER")
	require.NoError(t, err)

	stored, err := repos.TaskItems.Get(ctx, task.ID, items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "PER", stored.Tags[0].Symbol)

	err = annotations.Submit(ctx, task.ID, items[0].ID, []domain.Span{{Length: 4, Symbol: "PER"}, {Length: 5, Symbol: "O"}}, nil)
	assert.True(t, apperrors.IsValidation(err))
}
