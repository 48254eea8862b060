package validator

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labelflow/labelflow/api/internal/domain"
	apperrors "github.com/labelflow/labelflow/api/internal/pkg/errors"
)

func TestValidateRequest(t *testing.T) {
	t.Run("valid dataset", func(t *testing.T) {
		assert.NoError(t, ValidateRequest(&domain.DatasetInput{Name: "ner"}))
	})

	t.Run("blank name", func(t *testing.T) {
		err := ValidateRequest(&domain.DatasetInput{Name: "   "})
		require.Error(t, err)
		assert.True(t, apperrors.IsInvalidArgument(err))
		assert.Equal(t, "must not be blank", apperrors.GetAppError(err).Details["name"])
	})

	t.Run("nested item fields use json names", func(t *testing.T) {
		err := ValidateRequest(&domain.DatasetItemsInput{
			Items: []domain.DatasetItemInput{{Content: "ok"}, {Content: ""}},
		})
		require.Error(t, err)
		assert.Equal(t, "is required", apperrors.GetAppError(err).Details["items[1].content"])
	})

	t.Run("empty item list", func(t *testing.T) {
		err := ValidateRequest(&domain.DatasetItemsInput{})
		require.Error(t, err)
		assert.Contains(t, apperrors.GetAppError(err).Details, "items")
	})

	t.Run("task input", func(t *testing.T) {
		err := ValidateRequest(&domain.TaskInput{DatasetID: uuid.New()})
		require.Error(t, err)
		assert.Contains(t, apperrors.GetAppError(err).Details, "name")
	})
}
