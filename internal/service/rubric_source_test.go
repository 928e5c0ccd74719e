package service

import (
	"context"
	"testing"

	"mirs-coach-be/internal/entity"
	"mirs-coach-be/pkg/rubric"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchRefinementAndMetrics(t *testing.T) {
	userId := uuid.New()
	grade := processedGrade(userId)
	store := &fakeStore{grades: map[uuid.UUID]*entity.Grade{grade.Id: grade}}
	source := NewRubricSource(&fakeFactory{store: store})

	refinement, metrics, err := source.FetchRefinementAndMetrics(context.Background(), grade.Id)
	require.NoError(t, err)
	assert.Equal(t, 3.5, refinement.Score)
	assert.Contains(t, metrics, "agenda setting")
}

func TestFetchRefinementAndMetricsErrors(t *testing.T) {
	userId := uuid.New()

	t.Run("missing grade", func(t *testing.T) {
		source := NewRubricSource(&fakeFactory{store: &fakeStore{grades: map[uuid.UUID]*entity.Grade{}}})
		_, _, err := source.FetchRefinementAndMetrics(context.Background(), uuid.New())
		assert.ErrorIs(t, err, rubric.ErrNotFound)
	})

	t.Run("not processed yet", func(t *testing.T) {
		grade := processedGrade(userId)
		grade.Status = entity.GradeStatusPending
		source := NewRubricSource(&fakeFactory{store: &fakeStore{grades: map[uuid.UUID]*entity.Grade{grade.Id: grade}}})
		_, _, err := source.FetchRefinementAndMetrics(context.Background(), grade.Id)
		assert.ErrorIs(t, err, rubric.ErrNotReady)
	})

	t.Run("no scored items", func(t *testing.T) {
		grade := processedGrade(userId)
		grade.ItemMetrics = rubric.Metrics{}
		source := NewRubricSource(&fakeFactory{store: &fakeStore{grades: map[uuid.UUID]*entity.Grade{grade.Id: grade}}})
		_, _, err := source.FetchRefinementAndMetrics(context.Background(), grade.Id)
		assert.ErrorIs(t, err, rubric.ErrNoItems)
	})

	t.Run("blank item name", func(t *testing.T) {
		grade := processedGrade(userId)
		grade.ItemMetrics = rubric.Metrics{"  ": {Score: 1, Explanation: "x"}}
		source := NewRubricSource(&fakeFactory{store: &fakeStore{grades: map[uuid.UUID]*entity.Grade{grade.Id: grade}}})
		_, _, err := source.FetchRefinementAndMetrics(context.Background(), grade.Id)
		assert.ErrorIs(t, err, rubric.ErrInvalidItems)
	})
}
