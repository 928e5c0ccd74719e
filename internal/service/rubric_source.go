package service

import (
	"context"
	"strings"

	"mirs-coach-be/internal/entity"
	"mirs-coach-be/internal/repository/unitofwork"
	"mirs-coach-be/pkg/rubric"

	"github.com/google/uuid"
)

// RubricSource resolves the refinement payload and per-item metrics for a
// scored interview. It is fetched fresh on every coaching turn.
type RubricSource struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewRubricSource(uowFactory unitofwork.RepositoryFactory) *RubricSource {
	return &RubricSource{uowFactory: uowFactory}
}

// FetchRefinementAndMetrics loads the grade for scoreId and validates it
// is usable for coaching. Errors follow the user-facing taxonomy:
// ErrNotFound, ErrNotReady, ErrNoItems, ErrInvalidItems.
func (s *RubricSource) FetchRefinementAndMetrics(ctx context.Context, scoreId uuid.UUID) (*rubric.Refinement, rubric.Metrics, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	grade, err := uow.GradeRepository().FindByScoreId(ctx, scoreId)
	if err != nil {
		return nil, nil, err
	}
	if grade == nil {
		return nil, nil, rubric.ErrNotFound
	}
	if grade.Status != entity.GradeStatusProcessed {
		return nil, nil, rubric.ErrNotReady
	}
	if len(grade.ItemMetrics) == 0 {
		return nil, nil, rubric.ErrNoItems
	}
	for name := range grade.ItemMetrics {
		if strings.TrimSpace(name) == "" {
			return nil, nil, rubric.ErrInvalidItems
		}
	}

	refinement := grade.Refinement
	return &refinement, grade.ItemMetrics, nil
}
