package contract

import (
	"context"

	"mirs-coach-be/internal/entity"

	"github.com/google/uuid"
)

type GradeRepository interface {
	// FindByScoreId returns nil, nil when no grade exists for the id.
	FindByScoreId(ctx context.Context, scoreId uuid.UUID) (*entity.Grade, error)
	Create(ctx context.Context, grade *entity.Grade) error
	Update(ctx context.Context, grade *entity.Grade) error
}
