package contract

import (
	"context"

	"mirs-coach-be/internal/entity"
	"mirs-coach-be/internal/repository/specification"
)

type TurnEventRepository interface {
	Create(ctx context.Context, event *entity.TurnEvent) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.TurnEvent, error)
}
