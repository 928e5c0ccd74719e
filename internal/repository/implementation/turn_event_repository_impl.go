package implementation

import (
	"context"

	"mirs-coach-be/internal/entity"
	"mirs-coach-be/internal/mapper"
	"mirs-coach-be/internal/model"
	"mirs-coach-be/internal/repository/contract"
	"mirs-coach-be/internal/repository/specification"

	"gorm.io/gorm"
)

type TurnEventRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.CoachMapper
}

func NewTurnEventRepository(db *gorm.DB) contract.TurnEventRepository {
	return &TurnEventRepositoryImpl{
		db:     db,
		mapper: mapper.NewCoachMapper(),
	}
}

func (r *TurnEventRepositoryImpl) Create(ctx context.Context, event *entity.TurnEvent) error {
	m := r.mapper.TurnEventToModel(event)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*event = *r.mapper.TurnEventToEntity(m)
	return nil
}

func (r *TurnEventRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.TurnEvent, error) {
	var models []*model.TurnEvent
	query := r.db.WithContext(ctx)
	for _, spec := range specs {
		query = spec.Apply(query)
	}
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.TurnEvent, len(models))
	for i, m := range models {
		entities[i] = r.mapper.TurnEventToEntity(m)
	}
	return entities, nil
}
