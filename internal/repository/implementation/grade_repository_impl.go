package implementation

import (
	"context"
	"errors"

	"mirs-coach-be/internal/entity"
	"mirs-coach-be/internal/mapper"
	"mirs-coach-be/internal/model"
	"mirs-coach-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type GradeRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.CoachMapper
}

func NewGradeRepository(db *gorm.DB) contract.GradeRepository {
	return &GradeRepositoryImpl{
		db:     db,
		mapper: mapper.NewCoachMapper(),
	}
}

func (r *GradeRepositoryImpl) FindByScoreId(ctx context.Context, scoreId uuid.UUID) (*entity.Grade, error) {
	var m model.Grade
	if err := r.db.WithContext(ctx).Where("id = ?", scoreId).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.GradeToEntity(&m)
}

func (r *GradeRepositoryImpl) Create(ctx context.Context, grade *entity.Grade) error {
	m, err := r.mapper.GradeToModel(grade)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	e, err := r.mapper.GradeToEntity(m)
	if err != nil {
		return err
	}
	*grade = *e
	return nil
}

func (r *GradeRepositoryImpl) Update(ctx context.Context, grade *entity.Grade) error {
	m, err := r.mapper.GradeToModel(grade)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	e, err := r.mapper.GradeToEntity(m)
	if err != nil {
		return err
	}
	*grade = *e
	return nil
}
