package mapper

import (
	"encoding/json"
	"fmt"
	"time"

	"mirs-coach-be/internal/entity"
	"mirs-coach-be/internal/model"
	"mirs-coach-be/pkg/rubric"

	"gorm.io/gorm"
)

type CoachMapper struct{}

func NewCoachMapper() *CoachMapper {
	return &CoachMapper{}
}

// Message Mappers

func (m *CoachMapper) ChatMessageToEntity(msg *model.ChatMessage) *entity.ChatMessage {
	if msg == nil {
		return nil
	}

	var deletedAt *time.Time
	if msg.DeletedAt.Valid {
		t := msg.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !msg.UpdatedAt.IsZero() {
		t := msg.UpdatedAt
		updatedAt = &t
	}

	return &entity.ChatMessage{
		Id:        msg.Id,
		UserId:    msg.UserId,
		ScoreId:   msg.ScoreId,
		Role:      msg.Role,
		Content:   msg.Content,
		Category:  msg.Category,
		CreatedAt: msg.CreatedAt,
		UpdatedAt: updatedAt,
		DeletedAt: deletedAt,
		IsDeleted: msg.DeletedAt.Valid,
	}
}

func (m *CoachMapper) ChatMessageToModel(msg *entity.ChatMessage) *model.ChatMessage {
	if msg == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if msg.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *msg.DeletedAt, Valid: true}
	} else if msg.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if msg.UpdatedAt != nil {
		updatedAt = *msg.UpdatedAt
	}

	return &model.ChatMessage{
		Id:        msg.Id,
		UserId:    msg.UserId,
		ScoreId:   msg.ScoreId,
		Role:      msg.Role,
		Content:   msg.Content,
		Category:  msg.Category,
		CreatedAt: msg.CreatedAt,
		UpdatedAt: updatedAt,
		DeletedAt: deletedAt,
	}
}

// Grade Mappers

func (m *CoachMapper) GradeToEntity(g *model.Grade) (*entity.Grade, error) {
	if g == nil {
		return nil, nil
	}

	var refinement rubric.Refinement
	if len(g.Refinement) > 0 {
		if err := json.Unmarshal(g.Refinement, &refinement); err != nil {
			return nil, fmt.Errorf("unmarshal grade refinement: %w", err)
		}
	}

	var metrics rubric.Metrics
	if len(g.ItemMetrics) > 0 {
		if err := json.Unmarshal(g.ItemMetrics, &metrics); err != nil {
			return nil, fmt.Errorf("unmarshal grade item metrics: %w", err)
		}
	}

	var deletedAt *time.Time
	if g.DeletedAt.Valid {
		t := g.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !g.UpdatedAt.IsZero() {
		t := g.UpdatedAt
		updatedAt = &t
	}

	return &entity.Grade{
		Id:          g.Id,
		UserId:      g.UserId,
		Status:      g.Status,
		Refinement:  refinement,
		ItemMetrics: metrics,
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   updatedAt,
		DeletedAt:   deletedAt,
		IsDeleted:   g.DeletedAt.Valid,
	}, nil
}

func (m *CoachMapper) GradeToModel(g *entity.Grade) (*model.Grade, error) {
	if g == nil {
		return nil, nil
	}

	refinement, err := json.Marshal(g.Refinement)
	if err != nil {
		return nil, fmt.Errorf("marshal grade refinement: %w", err)
	}
	metrics, err := json.Marshal(g.ItemMetrics)
	if err != nil {
		return nil, fmt.Errorf("marshal grade item metrics: %w", err)
	}

	var deletedAt gorm.DeletedAt
	if g.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *g.DeletedAt, Valid: true}
	} else if g.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if g.UpdatedAt != nil {
		updatedAt = *g.UpdatedAt
	}

	return &model.Grade{
		Id:          g.Id,
		UserId:      g.UserId,
		Status:      g.Status,
		Refinement:  refinement,
		ItemMetrics: metrics,
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   updatedAt,
		DeletedAt:   deletedAt,
	}, nil
}

// Turn Event Mappers

func (m *CoachMapper) TurnEventToModel(e *entity.TurnEvent) *model.TurnEvent {
	if e == nil {
		return nil
	}
	return &model.TurnEvent{
		Id:        e.Id,
		UserId:    e.UserId,
		ScoreId:   e.ScoreId,
		Category:  e.Category,
		Reason:    e.Reason,
		CreatedAt: e.CreatedAt,
	}
}

func (m *CoachMapper) TurnEventToEntity(e *model.TurnEvent) *entity.TurnEvent {
	if e == nil {
		return nil
	}
	return &entity.TurnEvent{
		Id:        e.Id,
		UserId:    e.UserId,
		ScoreId:   e.ScoreId,
		Category:  e.Category,
		Reason:    e.Reason,
		CreatedAt: e.CreatedAt,
	}
}
