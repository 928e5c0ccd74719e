package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ByScoreID scopes message queries to one coaching conversation.
type ByScoreID struct {
	ScoreID uuid.UUID
}

func (s ByScoreID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("score_id = ?", s.ScoreID)
}

// UserOwnedBy scopes queries to rows owned by one user.
type UserOwnedBy struct {
	UserID uuid.UUID
}

func (s UserOwnedBy) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ?", s.UserID)
}
