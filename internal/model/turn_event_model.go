package model

import (
	"time"

	"github.com/google/uuid"
)

type TurnEvent struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId    uuid.UUID `gorm:"type:uuid;not null;index"`
	ScoreId   uuid.UUID `gorm:"type:uuid;not null;index"`
	Category  string    `gorm:"type:varchar(20);not null"`
	Reason    string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (TurnEvent) TableName() string {
	return "coach_turn_events"
}
