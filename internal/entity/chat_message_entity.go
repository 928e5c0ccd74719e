package entity

import (
	"time"

	"github.com/google/uuid"
)

type ChatMessage struct {
	Id        uuid.UUID
	UserId    uuid.UUID
	ScoreId   uuid.UUID
	Role      string
	Content   string
	Category  string // empty on user turns
	CreatedAt time.Time
	UpdatedAt *time.Time
	DeletedAt *time.Time
	IsDeleted bool
}
