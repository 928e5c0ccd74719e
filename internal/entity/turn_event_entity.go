package entity

import (
	"time"

	"github.com/google/uuid"
)

// TurnEvent records one completed coaching turn for observability.
type TurnEvent struct {
	Id        uuid.UUID
	UserId    uuid.UUID
	ScoreId   uuid.UUID
	Category  string
	Reason    string
	CreatedAt time.Time
}
