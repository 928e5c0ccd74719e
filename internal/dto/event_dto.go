package dto

import "github.com/google/uuid"

// TurnCompletedPayload travels over the in-process event bus after every
// persisted coaching turn.
type TurnCompletedPayload struct {
	UserId   uuid.UUID `json:"user_id"`
	ScoreId  uuid.UUID `json:"score_id"`
	Category string    `json:"category"`
	Reason   string    `json:"reason"`
}
