package entity

import (
	"time"

	"mirs-coach-be/pkg/rubric"

	"github.com/google/uuid"
)

const (
	GradeStatusPending   = "pending"
	GradeStatusProcessed = "processed"
)

// Grade is the scored interview a coaching conversation is grounded in.
// Id doubles as the score id and the conversation id.
type Grade struct {
	Id          uuid.UUID
	UserId      uuid.UUID
	Status      string
	Refinement  rubric.Refinement
	ItemMetrics rubric.Metrics
	CreatedAt   time.Time
	UpdatedAt   *time.Time
	DeletedAt   *time.Time
	IsDeleted   bool
}
