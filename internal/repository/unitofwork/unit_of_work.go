package unitofwork

import (
	"context"

	"mirs-coach-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	GradeRepository() contract.GradeRepository
	ChatMessageRepository() contract.ChatMessageRepository
	TurnEventRepository() contract.TurnEventRepository
}
