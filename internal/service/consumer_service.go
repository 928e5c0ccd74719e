package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"mirs-coach-be/internal/dto"
	"mirs-coach-be/internal/entity"
	"mirs-coach-be/internal/repository/unitofwork"
	"mirs-coach-be/pkg/events"
	natsbus "mirs-coach-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService drains the turn-completed topic, persisting one
// observability row per coaching turn and forwarding the event to NATS when
// a publisher is configured.
type consumerService struct {
	pubSub     *gochannel.GoChannel
	topicName  string
	uowFactory unitofwork.RepositoryFactory
	natsPub    *natsbus.Publisher // optional, nil disables forwarding
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	natsPub *natsbus.Publisher,
) IConsumerService {
	return &consumerService{
		pubSub:     pubSub,
		topicName:  topicName,
		uowFactory: uowFactory,
		natsPub:    natsPub,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.TurnCompletedPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("[ERROR] Failed to unmarshal turn event: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	event := &entity.TurnEvent{
		Id:        uuid.New(),
		UserId:    payload.UserId,
		ScoreId:   payload.ScoreId,
		Category:  payload.Category,
		Reason:    payload.Reason,
		CreatedAt: time.Now(),
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		log.Printf("[ERROR] Failed to begin transaction: %v", err)
		msg.Nack()
		return
	}
	defer uow.Rollback()

	if err := uow.TurnEventRepository().Create(ctx, event); err != nil {
		log.Printf("[ERROR] Failed to persist turn event: %v", err)
		msg.Nack()
		return
	}

	if err := uow.Commit(); err != nil {
		log.Printf("[ERROR] Failed to commit turn event: %v", err)
		msg.Nack()
		return
	}

	if cs.natsPub != nil {
		busEvent := events.NewTurnCompletedEvent(
			payload.UserId.String(),
			payload.ScoreId.String(),
			payload.Category,
			payload.Reason,
		)
		if err := cs.natsPub.Publish(ctx, busEvent); err != nil {
			// Forwarding is best effort, the local row is the source of truth.
			log.Printf("[WARN] Failed to forward turn event to NATS: %v", err)
		}
	}

	msg.Ack()
}
