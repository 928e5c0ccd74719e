package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"mirs-coach-be/internal/constant"
	"mirs-coach-be/internal/dto"
	"mirs-coach-be/internal/entity"
	"mirs-coach-be/internal/pkg/logger"
	"mirs-coach-be/internal/pkg/usage"
	"mirs-coach-be/internal/repository/memory"
	"mirs-coach-be/internal/repository/specification"
	"mirs-coach-be/internal/repository/unitofwork"
	"mirs-coach-be/pkg/coach"
	"mirs-coach-be/pkg/llm"
	"mirs-coach-be/pkg/mirs"
	"mirs-coach-be/pkg/rubric"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

// errStreamAbandoned marks emitter failures so a disconnected client is not
// reported as a generation error.
var errStreamAbandoned = errors.New("stream abandoned by client")

// ICoachService defines the coaching chat service interface
type ICoachService interface {
	GetChatHistory(ctx context.Context, userId uuid.UUID, scoreId uuid.UUID) ([]*dto.GetChatHistoryResponse, error)
	SendChat(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest) (*dto.SendChatResponse, error)
	StreamChat(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest, emit dto.StreamEmitter) error
}

// coachService runs the per-turn pipeline: verify usage, persist the user
// turn, load history, fetch the rubric evidence, classify, generate, persist
// the assistant turn, publish the turn event.
type coachService struct {
	uowFactory     unitofwork.RepositoryFactory
	rubricSource   *RubricSource
	classifierRepo *memory.ClassifierRepository
	provider       llm.Provider
	generator      *coach.Generator
	limiter        *usage.Limiter
	publisher      message.Publisher
	appLogger      logger.ILogger
	llmLogger      *log.Logger

	snippetBudget int
	modelFallback bool
}

func NewCoachService(
	uowFactory unitofwork.RepositoryFactory,
	rubricSource *RubricSource,
	classifierRepo *memory.ClassifierRepository,
	provider llm.Provider,
	generator *coach.Generator,
	limiter *usage.Limiter,
	publisher message.Publisher,
	appLogger logger.ILogger,
	snippetBudget int,
	modelFallback bool,
) ICoachService {
	return &coachService{
		uowFactory:     uowFactory,
		rubricSource:   rubricSource,
		classifierRepo: classifierRepo,
		provider:       provider,
		generator:      generator,
		limiter:        limiter,
		publisher:      publisher,
		appLogger:      appLogger,
		llmLogger:      initLLMLogger(),
		snippetBudget:  snippetBudget,
		modelFallback:  modelFallback,
	}
}

func initLLMLogger() *log.Logger {
	logPath := filepath.Join(".", "logs", "llm_coach.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		log.Printf("Failed to create logs directory: %v", err)
	}
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return log.New(os.Stdout, "[LLM-COACH] ", log.LstdFlags)
	}
	return log.New(file, "", log.LstdFlags)
}

// GetChatHistory lists the coaching conversation for one scored interview.
func (cs *coachService) GetChatHistory(ctx context.Context, userId uuid.UUID, scoreId uuid.UUID) ([]*dto.GetChatHistoryResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	grade, err := uow.GradeRepository().FindByScoreId(ctx, scoreId)
	if err != nil {
		return nil, err
	}
	if grade == nil {
		return nil, rubric.ErrNotFound
	}

	chatMessages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByScoreID{ScoreID: scoreId},
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	response := make([]*dto.GetChatHistoryResponse, 0, len(chatMessages))
	for _, m := range chatMessages {
		response = append(response, &dto.GetChatHistoryResponse{
			Id:        m.Id,
			Role:      m.Role,
			Chat:      m.Content,
			Category:  m.Category,
			CreatedAt: m.CreatedAt,
		})
	}

	return response, nil
}

// turnContext is everything the generation step needs, assembled once and
// shared by the blocking and streaming paths.
type turnContext struct {
	history    []llm.Message
	refinement *rubric.Refinement
	metrics    rubric.Metrics
	detection  mirs.Detection
	userTurn   *entity.ChatMessage
}

// prepareTurn runs the shared front half of the pipeline: usage check,
// rubric fetch, history load, user turn persistence, classification. The
// user turn is committed before any completion call so it survives a
// cancelled stream.
func (cs *coachService) prepareTurn(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest) (*turnContext, error) {
	if err := cs.limiter.Verify(ctx, userId.String()); err != nil {
		return nil, err
	}

	refinement, metrics, err := cs.rubricSource.FetchRefinementAndMetrics(ctx, request.ScoreId)
	if err != nil {
		return nil, err
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)

	chatMessages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByScoreID{ScoreID: request.ScoreId},
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	history := make([]llm.Message, 0, len(chatMessages))
	for _, m := range chatMessages {
		history = append(history, llm.Message{Role: m.Role, Content: m.Content})
	}

	userTurn := &entity.ChatMessage{
		Id:        uuid.New(),
		UserId:    userId,
		ScoreId:   request.ScoreId,
		Role:      constant.ChatMessageRoleUser,
		Content:   request.Chat,
		CreatedAt: time.Now(),
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()
	if err := uow.ChatMessageRepository().Create(ctx, userTurn); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	classifier := cs.classifierRepo.GetOrCreate(userId.String(), request.ScoreId.String(), func() *mirs.Classifier {
		provider := cs.provider
		if !cs.modelFallback {
			provider = nil
		}
		return mirs.NewClassifier(provider, cs.snippetBudget, cs.llmLogger)
	})
	detection := classifier.Detect(ctx, request.Chat, history)

	cs.appLogger.Info("coach", "turn classified", map[string]interface{}{
		"score_id": request.ScoreId.String(),
		"category": string(detection.Category),
		"reason":   detection.Reason,
	})

	return &turnContext{
		history:    history,
		refinement: refinement,
		metrics:    metrics,
		detection:  detection,
		userTurn:   userTurn,
	}, nil
}

// persistAssistantTurn stores the finished reply with its category and
// records the consumed usage.
func (cs *coachService) persistAssistantTurn(ctx context.Context, userId uuid.UUID, scoreId uuid.UUID, reply string, detection mirs.Detection) (*entity.ChatMessage, error) {
	assistantTurn := &entity.ChatMessage{
		Id:        uuid.New(),
		UserId:    userId,
		ScoreId:   scoreId,
		Role:      constant.ChatMessageRoleAssistant,
		Content:   reply,
		Category:  string(detection.Category),
		CreatedAt: time.Now(),
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()
	if err := uow.ChatMessageRepository().Create(ctx, assistantTurn); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	cs.limiter.Increment(ctx, userId.String())
	cs.publishTurnCompleted(userId, scoreId, detection)

	return assistantTurn, nil
}

func (cs *coachService) publishTurnCompleted(userId uuid.UUID, scoreId uuid.UUID, detection mirs.Detection) {
	payload, err := json.Marshal(dto.TurnCompletedPayload{
		UserId:   userId,
		ScoreId:  scoreId,
		Category: string(detection.Category),
		Reason:   detection.Reason,
	})
	if err != nil {
		cs.appLogger.Error("coach", "failed to marshal turn event", map[string]interface{}{"error": err.Error()})
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := cs.publisher.Publish(constant.TurnCompletedTopic, msg); err != nil {
		cs.appLogger.Warn("coach", "failed to publish turn event", map[string]interface{}{"error": err.Error()})
	}
}

// SendChat runs one blocking coaching turn.
func (cs *coachService) SendChat(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest) (*dto.SendChatResponse, error) {
	tc, err := cs.prepareTurn(ctx, userId, request)
	if err != nil {
		return nil, err
	}

	reply := cs.generator.Generate(ctx, request.Chat, tc.detection.Category, tc.history, tc.refinement, tc.metrics)

	assistantTurn, err := cs.persistAssistantTurn(ctx, userId, request.ScoreId, reply, tc.detection)
	if err != nil {
		return nil, err
	}

	return &dto.SendChatResponse{
		ScoreId: request.ScoreId,
		Sent: &dto.SendChatResponseChat{
			Id:        tc.userTurn.Id,
			Chat:      tc.userTurn.Content,
			Role:      tc.userTurn.Role,
			CreatedAt: tc.userTurn.CreatedAt,
		},
		Reply: &dto.SendChatResponseChat{
			Id:        assistantTurn.Id,
			Chat:      assistantTurn.Content,
			Role:      assistantTurn.Role,
			Category:  assistantTurn.Category,
			CreatedAt: assistantTurn.CreatedAt,
		},
		Category:      string(tc.detection.Category),
		CategoryLabel: mirs.Label(tc.detection.Category),
		Reason:        tc.detection.Reason,
	}, nil
}

// StreamChat runs one coaching turn, delivering the reply as fragment
// events terminated by a finish event, or an error event if generation
// fails mid-stream. Errors before streaming starts are returned so the
// transport can render a proper status. A cancelled stream keeps the user
// turn but persists nothing for the partial reply.
func (cs *coachService) StreamChat(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest, emit dto.StreamEmitter) error {
	tc, err := cs.prepareTurn(ctx, userId, request)
	if err != nil {
		return err
	}

	reply, err := cs.generator.GenerateStream(ctx, request.Chat, tc.detection.Category, tc.history, tc.refinement, tc.metrics, func(fragment string) error {
		if err := emit(dto.StreamEvent{Type: constant.StreamEventFragment, Text: fragment}); err != nil {
			return fmt.Errorf("%w: %v", errStreamAbandoned, err)
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, errStreamAbandoned) {
			// Client abandoned the stream. Drop the partial reply.
			cs.appLogger.Info("coach", "stream cancelled, partial reply dropped", map[string]interface{}{
				"score_id": request.ScoreId.String(),
			})
			return nil
		}
		cs.appLogger.Error("coach", "stream generation failed", map[string]interface{}{"error": err.Error()})
		_ = emit(dto.StreamEvent{Type: constant.StreamEventError, Message: "Failed to generate a coaching reply. Please try again."})
		return nil
	}

	if _, err := cs.persistAssistantTurn(ctx, userId, request.ScoreId, reply, tc.detection); err != nil {
		_ = emit(dto.StreamEvent{Type: constant.StreamEventError, Message: "Failed to save the coaching reply."})
		return nil
	}

	return emit(dto.StreamEvent{Type: constant.StreamEventFinish,
		Category:      string(tc.detection.Category),
		CategoryLabel: mirs.Label(tc.detection.Category),
		Reason:        tc.detection.Reason,
	})
}
