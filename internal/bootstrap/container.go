package bootstrap

import (
	"context"
	"log"

	"mirs-coach-be/internal/config"
	"mirs-coach-be/internal/constant"
	"mirs-coach-be/internal/controller"
	"mirs-coach-be/internal/pkg/logger"
	"mirs-coach-be/internal/pkg/usage"
	"mirs-coach-be/internal/repository/memory"
	"mirs-coach-be/internal/repository/unitofwork"
	"mirs-coach-be/internal/service"
	"mirs-coach-be/internal/websocket"
	"mirs-coach-be/pkg/coach"
	"mirs-coach-be/pkg/llm/factory"

	pktNats "mirs-coach-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	CoachController controller.ICoachController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// WebSockets
	ChatHandler *websocket.ChatHandler
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. LLM Provider
	llmProvider, err := factory.NewProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.OpenAIKey,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. Infrastructure
	// NATS (optional, forwards turn events when configured)
	var natsPub *pktNats.Publisher
	if cfg.App.NatsURL != "" {
		natsPub, err = pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
			natsPub = nil
		}
	}

	// Redis (optional, backs the daily usage limiter)
	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{
				Addr: cfg.App.RedisURL,
			}
		}
		rdb = redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
	}
	limiter := usage.NewLimiter(rdb, cfg.Coach.DailyTurnLimit, sysLogger)

	// 5. Domain Components
	classifierRepo := memory.NewClassifierRepository()
	rubricSource := service.NewRubricSource(uowFactory)
	generator := coach.NewGenerator(llmProvider, cfg.Coach.Temperature, cfg.Coach.HistoryBudget, nil)

	coachService := service.NewCoachService(
		uowFactory,
		rubricSource,
		classifierRepo,
		llmProvider,
		generator,
		limiter,
		pubSub,
		sysLogger,
		cfg.Coach.ClassifierSnippetMax,
		cfg.Coach.ModelFallback,
	)

	consumerService := service.NewConsumerService(
		pubSub,
		constant.TurnCompletedTopic,
		uowFactory,
		natsPub,
	)

	wsLogger := logger.NewIsolatedLogger("logs/websocket.log")
	chatHandler := websocket.NewChatHandler(coachService, wsLogger)

	return &Container{
		CoachController: controller.NewCoachController(coachService),
		ConsumerService: consumerService,
		ChatHandler:     chatHandler,
	}
}
