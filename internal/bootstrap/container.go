package bootstrap

import (
	"context"
	"log"

	"ai-reading-be/internal/config"
	"ai-reading-be/internal/controller"
	"ai-reading-be/internal/pkg/logger"
	"ai-reading-be/internal/repository/cloud"
	"ai-reading-be/internal/repository/memory"
	"ai-reading-be/internal/repository/unitofwork"
	"ai-reading-be/internal/service"
	"ai-reading-be/pkg/inference"
	"ai-reading-be/pkg/llm/factory"
	"ai-reading-be/pkg/persistence"

	internalWS "ai-reading-be/internal/websocket"
	pktNats "ai-reading-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	DocumentController controller.IDocumentController
	ReadingController  controller.IReadingController
	FeedController     controller.ISessionFeedController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	Logger logger.ILogger

	closers []func()
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	traceLogger := logger.NewIsolatedLogger(cfg.App.TraceLogFilePath)
	c := &Container{Logger: sysLogger}

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)
	debouncer := persistence.NewDebouncer(pubSub, cfg.Reading.SnapshotTopic, cfg.Reading.SnapshotDebounce, sysLogger)
	// debouncer first so its final flush still reaches the bus
	c.closers = append(c.closers, debouncer.Close, func() { _ = pubSub.Close() })

	// 3. Infrastructure
	// Redis
	rdb, err := cloud.ConnectRedis(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		rdb = redis.NewClient(&redis.Options{Addr: cfg.App.RedisURL})
	}
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	snapshotStore := &persistence.Mirror{
		Primary:   service.NewSnapshotStore(uowFactory),
		Secondary: cloud.NewSnapshotCache(rdb, cfg.Reading.SnapshotCacheTTL),
		Logger:    sysLogger,
	}

	// Live session feed
	hub := internalWS.NewHub(rdb, sysLogger)
	hubCtx, stopHub := context.WithCancel(context.Background())
	go hub.Run(hubCtx)
	// hub subscribes through rdb, stop it first
	c.closers = append(c.closers, stopHub, func() { _ = rdb.Close() })
	publishers := []service.EventPublisher{hub}

	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	} else {
		publishers = append(publishers, natsPub)
		c.closers = append(c.closers, natsPub.Close)
	}
	eventPublisher := service.NewFanoutPublisher(publishers...)

	// 4. Inference
	llmProvider, err := factory.NewLLMProvider(context.Background(), factory.Config{
		Provider: cfg.Ai.Provider,
		Model:    cfg.Ai.Model,
		BaseURL:  cfg.BaseURL(),
		APIKey:   cfg.APIKey(),
	})
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.Provider, cfg.Ai.Model)
	gateway := inference.NewGateway(llmProvider, sysLogger,
		inference.WithTraceLogger(traceLogger),
		inference.WithModel(cfg.Ai.Model),
	)

	// 5. Services
	sessionRepo := memory.NewSessionRepository(cfg.Reading.SessionTTL)
	documentService := service.NewDocumentService(
		uowFactory,
		snapshotStore,
		cfg.App.UploadDir,
		cfg.App.MaxUploadBytes,
		sysLogger,
	)
	readingService := service.NewReadingService(
		sessionRepo,
		gateway,
		documentService,
		snapshotStore,
		debouncer,
		eventPublisher,
		sysLogger,
		service.ReadingOptions{
			DiagnosisTimeout:      cfg.Reading.DiagnosisTimeout,
			ResetMasteryOnRestore: cfg.Reading.ResetMasteryOnRestore,
		},
	)
	documentService.SetSessionDiscarder(readingService)

	c.ConsumerService = service.NewSnapshotConsumerService(
		pubSub,
		cfg.Reading.SnapshotTopic,
		snapshotStore,
		sysLogger,
	)

	// 6. Controllers
	c.DocumentController = controller.NewDocumentController(documentService, cfg.Keys.JwtSecret)
	c.ReadingController = controller.NewReadingController(readingService, cfg.Keys.JwtSecret)
	c.FeedController = controller.NewSessionFeedController(hub, cfg.Keys.JwtSecret)

	return c
}

// Close flushes pending snapshots and releases connections.
func (c *Container) Close() {
	for _, closer := range c.closers {
		closer()
	}
	_ = c.Logger.Sync()
}
