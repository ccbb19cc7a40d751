package bootstrap

import (
	"context"
	"log"
	"os"
	"strings"

	"post-editor-be/internal/config"
	"post-editor-be/internal/controller"
	"post-editor-be/internal/handler"
	"post-editor-be/internal/pkg/logger"
	"post-editor-be/internal/repository/memory"
	redisrepo "post-editor-be/internal/repository/redis"
	"post-editor-be/internal/repository/unitofwork"
	"post-editor-be/internal/service"
	"post-editor-be/internal/websocket"
	"post-editor-be/pkg/events"

	pktNats "post-editor-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	EditorController    controller.IEditorController
	EditorSocketHandler *handler.EditorSocketHandler

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
	WebSocketHub    *websocket.Hub

	Logger logger.ILogger

	closers []func()
}

func NewContainer(db *gorm.DB, cfg *config.Config, sysLogger logger.ILogger) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		watermillLogger,
	)

	c := &Container{Logger: sysLogger}
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// In-Memory Session Storage
	sessionRepo := memory.NewSessionRepository(cfg.Editor.SessionTTL, cfg.Editor.SessionJanitor)

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}
	c.closers = append(c.closers, func() { _ = rdb.Close() })
	draftRepo := redisrepo.NewDraftRepository(rdb, cfg.Editor.DraftTTL)

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger(cfg.Editor.SocketLogPath)
	wsHub := websocket.NewHub(rdb, cfg.Editor.FanoutChannel, wsLogger)

	// NATS
	var eventPublisher service.EventPublisher
	natsConn, err := pktNats.Connect(context.Background(), cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS: %v", err)
	} else {
		eventPublisher = pktNats.NewPublisher(natsConn)
	}

	publisherService := service.NewPublisherService(cfg.Editor.ChangeTopic, pubSub)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Editor.ChangeTopic,
		draftRepo,
		wsHub,
		sysLogger,
		cfg.Editor.SessionTTL,
	)

	editorService := service.NewEditorService(
		uowFactory,
		sessionRepo,
		draftRepo,
		publisherService,
		eventPublisher,
		wsHub,
		sysLogger,
		service.EditorOptions{
			MergeWindow:  cfg.Editor.MergeWindow,
			HistoryLimit: cfg.Editor.HistoryLimit,
		},
	)

	if natsConn != nil {
		natsSub := pktNats.NewSubscriber(natsConn, sysLogger.Named("NatsSubscriber"))
		// Every instance needs its own durable so each one sees every save.
		durable := cfg.Editor.NatsDurablePrefix + "-" + instanceName()
		if err := natsSub.Subscribe(pktNats.Subject(events.TypePostContentSaved), durable, editorService.HandlePostSaved); err != nil {
			log.Printf("[WARN] Failed to subscribe to %s: %v", events.TypePostContentSaved, err)
		}
		c.closers = append(c.closers, natsSub.Stop, natsConn.Close)
	}

	c.EditorController = controller.NewEditorController(editorService, cfg.Auth.JWTSecret)
	c.EditorSocketHandler = handler.NewEditorSocketHandler(editorService, wsHub, cfg.Auth.JWTSecret, wsLogger)
	c.ConsumerService = consumerService
	c.WebSocketHub = wsHub
	return c
}

// Close releases the bus connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

func instanceName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "local"
	}
	// Durable names may not contain subject tokens.
	return strings.NewReplacer(".", "-", "*", "-", ">", "-", " ", "-").Replace(host)
}
