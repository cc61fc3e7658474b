package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ragone-be/internal/config"
	"ragone-be/internal/controller"
	"ragone-be/internal/handler"
	"ragone-be/internal/pkg/logger"
	"ragone-be/internal/repository/memory"
	"ragone-be/internal/repository/unitofwork"
	"ragone-be/internal/service"
	"ragone-be/internal/websocket"
	"ragone-be/pkg/cache"
	"ragone-be/pkg/character/profile"
	"ragone-be/pkg/embedding"
	"ragone-be/pkg/llm/factory"
	"ragone-be/pkg/rag/fusion"
	"ragone-be/pkg/rag/rerank"
	"ragone-be/pkg/rag/search"
	"ragone-be/pkg/rag/session"

	pktNats "ragone-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const moduleTag = "BOOTSTRAP"

type Container struct {
	// Controllers
	RagController           controller.IRagController
	KnowledgeBaseController controller.IKnowledgeBaseController
	CharacterController     controller.ICharacterController
	RolePlayController      controller.IRolePlayController

	// Background
	ConsumerService    service.IConsumerService
	StatusRelayService *service.StatusRelayService
	WebSocketHub       *websocket.Hub

	ProfileStatusHandler *handler.ProfileStatusHandler

	Logger logger.ILogger
	// nil when PROFILE_AUDIT_LOG_PATH is empty
	auditLogger logger.ILogger

	pubSub  *gochannel.GoChannel
	rdb     *redis.Client
	natsPub *pktNats.Publisher
	natsSub *pktNats.Subscriber
}

func NewContainer(db *gorm.DB, cfg *config.Config) (*Container, error) {
	// 1. Core facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Job queue
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NewStdLogger(false, false),
	)

	// 3. Model providers
	embeddingProvider, err := embedding.NewProvider(
		cfg.Ai.EmbeddingProvider,
		cfg.Ai.EmbeddingBaseURL,
		cfg.Ai.EmbeddingModel,
		cfg.Ai.EmbeddingAPIKey,
	)
	if err != nil {
		return nil, fmt.Errorf("embedding provider: %w", err)
	}
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.LLMBaseURL,
		cfg.Ai.LLMAPIKey,
	)
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}
	sysLogger.Info(moduleTag, "Model providers ready", map[string]interface{}{
		"embedding": cfg.Ai.EmbeddingProvider,
		"llm":       cfg.Ai.LLMProvider,
		"model":     cfg.Ai.LLMModel,
	})

	// 4. Redis (cluster fan-out + conversation cache)
	rdb := newRedisClient(cfg.App.RedisURL, sysLogger)

	var store cache.Store
	if cfg.ChatCache.Backend == "memory" || rdb == nil {
		store = memory.NewCacheStore()
	} else {
		store = cache.NewRedisStore(rdb)
	}
	sessions := session.NewManager(store, session.Config{
		Enabled:              cfg.ChatCache.Enabled,
		MaxConversationTurns: cfg.ChatCache.MaxConversationTurns,
		TTL:                  time.Duration(cfg.ChatCache.TTLHours) * time.Hour,
	}, sysLogger)

	// 5. Retrieval
	retriever := search.NewAdapter(uowFactory, embeddingProvider, sysLogger)
	engine := fusion.NewEngine(retriever, fusion.Config{
		HybridEnabled: cfg.Retrieval.HybridEnabled,
		VectorWeight:  cfg.Retrieval.VectorWeight,
		KeywordWeight: cfg.Retrieval.KeywordWeight,
		MaxResults:    cfg.Retrieval.MaxResults,
		RerankEnabled: cfg.Retrieval.RerankEnabled,
		Rerank: rerank.Config{
			RelevanceWeight:    cfg.Retrieval.RelevanceWeight,
			DiversityWeight:    cfg.Retrieval.DiversityWeight,
			MaxRerankedResults: cfg.Retrieval.MaxRerankedResults,
		},
	}, sysLogger)

	// 6. Event bus, optional
	var natsPub *pktNats.Publisher
	var natsSub *pktNats.Subscriber
	if cfg.App.NatsURL != "" {
		if natsPub, err = pktNats.NewPublisher(cfg.App.NatsURL); err != nil {
			sysLogger.Warn(moduleTag, "NATS publisher unavailable", map[string]interface{}{"error": err.Error()})
			natsPub = nil
		}
		if natsSub, err = pktNats.NewSubscriber(cfg.App.NatsURL); err != nil {
			sysLogger.Warn(moduleTag, "NATS subscriber unavailable", map[string]interface{}{"error": err.Error()})
			natsSub = nil
		}
	}

	// 7. Status delivery
	wsHub := websocket.NewHub(rdb, sysLogger)

	// 8. Services
	pipeline := profile.NewPipeline(
		service.NewProfileStore(uowFactory),
		engine,
		llmProvider,
		profile.Config{
			QueryCap:  cfg.Profile.QueryCap,
			ModelName: cfg.Ai.LLMModel,
			Template:  templateConfig(cfg.Profile),
		},
		sysLogger,
	)
	var auditLogger logger.ILogger
	if cfg.Profile.AuditLogPath != "" {
		auditLogger = logger.NewIsolatedLogger(cfg.Profile.AuditLogPath)
		pipeline.WithAuditLog(auditLogger)
	}

	publisherService := service.NewPublisherService(cfg.Profile.TopicName, pubSub)
	profileService := service.NewProfileService(uowFactory, pipeline, publisherService, natsPub, wsHub, sysLogger)
	consumerService := service.NewConsumerService(pubSub, cfg.Profile.TopicName, profileService, sysLogger)

	ragService := service.NewRagService(uowFactory, engine, llmProvider, sessions, sysLogger)
	knowledgeBaseService := service.NewKnowledgeBaseService(uowFactory, sysLogger)
	characterService := service.NewCharacterService(uowFactory, profileService, sysLogger)
	rolePlayService := service.NewRolePlayService(uowFactory, engine, llmProvider, sessions, natsPub, sysLogger)

	var relay *service.StatusRelayService
	if natsSub != nil {
		relay = service.NewStatusRelayService(natsSub, wsHub, sysLogger)
	}

	// 9. Controllers
	return &Container{
		RagController:           controller.NewRagController(ragService),
		KnowledgeBaseController: controller.NewKnowledgeBaseController(knowledgeBaseService),
		CharacterController:     controller.NewCharacterController(characterService, rolePlayService),
		RolePlayController:      controller.NewRolePlayController(rolePlayService),
		ConsumerService:         consumerService,
		StatusRelayService:      relay,
		WebSocketHub:            wsHub,
		ProfileStatusHandler:    handler.NewProfileStatusHandler(wsHub, cfg.App.JwtSecret, sysLogger),
		Logger:                  sysLogger,
		auditLogger:             auditLogger,
		pubSub:                  pubSub,
		rdb:                     rdb,
		natsPub:                 natsPub,
		natsSub:                 natsSub,
	}, nil
}

// StartBackground runs the hub, the job consumer and the status relay until
// ctx is cancelled.
func (c *Container) StartBackground(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		c.WebSocketHub.Run(ctx)
		return nil
	})
	g.Go(func() error {
		return c.ConsumerService.Consume(ctx)
	})
	if c.StatusRelayService != nil {
		c.StatusRelayService.Start()
	}

	return g.Wait()
}

// Close releases the broker and cache connections.
func (c *Container) Close() {
	if err := c.pubSub.Close(); err != nil {
		c.Logger.Warn(moduleTag, "Failed to close job queue", map[string]interface{}{"error": err.Error()})
	}
	if c.natsSub != nil {
		c.natsSub.Close()
	}
	if c.natsPub != nil {
		c.natsPub.Close()
	}
	if c.rdb != nil {
		_ = c.rdb.Close()
	}
	if c.auditLogger != nil {
		_ = c.auditLogger.Sync()
	}
	_ = c.Logger.Sync()
}

func newRedisClient(url string, log logger.ILogger) *redis.Client {
	if url == "" {
		return nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Warn(moduleTag, "Failed to parse Redis URL, using it as address", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn(moduleTag, "Redis unreachable, cache and cluster fan-out degrade", map[string]interface{}{"error": err.Error()})
	}
	return rdb
}

func templateConfig(p config.ProfileConfig) profile.TemplateConfig {
	tc := profile.PresetConfig(profile.Preset(p.TemplatePreset))
	tc.Enabled = p.TemplateEnabled
	if p.ExampleCount > 0 {
		tc.ExampleCount = p.ExampleCount
	}
	tc.CustomPrefix = p.CustomPrefix
	tc.CustomSuffix = p.CustomSuffix

	for _, section := range p.DisabledSections {
		switch strings.TrimSpace(section) {
		case "basic_info":
			tc.IncludeBasicInfo = false
		case "personality_traits":
			tc.IncludePersonalityTraits = false
		case "workflow":
			tc.IncludeWorkflow = false
		case "speaking_style":
			tc.IncludeSpeakingStyle = false
		case "background_setting":
			tc.IncludeBackgroundSetting = false
		case "interaction_rules":
			tc.IncludeInteractionRules = false
		case "examples":
			tc.IncludeExamples = false
		}
	}
	return tc
}
