package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"support-agent/api"
	"support-agent/dao"
	"support-agent/internal/aiclient"
	"support-agent/internal/auth"
	"support-agent/internal/config"
	"support-agent/internal/database"
	"support-agent/internal/events"
	"support-agent/internal/mailer"
	"support-agent/realtime"
	"support-agent/route"
	"support-agent/service"
)

// API is the HTTP server with everything it depends on.
type API struct {
	cfg      *config.Config
	db       *gorm.DB
	redis    *redis.Client
	bridge   *realtime.RedisBridge
	producer *events.Producer
	httpSrv  *http.Server
	log      zerolog.Logger
}

func NewAPI(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*API, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	db, err := database.Open(ctx, cfg.Database.Driver, cfg.DatabaseURL(), cfg.Database.MaxConns, log)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	if err := database.Prepare(ctx, cfg.Database.Driver, db, log); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	a := &API{cfg: cfg, db: db, log: log.With().Str("component", "API").Logger()}

	nodeID, _ := os.Hostname()
	if nodeID == "" {
		nodeID = uuid.New().String()
	}

	hub := realtime.NewHub(cfg.Chat.StreamBuffer, log)
	deps := realtime.RouterDeps{Hub: hub, NodeID: nodeID}
	if cfg.Redis.Addr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store := dao.NewRedisStore(a.redis, cfg.Redis.KeyPrefix, cfg.Redis.TTL)
		if err := store.Ping(ctx); err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.bridge = realtime.NewRedisBridge(a.redis, cfg.Redis.Channel, hub, log)
		deps.Transport = a.bridge
		deps.Presence = store
	} else {
		a.log.Warn().Msg("redis not configured, rooms and presence are local to this process")
	}

	businesses := dao.NewBusinessStore(db)
	sessions := dao.NewSessionStore(db)
	knowledge := dao.NewKnowledgeStore(db)
	escalations := dao.NewEscalationStore(db)
	messages := dao.NewMessageStore(db)
	deps.Messages = messages
	deps.Escalations = escalations
	rt := realtime.NewRouter(deps, log)

	a.producer = events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
	signer, err := auth.NewSigner(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}

	var mail service.Mailer
	if m := mailer.New(mailer.Config(cfg.Mail)); m.Enabled() {
		mail = m
	}

	queueSvc := service.NewQueueService(dao.NewQueueStore(db), dao.NewAgentStore(db), escalations, rt, a.producer, log)
	escSvc := service.NewEscalationService(service.EscalationDeps{
		Businesses:  businesses,
		Sessions:    sessions,
		Escalations: escalations,
		Queue:       queueSvc,
		Broadcaster: rt,
		Events:      a.producer,
		Mailer:      mail,
	}, log)
	chatSvc := service.NewChatService(service.ChatDeps{
		Businesses:  businesses,
		Sessions:    sessions,
		Messages:    messages,
		Knowledge:   knowledge,
		Escalations: escalations,
		Generator:   aiclient.NewClient(cfg.AI.BaseURL, cfg.AI.Timeout),
	}, service.ChatOptions{
		MaxMessageLength: cfg.Chat.MaxMessageLength,
		HistoryLimit:     cfg.Chat.HistoryLimit,
		ReplyTimeout:     cfg.Chat.ReplyTimeout,
		Temperature:      cfg.AI.Temperature,
		MaxTokens:        cfg.AI.MaxTokens,
	}, log)
	msgSvc := service.NewMessageService(sessions, escalations, messages, rt, log)

	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(gin.Recovery(), api.RequestLogger(log))
	route.Register(r, route.Services{
		Chat:        chatSvc,
		Escalations: escSvc,
		Queue:       queueSvc,
		Messages:    msgSvc,
		Realtime:    rt,
		Signer:      signer,
	})

	a.httpSrv = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}
	return a, nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (a *API) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.log.Info().Str("addr", a.httpSrv.Addr).Msg("http server listening")
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})
	if a.bridge != nil {
		g.Go(func() error {
			return a.bridge.Run(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	err := g.Wait()
	a.close()
	return err
}

func (a *API) close() {
	if err := a.producer.Close(); err != nil {
		a.log.Error().Err(err).Msg("close kafka producer")
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Error().Err(err).Msg("close redis")
		}
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	a.log.Info().Msg("stopped")
}
