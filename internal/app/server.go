// internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"notification-relay/internal/config"
	"notification-relay/internal/db"
	notifyH "notification-relay/internal/handlers/notification"
	realtimeH "notification-relay/internal/handlers/realtime"
	wsHandler "notification-relay/internal/handlers/websocket"
	"notification-relay/internal/middleware"
	"notification-relay/internal/pkg/session"
	"notification-relay/internal/realtime"
	rtHandlers "notification-relay/internal/realtime/handler"
	notifyUsecase "notification-relay/internal/service/notification"
	"notification-relay/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
}

func NewServer(cfg config.AppConfig) *Server {
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	return &Server{cfg: cfg, engine: gin.New()}
}

// Start wires every component, serves HTTP and blocks until ctx is cancelled
// or the listener fails. Shutdown is graceful in both cases.
func (s *Server) Start(ctx context.Context) error {
	if err := s.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// ----- Logger -----
	logger, err := newLogger(s.cfg)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()
	s.logger = logger

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// ----- Orchestrator -----
	orchestrator := notifyUsecase.NewOrchestrator(notifyUsecase.Config{
		ActiveCapacity:  s.cfg.ActiveCapacity,
		HistoryCapacity: s.cfg.HistoryCapacity,
	}, logger)
	go orchestrator.Run(ctx)
	defer orchestrator.Close()

	// ----- Token provider -----
	tokens, redisClient, err := s.tokenProvider(ctx)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// ----- Realtime channel -----
	router := realtime.NewRouter(logger)
	router.RegisterHandler(rtHandlers.NewNotificationHandler(orchestrator, logger))
	defer router.Close()

	channel := realtime.NewChannel(realtime.Config{
		BaseURL:           s.cfg.NotifyBaseURL,
		HeartbeatInterval: s.cfg.HeartbeatInterval,
		MaxAttempts:       s.cfg.ReconnectMaxAttempts,
		Backoff:           newBackoff(s.cfg),
	}, tokens, router, logger)
	defer channel.Close()

	bridge := NewBridge(orchestrator, channel, logger)
	go bridge.Run(ctx)

	// ----- WebSocket Hub -----
	hub := websocket.NewHub(orchestrator, logger)
	states, unsubStates := orchestrator.Subscribe(16)
	events, unsubEvents := orchestrator.Events(64)
	defer unsubStates()
	defer unsubEvents()
	go hub.Run(ctx, states, events)

	// ----- Handlers -----
	handlers := &Handlers{
		NotifHandler:    notifyH.NewNotificationHandler(orchestrator),
		RealtimeHandler: realtimeH.NewRealtimeHandler(channel, logger),
		WSHandler:       wsHandler.NewWebSocketHandler(hub, s.cfg.UIAllowedOrigins, logger),
		APIAuth:         middleware.APIKeyAuth(s.cfg.APIToken),
	}
	if s.cfg.APIToken == "" {
		logger.Warn("API_TOKEN not set, control API is unauthenticated")
	}

	// ----- Middlewares -----
	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware(s.cfg.UIAllowedOrigins),
	)

	// ----- Router -----
	SetupRouter(s.engine, logger, handlers)

	if s.cfg.AutoConnect {
		go func() {
			if err := channel.Connect(ctx); err != nil {
				logger.Warn("initial connect failed", zap.Error(err))
			}
		}()
	}

	// ----- Start HTTP -----
	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server running", zap.String("addr", s.cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	channel.Disconnect()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("server stopped gracefully")
	return nil
}

// tokenProvider chains the configured token sources: a static token, a token
// file, then the Redis session store. The chain is guarded against expired
// or non-access JWTs.
func (s *Server) tokenProvider(ctx context.Context) (session.Provider, redis.UniversalClient, error) {
	var chain session.ChainProvider
	if s.cfg.NotifyToken != "" {
		chain = append(chain, session.StaticProvider(s.cfg.NotifyToken))
	}
	if s.cfg.NotifyTokenFile != "" {
		chain = append(chain, session.FileProvider{Path: s.cfg.NotifyTokenFile})
	}

	var client redis.UniversalClient
	if len(s.cfg.RedisAddrs) > 0 {
		var err error
		client, err = db.NewRedis(ctx, db.RedisConfig{
			ClusterMode: s.cfg.RedisClusterMode,
			Addresses:   s.cfg.RedisAddrs,
			Password:    s.cfg.RedisPass,
			DB:          s.cfg.RedisDB,
			PoolSize:    10,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		s.logger.Info("redis token store connected", zap.Strings("addrs", s.cfg.RedisAddrs))
		chain = append(chain, session.NewRedisProvider(client, s.cfg.RedisTokenKey))
	}

	if len(chain) == 0 {
		s.logger.Warn("no token source configured, push channel cannot authenticate")
	}

	return session.ExpiryGuard{Next: chain, Skew: s.cfg.TokenExpirySkew}, client, nil
}

func newBackoff(cfg config.AppConfig) realtime.Backoff {
	if cfg.ReconnectBackoff == "exponential" {
		return realtime.ExponentialBackoff{Base: cfg.ReconnectDelay, Max: cfg.ReconnectMaxDelay}
	}
	return realtime.FixedBackoff{Delay: cfg.ReconnectDelay}
}

func newLogger(cfg config.AppConfig) (*zap.Logger, error) {
	if cfg.IsDevelopment() || cfg.LogLevel == "debug" {
		return zap.NewDevelopment()
	}

	zcfg := zap.NewProductionConfig()
	if cfg.LogLevel != "" {
		level, err := zap.ParseAtomicLevel(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		zcfg.Level = level
	}
	return zcfg.Build()
}
