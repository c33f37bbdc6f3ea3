package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/thereayou/eventchat/internal/config"
	"github.com/thereayou/eventchat/internal/database"
	"github.com/thereayou/eventchat/internal/handlers"
	"github.com/thereayou/eventchat/internal/services"
	ws "github.com/thereayou/eventchat/internal/websocket"
	"github.com/thereayou/eventchat/pkg/auth"
)

const (
	accessTokenDuration = 24 * time.Hour
	redisPingTimeout    = 3 * time.Second
)

type Server struct {
	Router     *gin.Engine
	DB         *database.Database
	Redis      *redis.Client
	JWTManager *auth.JWTManager
	Hub        *ws.Hub

	cfg        *config.Config
	log        *slog.Logger
	httpServer *http.Server
}

func NewServer(cfg *config.Config, log *slog.Logger) (*Server, error) {
	if !strings.EqualFold(cfg.LogLevel, "DEBUG") {
		gin.SetMode(gin.ReleaseMode)
	}

	dbConn := &database.Database{}
	if err := dbConn.Connect(cfg.DatabaseURL); err != nil {
		return nil, fmt.Errorf("postgres connect failed: %w", err)
	}

	rdb, blacklist, err := connectRedis(cfg.RedisURL, log)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	jwtMgr := auth.NewJWTManager(cfg.JWTSecret, accessTokenDuration)

	hub := ws.NewHub(ws.NewRegistry(), ws.HubConfig{
		HeartbeatInterval: cfg.HeartbeatInterval,
		WriteWait:         cfg.WriteWait,
		MaxMessageSize:    cfg.MaxMessageSize,
		SendBufferSize:    cfg.SendBufferSize,
	}, log)

	chatH := handlers.NewChatHandler(
		hub,
		services.NewTokenVerifier(jwtMgr, blacklist),
		dbConn,
		dbConn,
		handlers.ChatPolicy{
			AuthzFailure:    cfg.AuthzPolicy(),
			IdentityFailure: cfg.IdentityPolicy(),
			AllowGuestJoin:  cfg.AllowGuestJoin,
		},
		log,
	)
	wsH := handlers.NewWebSocketHandler(hub, chatH, cfg.Origins())
	healthH := handlers.NewHealthHandler(hub)

	router := NewRouter(log)
	APIEndpoints(router, healthH)
	ChatEndpoints(router, cfg.ChatPathPrefix, cfg.AccessTokenCookie, wsH)

	return &Server{
		Router:     router,
		DB:         dbConn,
		Redis:      rdb,
		JWTManager: jwtMgr,
		Hub:        hub,
		cfg:        cfg,
		log:        log,
		httpServer: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// connectRedis подключает черный список токенов. Без REDIS_URL проверка отзыва отключена.
func connectRedis(url string, log *slog.Logger) (*redis.Client, services.TokenBlacklist, error) {
	if url == "" {
		log.Info("REDIS_URL not set, token revocation check disabled")
		return nil, nil, nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("Redis unreachable at startup, revocation checks will fail until it recovers", "error", err)
	}
	return rdb, services.NewRedisBlacklist(rdb), nil
}

// Run запускает hub и HTTP-сервер и блокируется до отмены ctx.
func (s *Server) Run(ctx context.Context) error {
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go s.Hub.Run(hubCtx)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Server starting", "addr", s.httpServer.Addr, "chat_prefix", s.cfg.ChatPathPrefix)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		s.log.Info("Shutting down")
	case runErr = <-errCh:
		s.log.Error("Server run error", "error", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Warn("HTTP shutdown incomplete", "error", err)
	}

	// Закрываем WebSocket-соединения: http.Server их не отслеживает
	stopHub()
	select {
	case <-s.Hub.Done():
	case <-shutdownCtx.Done():
		s.log.Warn("Hub did not stop in time")
	}

	s.close()
	return runErr
}

func (s *Server) close() {
	if err := s.DB.Close(); err != nil {
		s.log.Warn("Failed to close database", "error", err)
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			s.log.Warn("Failed to close redis", "error", err)
		}
	}
}
