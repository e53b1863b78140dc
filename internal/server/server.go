package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"lightcore/internal/config"
	"lightcore/internal/handler"
	"lightcore/internal/pkg/cache"
	"lightcore/internal/pkg/n8n"
	"lightcore/internal/server/middleware"
	"lightcore/internal/service"
)

// Server HTTP 服务器
type Server struct {
	cfg      *config.Config
	engine   *gin.Engine
	sessions *cache.SessionCache
}

// New 创建服务器实例
func New(cfg *config.Config) (*Server, error) {
	// 设置 Gin 模式
	switch cfg.Server.Mode {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建 Gin 引擎
	engine := gin.New()

	// 初始化 Redis (可选，用于会话限额)
	var sessions *cache.SessionCache
	if cfg.Redis.Addr != "" {
		sc, err := cache.NewSessionCache(&cfg.Redis, cfg.Chat.SessionTTL)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to Redis, session limit disabled")
		} else {
			sessions = sc
			log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to Redis")
		}
	}

	srv := &Server{
		cfg:      cfg,
		engine:   engine,
		sessions: sessions,
	}

	// 设置路由
	srv.setupRoutes()

	return srv, nil
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	// 全局中间件
	s.engine.Use(middleware.Recovery())
	s.engine.Use(middleware.RequestID())
	s.engine.Use(middleware.Logger())
	s.engine.Use(middleware.CORS())

	// 健康检查
	healthHandler := handler.NewHealthHandler()
	s.engine.GET("/health", healthHandler.Health)
	s.engine.GET("/ready", healthHandler.Ready)

	// Swagger 文档
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// webhook 客户端与聊天服务
	client := n8n.NewClient(s.cfg.Webhook.UserAgent, s.cfg.Chat.RequestTimeout)

	// 注意不能把值为 nil 的 *SessionCache 直接塞进接口
	var counter service.SessionCounter
	if s.sessions != nil {
		counter = s.sessions
	}
	chatSvc := service.NewChatService(s.cfg, client, counter)

	chatHdl := handler.NewChatHandler(chatSvc)
	financeHdl := handler.NewFinanceHandler(chatSvc)

	// API v1
	v1 := s.engine.Group("/api/v1")
	{
		v1.POST("/chat", chatHdl.Chat)
		v1.GET("/chat/status", chatHdl.Status)
		v1.POST("/finance-chat", financeHdl.FinanceChat)
	}
}

// Run 启动服务器
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	// 启动服务器
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 等待关闭信号或错误
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down server...")

		if s.sessions != nil {
			if err := s.sessions.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close Redis connection")
			}
		}

		return srv.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}

// Engine 获取 Gin 引擎 (用于测试)
func (s *Server) Engine() *gin.Engine {
	return s.engine
}
