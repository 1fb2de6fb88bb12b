// Package api 파이프라인 백엔드 HTTP 서버
package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	ginlogger "github.com/FabienMht/ginslog/logger"
	ginrecovery "github.com/FabienMht/ginslog/recovery"
	"github.com/gin-gonic/gin"

	"github.com/Kshitiz-Mhto/streampipes/internal/api/handlers"
	"github.com/Kshitiz-Mhto/streampipes/internal/api/middleware"
	"github.com/Kshitiz-Mhto/streampipes/internal/services"
	"github.com/Kshitiz-Mhto/streampipes/pkg/config"
	"github.com/Kshitiz-Mhto/streampipes/pkg/database"
	"github.com/Kshitiz-Mhto/streampipes/pkg/models"
)

// HealthChecker 외부 의존성 상태 확인
type HealthChecker func() error

// ServerConfig 서버 구성
type ServerConfig struct {
	DB          *database.DB
	Manager     *services.PipelineManager
	JWTSecret   string
	UsersConfig *config.UsersConfig
	Version     string
	Logger      *slog.Logger
	// Checks /ready에서 추가로 확인할 항목 (예: redis)
	Checks map[string]HealthChecker
}

// Server API 서버
type Server struct {
	router          *gin.Engine
	db              *database.DB
	jwtSecret       []byte
	usersConfig     *config.UsersConfig
	version         string
	logger          *slog.Logger
	checks          map[string]HealthChecker
	pipelineHandler *handlers.PipelineHandler
	categoryHandler *handlers.CategoryHandler
	connectHandler  *handlers.ConnectHandler

	mu         sync.Mutex
	httpServer *http.Server
}

// NewServer 새 서버 생성
func NewServer(cfg *ServerConfig) *Server {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		router:          gin.New(),
		db:              cfg.DB,
		jwtSecret:       []byte(cfg.JWTSecret),
		usersConfig:     cfg.UsersConfig,
		version:         cfg.Version,
		logger:          logger,
		checks:          cfg.Checks,
		pipelineHandler: handlers.NewPipelineHandler(cfg.Manager, logger),
		categoryHandler: handlers.NewCategoryHandler(cfg.DB, logger),
		connectHandler:  handlers.NewConnectHandler(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes 라우트 설정
func (s *Server) setupRoutes() {
	// 미들웨어
	s.router.Use(ginrecovery.New(s.logger))
	s.router.Use(middleware.CORSMiddleware())
	s.router.Use(middleware.RequestIDMiddleware())
	s.router.Use(ginlogger.New(s.logger))

	// 헬스체크 (인증 불필요)
	s.router.GET("/health", s.health)
	s.router.GET("/ready", s.ready)

	// API v2 (사용자 범위)
	user := s.router.Group("/api/v2/users/:username")
	user.Use(middleware.AuthMiddleware(s.jwtSecret), middleware.UserScopeMiddleware(s.usersConfig))
	{
		pipelines := user.Group("/pipelines")
		{
			pipelines.GET("/own", s.pipelineHandler.ListOwn)
			pipelines.GET("/system", s.pipelineHandler.ListSystem)
			pipelines.POST("", s.pipelineHandler.Store)
			pipelines.GET("/:id", s.pipelineHandler.Get)
			pipelines.PUT("/:id", s.pipelineHandler.Update)
			pipelines.DELETE("/:id", s.pipelineHandler.Delete)
			pipelines.GET("/:id/start", s.pipelineHandler.Start)
			pipelines.GET("/:id/stop", s.pipelineHandler.Stop)
			pipelines.GET("/:id/status", s.pipelineHandler.GetStatus)
			pipelines.POST("/migrate/:id", s.pipelineHandler.Migrate)
			pipelines.PUT("/reconfigure/:id", s.pipelineHandler.Reconfigure)
		}

		categories := user.Group("/pipelinecategories")
		{
			categories.GET("", s.categoryHandler.List)
			categories.POST("", s.categoryHandler.Store)
			categories.DELETE("/:id", s.categoryHandler.Delete)
		}

		user.POST("/connect/guess/schema", s.connectHandler.GuessSchema)
	}
}

// health 헬스체크
func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthStatus{
		Status:    "healthy",
		Version:   s.version,
		Timestamp: time.Now(),
	})
}

// ready 준비 상태 확인
func (s *Server) ready(c *gin.Context) {
	checks := map[string]string{"database": "ok"}
	ready := true

	if err := s.db.Health(); err != nil {
		checks["database"] = err.Error()
		ready = false
	}
	for name, check := range s.checks {
		checks[name] = "ok"
		if err := check(); err != nil {
			checks[name] = err.Error()
			ready = false
		}
	}

	status, code := "ready", http.StatusOK
	if !ready {
		status, code = "not ready", http.StatusServiceUnavailable
	}
	c.JSON(code, models.HealthStatus{
		Status:    status,
		Version:   s.version,
		Timestamp: time.Now(),
		Checks:    checks,
	})
}

// Run addr에서 서버 실행, Shutdown으로 종료되면 nil 반환
func (s *Server) Run(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve 리스너에서 서버 실행
func (s *Server) Serve(ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 진행 중인 요청을 마친 뒤 서버 종료
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// Router 라우터 반환
func (s *Server) Router() *gin.Engine {
	return s.router
}
