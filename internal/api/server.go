package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"taskhive/internal/api/auth"
	"taskhive/internal/api/middleware"
	"taskhive/internal/config"
	"taskhive/internal/model"
	"taskhive/internal/pkg/metrics"
	"taskhive/internal/pkg/ratelimit"
	"taskhive/internal/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// Server 封装了 API 服务所需的依赖和路由处理。
//
// 它持有数据库连接、可选的 Redis 客户端（仅用于限流）、
// Token 服务以及 Gin 路由引擎。
type Server struct {
	cfg       *config.Config
	logger    *slog.Logger
	db        *gorm.DB
	rdb       *redis.Client
	router    *gin.Engine
	tokens    *token.Service
	auth      *auth.Handler
	taskStore TaskStore
	limiter   *ratelimit.Limiter
}

// NewServer 初始化 API 服务器。
//
// 它负责：
// 1. 连接 PostgreSQL 并执行自动迁移
// 2. 连接 Redis（配置了地址时，仅用于凭证接口限流）
// 3. 构建 Token 服务（密钥缺失在配置加载阶段已拦截）
// 4. 初始化 Gin 路由引擎
//
// 参数:
//
//	ctx: 上下文
//	cfg: 配置对象
//	logger: 日志记录器
//
// 返回值:
//
//	*Server: 初始化完成的服务器实例
//	error: 初始化失败返回错误
func NewServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := gorm.Open(postgres.Open(cfg.Postgres.DSN), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Silent), // 关闭 GORM 调试日志
		TranslateError: true,                                          // 把唯一索引冲突翻译成 gorm.ErrDuplicatedKey
	})
	if err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).AutoMigrate(&model.User{}, &model.Task{}); err != nil {
		return nil, err
	}

	var rdb *redis.Client
	var limiter *ratelimit.Limiter
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       0,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, err
		}
		limiter = ratelimit.New(rdb, "taskhive:ratelimit:credentials:", cfg.App.RateLimit, cfg.App.RateBurst)
	}

	tokens, err := token.NewService(token.Config{
		Secret: cfg.Security.JWTSecret,
		TTL:    cfg.Security.TokenTTL,
	})
	if err != nil {
		return nil, err
	}

	metrics.InitMetrics()

	if cfg.App.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Metrics())

	store := newGormStore(db)
	s := &Server{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		rdb:       rdb,
		router:    r,
		tokens:    tokens,
		auth:      auth.NewHandler(store, tokens, logger),
		taskStore: store,
		limiter:   limiter,
	}
	s.registerRoutes()
	return s, nil
}

// Router 返回 HTTP 路由处理器。
func (s *Server) Router() http.Handler {
	return s.router
}

// Close 关闭数据库与 Redis 连接。
func (s *Server) Close() error {
	var firstErr error
	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			firstErr = err
		}
	}
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
		} else {
			if closeErr := sqlDB.Close(); closeErr != nil {
				if firstErr == nil {
					firstErr = closeErr
				}
			}
		}
	}
	return firstErr
}

// registerRoutes 注册所有的 API 路由。
func (s *Server) registerRoutes() {
	// Prometheus metrics 端点
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.router.Group("/api")
	api.GET("/health", s.handleHealth)

	credentials := api.Group("/auth")
	credentials.Use(middleware.CredentialRateLimit(s.limiter, s.logger))
	credentials.POST("/register", s.auth.Register)
	credentials.POST("/login", s.auth.Login)

	api.GET("/auth/me", middleware.Auth(s.tokens), s.auth.Me)

	tasks := api.Group("/tasks")
	tasks.Use(middleware.Auth(s.tokens))
	tasks.GET("", s.handleListTasks)
	tasks.POST("", s.handleCreateTask)
	tasks.GET("/:id", s.handleGetTask)
	tasks.PUT("/:id", s.handleUpdateTask)
	tasks.DELETE("/:id", s.handleDeleteTask)
}

// handleHealth 探活：验证数据库连通性并返回库内时间。
//
// GET /api/health
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	var now time.Time
	if err := s.db.WithContext(ctx).Raw("SELECT NOW()").Scan(&now).Error; err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "unhealthy",
			"error":  "Database connection failed",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": now,
		"database":  "connected",
	})
}
