package app

import (
	"coder_edu_assessment/internal/config"
	"coder_edu_assessment/internal/controller"
	"coder_edu_assessment/internal/repository"
	"coder_edu_assessment/internal/service"
	"coder_edu_assessment/pkg/configwatcher"
	"coder_edu_assessment/pkg/database"
	"coder_edu_assessment/pkg/logger"
	"coder_edu_assessment/pkg/monitoring"
	"coder_edu_assessment/pkg/security"
	"coder_edu_assessment/pkg/tracing"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config    *config.Config
	ConfigDir string
	Router    *gin.Engine
	DB        *gorm.DB
	Redis     *redis.Client

	limiter         *security.RateLimiter
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
	stop            chan struct{}
}

type repositories struct {
	assessment *repository.AssessmentRepository
}

type services struct {
	assessment *service.AssessmentService
}

type controllers struct {
	assessment *controller.AssessmentController
	health     *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		assessment: repository.NewAssessmentRepository(db),
	}
}

// progressTracker Redis 未启用时退化为日志上报
func (a *App) progressTracker(cfg *config.Config, rdb *redis.Client) service.ProgressTracker {
	if rdb == nil {
		logger.Log.Info("Redis disabled, completion events are logged only")
		return service.LogProgressTracker{}
	}
	return service.NewRedisProgressTracker(
		rdb,
		cfg.Progress.Stream,
		cfg.Progress.MaxLen,
		time.Duration(cfg.Progress.Timeout)*time.Millisecond,
	)
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	return &services{
		assessment: service.NewAssessmentService(repos.assessment, a.progressTracker(cfg, rdb)),
	}
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		assessment: controller.NewAssessmentController(s.assessment),
		health:     controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	a.limiter = security.NewRateLimiter(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window())
	go a.limiter.Cleanup(time.Minute, a.stop)
	router.Use(a.limiter.Middleware())

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// OpenDB 按配置连接数据库，migrate 命令与 serve 共用
func OpenDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}
	return db, nil
}

func NewApp(cfg *config.Config, configDir string) (*App, error) {
	logger.InitLogger(cfg.Server.Mode)
	gin.SetMode(cfg.Server.Mode)
	logger.Log.Info("Logger initialized successfully", zap.String("mode", cfg.Server.Mode))

	db, err := OpenDB(cfg)
	if err != nil {
		return nil, err
	}
	// release 模式下迁移由 migrate 子命令单独执行
	if cfg.Server.Mode != gin.ReleaseMode {
		if err := database.Migrate(db); err != nil {
			return nil, fmt.Errorf("migrate database: %w", err)
		}
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("initialize redis: %w", err)
	}

	app := &App{
		Config:    cfg,
		ConfigDir: configDir,
		DB:        db,
		Redis:     rdb,
		stop:      make(chan struct{}),
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, rdb)
	controllers := app.initControllers(services, db, rdb)

	// 监控初始化
	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			return nil, fmt.Errorf("initialize tracing: %w", err)
		}
		app.tracer = tp
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	app.RegisterConfigCallback(func(c *config.Config) {
		logger.SetMode(c.Server.Mode)
	})
	app.RegisterConfigCallback(func(c *config.Config) {
		app.limiter.Update(c.RateLimit.MaxRequests, c.RateLimit.Window())
	})

	return app, nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()))
	}
}

func (a *App) applyConfig(cfg *config.Config) {
	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
}

func (a *App) Run() error {
	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	watchCtx, cancelWatch := context.WithCancel(context.Background())
	defer cancelWatch()
	go func() {
		if err := configwatcher.Watch(watchCtx, a.ConfigDir, a.applyConfig); err != nil {
			logger.Log.Warn("Config hot reload disabled", zap.Error(err))
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-quit:
	}
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	a.Close(ctx)

	logger.Log.Info("Server exiting")
	return nil
}

// Close 释放后台任务和外部连接
func (a *App) Close(ctx context.Context) {
	close(a.stop)
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}
	logger.Log.Sync()
}
