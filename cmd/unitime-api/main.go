package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/khoanguyen-dev/unitime-api/api/swagger"
	"github.com/khoanguyen-dev/unitime-api/internal/handler"
	"github.com/khoanguyen-dev/unitime-api/internal/middleware"
	"github.com/khoanguyen-dev/unitime-api/internal/repository"
	"github.com/khoanguyen-dev/unitime-api/internal/service"
	"github.com/khoanguyen-dev/unitime-api/pkg/cache"
	"github.com/khoanguyen-dev/unitime-api/pkg/config"
	"github.com/khoanguyen-dev/unitime-api/pkg/database"
	"github.com/khoanguyen-dev/unitime-api/pkg/jobs"
	"github.com/khoanguyen-dev/unitime-api/pkg/logger"
	corsmiddleware "github.com/khoanguyen-dev/unitime-api/pkg/middleware/cors"
	reqidmiddleware "github.com/khoanguyen-dev/unitime-api/pkg/middleware/requestid"
	"github.com/khoanguyen-dev/unitime-api/pkg/storage"
)

// @title UniTime API
// @version 1.0.0
// @description Timetable reconstruction and section combination planning
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, response caching disabled", "error", err)
		redisClient = nil
	}

	files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	metrics := service.NewMetricsService()
	catalogRepo := repository.NewCatalogRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	catalogs := service.NewCatalogService(catalogRepo, nil, logr).WithMetrics(metrics)
	spreadsheets := service.NewSpreadsheetService(catalogs, cfg.Spreadsheet, logr)
	timetables := service.NewTimetableService(catalogs, logr)
	exports := service.NewExportService(timetables, files, signer, logr)
	planner := service.NewPlannerService(catalogs, cfg.Planner, logr).WithMetrics(metrics)

	dispatcher := jobs.NewDispatcher("planner", service.PlannerJobHandler(planner), jobs.DispatcherConfig{
		Workers:    cfg.Planner.Workers,
		BufferSize: cfg.Planner.QueueSize,
		Logger:     logr,
	})
	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dispatcher.Start(rootCtx)
	defer dispatcher.Stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	router := buildRouter(cfg, logr.Named("http"), db, redisClient, metrics, cacheRepo,
		handler.NewCatalogHandler(catalogs, spreadsheets),
		handler.NewTimetableHandler(timetables, exports),
		handler.NewPlannerHandler(dispatcher, cfg.Planner.RequestWait),
	)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Sugar().Infow("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

func buildRouter(cfg *config.Config, logr *zap.Logger, db *sqlx.DB, redisClient *redis.Client,
	metrics *service.MetricsService, cacheRepo *repository.CacheRepository,
	catalogHandler *handler.CatalogHandler,
	timetableHandler *handler.TimetableHandler,
	plannerHandler *handler.PlannerHandler,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	metricsHandler := handler.NewMetricsHandler(metrics, db, redisClient)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/catalogs", catalogHandler.Import)
	api.POST("/catalogs/import/spreadsheet", catalogHandler.ImportSpreadsheet)
	api.GET("/catalogs", catalogHandler.List)
	api.GET("/catalogs/:id", catalogHandler.Get)
	api.POST("/catalogs/:id/suggestions", plannerHandler.Suggest)
	api.GET("/downloads", timetableHandler.Download)

	cached := api.Group("")
	cached.Use(middleware.ResponseCache(cacheRepo, metrics, cfg.Timetable.CacheTTL))
	cached.GET("/catalogs/:id/subjects", catalogHandler.Subjects)
	cached.GET("/catalogs/:id/timetable", timetableHandler.Timetable)
	api.GET("/catalogs/:id/timetable/export", timetableHandler.Export)

	return r
}
