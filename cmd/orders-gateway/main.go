package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/necpgame/player-orders-core/api/swagger"
	"github.com/necpgame/player-orders-core/internal/clients"
	"github.com/necpgame/player-orders-core/internal/handler"
	internalmw "github.com/necpgame/player-orders-core/internal/middleware"
	"github.com/necpgame/player-orders-core/internal/pricing"
	"github.com/necpgame/player-orders-core/internal/repository"
	"github.com/necpgame/player-orders-core/internal/service"
	"github.com/necpgame/player-orders-core/pkg/cache"
	"github.com/necpgame/player-orders-core/pkg/config"
	"github.com/necpgame/player-orders-core/pkg/database"
	"github.com/necpgame/player-orders-core/pkg/jobs"
	"github.com/necpgame/player-orders-core/pkg/logger"
	corsmiddleware "github.com/necpgame/player-orders-core/pkg/middleware/cors"
	reqidmiddleware "github.com/necpgame/player-orders-core/pkg/middleware/requestid"
	"github.com/necpgame/player-orders-core/pkg/storage"
)

const (
	expirySweepInterval = time.Minute
	expirySweepBatch    = 100
	shutdownTimeout     = 10 * time.Second
)

// @title Player Orders Core API
// @version 1.0.0
// @description Economic core for the player-to-player order marketplace: drafts, pricing, escrowed publication, reviews, penalties and reputation.
// @BasePath /
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	rdb, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer rdb.Close() //nolint:errcheck

	exportStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}
	signer := storage.NewDriftTokenSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	orderRepo := repository.NewOrderRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	penaltyRepo := repository.NewPenaltyRepository(db)
	ratingRepo := repository.NewRatingRepository(db)
	recalcRepo := repository.NewRecalcJobRepository(db)
	marketRepo := repository.NewMarketRepository(db, rdb)

	bus := clients.NewRedisBus(rdb, logr)
	economy := clients.NewHTTPEconomyClient(cfg.Services.EconomyBaseURL, cfg.Services.HTTPTimeout, logr)
	roster := clients.NewHTTPRosterClient(cfg.Services.RosterBaseURL, cfg.Services.HTTPTimeout, logr)

	metrics := service.NewMetricsService()
	estimator := pricing.NewEstimator(cfg.Pricing)

	ratingSvc := service.NewRatingService(ratingRepo, reviewRepo, penaltyRepo, bus, cfg.Reputation, metrics, logr)
	draftSvc := service.NewDraftService(orderRepo, marketRepo, estimator, cfg.Validation, cfg.Pricing, logr)

	// The queue handler closes over the service built right after it.
	var recalcSvc *service.RecalcService
	queue := jobs.NewQueue("rating-recalc", func(ctx context.Context, job jobs.Job) error {
		return recalcSvc.Process(ctx, job)
	}, jobs.QueueConfig{
		Workers:    cfg.Recalc.WorkerConcurrency,
		BufferSize: cfg.Recalc.QueueBuffer,
		MaxRetries: cfg.Recalc.WorkerRetries,
		Logger:     logr,
	})
	recalcSvc = service.NewRecalcService(recalcRepo, ratingRepo, ratingSvc, queue, exportStore, signer, cfg.Recalc, cfg.Exports, metrics, logr)

	penaltySvc := service.NewPenaltyService(penaltyRepo, ratingSvc, recalcSvc, roster, cfg.Penalties, logr)
	reviewSvc := service.NewReviewService(reviewRepo, orderRepo, ratingSvc, recalcSvc, logr)
	pubSvc := service.NewPublicationService(orderRepo, draftSvc, economy, roster, bus, penaltySvc, cfg.Escrow, cfg.Pricing, metrics, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queue.Start(ctx)
	if err := recalcSvc.RecoverPending(ctx); err != nil {
		logr.Sugar().Errorw("failed to recover pending recalc jobs", "error", err)
	}
	recalcSvc.StartCleanup(ctx)
	penaltySvc.StartSweep(ctx)
	pubSvc.StartExpirySweep(ctx, expirySweepInterval, expirySweepBatch)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmw.Metrics(metrics))

	metricsHandler := handler.NewMetricsHandler(metrics)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	handler.RegisterRoutes(api, handler.Handlers{
		Drafts:    handler.NewDraftHandler(draftSvc, metrics),
		Orders:    handler.NewOrderHandler(pubSvc),
		Reviews:   handler.NewReviewHandler(reviewSvc),
		Penalties: handler.NewPenaltyHandler(penaltySvc),
		Ratings:   handler.NewRatingHandler(ratingSvc),
		Recalc:    handler.NewRecalcHandler(recalcSvc),
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown incomplete", "error", err)
	}
	queue.Stop()
}
