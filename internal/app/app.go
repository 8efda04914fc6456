package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/reviewloop/review-service/internal/config"
	"github.com/reviewloop/review-service/internal/google"
	"github.com/reviewloop/review-service/internal/handler"
	"github.com/reviewloop/review-service/internal/quota"
	"github.com/reviewloop/review-service/internal/repository"
	"github.com/reviewloop/review-service/internal/service"
	"github.com/reviewloop/review-service/internal/utils"
	"github.com/reviewloop/review-service/pkg/observability"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

type App struct {
	infra   Infrastructure
	config  *config.Config
	router  *gin.Engine
	server  *http.Server
	monitor *quota.Monitor
}

func NewApp(infra Infrastructure, cfg *config.Config) (*App, error) {
	repos := repository.NewRepositories(infra.Postgres())

	jwtManager := utils.NewJWTManager(
		cfg.JWT.Secret,
		cfg.JWT.TokenExpiry.Duration,
	)

	monitor, err := quota.NewMonitor(quota.Config{
		DailyLimit:  cfg.Quota.DailyLimit,
		BurstLimit:  cfg.Quota.BurstLimit,
		BurstWindow: cfg.Quota.BurstWindow.Duration,
		DataDir:     cfg.Quota.DataDir,
	}, infra.Logger())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize quota monitor: %w", err)
	}

	gate := quota.NewGate(infra.Redis(), cfg.Quota.DefaultCooldown.Duration, infra.Logger())
	rateLimiter := service.NewRateLimiter(infra.Redis())
	healthChecker := NewHealthChecker(infra)

	googleClient := google.NewClient(google.ClientOptions{
		Timeout:           cfg.Google.APITimeout.Duration,
		AccountsLimit:     cfg.Google.AccountsLimit,
		BusinessInfoLimit: cfg.Google.BusinessInfoLimit,
		ReviewsLimit:      cfg.Google.ReviewsLimit,
		RateWindow:        cfg.Google.RateWindow.Duration,
		Retry:             google.NewRetryPolicy(cfg.Sync.MaxRetries),
	}, monitor, infra.Logger())

	oauthService := service.NewOAuthService(repos.Tenant, repos.Location, googleClient, cfg.Google, infra.Logger())

	reconciler := service.NewReconciler(repos.Review, infra.Logger())
	syncService := service.NewSyncService(
		repos.Tenant,
		repos.Location,
		reconciler,
		googleClient,
		gate,
		monitor,
		oauthService,
		cfg.Sync.PageSize,
		cfg.Sync.OrderBy,
		infra.Logger(),
	)
	replyService := service.NewReplyService(
		repos.Tenant,
		repos.Location,
		repos.Review,
		googleClient,
		gate,
		monitor,
		oauthService,
		infra.Logger(),
	)

	connectionHandler := handler.NewConnectionHandler(oauthService)
	reviewHandler := handler.NewReviewHandler(syncService, replyService)
	quotaHandler := handler.NewQuotaHandler(monitor, gate)

	router := gin.Default()
	router.Use(otelgin.Middleware("review-service"))
	router.Use(handler.LoggerMiddleware(infra.Logger()))
	router.Use(handler.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders))

	setupRoutes(router, cfg, jwtManager, connectionHandler, reviewHandler, quotaHandler, rateLimiter, healthChecker, infra.MetricsHandler())

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
	}

	return &App{
		infra:   infra,
		config:  cfg,
		router:  router,
		server:  srv,
		monitor: monitor,
	}, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func setupRoutes(
	router *gin.Engine,
	cfg *config.Config,
	jwtManager *utils.JWTManager,
	connectionHandler *handler.ConnectionHandler,
	reviewHandler *handler.ReviewHandler,
	quotaHandler *handler.QuotaHandler,
	rateLimiter *service.RateLimiter,
	healthChecker *HealthChecker,
	metricsHandler http.Handler,
) {
	router.GET("/metrics", observability.PrometheusHandler(metricsHandler))
	router.GET("/health", healthChecker.Handler)

	authRequired := handler.AuthMiddleware(jwtManager)
	throttled := handler.RateLimitMiddleware(rateLimiter, cfg.Security.RateLimitRequests, cfg.Security.RateLimitWindow.Duration, handler.TenantBasedKey)

	api := router.Group("/api/v1")
	{
		// The OAuth callback is hit by Google's redirect, not the dashboard
		api.GET("/connect/callback", connectionHandler.Callback)

		api.GET("/connect", authRequired, connectionHandler.Connect)
		api.GET("/connection/status", authRequired, connectionHandler.Status)
		api.DELETE("/connection/disconnect", authRequired, connectionHandler.Disconnect)

		reviews := api.Group("/reviews", authRequired)
		{
			reviews.POST("/sync", throttled, reviewHandler.Sync)
			reviews.GET("", reviewHandler.List)
			reviews.PUT("/:id/reply", reviewHandler.UpdateReply)
			reviews.POST("/:id/approve", reviewHandler.Approve)
			reviews.POST("/:id/reject", reviewHandler.Reject)
			reviews.POST("/:id/reply/post", throttled, reviewHandler.PostReply)
			reviews.DELETE("/:id/reply", throttled, reviewHandler.DeleteReply)
		}

		quotaGroup := api.Group("/quota", authRequired)
		{
			quotaGroup.GET("/stats", quotaHandler.Stats)
			quotaGroup.GET("/report", quotaHandler.Report)
		}

		admin := api.Group("/admin", authRequired, handler.AdminMiddleware())
		{
			admin.POST("/quota/clear-cooldowns", quotaHandler.ClearCooldowns)
		}
	}
}

func (a *App) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		a.infra.Logger().Info("Application starting",
			zap.String("host", a.config.Server.Host),
			zap.String("port", a.config.Server.Port),
		)

		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.infra.Logger().Error("Server error", zap.Error(err))
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case err := <-errChan:
		a.infra.Logger().Error("Application failed to start", zap.Error(err))
		serverErr = err
	case <-ctx.Done():
		a.infra.Logger().Info("Application stopped by context")
	}

	if err := a.Shutdown(); err != nil {
		a.infra.Logger().Error("Shutdown error", zap.Error(err))
		if serverErr != nil {
			return errors.Join(serverErr, err)
		}
		return err
	}

	return serverErr
}

func (a *App) Shutdown() error {
	a.infra.Logger().Info("Application shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	errs := make(chan error, 3)

	go func() {
		errs <- a.server.Shutdown(ctx)
	}()

	go func() {
		errs <- a.monitor.Close()
	}()

	go func() {
		errs <- a.infra.Shutdown(ctx)
	}()

	err := errors.Join(<-errs, <-errs, <-errs)
	if err != nil {
		a.infra.Logger().Error("Shutdown failed", zap.Error(err))
		return err
	}

	a.infra.Logger().Info("Application exited successfully")
	return nil
}
