package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ZRIAdventures/go-tour-capacity/internal/api"
	"github.com/ZRIAdventures/go-tour-capacity/internal/api/handler"
	custommw "github.com/ZRIAdventures/go-tour-capacity/internal/api/middleware"
	"github.com/ZRIAdventures/go-tour-capacity/internal/application"
	"github.com/ZRIAdventures/go-tour-capacity/internal/config"
	"github.com/ZRIAdventures/go-tour-capacity/internal/infrastructure/postgres"
	redisinfra "github.com/ZRIAdventures/go-tour-capacity/internal/infrastructure/redis"
	"github.com/ZRIAdventures/go-tour-capacity/internal/infrastructure/webhook"
	"github.com/ZRIAdventures/go-tour-capacity/internal/pkg/logger"
	"github.com/ZRIAdventures/go-tour-capacity/internal/pkg/metrics"
	"github.com/ZRIAdventures/go-tour-capacity/internal/worker"
)

func main() {
	defer logger.Sync() //nolint:errcheck

	cfg := config.Load()

	// データベース接続
	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		logger.Fatal("データベース接続に失敗", zap.Error(err))
	}
	defer db.Close()

	// マイグレーション実行
	migrationsPath := os.Getenv("MIGRATIONS_PATH")
	if migrationsPath == "" {
		migrationsPath = "migrations"
	}
	if err := postgres.RunMigrations(db.DB, migrationsPath); err != nil {
		logger.Fatal("マイグレーションに失敗", zap.Error(err))
	}

	// Redis接続（失敗してもキャッシュなしで続行する）
	var availabilityCache *redisinfra.AvailabilityCache
	redisClient, err := redisinfra.NewClient(&redisinfra.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		logger.Warn("Redis接続に失敗、残席キャッシュなしで起動", zap.Error(err))
	} else {
		defer redisClient.Close()
		availabilityCache = redisinfra.NewAvailabilityCache(redisClient)
	}

	// メトリクス
	m := metrics.Init()

	// リポジトリ
	departureRepo := postgres.NewDepartureRepository(db)
	bookingRepo := postgres.NewBookingRepository(db)
	txManager := postgres.NewTxManager(db)

	// Webhook通知
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var notifier *webhook.Notifier
	if cfg.Webhook.Enabled() {
		notifier = webhook.NewNotifier(&cfg.Webhook, m)
		go notifier.Start(ctx)
		defer notifier.Stop()
	}

	// サービス
	departureService := application.NewDepartureService(departureRepo, availabilityCache, m)
	var paymentNotifier application.PaymentNotifier
	if notifier != nil {
		paymentNotifier = notifier
	}
	bookingService := application.NewBookingService(txManager, bookingRepo, departureRepo, departureService, paymentNotifier)

	// ステータスリコンサイラ
	reconciler := worker.NewStatusReconciler(departureRepo, m, cfg.Worker.ReconcileInterval, cfg.Worker.ReconcileBatch)
	go reconciler.Start(ctx)
	defer reconciler.Stop()

	// Echo セットアップ
	e := echo.New()
	e.HideBanner = true
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	custommw.SetupMiddleware(e)
	e.Use(custommw.PrometheusMiddleware(m))

	// ハンドラー
	departureHandler := handler.NewDepartureHandler(departureService)
	bookingHandler := handler.NewBookingHandler(bookingService)
	healthHandler := handler.NewHealthHandler()

	// ルーティング
	e.GET("/health", healthHandler.Check)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), custommw.MetricsBasicAuth())

	v1 := e.Group("/api/v1")
	v1.POST("/departures", departureHandler.Create)
	v1.GET("/departures", departureHandler.List)
	v1.GET("/departures/:id", departureHandler.GetByID)
	v1.PUT("/departures/:id", departureHandler.Update)
	v1.POST("/departures/:id/reserve", departureHandler.Reserve)
	v1.POST("/departures/:id/release", departureHandler.Release)
	v1.GET("/departures/:id/availability", departureHandler.Availability)
	v1.GET("/departures/:id/bookings", bookingHandler.ListByDeparture)
	v1.POST("/bookings", bookingHandler.Create)
	v1.GET("/bookings/:id", bookingHandler.GetByID)
	v1.DELETE("/bookings/:id", bookingHandler.Delete)
	v1.PUT("/bookings/:id/payment-status", bookingHandler.UpdatePaymentStatus)

	// サーバー起動
	go func() {
		if err := e.Start(":" + cfg.Server.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("サーバー起動エラー", zap.Error(err))
		}
	}()

	logger.Info("サーバー起動",
		zap.String("port", cfg.Server.Port),
		zap.Bool("cache_enabled", availabilityCache != nil),
		zap.Bool("webhook_enabled", notifier != nil),
	)

	// シグナル待機
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("サーバーをシャットダウンしています")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("サーバーシャットダウンエラー", zap.Error(err))
	}

	logger.Info("サーバーが正常にシャットダウンしました")
}
