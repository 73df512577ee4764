package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-appointment-slot-reservation/internal/api"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/api/handler"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/api/middleware"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/api/router"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/application"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/config"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/domain/notification"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/infrastructure/dispatch"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/infrastructure/postgres"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/infrastructure/rabbitmq"
	redisinfra "github.com/sanosuguru/go-appointment-slot-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/infrastructure/sqlite"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/pkg/logger"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/pkg/metrics"
	"github.com/sanosuguru/go-appointment-slot-reservation/internal/worker"
)

func main() {
	cfg := config.Load()
	log := logger.Init(cfg.Env)
	defer log.Sync()
	if err := cfg.Validate(); err != nil {
		logger.Fatal("設定が不正です", zap.String("env", cfg.Env), zap.Error(err))
	}
	m := metrics.Init()

	loc, err := time.LoadLocation(cfg.Scheduling.TimeZone)
	if err != nil {
		logger.Fatal("タイムゾーンを読み込めません", zap.String("tz", cfg.Scheduling.TimeZone), zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openStore(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal("ストアを開けません", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
	defer db.Close()

	rc := connectRedis(ctx, &cfg.Redis)
	if rc != nil {
		defer rc.Close()
	}

	dispatcher, closeDispatcher := newDispatcher(&cfg.RabbitMQ, log)
	defer closeDispatcher()

	serviceRepo := postgres.NewServiceRepository(db)
	slotRepo := postgres.NewSlotRepository(db)
	citizenRepo := postgres.NewCitizenRepository(db)
	reservationRepo := postgres.NewReservationRepository(db)
	ledgerRepo := postgres.NewLedgerRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)
	txManager := postgres.NewTxManager(db)

	var relayOpts []worker.RelayOption
	relayOpts = append(relayOpts, worker.WithRelayMetrics(m))
	if rc != nil {
		relayOpts = append(relayOpts, worker.WithLocker(worker.NewRedisLocker(redisinfra.NewLockManager(rc, m))))
	}
	relay := worker.NewOutboxRelay(outboxRepo, dispatcher, worker.RelayConfig{
		Interval:       cfg.Outbox.Interval,
		BatchSize:      cfg.Outbox.BatchSize,
		MaxAttempts:    cfg.Outbox.MaxAttempts,
		BaseBackoff:    cfg.Outbox.BaseBackoff,
		SendsPerSecond: cfg.Outbox.SendsPerSecond,
	}, relayOpts...)

	reservationOpts := []application.ReservationOption{
		application.WithOutboxNotifier(relay),
		application.WithMetrics(m),
	}
	slotOpts := []application.SlotOption{application.WithLocation(loc)}
	routerOpts := router.Options{
		JWTSecret:   cfg.Auth.JWTSecret,
		Metrics:     m,
		MetricsAuth: cfg.Metrics,
	}
	if rc != nil {
		cache := redisinfra.NewSlotCache(rc, cfg.Redis.CacheTTL)
		reservationOpts = append(reservationOpts, application.WithSlotCache(cache))
		slotOpts = append(slotOpts, application.WithSlotServiceCache(cache))
		if cfg.RateLimit.Enabled {
			routerOpts.RateLimiter = redisinfra.NewRateLimiter(rc, cfg.RateLimit)
		}
	}

	catalogService := application.NewCatalogService(serviceRepo)
	slotService := application.NewSlotService(slotRepo, serviceRepo, slotOpts...)
	citizenService := application.NewCitizenService(citizenRepo)
	notificationService := application.NewNotificationService(outboxRepo)
	reservationService := application.NewReservationService(
		txManager, reservationRepo, slotRepo, citizenRepo, ledgerRepo, outboxRepo, reservationOpts...,
	)

	e := echo.New()
	e.HideBanner = true
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout
	middleware.SetupMiddleware(e)

	router.Register(e, router.Handlers{
		Health:       handler.NewHealthHandler(db),
		Catalog:      handler.NewCatalogHandler(catalogService),
		Slot:         handler.NewSlotHandler(slotService),
		Reservation:  handler.NewReservationHandler(reservationService),
		Citizen:      handler.NewCitizenHandler(citizenService),
		Notification: handler.NewNotificationHandler(notificationService),
	}, routerOpts)

	go relay.Start(ctx)

	go func() {
		logger.Info("サーバー起動", zap.String("port", cfg.Server.Port), zap.String("env", cfg.Env))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("サーバー起動エラー", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("サーバーをシャットダウンしています...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("サーバーシャットダウンエラー", zap.Error(err))
	}
	relay.Stop()

	logger.Info("サーバーが正常にシャットダウンしました")
}

// openStore は設定されたドライバーでストアを開く。Postgres はマイグレーションも適用する
func openStore(ctx context.Context, cfg *config.DatabaseConfig) (*sqlx.DB, error) {
	if cfg.Driver == sqlite.DriverName {
		logger.Info("組込みストアを使用します", zap.String("path", cfg.SQLitePath))
		return sqlite.Open(ctx, cfg.SQLitePath)
	}
	db, err := postgres.NewConnection(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := postgres.RunMigrations(db.DB, cfg.MigrationsPath); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// connectRedis は Redis に接続する。無効か接続できなければ nil を返し、キャッシュと制限なしで動く
func connectRedis(ctx context.Context, cfg *config.RedisConfig) *goredis.Client {
	if !cfg.Enabled {
		logger.Info("Redis は無効です")
		return nil
	}
	rc, err := redisinfra.Connect(ctx, cfg)
	if err != nil {
		logger.Warn("キャッシュとレート制限を無効にします", zap.Error(err))
		return nil
	}
	return rc
}

func newDispatcher(cfg *config.RabbitMQConfig, log *zap.Logger) (notification.Dispatcher, func()) {
	if cfg.URL == "" {
		logger.Info("RABBITMQ_URL 未設定のため通知はログに出力します")
		return dispatch.NewLogDispatcher(log), func() {}
	}
	p := rabbitmq.NewPublisher(cfg.URL, cfg.Queue)
	return p, func() {
		if err := p.Close(); err != nil {
			logger.Warn("RabbitMQ 切断エラー", zap.Error(err))
		}
	}
}
