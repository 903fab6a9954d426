package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/twinsecure-console/internal/api"
	"github.com/xela07ax/twinsecure-console/internal/console/handler"
	"github.com/xela07ax/twinsecure-console/internal/console/server"
	"github.com/xela07ax/twinsecure-console/internal/dashboard"
	"github.com/xela07ax/twinsecure-console/internal/domain"
	"github.com/xela07ax/twinsecure-console/internal/history"
	"github.com/xela07ax/twinsecure-console/internal/infra"
	"github.com/xela07ax/twinsecure-console/internal/notify"
	"github.com/xela07ax/twinsecure-console/internal/prefs"
	"github.com/xela07ax/twinsecure-console/internal/repository/postgres"
	"github.com/xela07ax/twinsecure-console/internal/sample"
)

// Сколько раз ждём Redis и Postgres на старте
const readyAttempts = 5

// app — собранные зависимости консоли.
type app struct {
	cfg    *infra.Config
	logger *zap.Logger

	registry *prometheus.Registry
	metrics  *dashboard.Metrics

	rdb     *redis.Client
	repo    *postgres.HistoryRepo
	journal *history.Journal
	hub     *notify.Hub

	prefs   prefs.Store
	session *prefs.Session
	client  *api.Client
	store   *dashboard.Store

	instanceID   string
	stopListener context.CancelFunc
	listenerDone chan struct{}
}

func newApp(ctx context.Context, cfg *infra.Config, logger *zap.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger, instanceID: uuid.NewString()}
	defer func() {
		// Частично собранное приложение закрываем сами
		if err != nil {
			a.close()
		}
	}()

	// 1. Метрики
	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = dashboard.NewMetrics(a.registry)

	// 2. Redis: токен, тема и канал уведомлений. Без адреса — всё в памяти
	notifiers := notify.Multi{notify.NewLogNotifier(logger)}
	a.hub = notify.NewHub(16)
	notifiers = append(notifiers, a.hub)

	if cfg.Redis.Addr != "" {
		a.rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := infra.WaitReady(ctx, "redis", readyAttempts, logger, func(ctx context.Context) error {
			return a.rdb.Ping(ctx).Err()
		}); err != nil {
			return nil, err
		}
		a.prefs = prefs.NewRedisStore(a.rdb)
		notifiers = append(notifiers, notify.NewRedisNotifier(a.rdb, infra.RedisChanNotifications, a.instanceID))

		// Уведомления других экземпляров попадают только в ленту, без повторной публикации
		listenCtx, cancel := context.WithCancel(context.Background())
		a.stopListener = cancel
		a.listenerDone = make(chan struct{})
		go func() {
			defer close(a.listenerDone)
			notify.ListenRedis(listenCtx, a.rdb, infra.RedisChanNotifications, a.instanceID, a.hub, logger)
		}()
	} else {
		logger.Warn("redis.addr is empty, preferences are kept in memory")
		a.prefs = prefs.NewMemoryStore()
	}

	// 3. Журнал циклов, при наличии БД — с записью в Postgres
	var storage history.Storage = history.DiscardStorage{}
	var seed []history.CycleRecord

	if cfg.Database.URL != "" {
		a.repo, err = postgres.NewHistoryRepo(cfg.Database.URL, cfg.Database.MaxConns)
		if err != nil {
			return nil, err
		}
		if err := infra.WaitReady(ctx, "postgres", readyAttempts, logger, a.repo.Ping); err != nil {
			return nil, err
		}
		if err := a.repo.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("history schema: %w", err)
		}
		if seed, err = a.repo.Recent(ctx, cfg.Dashboard.HistorySize); err != nil {
			return nil, fmt.Errorf("history seed: %w", err)
		}
		storage = a.repo
	}

	a.journal = history.NewJournal(storage, history.Options{
		Keep:          cfg.Dashboard.HistorySize,
		FlushInterval: cfg.Dashboard.HistoryFlushInterval,
	}, logger)
	a.journal.Seed(seed)
	a.journal.Start()

	// 4. Фасад API с rate limit и Circuit Breaker
	a.client, err = api.NewClient(api.Options{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		RateLimit: cfg.API.RateLimit,
		RateBurst: cfg.API.RateBurst,
		Breaker: api.BreakerSettings{
			MaxRequests:      cfg.API.CBMaxRequests,
			Interval:         cfg.API.CBInterval,
			Timeout:          cfg.API.CBTimeout,
			FailureThreshold: cfg.API.CBFailureThreshold,
		},
		Tokens: a.prefs,
		OnUnauthorized: func(context.Context) {
			a.metrics.Unauthorized.Inc()
		},
		OnBreakerStateChange: a.metrics.ObserveBreaker,
		Logger:               logger,
	})
	if err != nil {
		return nil, err
	}
	a.session = prefs.NewSession(a.client, a.prefs, logger)

	// 5. Оркестратор панели
	a.store, err = dashboard.NewStore(dashboard.Options{
		Fetcher:               a.client,
		UseFallbackSampleData: cfg.Dashboard.UseFallbackSampleData,
		Fallback:              sample.NewProvider(nil),
		Notifier:              notifiers,
		Recorder:              a.journal,
		Metrics:               a.metrics,
		Logger:                logger,
		AttackVectorLimit:     cfg.Dashboard.AttackVectorLimit,
		AttackerLimit:         cfg.Dashboard.AttackerLimit,
	})
	if err != nil {
		return nil, err
	}

	if cfg.Dashboard.RefreshInterval > 0 {
		interval := cfg.Dashboard.RefreshInterval
		if _, err := a.store.SetFilters(ctx, domain.FilterPatch{RefreshInterval: &interval}); err != nil {
			return nil, fmt.Errorf("initial refresh interval: %w", err)
		}
	}

	return a, nil
}

// httpHandler собирает HTTP-поверхность консоли.
func (a *app) httpHandler() http.Handler {
	return server.NewConsoleServer(a.cfg.Server, a.logger, server.Deps{
		Session:   a.session,
		Dashboard: handler.NewDashboardHandler(a.store, a.logger),
		History:   handler.NewHistoryHandler(a.journal),
		Stream:    handler.NewStreamHandler(a.store, a.hub, a.cfg.Server.AllowedOrigins, a.logger),
		Auth:      handler.NewAuthHandler(a.session, a.logger),
		Prefs:     handler.NewPrefsHandler(a.prefs, a.logger),
		Metrics:   promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}),
		Health:    a.health,
	})
}

func (a *app) health() map[string]any {
	snap := a.store.Snapshot()
	return map[string]any{
		"breaker":     a.client.BreakerState(),
		"lastUpdated": snap.LastUpdated,
		"failures":    len(snap.LastFailures),
	}
}

// close останавливает всё в обратном порядке сборки.
func (a *app) close() {
	if a.store != nil {
		a.store.Close()
	}
	if a.stopListener != nil {
		a.stopListener()
		<-a.listenerDone
	}
	if a.journal != nil {
		// Дописывает накопленное в БД
		a.journal.Stop()
	}
	if a.repo != nil {
		if err := a.repo.Close(); err != nil {
			a.logger.Warn("postgres close failed", zap.Error(err))
		}
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Warn("redis close failed", zap.Error(err))
		}
	}
}
