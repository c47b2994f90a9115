package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"attrconsent/internal/audit"
	"attrconsent/internal/consent/builder"
	"attrconsent/internal/consent/cipher"
	consentHandler "attrconsent/internal/consent/handler"
	"attrconsent/internal/consent/metrics"
	"attrconsent/internal/consent/models"
	consentService "attrconsent/internal/consent/service"
	"attrconsent/internal/consent/store"
	"attrconsent/internal/platform/config"
	"attrconsent/internal/platform/database"
	"attrconsent/internal/platform/health"
	"attrconsent/internal/platform/kafka/producer"
	platformmetrics "attrconsent/internal/platform/metrics"
	"attrconsent/internal/platform/middleware"
	platformredis "attrconsent/internal/platform/redis"
	"attrconsent/internal/tracer"
)

const requestTimeout = 15 * time.Second

// app holds the wired dependencies of the server process.
type app struct {
	logger    *slog.Logger
	registry  *prometheus.Registry
	http      *platformmetrics.Metrics
	backend   string
	retention consentService.Retention
	cipher    *cipher.Holder
	refresher *cipherRefresher
	service   *consentService.Service
	auditor   *audit.Publisher
	health    *health.Handler
	redis     *platformredis.Client
	closers   []func() error
}

func newApp(ctx context.Context, cfg config.Server, logger *slog.Logger) (_ *app, err error) {
	a := &app{
		logger:   logger,
		registry: prometheus.NewRegistry(),
		backend:  cfg.Store.Backend(),
	}
	defer func() {
		if err != nil {
			a.close()
		}
	}()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(a.registry)
	a.http = platformmetrics.New(a.registry)

	retention, ok := consentService.ParseRetention(cfg.Retention)
	if !ok {
		return nil, fmt.Errorf("CONSENT_RETENTION: unsupported policy %q", cfg.Retention)
	}
	a.retention = retention
	unit, ok := models.ParseTimeUnit(cfg.ReminderUnit)
	if !ok {
		return nil, fmt.Errorf("CONSENT_REMINDER_UNIT: unsupported unit %q", cfg.ReminderUnit)
	}

	initial, err := cipher.New(cipherConfig(cfg.Crypto), logger)
	if err != nil {
		return nil, fmt.Errorf("consent cipher: %w", err)
	}
	a.cipher = cipher.NewHolder(initial)
	a.refresher = &cipherRefresher{
		holder:  a.cipher,
		load:    config.CryptoFromEnv,
		metrics: m,
		logger:  logger,
	}
	a.health = health.New(a.backend, a.cipher.Name)

	repo, err := a.repository(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if retention == consentService.RetainLatest && !store.CanPrune(repo) {
		return nil, fmt.Errorf("CONSENT_RETENTION: policy %q is not supported by the %s backend", retention, a.backend)
	}

	auditStore, err := a.auditStore(cfg)
	if err != nil {
		return nil, err
	}
	a.auditor = audit.NewPublisher(auditStore,
		audit.WithAsyncBuffer(cfg.AuditBuffer),
		audit.WithPublisherLogger(logger),
	)

	a.service = consentService.NewService(
		store.WithMetrics(repo, m),
		builder.New(a.cipher),
		a.auditor,
		logger,
		consentService.WithMetrics(m),
		consentService.WithTracer(tracer.NewOTel()),
		consentService.WithRetention(retention),
		consentService.WithDefaultReminder(cfg.ReminderDefault, unit),
	)
	return a, nil
}

// repository builds the backend chosen by configuration.
func (a *app) repository(ctx context.Context, cfg config.Server) (store.Repository, error) {
	switch a.backend {
	case config.BackendJSON:
		return store.NewJSON(cfg.Store.JSONLocation, a.logger), nil
	case config.BackendScript:
		return store.NewScript(cfg.Store.ScriptLocation, cfg.Store.ScriptArgs, a.logger), nil
	case config.BackendRedis:
		client, err := platformredis.New(ctx, cfg.Store.Redis, a.registry)
		if err != nil {
			return nil, fmt.Errorf("consent redis store: %w", err)
		}
		a.redis = client
		a.closers = append(a.closers, client.Close)
		a.health.RegisterCheck("redis", client.Health)
		return store.NewRedis(client.Client), nil
	case config.BackendPostgres:
		pool, err := database.New(ctx, cfg.Store.Database, a.registry)
		if err != nil {
			return nil, fmt.Errorf("consent postgres store: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		if err := pool.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("consent postgres store: %w", err)
		}
		a.health.RegisterCheck("database", pool.Health)
		return store.NewPostgres(pool.DB()), nil
	default:
		return store.NewInMemory(a.logger), nil
	}
}

// auditStore picks Kafka when brokers are configured and the log otherwise.
// Events Kafka rejects are written to the log.
func (a *app) auditStore(cfg config.Server) (audit.Store, error) {
	if cfg.Kafka.Brokers == "" {
		return audit.NewLogStore(a.logger), nil
	}
	p, err := producer.New(producer.DefaultConfig(cfg.Kafka.Brokers), a.logger)
	if err != nil {
		return nil, fmt.Errorf("audit kafka producer: %w", err)
	}
	a.closers = append(a.closers, p.Close)
	a.health.RegisterOptional("kafka", p.Ping)
	return audit.NewFallbackStore(
		audit.NewKafkaStore(p, cfg.Kafka.AuditTopic),
		audit.NewLogStore(a.logger),
		a.logger,
	), nil
}

func (a *app) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(a.logger))
	r.Use(middleware.Logger(a.logger))
	r.Use(middleware.Metrics(a.http))

	a.health.Register(r)
	r.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.Timeout(requestTimeout))
		consentHandler.New(a.service, a.logger).Register(r)
	})
	return r
}

// close drains the audit publisher before releasing backend connections.
func (a *app) close() {
	if a.auditor != nil {
		a.auditor.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("failed to release resource", "error", err)
		}
	}
	a.closers = nil
}
