// Package app assembles the verification core from configuration: storage,
// per-user locking, the audit trail, notification delivery, and the two
// services the application layer calls.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"trustcore/internal/audittrail"
	docMetrics "trustcore/internal/document/metrics"
	docService "trustcore/internal/document/service"
	docStore "trustcore/internal/document/store"
	userStore "trustcore/internal/identity/store/user"
	"trustcore/internal/notification"
	"trustcore/internal/platform/config"
	"trustcore/internal/platform/httpserver"
	"trustcore/internal/platform/postgres"
	"trustcore/internal/platform/redis"
	"trustcore/internal/platform/usertx"
	"trustcore/internal/workflow"
	wfMetrics "trustcore/internal/workflow/metrics"
	"trustcore/pkg/platform/circuit"
)

// kafkaTopicPartitions and kafkaReplication are used when the notification
// topic has to be created.
const (
	kafkaTopicPartitions = 6
	kafkaReplication     = 1
)

// App is the wired core.
type App struct {
	Workflow   *workflow.Service
	Documents  *docService.Service
	Audit      *audittrail.Trail
	Dispatcher *notification.Dispatcher

	checks  map[string]httpserver.Check
	closers []func() error
}

// New wires the core. Without DATABASE_URL every store is in memory and
// users are locked in process; with REDIS_URL the per-user lock is also a
// distributed lease.
func New(ctx context.Context, cfg config.Config, log *slog.Logger, reg prometheus.Registerer) (*App, error) {
	a := &App{checks: map[string]httpserver.Check{}}
	ok := false
	defer func() {
		if !ok {
			_ = a.Close()
		}
	}()

	var (
		users  workflow.UserStore
		docs   docService.Store
		audits audittrail.Store
		locker usertx.Runner
	)
	if cfg.Database.URL != "" {
		db, err := postgres.Open(ctx, postgres.Config{
			URL:             cfg.Database.URL,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		a.checks["postgres"] = pingCheck(db)

		users = userStore.NewPostgres(db)
		docs = docStore.NewPostgres(db)
		audits = audittrail.NewPostgresStore(db)
		locker = usertx.NewPostgres(db, cfg.TxTimeout)
		log.Info("storage configured", "backend", "postgres")
	} else {
		users = userStore.NewInMemory()
		docs = docStore.NewInMemory()
		audits = audittrail.NewInMemoryStore()
		locker = usertx.NewSharded(cfg.TxTimeout)
		log.Info("storage configured", "backend", "memory")
	}

	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if rdb != nil {
		a.closers = append(a.closers, rdb.Close)
		a.checks["redis"] = rdb.Health
		locker = usertx.NewRedisLease(rdb, locker, usertx.WithLeaseTTL(cfg.Redis.LockTTL))
		log.Info("distributed user lease enabled", "ttl", cfg.Redis.LockTTL)
	}

	sink, err := a.newSink(ctx, cfg.Notify, log)
	if err != nil {
		return nil, err
	}
	a.Dispatcher = notification.NewDispatcher(sink,
		notification.WithLogger(log),
		notification.WithMetrics(notification.NewMetrics(reg)),
		notification.WithBufferSize(cfg.Notify.BufferSize),
		notification.WithBatchSize(cfg.Notify.BatchSize),
		notification.WithFlushInterval(cfg.Notify.FlushInterval),
		notification.WithBreaker(circuit.New("notification:"+sink.Name())),
	)

	a.Audit = audittrail.New(audits,
		audittrail.WithLogger(log),
		audittrail.WithMetrics(audittrail.NewMetrics(reg)),
	)
	a.Documents = docService.New(docs, users, locker,
		docService.WithLogger(log),
		docService.WithMetrics(docMetrics.New(reg)),
	)
	a.Workflow = workflow.New(users, a.Documents, a.Audit, locker,
		workflow.WithLogger(log),
		workflow.WithMetrics(wfMetrics.New(reg)),
		workflow.WithNotifier(a.Dispatcher),
		workflow.WithBcryptCost(cfg.BcryptCost),
	)
	a.Documents.SetDecisionListener(a.Workflow)

	ok = true
	return a, nil
}

func (a *App) newSink(ctx context.Context, cfg config.NotifyConfig, log *slog.Logger) (notification.Sink, error) {
	switch cfg.Backend {
	case config.NotifyKafka:
		client, err := notification.NewKafkaClient(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error {
			client.Close()
			return nil
		})
		if err := notification.EnsureTopic(ctx, client, cfg.KafkaTopic, kafkaTopicPartitions, kafkaReplication); err != nil {
			return nil, err
		}
		a.checks["kafka"] = func(ctx context.Context) error { return client.Ping(ctx) }
		log.Info("notification sink configured", "backend", "kafka", "topic", cfg.KafkaTopic)
		return notification.NewKafkaSink(client, cfg.KafkaTopic), nil
	case config.NotifyAMQP:
		sink, err := notification.DialAMQP(cfg.AMQPURL, cfg.AMQPQueue)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, sink.Close)
		log.Info("notification sink configured", "backend", "amqp", "queue", cfg.AMQPQueue)
		return sink, nil
	case config.NotifyLog, "":
		return notification.NewLogSink(log), nil
	default:
		return nil, fmt.Errorf("unknown notification backend %q", cfg.Backend)
	}
}

// Checks returns the readiness checks of the configured backends.
func (a *App) Checks() map[string]httpserver.Check {
	return a.checks
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func pingCheck(db *sql.DB) httpserver.Check {
	return func(ctx context.Context) error {
		return db.PingContext(ctx)
	}
}
