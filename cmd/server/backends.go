package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"volid/internal/notification"
	"volid/internal/platform/config"
	"volid/internal/platform/kafka"
	"volid/internal/platform/postgres"
	"volid/internal/platform/redis"
	"volid/internal/ratelimit"
	httptransport "volid/internal/transport/http"
	"volid/internal/verification"
	"volid/internal/volunteer/identifier"
	volunteerservice "volid/internal/volunteer/service"
	volunteerstore "volid/internal/volunteer/store"
	audit "volid/pkg/platform/audit"
	auditmemory "volid/pkg/platform/audit/store/memory"
	auditpostgres "volid/pkg/platform/audit/store/postgres"
	txcontext "volid/pkg/platform/tx"
)

// notifyTopicPartitions keeps per-record ordering with modest fan-out.
const notifyTopicPartitions = 3

type volunteerStore interface {
	volunteerservice.Store
	identifier.Store
}

// backends are the storage, cache and messaging dependencies selected from
// configuration. Unset URLs fall back to in-process implementations.
type backends struct {
	volunteers volunteerStore
	audit      audit.Store
	tx         txcontext.Runner
	reserver   identifier.Reserver
	cache      verification.Cache
	rateLimits ratelimit.Store
	sender     notification.Sender
	health     map[string]httptransport.HealthCheck
	closers    []func()
}

func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func openBackends(ctx context.Context, cfg *config.Server, log *slog.Logger) (*backends, error) {
	b := &backends{health: make(map[string]httptransport.HealthCheck)}

	if err := b.openDatabase(ctx, cfg.Database, log); err != nil {
		b.Close()
		return nil, err
	}
	if err := b.openRedis(ctx, cfg, log); err != nil {
		b.Close()
		return nil, err
	}
	if err := b.openKafka(ctx, cfg.Kafka, log); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

func (b *backends) openDatabase(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) error {
	if cfg.URL == "" {
		log.WarnContext(ctx, "DATABASE_URL not set, using in-memory storage")
		b.volunteers = volunteerstore.NewInMemory()
		b.audit = auditmemory.NewInMemoryStore()
		b.tx = txcontext.NewLocalRunner()
		return nil
	}

	db, err := postgres.Open(ctx, postgres.Config{
		URL:             cfg.URL,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	})
	if err != nil {
		return err
	}
	b.closers = append(b.closers, func() { _ = db.Close() })

	applied, err := postgres.RunMigrations(ctx, db)
	if err != nil {
		return err
	}
	if len(applied) > 0 {
		log.InfoContext(ctx, "migrations applied", "migrations", applied)
	}

	b.volunteers = volunteerstore.NewPostgres(db)
	b.audit = auditpostgres.New(db)
	b.tx = txcontext.NewSQLRunner(db)
	b.health["postgres"] = db.PingContext
	return nil
}

func (b *backends) openRedis(ctx context.Context, cfg *config.Server, log *slog.Logger) error {
	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if client == nil {
		log.WarnContext(ctx, "REDIS_URL not set, using in-process reservations, rate limits and verification cache")
		b.reserver = identifier.NewMemoryReserver(cfg.Identifier.ReservationTTL)
		b.cache = verification.NewMemoryCache(cfg.Redis.VerifyTTL)
		b.rateLimits = ratelimit.NewInMemoryStore()
		return nil
	}
	b.closers = append(b.closers, func() { _ = client.Close() })

	b.reserver = identifier.NewRedisReserver(client.Client, cfg.Identifier.ReservationTTL)
	b.cache = verification.NewRedisCache(client.Client, cfg.Redis.VerifyTTL)
	b.rateLimits = ratelimit.NewRedisStore(client.Client)
	b.health["redis"] = client.Health
	return nil
}

func (b *backends) openKafka(ctx context.Context, cfg config.KafkaConfig, log *slog.Logger) error {
	if len(cfg.Brokers) == 0 {
		log.WarnContext(ctx, "KAFKA_BROKERS not set, notifications are logged only")
		b.sender = notification.NewLogSender(log)
		return nil
	}

	client, err := kafka.NewProducer(kafka.Config{Brokers: cfg.Brokers, ClientID: cfg.ClientID})
	if err != nil {
		return err
	}
	b.closers = append(b.closers, client.Close)

	if err := kafka.EnsureTopic(ctx, client, cfg.NotifyTopic, notifyTopicPartitions, -1); err != nil {
		return fmt.Errorf("notification topic: %w", err)
	}
	b.sender = notification.NewKafkaSender(client, cfg.NotifyTopic)
	b.health["kafka"] = func(ctx context.Context) error { return kafka.Ping(ctx, client) }
	return nil
}

var _ notification.Producer = (*kgo.Client)(nil)
