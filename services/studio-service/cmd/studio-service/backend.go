package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/md-rashed-zaman/inkdesk/libs/config"
	"github.com/md-rashed-zaman/inkdesk/libs/db"
	"github.com/md-rashed-zaman/inkdesk/libs/kafkax"
	"github.com/md-rashed-zaman/inkdesk/libs/runtime"
	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/handlers"
	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/outbox"
	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/scheduling"
	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/settings"
	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/storage"
	"github.com/md-rashed-zaman/inkdesk/services/studio-service/internal/storage/memory"
	"github.com/md-rashed-zaman/inkdesk/services/studio-service/migrations"
)

// backend bundles the stores one storage mode provides.
type backend struct {
	sessions scheduling.Store
	settings settings.Store
	audit    handlers.AuditSink
	checks   []runtime.ReadyCheck
	close    func()
}

func openBackend(ctx context.Context, logger *slog.Logger) (*backend, error) {
	switch mode := strings.ToLower(config.String("STORAGE_BACKEND", "postgres")); mode {
	case "postgres":
		return openPostgres(ctx, logger)
	case "memory":
		logger.Warn("using in-memory storage; data is lost on restart")
		store := memory.New()
		return &backend{
			sessions: store,
			settings: settings.NewMemoryStore(),
			audit:    store,
			close:    func() {},
		}, nil
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", mode)
	}
}

func openPostgres(ctx context.Context, logger *slog.Logger) (*backend, error) {
	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		return nil, err
	}
	maxConns, err := config.PositiveInt("DB_MAX_CONNS", 10)
	if err != nil {
		return nil, err
	}
	pool, err := db.Open(ctx, dbURL, db.Options{MaxConns: int32(maxConns)})
	if err != nil {
		return nil, fmt.Errorf("db connection failed: %w", err)
	}

	if config.Bool("MIGRATE", true) {
		applied, err := migrations.Apply(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		if len(applied) > 0 {
			logger.Info("migrations applied", "files", applied)
		}
	}

	outboxRepo := outbox.NewRepository(pool)
	sessions := storage.NewSessionRepository(pool, outboxRepo)

	brokers := config.String("KAFKA_BROKERS", "")
	pollEvery, err := config.Duration("OUTBOX_POLL_INTERVAL", 2*time.Second)
	if err != nil {
		pool.Close()
		return nil, err
	}
	publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: pollEvery,
		BatchSize: 50,
	})
	go publisher.Run(ctx)

	checks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}
	if strings.TrimSpace(brokers) != "" {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}

	return &backend{
		sessions: sessions,
		settings: settings.NewRepository(pool),
		audit:    sessions,
		checks:   checks,
		close:    pool.Close,
	}, nil
}
