package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/hilthontt/roomkeeper/internal/application/usecases/room"
	"github.com/hilthontt/roomkeeper/internal/domain"
	"github.com/hilthontt/roomkeeper/internal/infrastructure/configs"
	"github.com/hilthontt/roomkeeper/internal/infrastructure/crypto"
	"github.com/hilthontt/roomkeeper/internal/infrastructure/events"
	"github.com/hilthontt/roomkeeper/internal/infrastructure/logging"
	"github.com/hilthontt/roomkeeper/internal/infrastructure/messaging"
	"github.com/hilthontt/roomkeeper/internal/infrastructure/metrics"
	"github.com/hilthontt/roomkeeper/internal/infrastructure/ratelimiter"
	"github.com/hilthontt/roomkeeper/internal/infrastructure/repository"
	"github.com/hilthontt/roomkeeper/internal/infrastructure/tracing"
	"github.com/hilthontt/roomkeeper/internal/persistence/mongo"
	"github.com/hilthontt/roomkeeper/internal/persistence/sqlite"
	"github.com/hilthontt/roomkeeper/internal/presentation/api"
	"github.com/hilthontt/roomkeeper/internal/presentation/handler/health"
	"github.com/hilthontt/roomkeeper/internal/presentation/handler/rooms"
)

const (
	rateLimitPrefix  = "roomkeeper:ratelimit:"
	tracerFlushGrace = 5 * time.Second
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := configs.Load(configs.DetermineConfigPath(args))
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(&logging.LoggerConfig{
		FilePath:   cfg.Logger.FilePath,
		Encoding:   cfg.Logger.Encoding,
		Level:      cfg.Logger.Level,
		Logger:     cfg.Logger.Logger,
		MaxSizeMB:  100,
		MaxBackups: 5,
		MaxAgeDays: 14,
	})
	if err != nil {
		return err
	}

	shutdownTracer, err := tracing.InitTracer(ctx, tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Environment: cfg.Tracing.Environment,
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRate:  1,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize the tracer: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), tracerFlushGrace)
		defer cancel()
		if err := shutdownTracer(flushCtx); err != nil {
			logger.Error(logging.Tracing, logging.Shutdown, "failed to flush traces", map[logging.ExtraKey]any{
				logging.ErrorMessage: err,
			})
		}
	}()

	checks := map[string]health.Check{}

	store, closeStore, err := openStore(ctx, cfg.Storage, logger, checks)
	if err != nil {
		return err
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	var (
		publisher domain.RoomEventPublisher = events.NewLogPublisher(logger)
		rabbitmq  *messaging.RabbitMQ
	)
	if cfg.AMQP.Enabled {
		rabbitmq, err = messaging.NewRabbitMQ(cfg.AMQP.URI, cfg.AMQP.Exchange)
		if err != nil {
			return err
		}
		defer rabbitmq.Close()

		if err := rabbitmq.SetupRoomsQueue(cfg.AMQP.Queue); err != nil {
			return err
		}
		publisher = events.NewRoomPublisher(rabbitmq)

		logger.Info(logging.RabbitMQ, logging.Startup, "publishing room events to RabbitMQ", map[logging.ExtraKey]any{
			"exchange": cfg.AMQP.Exchange,
		})
	}

	engine := room.NewLifecycleEngine(
		repository.NewRoomRegistry(cfg.Rooms.HistoryLimit),
		store,
		crypto.NewBcryptGuard(cfg.Rooms.BcryptCost),
		publisher,
		logger,
		m,
		room.Options{
			MaxCapacity:        cfg.Rooms.MaxCapacity,
			DefaultCapacity:    cfg.Rooms.DefaultCapacity,
			DissolvedRetention: cfg.Rooms.DissolvedRetention,
			JanitorInterval:    cfg.Rooms.JanitorInterval,
		},
	)
	if _, err := engine.Restore(ctx); err != nil {
		return err
	}
	m.RegisterStats(func() domain.Stats {
		stats, _ := engine.Stats(context.Background())
		return stats
	})

	cache, err := rateLimiterCache(ctx, cfg, logger, checks)
	if err != nil {
		return err
	}
	defer cache.Close()

	trustedProxies, err := ratelimiter.ParseTrustedProxies(cfg.RateLimiter.TrustedProxies)
	if err != nil {
		return err
	}
	rl := ratelimiter.New(ratelimiter.Options{
		MaxRatePerSecond: cfg.RateLimiter.MaxRatePerSecond,
		MaxBurst:         cfg.RateLimiter.MaxBurst,
		Cache:            cache,
		CacheTTL:         cfg.RateLimiter.CacheTTL,
		SourceHeaderKey:  cfg.RateLimiter.SourceHeaderKey,
		TrustedProxies:   trustedProxies,
	})
	attempts := ratelimiter.NewAttemptLimiter(cfg.RateLimiter.GuardedAttempts, cfg.RateLimiter.GuardedWindow)
	defer attempts.Close()

	app := api.NewApplication(
		*cfg,
		rooms.NewHandler(engine, logger, cfg.HTTP.SecureCookies),
		health.NewHandler(checks),
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		logger,
		rl,
		attempts,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.Run(gctx, app.Mount())
	})
	g.Go(func() error {
		return engine.RunJanitor(gctx)
	})

	if rabbitmq != nil && cfg.Mongo.Enabled {
		client, err := mongo.NewClient(ctx, &mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database}, logger)
		if err != nil {
			return err
		}
		defer mongo.Disconnect(context.Background(), client)

		auditRepo := mongo.NewRoomAuditLogRepository(client.Database(cfg.Mongo.Database))
		if err := auditRepo.EnsureIndexes(ctx); err != nil {
			logger.Warn(logging.MongoDB, logging.Startup, "failed to ensure audit indexes", map[logging.ExtraKey]any{
				logging.ErrorMessage: err,
			})
		}

		consumer := events.NewRoomConsumer(rabbitmq, cfg.AMQP.Queue, auditRepo, logger)
		g.Go(func() error {
			// Losing the audit consumer must not take the API down.
			if err := consumer.Listen(gctx); err != nil {
				logger.Error(logging.RabbitMQ, logging.Consume, "room audit consumer stopped", map[logging.ExtraKey]any{
					logging.ErrorMessage: err,
				})
			}
			return nil
		})
	}

	return g.Wait()
}

// openStore builds the configured room store and registers its readiness
// check. The returned func releases it.
func openStore(ctx context.Context, cfg configs.StorageConfig, logger logging.Logger, checks map[string]health.Check) (domain.RoomStore, func(), error) {
	switch strings.ToLower(cfg.Driver) {
	case "sqlite":
		store, err := sqlite.Open(ctx, cfg.SqlitePath)
		if err != nil {
			return nil, nil, err
		}
		checks["sqlite"] = store.Ping

		logger.Info(logging.Sqlite, logging.Startup, "using sqlite room store", map[logging.ExtraKey]any{
			"path": cfg.SqlitePath,
		})
		return store, func() { _ = store.Close() }, nil
	default:
		logger.Warn(logging.General, logging.Startup, "using in-memory room store; rooms are lost on restart", nil)
		return repository.NewMemoryStore(), func() {}, nil
	}
}

func rateLimiterCache(ctx context.Context, cfg *configs.Config, logger logging.Logger, checks map[string]health.Check) (ratelimiter.GetterSetter, error) {
	if !strings.EqualFold(cfg.RateLimiter.Backend, "redis") {
		return ratelimiter.NewInMemory(time.Minute), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	checks["redis"] = func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}

	logger.Info(logging.Redis, logging.Startup, "rate limiter backed by redis", map[logging.ExtraKey]any{
		"addr": cfg.Redis.Addr,
	})
	return ratelimiter.NewRedis(client, rateLimitPrefix), nil
}
