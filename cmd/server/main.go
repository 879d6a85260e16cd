package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	jwttoken "carreg/internal/jwt_token"
	"carreg/internal/platform/config"
	"carreg/internal/platform/httpserver"
	"carreg/internal/platform/logger"
	httpmetrics "carreg/internal/platform/metrics"
	redisclient "carreg/internal/platform/redis"
	"carreg/internal/registration/adapters/bulkapi"
	"carreg/internal/registration/brand"
	"carreg/internal/registration/handler"
	"carreg/internal/registration/lock"
	regmetrics "carreg/internal/registration/metrics"
	"carreg/internal/registration/models"
	"carreg/internal/registration/service"
	"carreg/internal/registration/store"
	audit "carreg/pkg/platform/audit"
	"carreg/pkg/platform/audit/outbox"
	"carreg/pkg/platform/audit/publisher"
	auditmemory "carreg/pkg/platform/audit/store/memory"
	auditpostgres "carreg/pkg/platform/audit/store/postgres"
	"carreg/pkg/platform/circuit"
	"carreg/pkg/platform/httputil"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in internal/registration.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Server.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// infra holds the optional backends selected by configuration.
type infra struct {
	db     *sql.DB
	redis  *redisclient.Client
	kafka  *kgo.Client
	health []func(context.Context) error
}

func (i *infra) close() {
	if i.kafka != nil {
		i.kafka.Close()
	}
	if i.redis != nil {
		_ = i.redis.Close()
	}
	if i.db != nil {
		_ = i.db.Close()
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	deps, err := openInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer deps.close()

	var (
		records    service.Store
		auditStore audit.Store
	)
	if deps.db != nil {
		records = store.NewPostgres(deps.db)
		auditStore = auditpostgres.New(deps.db)
	} else {
		records = store.NewInMemoryStore()
		auditStore = auditmemory.NewInMemoryStore()
	}

	var locker service.Locker = lock.NewMemoryLocker(lock.WithAcquireTimeout(cfg.Registration.StoreTimeout))
	if deps.redis != nil {
		locker = lock.NewRedisLocker(deps.redis.Client,
			lock.WithTTL(cfg.Registration.LockTTL),
			lock.WithRedisAcquireTimeout(cfg.Registration.StoreTimeout),
		)
	}

	auditPublisher := publisher.NewPublisher(auditStore,
		publisher.WithAsyncBuffer(1024),
		publisher.WithLogger(log),
	)
	defer auditPublisher.Close()

	defaultBrand, err := brand.ParseBrand(cfg.Registration.DefaultBrand)
	if err != nil {
		return fmt.Errorf("default brand: %w", err)
	}

	remote := bulkapi.NewBreakerClient(
		bulkapi.MockClient{Latency: cfg.RemoteAPI.Latency},
		circuit.New("bulkapi",
			circuit.WithFailureThreshold(cfg.RemoteAPI.BreakerFailures),
			circuit.WithSuccessThreshold(cfg.RemoteAPI.BreakerSuccesses),
		),
		bulkapi.WithLogger(log),
		bulkapi.WithProbeInterval(cfg.RemoteAPI.BreakerProbeEvery),
	)

	registration := service.New(records, remote,
		service.WithLogger(log),
		service.WithMetrics(regmetrics.New()),
		service.WithAuditPublisher(auditPublisher),
		service.WithLocker(locker),
		service.WithBrand(defaultBrand),
		service.WithStoreTimeout(cfg.Registration.StoreTimeout),
		service.WithFinishTimeout(cfg.Registration.FinishTimeout),
		service.WithRequestContext(models.RequestContext{
			ShipTo:       cfg.Registration.ShipTo,
			LanguageCode: cfg.Registration.LanguageCode,
			TimeZone:     cfg.Registration.TimeZone,
		}),
	)

	jwtService := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience)
	router := chi.NewRouter()
	router.Get("/health", healthHandler(deps.health))
	router.Handle("/metrics", promhttp.Handler())
	handler.New(registration, log, jwttoken.NewJWTServiceAdapter(jwtService),
		handler.WithAdminToken(cfg.Server.AdminToken),
		handler.WithRequestTimeout(cfg.Server.RequestTimeout),
		handler.WithMiddleware(httpmetrics.New().Middleware),
	).Register(router)

	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting carreg", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if deps.kafka != nil && deps.db != nil {
		relay := outbox.NewRelay(auditpostgres.New(deps.db), deps.kafka, cfg.Kafka.AuditTopic,
			outbox.WithInterval(cfg.Kafka.PollInterval),
			outbox.WithBatchSize(cfg.Kafka.BatchSize),
			outbox.WithLogger(log),
		)
		g.Go(func() error {
			log.Info("starting audit outbox relay", "topic", cfg.Kafka.AuditTopic)
			return relay.Run(gctx)
		})
	}

	return g.Wait()
}

func openInfra(ctx context.Context, cfg config.Config, log *slog.Logger) (*infra, error) {
	deps := &infra{}

	if cfg.Database.URL != "" {
		db, err := sql.Open("pgx", cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		deps.db = db
		if err := db.PingContext(ctx); err != nil {
			deps.close()
			return nil, fmt.Errorf("ping database: %w", err)
		}
		if err := store.Migrate(ctx, db); err != nil {
			deps.close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		deps.health = append(deps.health, db.PingContext)
		log.Info("using postgres store")
	} else {
		log.Warn("DATABASE_URL not set, vehicle records are kept in memory")
	}

	client, err := redisclient.New(ctx, cfg.Redis)
	if err != nil {
		deps.close()
		return nil, err
	}
	if client != nil {
		deps.redis = client
		deps.health = append(deps.health, client.Health)
		log.Info("using redis vehicle locks")
	}

	if len(cfg.Kafka.Brokers) > 0 {
		kafka, err := kgo.NewClient(
			kgo.SeedBrokers(cfg.Kafka.Brokers...),
			kgo.DefaultProduceTopic(cfg.Kafka.AuditTopic),
		)
		if err != nil {
			deps.close()
			return nil, fmt.Errorf("kafka client: %w", err)
		}
		deps.kafka = kafka
	}

	return deps, nil
}

func healthHandler(checks []func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, check := range checks {
			if err := check(r.Context()); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
