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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	jwttoken "immo/internal/jwt_token"
	"immo/internal/notify"
	"immo/internal/platform/config"
	"immo/internal/platform/httpserver"
	"immo/internal/platform/logger"
	platformmetrics "immo/internal/platform/metrics"
	"immo/internal/platform/postgres"
	"immo/internal/platform/redis"
	ratelimitmw "immo/internal/ratelimit/middleware"
	ratelimitmodels "immo/internal/ratelimit/models"
	ratelimit "immo/internal/ratelimit/service"
	"immo/internal/ratelimit/store/bucket"
	salesmetrics "immo/internal/sales/metrics"
	salesmodels "immo/internal/sales/models"
	sales "immo/internal/sales/service"
	salesstore "immo/internal/sales/store"
	"immo/internal/sales/store/migrations"
	signaturemetrics "immo/internal/signature/metrics"
	signature "immo/internal/signature/service"
	signaturestore "immo/internal/signature/store"
	httptransport "immo/internal/transport/http"
	id "immo/pkg/domain"
	audit "immo/pkg/platform/audit"
	"immo/pkg/platform/audit/outbox"
	"immo/pkg/platform/audit/publisher"
	kafkasink "immo/pkg/platform/audit/store/kafka"
	auditmemory "immo/pkg/platform/audit/store/memory"
	auditpostgres "immo/pkg/platform/audit/store/postgres"
	"immo/pkg/platform/circuit"
)

// main wires infrastructure, services and the HTTP router, then runs the
// server and the audit relay until a signal arrives.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

type app struct {
	router  http.Handler
	relay   *outbox.Relay
	cleanup []func()
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	a, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		for i := len(a.cleanup) - 1; i >= 0; i-- {
			a.cleanup[i]()
		}
	}()

	srv := httpserver.New(cfg.Server.Addr, a.router)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting immo", "addr", cfg.Server.Addr, "env", cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if a.relay != nil {
		g.Go(func() error {
			return a.relay.Run(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func build(ctx context.Context, cfg config.Config, log *slog.Logger) (*app, error) {
	a := &app{}
	checks := map[string]httptransport.HealthCheck{}

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if db != nil {
		a.cleanup = append(a.cleanup, func() { _ = db.Close() })
		checks["postgres"] = db.PingContext
		if cfg.Database.Migrate {
			if err := migrations.Apply(ctx, db); err != nil {
				return nil, fmt.Errorf("apply migrations: %w", err)
			}
		}
	}

	auditStore, relay, closeAudit, err := buildAudit(ctx, cfg, log, db, checks)
	if err != nil {
		return nil, err
	}
	a.relay = relay
	a.cleanup = append(a.cleanup, closeAudit)

	pub := publisher.NewPublisher(auditStore,
		publisher.WithAsyncBuffer(cfg.Audit.BufferSize),
		publisher.WithWorkers(cfg.Audit.Workers),
		publisher.WithLogger(log),
		publisher.WithMetrics(publisher.NewMetrics(prometheus.DefaultRegisterer)),
	)
	a.cleanup = append(a.cleanup, func() { _ = pub.Close() })

	salesOpts := []sales.Option{
		sales.WithLogger(log),
		sales.WithMetrics(salesmetrics.New()),
		sales.WithAuditSink(pub),
	}
	var salesSvc *sales.Service
	if db != nil {
		salesSvc = sales.New(salesstore.NewPostgres(db), salesstore.NewPostgresTxRunner(db, cfg.Database.TxTimeout), salesOpts...)
		err = seedUnits(cfg.Units, func(u *salesmodels.Unit) error {
			return salesstore.NewPostgres(db).UpsertUnit(ctx, u)
		})
	} else {
		mem := salesstore.NewMemory()
		salesSvc = sales.New(mem, mem, salesOpts...)
		err = seedUnits(cfg.Units, func(u *salesmodels.Unit) error {
			mem.PutUnit(u)
			return nil
		})
		log.Warn("DATABASE_URL not set, sales state is in memory")
	}
	if err != nil {
		return nil, err
	}

	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	var kv signature.KV
	if rdb != nil {
		a.cleanup = append(a.cleanup, func() { _ = rdb.Close() })
		checks["redis"] = rdb.Health
		kv = signaturestore.NewRedis(rdb.Client, signaturestore.WithKeyPrefix(cfg.Redis.KeyPrefix))
	} else {
		kv = signaturestore.NewMemory()
		log.Warn("REDIS_URL not set, signature codes are in memory")
	}
	rateLimit, err := buildRateLimit(cfg.RateLimit, rdb, log)
	if err != nil {
		return nil, err
	}

	signatureSvc, err := signature.New(kv, salesSvc, notify.NewLog(log),
		signature.WithConfig(signature.Config{
			CodeTTL:       cfg.Signature.CodeTTL,
			MaxAttempts:   cfg.Signature.MaxAttempts,
			BlockDuration: cfg.Signature.BlockDuration,
			BcryptCost:    cfg.Signature.BcryptCost,
		}),
		signature.WithAuditSink(pub),
		signature.WithLogger(log),
		signature.WithMetrics(signaturemetrics.New()),
	)
	if err != nil {
		return nil, err
	}

	jwtService := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience)

	a.router = httptransport.NewRouter(httptransport.Dependencies{
		Sales:        salesSvc,
		Signature:    signatureSvc,
		Tokens:       jwttoken.NewJWTServiceAdapter(jwtService),
		RateLimit:    rateLimit,
		Observer:     platformmetrics.New(),
		Metrics:      promhttp.Handler(),
		Health:       checks,
		Logger:       log,
		MetricsToken: cfg.Server.MetricsToken,
		CORSOrigins:  cfg.Server.CORSOrigins,
	})
	return a, nil
}

// buildAudit picks the audit destination. With PostgreSQL, events go to the
// outbox and the relay forwards them to Kafka. Without it, events are kept in
// memory and, when brokers are configured, produced to Kafka directly.
func buildAudit(ctx context.Context, cfg config.Config, log *slog.Logger, db *sql.DB, checks map[string]httptransport.HealthCheck) (audit.Store, *outbox.Relay, func(), error) {
	noop := func() {}

	var sink *kafkasink.Sink
	if cfg.Kafka.Enabled() {
		s, err := kafkasink.New(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			return nil, nil, noop, err
		}
		if err := s.EnsureTopic(ctx, -1, -1); err != nil {
			s.Close()
			return nil, nil, noop, err
		}
		sink = s
		checks["kafka"] = s.Health
	}
	closeSink := func() {
		if sink != nil {
			sink.Close()
		}
	}

	if db != nil {
		store := auditpostgres.New(db)
		if sink == nil {
			log.Warn("KAFKA_BROKERS not set, audit events stay in the outbox")
			return store, nil, closeSink, nil
		}
		relay := outbox.NewRelay(db, store, sink,
			outbox.WithLogger(log),
			outbox.WithInterval(cfg.Audit.RelayInterval),
			outbox.WithBatchSize(cfg.Audit.RelayBatchSize),
			outbox.WithBreaker(circuit.New("audit-outbox")),
		)
		return store, relay, closeSink, nil
	}

	mem := auditmemory.NewInMemoryStore()
	if sink == nil {
		return mem, nil, closeSink, nil
	}
	return audit.Fanout{mem, sink}, nil, closeSink, nil
}

// buildRateLimit shares windows through Redis when available and keeps an
// in-memory limiter as the fallback while Redis is failing.
func buildRateLimit(cfg config.RateLimitConfig, rdb *redis.Client, log *slog.Logger) (*ratelimitmw.Middleware, error) {
	if !cfg.Enabled {
		return ratelimitmw.New(nil, log, ratelimitmw.WithDisabled(true)), nil
	}
	local, err := newLimiter(cfg, bucket.NewInMemoryBucketStore(), log)
	if err != nil {
		return nil, err
	}
	if rdb == nil {
		return ratelimitmw.New(local, log), nil
	}
	shared, err := newLimiter(cfg, bucket.NewRedisBucketStore(rdb.Client, cfg.KeyPrefix), log)
	if err != nil {
		return nil, err
	}
	return ratelimitmw.New(shared, log,
		ratelimitmw.WithFallback(local),
		ratelimitmw.WithBreaker(circuit.New("rate-limit")),
	), nil
}

func newLimiter(cfg config.RateLimitConfig, store ratelimit.BucketStore, log *slog.Logger) (*ratelimit.Service, error) {
	return ratelimit.New(store,
		ratelimit.WithLogger(log),
		ratelimit.WithLimit(ratelimitmodels.ClassRead, ratelimitmodels.Limit{Requests: cfg.ReadLimit, Window: cfg.Window}),
		ratelimit.WithLimit(ratelimitmodels.ClassWrite, ratelimitmodels.Limit{Requests: cfg.WriteLimit, Window: cfg.Window}),
		ratelimit.WithLimit(ratelimitmodels.ClassSignature, ratelimitmodels.Limit{Requests: cfg.SignatureLimit, Window: cfg.Window}),
	)
}

func seedUnits(seeds []config.UnitSeed, put func(*salesmodels.Unit) error) error {
	now := time.Now().UTC()
	for _, seed := range seeds {
		unitID, err := id.ParseUnitID(seed.ID)
		if err != nil {
			return fmt.Errorf("seed unit %q: %w", seed.ID, err)
		}
		price, err := decimal.NewFromString(seed.Price)
		if err != nil {
			return fmt.Errorf("seed unit %q price: %w", seed.ID, err)
		}
		if err := put(&salesmodels.Unit{
			ID:           unitID,
			Price:        price,
			Availability: salesmodels.AvailabilityAvailable,
			UpdatedAt:    now,
		}); err != nil {
			return fmt.Errorf("seed unit %q: %w", seed.ID, err)
		}
	}
	return nil
}
