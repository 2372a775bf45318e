// expense-server serves the expense tracker HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	goExpense "github.com/MrEthical07/goExpense"
	"github.com/MrEthical07/goExpense/audit/kafkaaudit"
	"github.com/MrEthical07/goExpense/internal/config"
	"github.com/MrEthical07/goExpense/internal/httpapi"
	"github.com/MrEthical07/goExpense/internal/logger"
	"github.com/MrEthical07/goExpense/ledger"
	promexport "github.com/MrEthical07/goExpense/metrics/export/prometheus"
	otelexport "github.com/MrEthical07/goExpense/metrics/export/otel"
	"github.com/MrEthical07/goExpense/password"
	"github.com/MrEthical07/goExpense/users"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config (defaults to CONFIG_PATH or config/local.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	engineCfg, err := cfg.ToEngineConfig()
	if err != nil {
		return err
	}

	rdb := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{cfg.Redis.Addr},
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	userRepo, err := users.NewMongoRepository(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		return fmt.Errorf("mongo: %w", err)
	}
	defer func() { _ = userRepo.Close(context.Background()) }()

	ledgerDB, err := ledger.Open(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer ledgerDB.Close()

	hasher, err := password.NewArgon2(cfg.PasswordHasherConfig())
	if err != nil {
		return fmt.Errorf("password hasher: %w", err)
	}

	sink, closeSink, err := auditSink(cfg, log)
	if err != nil {
		return err
	}
	defer closeSink()

	engine, err := goExpense.New().
		WithConfig(engineCfg).
		WithRedis(rdb).
		WithUserProvider(users.NewProvider(userRepo, hasher, log)).
		WithAuditSink(sink).
		WithLogger(log).
		Build()
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	defer engine.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		promexport.NewCollector(engine),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	meterProvider, err := otelexport.NewMeterProvider(ctx, otelexport.ProviderConfig{
		Endpoint:    cfg.Metrics.OTLPEndpoint,
		ServiceName: cfg.Metrics.ServiceName,
		Insecure:    cfg.Metrics.OTLPInsecure,
	})
	if err != nil {
		return err
	}
	defer func() { _ = meterProvider.Shutdown(context.Background()) }()
	otelExporter, err := otelexport.NewExporter(meterProvider.Meter("goexpense"), engine)
	if err != nil {
		return err
	}
	defer otelExporter.Close()

	router := httpapi.NewRouter(httpapi.Options{
		Logger:       log,
		Engine:       engine,
		Users:        users.NewService(userRepo, hasher, engine, log),
		Categories:   ledgerDB.Categories(),
		Transactions: ledgerDB.Transactions(),
		HealthChecks: []httpapi.HealthCheck{
			{Name: "redis", Check: engine.Health},
			{Name: "mongo", Check: userRepo.Ping},
			{Name: "postgres", Check: ledgerDB.Ping},
		},
		Metrics:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		TrustProxyHeaders: cfg.HTTP.TrustProxyHeaders,
		Timeout:           cfg.HTTP.WriteTimeout,
	})

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http listening", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func auditSink(cfg *config.Config, log *slog.Logger) (goExpense.AuditSink, func(), error) {
	switch cfg.Audit.Sink {
	case "kafka":
		s, err := kafkaaudit.New(cfg.Audit.KafkaBrokers, cfg.Audit.KafkaTopic, log)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case "none":
		return goExpense.NoOpSink{}, func() {}, nil
	default:
		return goExpense.NewSlogSink(log.With("component", "audit")), func() {}, nil
	}
}
