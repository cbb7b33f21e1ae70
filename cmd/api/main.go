package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-placement-payments/internal/config"
	"github.com/ariefcatur/go-placement-payments/internal/httpx"
	"github.com/ariefcatur/go-placement-payments/internal/identity"
	kafkax "github.com/ariefcatur/go-placement-payments/internal/kafka"
	"github.com/ariefcatur/go-placement-payments/internal/orchestrator"
	"github.com/ariefcatur/go-placement-payments/internal/payments"
	"github.com/ariefcatur/go-placement-payments/internal/postgres"
	"github.com/ariefcatur/go-placement-payments/internal/provider"
	"github.com/ariefcatur/go-placement-payments/internal/redisx"
	"github.com/ariefcatur/go-placement-payments/internal/reservations"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", cfg.ServiceName)
	slog.SetDefault(logger)
	if err := cfg.Validate(); err != nil {
		logger.Error("config", "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		logger.Error("db migrate", "err", err)
		os.Exit(1)
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer
	prod := kafkax.NewProducer(cfg.KafkaBrokers, payments.TopicPaymentEvents, 1024)
	prod.Start(ctx)

	svc := &orchestrator.Service{
		Payments:                 &payments.Repo{DB: db},
		Reservations:             &reservations.Repo{DB: db},
		Users:                    &identity.Repo{DB: db},
		Providers:                provider.FromConfig(cfg),
		Refs:                     payments.NewReferenceGenerator(cfg.Location()),
		Events:                   prod,
		Cache:                    redisx.NewCache(rdb),
		Log:                      logger,
		DefaultMethod:            payments.Method(cfg.DefaultMethod),
		DefaultReservationAmount: cfg.DefaultReservationAmount,
		ServiceName:              cfg.ServiceName,
	}

	router := httpx.NewRouter(httpx.NewAuth(cfg.JWTSecret))
	router.Route("/api/v1", func(r chi.Router) {
		(&httpx.PaymentsHandler{Svc: svc, FrontendURL: cfg.FrontendURL, Log: logger}).Register(r)
		(&httpx.ReservationsHandler{Svc: svc, Log: logger}).Register(r)
	})

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		logger.Info("HTTP listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("listen", "err", err)
			os.Exit(1)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close() // flush queued events
	cancel()
	prod.WaitClosed()
}
