// Command reconciler keeps reservations in step with settled payments. It
// consumes payment events and periodically links orphaned payments.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-placement-payments/internal/config"
	kafkax "github.com/ariefcatur/go-placement-payments/internal/kafka"
	"github.com/ariefcatur/go-placement-payments/internal/orchestrator"
	"github.com/ariefcatur/go-placement-payments/internal/payments"
	"github.com/ariefcatur/go-placement-payments/internal/postgres"
	"github.com/ariefcatur/go-placement-payments/internal/redisx"
	"github.com/ariefcatur/go-placement-payments/internal/reservations"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

const repairBatch = 100

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", cfg.ServiceName+"-reconciler")
	slog.SetDefault(logger)
	if err := cfg.Validate(); err != nil {
		logger.Error("config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// ReservationConfirmed events it emits go to the same topic
	prod := kafkax.NewProducer(cfg.KafkaBrokers, payments.TopicPaymentEvents, 256)
	pctx, pcancel := context.WithCancel(context.Background())
	prod.Start(pctx)

	svc := &orchestrator.Service{
		Payments:     &payments.Repo{DB: db},
		Reservations: &reservations.Repo{DB: db},
		Refs:         payments.NewReferenceGenerator(cfg.Location()),
		Events:       prod,
		Cache:        redisx.NewCache(rdb),
		Log:          logger,
		ServiceName:  cfg.ServiceName + "-reconciler",
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.ReconcilerGroup, payments.TopicPaymentEvents, cfg.ReconcilerWorkers, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("consumer started", "group", cfg.ReconcilerGroup, "topic", payments.TopicPaymentEvents, "workers", cfg.ReconcilerWorkers)
		return cons.Start(gctx, svc.HandleEvent)
	})
	g.Go(func() error {
		t := time.NewTicker(cfg.ReconcileInterval)
		defer t.Stop()
		for {
			n, err := svc.RepairOrphans(gctx, repairBatch)
			if err != nil {
				logger.Error("repair orphans", "err", err)
			} else if n > 0 {
				logger.Info("orphans repaired", "count", n)
			}
			select {
			case <-gctx.Done():
				return nil
			case <-t.C:
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("reconciler exit", "err", err)
	}
	logger.Info("shutting down")
	prod.Close()
	pcancel()
	prod.WaitClosed()
}
