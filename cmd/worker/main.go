package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/auslawai/legal-assistant/internal/bootstrap"
	"github.com/auslawai/legal-assistant/internal/config"
	"github.com/auslawai/legal-assistant/internal/core/domain"
	"github.com/auslawai/legal-assistant/internal/observability/logging"
	"github.com/auslawai/legal-assistant/internal/observability/metrics"
)

const service = "worker"

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger(service, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(service)
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("worker_metrics_server_error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeBriefs(ctx, func(handlerCtx context.Context, brief *domain.EscalationBrief) error {
		start := time.Now()
		workerMetrics.StartBrief()
		workerMetrics.ObserveQueueLag(service, time.Since(brief.GeneratedAt))

		saveCtx, cancel := context.WithTimeout(handlerCtx, 30*time.Second)
		defer cancel()
		saveErr := app.Briefs.Save(saveCtx, brief)

		workerMetrics.FinishBrief(service, time.Since(start), saveErr)
		if saveErr != nil {
			return saveErr
		}
		slog.Info("brief_persisted", "brief_id", brief.BriefID, "urgency", brief.UrgencyLevel)
		return nil
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
