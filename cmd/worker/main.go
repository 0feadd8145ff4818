package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/tourai-backend/internal/bootstrap"
	"github.com/kirillkom/tourai-backend/internal/config"
	"github.com/kirillkom/tourai-backend/internal/core/domain"
	"github.com/kirillkom/tourai-backend/internal/observability/logging"
	"github.com/kirillkom/tourai-backend/internal/observability/metrics"
)

const serviceName = "worker"

func main() {
	cfg := config.Load()
	logging.Setup(serviceName, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg, bootstrap.WithResilienceObserver(workerMetrics.Resilience()))
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           metricsMux(workerMetrics),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("worker metrics listening on :%s", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("worker metrics server error: %v", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	log.Printf("worker subscribed to %s", cfg.NATSSubject)
	err = app.Queue.SubscribeRecommendations(ctx, func(handlerCtx context.Context, event domain.RecommendationEvent) error {
		workerMetrics.StartEvent()
		if !event.CreatedAt.IsZero() {
			workerMetrics.ObserveEventLag(serviceName, time.Since(event.CreatedAt))
		}
		start := time.Now()

		recordCtx, cancel := context.WithTimeout(handlerCtx, 30*time.Second)
		defer cancel()
		err := app.StatsUC.Record(recordCtx, event)
		workerMetrics.FinishEvent(serviceName, len(event.TourIDs), time.Since(start), err)
		return err
	})
	if err != nil {
		log.Printf("worker subscribe error: %v", err)
	}
}

func metricsMux(m *metrics.WorkerMetrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", m.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}
