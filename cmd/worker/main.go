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

	"github.com/askdocs/askdocs/internal/bootstrap"
	"github.com/askdocs/askdocs/internal/config"
	"github.com/askdocs/askdocs/internal/core/ports"
	"github.com/askdocs/askdocs/internal/observability/logging"
)

// The quality score below which an audited answer is flagged for review.
const lowQualityThreshold = 60

func main() {
	cfg := config.Load()
	logger := logging.Setup("worker", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.NewWorker(cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: app.Metrics.Handler(),
	}
	go func() {
		logger.Info("worker metrics listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("worker metrics server error: %v", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker subscribed", "subject", cfg.NATSAuditSubject)
	err = app.Audit.SubscribeAudits(ctx, func(handlerCtx context.Context, event ports.AuditEvent) error {
		start := time.Now()
		handleErr := handleAudit(logger, app, event)
		app.Metrics.FinishAudit("worker", time.Since(start), handleErr)
		return handleErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}

func handleAudit(logger *slog.Logger, app *bootstrap.WorkerApp, event ports.AuditEvent) error {
	attrs := []any{
		"request_id", event.RequestID,
		"user_id", event.UserID,
		"intent", event.Intent,
		"quality_score", event.QualityScore,
		"action", event.Action,
	}
	if len(event.RuleFailures) > 0 {
		attrs = append(attrs, "rule_failures", event.RuleFailures)
	}

	if event.QualityScore < lowQualityThreshold {
		app.Metrics.RecordLowQuality()
		logger.Warn("low quality answer audited", attrs...)
		return nil
	}
	logger.Info("answer audited", attrs...)
	return nil
}
