// Package app wires configuration, infrastructure, and the HTTP server
// together for the "api" runtime mode.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/covermd/dutyplanner/internal/audit"
	"github.com/covermd/dutyplanner/internal/config"
	"github.com/covermd/dutyplanner/internal/httpserver"
	"github.com/covermd/dutyplanner/internal/platform"
	"github.com/covermd/dutyplanner/internal/telemetry"
	"github.com/covermd/dutyplanner/pkg/calendar"
	"github.com/covermd/dutyplanner/pkg/notify"
	"github.com/covermd/dutyplanner/pkg/scheduleapi"
	"github.com/covermd/dutyplanner/pkg/scheduler"
)

// Run starts the dutyplanner API server and blocks until ctx is
// cancelled.
func Run(ctx context.Context, cfg *config.Config) error {
	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting dutyplanner", "mode", cfg.Mode, "listen", cfg.ListenAddr())

	db, err := platform.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	rdb, err := platform.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("closing redis", "error", err)
		}
	}()

	if err := platform.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("migrations applied")

	metricsReg := telemetry.NewMetricsRegistry()

	auditWriter := audit.NewWriter(db, logger)
	auditWriter.Start(ctx)
	defer auditWriter.Close()

	slackNotifier := notify.NewSlackNotifier(cfg.SlackBotToken, cfg.SlackAlertChannel, logger)
	if slackNotifier.IsEnabled() {
		logger.Info("slack run-completion notifications enabled", "channel", cfg.SlackAlertChannel)
	}

	srv := httpserver.NewServer(cfg, logger, db, rdb, metricsReg)

	holidays := platform.NewCachedHolidaySource(rdb, calendar.DefaultHolidaySource(), logger)
	service := &scheduler.Service{Holidays: holidays}
	scheduleHandler := scheduleapi.NewHandler(service, db, auditWriter, slackNotifier, logger)
	srv.APIRouter.Mount("/schedules", scheduleHandler.Routes())

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      srv,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server listening", "addr", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
