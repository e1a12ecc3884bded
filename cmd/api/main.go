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

	httpadapter "github.com/HikariMush/auto-coaching-log-sub000/internal/adapters/http"
	"github.com/HikariMush/auto-coaching-log-sub000/internal/bootstrap"
	"github.com/HikariMush/auto-coaching-log-sub000/internal/config"
	"github.com/HikariMush/auto-coaching-log-sub000/internal/observability/logging"
	"github.com/HikariMush/auto-coaching-log-sub000/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("api", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.NewHTTPServerMetrics("api")

	app, err := bootstrap.New(ctx, cfg, m)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	router := httpadapter.NewRouter(cfg, app.AskUC, app.IngestUC, app.SheetUC, app.Models, app.Repo, m).Handler()
	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
		// WriteTimeout covers the slowest ask: synthesis may wait out a
		// full rate-limit backoff before its second attempt.
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("api_listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("api_shutdown_failed", "error", err)
	}
}
