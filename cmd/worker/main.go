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

	"golang.org/x/sync/errgroup"

	"github.com/HikariMush/auto-coaching-log-sub000/internal/bootstrap"
	"github.com/HikariMush/auto-coaching-log-sub000/internal/config"
	"github.com/HikariMush/auto-coaching-log-sub000/internal/observability/logging"
	"github.com/HikariMush/auto-coaching-log-sub000/internal/observability/metrics"
)

const serviceName = "worker"

// processTimeout bounds one document end to end: extract, chunk, embed,
// index. Large PDFs with many chunks dominate the budget.
const processTimeout = 5 * time.Minute

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger(serviceName, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wm := metrics.NewWorkerMetrics(serviceName)

	app, err := bootstrap.New(ctx, cfg, nil)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		slog.Info("worker_subscribed", "subject", cfg.NATSSubjectKnowledge)
		return app.Queue.SubscribeDocumentIngested(groupCtx, func(handlerCtx context.Context, documentID string) error {
			wm.StartDocument()
			start := time.Now()

			if doc, err := app.Repo.GetByID(handlerCtx, documentID); err == nil {
				wm.ObserveQueueLag(serviceName, time.Since(doc.CreatedAt))
			}

			processCtx, cancel := context.WithTimeout(handlerCtx, processTimeout)
			defer cancel()

			err := app.ProcessUC.ProcessByID(processCtx, documentID)
			wm.FinishDocument(serviceName, time.Since(start), err)
			if err != nil {
				slog.Error("document_processing_failed", "document_id", documentID, "error", err)
			}
			return err
		})
	})

	group.Go(func() error {
		slog.Info("worker_subscribed", "subject", cfg.NATSSubjectSheets)
		return app.Queue.SubscribeSheetReceived(groupCtx, func(handlerCtx context.Context, storageKey string) error {
			importCtx, cancel := context.WithTimeout(handlerCtx, processTimeout)
			defer cancel()

			report, err := app.ImportUC.ImportByKey(importCtx, storageKey)
			moves := 0
			if report != nil {
				moves = report.Moves
			}
			wm.FinishSheetImport(serviceName, moves, err)
			if err != nil {
				slog.Error("sheet_import_failed", "storage_key", storageKey, "error", err)
			}
			return err
		})
	})

	group.Go(func() error {
		mux := http.NewServeMux()
		mux.Handle("/metrics", wm.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		server := &http.Server{
			Addr:        ":" + cfg.WorkerMetricsPort,
			Handler:     mux,
			ReadTimeout: 10 * time.Second,
		}

		go func() {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()

		slog.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	if err := group.Wait(); err != nil && err != context.Canceled {
		log.Fatalf("worker error: %v", err)
	}
}
