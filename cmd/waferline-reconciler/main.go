// Waferline Reconciler — досылает оркестратору группы, не дошедшие
// до очереди.
//
// Reconciler:
//   - Периодически (по cron-выражению) выбирает группы с
//     submitted_to_queue = false
//   - Публикует их в waferline.groups
//   - Помечает группы отправленными
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Waferline/internal/mq"
	"github.com/shaiso/Waferline/internal/reconcile"
	"github.com/shaiso/Waferline/internal/repo"
	"github.com/shaiso/Waferline/internal/telemetry"
)

const reconcileLockKey int64 = 515151

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting waferline-reconciler")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// DB pool
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	groupRepo := repo.NewGroupRepo(pool)

	// RabbitMQ
	mqURL := os.Getenv("RABBITMQ_URL")
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}

	mqConn, err := mq.NewConnection(mqURL, logger)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer mqConn.Close()
	logger.Info("RabbitMQ connected")

	if err := mq.SetupTopology(ctx, mqConn); err != nil {
		logger.Warn("failed to setup topology", "error", err)
	}

	publisher := mq.NewPublisher(mqConn, logger)

	cronExpr := os.Getenv("RECONCILE_CRON")
	if cronExpr == "" {
		cronExpr = "*/5 * * * *"
	}

	rec := reconcile.New(reconcile.Config{
		Repo:      groupRepo,
		Submitter: publisher,
		Logger:    logger,
	})

	// reconcile loop: работает только лидер
	go func() {
		var hasLock bool
		defer func() {
			if hasLock {
				_, _ = pool.Exec(context.Background(), "select pg_advisory_unlock($1)", reconcileLockKey)
			}
		}()

		// пытаемся стать лидером
		for !hasLock {
			var ok bool
			if err := pool.QueryRow(ctx, "select pg_try_advisory_lock($1)", reconcileLockKey).Scan(&ok); err != nil {
				logger.Error("advisory lock error", "error", err)
			}
			hasLock = ok

			if !hasLock {
				select {
				case <-ctx.Done():
					return
				case <-time.After(10 * time.Second):
				}
			}
		}

		logger.Info("acquired leader lock", "cron", cronExpr)
		if err := rec.Run(ctx, cronExpr); err != nil && ctx.Err() == nil {
			logger.Error("reconciler stopped", "error", err)
			cancel()
		}
	}()

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8081"
	if v := os.Getenv("RECONCILER_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("waferline-reconciler stopped")
}
