package server

import (
	"context"
	"fmt"
	"io"
	"time"

	pkgch "YoForex/pkg/clickhouse"
	xhttp "YoForex/pkg/http"
	pkgkafka "YoForex/pkg/kafka"
	applogger "YoForex/pkg/logger"
	"YoForex/pkg/queue"

	"github.com/redis/go-redis/v9"
)

// App encapsulates the entire application lifecycle.
type App struct {
	log      *applogger.Logger
	http     *xhttp.Server
	jobs     *queue.RedisQueue
	consumer *pkgkafka.Consumer
	events   io.Closer
	ch       *pkgch.Client
	rdb      *redis.Client
}

// New creates an App. consumer and ch may be nil when Kafka or ClickHouse are disabled.
func New(
	log *applogger.Logger,
	http *xhttp.Server,
	jobs *queue.RedisQueue,
	consumer *pkgkafka.Consumer,
	events io.Closer,
	ch *pkgch.Client,
	rdb *redis.Client,
) *App {
	return &App{
		log:      log,
		http:     http,
		jobs:     jobs,
		consumer: consumer,
		events:   events,
		ch:       ch,
		rdb:      rdb,
	}
}

// Run starts background workers and the HTTP server, then blocks until ctx is done
// or the listener fails. Everything is stopped before it returns.
func (a *App) Run(ctx context.Context) error {
	// workers outlive ctx so shutdown can drain them
	bg, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()

	if err := a.jobs.Start(bg); err != nil {
		return fmt.Errorf("start job queue: %w", err)
	}
	if a.consumer != nil {
		if err := a.consumer.Start(bg); err != nil {
			a.shutdown()
			return fmt.Errorf("start kafka consumer: %w", err)
		}
	}
	if err := a.http.Start(); err != nil {
		a.shutdown()
		return fmt.Errorf("start http server: %w", err)
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("shutdown requested")
	case err := <-a.http.Errors():
		runErr = err
	}

	a.shutdown()
	return runErr
}

// shutdown stops intake first, then workers, then closes clients.
func (a *App) shutdown() {
	timeout := a.http.ShutdownTimeout()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := a.http.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}
	if err := a.jobs.Stop(ctx); err != nil {
		a.log.Warn("job queue stop error", applogger.Error(err))
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// flush collected logs while the producer is still open
	a.log.RemoveCollector()

	if a.events != nil {
		if err := a.events.Close(); err != nil {
			a.log.Warn("event publisher close error", applogger.Error(err))
		}
	}
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if err := a.rdb.Close(); err != nil {
		a.log.Warn("redis close error", applogger.Error(err))
	}

	a.log.Info("shutdown complete")
}
