package server

import (
	"context"
	"testing"
	"time"

	xhttp "YoForex/pkg/http"
	applogger "YoForex/pkg/logger"
	"YoForex/pkg/queue"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closeRecorder struct{ closed bool }

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func TestRunStopsEverythingWhenContextEnds(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	log := applogger.Nop()

	srv := xhttp.NewServer(log, nil,
		xhttp.WithHost("127.0.0.1"),
		xhttp.WithPort(0),
		xhttp.WithMetricsPath(""),
		xhttp.WithTimeouts(0, 0, 2*time.Second),
	)
	jobs := queue.NewRedisQueue(log, &queue.QueueConfig{Workers: 1, PollInterval: 10 * time.Millisecond}, rdb, queue.WithKeyPrefix("test:jobs"))
	events := &closeRecorder{}
	app := New(log, srv, jobs, nil, events, nil, rdb)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	assert.True(t, events.closed)
	assert.ErrorIs(t, rdb.Ping(context.Background()).Err(), redis.ErrClosed)
}
