package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"YoForex/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greeting struct {
	Name string `json:"name"`
}

type testJob struct {
	calls int32
	fail  func(n int32) error
	seen  atomic.Value
}

func (j *testJob) Name() string { return "greet" }
func (j *testJob) Type() string { return "greet" }
func (j *testJob) Handle(_ context.Context, payload json.RawMessage) error {
	n := atomic.AddInt32(&j.calls, 1)
	p, err := ParsePayload[greeting](payload)
	if err != nil {
		return err
	}
	j.seen.Store(p.Name)
	if j.fail != nil {
		return j.fail(n)
	}
	return nil
}

func newTestQueue(t *testing.T, cfg *QueueConfig) (*RedisQueue, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisQueue(logger.Nop(), cfg, client, WithKeyPrefix("test:queue")), s
}

func TestEnqueueRequiresRegisteredJob(t *testing.T) {
	q, _ := newTestQueue(t, nil)
	_, err := q.Enqueue(context.Background(), "unknown", nil)
	assert.Error(t, err)
}

func TestProcessNextRunsJob(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t, nil)
	job := &testJob{}
	q.RegisterJob(job)

	id, err := q.Enqueue(ctx, "greet", greeting{Name: "ada"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	handled, err := q.ProcessNext(ctx, time.Second)
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, "ada", job.seen.Load())

	pending, retry, dead, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending+retry+dead)
}

func TestFailedJobIsRetriedThenDeadLettered(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t, &QueueConfig{RetryLimit: 1, RetryDelay: time.Millisecond})
	job := &testJob{fail: func(int32) error { return errors.New("nope") }}
	q.RegisterJob(job)

	_, err := q.Enqueue(ctx, "greet", greeting{Name: "bob"})
	require.NoError(t, err)

	_, err = q.ProcessNext(ctx, time.Second)
	require.NoError(t, err)
	_, retry, _, _ := q.Len(ctx)
	assert.EqualValues(t, 1, retry)

	moved, err := q.PromoteDue(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, moved)

	_, err = q.ProcessNext(ctx, time.Second)
	require.NoError(t, err)

	pending, retry, dead, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
	assert.Zero(t, retry)
	assert.EqualValues(t, 1, dead)
	assert.EqualValues(t, 2, atomic.LoadInt32(&job.calls))
}

func TestPermanentErrorSkipsRetry(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t, &QueueConfig{RetryLimit: 5})
	q.RegisterJob(&testJob{fail: func(int32) error { return backoff.Permanent(errors.New("bad input")) }})

	_, err := q.Enqueue(ctx, "greet", greeting{})
	require.NoError(t, err)
	_, err = q.ProcessNext(ctx, time.Second)
	require.NoError(t, err)

	_, retry, dead, _ := q.Len(ctx)
	assert.Zero(t, retry)
	assert.EqualValues(t, 1, dead)
}

func TestPromoteDueLeavesFutureRetries(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t, &QueueConfig{RetryDelay: time.Hour})
	q.RegisterJob(&testJob{fail: func(int32) error { return errors.New("later") }})

	_, _ = q.Enqueue(ctx, "greet", greeting{})
	_, _ = q.ProcessNext(ctx, time.Second)

	moved, err := q.PromoteDue(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, moved)
}

func TestRetryDelayGrows(t *testing.T) {
	q, _ := newTestQueue(t, &QueueConfig{RetryDelay: time.Second})
	first := q.retryDelay(1)
	assert.GreaterOrEqual(t, first, 500*time.Millisecond)
	assert.LessOrEqual(t, first, 1500*time.Millisecond)

	fourth := q.retryDelay(4)
	assert.Greater(t, fourth, 1500*time.Millisecond)
}

func TestWorkersDrainQueue(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t, &QueueConfig{Workers: 2})
	job := &testJob{}
	q.RegisterJob(job)

	for i := 0; i < 5; i++ {
		_, err := q.Enqueue(ctx, "greet", greeting{Name: "n"})
		require.NoError(t, err)
	}

	require.NoError(t, q.Start(ctx))
	require.Eventually(t, func() bool { return atomic.LoadInt32(&job.calls) == 5 }, 3*time.Second, 10*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, q.Stop(stopCtx))
}

// failingPush makes LPUSH fail so dead-lettering can be exercised.
type failingPush struct{}

func (failingPush) DialHook(next redis.DialHook) redis.DialHook { return next }

func (failingPush) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if strings.EqualFold(cmd.Name(), "lpush") {
			err := errors.New("READONLY replica")
			cmd.SetErr(err)
			return err
		}
		return next(ctx, cmd)
	}
}

func (failingPush) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestUndecodableMessageLogsLostDeadLetter(t *testing.T) {
	ctx := context.Background()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	var buf bytes.Buffer
	q := NewRedisQueue(logger.NewWithWriter(&buf, zerolog.DebugLevel), nil, client, WithKeyPrefix("test:queue"))
	_, err := s.Lpush("test:queue:messages", "{not json")
	require.NoError(t, err)

	client.AddHook(failingPush{})
	handled, err := q.ProcessNext(ctx, time.Second)
	require.NoError(t, err)
	assert.True(t, handled)

	out := buf.String()
	assert.Contains(t, out, "queue dead-letter push failed, message lost")
	assert.Contains(t, out, "READONLY replica")
	assert.Contains(t, out, "{not json")
}
