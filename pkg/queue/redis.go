package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"YoForex/pkg/logger"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisQueue is a reliable-enough job queue on Redis lists: producers LPUSH, workers
// BRPOP, failures are parked in a sorted set scored by their due time and exhausted
// messages land in a dead-letter list.
type RedisQueue struct {
	log    *logger.Logger
	cfg    *QueueConfig
	client redis.UniversalClient
	prefix string

	mu      sync.RWMutex
	jobs    map[string]Job
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type RedisQueueOption func(*RedisQueue)

func WithKeyPrefix(prefix string) RedisQueueOption {
	return func(r *RedisQueue) { r.prefix = prefix }
}

func NewRedisQueue(log *logger.Logger, cfg *QueueConfig, client redis.UniversalClient, opts ...RedisQueueOption) *RedisQueue {
	if cfg == nil {
		cfg = &QueueConfig{}
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}

	q := &RedisQueue{
		log:    log,
		cfg:    cfg,
		client: client,
		prefix: "yoforex:queue",
		jobs:   make(map[string]Job),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *RedisQueue) RegisterJob(job Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, dup := q.jobs[job.Type()]; dup {
		q.log.Warn("queue job already registered", logger.String("type", job.Type()))
		return
	}
	q.jobs[job.Type()] = job
}

// Start launches workers and the retry promoter.
func (q *RedisQueue) Start(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return errors.New("queue: already running")
	}
	ctx, q.cancel = context.WithCancel(ctx)
	q.running = true

	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
	q.wg.Add(1)
	go q.promoter(ctx)

	q.log.Info("redis queue started", logger.Int("workers", q.cfg.Workers), logger.Int("jobs", len(q.jobs)))
	return nil
}

func (q *RedisQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return nil
	}
	q.running = false
	q.cancel()
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		q.log.Info("redis queue stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("queue: stop: %w", ctx.Err())
	}
}

// Enqueue stores a message for the given job type.
func (q *RedisQueue) Enqueue(ctx context.Context, msgType string, payload interface{}) (string, error) {
	q.mu.RLock()
	_, known := q.jobs[msgType]
	q.mu.RUnlock()
	if !known {
		return "", fmt.Errorf("queue: no job registered for type %q", msgType)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("queue: marshal payload: %w", err)
	}
	msg := Message{ID: uuid.NewString(), Type: msgType, Payload: raw, CreatedAt: time.Now().UTC()}
	data, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("queue: marshal message: %w", err)
	}
	if err := q.client.LPush(ctx, q.key("messages"), data).Err(); err != nil {
		return "", fmt.Errorf("queue: lpush: %w", err)
	}
	return msg.ID, nil
}

// PublishMessage satisfies Publisher.
func (q *RedisQueue) PublishMessage(ctx context.Context, msgType string, payload interface{}) error {
	_, err := q.Enqueue(ctx, msgType, payload)
	return err
}

// Len reports pending, scheduled-retry and dead-lettered counts.
func (q *RedisQueue) Len(ctx context.Context) (pending, retry, dead int64, err error) {
	pipe := q.client.Pipeline()
	p := pipe.LLen(ctx, q.key("messages"))
	r := pipe.ZCard(ctx, q.key("retry"))
	d := pipe.LLen(ctx, q.key("dlq"))
	if _, err = pipe.Exec(ctx); err != nil {
		return 0, 0, 0, err
	}
	return p.Val(), r.Val(), d.Val(), nil
}

func (q *RedisQueue) worker(ctx context.Context) {
	defer q.wg.Done()
	for ctx.Err() == nil {
		if _, err := q.ProcessNext(ctx, time.Second); err != nil && ctx.Err() == nil {
			q.log.Error("queue pop failed", logger.Error(err))
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
			}
		}
	}
}

// ProcessNext waits up to wait for one message and runs it. It reports whether a
// message was handled (successfully or not).
func (q *RedisQueue) ProcessNext(ctx context.Context, wait time.Duration) (bool, error) {
	res, err := q.client.BRPop(ctx, wait, q.key("messages")).Result()
	if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(res) < 2 {
		return false, nil
	}

	var msg Message
	if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
		q.log.Error("queue message undecodable, dead-lettering", logger.Error(err))
		if perr := q.client.LPush(ctx, q.key("dlq"), res[1]).Err(); perr != nil {
			q.log.Error("queue dead-letter push failed, message lost",
				logger.String("message", res[1]), logger.Error(perr))
		}
		return true, nil
	}
	q.run(ctx, msg)
	return true, nil
}

func (q *RedisQueue) run(ctx context.Context, msg Message) {
	q.mu.RLock()
	job, ok := q.jobs[msg.Type]
	q.mu.RUnlock()
	if !ok {
		q.log.Error("queue job missing", logger.String("type", msg.Type), logger.String("id", msg.ID))
		q.bury(ctx, msg, "no job registered")
		return
	}

	start := time.Now()
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("job panic: %v", r)
			}
		}()
		return job.Handle(ctx, msg.Payload)
	}()
	if err == nil {
		q.log.Debug("queue job done",
			logger.String("job", job.Name()),
			logger.String("id", msg.ID),
			logger.Duration("took_ms", time.Since(start)))
		return
	}

	msg.Attempts++
	msg.LastError = err.Error()
	q.log.Error("queue job failed",
		logger.String("job", job.Name()),
		logger.String("id", msg.ID),
		logger.Int("attempt", msg.Attempts),
		logger.Error(err))

	var perm *backoff.PermanentError
	if errors.As(err, &perm) || msg.Attempts > q.cfg.RetryLimit {
		q.bury(ctx, msg, err.Error())
		return
	}
	q.schedule(ctx, msg, time.Now().Add(q.retryDelay(msg.Attempts)))
}

// retryDelay grows exponentially from RetryDelay with jitter.
func (q *RedisQueue) retryDelay(attempt int) time.Duration {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = q.cfg.RetryDelay
	bo.MaxInterval = 32 * q.cfg.RetryDelay
	bo.MaxElapsedTime = 0
	bo.Reset()

	d := bo.NextBackOff()
	for i := 1; i < attempt; i++ {
		d = bo.NextBackOff()
	}
	return d
}

func (q *RedisQueue) schedule(ctx context.Context, msg Message, at time.Time) {
	data, _ := json.Marshal(msg)
	if err := q.client.ZAdd(context.WithoutCancel(ctx), q.key("retry"), redis.Z{
		Score:  float64(at.UnixMilli()),
		Member: data,
	}).Err(); err != nil {
		q.log.Error("queue schedule retry failed", logger.String("id", msg.ID), logger.Error(err))
	}
}

func (q *RedisQueue) bury(ctx context.Context, msg Message, reason string) {
	msg.LastError = reason
	data, _ := json.Marshal(msg)
	if err := q.client.LPush(context.WithoutCancel(ctx), q.key("dlq"), data).Err(); err != nil {
		q.log.Error("queue dead-letter failed", logger.String("id", msg.ID), logger.Error(err))
	}
}

func (q *RedisQueue) promoter(ctx context.Context) {
	defer q.wg.Done()
	t := time.NewTicker(q.cfg.PollInterval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			if _, err := q.PromoteDue(ctx, time.Now()); err != nil && ctx.Err() == nil {
				q.log.Warn("queue promote failed", logger.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}

// PromoteDue moves retries due at or before now back onto the main list. A member is
// only pushed by the caller that removed it, so concurrent promoters never duplicate.
func (q *RedisQueue) PromoteDue(ctx context.Context, now time.Time) (int, error) {
	due, err := q.client.ZRangeByScore(ctx, q.key("retry"), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, err
	}

	moved := 0
	for _, member := range due {
		n, err := q.client.ZRem(ctx, q.key("retry"), member).Result()
		if err != nil {
			return moved, err
		}
		if n == 0 {
			continue
		}
		if err := q.client.LPush(ctx, q.key("messages"), member).Err(); err != nil {
			return moved, err
		}
		moved++
	}
	return moved, nil
}

func (q *RedisQueue) key(suffix string) string {
	return q.prefix + ":" + suffix
}
