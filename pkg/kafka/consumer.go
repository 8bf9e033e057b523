package kafka

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	applogger "YoForex/pkg/logger"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// MessageHandler processes the payload of one topic.
type MessageHandler interface {
	Topic() string
	Handle(ctx context.Context, payload []byte) error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer fans messages from one reader per topic into a worker pool. Messages of
// the same partition always go to the same worker, so per-partition order holds.
// Offsets are committed after success, or after the message was dead-lettered.
type Consumer struct {
	cfg       *ConsumerConfig
	log       *applogger.Logger
	handlers  map[string]MessageHandler
	readers   map[string]messageReader
	newReader func(topic string) messageReader
	dlq       messageWriter
	hook      ConsumerHook
	queues    []chan kafka.Message

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func NewConsumer(log *applogger.Logger, opts ...ConsumerOption) (*Consumer, error) {
	cfg := &ConsumerConfig{
		GroupID:     "yoforex",
		WorkerCount: 2,
		BufferSize:  64,
		RetryMax:    3,
		BackoffMin:  100 * time.Millisecond,
		BackoffMax:  5 * time.Second,
		MinBytes:    1,
		MaxBytes:    10 << 20,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka consumer: brokers are required")
	}

	c := &Consumer{
		cfg:      cfg,
		log:      log,
		handlers: make(map[string]MessageHandler),
		readers:  make(map[string]messageReader),
		hook:     HookChain{},
	}
	c.newReader = func(topic string) messageReader {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.Brokers,
			GroupID:  cfg.GroupID,
			Topic:    topic,
			MinBytes: cfg.MinBytes,
			MaxBytes: cfg.MaxBytes,
		})
	}
	if cfg.DLQTopic != "" {
		c.dlq = &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  cfg.DLQTopic,
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
		}
	}
	return c, nil
}

func (c *Consumer) RegisterHandler(h MessageHandler) {
	if _, dup := c.handlers[h.Topic()]; dup {
		c.log.Warn("kafka handler already registered", applogger.String("topic", h.Topic()))
		return
	}
	c.handlers[h.Topic()] = h
}

// WithHooks installs hooks that wrap every handler attempt.
func (c *Consumer) WithHooks(hooks ...ConsumerHook) {
	c.hook = HookChain(hooks)
}

func (c *Consumer) Start(ctx context.Context) error {
	if len(c.handlers) == 0 {
		return errors.New("kafka consumer: no handlers registered")
	}
	ctx, c.cancel = context.WithCancel(ctx)

	c.queues = make([]chan kafka.Message, c.cfg.WorkerCount)
	for i := range c.queues {
		c.queues[i] = make(chan kafka.Message, c.cfg.BufferSize)
		c.wg.Add(1)
		go c.work(ctx, c.queues[i])
	}

	var readers sync.WaitGroup
	for topic := range c.handlers {
		r := c.newReader(topic)
		c.readers[topic] = r
		readers.Add(1)
		go func(topic string, r messageReader) {
			defer readers.Done()
			c.fetch(ctx, topic, r)
		}(topic, r)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		readers.Wait()
		for _, q := range c.queues {
			close(q)
		}
	}()

	c.log.Info("kafka consumer started",
		applogger.Int("workers", c.cfg.WorkerCount),
		applogger.String("group", c.cfg.GroupID),
		applogger.Int("topics", len(c.handlers)))
	return nil
}

// Stop cancels fetching, waits for in-flight messages and closes readers.
func (c *Consumer) Stop(ctx context.Context) error {
	var err error
	c.once.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}

		done := make(chan struct{})
		go func() {
			c.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			err = fmt.Errorf("kafka consumer: stop: %w", ctx.Err())
		}

		for topic, r := range c.readers {
			if cerr := r.Close(); cerr != nil {
				c.log.Warn("kafka reader close failed", applogger.String("topic", topic), applogger.Error(cerr))
			}
		}
		if c.dlq != nil {
			_ = c.dlq.Close()
		}
	})
	return err
}

func (c *Consumer) fetch(ctx context.Context, topic string, r messageReader) {
	for {
		km, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Warn("kafka fetch failed", applogger.String("topic", topic), applogger.Error(err))
			select {
			case <-time.After(time.Second):
				continue
			case <-ctx.Done():
				return
			}
		}
		if km.Topic == "" {
			km.Topic = topic
		}

		q := c.queues[c.workerFor(km)]
		consumerQueueDepth.WithLabelValues(topic).Set(float64(len(q)))
		select {
		case q <- km:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Consumer) workerFor(km kafka.Message) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(km.Topic))
	return int((h.Sum32() + uint32(km.Partition)) % uint32(len(c.queues)))
}

func (c *Consumer) work(ctx context.Context, in <-chan kafka.Message) {
	defer c.wg.Done()
	for km := range in {
		c.process(ctx, km)
	}
}

func (c *Consumer) process(ctx context.Context, km kafka.Message) {
	h := c.handlers[km.Topic]
	start := time.Now()

	err := c.handleWithRetry(ctx, h, km)
	result := "ok"
	if err != nil {
		result = "error"
		c.log.Error("kafka message failed",
			applogger.String("topic", km.Topic),
			applogger.Int("partition", km.Partition),
			applogger.Int64("offset", km.Offset),
			applogger.Error(err))
		if !c.deadLetter(ctx, km, err) {
			consumerHandled.WithLabelValues(km.Topic, result).Inc()
			return
		}
		result = "dead_lettered"
	}
	consumerHandled.WithLabelValues(km.Topic, result).Inc()
	consumerLatency.WithLabelValues(km.Topic).Observe(time.Since(start).Seconds())

	commit := func() error {
		cctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return c.readers[km.Topic].CommitMessages(cctx, km)
	}
	if err := backoff.Retry(commit, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)); err != nil {
		c.log.Warn("kafka commit failed", applogger.String("topic", km.Topic), applogger.Error(err))
	}
}

func (c *Consumer) handleWithRetry(ctx context.Context, h MessageHandler, km kafka.Message) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.BackoffMin
	bo.MaxInterval = c.cfg.BackoffMax
	bo.MaxElapsedTime = 0

	attempt := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("handler panic: %v", r)
			}
		}()
		hctx, err := c.hook.BeforeHandle(ctx, km)
		if hctx == nil {
			hctx = ctx
		}
		if err == nil {
			err = h.Handle(hctx, km.Value)
		}
		c.hook.AfterHandle(hctx, km, err)
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.cfg.RetryMax)), ctx)
	return backoff.Retry(attempt, policy)
}

// deadLetter reports whether the message may be committed.
func (c *Consumer) deadLetter(ctx context.Context, km kafka.Message, cause error) bool {
	if c.dlq == nil {
		return false
	}
	msg := kafka.Message{
		Key:   km.Key,
		Value: km.Value,
		Time:  time.Now().UTC(),
		Headers: append(km.Headers,
			kafka.Header{Key: "source_topic", Value: []byte(km.Topic)},
			kafka.Header{Key: "error", Value: []byte(cause.Error())},
		),
	}
	if err := c.dlq.WriteMessages(ctx, msg); err != nil {
		c.log.Error("kafka dead-letter write failed", applogger.String("topic", km.Topic), applogger.Error(err))
		return false
	}
	return true
}

var (
	consumerQueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "yoforex_kafka_consumer_queue_depth",
		Help: "Messages buffered for a worker",
	}, []string{"topic"})

	consumerHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "yoforex_kafka_consumer_messages_total",
		Help: "Messages processed by result",
	}, []string{"topic", "result"})

	consumerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "yoforex_kafka_consumer_handle_seconds",
		Help:    "Handling time per message including retries",
		Buckets: prometheus.DefBuckets,
	}, []string{"topic"})
)
