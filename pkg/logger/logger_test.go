package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu      sync.Mutex
	topic   string
	batches [][]AggregatedLogEntry
}

func (p *recordingPublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.batches = append(p.batches, payload.([]AggregatedLogEntry))
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.batches)
}

func TestLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, zerolog.DebugLevel).With(String("component", "test"))

	l.Info("hello", Int("n", 3), Bool("ok", true), Duration("took", 1500*time.Millisecond), Error(errors.New("boom")))

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	assert.Equal(t, "hello", m["message"])
	assert.Equal(t, "test", m["component"])
	assert.EqualValues(t, 3, m["n"])
	assert.EqualValues(t, 1500, m["took"])
	assert.Equal(t, "boom", m["error"])
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, zerolog.WarnLevel)
	l.Info("dropped")
	assert.Zero(t, buf.Len())
	l.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestCollectorAggregatesDuplicates(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 10, Topic: "logs", Publisher: pub})
	defer c.Close()

	for i := 0; i < 5; i++ {
		c.AddLog("error", "same", map[string]interface{}{"k": "v"}, "x.go:1")
	}
	c.AddLog("error", "other", nil, "x.go:2")
	assert.Equal(t, 2, c.Pending())

	c.Flush()
	require.Equal(t, 1, pub.count())
	assert.Equal(t, "logs", pub.topic)

	counts := map[string]int{}
	for _, e := range pub.batches[0] {
		counts[e.Message] = e.Count
	}
	assert.Equal(t, map[string]int{"same": 5, "other": 1}, counts)
	assert.Zero(t, c.Pending())
}

func TestCollectorFlushesOnThreshold(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 2, Topic: "logs", Publisher: pub})

	c.AddLog("error", "a", nil, "")
	c.AddLog("error", "b", nil, "")
	c.Close()

	assert.Equal(t, 1, pub.count())
}

func TestErrorGoesToCollector(t *testing.T) {
	pub := &recordingPublisher{}
	l := Nop()
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 100, Topic: "logs", Publisher: pub})

	l.Error("failed", String("op", "x"))
	l.Warn("not collected")
	l.RemoveCollector()

	require.Equal(t, 1, pub.count())
	require.Len(t, pub.batches[0], 1)
	assert.Equal(t, "failed", pub.batches[0][0].Message)
	assert.Equal(t, "x", pub.batches[0][0].Fields["op"])
}
