package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"YoForex/internal/domain/models"
	domrepo "YoForex/internal/domain/repository"
	pkgkafka "YoForex/pkg/kafka"

	"github.com/cenkalti/backoff/v4"
)

// AnalysisArchiver consumes analysis events from Kafka and appends them to the archive.
type AnalysisArchiver struct {
	topic   string
	archive domrepo.Archive
	metrics domrepo.Metrics
}

func NewAnalysisArchiver(topic string, archive domrepo.Archive, metrics domrepo.Metrics) *AnalysisArchiver {
	return &AnalysisArchiver{topic: topic, archive: archive, metrics: metrics}
}

func (h *AnalysisArchiver) Topic() string { return h.topic }

// Handle stores one event. Undecodable payloads are permanent failures and go
// straight to the dead-letter topic.
func (h *AnalysisArchiver) Handle(ctx context.Context, b []byte) error {
	var ev models.AnalysisEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return backoff.Permanent(fmt.Errorf("decode analysis event: %w", err))
	}
	if ev.EventID == "" {
		h.metrics.RecordError("consumer_invalid")
		return backoff.Permanent(errors.New("analysis event without id"))
	}
	if !ev.CreatedAt.IsZero() {
		h.metrics.RecordLatency("archive_lag", time.Since(ev.CreatedAt).Seconds())
	}

	start := time.Now()
	err := h.archive.StoreBatch(ctx, []*models.AnalysisEvent{&ev})
	h.metrics.RecordLatency("archive_insert", time.Since(start).Seconds())
	h.metrics.RecordEvent("clickhouse", err)
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*AnalysisArchiver)(nil)
