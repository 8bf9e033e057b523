package repository

import (
	"context"
	"fmt"

	"YoForex/internal/domain/models"
	domrepo "YoForex/internal/domain/repository"
)

// warehouse is the subset of pkg/clickhouse.Client the archive needs.
type warehouse interface {
	InitSchema(ctx context.Context, stmts []string) error
	InsertBatch(ctx context.Context, query string, rows [][]interface{}) error
	Health(ctx context.Context) error
}

// ClickHouseArchive appends analysis events to a ReplacingMergeTree keyed by event id,
// so redelivered events collapse on merge.
type ClickHouseArchive struct {
	ch       warehouse
	database string
	table    string
}

func NewClickHouseArchive(ch warehouse, database string) domrepo.Archive {
	return &ClickHouseArchive{ch: ch, database: database, table: database + ".analysis_events"}
}

func (a *ClickHouseArchive) Init(ctx context.Context) error {
	return a.ch.InitSchema(ctx, []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", a.database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			event_id String,
			analysis_id String,
			user_id String,
			kind LowCardinality(String),
			pair LowCardinality(String),
			timeframe LowCardinality(String),
			strategy String,
			recommendation LowCardinality(String),
			confidence Float64,
			entry_price Float64,
			consensus LowCardinality(String),
			model_count UInt8,
			created_at DateTime64(3, 'UTC')
		) ENGINE = ReplacingMergeTree
		PARTITION BY toYYYYMM(created_at)
		ORDER BY (pair, created_at, event_id)`, a.table),
	})
}

func (a *ClickHouseArchive) StoreBatch(ctx context.Context, events []*models.AnalysisEvent) error {
	rows := make([][]interface{}, 0, len(events))
	for _, ev := range events {
		if ev == nil || ev.EventID == "" {
			continue
		}
		rows = append(rows, []interface{}{
			ev.EventID,
			ev.AnalysisID,
			ev.UserID,
			ev.Kind,
			ev.Pair,
			ev.Timeframe,
			ev.Strategy,
			string(ev.Recommendation),
			ev.Confidence,
			ev.EntryPrice,
			string(ev.Consensus),
			uint8(ev.ModelCount),
			ev.CreatedAt,
		})
	}
	if len(rows) == 0 {
		return nil
	}

	q := fmt.Sprintf(`INSERT INTO %s (event_id, analysis_id, user_id, kind, pair, timeframe, strategy,
		recommendation, confidence, entry_price, consensus, model_count, created_at)`, a.table)
	if err := a.ch.InsertBatch(ctx, q, rows); err != nil {
		return fmt.Errorf("archive %d event(s): %w", len(rows), err)
	}
	return nil
}

func (a *ClickHouseArchive) Health(ctx context.Context) error {
	return a.ch.Health(ctx)
}
