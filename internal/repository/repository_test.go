package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"YoForex/internal/domain/models"
	domrepo "YoForex/internal/domain/repository"
	"YoForex/pkg/util"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestUserRepository(t *testing.T) {
	_, rdb := newTestRedis(t)
	repo := NewRedisUserRepository(rdb, "test")
	ctx := context.Background()

	u := &models.StoredUser{
		User:         models.User{ID: "u1", Email: "Trader@Example.com", FullName: "Ada", Plan: models.PlanFree},
		PasswordHash: "hash",
	}
	require.NoError(t, repo.Create(ctx, u))

	dup := &models.StoredUser{User: models.User{ID: "u2", Email: "trader@example.com"}}
	assert.ErrorIs(t, repo.Create(ctx, dup), domrepo.ErrAlreadyExists)

	got, err := repo.GetByEmail(ctx, "TRADER@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)
	assert.Equal(t, "hash", got.PasswordHash)

	got.FullName = "Ada L."
	require.NoError(t, repo.Update(ctx, got))
	again, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", again.FullName)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, domrepo.ErrNotFound)
	_, err = repo.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, domrepo.ErrNotFound)
	assert.ErrorIs(t, repo.Update(ctx, &models.StoredUser{User: models.User{ID: "ghost"}}), domrepo.ErrNotFound)
}

func TestAnalysisRepositoryHistory(t *testing.T) {
	_, rdb := newTestRedis(t)
	repo := NewRedisAnalysisRepository(rdb, "test")
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Save(ctx, &models.AnalysisResult{
			ID:             fmt.Sprintf("a%d", i),
			UserID:         "u1",
			Pair:           "EUR/USD",
			Recommendation: models.Buy,
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, repo.Save(ctx, &models.AnalysisResult{ID: "other", UserID: "u2", CreatedAt: base}))

	page, total, err := repo.List(ctx, "u1", 2, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, page, 2)
	assert.Equal(t, "a3", page[0].ID)
	assert.Equal(t, "a2", page[1].ID)
	assert.Equal(t, "u1", page[0].UserID)

	empty, total, err := repo.List(ctx, "u1", 10, 50)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.Equal(t, int64(5), total)

	a, err := repo.Get(ctx, "u1", "a4")
	require.NoError(t, err)
	assert.Equal(t, models.Buy, a.Recommendation)

	_, err = repo.Get(ctx, "u1", "other")
	assert.ErrorIs(t, err, domrepo.ErrNotFound)

	assert.Error(t, repo.Save(ctx, &models.AnalysisResult{ID: "orphan"}))
}

func TestSettingsAndSubscriptions(t *testing.T) {
	_, rdb := newTestRedis(t)
	ctx := context.Background()

	settings := NewRedisSettingsRepository(rdb, "test")
	_, err := settings.Get(ctx, "u1")
	assert.ErrorIs(t, err, domrepo.ErrNotFound)

	s := models.DefaultSettings("u1")
	s.Theme = "light"
	require.NoError(t, settings.Save(ctx, s))
	got, err := settings.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "light", got.Theme)

	subs := NewRedisSubscriptionRepository(rdb, "test")
	require.NoError(t, subs.Save(ctx, &models.Subscription{
		ID: "s1", UserID: "u1", PlanType: models.PlanPro, Status: models.StatusActive, ExternalID: "sub_123",
	}))
	sub, err := subs.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.PlanPro, sub.PlanType)

	uid, err := subs.UserByExternalID(ctx, "sub_123")
	require.NoError(t, err)
	assert.Equal(t, "u1", uid)

	_, err = subs.UserByExternalID(ctx, "sub_unknown")
	assert.ErrorIs(t, err, domrepo.ErrNotFound)
}

func TestUsageRepository(t *testing.T) {
	mr, rdb := newTestRedis(t)
	usage := NewRedisUsageRepository(rdb, "test")
	ctx := context.Background()
	now := time.Now().UTC()
	key := "test:usage:u1:" + util.MonthKey(now)

	n, err := usage.Count(ctx, "u1", now)
	require.NoError(t, err)
	assert.Zero(t, n)

	for i := 1; i <= 3; i++ {
		n, err = usage.Increment(ctx, "u1", now)
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}

	n, err = usage.Count(ctx, "u1", now.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.Zero(t, n, "a new month starts from zero")

	assert.True(t, mr.Exists(key))
	assert.Greater(t, mr.TTL(key), 27*24*time.Hour)
}

type fakeProducer struct {
	topic string
	key   []byte
	value interface{}
	err   error
}

func (f *fakeProducer) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	f.topic, f.key, f.value = topic, key, value
	return f.err
}

func (f *fakeProducer) Close() error { return nil }

func TestKafkaEventPublisherKeysByUser(t *testing.T) {
	fp := &fakeProducer{}
	pub := NewKafkaEventPublisher(fp, "analysis.events")

	ev := &models.AnalysisEvent{EventID: "e1", UserID: "u7"}
	require.NoError(t, pub.Publish(context.Background(), ev))
	assert.Equal(t, "analysis.events", fp.topic)
	assert.Equal(t, []byte("u7"), fp.key)
	assert.Same(t, ev, fp.value)

	fp.err = errors.New("broker down")
	assert.Error(t, pub.Publish(context.Background(), ev))
	assert.NoError(t, NoopEventPublisher{}.Publish(context.Background(), ev))
}

type fakeWarehouse struct {
	stmts []string
	query string
	rows  [][]interface{}
}

func (f *fakeWarehouse) InitSchema(_ context.Context, stmts []string) error {
	f.stmts = stmts
	return nil
}

func (f *fakeWarehouse) InsertBatch(_ context.Context, query string, rows [][]interface{}) error {
	f.query, f.rows = query, rows
	return nil
}

func (f *fakeWarehouse) Health(context.Context) error { return nil }

func TestClickHouseArchive(t *testing.T) {
	fw := &fakeWarehouse{}
	archive := NewClickHouseArchive(fw, "yoforex")
	ctx := context.Background()

	require.NoError(t, archive.Init(ctx))
	require.Len(t, fw.stmts, 2)
	assert.Contains(t, fw.stmts[1], "yoforex.analysis_events")

	now := time.Now().UTC()
	require.NoError(t, archive.StoreBatch(ctx, []*models.AnalysisEvent{
		{EventID: "e1", AnalysisID: "a1", UserID: "u1", Pair: "EUR/USD", Recommendation: models.Sell, Consensus: models.Mixed, ModelCount: 3, CreatedAt: now},
		{EventID: ""},
		nil,
	}))
	assert.True(t, strings.HasPrefix(fw.query, "INSERT INTO yoforex.analysis_events"))
	require.Len(t, fw.rows, 1)
	assert.Equal(t, "e1", fw.rows[0][0])
	assert.Equal(t, "SELL", fw.rows[0][7])
	assert.Equal(t, uint8(3), fw.rows[0][11])

	fw.rows = nil
	require.NoError(t, archive.StoreBatch(ctx, nil))
	assert.Nil(t, fw.rows)
}
