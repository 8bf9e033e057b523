package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"YoForex/internal/domain/models"
	domrepo "YoForex/internal/domain/repository"
	"YoForex/pkg/util"

	"github.com/redis/go-redis/v9"
)

type RedisSettingsRepository struct {
	rdb redis.UniversalClient
	ks  keyspace
}

func NewRedisSettingsRepository(rdb redis.UniversalClient, prefix string) domrepo.SettingsRepository {
	return &RedisSettingsRepository{rdb: rdb, ks: keyspace(prefix)}
}

func (r *RedisSettingsRepository) Get(ctx context.Context, userID string) (*models.UserSettings, error) {
	var s models.UserSettings
	if err := getJSON(r.rdb.Get(ctx, r.ks.key("settings", userID)), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *RedisSettingsRepository) Save(ctx context.Context, s *models.UserSettings) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := r.rdb.Set(ctx, r.ks.key("settings", s.UserID), b, 0).Err(); err != nil {
		return fmt.Errorf("store settings: %w", err)
	}
	return nil
}

// RedisSubscriptionRepository keeps one subscription per user and an index from the
// payment provider's subscription id back to the user.
type RedisSubscriptionRepository struct {
	rdb redis.UniversalClient
	ks  keyspace
}

func NewRedisSubscriptionRepository(rdb redis.UniversalClient, prefix string) domrepo.SubscriptionRepository {
	return &RedisSubscriptionRepository{rdb: rdb, ks: keyspace(prefix)}
}

func (r *RedisSubscriptionRepository) Get(ctx context.Context, userID string) (*models.Subscription, error) {
	var s models.Subscription
	if err := getJSON(r.rdb.Get(ctx, r.ks.key("subscription", userID)), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *RedisSubscriptionRepository) Save(ctx context.Context, s *models.Subscription) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode subscription: %w", err)
	}
	_, err = r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, r.ks.key("subscription", s.UserID), b, 0)
		if s.ExternalID != "" {
			p.Set(ctx, r.ks.key("subscription", "ext", s.ExternalID), s.UserID, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store subscription: %w", err)
	}
	return nil
}

func (r *RedisSubscriptionRepository) UserByExternalID(ctx context.Context, externalID string) (string, error) {
	id, err := r.rdb.Get(ctx, r.ks.key("subscription", "ext", externalID)).Result()
	if err == redis.Nil {
		return "", domrepo.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup subscription: %w", err)
	}
	return id, nil
}

// RedisUsageRepository counts analyses per user and calendar month. Counters expire a
// month after their period ends.
type RedisUsageRepository struct {
	rdb redis.UniversalClient
	ks  keyspace
}

func NewRedisUsageRepository(rdb redis.UniversalClient, prefix string) domrepo.UsageRepository {
	return &RedisUsageRepository{rdb: rdb, ks: keyspace(prefix)}
}

func (r *RedisUsageRepository) key(userID string, at time.Time) string {
	return r.ks.key("usage", userID, util.MonthKey(at))
}

func (r *RedisUsageRepository) Increment(ctx context.Context, userID string, at time.Time) (int, error) {
	_, end := util.MonthBounds(at)
	key := r.key(userID, at)

	var incr *redis.IntCmd
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, key)
		p.ExpireAt(ctx, key, end.AddDate(0, 1, 0))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("increment usage: %w", err)
	}
	return int(incr.Val()), nil
}

func (r *RedisUsageRepository) Count(ctx context.Context, userID string, at time.Time) (int, error) {
	n, err := r.rdb.Get(ctx, r.key(userID, at)).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read usage: %w", err)
	}
	return n, nil
}
