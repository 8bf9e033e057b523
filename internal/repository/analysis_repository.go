package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"YoForex/internal/domain/models"
	domrepo "YoForex/internal/domain/repository"

	"github.com/redis/go-redis/v9"
)

// RedisAnalysisRepository keeps each user's analyses in a hash (id -> JSON) indexed
// by a sorted set scored on creation time.
type RedisAnalysisRepository struct {
	rdb redis.UniversalClient
	ks  keyspace
}

func NewRedisAnalysisRepository(rdb redis.UniversalClient, prefix string) domrepo.AnalysisRepository {
	return &RedisAnalysisRepository{rdb: rdb, ks: keyspace(prefix)}
}

func (r *RedisAnalysisRepository) dataKey(userID string) string  { return r.ks.key("analyses", userID) }
func (r *RedisAnalysisRepository) indexKey(userID string) string { return r.ks.key("analyses", userID, "index") }

func (r *RedisAnalysisRepository) Save(ctx context.Context, a *models.AnalysisResult) error {
	if a.UserID == "" {
		return fmt.Errorf("save analysis %s: missing user id", a.ID)
	}
	b, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}

	_, err = r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, r.dataKey(a.UserID), a.ID, b)
		p.ZAdd(ctx, r.indexKey(a.UserID), redis.Z{Score: float64(a.CreatedAt.UnixMicro()), Member: a.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("store analysis: %w", err)
	}
	return nil
}

func (r *RedisAnalysisRepository) Get(ctx context.Context, userID, id string) (*models.AnalysisResult, error) {
	b, err := r.rdb.HGet(ctx, r.dataKey(userID), id).Bytes()
	if err == redis.Nil {
		return nil, domrepo.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load analysis: %w", err)
	}
	return decodeAnalysis(userID, b)
}

func (r *RedisAnalysisRepository) List(ctx context.Context, userID string, limit, offset int) ([]*models.AnalysisResult, int64, error) {
	total, err := r.rdb.ZCard(ctx, r.indexKey(userID)).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("count analyses: %w", err)
	}
	if total == 0 || int64(offset) >= total || limit <= 0 {
		return []*models.AnalysisResult{}, total, nil
	}

	ids, err := r.rdb.ZRevRange(ctx, r.indexKey(userID), int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("list analyses: %w", err)
	}
	if len(ids) == 0 {
		return []*models.AnalysisResult{}, total, nil
	}

	vals, err := r.rdb.HMGet(ctx, r.dataKey(userID), ids...).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("load analyses: %w", err)
	}

	out := make([]*models.AnalysisResult, 0, len(vals))
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		a, err := decodeAnalysis(userID, []byte(s))
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, nil
}

func decodeAnalysis(userID string, b []byte) (*models.AnalysisResult, error) {
	var a models.AnalysisResult
	if err := json.Unmarshal(b, &a); err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}
	a.UserID = userID
	return &a, nil
}
