package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"YoForex/internal/domain/models"
	domrepo "YoForex/internal/domain/repository"

	"github.com/redis/go-redis/v9"
)

// RedisUserRepository stores users as JSON with a unique email index.
type RedisUserRepository struct {
	rdb redis.UniversalClient
	ks  keyspace
}

func NewRedisUserRepository(rdb redis.UniversalClient, prefix string) domrepo.UserRepository {
	return &RedisUserRepository{rdb: rdb, ks: keyspace(prefix)}
}

func (r *RedisUserRepository) userKey(id string) string { return r.ks.key("user", id) }

func (r *RedisUserRepository) emailKey(email string) string {
	return r.ks.key("user", "email", strings.ToLower(email))
}

func (r *RedisUserRepository) Create(ctx context.Context, u *models.StoredUser) error {
	b, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	ok, err := r.rdb.SetNX(ctx, r.emailKey(u.Email), u.ID, 0).Result()
	if err != nil {
		return fmt.Errorf("reserve email: %w", err)
	}
	if !ok {
		return domrepo.ErrAlreadyExists
	}

	if err := r.rdb.Set(ctx, r.userKey(u.ID), b, 0).Err(); err != nil {
		_ = r.rdb.Del(ctx, r.emailKey(u.Email)).Err()
		return fmt.Errorf("store user: %w", err)
	}
	return nil
}

func (r *RedisUserRepository) GetByID(ctx context.Context, id string) (*models.StoredUser, error) {
	var u models.StoredUser
	if err := getJSON(r.rdb.Get(ctx, r.userKey(id)), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *RedisUserRepository) GetByEmail(ctx context.Context, email string) (*models.StoredUser, error) {
	id, err := r.rdb.Get(ctx, r.emailKey(email)).Result()
	if err == redis.Nil {
		return nil, domrepo.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	return r.GetByID(ctx, id)
}

// Update overwrites an existing user. The email is immutable.
func (r *RedisUserRepository) Update(ctx context.Context, u *models.StoredUser) error {
	b, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	ok, err := r.rdb.SetXX(ctx, r.userKey(u.ID), b, 0).Result()
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if !ok {
		return domrepo.ErrNotFound
	}
	return nil
}
