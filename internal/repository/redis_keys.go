package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	domrepo "YoForex/internal/domain/repository"

	"github.com/redis/go-redis/v9"
)

// keyspace builds prefixed Redis keys.
type keyspace string

func (k keyspace) key(parts ...string) string {
	if k == "" {
		return strings.Join(parts, ":")
	}
	return string(k) + ":" + strings.Join(parts, ":")
}

func getJSON(cmd *redis.StringCmd, dest interface{}) error {
	b, err := cmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return domrepo.ErrNotFound
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return fmt.Errorf("decode %T: %w", dest, err)
	}
	return nil
}
