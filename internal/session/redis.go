package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "session:"
	userKeyPrefix = "session:user:"
)

type RedisStore struct {
	rdb *redis.Client
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func redisKey(id string) string {
	return keyPrefix + id
}

func userIndexKey(userID string) string {
	return userKeyPrefix + userID
}

func encode(s Session) ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}
	return b, nil
}

func decode(b []byte) (Session, error) {
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return Session{}, fmt.Errorf("unmarshal session: %w", err)
	}
	return s, nil
}

// Create stores s with a TTL matching its expiry, so redis evicts it on its
// own. The per-user index lives as long as the newest session in it.
func (r *RedisStore) Create(ctx context.Context, s Session) error {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	payload, err := encode(s)
	if err != nil {
		return err
	}

	idx := userIndexKey(s.UserID)
	_, err = r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, redisKey(s.ID), payload, ttl)
		p.SAdd(ctx, idx, s.ID)
		p.Expire(ctx, idx, ttl)
		return nil
	})
	return err
}

func (r *RedisStore) Get(ctx context.Context, id string) (Session, error) {
	b, err := r.rdb.Get(ctx, redisKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}

	s, err := decode(b)
	if err != nil {
		return Session{}, err
	}
	if s.Expired(time.Now()) {
		return Session{}, ErrNotFound
	}
	return s, nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	return r.rdb.Del(ctx, redisKey(id)).Err()
}

func (r *RedisStore) RevokeAllForUser(ctx context.Context, userID string) error {
	idx := userIndexKey(userID)

	ids, err := r.rdb.SMembers(ctx, idx).Result()
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, redisKey(id))
	}
	keys = append(keys, idx)

	return r.rdb.Del(ctx, keys...).Err()
}
