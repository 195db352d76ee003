package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/spigell/interviewer/internal/interview"
)

const defaultRedisPrefix = "interviewer"

// RedisStore keeps each session under its own key and tracks ids in a set.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
	locks  keyedMutex
}

func NewRedisStore(rdb redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (r *RedisStore) key(id string) string { return fmt.Sprintf("%s:session:%s", r.prefix, id) }
func (r *RedisStore) indexKey() string     { return r.prefix + ":sessions" }

func (r *RedisStore) Get(ctx context.Context, id string) (*interview.Session, error) {
	data, err := r.rdb.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", interview.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("read session %s: %w", id, err)
	}
	return decode(id, data)
}

func (r *RedisStore) Put(ctx context.Context, s *interview.Session) error {
	data, err := encode(s)
	if err != nil {
		return err
	}

	unlock := r.locks.lock(s.ID)
	defer unlock()

	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.key(s.ID), data, 0)
		pipe.SAdd(ctx, r.indexKey(), s.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("write session %s: %w", s.ID, err)
	}
	return nil
}

func (r *RedisStore) Exists(ctx context.Context, id string) (bool, error) {
	n, err := r.rdb.Exists(ctx, r.key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("check session %s: %w", id, err)
	}
	return n > 0, nil
}

func (r *RedisStore) List(ctx context.Context) ([]*interview.Session, error) {
	ids, err := r.rdb.SMembers(ctx, r.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	sessions := make([]*interview.Session, 0, len(ids))
	for _, id := range ids {
		s, err := r.Get(ctx, id)
		if errors.Is(err, interview.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}

	sortByCreation(sessions)
	return sessions, nil
}
