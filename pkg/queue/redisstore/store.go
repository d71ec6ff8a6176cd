// Package redisstore keeps deferred tasks in Redis: a sorted set scored by visibility time
// and a hash of JSON encoded tasks. Whoever removes a member from the sorted set owns it.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dukex/eca/pkg/models"
	redis "github.com/redis/go-redis/v9"
)

const (
	DefaultPrefix = "eca:tasks"

	// candidates read per Pop attempt, so a lost race can fall back to the next task
	popWindow = 10
)

type Store struct {
	client  redis.UniversalClient
	zsetKey string
	hashKey string
}

func New(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}

	return &Store{
		client:  client,
		zsetKey: prefix + ":schedule",
		hashKey: prefix + ":data",
	}
}

// Connect opens a client for a redis:// URL and checks the connection.
func Connect(ctx context.Context, url string) (*Store, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(options)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return New(client, DefaultPrefix), nil
}

func (s *Store) Push(ctx context.Context, task models.Task, visibleAt time.Time) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to encode task %s: %w", task.ID, err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.hashKey, task.ID, payload)
		pipe.ZAdd(ctx, s.zsetKey, redis.Z{Score: float64(visibleAt.UnixMilli()), Member: task.ID})

		return nil
	})

	return err
}

func (s *Store) Pop(ctx context.Context, now time.Time) (models.Task, bool, error) {
	ids, err := s.client.ZRangeByScore(ctx, s.zsetKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: popWindow,
	}).Result()
	if err != nil {
		return models.Task{}, false, err
	}

	for _, id := range ids {
		removed, err := s.client.ZRem(ctx, s.zsetKey, id).Result()
		if err != nil {
			return models.Task{}, false, err
		}

		if removed == 0 {
			// another worker got it first
			continue
		}

		return s.take(ctx, id)
	}

	return models.Task{}, false, nil
}

func (s *Store) take(ctx context.Context, id string) (models.Task, bool, error) {
	var get *redis.StringCmd

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		get = pipe.HGet(ctx, s.hashKey, id)
		pipe.HDel(ctx, s.hashKey, id)

		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return models.Task{}, false, err
	}

	payload, err := get.Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Task{}, false, fmt.Errorf("task %s has no payload", id)
	}

	if err != nil {
		return models.Task{}, false, err
	}

	var task models.Task
	if err := json.Unmarshal(payload, &task); err != nil {
		return models.Task{}, false, fmt.Errorf("failed to decode task %s: %w", id, err)
	}

	return task, true, nil
}

func (s *Store) Len(ctx context.Context) (int, error) {
	n, err := s.client.ZCard(ctx, s.zsetKey).Result()

	return int(n), err
}

func (s *Store) Close() error {
	return s.client.Close()
}
