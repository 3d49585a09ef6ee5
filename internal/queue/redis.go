package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisKey = "catalog-scraper:batch-jobs"

// RedisQueue shares batch jobs across processes via a Redis list.
type RedisQueue struct {
	client *redis.Client
	key    string
}

func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = defaultRedisKey
	}
	return &RedisQueue{client: client, key: key}
}

func (q *RedisQueue) Push(ctx context.Context, job *BatchJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("failed to push job: %w", err)
	}
	return nil
}

func (q *RedisQueue) Pop(ctx context.Context) (*BatchJob, error) {
	for {
		res, err := q.client.BRPop(ctx, 5*time.Second, q.key).Result()
		if errors.Is(err, redis.Nil) {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to pop job: %w", err)
		}

		var job BatchJob
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			return nil, fmt.Errorf("failed to unmarshal job: %w", err)
		}
		return &job, nil
	}
}

func (q *RedisQueue) Size() int {
	n, err := q.client.LLen(context.Background(), q.key).Result()
	if err != nil {
		return 0
	}
	return int(n)
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}
