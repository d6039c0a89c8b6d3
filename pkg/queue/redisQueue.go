package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const (
	defaultMainQueue    = "booker:tasks"
	defaultDelayedQueue = "booker:tasks:delayed"
	defaultPopTimeout   = 5 * time.Second
	promoteBatchSize    = 100
)

// RedisQueueConfig contains configuration for RedisQueue.
type RedisQueueConfig struct {
	MainQueue    string
	DelayedQueue string
	PopTimeout   time.Duration
}

func DefaultRedisQueueConfig() *RedisQueueConfig {
	return &RedisQueueConfig{
		MainQueue:    defaultMainQueue,
		DelayedQueue: defaultDelayedQueue,
		PopTimeout:   defaultPopTimeout,
	}
}

// RedisQueue implements Queue on top of a Redis list plus a sorted set
// for delayed tasks. Delivery is best effort: a task whose handler fails
// is retried only up to its MaxRetries and then dropped with a log line.
type RedisQueue struct {
	client       *redis.Client
	mainQueue    string
	delayedQueue string
	popTimeout   time.Duration
}

func NewRedisQueue(client *redis.Client, cfg *RedisQueueConfig) (*RedisQueue, error) {
	if cfg == nil {
		cfg = DefaultRedisQueueConfig()
	}
	if cfg.MainQueue == "" {
		cfg.MainQueue = defaultMainQueue
	}
	if cfg.DelayedQueue == "" {
		cfg.DelayedQueue = defaultDelayedQueue
	}
	if cfg.PopTimeout <= 0 {
		cfg.PopTimeout = defaultPopTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %v", err)
	}

	logrus.WithFields(logrus.Fields{
		"main":    cfg.MainQueue,
		"delayed": cfg.DelayedQueue,
	}).Info("Redis queue initialized")

	return &RedisQueue{
		client:       client,
		mainQueue:    cfg.MainQueue,
		delayedQueue: cfg.DelayedQueue,
		popTimeout:   cfg.PopTimeout,
	}, nil
}

// Publish enqueues a task. Tasks with a future ExecuteAt land in the
// delayed sorted set and are promoted when due.
func (r *RedisQueue) Publish(ctx context.Context, task *Task) error {
	if task == nil {
		return fmt.Errorf("task cannot be nil")
	}
	if err := task.Validate(); err != nil {
		return fmt.Errorf("invalid task: %v", err)
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}

	taskData, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %v", err)
	}

	if !task.ExecuteAt.IsZero() && task.ExecuteAt.After(time.Now()) {
		score := float64(task.ExecuteAt.UnixNano()) / 1e9
		if err := r.client.ZAdd(ctx, r.delayedQueue, &redis.Z{
			Score:  score,
			Member: taskData,
		}).Err(); err != nil {
			return fmt.Errorf("failed to enqueue delayed task: %v", err)
		}
		return nil
	}

	if err := r.client.LPush(ctx, r.mainQueue, taskData).Err(); err != nil {
		return fmt.Errorf("failed to enqueue task: %v", err)
	}
	return nil
}

// Subscribe consumes tasks until the context is cancelled. Each loop
// iteration first promotes due delayed tasks, then blocks briefly on the
// main queue.
func (r *RedisQueue) Subscribe(ctx context.Context, handler func(*Task) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := r.promoteDue(ctx); err != nil && err != context.Canceled {
			logrus.Errorf("Failed to promote delayed tasks: %v", err)
		}

		result, err := r.client.BRPop(ctx, r.popTimeout, r.mainQueue).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logrus.Errorf("Failed to pop task: %v", err)
			time.Sleep(time.Second)
			continue
		}

		// BRPop returns [queue, payload]
		if len(result) != 2 {
			continue
		}

		var task Task
		if err := json.Unmarshal([]byte(result[1]), &task); err != nil {
			logrus.Errorf("Failed to decode task: %v", err)
			continue
		}

		if err := handler(&task); err != nil {
			task.Attempts++
			if task.Attempts <= task.MaxRetries {
				logrus.WithFields(logrus.Fields{
					"task_id":  task.ID,
					"attempts": task.Attempts,
				}).Warnf("Task failed, requeueing: %v", err)
				if pubErr := r.Publish(ctx, &task); pubErr != nil {
					logrus.Errorf("Failed to requeue task %s: %v", task.ID, pubErr)
				}
			} else {
				logrus.WithField("task_id", task.ID).Errorf("Task dropped: %v", err)
			}
		}
	}
}

func (r *RedisQueue) promoteDue(ctx context.Context) error {
	now := float64(time.Now().UnixNano()) / 1e9

	members, err := r.client.ZRangeByScore(ctx, r.delayedQueue, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("%f", now),
		Count: promoteBatchSize,
	}).Result()
	if err != nil {
		return err
	}

	for _, member := range members {
		removed, err := r.client.ZRem(ctx, r.delayedQueue, member).Result()
		if err != nil {
			return err
		}
		// Another consumer may have promoted it first.
		if removed == 0 {
			continue
		}
		if err := r.client.LPush(ctx, r.mainQueue, member).Err(); err != nil {
			return err
		}
	}
	return nil
}

func (r *RedisQueue) Close() error {
	return r.client.Close()
}
