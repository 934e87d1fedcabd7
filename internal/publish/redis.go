package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/blackwell-systems/burnwatch/internal/activity"
)

const (
	// CurrentKey holds the latest snapshot as JSON.
	CurrentKey = "burnwatch:current"
	// HistoryKey is a capped list of recent snapshots, newest first.
	HistoryKey = "burnwatch:history"
	// HistoryLength is one hour of snapshots at the default 5s period.
	HistoryLength = 720
)

// RedisOptions configures ConnectRedis.
type RedisOptions struct {
	Addr       string
	Password   string
	DB         int
	TTL        time.Duration
	MaxRetries uint64
}

// RedisPublisher mirrors the live snapshot into Redis so other processes can
// read it without talking to the dashboard.
type RedisPublisher struct {
	client *redis.Client
	ttl    time.Duration
}

// ConnectRedis dials Redis and pings it with exponential backoff.
func ConnectRedis(ctx context.Context, opts RedisOptions, log logrus.FieldLogger) (*RedisPublisher, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), opts.MaxRetries), ctx)
	err := backoff.Retry(func() error {
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warnf("Redis connection failed: %v, retrying...", err)
			return err
		}
		return nil
	}, b)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}

	log.Infof("connected to Redis at %s", opts.Addr)
	return NewRedisPublisher(client, opts.TTL), nil
}

// NewRedisPublisher wraps an existing client. A zero ttl stores the current
// key without expiry.
func NewRedisPublisher(client *redis.Client, ttl time.Duration) *RedisPublisher {
	return &RedisPublisher{client: client, ttl: ttl}
}

// Publish sets CurrentKey and pushes onto HistoryKey in one transaction.
func (r *RedisPublisher) Publish(ctx context.Context, s activity.Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, CurrentKey, data, r.ttl)
		pipe.LPush(ctx, HistoryKey, data)
		pipe.LTrim(ctx, HistoryKey, 0, HistoryLength-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to publish snapshot to Redis: %w", err)
	}
	return nil
}

// Current reads back the snapshot stored under CurrentKey.
func (r *RedisPublisher) Current(ctx context.Context) (activity.Snapshot, bool, error) {
	data, err := r.client.Get(ctx, CurrentKey).Bytes()
	if err == redis.Nil {
		return activity.Snapshot{}, false, nil
	}
	if err != nil {
		return activity.Snapshot{}, false, fmt.Errorf("failed to get current snapshot: %w", err)
	}

	var s activity.Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return activity.Snapshot{}, false, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return s, true, nil
}

// Ping checks the connection.
func (r *RedisPublisher) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (r *RedisPublisher) Close() error {
	return r.client.Close()
}
