package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ewilhelmy-resolve/rita-webhook-simulator/internal/platform/logger"
)

// RedisPublisher publishes to a pub/sub channel named after the queue. Used
// in local development where the product backend subscribes directly and no
// RabbitMQ is running; durability is intentionally not provided.
//
// An unreachable broker at startup does not fail construction: the client
// dials lazily and every Publish retries the connection.
type RedisPublisher struct {
	log *logger.Logger
	rdb *goredis.Client
}

func NewRedis(log *logger.Logger, brokerURL string) (*RedisPublisher, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	opts, err := goredis.ParseURL(brokerURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	rdb := goredis.NewClient(opts)

	p := &RedisPublisher{
		log: log.With("service", "RedisPublisher"),
		rdb: rdb,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		p.log.Warn("broker unreachable at startup, publishes will retry", "error", err)
	} else {
		p.log.Info("broker connected")
	}
	return p, nil
}

func (p *RedisPublisher) Publish(ctx context.Context, queue string, body any) error {
	if p == nil || p.rdb == nil {
		return fmt.Errorf("redis publisher not initialized")
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, queue, raw).Err()
}

func (p *RedisPublisher) Close() error {
	if p == nil || p.rdb == nil {
		return nil
	}
	return p.rdb.Close()
}
