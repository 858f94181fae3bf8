package realtime

import (
	"context"

	"github.com/redis/go-redis/v9"

	applog "stockkeeper/internal/log"
)

// DefaultChannel is the pub/sub channel shared by all instances.
const DefaultChannel = "stockkeeper:events"

// RedisRelay carries hub events between instances over Redis pub/sub.
type RedisRelay struct {
	rdb     *redis.Client
	channel string
	hub     *Hub
}

func NewRedisRelay(rdb *redis.Client, hub *Hub, channel string) *RedisRelay {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisRelay{rdb: rdb, channel: channel, hub: hub}
}

// NewRedisClient parses a redis:// URL and checks the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}

func (r *RedisRelay) Publish(ctx context.Context, msg string) error {
	return r.rdb.Publish(ctx, r.channel, msg).Err()
}

// Run forwards every message on the channel to the local hub until ctx ends.
func (r *RedisRelay) Run(ctx context.Context) {
	sub := r.rdb.Subscribe(ctx, r.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				applog.Warn(nil, "realtime.relay_closed", map[string]any{"channel": r.channel})
				return
			}
			r.hub.Broadcast([]byte(m.Payload))
		}
	}
}
