package notify

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"
)

// RedisNotifier publishes messages to a redis channel consumed by the
// chat front-end process.
type RedisNotifier struct {
	client  *redis.Client
	channel string
}

func NewRedisNotifier(ctx context.Context, addr, password string, db int, channel string) (*RedisNotifier, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &RedisNotifier{client: client, channel: channel}, nil
}

func (n *RedisNotifier) Send(ctx context.Context, msg Message) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return n.client.Publish(ctx, n.channel, b).Err()
}

func (n *RedisNotifier) Close() error {
	return n.client.Close()
}

var _ Notifier = (*RedisNotifier)(nil)
