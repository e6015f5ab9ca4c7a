package sol

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const NarrationChannel = "trading_log"

// RedisNarrator publishes trade narration as a JSON array of lines.
type RedisNarrator struct {
	client  redis.Cmdable
	channel string
	log     *logrus.Logger
}

func NewRedisNarrator(client redis.Cmdable, log *logrus.Logger) (*RedisNarrator, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	return &RedisNarrator{client: client, channel: NarrationChannel, log: log}, nil
}

func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0,
	})
}

func (n *RedisNarrator) Narrate(ctx context.Context, lines ...string) error {
	data, err := json.Marshal(lines)
	if err != nil {
		return err
	}
	if err = n.client.Publish(ctx, n.channel, data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", n.channel, err)
	}
	n.log.WithField("channel", n.channel).Debug("narration published")
	return nil
}

// LogNarrator writes narration to the process log when no Redis is configured.
type LogNarrator struct {
	log *logrus.Logger
}

func NewLogNarrator(log *logrus.Logger) LogNarrator {
	return LogNarrator{log: log}
}

func (n LogNarrator) Narrate(_ context.Context, lines ...string) error {
	for _, line := range lines {
		if line != "" {
			n.log.Info(line)
		}
	}
	return nil
}
