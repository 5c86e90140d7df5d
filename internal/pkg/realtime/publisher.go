package realtime

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Publisher 向实时频道发布事件
type Publisher interface {
	Publish(ctx context.Context, channel ChannelID, event string, data any) error
}

type RedisPublisher struct {
	rdb redis.Cmdable
}

func NewRedisPublisher(rdb redis.Cmdable) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

func (p *RedisPublisher) Publish(ctx context.Context, channel ChannelID, event string, data any) error {
	if channel == "" {
		return ErrInvalidChannel
	}
	payload, err := json.Marshal(Envelope{Event: event, Channel: channel, Data: data})
	if err != nil {
		return errors.Wrap(err, "marshal envelope")
	}
	if err := p.rdb.Publish(ctx, channel.Topic(), payload).Err(); err != nil {
		return errors.Wrapf(err, "publish %s to %s", event, channel)
	}
	return nil
}
