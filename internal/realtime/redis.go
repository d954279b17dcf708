package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultKeyPrefix = "agencyflow:realtime:"

type redisPublishClient interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RedisPublisher publishes events to Redis so every instance's Bridge can
// hand them to its local hub.
type RedisPublisher struct {
	client redisPublishClient
	prefix string
	log    *zap.Logger
}

func NewRedisPublisher(client redisPublishClient, log *zap.Logger) *RedisPublisher {
	return &RedisPublisher{
		client: client,
		prefix: DefaultKeyPrefix,
		log:    log.Named("realtime.redis"),
	}
}

func (p *RedisPublisher) Publish(ctx context.Context, channel string, event string, payload any) error {
	evt, err := newEvent(channel, event, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode realtime event: %w", err)
	}
	if err := p.client.Publish(ctx, p.prefix+evt.Channel, data).Err(); err != nil {
		return fmt.Errorf("publish realtime event: %w", err)
	}
	p.log.Debug("published realtime event",
		zap.String("channel", evt.Channel),
		zap.String("event", evt.Name),
	)
	return nil
}

// Bridge subscribes to every realtime channel in Redis and delivers the
// events into the local hub.
type Bridge struct {
	client *redis.Client
	hub    *Hub
	prefix string
	log    *zap.Logger

	mu     sync.Mutex
	pubsub *redis.PubSub
	done   chan struct{}
}

func NewBridge(client *redis.Client, hub *Hub, log *zap.Logger) *Bridge {
	return &Bridge{
		client: client,
		hub:    hub,
		prefix: DefaultKeyPrefix,
		log:    log.Named("realtime.bridge"),
	}
}

func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pubsub != nil {
		return nil
	}

	pubsub := b.client.PSubscribe(ctx, b.prefix+"*")
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("subscribe realtime bridge: %w", err)
	}
	b.pubsub = pubsub
	b.done = make(chan struct{})

	go func(messages <-chan *redis.Message, done chan struct{}) {
		defer close(done)
		for msg := range messages {
			b.handle(msg)
		}
	}(pubsub.Channel(), b.done)

	b.log.Info("realtime bridge started", zap.String("pattern", b.prefix+"*"))
	return nil
}

func (b *Bridge) Stop(ctx context.Context) error {
	b.mu.Lock()
	pubsub, done := b.pubsub, b.done
	b.pubsub, b.done = nil, nil
	b.mu.Unlock()
	if pubsub == nil {
		return nil
	}

	if err := pubsub.Close(); err != nil {
		return err
	}
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	b.log.Info("realtime bridge stopped")
	return nil
}

func (b *Bridge) handle(msg *redis.Message) {
	if msg == nil {
		return
	}
	var evt Event
	if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
		b.log.Warn("dropping malformed realtime event",
			zap.String("redis_channel", msg.Channel),
			zap.Error(err),
		)
		return
	}
	if evt.Channel == "" {
		evt.Channel = strings.TrimPrefix(msg.Channel, b.prefix)
	}
	b.hub.Deliver(evt)
}
